package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Jasani8259/Final-Capstone/internal/auth"
	"github.com/Jasani8259/Final-Capstone/internal/backend"
	"github.com/Jasani8259/Final-Capstone/internal/dashboard"
	"github.com/Jasani8259/Final-Capstone/internal/model"
	"github.com/Jasani8259/Final-Capstone/internal/navigation"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginFailure struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type pageResponse struct {
	Error     string             `json:"error,omitempty"`
	Requested string             `json:"requested"`
	Outcome   navigation.Outcome `json:"outcome"`
	View      navigation.View    `json:"view"`
	State     navigation.State   `json:"state"`
	Summaries []model.Summary    `json:"summaries"`
}

type loginResponse struct {
	AccessToken string         `json:"accessToken"`
	User        model.Identity `json:"user"`
	View        pageResponse   `json:"view"`
}

type meResponse struct {
	User  model.Identity   `json:"user"`
	State navigation.State `json:"state"`
	View  navigation.View  `json:"view"`
}

type labReportRequest struct {
	PatientID  int64      `json:"patientId"`
	ReportType string     `json:"reportType"`
	Result     string     `json:"result"`
	ReportDate *time.Time `json:"reportDate,omitempty"`
}

var unauthenticated = navigation.State{Status: "unauthenticated"}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		s.metrics.ObserveLogin("missing_credentials")
		writeError(w, http.StatusBadRequest, "missing_credentials")
		return
	}

	identity, err := s.verifier.Verify(r.Context(), req.Email, req.Password)
	if errors.Is(err, auth.ErrCredentialRejected) {
		s.metrics.ObserveLogin("rejected")
		writeJSON(w, http.StatusUnauthorized, loginFailure{Error: "invalid_credentials", Message: auth.RejectedMessage})
		return
	}
	if err != nil {
		s.metrics.ObserveLogin("error")
		s.log.Error().Err(err).Msg("credential check failed")
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	client := clientFromContext(r.Context())
	if client == nil {
		client = s.sessions.New()
	}
	res := s.sessions.Login(r.Context(), client, identity)

	token, err := auth.NewSessionToken(s.cfg.JWTSecret, s.cfg.JWTIssuer, s.cfg.SessionTTL, client.ID, identity)
	if err != nil {
		s.log.Error().Err(err).Msg("session token not issued")
		writeError(w, http.StatusInternalServerError, "token_error")
		return
	}
	if err := s.setSessionCookie(w, r, client.ID); err != nil {
		s.log.Warn().Err(err).Msg("session cookie not set")
	}

	s.metrics.ObserveLogin("success")
	s.log.Info().Str("session", client.ID).Str("role", string(identity.Role)).Msg("login")
	writeJSON(w, http.StatusOK, loginResponse{
		AccessToken: token,
		User:        identity,
		View:        s.page(client, res),
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	var res navigation.Resolution
	if client := clientFromContext(r.Context()); client != nil {
		res = s.sessions.Logout(r.Context(), client)
		s.log.Info().Str("session", client.ID).Msg("logout")
	} else {
		res = navigation.Resolve(s.views, navigation.LoginPath, nil)
	}
	s.clearSessionCookie(w, r)
	writeJSON(w, http.StatusOK, s.page(nil, res))
}

func (s *Server) handleGetMe(w http.ResponseWriter, r *http.Request) {
	client := clientFromContext(r.Context())
	if client == nil {
		writeError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}
	identity, ok := client.Identity()
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}
	writeJSON(w, http.StatusOK, meResponse{
		User:  identity,
		State: client.Router.State(),
		View:  client.Router.Current().View,
	})
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	path := "/" + chi.URLParam(r, "*")
	client := clientFromContext(r.Context())
	if client == nil && navigation.Resolve(s.views, path, nil).Outcome == navigation.OutcomeDenied {
		// keep the protected target so signing in can land on it
		client = s.sessions.New()
		if err := s.setSessionCookie(w, r, client.ID); err != nil {
			s.log.Warn().Err(err).Msg("session cookie not set")
		}
	}

	var res navigation.Resolution
	if client != nil {
		res = s.sessions.Navigate(r.Context(), client, path)
	} else {
		res = navigation.Resolve(s.views, path, nil)
		s.metrics.ObserveNavigation(res)
	}

	body := s.page(client, res)
	switch res.Outcome {
	case navigation.OutcomeDenied:
		body.Error = "access_denied"
		writeJSON(w, http.StatusForbidden, body)
	case navigation.OutcomeNotFound:
		body.Error = "view_not_found"
		writeJSON(w, http.StatusNotFound, body)
	default:
		writeJSON(w, http.StatusOK, body)
	}
}

func (s *Server) handleSummaries(w http.ResponseWriter, r *http.Request) {
	client := clientFromContext(r.Context())
	if client == nil {
		writeJSON(w, http.StatusOK, s.page(nil, navigation.Resolve(s.views, navigation.LoginPath, nil)))
		return
	}
	writeJSON(w, http.StatusOK, s.page(client, client.Router.Current()))
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	client := clientFromContext(r.Context())
	if client == nil {
		writeError(w, http.StatusNotFound, "summary_not_found")
		return
	}
	summary, ok := client.Poller.Summary(model.SourceID(chi.URLParam(r, "sourceId")))
	if !ok {
		writeError(w, http.StatusNotFound, "summary_not_found")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleSaveLabReport(w http.ResponseWriter, r *http.Request) {
	var req labReportRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	req.ReportType = strings.TrimSpace(req.ReportType)
	req.Result = strings.TrimSpace(req.Result)
	if req.PatientID <= 0 || req.ReportType == "" || req.Result == "" {
		writeError(w, http.StatusBadRequest, "invalid_lab_report")
		return
	}
	reportDate := s.now().UTC()
	if req.ReportDate != nil {
		reportDate = req.ReportDate.UTC()
	}

	err := s.labs.SaveLabReport(r.Context(), backend.LabReport{
		PatientID:  req.PatientID,
		ReportType: req.ReportType,
		ReportDate: reportDate,
		Result:     req.Result,
	})
	if err != nil {
		s.log.Warn().Err(err).Int64("patient_id", req.PatientID).Msg("lab report not saved")
		writeError(w, http.StatusBadGateway, "lab_report_failed")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "saved"})
}

// page renders a resolution with the client's session state and summaries.
// A nil client renders the anonymous state with no summaries.
func (s *Server) page(client *dashboard.Client, res navigation.Resolution) pageResponse {
	body := pageResponse{
		Requested: res.Requested,
		Outcome:   res.Outcome,
		View:      res.View,
		State:     unauthenticated,
		Summaries: []model.Summary{},
	}
	if client != nil {
		body.State = client.Router.State()
		body.Summaries = client.Poller.Summaries()
	}
	return body
}
