package navigation

import (
	"fmt"
	"strings"

	"github.com/Jasani8259/Final-Capstone/internal/model"
	"github.com/Jasani8259/Final-Capstone/internal/sources"
)

type Kind string

const (
	KindLogin    Kind = "login"
	KindHome     Kind = "home"
	KindPage     Kind = "page"
	KindDenied   Kind = "denied"
	KindNotFound Kind = "not_found"
)

const LoginPath = "/"

// View describes one navigable page. Empty Roles means public; several roles
// admit any of them.
type View struct {
	Path    string           `json:"path"`
	Title   string           `json:"title"`
	Kind    Kind             `json:"kind"`
	Roles   []model.Role     `json:"roles,omitempty"`
	Sources []model.SourceID `json:"sources,omitempty"`
}

func (v View) Public() bool {
	return len(v.Roles) == 0
}

func page(path, title string, roles []model.Role, ids ...model.SourceID) View {
	return View{Path: path, Title: title, Kind: KindPage, Roles: roles, Sources: ids}
}

func home(path, title string, role model.Role, ids ...model.SourceID) View {
	return View{Path: path, Title: title, Kind: KindHome, Roles: []model.Role{role}, Sources: ids}
}

// DefaultViews is the portal layout: one home per role, its tabs, and the
// shared lab report page.
func DefaultViews() []View {
	doctor := []model.Role{model.RoleDoctor}
	patient := []model.Role{model.RolePatient}
	nurse := []model.Role{model.RoleNurse}
	admin := []model.Role{model.RoleAdmin}
	frontdesk := []model.Role{model.RoleFrontdesk}

	return []View{
		{Path: LoginPath, Title: "Sign in", Kind: KindLogin},

		home("/doctor_dashboard", "Doctor Dashboard", model.RoleDoctor,
			sources.ActivePatients, sources.AppointmentsToday, sources.MonthlyRiskTrends, sources.RecentLabReports),

		home("/patient_dashboard", "Patient Portal", model.RolePatient),
		page("/patient_dashboard/records", "My Records", patient, sources.PatientRecord),
		page("/patient_dashboard/meds", "Medications", patient),
		page("/patient_dashboard/labs", "Lab Results", patient, sources.LabResults),
		page("/patient_dashboard/risks", "Risk Scores", patient, sources.RiskScores),
		page("/patient_dashboard/vaccines", "Vaccinations", patient),
		page("/patient_dashboard/education", "Health Education", patient),
		page("/patient_dashboard/messages", "Messages", patient),
		page("/patient_dashboard/appointments", "Appointments", patient, sources.AppointmentList),
		page("/patient_dashboard/journal", "Health Journal", patient),
		page("/patient_dashboard/goals", "Wellness Goals", patient),

		home("/nurse_dashboard", "Nurse Dashboard", model.RoleNurse,
			sources.ActivePatients, sources.LabReportCount),
		page("/nurse_dashboard/patients", "Patients", nurse, sources.PatientTable),
		page("/nurse_dashboard/labs", "Lab Reports", nurse, sources.LabReportsList),
		page("/nurse_dashboard/vitals", "Vitals", nurse, sources.RiskScores),
		page("/nurse_dashboard/settings", "Settings", nurse),

		home("/admin_dashboard", "Admin Dashboard", model.RoleAdmin,
			sources.ActivePatients, sources.AgeDemographics, sources.MonthlyRiskTrends),
		page("/admin_dashboard/settings", "Settings", admin),

		home("/frontdesk_dashboard", "Front Desk", model.RoleFrontdesk,
			sources.ActivePatients, sources.AppointmentsToday, sources.MonthlyRiskTrends,
			sources.AgeDemographics, sources.RecentLabReports),
		page("/frontdesk_dashboard/patient_record", "Patient Record", frontdesk, sources.PatientTable),
		page("/frontdesk_dashboard/visits", "Visits", frontdesk, sources.AppointmentList),
		page("/frontdesk_dashboard/medications", "Medications", frontdesk),
		page("/frontdesk_dashboard/risk", "Risk Overview", frontdesk, sources.MonthlyRiskTrends),
		page("/frontdesk_dashboard/resources", "Resources", frontdesk),
		page("/frontdesk_dashboard/reports", "Reports", frontdesk, sources.RecentLabReports),
		page("/frontdesk_dashboard/settings", "Settings", frontdesk),

		page("/lab_reports", "Lab Reports", append(nurse, doctor...), sources.LabReportsList),
	}
}

type Registry struct {
	views map[string]View
	order []string
	homes map[model.Role]string
}

// NewRegistry validates the table: unique paths, known roles, and at most
// one home view per role.
func NewRegistry(views []View) (*Registry, error) {
	r := &Registry{views: make(map[string]View), homes: make(map[model.Role]string)}
	for _, view := range views {
		view.Path = Normalize(view.Path)
		if _, exists := r.views[view.Path]; exists {
			return nil, fmt.Errorf("duplicate view %q", view.Path)
		}
		for _, role := range view.Roles {
			if !role.Valid() {
				return nil, fmt.Errorf("view %q: invalid role %q", view.Path, role)
			}
		}
		switch view.Kind {
		case KindHome:
			if len(view.Roles) != 1 {
				return nil, fmt.Errorf("home view %q must name exactly one role", view.Path)
			}
			role := view.Roles[0]
			if existing, ok := r.homes[role]; ok {
				return nil, fmt.Errorf("role %s has two home views: %s and %s", role, existing, view.Path)
			}
			r.homes[role] = view.Path
		case KindLogin, KindPage:
		default:
			return nil, fmt.Errorf("view %q: unsupported kind %q", view.Path, view.Kind)
		}
		r.views[view.Path] = view
		r.order = append(r.order, view.Path)
	}
	return r, nil
}

func MustDefaultRegistry() *Registry {
	r, err := NewRegistry(DefaultViews())
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Registry) Lookup(path string) (View, bool) {
	view, ok := r.views[Normalize(path)]
	return view, ok
}

func (r *Registry) Views() []View {
	out := make([]View, 0, len(r.order))
	for _, path := range r.order {
		out = append(out, r.views[path])
	}
	return out
}

// HomePath is the landing view of role, or the login view when the role has
// none.
func (r *Registry) HomePath(role model.Role) string {
	if path, ok := r.homes[role]; ok {
		return path
	}
	return LoginPath
}

// Normalize strips the query, surrounding space and trailing slashes, and
// guarantees a leading slash.
func Normalize(path string) string {
	path = strings.TrimSpace(path)
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	path = strings.TrimRight(path, "/")
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return path
}
