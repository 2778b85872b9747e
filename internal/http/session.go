package http

import (
	"context"
	"net/http"

	"github.com/Jasani8259/Final-Capstone/internal/auth"
	"github.com/Jasani8259/Final-Capstone/internal/dashboard"
	"github.com/Jasani8259/Final-Capstone/internal/model"
	"github.com/Jasani8259/Final-Capstone/internal/navigation"
)

type clientKey struct{}

func clientFromContext(ctx context.Context) *dashboard.Client {
	client, _ := ctx.Value(clientKey{}).(*dashboard.Client)
	return client
}

func identityFromContext(ctx context.Context) (model.Identity, bool) {
	client := clientFromContext(ctx)
	if client == nil {
		return model.Identity{}, false
	}
	return client.Identity()
}

// sessionMiddleware attaches the caller's client session, found from the
// bearer token or the session cookie. Requests without one continue
// anonymously; a bearer token that does not verify is rejected.
func (s *Server) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID, claims, err := s.sessionID(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid_token")
			return
		}
		if sessionID == "" {
			next.ServeHTTP(w, r)
			return
		}

		client, ok, err := s.sessions.Get(r.Context(), sessionID)
		if err != nil {
			s.log.Warn().Err(err).Str("session", sessionID).Msg("session lookup failed")
			next.ServeHTTP(w, r)
			return
		}
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		if claims != nil {
			identity, signedIn := client.Identity()
			if !signedIn || identity.Identifier != claims.UserID {
				next.ServeHTTP(w, r)
				return
			}
		}
		ctx := context.WithValue(r.Context(), clientKey{}, client)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) sessionID(r *http.Request) (string, *auth.Claims, error) {
	if token := bearerToken(r.Header.Get("Authorization")); token != "" {
		claims, err := auth.ParseSessionToken(s.cfg.JWTSecret, s.cfg.JWTIssuer, token)
		if err != nil {
			return "", nil, err
		}
		return claims.SessionID, claims, nil
	}
	// a cookie that fails to decode is treated as no session
	sess, err := s.cookies.Get(r, cookieName)
	if err != nil {
		return "", nil, nil
	}
	id, _ := sess.Values[cookieSession].(string)
	return id, nil, nil
}

func (s *Server) setSessionCookie(w http.ResponseWriter, r *http.Request, sessionID string) error {
	sess, _ := s.cookies.Get(r, cookieName)
	sess.Values[cookieSession] = sessionID
	return sess.Save(r, w)
}

func (s *Server) clearSessionCookie(w http.ResponseWriter, r *http.Request) {
	sess, _ := s.cookies.Get(r, cookieName)
	sess.Options.MaxAge = -1
	delete(sess.Values, cookieSession)
	if err := sess.Save(r, w); err != nil {
		s.log.Warn().Err(err).Msg("session cookie not cleared")
	}
}

// requireView admits only identities allowed on the view at path, so the
// action shares the view's access rule.
func (s *Server) requireView(path string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			view, ok := s.views.Lookup(path)
			if !ok {
				writeError(w, http.StatusNotFound, "view_not_found")
				return
			}
			identity, signedIn := identityFromContext(r.Context())
			if !signedIn {
				writeError(w, http.StatusUnauthorized, "unauthenticated")
				return
			}
			if !navigation.Allows(view.Roles, &identity) {
				writeError(w, http.StatusForbidden, "access_denied")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
