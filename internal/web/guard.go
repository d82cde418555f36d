package web

import (
	"context"
	"log"
	"net/http"

	"github.com/google/uuid"

	"github.com/eduardobaptist/ifpassweb/internal/metrics"
	"github.com/eduardobaptist/ifpassweb/internal/model"
	sessionstore "github.com/eduardobaptist/ifpassweb/internal/session"
)

// RouteTable is the reviewable role map for every guarded page. Mutating
// endpoints nested under a page share its entry. A path missing from the
// table is denied to everyone.
var RouteTable = map[string][]string{
	"/DashboardAdmin": {model.RoleSuperuser, model.RoleAdmin},
	"/HomeAluno":      {model.RoleAluno},
	"/Usuarios":       {model.RoleSuperuser, model.RoleAdmin},
	"/Eventos":        {model.RoleSuperuser, model.RoleAdmin},
	"/EventosAluno":   {model.RoleAluno},
}

type sidKey struct{}
type snapshotKey struct{}

// withSession attaches the browser session to the request: it reads (or
// mints) the opaque session ID from the secure cookie and resolves the
// current session snapshot.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, _ := s.cookies.Get(r, sessionCookieName)
		sid, _ := cookie.Values["sid"].(string)
		if sid == "" {
			sid = uuid.NewString()
			cookie.Values["sid"] = sid
			if err := cookie.Save(r, w); err != nil {
				log.Printf("session cookie save failed: %v", err)
			}
		}

		snapshot := s.sessions.Resolve(r.Context(), sid)

		ctx := context.WithValue(r.Context(), sidKey{}, sid)
		ctx = context.WithValue(ctx, snapshotKey{}, snapshot)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireRoles guards a route with the role set declared for path in the
// RouteTable. A still-loading session renders the placeholder so guarded
// content never flashes before resolution; anonymous sessions, absent
// profiles, and roles outside the set are sent back to login.
func (s *Server) requireRoles(path string) func(http.Handler) http.Handler {
	roles := RouteTable[path]
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			snapshot := snapshotFromContext(r.Context())
			switch {
			case snapshot.State == sessionstore.StateLoading:
				s.renderLoading(w)
			case snapshot.State != sessionstore.StateAuthenticated || snapshot.Profile == nil:
				metrics.RouteDenied.WithLabelValues(path).Inc()
				http.Redirect(w, r, "/", http.StatusSeeOther)
			case !contains(roles, snapshot.Role()):
				metrics.RouteDenied.WithLabelValues(path).Inc()
				http.Redirect(w, r, "/", http.StatusSeeOther)
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

func (s *Server) renderLoading(w http.ResponseWriter) {
	s.render(w, http.StatusOK, "loading.html", nil)
}

func sidFromContext(ctx context.Context) string {
	sid, _ := ctx.Value(sidKey{}).(string)
	return sid
}

func snapshotFromContext(ctx context.Context) sessionstore.Snapshot {
	if snapshot, ok := ctx.Value(snapshotKey{}).(sessionstore.Snapshot); ok {
		return snapshot
	}
	return sessionstore.Snapshot{State: sessionstore.StateAnonymous}
}

func contains(values []string, target string) bool {
	for _, value := range values {
		if value == target {
			return true
		}
	}
	return false
}
