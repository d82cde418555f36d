// Package web serves the Ifpass pages: login, the admin dashboard, the
// student home, and the event and user listings. Access control per route
// lives in the route table and guard middleware; data comes from the
// hosted backend service on every page load.
package web

import (
	"bytes"
	"embed"
	"encoding/json"
	"html/template"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/eduardobaptist/ifpassweb/internal/backend"
	"github.com/eduardobaptist/ifpassweb/internal/config"
	sessionstore "github.com/eduardobaptist/ifpassweb/internal/session"
)

//go:embed templates/*.html
var templateFS embed.FS

const sessionCookieName = "ifpass_session"

type Server struct {
	cfg      config.Config
	backend  *backend.Client
	sessions *sessionstore.Manager
	cookies  *sessions.CookieStore
	validate *validator.Validate
	tmpl     *template.Template
}

func NewServer(cfg config.Config, backendClient *backend.Client, manager *sessionstore.Manager) (*Server, error) {
	secret := []byte(cfg.SessionSecret)
	if len(secret) == 0 {
		// Ephemeral key: sessions do not survive a restart without a
		// configured secret.
		secret = securecookie.GenerateRandomKey(32)
		log.Printf("SESSION_SECRET not set, using an ephemeral cookie key")
	}

	cookies := sessions.NewCookieStore(secret)
	cookies.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.SessionTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	return &Server{
		cfg:      cfg,
		backend:  backendClient,
		sessions: manager,
		cookies:  cookies,
		validate: validator.New(),
		tmpl:     tmpl,
	}, nil
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(s.withSession)

		r.Get("/", s.handleLoginPage)
		r.Post("/login", s.handleLogin)
		r.Post("/sair", s.handleLogout)

		r.With(s.requireRoles("/DashboardAdmin")).Get("/DashboardAdmin", s.handleDashboard)
		r.With(s.requireRoles("/DashboardAdmin")).Post("/DashboardAdmin/usuarios", s.handleCreateUser)
		r.With(s.requireRoles("/HomeAluno")).Get("/HomeAluno", s.handleHomeAluno)
		r.With(s.requireRoles("/Eventos")).Get("/Eventos", s.handleEventos)
		r.With(s.requireRoles("/EventosAluno")).Get("/EventosAluno", s.handleEventos)
		r.With(s.requireRoles("/Usuarios")).Get("/Usuarios", s.handleUsuarios)
		r.With(s.requireRoles("/Usuarios")).Post("/Usuarios/{id}/excluir", s.handleDeleteUser)
	})

	return r
}

func (s *Server) render(w http.ResponseWriter, status int, name string, data interface{}) {
	var buf bytes.Buffer
	if err := s.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		log.Printf("template %s failed: %v", name, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}

func wantsJSON(r *http.Request) bool {
	if r.Header.Get("X-Requested-With") == "XMLHttpRequest" {
		return true
	}
	return r.Header.Get("Accept") == "application/json"
}
