package web

import (
	"log"
	"net/http"
	"strings"

	"github.com/eduardobaptist/ifpassweb/internal/metrics"
	"github.com/eduardobaptist/ifpassweb/internal/model"
	sessionstore "github.com/eduardobaptist/ifpassweb/internal/session"
)

const (
	msgInvalidLogin    = "E-mail ou senha inválidos."
	msgUnknownUserType = "Tipo de usuário não reconhecido."
)

type loginView struct {
	Email string
	Erro  string
}

type loginForm struct {
	Email string `validate:"required,email"`
	Senha string `validate:"required"`
}

// landingFor maps a recognized role to its landing route.
func landingFor(role string) (string, bool) {
	switch role {
	case model.RoleSuperuser, model.RoleAdmin:
		return "/DashboardAdmin", true
	case model.RoleAluno:
		return "/HomeAluno", true
	default:
		return "", false
	}
}

// handleLoginPage renders the login form, unless the browser already holds
// an authenticated session with a recognized role, in which case it goes
// straight to that role's landing page.
func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	snapshot := snapshotFromContext(r.Context())
	if snapshot.State == sessionstore.StateLoading {
		s.renderLoading(w)
		return
	}
	if snapshot.State == sessionstore.StateAuthenticated {
		if target, ok := landingFor(snapshot.Role()); ok {
			http.Redirect(w, r, target, http.StatusSeeOther)
			return
		}
	}
	s.render(w, http.StatusOK, "login.html", loginView{})
}

// handleLogin authenticates the submitted credentials. Navigation is
// decided from the session store's published snapshot, which already
// carries the profile, never from the raw auth response; that keeps a
// role-less principal from being bounced through a guarded route.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.render(w, http.StatusBadRequest, "login.html", loginView{Erro: msgInvalidLogin})
		return
	}

	form := loginForm{
		Email: strings.TrimSpace(strings.ToLower(r.PostFormValue("email"))),
		Senha: r.PostFormValue("senha"),
	}
	if err := s.validate.Struct(form); err != nil {
		s.render(w, http.StatusOK, "login.html", loginView{Email: form.Email, Erro: msgInvalidLogin})
		return
	}

	sid := sidFromContext(r.Context())
	snapshot, err := s.sessions.SignIn(r.Context(), sid, form.Email, form.Senha)
	if err != nil {
		// Bad credentials and backend failures surface identically; the
		// page never reveals which one it was.
		metrics.BackendErrors.WithLabelValues("sign_in").Inc()
		log.Printf("sign-in rejected: %v", err)
		s.render(w, http.StatusOK, "login.html", loginView{Email: form.Email, Erro: msgInvalidLogin})
		return
	}

	target, ok := landingFor(snapshot.Role())
	if !ok {
		// Authenticated but with no recognized application role: the
		// grant is useless here, discard it rather than leaving a session
		// every guard will deny.
		s.sessions.SignOut(r.Context(), sid)
		s.render(w, http.StatusOK, "login.html", loginView{Email: form.Email, Erro: msgUnknownUserType})
		return
	}

	metrics.SignIns.Inc()
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.sessions.SignOut(r.Context(), sidFromContext(r.Context()))
	metrics.SignOuts.Inc()
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
