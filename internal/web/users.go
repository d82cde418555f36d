package web

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/eduardobaptist/ifpassweb/internal/metrics"
	"github.com/eduardobaptist/ifpassweb/internal/model"
)

const orphanTable = "identidades_orfas"

type createUserForm struct {
	Nome      string `validate:"required"`
	Email     string `validate:"required,email"`
	Senha     string `validate:"required,min=6"`
	Tipo      string `validate:"required"`
	Matricula string
	CPF       string
}

// handleCreateUser creates an auth identity and then the matching usuarios
// row. The two steps are not transactional on the backend: when the insert
// fails after sign-up succeeded, the orphaned identity is recorded for
// cleanup and the partial outcome is reported as such.
func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	snapshot := snapshotFromContext(r.Context())
	token := snapshot.Session.AccessToken

	if err := r.ParseForm(); err != nil {
		s.renderDashboard(w, r, "Dados do formulário inválidos.", "")
		return
	}
	form := createUserForm{
		Nome:      strings.TrimSpace(r.PostFormValue("nome")),
		Email:     strings.TrimSpace(strings.ToLower(r.PostFormValue("email"))),
		Senha:     r.PostFormValue("senha"),
		Tipo:      normalizeRole(r.PostFormValue("tipo")),
		Matricula: strings.TrimSpace(r.PostFormValue("matricula")),
		CPF:       strings.TrimSpace(r.PostFormValue("cpf")),
	}
	if err := s.validate.Struct(form); err != nil {
		s.renderDashboard(w, r, "Dados do formulário inválidos.", "")
		return
	}
	if !model.RecognizedRole(form.Tipo) {
		s.renderDashboard(w, r, "Tipo de acesso inválido.", "")
		return
	}

	principal, err := s.backend.SignUp(r.Context(), form.Email, form.Senha)
	if err != nil {
		metrics.BackendErrors.WithLabelValues("sign_up").Inc()
		log.Printf("user sign-up failed: %v", err)
		s.renderDashboard(w, r, "Erro ao criar usuário de autenticação.", "")
		return
	}

	row := map[string]interface{}{
		"id":        principal.ID,
		"nome":      form.Nome,
		"tipo":      form.Tipo,
		"matricula": nullable(form.Matricula),
		"cpf":       nullable(form.CPF),
	}
	if err := s.backend.Insert(r.Context(), token, usuariosTable, row); err != nil {
		metrics.BackendErrors.WithLabelValues("insert_profile").Inc()
		log.Printf("profile insert failed for %s: %v", principal.ID, err)
		s.recordOrphanIdentity(r.Context(), token, principal, form.Email)
		s.renderDashboard(w, r, "Usuário criado na autenticação, mas houve erro ao salvar o perfil.", "")
		return
	}

	s.renderDashboard(w, r, "", "Usuário criado com sucesso.")
}

// recordOrphanIdentity notes an auth identity whose usuarios row could not
// be written, so an operator or a backend cleanup job can reap it. Failing
// to record still leaves the log line as the trail.
func (s *Server) recordOrphanIdentity(ctx context.Context, token string, principal model.Principal, email string) {
	record := map[string]interface{}{
		"id":           uuid.NewString(),
		"principal_id": principal.ID,
		"email":        email,
		"criado_em":    time.Now().UTC().Format(time.RFC3339),
	}
	if err := s.backend.Insert(ctx, token, orphanTable, record); err != nil {
		metrics.BackendErrors.WithLabelValues("record_orphan").Inc()
		log.Printf("orphaned identity %s (%s) could not be recorded: %v", principal.ID, email, err)
	}
}

func (s *Server) renderDashboard(w http.ResponseWriter, r *http.Request, erro, mensagem string) {
	snapshot := snapshotFromContext(r.Context())
	view := dashboardView{
		Nome:     snapshot.Profile.DisplayName(),
		Tipo:     snapshot.Role(),
		Erro:     erro,
		Mensagem: mensagem,
	}
	stats, admins, err := s.loadDashboard(r.Context(), snapshot.Session.AccessToken)
	if err != nil {
		metrics.BackendErrors.WithLabelValues("dashboard").Inc()
		if view.Erro == "" {
			view.Erro = "Erro ao carregar dados do painel."
		}
	} else {
		view.Stats = stats
		view.Admins = admins
	}
	s.render(w, http.StatusOK, "dashboard.html", view)
}

// handleDeleteUser removes a usuarios row. The row leaves the rendered
// list only after the backend confirms; a failure keeps the list intact
// with an inline error. XHR callers get the JSON status shape instead of
// a redirect, so the page script can drop the row without a reload.
func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	snapshot := snapshotFromContext(r.Context())
	id := chi.URLParam(r, "id")
	if id == "" {
		if wantsJSON(r) {
			writeError(w, http.StatusBadRequest, "missing_user_id")
			return
		}
		http.Redirect(w, r, "/Usuarios", http.StatusSeeOther)
		return
	}

	if err := s.backend.DeleteOne(r.Context(), snapshot.Session.AccessToken, usuariosTable, id); err != nil {
		metrics.BackendErrors.WithLabelValues("delete_user").Inc()
		log.Printf("user delete failed for %s: %v", id, err)
		if wantsJSON(r) {
			writeError(w, http.StatusBadGateway, "delete_failed")
			return
		}
		view := s.loadUsuarios(r.Context(), snapshot.Session.AccessToken, snapshot.Role())
		view.Erro = "Erro ao excluir usuário."
		s.render(w, http.StatusOK, "usuarios.html", view)
		return
	}

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}
	http.Redirect(w, r, "/Usuarios?removido=1", http.StatusSeeOther)
}

func nullable(value string) interface{} {
	if value == "" {
		return nil
	}
	return value
}
