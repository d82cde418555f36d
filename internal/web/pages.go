package web

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/eduardobaptist/ifpassweb/internal/backend"
	"github.com/eduardobaptist/ifpassweb/internal/metrics"
	"github.com/eduardobaptist/ifpassweb/internal/model"
)

const (
	usuariosTable   = "usuarios"
	eventosTable    = "eventos"
	inscricoesTable = "inscricoes"
)

type dashboardStats struct {
	TotalUsuarios int
	TotalAdmins   int
	EventosAtivos int
}

type dashboardView struct {
	Nome     string
	Tipo     string
	Stats    dashboardStats
	Admins   []model.UserRecord
	Erro     string
	Mensagem string
}

// loadDashboard fetches the user and event tables concurrently; the two
// queries are independent and complete in either order.
func (s *Server) loadDashboard(ctx context.Context, token string) (dashboardStats, []model.UserRecord, error) {
	var (
		usuarios    []model.UserRecord
		eventos     []model.Event
		usuariosErr error
		eventosErr  error
	)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		usuariosErr = s.backend.QueryMany(ctx, token, usuariosTable, backend.QueryOpts{Select: "id,nome,tipo"}, &usuarios)
	}()
	go func() {
		defer wg.Done()
		eventosErr = s.backend.QueryMany(ctx, token, eventosTable, backend.QueryOpts{Select: "id,ativo"}, &eventos)
	}()
	wg.Wait()

	if usuariosErr != nil {
		return dashboardStats{}, nil, usuariosErr
	}
	if eventosErr != nil {
		return dashboardStats{}, nil, eventosErr
	}

	stats := dashboardStats{TotalUsuarios: len(usuarios)}
	var admins []model.UserRecord
	for _, u := range usuarios {
		if u.Vinculo() == "Servidor" {
			admins = append(admins, u)
		}
	}
	stats.TotalAdmins = len(admins)
	for _, e := range eventos {
		if e.IsActive() {
			stats.EventosAtivos++
		}
	}
	return stats, admins, nil
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	snapshot := snapshotFromContext(r.Context())
	view := dashboardView{Nome: snapshot.Profile.DisplayName(), Tipo: snapshot.Role()}

	stats, admins, err := s.loadDashboard(r.Context(), snapshot.Session.AccessToken)
	if err != nil {
		metrics.BackendErrors.WithLabelValues("dashboard").Inc()
		view.Erro = "Erro ao carregar dados do painel."
	} else {
		view.Stats = stats
		view.Admins = admins
	}
	s.render(w, http.StatusOK, "dashboard.html", view)
}

type homeAlunoView struct {
	Nome          string
	EventosAtivos int
	MeusEventos   int
	Erro          string
}

func (s *Server) handleHomeAluno(w http.ResponseWriter, r *http.Request) {
	snapshot := snapshotFromContext(r.Context())
	token := snapshot.Session.AccessToken
	view := homeAlunoView{Nome: snapshot.Profile.DisplayName()}

	var (
		eventos       []model.Event
		inscricoes    []model.Registration
		eventosErr    error
		inscricoesErr error
	)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		eventosErr = s.backend.QueryMany(r.Context(), token, eventosTable, backend.QueryOpts{Select: "id,ativo"}, &eventos)
	}()
	go func() {
		defer wg.Done()
		opts := backend.QueryOpts{
			Select:  "id,evento_id,usuario_id",
			Filters: []backend.Filter{{Column: "usuario_id", Value: snapshot.Principal.ID}},
		}
		inscricoesErr = s.backend.QueryMany(r.Context(), token, inscricoesTable, opts, &inscricoes)
	}()
	wg.Wait()

	if eventosErr != nil || inscricoesErr != nil {
		metrics.BackendErrors.WithLabelValues("home_aluno").Inc()
		view.Erro = "Erro ao carregar dados."
	} else {
		for _, e := range eventos {
			if e.IsActive() {
				view.EventosAtivos++
			}
		}
		view.MeusEventos = len(inscricoes)
	}
	s.render(w, http.StatusOK, "home_aluno.html", view)
}

type eventoView struct {
	Titulo string
	Data   string
	Vagas  string
	Status model.EventStatus
	Aberto bool
}

type eventosView struct {
	Nome       string
	VoltarPath string
	Eventos    []eventoView
	Erro       string
}

// handleEventos serves both the staff and the student event listings; the
// permitted roles differ per route, the content does not.
func (s *Server) handleEventos(w http.ResponseWriter, r *http.Request) {
	snapshot := snapshotFromContext(r.Context())
	view := eventosView{Nome: snapshot.Profile.DisplayName(), VoltarPath: "/HomeAluno"}
	if model.IsStaff(snapshot.Role()) {
		view.VoltarPath = "/DashboardAdmin"
	}

	var eventos []model.Event
	opts := backend.QueryOpts{
		Select:  "id,titulo,data,total_vagas,vagas_disponiveis,inscricao,ativo",
		OrderBy: "data",
	}
	if err := s.backend.QueryMany(r.Context(), snapshot.Session.AccessToken, eventosTable, opts, &eventos); err != nil {
		metrics.BackendErrors.WithLabelValues("list_events").Inc()
		view.Erro = "Erro ao carregar eventos."
		s.render(w, http.StatusOK, "eventos.html", view)
		return
	}

	for _, e := range eventos {
		status := e.Status()
		view.Eventos = append(view.Eventos, eventoView{
			Titulo: e.Titulo,
			Data:   e.DataFormatada(),
			Vagas:  fmt.Sprintf("%d / %d", intOrZero(e.VagasDisponiveis), intOrZero(e.TotalVagas)),
			Status: status,
			Aberto: status == model.StatusAberto,
		})
	}
	s.render(w, http.StatusOK, "eventos.html", view)
}

type usuariosView struct {
	Tipo     string
	Usuarios []model.UserRecord
	Erro     string
	Mensagem string
}

func (s *Server) handleUsuarios(w http.ResponseWriter, r *http.Request) {
	snapshot := snapshotFromContext(r.Context())
	view := s.loadUsuarios(r.Context(), snapshot.Session.AccessToken, snapshot.Role())
	if r.URL.Query().Get("removido") == "1" {
		view.Mensagem = "Usuário excluído."
	}
	s.render(w, http.StatusOK, "usuarios.html", view)
}

func (s *Server) loadUsuarios(ctx context.Context, token, role string) usuariosView {
	view := usuariosView{Tipo: role}
	var usuarios []model.UserRecord
	opts := backend.QueryOpts{Select: "id,nome,tipo,matricula"}
	if err := s.backend.QueryMany(ctx, token, usuariosTable, opts, &usuarios); err != nil {
		metrics.BackendErrors.WithLabelValues("list_users").Inc()
		view.Erro = "Erro ao carregar usuários."
		return view
	}
	view.Usuarios = usuarios
	return view
}

func intOrZero(value *int) int {
	if value == nil {
		return 0
	}
	return *value
}

func normalizeRole(raw string) string {
	return strings.TrimSpace(strings.ToLower(raw))
}
