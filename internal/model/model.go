package model

import (
	"strings"
	"time"
)

const (
	RoleSuperuser = "superuser"
	RoleAdmin     = "admin"
	RoleAluno     = "aluno"
)

// RecognizedRole reports whether role is one of the roles the application
// knows how to route. Anything else is unauthorized everywhere.
func RecognizedRole(role string) bool {
	switch role {
	case RoleSuperuser, RoleAdmin, RoleAluno:
		return true
	default:
		return false
	}
}

// IsStaff reports whether role grants access to the admin surface.
func IsStaff(role string) bool {
	return role == RoleSuperuser || role == RoleAdmin
}

// Principal is the authenticated identity issued by the backend service.
type Principal struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session is a live authentication grant tied to a Principal. Token
// lifetimes are managed by the backend; ExpiresAt mirrors the access
// token's exp claim.
type Session struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	Principal    Principal
}

func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Profile is the application-level user record from the usuarios table,
// keyed by the Principal's ID.
type Profile struct {
	ID        string  `json:"id"`
	Nome      *string `json:"nome"`
	Tipo      *string `json:"tipo"`
	Matricula *string `json:"matricula"`
	CPF       *string `json:"cpf"`
}

// Role returns the normalized role string, or "" when the profile has none.
func (p *Profile) Role() string {
	if p == nil || p.Tipo == nil {
		return ""
	}
	return strings.TrimSpace(strings.ToLower(*p.Tipo))
}

func (p *Profile) DisplayName() string {
	if p == nil || p.Nome == nil || *p.Nome == "" {
		return "Sem nome"
	}
	return *p.Nome
}

type EventStatus string

const (
	StatusEncerrado            EventStatus = "Evento encerrado"
	StatusInscricoesEncerradas EventStatus = "Inscrições encerradas"
	StatusEsgotado             EventStatus = "Vagas esgotadas"
	StatusAberto               EventStatus = "Vagas abertas"
)

// Event is read-only from the client's perspective; rows come from the
// eventos table.
type Event struct {
	ID               int64   `json:"id"`
	Titulo           string  `json:"titulo"`
	Data             *string `json:"data"`
	TotalVagas       *int    `json:"total_vagas"`
	VagasDisponiveis *int    `json:"vagas_disponiveis"`
	Inscricao        *bool   `json:"inscricao"`
	Ativo            *bool   `json:"ativo"`
}

// Status derives the display status. The derivation is total and
// priority-ordered: an inactive event is closed no matter what the other
// fields say, a closed registration beats a full room, and a nil remaining
// capacity counts as zero.
func (e Event) Status() EventStatus {
	if e.Ativo != nil && !*e.Ativo {
		return StatusEncerrado
	}
	if e.Inscricao != nil && !*e.Inscricao {
		return StatusInscricoesEncerradas
	}
	remaining := 0
	if e.VagasDisponiveis != nil {
		remaining = *e.VagasDisponiveis
	}
	if remaining <= 0 {
		return StatusEsgotado
	}
	return StatusAberto
}

func (e Event) IsActive() bool {
	return e.Ativo != nil && *e.Ativo
}

// DataFormatada renders the event date as dd/mm/yyyy, or "-" when the date
// is absent or unparseable.
func (e Event) DataFormatada() string {
	if e.Data == nil || *e.Data == "" {
		return "-"
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, *e.Data); err == nil {
			return t.Format("02/01/2006")
		}
	}
	return "-"
}

// UserRecord is the admin-facing row of the usuarios table.
type UserRecord struct {
	ID        string  `json:"id"`
	Nome      *string `json:"nome"`
	Tipo      *string `json:"tipo"`
	Matricula *string `json:"matricula"`
}

func (u UserRecord) DisplayName() string {
	if u.Nome == nil || *u.Nome == "" {
		return "Sem nome"
	}
	return *u.Nome
}

func (u UserRecord) TipoLabel() string {
	if u.Tipo == nil || *u.Tipo == "" {
		return "-"
	}
	return *u.Tipo
}

// Vinculo derives the relationship label: staff roles count as Servidor
// regardless of enrollment, an enrollment number marks an Aluno, anyone
// else is Externo.
func (u UserRecord) Vinculo() string {
	if u.Tipo != nil && IsStaff(strings.TrimSpace(strings.ToLower(*u.Tipo))) {
		return "Servidor"
	}
	if u.Matricula != nil && *u.Matricula != "" {
		return "Aluno"
	}
	return "Externo"
}

// Registration links a Principal to an Event in the inscricoes table.
type Registration struct {
	ID        int64  `json:"id"`
	EventoID  int64  `json:"evento_id"`
	UsuarioID string `json:"usuario_id"`
}
