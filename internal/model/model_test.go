package model

import "testing"

func boolPtr(v bool) *bool    { return &v }
func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }

func TestRecognizedRole(t *testing.T) {
	for _, role := range []string{RoleSuperuser, RoleAdmin, RoleAluno} {
		if !RecognizedRole(role) {
			t.Fatalf("expected role %s to be recognized", role)
		}
	}
	for _, role := range []string{"", "coordinator", "dev", "ADMIN"} {
		if RecognizedRole(role) {
			t.Fatalf("expected role %q to be unrecognized", role)
		}
	}
}

func TestEventStatusPriority(t *testing.T) {
	// An inactive event is closed no matter what the other fields say.
	e := Event{Ativo: boolPtr(false), Inscricao: boolPtr(true), VagasDisponiveis: intPtr(10)}
	if e.Status() != StatusEncerrado {
		t.Fatalf("expected encerrado, got %s", e.Status())
	}

	e = Event{Ativo: boolPtr(true), Inscricao: boolPtr(false), VagasDisponiveis: intPtr(10)}
	if e.Status() != StatusInscricoesEncerradas {
		t.Fatalf("expected inscrições encerradas, got %s", e.Status())
	}

	e = Event{Ativo: boolPtr(true), Inscricao: boolPtr(true), VagasDisponiveis: intPtr(0)}
	if e.Status() != StatusEsgotado {
		t.Fatalf("expected esgotado, got %s", e.Status())
	}

	// Nil remaining capacity counts as zero.
	e = Event{Ativo: boolPtr(true), Inscricao: boolPtr(true)}
	if e.Status() != StatusEsgotado {
		t.Fatalf("expected esgotado for nil capacity, got %s", e.Status())
	}

	e = Event{Ativo: boolPtr(true), Inscricao: boolPtr(true), VagasDisponiveis: intPtr(5), TotalVagas: intPtr(10)}
	if e.Status() != StatusAberto {
		t.Fatalf("expected aberto, got %s", e.Status())
	}

	// Nil flags do not close the event.
	e = Event{VagasDisponiveis: intPtr(3)}
	if e.Status() != StatusAberto {
		t.Fatalf("expected aberto for nil flags, got %s", e.Status())
	}
}

func TestEventDataFormatada(t *testing.T) {
	e := Event{Data: strPtr("2026-03-14")}
	if got := e.DataFormatada(); got != "14/03/2026" {
		t.Fatalf("expected 14/03/2026, got %s", got)
	}
	e = Event{Data: strPtr("2026-03-14T18:30:00Z")}
	if got := e.DataFormatada(); got != "14/03/2026" {
		t.Fatalf("expected 14/03/2026, got %s", got)
	}
	e = Event{}
	if got := e.DataFormatada(); got != "-" {
		t.Fatalf("expected - for nil date, got %s", got)
	}
	e = Event{Data: strPtr("not a date")}
	if got := e.DataFormatada(); got != "-" {
		t.Fatalf("expected - for junk date, got %s", got)
	}
}

func TestUserRecordVinculo(t *testing.T) {
	// Staff role wins regardless of enrollment.
	u := UserRecord{Tipo: strPtr("admin"), Matricula: strPtr("2023001")}
	if u.Vinculo() != "Servidor" {
		t.Fatalf("expected Servidor, got %s", u.Vinculo())
	}
	u = UserRecord{Tipo: strPtr("superuser")}
	if u.Vinculo() != "Servidor" {
		t.Fatalf("expected Servidor, got %s", u.Vinculo())
	}
	u = UserRecord{Matricula: strPtr("2023001")}
	if u.Vinculo() != "Aluno" {
		t.Fatalf("expected Aluno, got %s", u.Vinculo())
	}
	u = UserRecord{}
	if u.Vinculo() != "Externo" {
		t.Fatalf("expected Externo, got %s", u.Vinculo())
	}
}

func TestProfileRole(t *testing.T) {
	p := &Profile{Tipo: strPtr("  Aluno ")}
	if p.Role() != RoleAluno {
		t.Fatalf("expected normalized aluno, got %q", p.Role())
	}
	if (&Profile{}).Role() != "" {
		t.Fatalf("expected empty role for nil tipo")
	}
	var absent *Profile
	if absent.Role() != "" {
		t.Fatalf("expected empty role for absent profile")
	}
}
