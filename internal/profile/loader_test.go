package profile

import (
	"context"
	"errors"
	"testing"

	"github.com/eduardobaptist/ifpassweb/internal/backend"
	"github.com/eduardobaptist/ifpassweb/internal/model"
)

type fakeQuerier struct {
	profile *model.Profile
	err     error
	calls   int
}

func (f *fakeQuerier) QueryOne(_ context.Context, _, _ string, _ backend.Filter, dest interface{}) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	*dest.(*model.Profile) = *f.profile
	return nil
}

func strPtr(v string) *string { return &v }

func TestLoadReturnsProfile(t *testing.T) {
	querier := &fakeQuerier{profile: &model.Profile{ID: "user-1", Nome: strPtr("Maria"), Tipo: strPtr("aluno")}}
	loader := NewLoader(querier)

	prof, err := loader.Load(context.Background(), "tok", "user-1")
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if prof == nil || prof.Role() != model.RoleAluno {
		t.Fatalf("unexpected profile %+v", prof)
	}
	if querier.calls != 1 {
		t.Fatalf("expected exactly one query, got %d", querier.calls)
	}
}

func TestLoadAbsentOnError(t *testing.T) {
	loader := NewLoader(&fakeQuerier{err: errors.New("boom")})
	prof, err := loader.Load(context.Background(), "tok", "user-1")
	if err != nil {
		t.Fatalf("errors must not cross the loader boundary: %v", err)
	}
	if prof != nil {
		t.Fatalf("expected absent profile, got %+v", prof)
	}
}

func TestLoadAbsentOnMissingRow(t *testing.T) {
	loader := NewLoader(&fakeQuerier{err: backend.ErrNotFound})
	prof, err := loader.Load(context.Background(), "tok", "user-1")
	if err != nil || prof != nil {
		t.Fatalf("expected absent profile without error, got %+v, %v", prof, err)
	}
}

func TestLoadAbsentOnIdentityMismatch(t *testing.T) {
	loader := NewLoader(&fakeQuerier{profile: &model.Profile{ID: "other"}})
	prof, err := loader.Load(context.Background(), "tok", "user-1")
	if err != nil || prof != nil {
		t.Fatalf("expected mismatched row to be absent, got %+v, %v", prof, err)
	}
}

func TestLoadEmptyPrincipal(t *testing.T) {
	querier := &fakeQuerier{}
	loader := NewLoader(querier)
	prof, err := loader.Load(context.Background(), "tok", "")
	if err != nil || prof != nil {
		t.Fatalf("expected absent profile for empty principal")
	}
	if querier.calls != 0 {
		t.Fatalf("expected no query for empty principal")
	}
}
