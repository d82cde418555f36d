// Package profile fetches the application-level user record for an
// authenticated principal.
package profile

import (
	"context"
	"errors"
	"log"

	"github.com/eduardobaptist/ifpassweb/internal/backend"
	"github.com/eduardobaptist/ifpassweb/internal/model"
)

const usuariosTable = "usuarios"

// Querier is the slice of the backend client the loader needs.
type Querier interface {
	QueryOne(ctx context.Context, token, table string, filter backend.Filter, dest interface{}) error
}

type Loader struct {
	backend Querier
}

func NewLoader(querier Querier) *Loader {
	return &Loader{backend: querier}
}

// Load fetches the profile row keyed by the principal ID with exactly one
// singular query. Any backend error, missing row, or identity mismatch
// yields an absent profile; failures are logged and never propagate past
// this boundary. There is no retry and no caching.
func (l *Loader) Load(ctx context.Context, token, principalID string) (*model.Profile, error) {
	if principalID == "" {
		return nil, nil
	}

	var profile model.Profile
	err := l.backend.QueryOne(ctx, token, usuariosTable, backend.Filter{Column: "id", Value: principalID}, &profile)
	if err != nil {
		if !errors.Is(err, backend.ErrNotFound) {
			log.Printf("profile fetch failed for %s: %v", principalID, err)
		}
		return nil, nil
	}
	if profile.ID != principalID {
		log.Printf("profile row id %s does not match principal %s", profile.ID, principalID)
		return nil, nil
	}
	return &profile, nil
}
