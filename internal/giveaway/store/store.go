// Package store defines the persistence contract for giveaway records. A
// store holds exactly one document: the ordered array of every current
// record. There are no partial updates; every save rewrites the document.
package store

import (
	"context"

	"giveaway-engine/internal/giveaway/models"
)

type Store interface {
	// LoadAll returns every persisted record. A store that has never been
	// written reads as empty and is created on first access.
	LoadAll(ctx context.Context) ([]*models.Giveaway, error)

	// SaveAll atomically replaces the document with the given records.
	SaveAll(ctx context.Context, giveaways []*models.Giveaway) error
}
