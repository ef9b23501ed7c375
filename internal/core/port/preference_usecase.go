package port

import (
	"context"

	"agency-hub/internal/core/domain"
)

// PreferenceUseCase is the per-widget boolean flag store. Writes are
// best-effort on every channel after the local update.
type PreferenceUseCase interface {
	// Read returns the flag, true when it was never written.
	Read(ctx context.Context, id domain.PreferenceID) bool
	Write(ctx context.Context, id domain.PreferenceID, enabled bool)
	// Subscribe registers fn for every flag change seen by this bus,
	// local or remote.
	Subscribe(fn func(key string, enabled bool)) (unsubscribe func())
}
