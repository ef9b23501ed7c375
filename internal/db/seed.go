package db

import (
	"context"
	"fmt"

	"agency-hub/internal/adapter/usecase"
	"agency-hub/internal/core/domain"
	"agency-hub/internal/core/port"
)

// Seed writes the demo agency document to the backing store unless a
// document is already persisted. It reports whether anything was written.
func Seed(ctx context.Context, storage port.KeyValueStore) (bool, error) {
	_, ok, err := storage.Get(ctx, usecase.StateKey)
	if err != nil {
		return false, fmt.Errorf("read agency state: %w", err)
	}
	if ok {
		return false, nil
	}
	raw, err := domain.EncodeState(domain.DemoState())
	if err != nil {
		return false, err
	}
	if err = storage.Set(ctx, usecase.StateKey, raw); err != nil {
		return false, fmt.Errorf("write demo state: %w", err)
	}
	return true, nil
}
