package model

import "context"

// DocumentStore is an addressable blob store holding full tide documents.
// It performs no ownership logic: isolation comes from the orchestrator
// being the only caller and always constructing owner-scoped keys.
type DocumentStore interface {
	Put(ctx context.Context, key string, tide Tide) error
	Get(ctx context.Context, key string) (Tide, error)
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
}
