package browserstore

import "context"

// Area is the key/value storage belonging to one browser session.
// GetItem returns nil data and a nil error when the key is absent.
type Area interface {
	GetItem(ctx context.Context, key string) ([]byte, error)
	SetItem(ctx context.Context, key string, value []byte) error
}

// Repository hands out storage areas by session id.
type Repository interface {
	Area(sessionID string) Area
	Ping(ctx context.Context) error
}
