package store

import (
	"context"
	"strings"

	"github.com/Keyring-Network/prodscout/internal/product"
	"github.com/Keyring-Network/prodscout/internal/research"
)

// HistoryEntry is the last research result saved for a topic. Timestamps are
// RFC3339 strings.
type HistoryEntry struct {
	Topic     string
	Result    research.Result
	CreatedAt string
	UpdatedAt string
}

// Favorite is a bookmarked product keyed by its enrichment key.
type Favorite struct {
	Key     string
	Product product.Product
	AddedAt string
}

// Enrichment is a cached deep-research annotation.
type Enrichment struct {
	Key         string
	Output      string
	ResolvedURL string
	UpdatedAt   string
}

// Store holds the state that outlives a single research run. Get methods
// return nil without error when nothing is stored.
type Store interface {
	Ping(ctx context.Context) error

	GetHistory(ctx context.Context, topic string) (*HistoryEntry, error)
	ListHistory(ctx context.Context) ([]HistoryEntry, error)
	SaveHistory(ctx context.Context, entry HistoryEntry) error
	DeleteHistory(ctx context.Context, topic string) error

	ListFavorites(ctx context.Context) ([]Favorite, error)
	AddFavorite(ctx context.Context, favorite Favorite) error
	RemoveFavorite(ctx context.Context, key string) error

	LookupEnrichments(ctx context.Context, keys []string) (map[string]string, error)
	SaveEnrichment(ctx context.Context, enrichment Enrichment) error
}

// TopicKey is the history key for a topic. Topics are matched exactly apart
// from surrounding whitespace.
func TopicKey(topic string) string {
	return strings.TrimSpace(topic)
}

// FavoriteKey returns the key a product is favorited under.
func FavoriteKey(p product.Product) string {
	return product.EnrichmentKey(p)
}
