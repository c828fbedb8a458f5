package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Keyring-Network/prodscout/internal/product"
	"github.com/Keyring-Network/prodscout/internal/research"
	"github.com/Keyring-Network/prodscout/internal/store"
)

type MemoryStore struct {
	mu          sync.RWMutex
	history     map[string]store.HistoryEntry
	favorites   map[string]store.Favorite
	enrichments map[string]store.Enrichment
}

func New() *MemoryStore {
	return &MemoryStore{
		history:     map[string]store.HistoryEntry{},
		favorites:   map[string]store.Favorite{},
		enrichments: map[string]store.Enrichment{},
	}
}

func (m *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

func (m *MemoryStore) GetHistory(ctx context.Context, topic string) (*store.HistoryEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.history[store.TopicKey(topic)]
	if !ok {
		return nil, nil
	}
	cloned := cloneEntry(entry)
	return &cloned, nil
}

func (m *MemoryStore) ListHistory(ctx context.Context) ([]store.HistoryEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	results := make([]store.HistoryEntry, 0, len(m.history))
	for _, entry := range m.history {
		results = append(results, cloneEntry(entry))
	}
	sort.Slice(results, func(i, j int) bool {
		return parseTime(results[i].UpdatedAt).After(parseTime(results[j].UpdatedAt))
	})
	return results, nil
}

func (m *MemoryStore) SaveHistory(ctx context.Context, entry store.HistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := store.TopicKey(entry.Topic)
	entry.Topic = key
	now := nowString()
	if existing, ok := m.history[key]; ok && existing.CreatedAt != "" {
		entry.CreatedAt = existing.CreatedAt
	}
	if entry.CreatedAt == "" {
		entry.CreatedAt = now
	}
	if entry.UpdatedAt == "" {
		entry.UpdatedAt = now
	}
	m.history[key] = cloneEntry(entry)
	return nil
}

func (m *MemoryStore) DeleteHistory(ctx context.Context, topic string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.history, store.TopicKey(topic))
	return nil
}

func (m *MemoryStore) ListFavorites(ctx context.Context) ([]store.Favorite, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	results := make([]store.Favorite, 0, len(m.favorites))
	for _, favorite := range m.favorites {
		favorite.Product = favorite.Product.Clone()
		results = append(results, favorite)
	}
	sort.Slice(results, func(i, j int) bool {
		return parseTime(results[i].AddedAt).After(parseTime(results[j].AddedAt))
	})
	return results, nil
}

func (m *MemoryStore) AddFavorite(ctx context.Context, favorite store.Favorite) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if strings.TrimSpace(favorite.Key) == "" {
		favorite.Key = store.FavoriteKey(favorite.Product)
	}
	if favorite.AddedAt == "" {
		favorite.AddedAt = nowString()
	}
	favorite.Product = favorite.Product.Clone()
	m.favorites[favorite.Key] = favorite
	return nil
}

func (m *MemoryStore) RemoveFavorite(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.favorites, key)
	return nil
}

func (m *MemoryStore) LookupEnrichments(ctx context.Context, keys []string) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	results := map[string]string{}
	for _, key := range keys {
		if enrichment, ok := m.enrichments[key]; ok {
			results[key] = enrichment.Output
		}
	}
	return results, nil
}

func (m *MemoryStore) SaveEnrichment(ctx context.Context, enrichment store.Enrichment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if enrichment.UpdatedAt == "" {
		enrichment.UpdatedAt = nowString()
	}
	m.enrichments[enrichment.Key] = enrichment
	return nil
}

func cloneEntry(entry store.HistoryEntry) store.HistoryEntry {
	entry.Result = cloneResult(entry.Result)
	return entry
}

func cloneResult(result research.Result) research.Result {
	cloned := result
	cloned.Keywords = append([]string(nil), result.Keywords...)
	cloned.Weights = append(product.KeywordSet(nil), result.Weights...)
	cloned.KeywordStatus = append([]research.KeywordStatus(nil), result.KeywordStatus...)
	if result.Products != nil {
		cloned.Products = make([]product.Product, len(result.Products))
		for i, p := range result.Products {
			cloned.Products[i] = p.Clone()
		}
	}
	return cloned
}

func nowString() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

func parseTime(value string) time.Time {
	parsed, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return parsed
}
