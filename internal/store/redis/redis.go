package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/Keyring-Network/prodscout/internal/research"
	"github.com/Keyring-Network/prodscout/internal/store"
)

const defaultPrefix = "prodscout:"

// RedisStore keeps each history entry as a JSON string indexed by a sorted
// set on update time. Favorites and enrichments are hashes keyed by the
// product's enrichment key.
type RedisStore struct {
	client *goredis.Client
	prefix string
}

func New(url string) (*RedisStore, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := goredis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return NewWithClient(client, defaultPrefix), nil
}

func NewWithClient(client *goredis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

type historyRecord struct {
	Topic     string          `json:"topic"`
	Result    research.Result `json:"result"`
	CreatedAt string          `json:"createdAt"`
	UpdatedAt string          `json:"updatedAt"`
}

type favoriteRecord struct {
	Key     string          `json:"key"`
	Product json.RawMessage `json:"product"`
	AddedAt string          `json:"addedAt"`
}

type enrichmentRecord struct {
	Output      string `json:"output"`
	ResolvedURL string `json:"resolvedUrl,omitempty"`
	UpdatedAt   string `json:"updatedAt"`
}

func (r *RedisStore) historyKey(topic string) string {
	return r.prefix + "history:" + topic
}

func (r *RedisStore) historyIndexKey() string {
	return r.prefix + "history:index"
}

func (r *RedisStore) favoritesKey() string {
	return r.prefix + "favorites"
}

func (r *RedisStore) enrichmentsKey() string {
	return r.prefix + "enrichments"
}

func (r *RedisStore) GetHistory(ctx context.Context, topic string) (*store.HistoryEntry, error) {
	raw, err := r.client.Get(ctx, r.historyKey(store.TopicKey(topic))).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	entry, err := decodeHistory(raw)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *RedisStore) ListHistory(ctx context.Context) ([]store.HistoryEntry, error) {
	topics, err := r.client.ZRevRange(ctx, r.historyIndexKey(), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	results := []store.HistoryEntry{}
	if len(topics) == 0 {
		return results, nil
	}
	keys := make([]string, len(topics))
	for i, topic := range topics {
		keys[i] = r.historyKey(topic)
	}
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	for _, value := range values {
		raw, ok := value.(string)
		if !ok {
			continue
		}
		entry, err := decodeHistory([]byte(raw))
		if err != nil {
			return nil, err
		}
		results = append(results, entry)
	}
	return results, nil
}

func (r *RedisStore) SaveHistory(ctx context.Context, entry store.HistoryEntry) error {
	topic := store.TopicKey(entry.Topic)
	now := nowString()
	createdAt := entry.CreatedAt
	if existing, err := r.GetHistory(ctx, topic); err != nil {
		return err
	} else if existing != nil && existing.CreatedAt != "" {
		createdAt = existing.CreatedAt
	}
	if createdAt == "" {
		createdAt = now
	}
	updatedAt := entry.UpdatedAt
	if updatedAt == "" {
		updatedAt = now
	}
	encoded, err := json.Marshal(historyRecord{
		Topic:     topic,
		Result:    entry.Result,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	})
	if err != nil {
		return err
	}
	_, err = r.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Set(ctx, r.historyKey(topic), encoded, 0)
		pipe.ZAdd(ctx, r.historyIndexKey(), goredis.Z{Score: score(updatedAt), Member: topic})
		return nil
	})
	return err
}

func (r *RedisStore) DeleteHistory(ctx context.Context, topic string) error {
	topic = store.TopicKey(topic)
	_, err := r.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Del(ctx, r.historyKey(topic))
		pipe.ZRem(ctx, r.historyIndexKey(), topic)
		return nil
	})
	return err
}

func (r *RedisStore) ListFavorites(ctx context.Context) ([]store.Favorite, error) {
	values, err := r.client.HGetAll(ctx, r.favoritesKey()).Result()
	if err != nil {
		return nil, err
	}
	results := make([]store.Favorite, 0, len(values))
	for key, raw := range values {
		var record favoriteRecord
		if err := json.Unmarshal([]byte(raw), &record); err != nil {
			return nil, fmt.Errorf("decode favorite %s: %w", key, err)
		}
		favorite := store.Favorite{Key: key, AddedAt: record.AddedAt}
		if err := json.Unmarshal(record.Product, &favorite.Product); err != nil {
			return nil, fmt.Errorf("decode favorite %s: %w", key, err)
		}
		results = append(results, favorite)
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].AddedAt == results[j].AddedAt {
			return results[i].Key < results[j].Key
		}
		return parseTime(results[i].AddedAt).After(parseTime(results[j].AddedAt))
	})
	return results, nil
}

func (r *RedisStore) AddFavorite(ctx context.Context, favorite store.Favorite) error {
	key := strings.TrimSpace(favorite.Key)
	if key == "" {
		key = store.FavoriteKey(favorite.Product)
	}
	addedAt := favorite.AddedAt
	if addedAt == "" {
		addedAt = nowString()
	}
	productBytes, err := json.Marshal(favorite.Product)
	if err != nil {
		return err
	}
	encoded, err := json.Marshal(favoriteRecord{Key: key, Product: productBytes, AddedAt: addedAt})
	if err != nil {
		return err
	}
	return r.client.HSet(ctx, r.favoritesKey(), key, encoded).Err()
}

func (r *RedisStore) RemoveFavorite(ctx context.Context, key string) error {
	return r.client.HDel(ctx, r.favoritesKey(), key).Err()
}

func (r *RedisStore) LookupEnrichments(ctx context.Context, keys []string) (map[string]string, error) {
	results := map[string]string{}
	if len(keys) == 0 {
		return results, nil
	}
	values, err := r.client.HMGet(ctx, r.enrichmentsKey(), keys...).Result()
	if err != nil {
		return nil, err
	}
	for i, value := range values {
		raw, ok := value.(string)
		if !ok {
			continue
		}
		var record enrichmentRecord
		if err := json.Unmarshal([]byte(raw), &record); err != nil {
			return nil, fmt.Errorf("decode enrichment %s: %w", keys[i], err)
		}
		results[keys[i]] = record.Output
	}
	return results, nil
}

func (r *RedisStore) SaveEnrichment(ctx context.Context, enrichment store.Enrichment) error {
	updatedAt := enrichment.UpdatedAt
	if updatedAt == "" {
		updatedAt = nowString()
	}
	encoded, err := json.Marshal(enrichmentRecord{
		Output:      enrichment.Output,
		ResolvedURL: enrichment.ResolvedURL,
		UpdatedAt:   updatedAt,
	})
	if err != nil {
		return err
	}
	return r.client.HSet(ctx, r.enrichmentsKey(), enrichment.Key, encoded).Err()
}

func decodeHistory(raw []byte) (store.HistoryEntry, error) {
	var record historyRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return store.HistoryEntry{}, fmt.Errorf("decode history: %w", err)
	}
	return store.HistoryEntry{
		Topic:     record.Topic,
		Result:    record.Result,
		CreatedAt: record.CreatedAt,
		UpdatedAt: record.UpdatedAt,
	}, nil
}

func score(timestamp string) float64 {
	return float64(parseTime(timestamp).UnixMilli())
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
