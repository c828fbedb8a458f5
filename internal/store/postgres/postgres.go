package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/Keyring-Network/prodscout/internal/product"
	"github.com/Keyring-Network/prodscout/internal/research"
	"github.com/Keyring-Network/prodscout/internal/store"
)

type PostgresStore struct {
	db *sql.DB
}

var openDB = sql.Open

func New(conn string) (*PostgresStore, error) {
	db, err := openDB("pgx", conn)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := verifySchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

func verifySchema(ctx context.Context, db *sql.DB) error {
	required := []string{
		"topic_history",
		"favorites",
		"enrichments",
	}
	for _, table := range required {
		var regclass sql.NullString
		if err := db.QueryRowContext(ctx, "SELECT to_regclass($1)", fmt.Sprintf("public.%s", table)).Scan(&regclass); err != nil {
			return err
		}
		if !regclass.Valid {
			return fmt.Errorf("database schema missing: %s table not found (run migrations/001_init.sql)", table)
		}
	}
	return nil
}

func (p *PostgresStore) Close() error {
	return p.db.Close()
}

func (p *PostgresStore) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

func (p *PostgresStore) GetHistory(ctx context.Context, topic string) (*store.HistoryEntry, error) {
	const query = `
		SELECT topic, result, created_at, updated_at
		FROM topic_history
		WHERE topic = $1
	`
	row := p.db.QueryRowContext(ctx, query, store.TopicKey(topic))
	entry, err := scanHistory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (p *PostgresStore) ListHistory(ctx context.Context) ([]store.HistoryEntry, error) {
	const query = `
		SELECT topic, result, created_at, updated_at
		FROM topic_history
		ORDER BY updated_at DESC
	`
	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := []store.HistoryEntry{}
	for rows.Next() {
		entry, err := scanHistory(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// storedResult writes weights as a [{keyword, weight}] array. JSONB does not
// keep object key order, and the keyword set order is the resolution order.
type storedResult struct {
	research.Result
	Weights []product.Keyword `json:"weights"`
}

func encodeResult(result research.Result) ([]byte, error) {
	return json.Marshal(storedResult{Result: result, Weights: result.Weights})
}

func (p *PostgresStore) SaveHistory(ctx context.Context, entry store.HistoryEntry) error {
	encoded, err := encodeResult(entry.Result)
	if err != nil {
		return err
	}
	const query = `
		INSERT INTO topic_history (topic, result, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (topic)
		DO UPDATE SET result = EXCLUDED.result, updated_at = EXCLUDED.updated_at
	`
	now := time.Now().UTC()
	_, err = p.db.ExecContext(
		ctx,
		query,
		store.TopicKey(entry.Topic),
		encoded,
		parseTimestampOr(entry.CreatedAt, now),
		parseTimestampOr(entry.UpdatedAt, now),
	)
	return err
}

func (p *PostgresStore) DeleteHistory(ctx context.Context, topic string) error {
	_, err := p.db.ExecContext(ctx, "DELETE FROM topic_history WHERE topic = $1", store.TopicKey(topic))
	return err
}

func (p *PostgresStore) ListFavorites(ctx context.Context) ([]store.Favorite, error) {
	rows, err := p.db.QueryContext(ctx, "SELECT key, product, added_at FROM favorites ORDER BY added_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := []store.Favorite{}
	for rows.Next() {
		var favorite store.Favorite
		var productBytes []byte
		var addedAt time.Time
		if err := rows.Scan(&favorite.Key, &productBytes, &addedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(productBytes, &favorite.Product); err != nil {
			return nil, fmt.Errorf("decode favorite %s: %w", favorite.Key, err)
		}
		favorite.AddedAt = formatTimestamp(addedAt)
		results = append(results, favorite)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (p *PostgresStore) AddFavorite(ctx context.Context, favorite store.Favorite) error {
	key := strings.TrimSpace(favorite.Key)
	if key == "" {
		key = store.FavoriteKey(favorite.Product)
	}
	encoded, err := json.Marshal(favorite.Product)
	if err != nil {
		return err
	}
	const query = `
		INSERT INTO favorites (key, product, added_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key)
		DO UPDATE SET product = EXCLUDED.product
	`
	_, err = p.db.ExecContext(ctx, query, key, encoded, parseTimestampOr(favorite.AddedAt, time.Now().UTC()))
	return err
}

func (p *PostgresStore) RemoveFavorite(ctx context.Context, key string) error {
	_, err := p.db.ExecContext(ctx, "DELETE FROM favorites WHERE key = $1", key)
	return err
}

func (p *PostgresStore) LookupEnrichments(ctx context.Context, keys []string) (map[string]string, error) {
	results := map[string]string{}
	if len(keys) == 0 {
		return results, nil
	}
	placeholders := make([]string, len(keys))
	args := make([]any, len(keys))
	for i, key := range keys {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = key
	}
	query := "SELECT key, output FROM enrichments WHERE key IN (" + strings.Join(placeholders, ", ") + ")"
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var key, output string
		if err := rows.Scan(&key, &output); err != nil {
			return nil, err
		}
		results[key] = output
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (p *PostgresStore) SaveEnrichment(ctx context.Context, enrichment store.Enrichment) error {
	const query = `
		INSERT INTO enrichments (key, output, resolved_url, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (key)
		DO UPDATE SET output = EXCLUDED.output, resolved_url = EXCLUDED.resolved_url, updated_at = EXCLUDED.updated_at
	`
	_, err := p.db.ExecContext(
		ctx,
		query,
		enrichment.Key,
		enrichment.Output,
		nullString(enrichment.ResolvedURL),
		parseTimestampOr(enrichment.UpdatedAt, time.Now().UTC()),
	)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanHistory(row rowScanner) (store.HistoryEntry, error) {
	var entry store.HistoryEntry
	var resultBytes []byte
	var createdAt time.Time
	var updatedAt time.Time
	if err := row.Scan(&entry.Topic, &resultBytes, &createdAt, &updatedAt); err != nil {
		return store.HistoryEntry{}, err
	}
	var result research.Result
	if err := json.Unmarshal(resultBytes, &result); err != nil {
		return store.HistoryEntry{}, fmt.Errorf("decode history %s: %w", entry.Topic, err)
	}
	if result.Products == nil {
		result.Products = []product.Product{}
	}
	entry.Result = result
	entry.CreatedAt = formatTimestamp(createdAt)
	entry.UpdatedAt = formatTimestamp(updatedAt)
	return entry, nil
}

func parseTimestampOr(value string, fallback time.Time) time.Time {
	parsed, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return parsed.UTC()
}

func formatTimestamp(value time.Time) string {
	return value.UTC().Format(time.RFC3339Nano)
}

func nullString(value string) any {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return value
}
