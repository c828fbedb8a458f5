package api

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/mock"

	"github.com/Keyring-Network/prodscout/internal/enrichment"
	"github.com/Keyring-Network/prodscout/internal/events"
	"github.com/Keyring-Network/prodscout/internal/research"
	"github.com/Keyring-Network/prodscout/internal/store"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockStore) GetHistory(ctx context.Context, topic string) (*store.HistoryEntry, error) {
	args := m.Called(ctx, topic)
	if value := args.Get(0); value != nil {
		return value.(*store.HistoryEntry), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStore) ListHistory(ctx context.Context) ([]store.HistoryEntry, error) {
	args := m.Called(ctx)
	var result []store.HistoryEntry
	if value := args.Get(0); value != nil {
		result = value.([]store.HistoryEntry)
	}
	return result, args.Error(1)
}

func (m *MockStore) SaveHistory(ctx context.Context, entry store.HistoryEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockStore) DeleteHistory(ctx context.Context, topic string) error {
	args := m.Called(ctx, topic)
	return args.Error(0)
}

func (m *MockStore) ListFavorites(ctx context.Context) ([]store.Favorite, error) {
	args := m.Called(ctx)
	var result []store.Favorite
	if value := args.Get(0); value != nil {
		result = value.([]store.Favorite)
	}
	return result, args.Error(1)
}

func (m *MockStore) AddFavorite(ctx context.Context, favorite store.Favorite) error {
	args := m.Called(ctx, favorite)
	return args.Error(0)
}

func (m *MockStore) RemoveFavorite(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockStore) LookupEnrichments(ctx context.Context, keys []string) (map[string]string, error) {
	args := m.Called(ctx, keys)
	var result map[string]string
	if value := args.Get(0); value != nil {
		result = value.(map[string]string)
	}
	return result, args.Error(1)
}

func (m *MockStore) SaveEnrichment(ctx context.Context, enrichment store.Enrichment) error {
	args := m.Called(ctx, enrichment)
	return args.Error(0)
}

type MockResearcher struct {
	mock.Mock
}

func (m *MockResearcher) Run(ctx context.Context, req research.Request) (research.Result, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(research.Result), args.Error(1)
}

type MockEnricher struct {
	mock.Mock
}

func (m *MockEnricher) Fetch(ctx context.Context, website string) (enrichment.Result, error) {
	args := m.Called(ctx, website)
	return args.Get(0).(enrichment.Result), args.Error(1)
}

type MockResolver struct {
	mock.Mock
}

func (m *MockResolver) Resolve(ctx context.Context, website string) (string, error) {
	args := m.Called(ctx, website)
	return args.String(0), args.Error(1)
}

type testDeps struct {
	store      *MockStore
	researcher *MockResearcher
	enricher   *MockEnricher
	resolver   *MockResolver
	broker     *events.Broker
}

func newTestDeps() testDeps {
	return testDeps{
		store:      &MockStore{},
		researcher: &MockResearcher{},
		enricher:   &MockEnricher{},
		resolver:   &MockResolver{},
		broker:     events.NewBroker(),
	}
}

func (d testDeps) server() *Server {
	return NewServer(Dependencies{
		Store:      d.store,
		Researcher: d.researcher,
		Enricher:   d.enricher,
		Resolver:   d.resolver,
		Broker:     d.broker,
	})
}

func (d testDeps) assertExpectations(t *testing.T) {
	t.Helper()
	d.store.AssertExpectations(t)
	d.researcher.AssertExpectations(t)
	d.enricher.AssertExpectations(t)
	d.resolver.AssertExpectations(t)
}

func newTestServer(t *testing.T, deps testDeps) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(deps.server().Router())
	t.Cleanup(server.Close)
	return server
}
