package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Keyring-Network/prodscout/internal/config"
	"github.com/Keyring-Network/prodscout/internal/enrichment"
	"github.com/Keyring-Network/prodscout/internal/product"
	"github.com/Keyring-Network/prodscout/internal/research"
)

type mockResearcher struct {
	mock.Mock
}

func (m *mockResearcher) Run(ctx context.Context, req research.Request) (research.Result, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(research.Result), args.Error(1)
}

type mockEnricher struct {
	mock.Mock
}

func (m *mockEnricher) Fetch(ctx context.Context, website string) (enrichment.Result, error) {
	args := m.Called(ctx, website)
	return args.Get(0).(enrichment.Result), args.Error(1)
}

func stubCLI(t *testing.T, r researcher, e enricher) {
	t.Helper()
	origLoad, origLogger, origResearcher, origEnricher := loadConfig, newLogger, newResearcher, newEnricher
	origNoColor := color.NoColor
	t.Cleanup(func() {
		loadConfig, newLogger, newResearcher, newEnricher = origLoad, origLogger, origResearcher, origEnricher
		color.NoColor = origNoColor
	})
	color.NoColor = true
	loadConfig = func() (config.Config, error) { return config.Config{}, nil }
	newLogger = func(string, string, string) (*zap.Logger, error) { return zap.NewNop(), nil }
	newResearcher = func(config.Config, *zap.Logger) (researcher, error) { return r, nil }
	newEnricher = func(config.Config, *zap.Logger) enricher { return e }
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCmd()
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func cliResult() research.Result {
	return research.Result{
		Keywords: []string{"crm", "sales"},
		Products: []product.Product{
			{Name: "Low Votes", Tagline: "quiet", Website: "https://low.example", VotesCount: 3},
			{Name: "High Votes", Tagline: "loud", URL: "https://www.producthunt.com/posts/high", VotesCount: 900},
		},
		KeywordStatus: []research.KeywordStatus{
			{Keyword: "crm", Weight: 10, Count: 2},
			{Keyword: "sales", Weight: 10, Failed: true, Error: "HTTP 503"},
		},
	}
}

func TestResearchCommand_Table(t *testing.T) {
	r := &mockResearcher{}
	r.On("Run", mock.Anything, research.Request{Topic: "crm for freelancers"}).Return(cliResult(), nil).Once()
	stubCLI(t, r, &mockEnricher{})

	stdout, stderr, err := execute(t, "research", "crm", "for", "freelancers")
	require.NoError(t, err)

	high := strings.Index(stdout, "High Votes")
	low := strings.Index(stdout, "Low Votes")
	require.True(t, high >= 0 && low >= 0 && high < low, stdout)
	require.Contains(t, stdout, "https://www.producthunt.com/posts/high")
	require.Contains(t, stdout, "2 products from keywords: crm, sales")
	require.Contains(t, stderr, `search for "sales" failed: HTTP 503`)
	r.AssertExpectations(t)
}

func TestResearchCommand_KeywordsFlagSkipsGeneration(t *testing.T) {
	r := &mockResearcher{}
	r.On("Run", mock.Anything, research.Request{
		Topic:            "crm",
		AdjustedKeywords: product.KeywordSet{{Text: "crm", Weight: 20}, {Text: "invoicing"}},
		SkipGeneration:   true,
	}).Return(research.Result{Keywords: []string{"crm", "invoicing"}, Products: []product.Product{}}, nil).Once()
	stubCLI(t, r, &mockEnricher{})

	_, _, err := execute(t, "research", "crm", "--keywords", "crm=20, invoicing")
	require.NoError(t, err)
	r.AssertExpectations(t)
}

func TestResearchCommand_InvalidKeywordsFlag(t *testing.T) {
	r := &mockResearcher{}
	stubCLI(t, r, &mockEnricher{})

	_, _, err := execute(t, "research", "crm", "--keywords", "crm=lots")
	require.ErrorContains(t, err, "invalid weight")
	r.AssertNotCalled(t, "Run", mock.Anything, mock.Anything)
}

func TestResearchCommand_JSON(t *testing.T) {
	r := &mockResearcher{}
	r.On("Run", mock.Anything, mock.Anything).Return(cliResult(), nil).Once()
	stubCLI(t, r, &mockEnricher{})

	stdout, _, err := execute(t, "research", "crm", "--json")
	require.NoError(t, err)

	var decoded research.Result
	require.NoError(t, json.Unmarshal([]byte(stdout), &decoded))
	require.Len(t, decoded.Products, 2)
	require.Equal(t, []string{"crm", "sales"}, decoded.Keywords)
}

func TestResearchCommand_Error(t *testing.T) {
	r := &mockResearcher{}
	r.On("Run", mock.Anything, mock.Anything).Return(research.Result{}, research.InvalidKeywordSetError{}).Once()
	stubCLI(t, r, &mockEnricher{})

	_, _, err := execute(t, "research", "crm", "--keywords", " , ")
	require.ErrorAs(t, err, &research.InvalidKeywordSetError{})
}

func TestResearchCommand_RequiresTopic(t *testing.T) {
	stubCLI(t, &mockResearcher{}, &mockEnricher{})

	_, _, err := execute(t, "research")
	require.Error(t, err)
}

func TestEnrichCommand(t *testing.T) {
	e := &mockEnricher{}
	e.On("Fetch", mock.Anything, "https://acme.io").
		Return(enrichment.Result{Output: "Acme builds anvils.", URL: "https://www.acme.io/"}, nil).Once()
	stubCLI(t, &mockResearcher{}, e)

	stdout, _, err := execute(t, "enrich", "https://acme.io")
	require.NoError(t, err)
	require.Contains(t, stdout, "https://www.acme.io/")
	require.Contains(t, stdout, "Acme builds anvils.")
	e.AssertExpectations(t)
}

func TestEnrichCommand_Error(t *testing.T) {
	e := &mockEnricher{}
	e.On("Fetch", mock.Anything, "https://spa.example").
		Return(enrichment.Result{}, &enrichment.EnrichmentFetchError{URL: "https://spa.example", Message: enrichment.UnscrapableMessage}).Once()
	stubCLI(t, &mockResearcher{}, e)

	_, _, err := execute(t, "enrich", "https://spa.example")
	require.Error(t, err)
	require.Equal(t, enrichment.UnscrapableMessage, userMessage(err))
}

func TestUserMessage(t *testing.T) {
	require.Equal(t, "site may be unavailable: https://down.example",
		userMessage(&enrichment.SiteUnavailableError{URL: "https://down.example", StatusCode: 404}))
	require.Equal(t, "boom", userMessage(errors.New("boom")))
}

func TestConfigLoadFailure(t *testing.T) {
	stubCLI(t, &mockResearcher{}, &mockEnricher{})
	loadConfig = func() (config.Config, error) { return config.Config{}, errors.New("bad config") }

	_, _, err := execute(t, "enrich", "https://acme.io")
	require.ErrorContains(t, err, "bad config")
}
