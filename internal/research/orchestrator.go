package research

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Keyring-Network/prodscout/internal/metrics"
	"github.com/Keyring-Network/prodscout/internal/product"
)

const defaultConcurrency = 4

type Config struct {
	// DefaultWeight is assigned to generated keywords.
	DefaultWeight int
	// Concurrency bounds the number of in-flight directory searches.
	Concurrency int
}

type Orchestrator struct {
	generator KeywordGenerator
	source    ProductSource
	cfg       Config
	logger    *zap.Logger
}

func NewOrchestrator(generator KeywordGenerator, source ProductSource, cfg Config, logger *zap.Logger) *Orchestrator {
	if cfg.DefaultWeight < 1 {
		cfg.DefaultWeight = product.DefaultWeight
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = defaultConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{generator: generator, source: source, cfg: cfg, logger: logger}
}

// Run resolves keywords, searches the directory once per keyword, merges the
// results and overlays existing enrichment. Fatal errors return no result.
func (o *Orchestrator) Run(ctx context.Context, req Request) (Result, error) {
	started := time.Now()
	logger := o.logger.With(zap.String("topic", req.Topic), zap.Bool("skip_generation", req.SkipGeneration))

	keywords, err := o.resolveKeywords(ctx, req)
	if err != nil {
		logger.Warn("keyword resolution failed", zap.Error(err))
		metrics.ResearchRunsTotal.WithLabelValues(outcomeLabel(err)).Inc()
		return Result{}, err
	}
	logger.Info("keywords resolved", zap.Strings("keywords", keywords.Texts()))
	if req.Observer != nil {
		req.Observer.KeywordsResolved(keywords)
	}

	batches, statuses, err := o.search(ctx, keywords, req.Observer)
	if err != nil {
		logger.Error("directory search aborted", zap.Error(err))
		metrics.ResearchRunsTotal.WithLabelValues(outcomeLabel(err)).Inc()
		return Result{}, err
	}

	deduped := product.DeduplicateBatches(batches)
	products := deduped.Products
	if req.ExistingEnrichment != nil {
		products = product.MergeEnrichment(products, req.ExistingEnrichment)
	}
	if products == nil {
		products = []product.Product{}
	}

	logger.Info("research completed",
		zap.Int("products", len(products)),
		zap.Int("duplicates_removed", deduped.Removed),
		zap.Duration("elapsed", time.Since(started)),
	)
	metrics.ResearchRunsTotal.WithLabelValues("success").Inc()
	metrics.ResearchProducts.Observe(float64(len(products)))

	return Result{
		Keywords:      keywords.Texts(),
		Weights:       keywords,
		Products:      products,
		Content:       "",
		KeywordStatus: statuses,
	}, nil
}

func (o *Orchestrator) resolveKeywords(ctx context.Context, req Request) (product.KeywordSet, error) {
	if req.SkipGeneration {
		keywords := req.AdjustedKeywords.Normalize(o.cfg.DefaultWeight)
		if len(keywords) == 0 {
			return nil, InvalidKeywordSetError{}
		}
		return keywords, nil
	}

	generated, err := o.generator.Generate(ctx, req.Topic)
	if err != nil {
		var genErr *GenerationError
		if errors.As(err, &genErr) {
			return nil, err
		}
		return nil, &GenerationError{Topic: req.Topic, Err: err}
	}
	keywords := make(product.KeywordSet, 0, len(generated))
	for _, text := range generated {
		keywords = append(keywords, product.Keyword{Text: text, Weight: o.cfg.DefaultWeight})
	}
	keywords = keywords.Normalize(o.cfg.DefaultWeight)
	if len(keywords) == 0 {
		return nil, &GenerationError{Topic: req.Topic, Reason: "no keywords returned"}
	}
	return keywords, nil
}

// search runs one directory query per keyword with bounded concurrency. Each
// keyword owns one slot in the output slices, so batches stay in keyword
// order however the calls complete.
func (o *Orchestrator) search(ctx context.Context, keywords product.KeywordSet, observer Observer) ([]product.Batch, []KeywordStatus, error) {
	batches := make([]product.Batch, len(keywords))
	statuses := make([]KeywordStatus, len(keywords))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.Concurrency)

	for i, kw := range keywords {
		g.Go(func() error {
			found, err := o.source.Search(gctx, kw.Text, kw.Weight)
			status := KeywordStatus{Keyword: kw.Text, Weight: kw.Weight}
			if err != nil {
				var srcErr *SourceError
				if errors.As(err, &srcErr) {
					return err
				}
				o.logger.Warn("keyword search failed",
					zap.String("keyword", kw.Text),
					zap.Error(err),
				)
				status.Failed = true
				status.Error = err.Error()
				found = nil
			}
			status.Count = len(found)
			batches[i] = product.Batch{Keyword: kw.Text, Products: found}
			statuses[i] = status
			metrics.RecordKeywordSearch(status.Count, status.Failed)
			if observer != nil {
				observer.KeywordSearched(status)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	return batches, statuses, nil
}

func outcomeLabel(err error) string {
	var invalid InvalidKeywordSetError
	var genErr *GenerationError
	var srcErr *SourceError
	switch {
	case errors.As(err, &invalid):
		return "invalid_keywords"
	case errors.As(err, &genErr):
		return "generation_error"
	case errors.As(err, &srcErr):
		return "source_error"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "error"
	}
}
