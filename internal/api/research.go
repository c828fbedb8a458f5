package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Keyring-Network/prodscout/internal/events"
	"github.com/Keyring-Network/prodscout/internal/product"
	"github.com/Keyring-Network/prodscout/internal/research"
	"github.com/Keyring-Network/prodscout/internal/store"
)

const generationFailedMessage = "keyword generation failed, please retry"

type researchRequest struct {
	Topic              string             `json:"topic"`
	ExistingResearch   map[string]string  `json:"existingResearch"`
	ExistingEnrichment map[string]string  `json:"existingEnrichment"`
	AdjustedKeywords   product.KeywordSet `json:"adjustedKeywords"`
	SkipGeneration     bool               `json:"skipGeneration"`
	Refresh            bool               `json:"refresh"`
	RunID              string             `json:"runId"`
}

type researchResponse struct {
	RunID  string `json:"runId"`
	Cached bool   `json:"cached"`
	research.Result
}

func (s *Server) runResearch(w http.ResponseWriter, r *http.Request) {
	var req researchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request", http.StatusBadRequest)
		return
	}
	topic := strings.TrimSpace(req.Topic)
	if topic == "" {
		writeError(w, "topic is required", http.StatusBadRequest)
		return
	}
	runID := strings.TrimSpace(req.RunID)
	if runID == "" {
		runID = uuid.NewString()
	}
	ctx := r.Context()
	logger := s.logger.With(zap.String("run_id", runID), zap.String("topic", topic))
	observer := events.NewRunObserver(s.broker, runID)
	supplied := requestEnrichment(req)

	if !req.SkipGeneration && !req.Refresh {
		entry, err := s.store.GetHistory(ctx, store.TopicKey(topic))
		if err != nil {
			logger.Warn("history lookup failed", zap.Error(err))
		} else if entry != nil {
			result := s.overlayEnrichment(ctx, entry.Result, supplied)
			logger.Info("serving research from history")
			observer.Completed(result, true)
			writeJSON(w, researchResponse{RunID: runID, Cached: true, Result: result})
			return
		}
	}

	result, err := s.researcher.Run(ctx, research.Request{
		Topic:              topic,
		ExistingEnrichment: supplied,
		AdjustedKeywords:   req.AdjustedKeywords,
		SkipGeneration:     req.SkipGeneration,
		Observer:           observer,
	})
	if err != nil {
		observer.Failed(err)
		s.writeResearchError(w, logger, err)
		return
	}
	result = s.overlayEnrichment(ctx, result, supplied)

	now := nowString()
	if err := s.store.SaveHistory(ctx, store.HistoryEntry{
		Topic:     store.TopicKey(topic),
		Result:    result,
		CreatedAt: now,
		UpdatedAt: now,
	}); err != nil {
		logger.Warn("failed to save history", zap.Error(err))
	}

	observer.Completed(result, false)
	writeJSON(w, researchResponse{RunID: runID, Result: result})
}

// requestEnrichment combines the two request spellings of the enrichment map.
// existingEnrichment wins over existingResearch.
func requestEnrichment(req researchRequest) map[string]string {
	if len(req.ExistingResearch) == 0 && len(req.ExistingEnrichment) == 0 {
		return nil
	}
	out := make(map[string]string, len(req.ExistingResearch)+len(req.ExistingEnrichment))
	for key, value := range req.ExistingResearch {
		out[key] = value
	}
	for key, value := range req.ExistingEnrichment {
		out[key] = value
	}
	return out
}

// overlayEnrichment attaches cached annotations to the result's products. The
// supplied map takes precedence over the cache.
func (s *Server) overlayEnrichment(ctx context.Context, result research.Result, supplied map[string]string) research.Result {
	keys := make([]string, 0, len(result.Products))
	for _, p := range result.Products {
		if key := product.EnrichmentKey(p); key != "" {
			keys = append(keys, key)
		}
	}
	annotations := map[string]string{}
	if len(keys) > 0 {
		stored, err := s.store.LookupEnrichments(ctx, keys)
		if err != nil {
			s.logger.Warn("enrichment lookup failed", zap.Error(err))
		}
		for key, value := range stored {
			annotations[key] = value
		}
	}
	for key, value := range supplied {
		annotations[key] = value
	}
	if len(annotations) == 0 {
		return result
	}
	result.Products = product.MergeEnrichment(result.Products, annotations)
	return result
}

func (s *Server) writeResearchError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var invalid research.InvalidKeywordSetError
	var genErr *research.GenerationError
	var srcErr *research.SourceError
	switch {
	case errors.As(err, &invalid):
		writeError(w, invalid.Error(), http.StatusBadRequest)
	case errors.As(err, &genErr):
		logger.Warn("keyword generation failed", zap.Error(err))
		writeError(w, generationFailedMessage, http.StatusBadGateway)
	case errors.As(err, &srcErr):
		logger.Error("product directory rejected research", zap.Error(err))
		writeError(w, srcErr.Error(), http.StatusBadGateway)
	default:
		logger.Error("research failed", zap.Error(err))
		writeError(w, "research failed", http.StatusInternalServerError)
	}
}
