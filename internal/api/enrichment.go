package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/Keyring-Network/prodscout/internal/enrichment"
	"github.com/Keyring-Network/prodscout/internal/store"
)

type deepResearchRequest struct {
	URL     string `json:"url"`
	Website string `json:"website"`
}

type deepResearchResponse struct {
	Output string `json:"output"`
	URL    string `json:"url"`
}

func (s *Server) deepResearch(w http.ResponseWriter, r *http.Request) {
	var req deepResearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request", http.StatusBadRequest)
		return
	}
	website := strings.TrimSpace(req.URL)
	if website == "" {
		website = strings.TrimSpace(req.Website)
	}
	if website == "" {
		writeError(w, "url is required", http.StatusBadRequest)
		return
	}
	logger := s.logger.With(zap.String("website", website))

	result, err := s.enricher.Fetch(r.Context(), website)
	if err != nil {
		var unavailable *enrichment.SiteUnavailableError
		var fetchErr *enrichment.EnrichmentFetchError
		switch {
		case errors.As(err, &unavailable):
			writeError(w, enrichment.SiteUnavailableMessage, http.StatusNotFound)
		case errors.As(err, &fetchErr):
			writeError(w, fetchErr.Message, http.StatusBadGateway)
		case errors.Is(err, enrichment.ErrNotConfigured):
			writeError(w, err.Error(), http.StatusServiceUnavailable)
		default:
			logger.Error("deep research failed", zap.Error(err))
			writeError(w, "deep research failed", http.StatusInternalServerError)
		}
		return
	}

	if err := s.store.SaveEnrichment(r.Context(), store.Enrichment{
		Key:         website,
		Output:      result.Output,
		ResolvedURL: result.URL,
		UpdatedAt:   nowString(),
	}); err != nil {
		logger.Warn("failed to cache enrichment", zap.Error(err))
	}
	writeJSON(w, deepResearchResponse{Output: result.Output, URL: result.URL})
}

func (s *Server) resolveURL(w http.ResponseWriter, r *http.Request) {
	website := strings.TrimSpace(r.URL.Query().Get("url"))
	if website == "" {
		writeError(w, "url is required", http.StatusBadRequest)
		return
	}
	resolved, err := s.resolver.Resolve(r.Context(), website)
	if err != nil {
		s.logger.Info("website resolution failed", zap.String("website", website), zap.Error(err))
		writeError(w, enrichment.SiteUnavailableMessage, http.StatusNotFound)
		return
	}
	writeJSON(w, map[string]string{"url": resolved})
}
