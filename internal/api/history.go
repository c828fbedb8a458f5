package api

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Keyring-Network/prodscout/internal/product"
	"github.com/Keyring-Network/prodscout/internal/research"
	"github.com/Keyring-Network/prodscout/internal/store"
)

type historySummary struct {
	Topic     string   `json:"topic"`
	Keywords  []string `json:"keywords"`
	Products  int      `json:"products"`
	CreatedAt string   `json:"createdAt"`
	UpdatedAt string   `json:"updatedAt"`
}

type historyResponse struct {
	Topic     string `json:"topic"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
	research.Result
}

type favoriteResponse struct {
	Key     string          `json:"key"`
	Product product.Product `json:"product"`
	AddedAt string          `json:"addedAt"`
}

type addFavoriteRequest struct {
	Product product.Product `json:"product"`
}

func (s *Server) listHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := s.store.ListHistory(r.Context())
	if err != nil {
		writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	out := make([]historySummary, 0, len(entries))
	for _, entry := range entries {
		keywords := entry.Result.Keywords
		if keywords == nil {
			keywords = []string{}
		}
		out = append(out, historySummary{
			Topic:     entry.Topic,
			Keywords:  keywords,
			Products:  len(entry.Result.Products),
			CreatedAt: entry.CreatedAt,
			UpdatedAt: entry.UpdatedAt,
		})
	}
	writeJSON(w, out)
}

func (s *Server) getHistory(w http.ResponseWriter, r *http.Request) {
	topic := topicParam(r)
	if topic == "" {
		writeError(w, "topic is required", http.StatusBadRequest)
		return
	}
	entry, err := s.store.GetHistory(r.Context(), topic)
	if err != nil {
		writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if entry == nil {
		writeError(w, "history not found", http.StatusNotFound)
		return
	}
	result := s.overlayEnrichment(r.Context(), entry.Result, nil)
	writeJSON(w, historyResponse{
		Topic:     entry.Topic,
		CreatedAt: entry.CreatedAt,
		UpdatedAt: entry.UpdatedAt,
		Result:    result,
	})
}

func (s *Server) deleteHistory(w http.ResponseWriter, r *http.Request) {
	topic := topicParam(r)
	if topic == "" {
		writeError(w, "topic is required", http.StatusBadRequest)
		return
	}
	if err := s.store.DeleteHistory(r.Context(), topic); err != nil {
		writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listFavorites(w http.ResponseWriter, r *http.Request) {
	favorites, err := s.store.ListFavorites(r.Context())
	if err != nil {
		writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	out := make([]favoriteResponse, 0, len(favorites))
	for _, favorite := range favorites {
		out = append(out, favoriteResponse(favorite))
	}
	writeJSON(w, out)
}

func (s *Server) addFavorite(w http.ResponseWriter, r *http.Request) {
	var req addFavoriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request", http.StatusBadRequest)
		return
	}
	key := store.FavoriteKey(req.Product)
	if key == "" {
		writeError(w, "product website or url is required", http.StatusBadRequest)
		return
	}
	favorite := store.Favorite{Key: key, Product: req.Product, AddedAt: nowString()}
	if err := s.store.AddFavorite(r.Context(), favorite); err != nil {
		writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSONStatus(w, favoriteResponse(favorite), http.StatusCreated)
}

func (s *Server) removeFavorite(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimSpace(r.URL.Query().Get("key"))
	if key == "" {
		writeError(w, "key is required", http.StatusBadRequest)
		return
	}
	if err := s.store.RemoveFavorite(r.Context(), key); err != nil {
		writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// topicParam returns the decoded {topic} path segment.
func topicParam(r *http.Request) string {
	raw := chi.URLParam(r, "topic")
	if decoded, err := url.PathUnescape(raw); err == nil {
		raw = decoded
	}
	return store.TopicKey(raw)
}

func nowString() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
