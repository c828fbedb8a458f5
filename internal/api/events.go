package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Keyring-Network/prodscout/internal/events"
)

const heartbeatInterval = 15 * time.Second

// streamEvents sends a run's progress as server-sent events. Retained events
// are replayed first; the stream ends after a terminal event.
func (s *Server) streamEvents(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runId")
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	ctx := r.Context()
	afterSeq := parseAfterSeq(runID, r)
	replay, eventsChan := s.broker.Subscribe(ctx, runID)
	for _, event := range replay {
		if event.Seq <= afterSeq {
			continue
		}
		sendSSE(w, event)
		afterSeq = event.Seq
		if events.IsTerminal(event.Type) {
			flusher.Flush()
			return
		}
	}
	flusher.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case event, ok := <-eventsChan:
			if !ok {
				return
			}
			if event.Seq <= afterSeq {
				continue
			}
			sendSSE(w, event)
			flusher.Flush()
			if events.IsTerminal(event.Type) {
				return
			}
		case <-heartbeat.C:
			fmt.Fprint(w, ": keep-alive\n\n")
			flusher.Flush()
		case <-ctx.Done():
			return
		}
	}
}

func sendSSE(w http.ResponseWriter, event events.RunEvent) {
	payload, _ := json.Marshal(event)
	fmt.Fprintf(w, "id: %s:%d\n", event.RunID, event.Seq)
	fmt.Fprintf(w, "event: %s\n", event.Type)
	fmt.Fprintf(w, "data: %s\n\n", payload)
}

func parseAfterSeq(runID string, r *http.Request) int64 {
	afterParam := strings.TrimSpace(r.URL.Query().Get("after_seq"))
	if afterParam != "" {
		if parsed, err := strconv.ParseInt(afterParam, 10, 64); err == nil {
			return parsed
		}
	}
	lastID := strings.TrimSpace(r.Header.Get("Last-Event-ID"))
	if lastID == "" {
		return 0
	}
	prefix, seqRaw, found := strings.Cut(lastID, ":")
	if !found || prefix != runID {
		return 0
	}
	parsed, err := strconv.ParseInt(seqRaw, 10, 64)
	if err != nil {
		return 0
	}
	return parsed
}
