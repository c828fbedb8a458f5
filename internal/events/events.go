package events

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/Keyring-Network/prodscout/internal/product"
	"github.com/Keyring-Network/prodscout/internal/research"
)

const (
	TypeKeywordsResolved  = "keywords.resolved"
	TypeKeywordSearched   = "keyword.searched"
	TypeResearchCompleted = "research.completed"
	TypeResearchFailed    = "research.failed"
)

const (
	defaultRetainedRuns     = 256
	subscriberBuffer        = 16
	terminalDeliveryTimeout = 250 * time.Millisecond
)

type RunEvent struct {
	RunID   string         `json:"runId"`
	Seq     int64          `json:"seq"`
	Type    string         `json:"type"`
	Ts      string         `json:"ts"`
	Payload map[string]any `json:"payload"`
}

// Broker fans research progress out to subscribers. Events of the most recent
// runs are retained so a subscriber that connects late still sees the run
// from its first event.
type Broker struct {
	mu           sync.RWMutex
	subscribers  map[string]map[chan RunEvent]struct{}
	history      map[string][]RunEvent
	order        []string
	retainedRuns int
}

func NormalizeType(eventType string) string {
	return strings.TrimSpace(strings.ToLower(eventType))
}

func IsTerminal(eventType string) bool {
	switch NormalizeType(eventType) {
	case TypeResearchCompleted, TypeResearchFailed:
		return true
	default:
		return false
	}
}

func NewBroker() *Broker {
	return NewBrokerWithRetention(defaultRetainedRuns)
}

func NewBrokerWithRetention(retainedRuns int) *Broker {
	if retainedRuns < 1 {
		retainedRuns = defaultRetainedRuns
	}
	return &Broker{
		subscribers:  map[string]map[chan RunEvent]struct{}{},
		history:      map[string][]RunEvent{},
		retainedRuns: retainedRuns,
	}
}

// Subscribe returns the events already published for runID and a channel for
// the ones that follow. The channel is closed when ctx is done.
func (b *Broker) Subscribe(ctx context.Context, runID string) ([]RunEvent, <-chan RunEvent) {
	ch := make(chan RunEvent, subscriberBuffer)

	b.mu.Lock()
	replay := append([]RunEvent(nil), b.history[runID]...)
	if b.subscribers[runID] == nil {
		b.subscribers[runID] = map[chan RunEvent]struct{}{}
	}
	b.subscribers[runID][ch] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		if b.subscribers[runID] != nil {
			delete(b.subscribers[runID], ch)
			if len(b.subscribers[runID]) == 0 {
				delete(b.subscribers, runID)
			}
		}
		close(ch)
		b.mu.Unlock()
	}()

	return replay, ch
}

// Publish stamps the event with the next sequence number for its run and
// delivers it without blocking. Slow subscribers miss progress events;
// terminal events wait up to terminalDeliveryTimeout for buffer space.
func (b *Broker) Publish(runID string, eventType string, payload map[string]any) RunEvent {
	if payload == nil {
		payload = map[string]any{}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.history[runID]; !ok {
		b.order = append(b.order, runID)
		for len(b.order) > b.retainedRuns {
			delete(b.history, b.order[0])
			b.order = b.order[1:]
		}
	}
	event := RunEvent{
		RunID:   runID,
		Seq:     int64(len(b.history[runID]) + 1),
		Type:    NormalizeType(eventType),
		Ts:      time.Now().UTC().Format(time.RFC3339Nano),
		Payload: payload,
	}
	b.history[runID] = append(b.history[runID], event)

	// Delivery happens under the lock that guards close, so a subscriber
	// cancelled mid-publish is never sent to after its channel closes.
	terminal := IsTerminal(event.Type)
	for ch := range b.subscribers[runID] {
		if terminal {
			deliverTerminal(ch, event)
			continue
		}
		select {
		case ch <- event:
		default:
		}
	}
	return event
}

func deliverTerminal(ch chan RunEvent, event RunEvent) {
	timer := time.NewTimer(terminalDeliveryTimeout)
	defer timer.Stop()
	select {
	case ch <- event:
	case <-timer.C:
	}
}

// Known reports whether any event was published for runID and is still
// retained.
func (b *Broker) Known(runID string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.history[runID]
	return ok
}

type Publisher interface {
	Publish(runID string, eventType string, payload map[string]any) RunEvent
}

// RunObserver publishes orchestrator progress for one run.
type RunObserver struct {
	broker Publisher
	runID  string
}

var _ research.Observer = (*RunObserver)(nil)

func NewRunObserver(publisher Publisher, runID string) *RunObserver {
	return &RunObserver{broker: publisher, runID: runID}
}

func (b *Broker) Observer(runID string) *RunObserver {
	return NewRunObserver(b, runID)
}

func (o *RunObserver) KeywordsResolved(keywords product.KeywordSet) {
	o.broker.Publish(o.runID, TypeKeywordsResolved, map[string]any{
		"keywords": keywords.Texts(),
		"weights":  keywords,
	})
}

func (o *RunObserver) KeywordSearched(status research.KeywordStatus) {
	payload := map[string]any{
		"keyword": status.Keyword,
		"weight":  status.Weight,
		"count":   status.Count,
		"failed":  status.Failed,
	}
	if status.Error != "" {
		payload["error"] = status.Error
	}
	o.broker.Publish(o.runID, TypeKeywordSearched, payload)
}

func (o *RunObserver) Completed(result research.Result, cached bool) {
	o.broker.Publish(o.runID, TypeResearchCompleted, map[string]any{
		"products": len(result.Products),
		"keywords": result.Keywords,
		"cached":   cached,
	})
}

func (o *RunObserver) Failed(err error) {
	o.broker.Publish(o.runID, TypeResearchFailed, map[string]any{"error": err.Error()})
}
