package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/V4T54L/reqnotify/internal/domain"
)

// SSEMessage is one per-interval snapshot of webhook delivery rates.
type SSEMessage struct {
	Succeeded float64 `json:"succeeded_per_sec"`
	Failed    float64 `json:"failed_per_sec"`
	LastError string  `json:"last_error,omitempty"`
}

// OutcomeBroker streams live delivery rates to admin clients over SSE.
// It implements domain.OutcomeObserver.
type OutcomeBroker struct {
	logger   *slog.Logger
	interval time.Duration
	clients  map[chan []byte]struct{}
	mu       sync.RWMutex
	outcomes chan domain.Outcome
}

// NewOutcomeBroker creates a new OutcomeBroker and starts its processing loop.
func NewOutcomeBroker(ctx context.Context, logger *slog.Logger, interval time.Duration) *OutcomeBroker {
	if interval <= 0 {
		interval = time.Second
	}
	broker := &OutcomeBroker{
		logger:   logger.With("component", "outcome_broker"),
		interval: interval,
		clients:  make(map[chan []byte]struct{}),
		outcomes: make(chan domain.Outcome, 1024),
	}
	go broker.run(ctx)
	return broker
}

// ServeHTTP handles new client connections for the SSE stream.
func (b *OutcomeBroker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported!", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	messageChan := make(chan []byte, 8)
	b.addClient(messageChan)
	defer b.removeClient(messageChan)
	flusher.Flush()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messageChan:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

// ObserveOutcome records an outcome without blocking the delivery goroutine.
func (b *OutcomeBroker) ObserveOutcome(o domain.Outcome) {
	select {
	case b.outcomes <- o:
	default:
		// Rates are approximate; a full channel just loses samples.
	}
}

// Clients returns the number of connected SSE clients.
func (b *OutcomeBroker) Clients() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

func (b *OutcomeBroker) addClient(client chan []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.clients[client] = struct{}{}
	b.logger.Info("SSE client connected")
}

func (b *OutcomeBroker) removeClient(client chan []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.clients[client]; ok {
		delete(b.clients, client)
		close(client)
		b.logger.Info("SSE client disconnected")
	}
}

func (b *OutcomeBroker) broadcast(msg []byte) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for client := range b.clients {
		select {
		case client <- msg:
		default:
			// Slow client; skip this tick for it.
		}
	}
}

func (b *OutcomeBroker) run(ctx context.Context) {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	var succeeded, failed int
	var lastError string
	lastTimestamp := time.Now()

	for {
		select {
		case <-ctx.Done():
			return
		case o := <-b.outcomes:
			if o.Succeeded() {
				succeeded++
			} else {
				failed++
				lastError = o.Error
			}
		case <-ticker.C:
			now := time.Now()
			secs := now.Sub(lastTimestamp).Seconds()
			msg := SSEMessage{LastError: lastError}
			if secs > 0 {
				msg.Succeeded = float64(succeeded) / secs
				msg.Failed = float64(failed) / secs
			}

			jsonData, err := json.Marshal(msg)
			if err != nil {
				b.logger.Error("Failed to marshal SSE message", "error", err)
				continue
			}
			b.broadcast(jsonData)

			lastTimestamp = now
			succeeded, failed, lastError = 0, 0, ""
		}
	}
}
