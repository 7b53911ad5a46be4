package pubsub

import (
	"context"
	"fmt"
	"sync"

	"sheetsync-core-pipedrive-layer/internal/ports"

	"github.com/rs/zerolog"
)

// ProgressChannel represents a subscription channel
type ProgressChannel struct {
	ID     string
	Filter *ProgressFilter
	Events chan ports.ProgressEvent
	Done   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
}

// ProgressFilter filters progress events
type ProgressFilter struct {
	RunID  string   // Filter by run id
	Stages []string // Filter by stages
}

// ProgressPubSub manages progress event subscriptions. The reconciler
// publishes; the sidebar's streaming endpoint subscribes.
type ProgressPubSub struct {
	mu       sync.RWMutex
	channels map[string]*ProgressChannel
	logger   zerolog.Logger
	nextID   int64
	idMu     sync.Mutex
}

// NewProgressPubSub creates a new progress pub/sub system
func NewProgressPubSub(logger zerolog.Logger) *ProgressPubSub {
	return &ProgressPubSub{
		channels: make(map[string]*ProgressChannel),
		logger:   logger,
	}
}

// Subscribe creates a new subscription channel
func (ps *ProgressPubSub) Subscribe(ctx context.Context, filter *ProgressFilter) *ProgressChannel {
	ps.idMu.Lock()
	id := ps.generateID()
	ps.idMu.Unlock()

	subCtx, cancel := context.WithCancel(ctx)

	channel := &ProgressChannel{
		ID:     id,
		Filter: filter,
		Events: make(chan ports.ProgressEvent, 32), // Buffered channel
		Done:   make(chan struct{}),
		ctx:    subCtx,
		cancel: cancel,
	}

	ps.mu.Lock()
	ps.channels[id] = channel
	ps.mu.Unlock()

	ps.logger.Info().
		Str("channelId", id).
		Interface("filter", filter).
		Msg("Progress subscription created")

	// Cleanup when context is cancelled
	go func() {
		<-subCtx.Done()
		ps.Unsubscribe(id)
	}()

	return channel
}

// Unsubscribe removes a subscription channel
func (ps *ProgressPubSub) Unsubscribe(channelID string) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	channel, exists := ps.channels[channelID]
	if !exists {
		return
	}

	close(channel.Events)
	close(channel.Done)
	channel.cancel()
	delete(ps.channels, channelID)

	ps.logger.Info().
		Str("channelId", channelID).
		Msg("Progress subscription removed")
}

// Publish broadcasts a progress event to all matching subscribers. It
// never blocks the reconciler: a full channel drops the event.
func (ps *ProgressPubSub) Publish(event ports.ProgressEvent) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	publishedCount := 0
	for _, channel := range ps.channels {
		if ps.matchesFilter(event, channel.Filter) {
			select {
			case channel.Events <- event:
				publishedCount++
			case <-channel.ctx.Done():
				// Channel is closed, skip
			default:
				// Channel buffer full, skip (non-blocking)
				ps.logger.Warn().
					Str("channelId", channel.ID).
					Msg("Channel buffer full, dropping event")
			}
		}
	}

	if publishedCount > 0 {
		ps.logger.Debug().
			Str("runId", event.RunID).
			Str("stage", event.Stage).
			Int("subscribers", publishedCount).
			Msg("Published progress event to subscribers")
	}
}

// matchesFilter checks if an event matches the subscription filter
func (ps *ProgressPubSub) matchesFilter(event ports.ProgressEvent, filter *ProgressFilter) bool {
	if filter == nil {
		return true // No filter, match all
	}

	if filter.RunID != "" && event.RunID != filter.RunID {
		return false
	}

	if len(filter.Stages) > 0 {
		stageMatch := false
		for _, stage := range filter.Stages {
			if event.Stage == stage {
				stageMatch = true
				break
			}
		}
		if !stageMatch {
			return false
		}
	}

	return true
}

// generateID generates a unique channel ID
func (ps *ProgressPubSub) generateID() string {
	ps.nextID++
	return fmt.Sprintf("channel-%d", ps.nextID)
}

// GetStats returns pub/sub statistics
func (ps *ProgressPubSub) GetStats() map[string]interface{} {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	return map[string]interface{}{
		"active_subscriptions": len(ps.channels),
	}
}
