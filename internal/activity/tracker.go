// Package activity records when members were last seen talking, debounced so
// a chatty member costs one write per window instead of one per message.
package activity

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"clan-tracker/internal/constants"
	"clan-tracker/internal/repository"
)

type entryKey struct {
	guildID   string
	discordID string
}

// Tracker debounces last-active writes. State is process-local and lossy on
// restart; the persisted timestamp is the source of truth.
type Tracker struct {
	members *repository.MemberRepository
	logger  zerolog.Logger

	mu       sync.Mutex
	lastSeen map[entryKey]time.Time

	stop chan struct{}
	done chan struct{}
}

func NewTracker(members *repository.MemberRepository, logger zerolog.Logger) *Tracker {
	return &Tracker{
		members:  members,
		logger:   logger,
		lastSeen: make(map[entryKey]time.Time),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Track records that a member was just active. The write goes through at most
// once per debounce window per member; within the window it is a no-op.
func (t *Tracker) Track(ctx context.Context, guildID, discordID string) error {
	now := time.Now()
	key := entryKey{guildID: guildID, discordID: discordID}

	t.mu.Lock()
	if seen, ok := t.lastSeen[key]; ok && now.Sub(seen) < constants.ActivityDebounce {
		t.mu.Unlock()
		return nil
	}
	t.lastSeen[key] = now
	t.mu.Unlock()

	if err := t.members.UpdateLastMessageSentAt(ctx, guildID, discordID, now); err != nil {
		// drop the entry so the next message retries the write
		t.mu.Lock()
		delete(t.lastSeen, key)
		t.mu.Unlock()
		return err
	}
	return nil
}

// Start launches the background sweep that drops expired debounce entries.
func (t *Tracker) Start() {
	go t.run()
}

// Stop ends the sweep loop and waits for it to exit.
func (t *Tracker) Stop() {
	close(t.stop)
	<-t.done
}

func (t *Tracker) run() {
	defer close(t.done)

	ticker := time.NewTicker(constants.ActivitySweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			t.sweep(time.Now())
		case <-t.stop:
			return
		}
	}
}

func (t *Tracker) sweep(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	swept := 0
	for key, seen := range t.lastSeen {
		if now.Sub(seen) >= constants.ActivityEntryLifetime {
			delete(t.lastSeen, key)
			swept++
		}
	}
	if swept > 0 {
		t.logger.Debug().Int("swept", swept).Int("remaining", len(t.lastSeen)).Msg("activity entries swept")
	}
}
