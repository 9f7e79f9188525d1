// Package scheduler runs the recurring round loop: wait a jittered interval,
// pick a car, start a session, announce it.
package scheduler

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"car-guess-bot/internal/catalog"
	"car-guess-bot/internal/game/guess"
)

// Announcer presents a freshly started round to the chat.
// Failures are the announcer's to describe; the scheduler only logs them.
type Announcer interface {
	AnnounceRound(ctx context.Context, session *guess.Session, item catalog.Item) error
}

// Scheduler triggers new guessing rounds on a jittered cadence.
type Scheduler struct {
	store     catalog.Store
	picker    *catalog.Picker
	registry  *guess.Registry
	announcer Announcer
	minWait   time.Duration
	maxWait   time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a Scheduler. minWait/maxWait bound the uniform jitter between
// rounds; rng is injectable for deterministic tests.
func New(store catalog.Store, picker *catalog.Picker, registry *guess.Registry, announcer Announcer, minWait, maxWait time.Duration, rng *rand.Rand) *Scheduler {
	return &Scheduler{
		store:     store,
		picker:    picker,
		registry:  registry,
		announcer: announcer,
		minWait:   minWait,
		maxWait:   maxWait,
		rng:       rng,
	}
}

// Run loops until ctx is cancelled. A failed round (missing catalog, no
// announce channel, send error) is logged and the loop moves on to the
// next cycle.
func (s *Scheduler) Run(ctx context.Context) {
	log.Info().
		Dur("min_wait", s.minWait).
		Dur("max_wait", s.maxWait).
		Msg("Round scheduler started")

	for {
		wait := s.nextWait()
		log.Debug().Dur("wait", wait).Msg("Waiting before next round")

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			log.Info().Msg("Round scheduler stopped")
			return
		case <-timer.C:
		}

		if _, _, err := s.StartRound(ctx); err != nil {
			log.Error().Err(err).Msg("Failed to start round")
		}
	}
}

// StartRound creates and announces one round. It is the only entry point
// that creates sessions: it loads the catalog, validates it, picks a car,
// swaps it into the registry and hands the pair to the announcer.
func (s *Scheduler) StartRound(ctx context.Context) (*guess.Session, catalog.Item, error) {
	items, err := s.store.Load(ctx)
	if err != nil {
		return nil, catalog.Item{}, err
	}
	if err := catalog.Validate(items); err != nil {
		return nil, catalog.Item{}, err
	}

	item, err := s.picker.Pick(items)
	if err != nil {
		return nil, catalog.Item{}, err
	}

	session := s.registry.StartNew(item)
	log.Info().
		Str("session_id", session.ID().String()).
		Str("car", item.Name).
		Msg("Round started")

	if err := s.announcer.AnnounceRound(ctx, session, item); err != nil {
		// The round still exists; entrants just never saw it. Expire it so
		// the registry state matches what the chat can see.
		session.Expire()
		return nil, catalog.Item{}, err
	}

	return session, item, nil
}

// nextWait draws a uniform duration in [minWait, maxWait].
func (s *Scheduler) nextWait() time.Duration {
	if s.maxWait <= s.minWait {
		return s.minWait
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.minWait + time.Duration(s.rng.Int63n(int64(s.maxWait-s.minWait)+1))
}
