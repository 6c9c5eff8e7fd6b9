package store

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/noah-isme/smart-haryana-gateway/internal/models"
)

// ErrClosed is returned once the store has been closed.
var ErrClosed = errors.New("store closed")

// Store serialises every state change through one goroutine.
type Store struct {
	actions     chan Action
	reads       chan chan State
	subscribe   chan chan State
	unsubscribe chan chan State
	done        chan struct{}
	stopped     chan struct{}
	closeOnce   sync.Once
	final       State
	logger      *zap.Logger
}

// New starts a store seeded with initial.
func New(initial State, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{
		actions:     make(chan Action),
		reads:       make(chan chan State),
		subscribe:   make(chan chan State),
		unsubscribe: make(chan chan State),
		done:        make(chan struct{}),
		stopped:     make(chan struct{}),
		logger:      logger,
	}
	go s.run(initial)
	return s
}

func (s *Store) run(state State) {
	subscribers := make(map[chan State]struct{})
	defer func() {
		for ch := range subscribers {
			close(ch)
		}
		s.final = state
		close(s.stopped)
	}()

	for {
		select {
		case <-s.done:
			return
		case action := <-s.actions:
			next := Reduce(state, action)
			if next.Version == state.Version {
				continue
			}
			state = next
			for ch := range subscribers {
				publish(ch, state)
			}
		case reply := <-s.reads:
			reply <- state
		case ch := <-s.subscribe:
			subscribers[ch] = struct{}{}
			publish(ch, state)
		case ch := <-s.unsubscribe:
			if _, ok := subscribers[ch]; ok {
				delete(subscribers, ch)
				close(ch)
			}
		}
	}
}

// publish keeps only the newest state in a subscriber's buffer.
func publish(ch chan State, state State) {
	select {
	case ch <- state:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- state:
	default:
	}
}

// Dispatch hands action to the store goroutine.
func (s *Store) Dispatch(ctx context.Context, action Action) error {
	select {
	case <-s.done:
		return ErrClosed
	default:
	}
	select {
	case s.actions <- action:
		return nil
	case <-s.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// State returns the current snapshot, or the last one once closed.
func (s *Store) State() State {
	reply := make(chan State, 1)
	select {
	case s.reads <- reply:
		return <-reply
	case <-s.stopped:
		return s.final
	}
}

// Subscribe returns a channel receiving the current state and then every
// change. Slow readers only see the newest state. The channel closes when
// cancel is called or the store closes.
func (s *Store) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 1)
	select {
	case s.subscribe <- ch:
	case <-s.stopped:
		close(ch)
		return ch, func() {}
	}
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			select {
			case s.unsubscribe <- ch:
			case <-s.stopped:
			}
		})
	}
	return ch, cancel
}

// Fetch loads issues and records the outcome. When the store closes while
// load is running its result is dropped and ErrClosed is returned.
func (s *Store) Fetch(ctx context.Context, load func(context.Context) ([]models.Issue, error)) error {
	if err := s.Dispatch(ctx, FetchStarted{}); err != nil {
		return err
	}
	issues, err := load(ctx)
	if err != nil {
		if dispatchErr := s.Dispatch(ctx, FetchFailed{Err: err}); errors.Is(dispatchErr, ErrClosed) {
			s.logger.Debug("fetch failure discarded after close", zap.Error(err))
			return ErrClosed
		}
		return err
	}
	if dispatchErr := s.Dispatch(ctx, IssuesLoaded{Issues: issues}); dispatchErr != nil {
		if errors.Is(dispatchErr, ErrClosed) {
			s.logger.Debug("fetch result discarded after close", zap.Int("count", len(issues)))
		}
		return dispatchErr
	}
	return nil
}

// Close stops the store goroutine and waits for it to exit.
func (s *Store) Close() {
	s.closeOnce.Do(func() { close(s.done) })
	<-s.stopped
}
