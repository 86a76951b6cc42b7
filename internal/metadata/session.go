package metadata

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// SessionStatus is the state of a live search session.
type SessionStatus string

const (
	SessionIdle       SessionStatus = "idle"
	SessionDebouncing SessionStatus = "debouncing"
	SessionLoading    SessionStatus = "loading"
	SessionReady      SessionStatus = "ready"
	SessionFailed     SessionStatus = "failed"
)

const searchFailedMessage = "Failed to load search results. Please try again later."

// SessionState is a snapshot published on every transition.
type SessionState struct {
	Status SessionStatus     `json:"status"`
	Query  string            `json:"query"`
	Page   int               `json:"page"`
	Result *SearchResultPage `json:"result,omitempty"`
	Error  string            `json:"error,omitempty"`
	Seq    uint64            `json:"seq"`
}

// SearchRunner executes one search request.
type SearchRunner interface {
	Search(ctx context.Context, query string, page int) (SearchResultPage, error)
}

// SearchSession debounces keystrokes into search requests and discards
// responses that arrive after a newer request was issued. onChange is called
// with the session lock held and must not call back into the session.
type SearchSession struct {
	mu       sync.Mutex
	runner   SearchRunner
	debounce time.Duration
	onChange func(SessionState)
	logger   zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	timer    *time.Timer
	timerGen uint64
	seq      uint64
	state    SessionState
	closed   bool
}

// NewSearchSession creates an idle session. Cancelling ctx or calling Close
// abandons any in-flight request.
func NewSearchSession(ctx context.Context, runner SearchRunner, debounce time.Duration, onChange func(SessionState), logger zerolog.Logger) *SearchSession {
	ctx, cancel := context.WithCancel(ctx)
	if onChange == nil {
		onChange = func(SessionState) {}
	}
	return &SearchSession{
		runner:   runner,
		debounce: debounce,
		onChange: onChange,
		logger:   logger.With().Str("component", "search_session").Logger(),
		ctx:      ctx,
		cancel:   cancel,
		state:    SessionState{Status: SessionIdle, Page: 1},
	}
}

// State returns the current snapshot.
func (s *SearchSession) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Input records a new query and restarts the debounce timer. Only the last
// query of a burst is searched.
func (s *SearchSession) Input(query string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	s.stopTimerLocked()
	// A new keystroke supersedes anything in flight.
	s.seq++
	s.state.Query = query
	s.state.Page = 1
	s.state.Seq = s.seq

	if strings.TrimSpace(query) == "" {
		s.state = SessionState{Status: SessionIdle, Page: 1, Seq: s.seq}
		s.onChange(s.state)
		return
	}

	s.state.Status = SessionDebouncing
	s.state.Error = ""
	s.onChange(s.state)

	s.timerGen++
	gen := s.timerGen
	s.timer = time.AfterFunc(s.debounce, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.closed || gen != s.timerGen {
			return
		}
		s.timer = nil
		s.issueLocked(query, 1)
	})
}

// SetPage requests another page of the current results. Out-of-range pages,
// the current page and paging while a newer query is pending are ignored. It reports whether a request was issued.
func (s *SearchSession) SetPage(page int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.state.Result == nil {
		return false
	}
	if page < 1 || page > s.state.Result.TotalPages || page == s.state.Result.CurrentPage {
		return false
	}
	// The results on screen belong to an older query while a newer one is
	// pending; paging them would drop what was typed.
	if s.state.Status == SessionDebouncing || strings.TrimSpace(s.state.Query) != s.state.Result.Query {
		return false
	}

	s.stopTimerLocked()
	s.issueLocked(s.state.Result.Query, page)
	return true
}

// Close stops the timer and abandons in-flight work.
func (s *SearchSession) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.stopTimerLocked()
	s.cancel()
}

func (s *SearchSession) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.timerGen++
}

func (s *SearchSession) issueLocked(query string, page int) {
	s.seq++
	seq := s.seq
	s.state.Status = SessionLoading
	s.state.Query = query
	s.state.Page = page
	s.state.Error = ""
	s.state.Seq = seq
	s.onChange(s.state)

	go func() {
		res, err := s.runner.Search(s.ctx, query, page)

		s.mu.Lock()
		defer s.mu.Unlock()
		if s.closed {
			return
		}
		if seq != s.seq {
			s.logger.Debug().Uint64("seq", seq).Uint64("latest", s.seq).Str("query", query).Msg("Discarding stale search response")
			return
		}

		if err != nil {
			s.state.Status = SessionFailed
			s.state.Error = searchFailedMessage
			s.state.Result = nil
		} else {
			s.state.Status = SessionReady
			s.state.Page = res.CurrentPage
			s.state.Result = &res
		}
		s.onChange(s.state)
	}()
}
