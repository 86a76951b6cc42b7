package metadata

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	mu      sync.Mutex
	queries []string
	pages   []int
	delay   map[int]time.Duration
	err     error
	total   int
}

func (r *fakeRunner) Search(ctx context.Context, query string, page int) (SearchResultPage, error) {
	r.mu.Lock()
	r.queries = append(r.queries, query)
	r.pages = append(r.pages, page)
	d := r.delay[page]
	err := r.err
	total := r.total
	r.mu.Unlock()

	if d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return SearchResultPage{}, ctx.Err()
		}
	}
	if err != nil {
		return SearchResultPage{}, err
	}
	return SearchResultPage{
		Query:       query,
		Items:       []MediaItem{{ID: page, Title: query}},
		CurrentPage: page,
		TotalPages:  total,
		Pages:       PageWindow(page, total),
	}, nil
}

func (r *fakeRunner) calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.queries...)
}

type stateRecorder struct {
	mu     sync.Mutex
	states []SessionState
}

func (r *stateRecorder) record(s SessionState) {
	r.mu.Lock()
	r.states = append(r.states, s)
	r.mu.Unlock()
}

func (r *stateRecorder) statuses() []SessionStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]SessionStatus, len(r.states))
	for i, s := range r.states {
		out[i] = s.Status
	}
	return out
}

func newTestSession(t *testing.T, runner SearchRunner, rec *stateRecorder) *SearchSession {
	t.Helper()
	s := NewSearchSession(context.Background(), runner, 30*time.Millisecond, rec.record, zerolog.Nop())
	t.Cleanup(s.Close)
	return s
}

func waitForStatus(t *testing.T, s *SearchSession, want SessionStatus) SessionState {
	t.Helper()
	require.Eventually(t, func() bool { return s.State().Status == want }, 2*time.Second, 5*time.Millisecond)
	return s.State()
}

func TestSearchSession_DebounceCoalescesKeystrokes(t *testing.T) {
	runner := &fakeRunner{total: 3}
	rec := &stateRecorder{}
	s := newTestSession(t, runner, rec)

	s.Input("m")
	s.Input("ma")
	s.Input("mat")
	assert.Equal(t, SessionDebouncing, s.State().Status)

	state := waitForStatus(t, s, SessionReady)
	assert.Equal(t, []string{"mat"}, runner.calls())
	assert.Equal(t, "mat", state.Query)
	require.NotNil(t, state.Result)
	assert.Equal(t, 1, state.Result.CurrentPage)

	statuses := rec.statuses()
	assert.Equal(t, SessionLoading, statuses[len(statuses)-2])
	assert.Equal(t, SessionReady, statuses[len(statuses)-1])
}

func TestSearchSession_EmptyInputGoesIdle(t *testing.T) {
	runner := &fakeRunner{total: 1}
	s := newTestSession(t, runner, &stateRecorder{})

	s.Input("matrix")
	s.Input("   ")

	assert.Equal(t, SessionIdle, s.State().Status)
	time.Sleep(80 * time.Millisecond)
	assert.Empty(t, runner.calls())
	assert.Nil(t, s.State().Result)
}

func TestSearchSession_DiscardsStaleResponses(t *testing.T) {
	runner := &fakeRunner{total: 5, delay: map[int]time.Duration{2: 200 * time.Millisecond}}
	s := newTestSession(t, runner, &stateRecorder{})

	s.Input("dune")
	waitForStatus(t, s, SessionReady)

	require.True(t, s.SetPage(2))
	require.Equal(t, SessionLoading, s.State().Status)

	// Page 2 is still in flight; the state still carries page 1's result.
	require.True(t, s.SetPage(3))

	state := waitForStatus(t, s, SessionReady)
	assert.Equal(t, 3, state.Page)

	// Let the slow page 2 response arrive; it must not overwrite page 3.
	time.Sleep(300 * time.Millisecond)
	state = s.State()
	assert.Equal(t, 3, state.Page)
	assert.Equal(t, 3, state.Result.CurrentPage)
}

func TestSearchSession_NewInputSupersedesInFlightRequest(t *testing.T) {
	runner := &fakeRunner{total: 2, delay: map[int]time.Duration{1: 100 * time.Millisecond}}
	s := newTestSession(t, runner, &stateRecorder{})

	s.Input("alien")
	require.Eventually(t, func() bool { return len(runner.calls()) == 1 }, time.Second, 5*time.Millisecond)

	s.Input("aliens")
	state := waitForStatus(t, s, SessionReady)
	assert.Equal(t, "aliens", state.Query)
	assert.Equal(t, "aliens", state.Result.Query)
}

func TestSearchSession_SetPageGuards(t *testing.T) {
	runner := &fakeRunner{total: 4}
	s := newTestSession(t, runner, &stateRecorder{})

	assert.False(t, s.SetPage(2), "no results yet")

	s.Input("heat")
	waitForStatus(t, s, SessionReady)

	assert.False(t, s.SetPage(0))
	assert.False(t, s.SetPage(5))
	assert.False(t, s.SetPage(1), "already on page 1")
	assert.True(t, s.SetPage(4))

	state := waitForStatus(t, s, SessionReady)
	assert.Equal(t, 4, state.Page)
}

func TestSearchSession_SetPageWhileNewQueryPending(t *testing.T) {
	runner := &fakeRunner{total: 3}
	s := newTestSession(t, runner, &stateRecorder{})

	s.Input("matrix")
	waitForStatus(t, s, SessionReady)

	s.Input("inception")
	assert.False(t, s.SetPage(2), "paging old results must not cancel the typed query")

	state := waitForStatus(t, s, SessionReady)
	assert.Equal(t, []string{"matrix", "inception"}, runner.calls())
	assert.Equal(t, "inception", state.Query)
	require.NotNil(t, state.Result)
	assert.Equal(t, "inception", state.Result.Query)
	assert.Equal(t, 1, state.Page)

	assert.True(t, s.SetPage(2))
	state = waitForStatus(t, s, SessionReady)
	assert.Equal(t, 2, state.Page)
	assert.Equal(t, []string{"matrix", "inception", "inception"}, runner.calls())
}

func TestSearchSession_FailureSetsMessage(t *testing.T) {
	runner := &fakeRunner{err: errors.New("upstream down")}
	s := newTestSession(t, runner, &stateRecorder{})

	s.Input("x")
	state := waitForStatus(t, s, SessionFailed)
	assert.Equal(t, searchFailedMessage, state.Error)
	assert.Nil(t, state.Result)
}

func TestSearchSession_CloseStopsWork(t *testing.T) {
	runner := &fakeRunner{total: 1}
	rec := &stateRecorder{}
	s := newTestSession(t, runner, rec)

	s.Input("x")
	s.Close()
	s.Close()

	time.Sleep(80 * time.Millisecond)
	assert.Empty(t, runner.calls())

	s.Input("y")
	assert.Equal(t, SessionDebouncing, s.State().Status)
	assert.Len(t, rec.statuses(), 1)
}
