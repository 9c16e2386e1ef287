package search

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hession/storesearch/internal/itunes"
)

const waitTimeout = 2 * time.Second

type reply struct {
	resp itunes.Response
	err  error
}

type pendingCall struct {
	ctx   context.Context
	req   itunes.Request
	reply chan reply
}

func (p *pendingCall) respond(status int, body string) {
	p.reply <- reply{resp: itunes.Response{StatusCode: status, Body: []byte(body)}}
}

func (p *pendingCall) fail(err error) {
	p.reply <- reply{err: err}
}

// fakeFetcher hands every request to the test and blocks until the test
// answers it. Cancellation is reported to the test but does not end the
// call, like a transport that completes anyway.
type fakeFetcher struct {
	calls  chan *pendingCall
	closed chan struct{}
}

func newFakeFetcher(t *testing.T) *fakeFetcher {
	f := &fakeFetcher{
		calls:  make(chan *pendingCall, 8),
		closed: make(chan struct{}),
	}
	t.Cleanup(func() { close(f.closed) })
	return f
}

func (f *fakeFetcher) Fetch(ctx context.Context, req itunes.Request) (itunes.Response, error) {
	call := &pendingCall{ctx: ctx, req: req, reply: make(chan reply, 1)}
	f.calls <- call
	select {
	case r := <-call.reply:
		return r.resp, r.err
	case <-f.closed:
		return itunes.Response{}, context.Canceled
	}
}

func (f *fakeFetcher) next(t *testing.T) *pendingCall {
	t.Helper()
	select {
	case call := <-f.calls:
		return call
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for a request")
		return nil
	}
}

type harness struct {
	fetcher *fakeFetcher
	coord   *Coordinator
	states  chan State
	alerts  atomic.Int32
}

func newHarness(t *testing.T) *harness {
	h := &harness{
		fetcher: newFakeFetcher(t),
		states:  make(chan State, 32),
	}
	h.coord = NewCoordinator(h.fetcher,
		WithObserver(func(s State) { h.states <- s }),
		WithErrorHandler(func(msg string) {
			if msg == ErrorMessage {
				h.alerts.Add(1)
			}
		}),
	)
	t.Cleanup(h.coord.Close)
	return h
}

func (h *harness) nextState(t *testing.T) State {
	t.Helper()
	select {
	case s := <-h.states:
		return s
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for a state transition")
		return State{}
	}
}

func (h *harness) expectQuiet(t *testing.T) {
	t.Helper()
	assert.Never(t, func() bool { return len(h.states) > 0 }, 150*time.Millisecond, 10*time.Millisecond,
		"unexpected state transition")
}

func envelope(names ...string) string {
	body := fmt.Sprintf(`{"resultCount":%d,"results":[`, len(names))
	for i, name := range names {
		if i > 0 {
			body += ","
		}
		body += fmt.Sprintf(`{"kind":"song","trackName":%q,"artistName":"Someone"}`, name)
	}
	return body + "]}"
}

func TestCoordinator_InitialStateIsIdle(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, Idle, h.coord.State().Kind)
	assert.Equal(t, 0, RowCount(h.coord.State()))
}

func TestCoordinator_ResultsAreSorted(t *testing.T) {
	h := newHarness(t)

	h.coord.Submit("jack johnson", itunes.All)

	loading := h.nextState(t)
	require.Equal(t, Loading, loading.Kind)
	assert.Equal(t, 1, RowCount(loading))
	assert.Equal(t, uint64(1), loading.Generation())

	call := h.fetcher.next(t)
	assert.Equal(t, "https://itunes.apple.com/search?term=jack%20johnson", call.req.URL)

	call.respond(http.StatusOK, `{
		"resultCount": 2,
		"results": [
			{"kind": "song", "trackName": "Jack Johnson Live", "artistName": "Jack Johnson"},
			{"collectionName": "Jack Johnson", "artistName": "Jack Johnson", "collectionPrice": 9.99}
		]
	}`)

	s := h.nextState(t)
	require.Equal(t, Results, s.Kind)
	require.Equal(t, 2, RowCount(s))
	rows := Rows(s)
	assert.Equal(t, "Jack Johnson", rows[0].Result.Name())
	assert.Equal(t, "Jack Johnson Live", rows[1].Result.Name())
	assert.Equal(t, s, h.coord.State())
	assert.Zero(t, h.alerts.Load())
}

func TestCoordinator_EmptyResponse(t *testing.T) {
	h := newHarness(t)

	h.coord.Submit("zzzznotfound", itunes.All)
	require.Equal(t, Loading, h.nextState(t).Kind)
	h.fetcher.next(t).respond(http.StatusOK, `{"resultCount":0,"results":[]}`)

	s := h.nextState(t)
	assert.Equal(t, Empty, s.Kind)
	assert.Equal(t, 1, RowCount(s))
	assert.Equal(t, RowNothingFound, Rows(s)[0].Kind)
}

func TestCoordinator_ServerErrorNotifiesOnce(t *testing.T) {
	h := newHarness(t)

	h.coord.Submit("x", itunes.Music)
	require.Equal(t, Loading, h.nextState(t).Kind)
	call := h.fetcher.next(t)
	assert.Equal(t, "https://itunes.apple.com/search?term=x&entity=musicTrack", call.req.URL)
	call.respond(http.StatusInternalServerError, "oops")

	s := h.nextState(t)
	require.Equal(t, NetworkError, s.Kind)
	var statusErr *itunes.StatusError
	require.ErrorAs(t, s.Err, &statusErr)
	assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
	assert.Equal(t, 0, RowCount(s))

	h.coord.Close()
	assert.Equal(t, int32(1), h.alerts.Load())
}

func TestCoordinator_FailuresCollapseToNetworkError(t *testing.T) {
	tests := []struct {
		name    string
		answer  func(*pendingCall)
		wantErr error
	}{
		{
			name:    "malformed body",
			answer:  func(c *pendingCall) { c.respond(http.StatusOK, `{"results": [`) },
			wantErr: itunes.ErrMalformed,
		},
		{
			name:    "missing envelope field",
			answer:  func(c *pendingCall) { c.respond(http.StatusOK, `{"results": []}`) },
			wantErr: itunes.ErrMalformed,
		},
		{
			name:    "transport error",
			answer:  func(c *pendingCall) { c.fail(errTransport) },
			wantErr: errTransport,
		},
		{
			name:    "timeout",
			answer:  func(c *pendingCall) { c.fail(context.DeadlineExceeded) },
			wantErr: context.DeadlineExceeded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)

			h.coord.Submit("term", itunes.All)
			require.Equal(t, Loading, h.nextState(t).Kind)
			tt.answer(h.fetcher.next(t))

			s := h.nextState(t)
			require.Equal(t, NetworkError, s.Kind)
			assert.ErrorIs(t, s.Err, tt.wantErr)

			h.coord.Close()
			assert.Equal(t, int32(1), h.alerts.Load())
		})
	}
}

var errTransport = errors.New("connection refused")

func TestCoordinator_BlankTextIsIgnored(t *testing.T) {
	for _, text := range []string{"", "   ", "\t\n"} {
		t.Run(fmt.Sprintf("%q", text), func(t *testing.T) {
			h := newHarness(t)

			for _, cat := range itunes.Categories {
				h.coord.Submit(text, cat)
			}
			h.coord.Close()

			assert.Equal(t, Idle, h.coord.State().Kind)
			assert.Empty(t, h.states)
			assert.Empty(t, h.fetcher.calls)
		})
	}
}

func TestCoordinator_BlankTextKeepsPreviousSearch(t *testing.T) {
	h := newHarness(t)

	h.coord.Submit("first", itunes.All)
	require.Equal(t, Loading, h.nextState(t).Kind)
	call := h.fetcher.next(t)

	h.coord.Submit("  ", itunes.All)
	call.respond(http.StatusOK, envelope("First"))

	s := h.nextState(t)
	require.Equal(t, Results, s.Kind)
	assert.Equal(t, uint64(1), s.Generation())
}

func TestCoordinator_StaleCompletionIsDropped(t *testing.T) {
	h := newHarness(t)

	h.coord.Submit("first", itunes.All)
	require.Equal(t, Loading, h.nextState(t).Kind)
	first := h.fetcher.next(t)

	h.coord.Submit("second", itunes.All)
	loading := h.nextState(t)
	require.Equal(t, Loading, loading.Kind)
	assert.Equal(t, uint64(2), loading.Generation())
	second := h.fetcher.next(t)

	// The superseded request was asked to stop.
	assert.ErrorIs(t, first.ctx.Err(), context.Canceled)

	second.respond(http.StatusOK, envelope("Second"))
	s := h.nextState(t)
	require.Equal(t, Results, s.Kind)
	assert.Equal(t, "Second", s.ResultSet.Results[0].Name())

	// The first request completes anyway, after the second.
	first.respond(http.StatusOK, envelope("First"))
	h.expectQuiet(t)
	assert.Equal(t, "Second", h.coord.State().ResultSet.Results[0].Name())
}

func TestCoordinator_StaleCompletionCannotOverwriteLoading(t *testing.T) {
	h := newHarness(t)

	h.coord.Submit("first", itunes.All)
	require.Equal(t, Loading, h.nextState(t).Kind)
	first := h.fetcher.next(t)

	h.coord.Submit("second", itunes.All)
	require.Equal(t, Loading, h.nextState(t).Kind)
	second := h.fetcher.next(t)

	first.respond(http.StatusInternalServerError, "")
	h.expectQuiet(t)
	assert.Equal(t, Loading, h.coord.State().Kind)
	assert.Equal(t, uint64(2), h.coord.State().Generation())

	second.respond(http.StatusOK, `{"resultCount":0,"results":[]}`)
	assert.Equal(t, Empty, h.nextState(t).Kind)
	h.coord.Close()
	assert.Zero(t, h.alerts.Load())
}

func TestCoordinator_CancelledCompletionNeverChangesState(t *testing.T) {
	t.Run("current request", func(t *testing.T) {
		h := newHarness(t)

		h.coord.Submit("first", itunes.All)
		require.Equal(t, Loading, h.nextState(t).Kind)
		h.fetcher.next(t).fail(fmt.Errorf("search request failed: %w", context.Canceled))

		h.expectQuiet(t)
		assert.Equal(t, Loading, h.coord.State().Kind)
		h.coord.Close()
		assert.Zero(t, h.alerts.Load())
	})

	t.Run("superseded request", func(t *testing.T) {
		h := newHarness(t)

		h.coord.Submit("first", itunes.All)
		require.Equal(t, Loading, h.nextState(t).Kind)
		first := h.fetcher.next(t)

		h.coord.Submit("second", itunes.Software)
		require.Equal(t, Loading, h.nextState(t).Kind)
		second := h.fetcher.next(t)

		second.respond(http.StatusOK, envelope("Second"))
		require.Equal(t, Results, h.nextState(t).Kind)

		first.fail(context.Canceled)
		h.expectQuiet(t)
		assert.Equal(t, Results, h.coord.State().Kind)
	})
}

func TestCoordinator_Resubmit(t *testing.T) {
	h := newHarness(t)

	// Nothing to repeat yet.
	h.coord.Resubmit(itunes.Music)

	h.coord.Submit("maps", itunes.All)
	require.Equal(t, Loading, h.nextState(t).Kind)
	h.fetcher.next(t).respond(http.StatusOK, envelope("Maps"))
	require.Equal(t, Results, h.nextState(t).Kind)

	h.coord.Resubmit(itunes.Software)
	s := h.nextState(t)
	require.Equal(t, Loading, s.Kind)
	assert.Equal(t, "maps", s.Submission.Text)
	assert.Equal(t, itunes.Software, s.Submission.Category)
	assert.Equal(t, uint64(2), s.Generation())

	call := h.fetcher.next(t)
	assert.Equal(t, "https://itunes.apple.com/search?term=maps&entity=software", call.req.URL)
}

func TestCoordinator_CloseCancelsInFlight(t *testing.T) {
	h := newHarness(t)

	h.coord.Submit("first", itunes.All)
	require.Equal(t, Loading, h.nextState(t).Kind)
	call := h.fetcher.next(t)

	h.coord.Close()
	assert.ErrorIs(t, call.ctx.Err(), context.Canceled)

	call.respond(http.StatusOK, envelope("First"))
	h.expectQuiet(t)
	assert.Equal(t, Loading, h.coord.State().Kind)

	// Submitting after Close is a no-op.
	h.coord.Submit("again", itunes.All)
	assert.Empty(t, h.fetcher.calls)
}

func TestCoordinator_WithHTTPClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "ebook", r.URL.Query().Get("entity"))
		assert.Equal(t, "StoreSearch/test", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"resultCount":2,"results":[
			{"kind":"ebook","trackName":"zebra tales","genres":["Fiction","Kids"]},
			{"kind":"ebook","trackName":"Apple Stories","genres":["Fiction"]}
		]}`)
	}))
	defer srv.Close()

	states := make(chan State, 8)
	client := itunes.NewClient(srv.URL, "StoreSearch/test", time.Second)
	coord := NewCoordinator(client, WithObserver(func(s State) { states <- s }))
	defer coord.Close()

	coord.Submit("stories", itunes.Ebooks)

	var s State
	require.Eventually(t, func() bool {
		select {
		case s = <-states:
			return s.Kind.Settled()
		default:
			return false
		}
	}, waitTimeout, 10*time.Millisecond)

	require.Equal(t, Results, s.Kind)
	assert.Equal(t, "Apple Stories", s.ResultSet.Results[0].Name())
	assert.Equal(t, "zebra tales", s.ResultSet.Results[1].Name())
	assert.Equal(t, "Fiction, Kids", s.ResultSet.Results[1].Genre())
}
