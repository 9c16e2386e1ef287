package search

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"golang.org/x/text/language"

	"github.com/hession/storesearch/internal/itunes"
	"github.com/hession/storesearch/internal/logger"
)

// Fetcher performs the network part of a search. *itunes.Client
// implements it.
type Fetcher interface {
	Fetch(ctx context.Context, req itunes.Request) (itunes.Response, error)
}

// Observer receives every state transition, in order.
type Observer func(State)

// ErrorHandler receives the user-facing message once per failed search.
type ErrorHandler func(message string)

// Coordinator owns the search lifecycle: at most one request in flight,
// superseded requests cancelled and their completions discarded.
//
// All state lives on a single goroutine. Submit and request completions are
// delivered to it as events, so observers see transitions one at a time and
// never from a stale request. Observers run on that goroutine and must not
// block.
type Coordinator struct {
	fetcher      Fetcher
	baseURL      string
	locale       language.Tag
	observers    []Observer
	errorHandler ErrorHandler

	events  chan event
	done    chan struct{}
	stopped chan struct{}
	once    sync.Once

	// owned by the run goroutine
	generation uint64
	cancel     context.CancelFunc
	lastText   string

	mu       sync.RWMutex
	snapshot State
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithObserver registers a state observer.
func WithObserver(obs Observer) Option {
	return func(c *Coordinator) {
		c.observers = append(c.observers, obs)
	}
}

// WithErrorHandler sets the handler notified when a search fails.
func WithErrorHandler(handler ErrorHandler) Option {
	return func(c *Coordinator) {
		c.errorHandler = handler
	}
}

// WithBaseURL points requests at another API host.
func WithBaseURL(baseURL string) Option {
	return func(c *Coordinator) {
		c.baseURL = baseURL
	}
}

// WithLocale sets the collation locale used to order results.
func WithLocale(tag language.Tag) Option {
	return func(c *Coordinator) {
		c.locale = tag
	}
}

type event interface{}

type submitEvent struct {
	text     string
	category itunes.Category
	reuse    bool // search the last submitted text again
}

type completionEvent struct {
	submission Submission
	resp       itunes.Response
	err        error
}

// NewCoordinator creates a coordinator in the Idle state and starts its
// owning goroutine. Call Close to stop it.
func NewCoordinator(fetcher Fetcher, opts ...Option) *Coordinator {
	c := &Coordinator{
		fetcher: fetcher,
		baseURL: itunes.DefaultBaseURL,
		locale:  language.English,
		events:  make(chan event, 16),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	if b, ok := fetcher.(interface{ BaseURL() string }); ok {
		c.baseURL = b.BaseURL()
	}

	for _, opt := range opts {
		opt(c)
	}

	go c.run()
	return c
}

// Submit starts a search for text in category and returns immediately.
// Blank text is ignored. The outcome is delivered to observers.
func (c *Coordinator) Submit(text string, category itunes.Category) {
	c.send(submitEvent{text: text, category: category})
}

// Resubmit searches the last submitted text again in another category.
// It does nothing if nothing was submitted yet.
func (c *Coordinator) Resubmit(category itunes.Category) {
	c.send(submitEvent{category: category, reuse: true})
}

// State returns the current state. Safe from any goroutine.
func (c *Coordinator) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot
}

// Close cancels the in-flight request, if any, and stops the coordinator.
// Completions that arrive afterwards are dropped.
func (c *Coordinator) Close() {
	c.once.Do(func() {
		close(c.done)
	})
	<-c.stopped
}

func (c *Coordinator) send(ev event) {
	select {
	case c.events <- ev:
	case <-c.done:
	}
}

func (c *Coordinator) run() {
	defer close(c.stopped)
	for {
		select {
		case <-c.done:
			if c.cancel != nil {
				c.cancel()
				c.cancel = nil
			}
			return
		case ev := <-c.events:
			switch ev := ev.(type) {
			case submitEvent:
				c.handleSubmit(ev)
			case completionEvent:
				c.handleCompletion(ev)
			}
		}
	}
}

func (c *Coordinator) handleSubmit(ev submitEvent) {
	text := ev.text
	if ev.reuse {
		text = c.lastText
	}

	req, err := itunes.BuildRequest(c.baseURL, text, ev.category)
	if err != nil {
		logger.Debug("search ignored", "reason", err, "category", ev.category)
		return
	}

	c.generation++
	sub := Submission{Text: text, Category: ev.category, Generation: c.generation}
	c.lastText = text

	if c.cancel != nil {
		c.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel

	logger.Info("search started", "generation", sub.Generation, "category", sub.Category, "url", req.URL)
	c.transition(State{Kind: Loading, Submission: sub})

	go c.fetch(ctx, sub, req)
}

func (c *Coordinator) fetch(ctx context.Context, sub Submission, req itunes.Request) {
	resp, err := c.fetcher.Fetch(ctx, req)
	c.send(completionEvent{submission: sub, resp: resp, err: err})
}

func (c *Coordinator) handleCompletion(ev completionEvent) {
	sub := ev.submission
	if errors.Is(ev.err, context.Canceled) {
		logger.Debug("search cancelled", "generation", sub.Generation)
		return
	}
	if sub.Generation != c.generation {
		logger.Debug("stale search result dropped", "generation", sub.Generation, "current", c.generation)
		return
	}

	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}

	if ev.err != nil {
		c.fail(sub, ev.err)
		return
	}
	if ev.resp.StatusCode != http.StatusOK {
		c.fail(sub, &itunes.StatusError{StatusCode: ev.resp.StatusCode})
		return
	}

	rs, err := itunes.Parse(ev.resp.Body)
	if err != nil {
		c.fail(sub, err)
		return
	}
	rs = rs.Sorted(c.locale)

	logger.Info("search finished", "generation", sub.Generation, "results", rs.Len(), "result_count", rs.Count)
	if rs.Len() == 0 {
		c.transition(State{Kind: Empty, Submission: sub, ResultSet: rs})
		return
	}
	c.transition(State{Kind: Results, Submission: sub, ResultSet: rs})
}

func (c *Coordinator) fail(sub Submission, err error) {
	logger.Warn("search failed", "generation", sub.Generation, "error", err)
	c.transition(State{Kind: NetworkError, Submission: sub, Err: err})
	if c.errorHandler != nil {
		c.errorHandler(ErrorMessage)
	}
}

func (c *Coordinator) transition(s State) {
	c.mu.Lock()
	c.snapshot = s
	c.mu.Unlock()

	for _, obs := range c.observers {
		obs(s)
	}
}
