// Package artwork loads item artwork for views that may be recycled before
// the download finishes.
package artwork

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/hession/storesearch/internal/logger"
)

const defaultMaxBytes = int64(4 << 20)

// Loader downloads artwork bytes.
type Loader struct {
	userAgent string
	maxBytes  int64
	client    *http.Client
}

// NewLoader creates a loader. Empty arguments fall back to defaults.
func NewLoader(userAgent string, timeout time.Duration) *Loader {
	if strings.TrimSpace(userAgent) == "" {
		userAgent = "StoreSearch/0.1"
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Loader{
		userAgent: userAgent,
		maxBytes:  defaultMaxBytes,
		client:    &http.Client{Timeout: timeout},
	}
}

// Fetch downloads the image at rawURL.
func (l *Loader) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", l.userAgent)

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("artwork request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("artwork request failed with status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, l.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read artwork: %w", err)
	}
	return data, nil
}

// Load fetches rawURL in the background and passes the bytes to apply,
// unless slot was reused or released first. Failures are logged and
// dropped. apply runs with the slot locked and must not call back into it.
func (l *Loader) Load(slot *Slot, rawURL string, apply func([]byte)) {
	if strings.TrimSpace(rawURL) == "" {
		return
	}
	ctx, token, ok := slot.begin()
	if !ok {
		return
	}

	go func() {
		data, err := l.Fetch(ctx, rawURL)
		if err != nil {
			logger.Debug("artwork not loaded", "url", rawURL, "error", err)
			return
		}
		if !slot.applyIf(token, func() { apply(data) }) {
			logger.Debug("artwork discarded", "url", rawURL)
		}
	}()
}

// Slot stands for one view that shows artwork: a list row or a detail
// pane. Only the most recent load for a slot may reach it.
type Slot struct {
	mu       sync.Mutex
	token    uint64
	cancel   context.CancelFunc
	released bool
}

func (s *Slot) begin() (context.Context, uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.released {
		return nil, 0, false
	}
	s.invalidate()
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	return ctx, s.token, true
}

func (s *Slot) applyIf(token uint64, apply func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.released || token != s.token {
		return false
	}
	apply()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	return true
}

// invalidate cancels the outstanding load. Callers hold s.mu.
func (s *Slot) invalidate() {
	s.token++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// Reuse cancels any pending load so its result is never applied. The slot
// can be loaded again.
func (s *Slot) Reuse() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalidate()
}

// Release cancels any pending load and refuses further loads.
func (s *Slot) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalidate()
	s.released = true
}
