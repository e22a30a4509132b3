package httpclient

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// DegradedState records that a preferred endpoint has failed once.
// The preferred endpoint is typically a local reverse proxy; once it is
// gone it stays gone for the process lifetime, so the switch is one-way.
// Callers that must not share degraded state construct their own.
type DegradedState struct {
	mu       sync.Mutex
	degraded bool
}

func (s *DegradedState) Degraded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.degraded
}

func (s *DegradedState) MarkDegraded() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.degraded = true
}

// Fallback issues GETs against a preferred base URL and switches
// permanently to a direct base URL after the first failure. An empty
// preferred URL means the direct endpoint is used from the start.
type Fallback struct {
	httpClient *http.Client
	preferred  string
	direct     string
	state      *DegradedState
	logger     *slog.Logger
}

func NewFallback(preferred, direct string, timeout time.Duration, state *DegradedState, logger *slog.Logger) *Fallback {
	if state == nil {
		state = &DegradedState{}
	}
	return &Fallback{
		httpClient: &http.Client{Timeout: timeout},
		preferred:  preferred,
		direct:     direct,
		state:      state,
		logger:     logger.With("component", "httpclient"),
	}
}

// Get fetches endpoint from the preferred base URL, falling back to the
// direct one. Both failing returns the direct endpoint's error; deciding
// whether stale cached data can stand in is the caller's job.
func (f *Fallback) Get(ctx context.Context, endpoint string) ([]byte, error) {
	if f.preferred != "" && !f.state.Degraded() {
		body, err := GetBytes(ctx, f.httpClient, f.preferred, endpoint, []int{http.StatusOK})
		if err == nil {
			return body, nil
		}
		f.state.MarkDegraded()
		f.logger.Warn("preferred endpoint failed, switching to direct", "endpoint", endpoint, "error", err)
	}
	return GetBytes(ctx, f.httpClient, f.direct, endpoint, []int{http.StatusOK})
}
