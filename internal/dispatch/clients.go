package dispatch

import (
	"io"
	"net/http"
	"time"
)

// Named HTTP client profiles. The core issues one logical send per
// destination; whether that send replays on 5xx is a property of the chosen
// profile, never of the sender.
const (
	ProfileWithRetry = "with-retry"
	ProfileNoRetry   = "no-retry"
)

// Profiles is the registry of named, preconfigured HTTP clients.
type Profiles struct {
	clients map[string]*http.Client
}

// NewProfiles builds the standard profile set.
func NewProfiles(timeout time.Duration) *Profiles {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Profiles{clients: map[string]*http.Client{
		ProfileWithRetry: {
			Timeout: timeout,
			Transport: &retryTransport{
				next:     http.DefaultTransport,
				attempts: 3,
				backoff:  200 * time.Millisecond,
			},
		},
		ProfileNoRetry: {Timeout: timeout},
	}}
}

// Get returns the named client, falling back to the no-retry profile.
func (p *Profiles) Get(name string) *http.Client {
	if client, ok := p.clients[name]; ok {
		return client
	}
	return p.clients[ProfileNoRetry]
}

// retryTransport replays a request on transport errors and 5xx responses,
// with exponential backoff. Request bodies must be replayable (GetBody set),
// which holds for every sender in this gateway.
type retryTransport struct {
	next     http.RoundTripper
	attempts int
	backoff  time.Duration
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var resp *http.Response
	var err error
	for attempt := 0; ; attempt++ {
		resp, err = t.next.RoundTrip(req)
		retryable := err != nil || resp.StatusCode >= http.StatusInternalServerError
		if !retryable || attempt == t.attempts-1 {
			return resp, err
		}
		if resp != nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
		}

		wait := t.backoff << attempt
		select {
		case <-req.Context().Done():
			return nil, req.Context().Err()
		case <-time.After(wait):
		}

		if req.GetBody != nil {
			body, bodyErr := req.GetBody()
			if bodyErr != nil {
				return nil, bodyErr
			}
			req.Body = body
		}
	}
}
