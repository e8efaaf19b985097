package transport

import (
	"context"

	"golang.org/x/time/rate"
)

type rateLimitTransport struct {
	next    ITransport
	limiter *rate.Limiter
}

// NewRateLimit decorates next so every exchange first waits on the limiter.
// Servers that throttle aggressive WebDAV clients (propfind storms) make
// this a practical necessity.
func NewRateLimit(next ITransport, limiter *rate.Limiter) ITransport {
	return &rateLimitTransport{next: next, limiter: limiter}
}

func (t *rateLimitTransport) RoundTrip(ctx context.Context, req *Request) (*Response, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return t.next.RoundTrip(ctx, req)
}
