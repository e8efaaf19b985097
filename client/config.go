package client

import (
	"golang.org/x/time/rate"

	"github.com/xxxsen/davkit/transport"
)

type config struct {
	endpoint  string
	transport transport.ITransport
	authKind  string
	user      string
	pass      string
	limiter   *rate.Limiter
	enableLog bool
}

type Option func(*config)

// WithEndpoint sets the absolute base collection url, e.g.
// "https://dav.example.org/remote.php/dav/files/alice/".
func WithEndpoint(e string) Option {
	return func(c *config) {
		c.endpoint = e
	}
}

// WithTransport swaps in a specific backend or an already decorated chain.
// The default is the net/http backend.
func WithTransport(t transport.ITransport) Option {
	return func(c *config) {
		c.transport = t
	}
}

func WithBasicAuth(user string, pass string) Option {
	return func(c *config) {
		c.authKind = "basic"
		c.user = user
		c.pass = pass
	}
}

func WithDigestAuth(user string, pass string) Option {
	return func(c *config) {
		c.authKind = "digest"
		c.user = user
		c.pass = pass
	}
}

// WithRateLimit throttles outbound exchanges.
func WithRateLimit(limiter *rate.Limiter) Option {
	return func(c *config) {
		c.limiter = limiter
	}
}

// WithRequestLog enables per exchange debug logging at the transport edge.
func WithRequestLog() Option {
	return func(c *config) {
		c.enableLog = true
	}
}
