// Package nethttp adapts net/http to the transport capability. It is the
// default backend.
package nethttp

import (
	"context"
	"net/http"
	"time"

	"github.com/xxxsen/davkit/transport"
)

var defaultHttpClient = &http.Client{
	Transport: &http.Transport{
		IdleConnTimeout:     20 * time.Second,
		MaxIdleConns:        5,
		MaxIdleConnsPerHost: 2,
	},
}

type config struct {
	client *http.Client
}

type Option func(*config)

// WithClient swaps in a caller owned http client, e.g. one with custom TLS
// settings or timeouts.
func WithClient(cli *http.Client) Option {
	return func(c *config) {
		c.client = cli
	}
}

type netTransport struct {
	c *config
}

func New(opts ...Option) transport.ITransport {
	c := &config{
		client: defaultHttpClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return &netTransport{c: c}
}

func (t *netTransport) RoundTrip(ctx context.Context, req *transport.Request) (*transport.Response, error) {
	hreq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, req.Body)
	if err != nil {
		return nil, err
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			hreq.Header.Add(k, v)
		}
	}
	if req.ContentLength > 0 {
		hreq.ContentLength = req.ContentLength
	}
	rsp, err := t.c.client.Do(hreq)
	if err != nil {
		return nil, err
	}
	return &transport.Response{
		StatusCode: rsp.StatusCode,
		Header:     rsp.Header,
		Body:       rsp.Body,
	}, nil
}
