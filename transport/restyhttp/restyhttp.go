// Package restyhttp adapts resty/v2 to the transport capability, for callers
// already standardized on resty (middleware, tracing, proxy handling).
package restyhttp

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
	"github.com/xxxsen/davkit/transport"
)

type config struct {
	client *resty.Client
}

type Option func(*config)

func WithClient(cli *resty.Client) Option {
	return func(c *config) {
		c.client = cli
	}
}

type restyTransport struct {
	c *config
}

func New(opts ...Option) transport.ITransport {
	c := &config{}
	for _, opt := range opts {
		opt(c)
	}
	if c.client == nil {
		c.client = resty.New()
	}
	// the protocol layer streams bodies itself
	c.client.SetDoNotParseResponse(true)
	return &restyTransport{c: c}
}

func (t *restyTransport) RoundTrip(ctx context.Context, req *transport.Request) (*transport.Response, error) {
	r := t.c.client.R().SetContext(ctx)
	for k, vs := range req.Header {
		for _, v := range vs {
			r.Header.Add(k, v)
		}
	}
	if req.Body != nil {
		r.SetBody(req.Body)
	}
	rsp, err := r.Execute(req.Method, req.URL)
	if err != nil {
		return nil, err
	}
	raw := rsp.RawResponse
	if raw == nil {
		return nil, fmt.Errorf("resty returned no raw response")
	}
	return &transport.Response{
		StatusCode: raw.StatusCode,
		Header:     raw.Header,
		Body:       rsp.RawBody(),
	}, nil
}
