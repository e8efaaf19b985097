package client

import (
	"net/http"

	"github.com/xxxsen/davkit/proto"
)

type callOpt struct {
	lockToken    string
	hasLockToken bool
	contentType  string
}

// CallOption tweaks one single operation.
type CallOption func(*callOpt)

// WithLockToken marks the operation as conditional on holding the given
// lock. An empty or malformed token fails the call locally with
// ErrMissingLockToken, before anything reaches the transport.
func WithLockToken(token string) CallOption {
	return func(o *callOpt) {
		o.lockToken = token
		o.hasLockToken = true
	}
}

// WithContentType overrides the Content-Type of a PUT.
func WithContentType(ct string) CallOption {
	return func(o *callOpt) {
		o.contentType = ct
	}
}

func buildCallHeader(opts []CallOption) (http.Header, error) {
	o := &callOpt{}
	for _, opt := range opts {
		opt(o)
	}
	header := make(http.Header)
	if o.hasLockToken {
		ifv, err := proto.EncodeIfHeader(o.lockToken)
		if err != nil {
			return nil, err
		}
		header.Set("If", ifv)
	}
	if len(o.contentType) != 0 {
		header.Set("Content-Type", o.contentType)
	}
	return header, nil
}
