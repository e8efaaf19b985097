// Package transport is the capability boundary between the WebDAV protocol
// layer and whatever HTTP backend performs the exchange. The protocol layer
// only ever sees this interface; picking a backend is a composition time
// decision.
package transport

import (
	"bytes"
	"context"
	"io"
	"net/http"
)

// Request is one outbound exchange: method, absolute url, headers and an
// optional body. GetBody, when set, remakes the body so a decorator (e.g.
// an auth handshake) can resend the request.
type Request struct {
	Method        string
	URL           string
	Header        http.Header
	Body          io.Reader
	ContentLength int64
	GetBody       func() (io.Reader, error)
}

// Response is the raw result of one exchange. Body is never nil on success;
// the caller owns closing it.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       io.ReadCloser
}

// ITransport performs one HTTP exchange. Implementations own connection
// handling, TLS, redirects and socket level retries; an error return means
// the exchange failed before a response was obtained.
type ITransport interface {
	RoundTrip(ctx context.Context, req *Request) (*Response, error)
}

// NewRequest builds a replayable request around a byte body.
func NewRequest(method string, url string, header http.Header, body []byte) *Request {
	if header == nil {
		header = make(http.Header)
	}
	req := &Request{
		Method:        method,
		URL:           url,
		Header:        header,
		ContentLength: int64(len(body)),
	}
	if body != nil {
		req.Body = bytes.NewReader(body)
		req.GetBody = func() (io.Reader, error) {
			return bytes.NewReader(body), nil
		}
	}
	return req
}

// Rewind remakes the request body for a resend and reports whether it could.
func (r *Request) Rewind() bool {
	if r.Body == nil {
		return true
	}
	if r.GetBody != nil {
		body, err := r.GetBody()
		if err != nil {
			return false
		}
		r.Body = body
		return true
	}
	if seeker, ok := r.Body.(io.Seeker); ok {
		if _, err := seeker.Seek(0, io.SeekStart); err == nil {
			return true
		}
	}
	return false
}

// ReadBody drains and closes a response body.
func ReadBody(rsp *Response) ([]byte, error) {
	if rsp.Body == nil {
		return nil, nil
	}
	defer rsp.Body.Close()
	return io.ReadAll(rsp.Body)
}
