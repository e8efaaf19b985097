// Package client is the high level WebDAV client: it composes the path
// resolver, the protocol encoder/decoder and a transport backend into one
// call per WebDAV operation. The client holds no mutable state beyond its
// configuration; every method is safe for concurrent use.
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/xxxsen/davkit/auth"
	"github.com/xxxsen/davkit/davpath"
	"github.com/xxxsen/davkit/proto"
	"github.com/xxxsen/davkit/transport"
	"github.com/xxxsen/davkit/transport/nethttp"
)

type Client struct {
	c    *config
	base *url.URL
	tr   transport.ITransport
}

func New(opts ...Option) (*Client, error) {
	c := &config{}
	for _, opt := range opts {
		opt(c)
	}
	if len(c.endpoint) == 0 {
		return nil, fmt.Errorf("%w: no endpoint found", davpath.ErrInvalidPath)
	}
	base, err := davpath.ResolveURL(c.endpoint, "")
	if err != nil {
		return nil, err
	}
	tr := c.transport
	if tr == nil {
		tr = nethttp.New()
	}
	if len(c.authKind) != 0 {
		tr, err = auth.New(tr, c.authKind, c.user, c.pass)
		if err != nil {
			return nil, err
		}
	}
	if c.limiter != nil {
		tr = transport.NewRateLimit(tr, c.limiter)
	}
	if c.enableLog {
		tr = transport.NewLogging(tr)
	}
	return &Client{c: c, base: base, tr: tr}, nil
}

// BasePath returns the canonical path of the base collection.
func (c *Client) BasePath() string {
	return c.base.Path
}

func (c *Client) resolve(rel string) (*url.URL, error) {
	return davpath.ResolveURL(c.base.String(), rel)
}

func (c *Client) roundTrip(ctx context.Context, req *transport.Request) (*transport.Response, error) {
	rsp, err := c.tr.RoundTrip(ctx, req)
	if err != nil {
		return nil, &proto.TransportError{Err: err}
	}
	return rsp, nil
}

// exchange performs one request with a byte body and drains the response.
func (c *Client) exchange(ctx context.Context, method string, u string, header http.Header, body []byte) (int, http.Header, []byte, error) {
	rsp, err := c.roundTrip(ctx, transport.NewRequest(method, u, header, body))
	if err != nil {
		return 0, nil, nil, err
	}
	raw, err := transport.ReadBody(rsp)
	if err != nil {
		return 0, nil, nil, &proto.TransportError{Err: err}
	}
	return rsp.StatusCode, rsp.Header, raw, nil
}

// simple runs a method whose response carries no multistatus body.
func (c *Client) simple(ctx context.Context, method string, u string, header http.Header, body []byte) (*proto.SimpleResult, error) {
	status, rsphdr, raw, err := c.exchange(ctx, method, u, header, body)
	if err != nil {
		return nil, err
	}
	res, err := proto.DecodeSimple(status, rsphdr, raw)
	if err != nil {
		return nil, err
	}
	if res.Status >= 300 {
		return nil, &proto.ProtocolError{Status: res.Status, Message: "redirected to " + res.Location}
	}
	return res, nil
}

// multistatus runs a method whose success is a 207 body.
func (c *Client) multistatus(ctx context.Context, method string, u *url.URL, header http.Header, body []byte) (*proto.Multistatus, error) {
	status, rsphdr, raw, err := c.exchange(ctx, method, u.String(), header, body)
	if err != nil {
		return nil, err
	}
	if status != http.StatusMultiStatus {
		if status >= 200 && status < 300 {
			return nil, fmt.Errorf("%w: expected 207 for %s, got %d", proto.ErrMalformedResponse, method, status)
		}
		res, derr := proto.DecodeSimple(status, rsphdr, raw)
		if derr != nil {
			return nil, derr
		}
		return nil, &proto.ProtocolError{Status: status, Message: "redirected to " + res.Location}
	}
	return proto.DecodeMultistatus(u, bytes.NewReader(raw))
}

// PropFind fetches properties of path and, depending on depth, its children.
// A nil props list asks the server for all properties.
func (c *Client) PropFind(ctx context.Context, location string, depth proto.Depth, props ...proto.PropName) (*proto.Multistatus, error) {
	u, err := c.resolve(location)
	if err != nil {
		return nil, err
	}
	header, body, err := proto.EncodePropfind(&proto.PropfindRequest{Depth: depth, Props: props})
	if err != nil {
		return nil, err
	}
	return c.multistatus(ctx, "PROPFIND", u, header, body)
}

// PropNames lists the names of the properties defined on path without
// fetching their values.
func (c *Client) PropNames(ctx context.Context, location string, depth proto.Depth) (*proto.Multistatus, error) {
	u, err := c.resolve(location)
	if err != nil {
		return nil, err
	}
	header, body, err := proto.EncodePropfind(&proto.PropfindRequest{Depth: depth, NameOnly: true})
	if err != nil {
		return nil, err
	}
	return c.multistatus(ctx, "PROPFIND", u, header, body)
}

// PropPatch applies the ordered set/remove operations to path. The returned
// multistatus carries one outcome per property; a failed property does not
// turn the whole call into an error.
func (c *Client) PropPatch(ctx context.Context, location string, ops []proto.PatchOp) (*proto.Multistatus, error) {
	u, err := c.resolve(location)
	if err != nil {
		return nil, err
	}
	header, body, err := proto.EncodeProppatch(ops)
	if err != nil {
		return nil, err
	}
	return c.multistatus(ctx, "PROPPATCH", u, header, body)
}

// Mkcol creates the collection at location.
func (c *Client) Mkcol(ctx context.Context, location string) error {
	u, err := c.resolve(ensureCollection(location))
	if err != nil {
		return err
	}
	_, err = c.simple(ctx, "MKCOL", u.String(), nil, nil)
	return err
}

// Copy duplicates src to dst on the server.
func (c *Client) Copy(ctx context.Context, src string, dst string, overwrite bool) error {
	return c.copyMove(ctx, "COPY", src, dst, overwrite)
}

// Move renames src to dst on the server.
func (c *Client) Move(ctx context.Context, src string, dst string, overwrite bool) error {
	return c.copyMove(ctx, "MOVE", src, dst, overwrite)
}

func (c *Client) copyMove(ctx context.Context, method string, src string, dst string, overwrite bool) error {
	su, err := c.resolve(src)
	if err != nil {
		return err
	}
	du, err := c.resolve(dst)
	if err != nil {
		return err
	}
	header := proto.EncodeCopyMove(du.String(), overwrite, proto.DepthInfinity)
	status, rsphdr, raw, err := c.exchange(ctx, method, su.String(), header, nil)
	if err != nil {
		return err
	}
	if status == http.StatusMultiStatus {
		// partial failure: surface the first failed resource
		ms, err := proto.DecodeMultistatus(su, bytes.NewReader(raw))
		if err != nil {
			return err
		}
		return firstEntryError(ms)
	}
	if _, err := proto.DecodeSimple(status, rsphdr, raw); err != nil {
		return err
	}
	return nil
}

// Delete removes the resource at location. Pass WithLockToken when the
// resource is locked.
func (c *Client) Delete(ctx context.Context, location string, opts ...CallOption) error {
	u, err := c.resolve(location)
	if err != nil {
		return err
	}
	header, err := buildCallHeader(opts)
	if err != nil {
		return err
	}
	status, rsphdr, raw, err := c.exchange(ctx, "DELETE", u.String(), header, nil)
	if err != nil {
		return err
	}
	if status == http.StatusMultiStatus {
		ms, err := proto.DecodeMultistatus(u, bytes.NewReader(raw))
		if err != nil {
			return err
		}
		return firstEntryError(ms)
	}
	if _, err := proto.DecodeSimple(status, rsphdr, raw); err != nil {
		return err
	}
	return nil
}

// Get fetches the whole body of location.
func (c *Client) Get(ctx context.Context, location string) ([]byte, error) {
	rc, err := c.GetStream(ctx, location)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	raw, err := io.ReadAll(rc)
	if err != nil {
		return nil, &proto.TransportError{Err: err}
	}
	return raw, nil
}

// GetStream fetches location without buffering. The caller owns closing the
// returned stream.
func (c *Client) GetStream(ctx context.Context, location string) (io.ReadCloser, error) {
	u, err := c.resolve(location)
	if err != nil {
		return nil, err
	}
	rsp, err := c.roundTrip(ctx, transport.NewRequest("GET", u.String(), nil, nil))
	if err != nil {
		return nil, err
	}
	if rsp.StatusCode < 200 || rsp.StatusCode >= 300 {
		raw, _ := transport.ReadBody(rsp)
		if _, derr := proto.DecodeSimple(rsp.StatusCode, rsp.Header, raw); derr != nil {
			return nil, derr
		}
		return nil, &proto.ProtocolError{Status: rsp.StatusCode}
	}
	return rsp.Body, nil
}

// Put uploads r to location and returns the entity tag when the server sent
// one. Content-Type is taken from WithContentType or guessed from the file
// extension.
func (c *Client) Put(ctx context.Context, location string, r io.Reader, size int64, opts ...CallOption) (string, error) {
	u, err := c.resolve(location)
	if err != nil {
		return "", err
	}
	header, err := buildCallHeader(opts)
	if err != nil {
		return "", err
	}
	if len(header.Get("Content-Type")) == 0 {
		header.Set("Content-Type", detectContentType(u.Path))
	}
	req := &transport.Request{
		Method:        "PUT",
		URL:           u.String(),
		Header:        header,
		Body:          r,
		ContentLength: size,
	}
	rsp, err := c.roundTrip(ctx, req)
	if err != nil {
		return "", err
	}
	raw, err := transport.ReadBody(rsp)
	if err != nil {
		return "", &proto.TransportError{Err: err}
	}
	res, err := proto.DecodeSimple(rsp.StatusCode, rsp.Header, raw)
	if err != nil {
		return "", err
	}
	if res.Status >= 300 {
		return "", &proto.ProtocolError{Status: res.Status, Message: "redirected to " + res.Location}
	}
	return res.ETag, nil
}

// Lock takes a lock on location and returns the token the caller must keep
// for later conditional requests. The client never stores the token itself.
func (c *Client) Lock(ctx context.Context, location string, req *proto.LockRequest) (*proto.LockResult, error) {
	u, err := c.resolve(location)
	if err != nil {
		return nil, err
	}
	header, body, err := proto.EncodeLock(req)
	if err != nil {
		return nil, err
	}
	status, rsphdr, raw, err := c.exchange(ctx, "LOCK", u.String(), header, body)
	if err != nil {
		return nil, err
	}
	return proto.DecodeLockResponse(status, rsphdr, raw)
}

// RefreshLock extends an existing lock identified by token.
func (c *Client) RefreshLock(ctx context.Context, location string, token string, timeout time.Duration) (*proto.LockResult, error) {
	u, err := c.resolve(location)
	if err != nil {
		return nil, err
	}
	header, err := proto.EncodeRefreshLock(token, timeout)
	if err != nil {
		return nil, err
	}
	status, rsphdr, raw, err := c.exchange(ctx, "LOCK", u.String(), header, nil)
	if err != nil {
		return nil, err
	}
	res, err := proto.DecodeLockResponse(status, rsphdr, raw)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Unlock releases the lock identified by token.
func (c *Client) Unlock(ctx context.Context, location string, token string) error {
	u, err := c.resolve(location)
	if err != nil {
		return err
	}
	header, err := proto.EncodeUnlock(token)
	if err != nil {
		return err
	}
	_, err = c.simple(ctx, "UNLOCK", u.String(), header, nil)
	return err
}

func firstEntryError(ms *proto.Multistatus) error {
	for i := range ms.Entries {
		e := &ms.Entries[i]
		if e.Status >= 300 {
			return &proto.ProtocolError{Status: e.Status, Message: "failed resource " + e.Path}
		}
	}
	return nil
}

func ensureCollection(location string) string {
	if len(location) == 0 || location[len(location)-1] == '/' {
		return location
	}
	return location + "/"
}

func detectContentType(filename string) string {
	mimeType := mime.TypeByExtension(path.Ext(filename))
	if len(mimeType) == 0 {
		return "application/octet-stream"
	}
	return mimeType
}
