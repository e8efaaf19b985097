package client

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/xxxsen/davkit/proto"
	"github.com/xxxsen/davkit/transport"

	"github.com/stretchr/testify/assert"
)

type capturedRequest struct {
	Method string
	URL    string
	Header http.Header
	Body   string
}

type fakeTransport struct {
	reqs []capturedRequest
	rsps []*transport.Response
}

func (f *fakeTransport) RoundTrip(ctx context.Context, req *transport.Request) (*transport.Response, error) {
	body := ""
	if req.Body != nil {
		raw, _ := io.ReadAll(req.Body)
		body = string(raw)
	}
	f.reqs = append(f.reqs, capturedRequest{Method: req.Method, URL: req.URL, Header: req.Header, Body: body})
	rsp := f.rsps[0]
	f.rsps = f.rsps[1:]
	return rsp, nil
}

func newRsp(status int, hdr map[string]string, body string) *transport.Response {
	h := make(http.Header)
	for k, v := range hdr {
		h.Set(k, v)
	}
	return &transport.Response{StatusCode: status, Header: h, Body: io.NopCloser(strings.NewReader(body))}
}

func newTestClient(t *testing.T, tr transport.ITransport) *Client {
	c, err := New(WithEndpoint("http://example.com/dav/"), WithTransport(tr))
	assert.NoError(t, err)
	return c
}

const listBody = `<?xml version="1.0"?>
<D:multistatus xmlns:D="DAV:">
  <D:response>
    <D:href>/dav/docs/</D:href>
    <D:propstat>
      <D:prop><D:resourcetype><D:collection/></D:resourcetype></D:prop>
      <D:status>HTTP/1.1 200 OK</D:status>
    </D:propstat>
  </D:response>
  <D:response>
    <D:href>/dav/docs/a.txt</D:href>
    <D:propstat>
      <D:prop>
        <D:resourcetype/>
        <D:getcontentlength>42</D:getcontentlength>
        <D:getetag>"e1"</D:getetag>
        <D:getlastmodified>Tue, 15 Nov 1994 12:45:26 GMT</D:getlastmodified>
      </D:prop>
      <D:status>HTTP/1.1 200 OK</D:status>
    </D:propstat>
  </D:response>
</D:multistatus>`

func TestPropFind(t *testing.T) {
	tr := &fakeTransport{rsps: []*transport.Response{newRsp(207, nil, listBody)}}
	c := newTestClient(t, tr)
	ms, err := c.PropFind(context.Background(), "docs/", proto.DepthOne, proto.PropEtag)
	assert.NoError(t, err)
	assert.Len(t, ms.Entries, 2)
	req := tr.reqs[0]
	assert.Equal(t, "PROPFIND", req.Method)
	assert.Equal(t, "http://example.com/dav/docs/", req.URL)
	assert.Equal(t, "1", req.Header.Get("Depth"))
	assert.Contains(t, req.Body, "<D:getetag/>")
}

func TestPropFindNon207(t *testing.T) {
	tr := &fakeTransport{rsps: []*transport.Response{newRsp(200, nil, "ok")}}
	c := newTestClient(t, tr)
	_, err := c.PropFind(context.Background(), "docs/", proto.DepthZero)
	assert.ErrorIs(t, err, proto.ErrMalformedResponse)

	tr = &fakeTransport{rsps: []*transport.Response{newRsp(404, nil, "")}}
	c = newTestClient(t, tr)
	_, err = c.PropFind(context.Background(), "gone", proto.DepthZero)
	assert.True(t, proto.IsNotFound(err))
}

func TestPropFindRedirect(t *testing.T) {
	tr := &fakeTransport{rsps: []*transport.Response{
		newRsp(301, map[string]string{"Location": "http://example.com/elsewhere/"}, ""),
	}}
	c := newTestClient(t, tr)
	_, err := c.PropFind(context.Background(), "docs/", proto.DepthZero)
	var pe *proto.ProtocolError
	assert.ErrorAs(t, err, &pe)
	assert.Equal(t, 301, pe.Status)
	assert.Contains(t, pe.Message, "http://example.com/elsewhere/")
}

func TestReadDirSkipsSelf(t *testing.T) {
	tr := &fakeTransport{rsps: []*transport.Response{newRsp(207, nil, listBody)}}
	c := newTestClient(t, tr)
	ents, err := c.ReadDir(context.Background(), "docs")
	assert.NoError(t, err)
	assert.Len(t, ents, 1)
	ent := ents[0]
	assert.Equal(t, "a.txt", ent.Name)
	assert.False(t, ent.IsDir)
	assert.Equal(t, int64(42), ent.Size)
	assert.Equal(t, `"e1"`, ent.ETag)
	assert.Equal(t, time.Date(1994, 11, 15, 12, 45, 26, 0, time.UTC), ent.ModTime)
}

func TestMkcolAddsSlash(t *testing.T) {
	tr := &fakeTransport{rsps: []*transport.Response{newRsp(201, nil, "")}}
	c := newTestClient(t, tr)
	err := c.Mkcol(context.Background(), "newdir")
	assert.NoError(t, err)
	assert.Equal(t, "MKCOL", tr.reqs[0].Method)
	assert.Equal(t, "http://example.com/dav/newdir/", tr.reqs[0].URL)
}

func TestCopyHeaders(t *testing.T) {
	tr := &fakeTransport{rsps: []*transport.Response{newRsp(201, nil, "")}}
	c := newTestClient(t, tr)
	err := c.Copy(context.Background(), "a.txt", "b.txt", true)
	assert.NoError(t, err)
	req := tr.reqs[0]
	assert.Equal(t, "COPY", req.Method)
	assert.Equal(t, "http://example.com/dav/a.txt", req.URL)
	assert.Equal(t, "http://example.com/dav/b.txt", req.Header.Get("Destination"))
	assert.Equal(t, "T", req.Header.Get("Overwrite"))
	assert.Equal(t, "infinity", req.Header.Get("Depth"))
}

func TestMovePartialFailure(t *testing.T) {
	body := `<D:multistatus xmlns:D="DAV:">
  <D:response>
    <D:href>/dav/dst/locked.txt</D:href>
    <D:status>HTTP/1.1 423 Locked</D:status>
  </D:response>
</D:multistatus>`
	tr := &fakeTransport{rsps: []*transport.Response{newRsp(207, nil, body)}}
	c := newTestClient(t, tr)
	err := c.Move(context.Background(), "src/", "dst/", false)
	var pe *proto.ProtocolError
	assert.ErrorAs(t, err, &pe)
	assert.Equal(t, 423, pe.Status)
	assert.Equal(t, "F", tr.reqs[0].Header.Get("Overwrite"))
}

func TestDeleteWithLockToken(t *testing.T) {
	tr := &fakeTransport{rsps: []*transport.Response{newRsp(204, nil, "")}}
	c := newTestClient(t, tr)
	err := c.Delete(context.Background(), "a.txt", WithLockToken("urn:uuid:abc123"))
	assert.NoError(t, err)
	assert.Equal(t, "(<urn:uuid:abc123>)", tr.reqs[0].Header.Get("If"))
}

func TestDeleteMissingTokenNeverSends(t *testing.T) {
	tr := &fakeTransport{}
	c := newTestClient(t, tr)
	err := c.Delete(context.Background(), "a.txt", WithLockToken(""))
	assert.ErrorIs(t, err, proto.ErrMissingLockToken)
	assert.Empty(t, tr.reqs)
	err = c.Delete(context.Background(), "a.txt", WithLockToken("bad token"))
	assert.ErrorIs(t, err, proto.ErrMissingLockToken)
	assert.Empty(t, tr.reqs)
}

func TestPut(t *testing.T) {
	tr := &fakeTransport{rsps: []*transport.Response{newRsp(201, map[string]string{"Etag": `"p1"`}, "")}}
	c := newTestClient(t, tr)
	etag, err := c.Put(context.Background(), "up.bin", strings.NewReader("payload"), 7, WithContentType("application/x-demo"))
	assert.NoError(t, err)
	assert.Equal(t, `"p1"`, etag)
	req := tr.reqs[0]
	assert.Equal(t, "PUT", req.Method)
	assert.Equal(t, "payload", req.Body)
	assert.Equal(t, "application/x-demo", req.Header.Get("Content-Type"))
}

func TestPutDefaultContentType(t *testing.T) {
	tr := &fakeTransport{rsps: []*transport.Response{newRsp(204, nil, "")}}
	c := newTestClient(t, tr)
	_, err := c.Put(context.Background(), "blob.unknownext", strings.NewReader("x"), 1)
	assert.NoError(t, err)
	assert.Equal(t, "application/octet-stream", tr.reqs[0].Header.Get("Content-Type"))
}

func TestGet(t *testing.T) {
	tr := &fakeTransport{rsps: []*transport.Response{newRsp(200, nil, "hello")}}
	c := newTestClient(t, tr)
	raw, err := c.Get(context.Background(), "a.txt")
	assert.NoError(t, err)
	assert.Equal(t, "hello", string(raw))

	tr = &fakeTransport{rsps: []*transport.Response{newRsp(404, nil, "")}}
	c = newTestClient(t, tr)
	_, err = c.Get(context.Background(), "gone.txt")
	assert.True(t, proto.IsNotFound(err))
}

const lockBody = `<?xml version="1.0"?>
<D:prop xmlns:D="DAV:">
  <D:lockdiscovery>
    <D:activelock>
      <D:lockscope><D:exclusive/></D:lockscope>
      <D:locktype><D:write/></D:locktype>
      <D:depth>0</D:depth>
      <D:timeout>Second-600</D:timeout>
      <D:locktoken><D:href>urn:uuid:abc123</D:href></D:locktoken>
    </D:activelock>
  </D:lockdiscovery>
</D:prop>`

func TestLockFlow(t *testing.T) {
	tr := &fakeTransport{rsps: []*transport.Response{
		newRsp(200, map[string]string{"Lock-Token": "<urn:uuid:abc123>"}, lockBody),
		newRsp(204, nil, ""),
		newRsp(204, nil, ""),
	}}
	c := newTestClient(t, tr)
	lk, err := c.Lock(context.Background(), "a.txt", &proto.LockRequest{
		Scope:   proto.LockExclusive,
		Owner:   "urn:uuid:me",
		Timeout: 10 * time.Minute,
	})
	assert.NoError(t, err)
	assert.Equal(t, "urn:uuid:abc123", lk.Token)
	assert.Equal(t, "Second-600", lk.Lock.Timeout)
	lockReq := tr.reqs[0]
	assert.Equal(t, "LOCK", lockReq.Method)
	assert.Equal(t, "Second-600", lockReq.Header.Get("Timeout"))
	assert.Contains(t, lockReq.Body, "<D:exclusive/>")

	err = c.Delete(context.Background(), "a.txt", WithLockToken(lk.Token))
	assert.NoError(t, err)
	assert.Equal(t, "(<urn:uuid:abc123>)", tr.reqs[1].Header.Get("If"))

	err = c.Unlock(context.Background(), "a.txt", lk.Token)
	assert.NoError(t, err)
	unlockReq := tr.reqs[2]
	assert.Equal(t, "UNLOCK", unlockReq.Method)
	assert.Equal(t, "<urn:uuid:abc123>", unlockReq.Header.Get("Lock-Token"))
}

func TestRefreshLock(t *testing.T) {
	tr := &fakeTransport{rsps: []*transport.Response{
		newRsp(200, map[string]string{"Lock-Token": "<urn:uuid:abc123>"}, ""),
	}}
	c := newTestClient(t, tr)
	lk, err := c.RefreshLock(context.Background(), "a.txt", "urn:uuid:abc123", time.Minute)
	assert.NoError(t, err)
	assert.Equal(t, "urn:uuid:abc123", lk.Token)
	req := tr.reqs[0]
	assert.Equal(t, "(<urn:uuid:abc123>)", req.Header.Get("If"))
	assert.Equal(t, "Second-60", req.Header.Get("Timeout"))
	assert.Empty(t, req.Body)
}

func TestNewRequiresEndpoint(t *testing.T) {
	_, err := New()
	assert.Error(t, err)
	_, err = New(WithEndpoint("not a url"))
	assert.Error(t, err)
}
