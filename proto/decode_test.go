package proto

import (
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func mustURL(t *testing.T, s string) *url.URL {
	u, err := url.Parse(s)
	assert.NoError(t, err)
	return u
}

func TestDecodeMultistatusDepthOne(t *testing.T) {
	body := `<?xml version="1.0" encoding="utf-8"?>
<D:multistatus xmlns:D="DAV:">
  <D:response>
    <D:href>/dav/docs/</D:href>
    <D:propstat>
      <D:prop>
        <D:resourcetype><D:collection/></D:resourcetype>
        <D:displayname>docs</D:displayname>
      </D:prop>
      <D:status>HTTP/1.1 200 OK</D:status>
    </D:propstat>
  </D:response>
  <D:response>
    <D:href>/dav/docs/a.txt</D:href>
    <D:propstat>
      <D:prop>
        <D:resourcetype/>
        <D:getcontentlength>42</D:getcontentlength>
        <D:getetag>"abc"</D:getetag>
      </D:prop>
      <D:status>HTTP/1.1 200 OK</D:status>
    </D:propstat>
  </D:response>
</D:multistatus>`
	ms, err := DecodeMultistatus(mustURL(t, "http://example.com/dav/docs/"), strings.NewReader(body))
	assert.NoError(t, err)
	assert.Len(t, ms.Entries, 2)

	col := ms.Entries[0]
	assert.Equal(t, "/dav/docs/", col.Path)
	assert.True(t, col.IsCollection())
	name, ok := col.Lookup(PropDisplayName)
	assert.True(t, ok)
	assert.True(t, name.IsSuccess())
	assert.Equal(t, "docs", name.Value.Typed.Text)

	file := ms.Entries[1]
	assert.Equal(t, "/dav/docs/a.txt", file.Path)
	assert.False(t, file.IsCollection())
	size, ok := file.Lookup(PropContentLength)
	assert.True(t, ok)
	assert.Equal(t, int64(42), size.Value.Typed.Int)
	etag, ok := file.Lookup(PropEtag)
	assert.True(t, ok)
	assert.Equal(t, `"abc"`, etag.Value.Typed.Text)
}

func TestDecodeMultistatusMixedPropstat(t *testing.T) {
	body := `<?xml version="1.0"?>
<D:multistatus xmlns:D="DAV:">
  <D:response>
    <D:href>/a</D:href>
    <D:propstat>
      <D:prop><D:getetag>"x"</D:getetag></D:prop>
      <D:status>HTTP/1.1 200 OK</D:status>
    </D:propstat>
    <D:propstat>
      <D:prop><D:displayname/></D:prop>
      <D:status>HTTP/1.1 404 Not Found</D:status>
    </D:propstat>
  </D:response>
</D:multistatus>`
	ms, err := DecodeMultistatus(nil, strings.NewReader(body))
	assert.NoError(t, err)
	assert.Len(t, ms.Entries, 1)
	ent := ms.Entries[0]
	etag, ok := ent.Lookup(PropEtag)
	assert.True(t, ok)
	assert.Equal(t, http.StatusOK, etag.Status)
	assert.True(t, etag.IsSuccess())
	name, ok := ent.Lookup(PropDisplayName)
	assert.True(t, ok)
	assert.Equal(t, http.StatusNotFound, name.Status)
	assert.False(t, name.IsSuccess())
}

func TestDecodeMultistatusStatusFallback(t *testing.T) {
	// no status inside propstat, resource level status applies
	body := `<D:multistatus xmlns:D="DAV:">
  <D:response>
    <D:href>/a</D:href>
    <D:status>HTTP/1.1 424 Failed Dependency</D:status>
    <D:propstat>
      <D:prop><D:displayname>a</D:displayname></D:prop>
    </D:propstat>
  </D:response>
</D:multistatus>`
	ms, err := DecodeMultistatus(nil, strings.NewReader(body))
	assert.NoError(t, err)
	pr, ok := ms.Entries[0].Lookup(PropDisplayName)
	assert.True(t, ok)
	assert.Equal(t, 424, pr.Status)
}

func TestDecodeMultistatusNoStatusAnywhere(t *testing.T) {
	body := `<D:multistatus xmlns:D="DAV:">
  <D:response>
    <D:href>/a</D:href>
    <D:propstat>
      <D:prop><D:displayname>a</D:displayname></D:prop>
    </D:propstat>
  </D:response>
</D:multistatus>`
	_, err := DecodeMultistatus(nil, strings.NewReader(body))
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestDecodeMultistatusMalformed(t *testing.T) {
	_, err := DecodeMultistatus(nil, strings.NewReader(`<D:multistatus xmlns:D="DAV:"></D:multistatus>`))
	assert.ErrorIs(t, err, ErrMalformedResponse)
	_, err = DecodeMultistatus(nil, strings.NewReader(`<foo/>`))
	assert.ErrorIs(t, err, ErrMalformedResponse)
	_, err = DecodeMultistatus(nil, strings.NewReader(`<D:multistatus xmlns:D="DAV:"><D:response>`))
	assert.ErrorIs(t, err, ErrMalformedResponse)
	body := `<D:multistatus xmlns:D="DAV:">
  <D:response>
    <D:propstat>
      <D:prop><D:displayname>a</D:displayname></D:prop>
      <D:status>HTTP/1.1 200 OK</D:status>
    </D:propstat>
  </D:response>
</D:multistatus>`
	_, err = DecodeMultistatus(nil, strings.NewReader(body))
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestDecodeMultistatusPrefixScoping(t *testing.T) {
	// same properties under unusual prefixes must decode identically
	body := `<a:multistatus xmlns:a="DAV:" xmlns:z="urn:example">
  <a:response>
    <a:href>/x</a:href>
    <a:propstat>
      <a:prop>
        <z:color>red</z:color>
        <b:getetag xmlns:b="DAV:">"e1"</b:getetag>
      </a:prop>
      <a:status>HTTP/1.1 200 OK</a:status>
    </a:propstat>
  </a:response>
</a:multistatus>`
	ms, err := DecodeMultistatus(nil, strings.NewReader(body))
	assert.NoError(t, err)
	ent := ms.Entries[0]
	etag, ok := ent.Lookup(PropEtag)
	assert.True(t, ok)
	assert.Equal(t, `"e1"`, etag.Value.Typed.Text)
	color, ok := ent.Lookup(NewPropName("urn:example", "color"))
	assert.True(t, ok)
	assert.Equal(t, ValueRaw, color.Value.Kind)
	assert.Equal(t, "red", string(color.Value.Raw))
}

func TestDecodeResourceType(t *testing.T) {
	body := `<D:multistatus xmlns:D="DAV:">
  <D:response>
    <D:href>/f</D:href>
    <D:propstat>
      <D:prop><D:resourcetype/></D:prop>
      <D:status>HTTP/1.1 200 OK</D:status>
    </D:propstat>
  </D:response>
</D:multistatus>`
	ms, err := DecodeMultistatus(nil, strings.NewReader(body))
	assert.NoError(t, err)
	rt, ok := ms.Entries[0].Lookup(PropResourceType)
	assert.True(t, ok)
	assert.Equal(t, ValueTyped, rt.Value.Kind)
	assert.False(t, rt.Value.Typed.Collection)
	assert.False(t, ms.Entries[0].IsCollection())
}

func TestDecodeRawPreservation(t *testing.T) {
	body := `<D:multistatus xmlns:D="DAV:" xmlns:z="urn:example">
  <D:response>
    <D:href>/x</D:href>
    <D:propstat>
      <D:prop><z:meta><z:item rank="1">a &amp; b</z:item></z:meta></D:prop>
      <D:status>HTTP/1.1 200 OK</D:status>
    </D:propstat>
  </D:response>
</D:multistatus>`
	ms, err := DecodeMultistatus(nil, strings.NewReader(body))
	assert.NoError(t, err)
	pr, ok := ms.Entries[0].Lookup(NewPropName("urn:example", "meta"))
	assert.True(t, ok)
	assert.Equal(t, `<item xmlns="urn:example" rank="1">a &amp; b</item>`, string(pr.Value.Raw))
}

func TestDecodeLastModified(t *testing.T) {
	body := `<D:multistatus xmlns:D="DAV:">
  <D:response>
    <D:href>/f</D:href>
    <D:propstat>
      <D:prop>
        <D:getlastmodified>Tue, 15 Nov 1994 12:45:26 GMT</D:getlastmodified>
        <D:creationdate>1997-12-01T17:42:21-08:00</D:creationdate>
      </D:prop>
      <D:status>HTTP/1.1 200 OK</D:status>
    </D:propstat>
  </D:response>
</D:multistatus>`
	ms, err := DecodeMultistatus(nil, strings.NewReader(body))
	assert.NoError(t, err)
	mod, ok := ms.Entries[0].Lookup(PropLastModified)
	assert.True(t, ok)
	assert.Equal(t, time.Date(1994, 11, 15, 12, 45, 26, 0, time.UTC), mod.Value.Typed.Time)
	created, ok := ms.Entries[0].Lookup(PropCreationDate)
	assert.True(t, ok)
	assert.Equal(t, 1997, created.Value.Typed.Time.Year())
}

func TestDecodeLockDiscoveryProp(t *testing.T) {
	body := `<D:multistatus xmlns:D="DAV:">
  <D:response>
    <D:href>/f</D:href>
    <D:propstat>
      <D:prop>
        <D:lockdiscovery>
          <D:activelock>
            <D:lockscope><D:exclusive/></D:lockscope>
            <D:locktype><D:write/></D:locktype>
            <D:depth>0</D:depth>
            <D:owner>alice</D:owner>
            <D:timeout>Second-600</D:timeout>
            <D:locktoken><D:href>urn:uuid:t1</D:href></D:locktoken>
          </D:activelock>
        </D:lockdiscovery>
      </D:prop>
      <D:status>HTTP/1.1 200 OK</D:status>
    </D:propstat>
  </D:response>
</D:multistatus>`
	ms, err := DecodeMultistatus(nil, strings.NewReader(body))
	assert.NoError(t, err)
	pr, ok := ms.Entries[0].Lookup(PropLockDiscovery)
	assert.True(t, ok)
	assert.Equal(t, ValueTyped, pr.Value.Kind)
	assert.Len(t, pr.Value.Typed.Locks, 1)
	lk := pr.Value.Typed.Locks[0]
	assert.Equal(t, LockExclusive, lk.Scope)
	assert.Equal(t, DepthZero, lk.Depth)
	assert.Equal(t, "alice", lk.Owner)
	assert.Equal(t, "Second-600", lk.Timeout)
	assert.Equal(t, "urn:uuid:t1", lk.Token)
}

func TestProppatchRoundTrip(t *testing.T) {
	// a raw fragment captured from a response can be written back unchanged
	raw := []byte(`<item xmlns="urn:example" rank="1">a &amp; b</item>`)
	_, body, err := EncodeProppatch([]PatchOp{
		{Op: PropSet, Name: NewPropName("urn:example", "meta"), Raw: raw},
	})
	assert.NoError(t, err)
	assert.Contains(t, string(body), string(raw))

	// the names of an acknowledging multistatus match the patched names
	names := []PropName{NewPropName("urn:example", "meta"), DAVProp("displayname")}
	ack := `<D:multistatus xmlns:D="DAV:" xmlns:z="urn:example">
  <D:response>
    <D:href>/x</D:href>
    <D:propstat>
      <D:prop><z:meta/><D:displayname/></D:prop>
      <D:status>HTTP/1.1 200 OK</D:status>
    </D:propstat>
  </D:response>
</D:multistatus>`
	ms, err := DecodeMultistatus(nil, strings.NewReader(ack))
	assert.NoError(t, err)
	assert.Len(t, ms.Entries[0].Props, len(names))
	for _, n := range names {
		pr, ok := ms.Entries[0].Lookup(n)
		assert.True(t, ok)
		assert.True(t, pr.IsSuccess())
	}
}

func TestDecodeSimple(t *testing.T) {
	h := http.Header{}
	h.Set("Etag", `"abc"`)
	res, err := DecodeSimple(http.StatusCreated, h, nil)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusCreated, res.Status)
	assert.Equal(t, `"abc"`, res.ETag)

	h = http.Header{}
	h.Set("Location", "http://example.com/elsewhere")
	res, err = DecodeSimple(http.StatusMovedPermanently, h, nil)
	assert.NoError(t, err)
	assert.Equal(t, "http://example.com/elsewhere", res.Location)

	_, err = DecodeSimple(http.StatusConflict, http.Header{}, []byte("parent missing"))
	var pe *ProtocolError
	assert.ErrorAs(t, err, &pe)
	assert.Equal(t, http.StatusConflict, pe.Status)
	assert.Equal(t, "parent missing", pe.Message)
}

func TestDecodeLockResponse(t *testing.T) {
	body := `<?xml version="1.0"?>
<D:prop xmlns:D="DAV:">
  <D:lockdiscovery>
    <D:activelock>
      <D:lockscope><D:exclusive/></D:lockscope>
      <D:locktype><D:write/></D:locktype>
      <D:depth>infinity</D:depth>
      <D:timeout>Second-3600</D:timeout>
      <D:locktoken><D:href>urn:uuid:abc123</D:href></D:locktoken>
      <D:lockroot><D:href>http://example.com/f</D:href></D:lockroot>
    </D:activelock>
  </D:lockdiscovery>
</D:prop>`
	res, err := DecodeLockResponse(http.StatusOK, http.Header{}, []byte(body))
	assert.NoError(t, err)
	assert.Equal(t, "urn:uuid:abc123", res.Token)
	assert.Equal(t, DepthInfinity, res.Lock.Depth)
	assert.Equal(t, "Second-3600", res.Lock.Timeout)

	// header token wins and an empty body is fine
	h := http.Header{}
	h.Set("Lock-Token", "<urn:uuid:hdr>")
	res, err = DecodeLockResponse(http.StatusOK, h, nil)
	assert.NoError(t, err)
	assert.Equal(t, "urn:uuid:hdr", res.Token)

	_, err = DecodeLockResponse(http.StatusOK, http.Header{}, []byte(`<D:prop xmlns:D="DAV:"/>`))
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestParseStatusLine(t *testing.T) {
	code, err := parseStatusLine("HTTP/1.1 404 Not Found")
	assert.NoError(t, err)
	assert.Equal(t, 404, code)
	code, err = parseStatusLine(" 207 Multi-Status ")
	assert.NoError(t, err)
	assert.Equal(t, 207, code)
	_, err = parseStatusLine("HTTP/1.1 junk")
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestTrimTokenHeader(t *testing.T) {
	assert.Equal(t, "urn:uuid:x", TrimTokenHeader(" <urn:uuid:x> "))
	assert.Equal(t, "urn:uuid:x", TrimTokenHeader("urn:uuid:x"))
}
