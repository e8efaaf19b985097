package proto

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/xxxsen/davkit/davpath"
)

// DecodeMultistatus parses a 207 body into its per resource entries. base is
// the request url the response hrefs are resolved against; it may be nil when
// every href is absolute. The whole body is rejected with
// ErrMalformedResponse when it is not well formed xml, is not a DAV:
// multistatus, contains zero response blocks, or leaves any property without
// a status at both the property and the resource scope.
func DecodeMultistatus(base *url.URL, r io.Reader) (*Multistatus, error) {
	dec := xml.NewDecoder(r)
	root, err := nextStart(dec)
	if err != nil {
		return nil, fmt.Errorf("%w: no document element, err:%v", ErrMalformedResponse, err)
	}
	if root.Name.Space != NamespaceDAV || root.Name.Local != "multistatus" {
		return nil, fmt.Errorf("%w: document element is %s:%s, not DAV: multistatus", ErrMalformedResponse, root.Name.Space, root.Name.Local)
	}
	ms := &Multistatus{}
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if start.Name.Space == NamespaceDAV && start.Name.Local == "response" {
			entry, err := decodeResponse(dec, base)
			if err != nil {
				return nil, err
			}
			ms.Entries = append(ms.Entries, *entry)
			continue
		}
		if err := dec.Skip(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
	}
	if len(ms.Entries) == 0 {
		return nil, fmt.Errorf("%w: multistatus carries zero response blocks", ErrMalformedResponse)
	}
	return ms, nil
}

// decodeResponse consumes one DAV: response element.
func decodeResponse(dec *xml.Decoder, base *url.URL) (*ResourceEntry, error) {
	entry := &ResourceEntry{}
	type pendingStat struct {
		status int
		hasSt  bool
		props  []PropResult
	}
	var stats []pendingStat
	var haveHref bool
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		if _, done := tok.(xml.EndElement); done {
			break
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if start.Name.Space != NamespaceDAV {
			if err := dec.Skip(); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
			}
			continue
		}
		switch start.Name.Local {
		case "href":
			href, err := collectText(dec)
			if err != nil {
				return nil, err
			}
			p, err := davpath.FromHref(base, href)
			if err != nil {
				return nil, fmt.Errorf("%w: bad href %q, err:%v", ErrMalformedResponse, href, err)
			}
			entry.Path = p
			haveHref = true
		case "status":
			line, err := collectText(dec)
			if err != nil {
				return nil, err
			}
			code, err := parseStatusLine(line)
			if err != nil {
				return nil, err
			}
			entry.Status = code
		case "propstat":
			ps := pendingStat{}
			if err := decodePropstat(dec, &ps.props, &ps.status, &ps.hasSt); err != nil {
				return nil, err
			}
			stats = append(stats, ps)
		default:
			if err := dec.Skip(); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
			}
		}
	}
	if !haveHref {
		return nil, fmt.Errorf("%w: response block without href", ErrMalformedResponse)
	}
	// Status scoping: a property takes its propstat status first and the
	// resource level status second. No status at either scope is a protocol
	// violation, never an implicit success.
	for _, ps := range stats {
		st := ps.status
		if !ps.hasSt {
			if entry.Status == 0 {
				return nil, fmt.Errorf("%w: no status at property or resource scope for %s", ErrMalformedResponse, entry.Path)
			}
			st = entry.Status
		}
		for _, p := range ps.props {
			p.Status = st
			entry.Props = append(entry.Props, p)
		}
	}
	if len(stats) != 0 {
		// the bare status form and the propstat form are mutually exclusive
		entry.Status = 0
	} else if entry.Status == 0 {
		return nil, fmt.Errorf("%w: response block for %s carries neither propstat nor status", ErrMalformedResponse, entry.Path)
	}
	return entry, nil
}

func decodePropstat(dec *xml.Decoder, props *[]PropResult, status *int, hasStatus *bool) error {
	for {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		if _, done := tok.(xml.EndElement); done {
			return nil
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if start.Name.Space != NamespaceDAV {
			if err := dec.Skip(); err != nil {
				return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
			}
			continue
		}
		switch start.Name.Local {
		case "status":
			line, err := collectText(dec)
			if err != nil {
				return err
			}
			code, err := parseStatusLine(line)
			if err != nil {
				return err
			}
			*status = code
			*hasStatus = true
		case "prop":
			if err := decodePropList(dec, props); err != nil {
				return err
			}
		default:
			if err := dec.Skip(); err != nil {
				return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
			}
		}
	}
}

// decodePropList consumes the children of one DAV: prop element, producing
// one PropResult per child in document order.
func decodePropList(dec *xml.Decoder, props *[]PropResult) error {
	for {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		if _, done := tok.(xml.EndElement); done {
			return nil
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		name := PropName{Local: start.Name.Local}
		if len(start.Name.Space) != 0 {
			name = NewPropName(start.Name.Space, start.Name.Local)
		}
		val, err := decodePropValue(dec, start)
		if err != nil {
			return err
		}
		*props = append(*props, PropResult{Name: name, Value: val})
	}
}

// decodePropValue captures the inner xml of one property element verbatim
// and, for the well known DAV: properties, additionally decodes a typed
// value from it.
func decodePropValue(dec *xml.Decoder, start xml.StartElement) (PropValue, error) {
	frag, text, err := captureFragment(dec)
	if err != nil {
		return PropValue{}, err
	}
	empty := len(frag) == 0 && len(strings.TrimSpace(text)) == 0
	// an empty resourcetype is still meaningful: it says "not a collection"
	if empty && !(start.Name.Space == NamespaceDAV && start.Name.Local == "resourcetype") {
		return PropValue{Kind: ValueAbsent}, nil
	}
	v := PropValue{Kind: ValueRaw, Raw: frag}
	if start.Name.Space != NamespaceDAV {
		return v, nil
	}
	if tv, ok := decodeTyped(start.Name.Local, frag, text); ok {
		v.Kind = ValueTyped
		v.Typed = tv
	}
	return v, nil
}

func decodeTyped(local string, frag []byte, text string) (TypedValue, bool) {
	text = strings.TrimSpace(text)
	switch local {
	case "displayname", "getetag", "getcontenttype":
		return TypedValue{Kind: TypedText, Text: text}, true
	case "getcontentlength":
		n, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return TypedValue{}, false
		}
		return TypedValue{Kind: TypedInt, Int: n}, true
	case "getlastmodified":
		t, err := http.ParseTime(text)
		if err != nil {
			return TypedValue{}, false
		}
		return TypedValue{Kind: TypedTime, Time: t}, true
	case "creationdate":
		t, err := time.Parse(time.RFC3339, text)
		if err != nil {
			return TypedValue{}, false
		}
		return TypedValue{Kind: TypedTime, Time: t}, true
	case "resourcetype":
		return TypedValue{Kind: TypedResourceType, Collection: bytes.Contains(frag, []byte("<collection"))}, true
	case "lockdiscovery":
		locks, err := decodeActiveLocks(frag)
		if err != nil {
			return TypedValue{}, false
		}
		return TypedValue{Kind: TypedLocks, Locks: locks}, true
	}
	return TypedValue{}, false
}

// captureFragment serializes everything up to the matching end element.
// Every element is written with an explicit xmlns attribute so the fragment
// stays namespace stable without the enclosing document.
func captureFragment(dec *xml.Decoder) ([]byte, string, error) {
	var buf bytes.Buffer
	var text strings.Builder
	depth := 0
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			writeStart(&buf, t)
		case xml.EndElement:
			if depth == 0 {
				return buf.Bytes(), text.String(), nil
			}
			depth--
			buf.WriteString("</" + t.Name.Local + ">")
		case xml.CharData:
			if depth == 0 {
				text.Write(t)
			}
			_ = xml.EscapeText(&buf, t)
		}
	}
}

func writeStart(buf *bytes.Buffer, t xml.StartElement) {
	buf.WriteString("<" + t.Name.Local)
	if len(t.Name.Space) != 0 {
		buf.WriteString(` xmlns="` + escapeAttr(t.Name.Space) + `"`)
	}
	for _, a := range t.Attr {
		if a.Name.Space == "xmlns" || a.Name.Local == "xmlns" {
			continue
		}
		buf.WriteString(" " + a.Name.Local + `="` + escapeAttr(a.Value) + `"`)
	}
	buf.WriteString(">")
}

func nextStart(dec *xml.Decoder) (xml.StartElement, error) {
	for {
		tok, err := dec.Token()
		if err != nil {
			return xml.StartElement{}, err
		}
		if start, ok := tok.(xml.StartElement); ok {
			return start, nil
		}
	}
}

func collectText(dec *xml.Decoder) (string, error) {
	var b strings.Builder
	depth := 0
	for {
		tok, err := dec.Token()
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		switch tok.(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			if depth == 0 {
				return b.String(), nil
			}
			depth--
		case xml.CharData:
			b.Write(tok.(xml.CharData))
		}
	}
}

// parseStatusLine extracts the numeric code from a status line such as
// "HTTP/1.1 404 Not Found".
func parseStatusLine(line string) (int, error) {
	for _, f := range strings.Fields(line) {
		if len(f) != 3 {
			continue
		}
		code, err := strconv.Atoi(f)
		if err == nil && code >= 100 && code <= 599 {
			return code, nil
		}
	}
	return 0, fmt.Errorf("%w: bad status line %q", ErrMalformedResponse, line)
}

type xmlHrefValue struct {
	Href string `xml:"DAV: href"`
}

type xmlLockScopeValue struct {
	Exclusive *struct{} `xml:"DAV: exclusive"`
	Shared    *struct{} `xml:"DAV: shared"`
}

type xmlOwnerValue struct {
	Href string `xml:"DAV: href"`
	Text string `xml:",chardata"`
}

type xmlActiveLock struct {
	Scope   xmlLockScopeValue `xml:"DAV: lockscope"`
	Depth   string            `xml:"DAV: depth"`
	Owner   xmlOwnerValue     `xml:"DAV: owner"`
	Timeout string            `xml:"DAV: timeout"`
	Token   xmlHrefValue      `xml:"DAV: locktoken"`
	Root    xmlHrefValue      `xml:"DAV: lockroot"`
}

type xmlLockDiscovery struct {
	XMLName xml.Name        `xml:"DAV: lockdiscovery"`
	Active  []xmlActiveLock `xml:"DAV: activelock"`
}

func decodeActiveLocks(frag []byte) ([]ActiveLock, error) {
	doc := `<lockdiscovery xmlns="DAV:">` + string(frag) + `</lockdiscovery>`
	var ld xmlLockDiscovery
	if err := xml.Unmarshal([]byte(doc), &ld); err != nil {
		return nil, fmt.Errorf("%w: bad lockdiscovery, err:%v", ErrMalformedResponse, err)
	}
	locks := make([]ActiveLock, 0, len(ld.Active))
	for _, a := range ld.Active {
		locks = append(locks, convertActiveLock(a))
	}
	return locks, nil
}

func convertActiveLock(a xmlActiveLock) ActiveLock {
	l := ActiveLock{
		Owner:   strings.TrimSpace(a.Owner.Text),
		Timeout: strings.TrimSpace(a.Timeout),
		Token:   strings.TrimSpace(a.Token.Href),
		Root:    strings.TrimSpace(a.Root.Href),
	}
	if len(a.Owner.Href) != 0 {
		l.Owner = strings.TrimSpace(a.Owner.Href)
	}
	if a.Scope.Shared != nil {
		l.Scope = LockShared
	}
	l.Depth, _ = ParseDepth(strings.TrimSpace(a.Depth))
	return l
}

// ParseDepth maps the wire form of the Depth header back to the enum.
func ParseDepth(s string) (Depth, error) {
	switch s {
	case "0":
		return DepthZero, nil
	case "1":
		return DepthOne, nil
	case "infinity", "Infinity":
		return DepthInfinity, nil
	}
	return DepthZero, fmt.Errorf("%w: bad depth %q", ErrMalformedResponse, s)
}

// SimpleResult is the outcome of a non multistatus method.
type SimpleResult struct {
	Status   int
	Location string
	ETag     string
	Token    string
}

// DecodeSimple maps a non multistatus response into a simple outcome.
// 2xx and 3xx produce a result (3xx with the redirect target); everything
// else produces a ProtocolError carrying a best effort server message.
func DecodeSimple(status int, header http.Header, body []byte) (*SimpleResult, error) {
	if status >= 200 && status < 300 {
		return &SimpleResult{
			Status: status,
			ETag:   header.Get("Etag"),
			Token:  TrimTokenHeader(header.Get("Lock-Token")),
		}, nil
	}
	if status >= 300 && status < 400 {
		return &SimpleResult{Status: status, Location: header.Get("Location")}, nil
	}
	return nil, &ProtocolError{Status: status, Message: snippet(body)}
}

// DecodeLockResponse interprets a successful LOCK exchange: token from the
// Lock-Token header with the body's lockdiscovery as fallback.
func DecodeLockResponse(status int, header http.Header, body []byte) (*LockResult, error) {
	if status < 200 || status >= 300 {
		return nil, &ProtocolError{Status: status, Message: snippet(body)}
	}
	var prop struct {
		XMLName   xml.Name         `xml:"DAV: prop"`
		Discovery xmlLockDiscovery `xml:"DAV: lockdiscovery"`
	}
	// refresh responses may come back with no body at all
	if len(bytes.TrimSpace(body)) != 0 {
		if err := xml.Unmarshal(body, &prop); err != nil {
			return nil, fmt.Errorf("%w: bad lock response body, err:%v", ErrMalformedResponse, err)
		}
	}
	res := &LockResult{Token: TrimTokenHeader(header.Get("Lock-Token"))}
	if len(prop.Discovery.Active) != 0 {
		res.Lock = convertActiveLock(prop.Discovery.Active[0])
	}
	if len(res.Token) == 0 {
		res.Token = res.Lock.Token
	}
	if len(res.Token) == 0 {
		return nil, fmt.Errorf("%w: lock response carries no lock token", ErrMalformedResponse)
	}
	if len(res.Lock.Token) == 0 {
		res.Lock.Token = res.Token
	}
	return res, nil
}

// TrimTokenHeader strips the angle bracket coding of a Lock-Token header.
func TrimTokenHeader(v string) string {
	v = strings.TrimSpace(v)
	v = strings.TrimPrefix(v, "<")
	v = strings.TrimSuffix(v, ">")
	return v
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 512 {
		s = s[:512]
	}
	return s
}
