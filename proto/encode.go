package proto

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	// ContentTypeXML is the media type all WebDAV request bodies carry.
	ContentTypeXML = "application/xml; charset=utf-8"

	// TimeoutInfinite asks the server for a lock that never expires.
	TimeoutInfinite = time.Duration(-1)

	xmlHeader = `<?xml version="1.0" encoding="utf-8"?>`
	davPrefix = "D"
)

// PropfindRequest describes one PROPFIND. A nil Props list asks for all
// properties; NameOnly asks for property names without values.
type PropfindRequest struct {
	Depth    Depth
	Props    []PropName
	NameOnly bool
}

// ProppatchOp selects what a PatchOp does to its property.
type ProppatchOp int

const (
	PropSet ProppatchOp = iota
	PropRemove
)

// PatchOp is one ordered step of a PROPPATCH. Text is escaped character
// content; Raw is inserted verbatim as inner xml and must be well formed.
// At most one of the two may be set, and removes carry neither.
type PatchOp struct {
	Op   ProppatchOp
	Name PropName
	Text string
	Raw  []byte
}

// LockRequest describes one LOCK. A zero Timeout sends no preference;
// TimeoutInfinite asks for a non expiring lock. Depth may only be
// DepthZero or DepthInfinity.
type LockRequest struct {
	Scope   LockScope
	Owner   string
	Depth   Depth
	Timeout time.Duration
}

// nsAlloc hands out stable namespace prefixes in first-appearance order so
// that encoding the same structure twice yields the same document.
type nsAlloc struct {
	prefixes map[string]string
	order    []string
}

func newNsAlloc() *nsAlloc {
	return &nsAlloc{prefixes: map[string]string{NamespaceDAV: davPrefix}}
}

func (n *nsAlloc) prefixOf(space string) string {
	if space == NamespaceDAV {
		return davPrefix
	}
	if p, ok := n.prefixes[space]; ok {
		return p
	}
	p := fmt.Sprintf("ns%d", len(n.order)+1)
	n.prefixes[space] = p
	n.order = append(n.order, space)
	return p
}

// declare writes the xmlns attributes for every allocated prefix.
func (n *nsAlloc) declare(b *strings.Builder) {
	fmt.Fprintf(b, ` xmlns:%s="%s"`, davPrefix, NamespaceDAV)
	for _, space := range n.order {
		fmt.Fprintf(b, ` xmlns:%s="%s"`, n.prefixes[space], escapeAttr(space))
	}
}

func escapeAttr(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return strings.ReplaceAll(buf.String(), "&#34;", "&quot;")
}

func escapeText(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}

func validXMLName(name string) bool {
	if len(name) == 0 {
		return false
	}
	return !strings.ContainsAny(name, " \t\r\n<>&\"'/=")
}

// qualified returns the element name for p, allocating a prefix when the
// property lives in a namespace. Names without a namespace (and names whose
// namespace is the empty string, which the xml data model cannot tell apart
// on the wire) stay bare.
func (n *nsAlloc) qualified(p PropName) (string, error) {
	if !validXMLName(p.Local) {
		return "", &EncodingError{Reason: fmt.Sprintf("invalid property name %q", p.Local)}
	}
	if !p.HasSpace || len(p.Space) == 0 {
		return p.Local, nil
	}
	return n.prefixOf(p.Space) + ":" + p.Local, nil
}

// EncodePropfind builds headers and body for a PROPFIND request.
func EncodePropfind(req *PropfindRequest) (http.Header, []byte, error) {
	ns := newNsAlloc()
	names := make([]string, 0, len(req.Props))
	for _, p := range req.Props {
		q, err := ns.qualified(p)
		if err != nil {
			return nil, nil, err
		}
		names = append(names, q)
	}
	var b strings.Builder
	b.WriteString(xmlHeader)
	b.WriteString("<" + davPrefix + ":propfind")
	ns.declare(&b)
	b.WriteString(">")
	switch {
	case req.NameOnly:
		b.WriteString("<" + davPrefix + ":propname/>")
	case len(names) == 0:
		b.WriteString("<" + davPrefix + ":allprop/>")
	default:
		b.WriteString("<" + davPrefix + ":prop>")
		for _, q := range names {
			b.WriteString("<" + q + "/>")
		}
		b.WriteString("</" + davPrefix + ":prop>")
	}
	b.WriteString("</" + davPrefix + ":propfind>")

	h := make(http.Header)
	h.Set("Depth", req.Depth.String())
	h.Set("Content-Type", ContentTypeXML)
	return h, []byte(b.String()), nil
}

// EncodeProppatch builds headers and body for a PROPPATCH request. Each op
// becomes its own set/remove block so the server observes the exact caller
// order even when it applies patches one by one.
func EncodeProppatch(ops []PatchOp) (http.Header, []byte, error) {
	if len(ops) == 0 {
		return nil, nil, &EncodingError{Reason: "proppatch needs at least one operation"}
	}
	ns := newNsAlloc()
	type step struct {
		tag   string
		name  string
		inner string
	}
	steps := make([]step, 0, len(ops))
	for _, op := range ops {
		q, err := ns.qualified(op.Name)
		if err != nil {
			return nil, nil, err
		}
		if len(op.Text) != 0 && len(op.Raw) != 0 {
			return nil, nil, &EncodingError{Reason: fmt.Sprintf("property %s carries both text and raw content", op.Name)}
		}
		switch op.Op {
		case PropSet:
			inner := op.Text
			if len(op.Raw) != 0 {
				inner = string(op.Raw)
			} else {
				inner = escapeText(inner)
			}
			steps = append(steps, step{tag: davPrefix + ":set", name: q, inner: inner})
		case PropRemove:
			if len(op.Text) != 0 || len(op.Raw) != 0 {
				return nil, nil, &EncodingError{Reason: fmt.Sprintf("remove of %s must not carry a value", op.Name)}
			}
			steps = append(steps, step{tag: davPrefix + ":remove", name: q})
		default:
			return nil, nil, &EncodingError{Reason: fmt.Sprintf("unknown proppatch op %d", op.Op)}
		}
	}

	var b strings.Builder
	b.WriteString(xmlHeader)
	b.WriteString("<" + davPrefix + ":propertyupdate")
	ns.declare(&b)
	b.WriteString(">")
	for _, s := range steps {
		b.WriteString("<" + s.tag + "><" + davPrefix + ":prop>")
		if len(s.inner) == 0 {
			b.WriteString("<" + s.name + "/>")
		} else {
			b.WriteString("<" + s.name + ">" + s.inner + "</" + s.name + ">")
		}
		b.WriteString("</" + davPrefix + ":prop></" + s.tag + ">")
	}
	b.WriteString("</" + davPrefix + ":propertyupdate>")

	h := make(http.Header)
	h.Set("Content-Type", ContentTypeXML)
	return h, []byte(b.String()), nil
}

// EncodeLock builds headers and body for a LOCK request.
func EncodeLock(req *LockRequest) (http.Header, []byte, error) {
	if req.Depth == DepthOne {
		return nil, nil, &EncodingError{Reason: "lock depth must be 0 or infinity"}
	}
	var b strings.Builder
	b.WriteString(xmlHeader)
	b.WriteString("<" + davPrefix + ":lockinfo")
	newNsAlloc().declare(&b)
	b.WriteString(">")
	b.WriteString("<" + davPrefix + ":lockscope>")
	if req.Scope == LockShared {
		b.WriteString("<" + davPrefix + ":shared/>")
	} else {
		b.WriteString("<" + davPrefix + ":exclusive/>")
	}
	b.WriteString("</" + davPrefix + ":lockscope>")
	b.WriteString("<" + davPrefix + ":locktype><" + davPrefix + ":write/></" + davPrefix + ":locktype>")
	if len(req.Owner) != 0 {
		b.WriteString("<" + davPrefix + ":owner>" + escapeText(req.Owner) + "</" + davPrefix + ":owner>")
	}
	b.WriteString("</" + davPrefix + ":lockinfo>")

	h := make(http.Header)
	h.Set("Depth", req.Depth.String())
	h.Set("Content-Type", ContentTypeXML)
	if v := encodeTimeout(req.Timeout); len(v) != 0 {
		h.Set("Timeout", v)
	}
	return h, []byte(b.String()), nil
}

// EncodeRefreshLock builds the headers of a LOCK refresh, which carries no
// body and proves ownership through the If header.
func EncodeRefreshLock(token string, timeout time.Duration) (http.Header, error) {
	ifv, err := EncodeIfHeader(token)
	if err != nil {
		return nil, err
	}
	h := make(http.Header)
	h.Set("If", ifv)
	if v := encodeTimeout(timeout); len(v) != 0 {
		h.Set("Timeout", v)
	}
	return h, nil
}

func encodeTimeout(d time.Duration) string {
	switch {
	case d == TimeoutInfinite:
		return "Infinite"
	case d > 0:
		return fmt.Sprintf("Second-%d", int64(d/time.Second))
	}
	return ""
}

// EncodeIfHeader builds the conditional If header value from a lock token.
// An absent or malformed token fails with ErrMissingLockToken before any
// transport call is made.
func EncodeIfHeader(token string) (string, error) {
	if len(token) == 0 {
		return "", ErrMissingLockToken
	}
	if strings.ContainsAny(token, " \t\r\n<>") {
		return "", fmt.Errorf("%w: malformed token %q", ErrMissingLockToken, token)
	}
	return "(<" + token + ">)", nil
}

// EncodeUnlock builds the UNLOCK headers. The Lock-Token header is what RFC
// 4918 requires; the If header is set as well so servers that validate the
// conditional form accept the request.
func EncodeUnlock(token string) (http.Header, error) {
	ifv, err := EncodeIfHeader(token)
	if err != nil {
		return nil, err
	}
	h := make(http.Header)
	h.Set("Lock-Token", "<"+token+">")
	h.Set("If", ifv)
	return h, nil
}

// EncodeCopyMove builds the COPY/MOVE headers. dst must already be an
// absolute url produced by the resolver.
func EncodeCopyMove(dst string, overwrite bool, depth Depth) http.Header {
	h := make(http.Header)
	h.Set("Destination", dst)
	if overwrite {
		h.Set("Overwrite", "T")
	} else {
		h.Set("Overwrite", "F")
	}
	h.Set("Depth", depth.String())
	return h
}
