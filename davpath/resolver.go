// Package davpath turns a base collection url plus a caller supplied
// relative path into the absolute request url a WebDAV exchange needs, and
// maps response hrefs back into logical resource paths.
//
// Paths are kept in canonical form: percent decoded, a single leading
// slash, no redundant separators, and a trailing slash when and only when
// the path names a collection. Segment boundaries are fixed before
// decoding, so an encoded separator inside a name ("a%2Fb") stays one
// segment in request urls; in the decoded logical path such a name is
// indistinguishable from a boundary, which is inherent to the decoded
// representation.
package davpath

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrInvalidPath marks a base url or relative path that cannot be turned
// into a request url.
var ErrInvalidPath = errors.New("davkit: invalid path")

// Resolve builds the absolute request url for rel below base. rel may be
// empty, meaning the base collection itself. Already percent encoded input
// is decoded first so resolving an output again yields the same url.
func Resolve(base string, rel string) (string, error) {
	u, err := ResolveURL(base, rel)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

// ResolveURL is Resolve returning the parsed url.
func ResolveURL(base string, rel string) (*url.URL, error) {
	bu, err := parseBase(base)
	if err != nil {
		return nil, err
	}
	if strings.ContainsRune(rel, 0) {
		return nil, fmt.Errorf("%w: path contains NUL", ErrInvalidPath)
	}
	segs, isCol := splitPath(bu.EscapedPath())
	relSegs, relCol := splitPath(rel)
	if len(relSegs) != 0 {
		isCol = relCol
	} else if len(rel) != 0 {
		// rel of "/", "." and the like still names the collection
		isCol = true
	}
	for _, s := range relSegs {
		if s == ".." {
			if len(segs) != 0 {
				segs = segs[:len(segs)-1]
			}
			continue
		}
		segs = append(segs, s)
	}
	p, rp := joinPath(segs, isCol)
	out := &url.URL{Scheme: bu.Scheme, Host: bu.Host, Path: p, RawPath: rp}
	return out, nil
}

func parseBase(base string) (*url.URL, error) {
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("%w: parse base %q failed, err:%v", ErrInvalidPath, base, err)
	}
	if !u.IsAbs() || len(u.Host) == 0 {
		return nil, fmt.Errorf("%w: base url %q is not absolute", ErrInvalidPath, base)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidPath, u.Scheme)
	}
	return u, nil
}

// decodeSegment percent decodes one segment. Input that is not valid percent
// encoding is taken literally so a lone '%' in a name still round trips.
func decodeSegment(s string) string {
	dec, err := url.PathUnescape(s)
	if err != nil {
		return s
	}
	return dec
}

// splitPath breaks a possibly percent encoded path into its decoded
// segments, dropping empty and "." segments, and reports whether the input
// followed the trailing slash collection convention. Splitting happens
// before decoding, so an encoded separator inside a segment ("a%2Fb") stays
// part of that segment instead of becoming a boundary.
func splitPath(p string) ([]string, bool) {
	parts := strings.Split(p, "/")
	segs := make([]string, 0, len(parts))
	for _, s := range parts {
		if len(s) == 0 || s == "." {
			continue
		}
		segs = append(segs, decodeSegment(s))
	}
	isCol := strings.HasSuffix(p, "/") || strings.HasSuffix(p, "/.") || len(segs) == 0
	return segs, isCol
}

// joinPath builds the decoded path and its escaped form from decoded
// segments. The escaped form keeps a literal '/' inside a segment as %2F.
func joinPath(segs []string, isCol bool) (string, string) {
	if len(segs) == 0 {
		return "/", "/"
	}
	var b strings.Builder
	var rb strings.Builder
	for _, s := range segs {
		b.WriteString("/")
		b.WriteString(s)
		rb.WriteString("/")
		rb.WriteString(url.PathEscape(s))
	}
	if isCol {
		b.WriteString("/")
		rb.WriteString("/")
	}
	return b.String(), rb.String()
}

// FromHref maps one multistatus href back to a canonical logical path. The
// href may be an absolute url, an absolute path, or (against the letter of
// the protocol, but seen in the wild) a path relative to the request url.
func FromHref(base *url.URL, href string) (string, error) {
	href = strings.TrimSpace(href)
	if len(href) == 0 {
		return "", fmt.Errorf("%w: empty href", ErrInvalidPath)
	}
	u, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("%w: parse href %q failed, err:%v", ErrInvalidPath, href, err)
	}
	if !u.IsAbs() && !strings.HasPrefix(u.Path, "/") && base != nil {
		u = base.ResolveReference(u)
	}
	segs, isCol := splitPath(u.EscapedPath())
	p, _ := joinPath(segs, isCol)
	return p, nil
}

// IsCollection reports whether a canonical path names a collection.
func IsCollection(p string) bool {
	return strings.HasSuffix(p, "/")
}

// Base returns the last segment of a canonical path, the way a directory
// listing wants to display it.
func Base(p string) string {
	p = strings.TrimSuffix(p, "/")
	if idx := strings.LastIndex(p, "/"); idx >= 0 {
		p = p[idx+1:]
	}
	if len(p) == 0 {
		return "/"
	}
	return p
}
