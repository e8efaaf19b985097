// Package auth attaches credentials to outbound WebDAV exchanges. It sits
// between the protocol layer and the transport backend as a decorator, so
// the protocol core stays free of auth state.
package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/xxxsen/davkit/transport"
)

const (
	defaultChallengeCacheSize = 16
)

// IAuth is one authentication scheme. challenge carries the matching
// WWW-Authenticate value from an earlier 401, empty for schemes that work
// without one.
type IAuth interface {
	Name() string
	NeedChallenge() bool
	Apply(req *transport.Request, challenge string) error
}

type createFunc func(user string, pass string) IAuth

var schemes = make(map[string]createFunc)

func register(name string, fn createFunc) {
	schemes[name] = fn
}

// New wraps next so every exchange carries credentials for the named scheme
// ("basic" or "digest"). Challenge driven schemes keep a small per host
// challenge cache and replay a request at most once after a fresh 401.
func New(next transport.ITransport, name string, user string, pass string) (transport.ITransport, error) {
	fn, ok := schemes[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown auth scheme:%s", name)
	}
	cache, err := lru.New[string, string](defaultChallengeCacheSize)
	if err != nil {
		return nil, err
	}
	return &authTransport{
		next:  next,
		auth:  fn(user, pass),
		cache: cache,
	}, nil
}

type authTransport struct {
	next  transport.ITransport
	auth  IAuth
	cache *lru.Cache[string, string]
}

func (t *authTransport) RoundTrip(ctx context.Context, req *transport.Request) (*transport.Response, error) {
	host := hostOf(req.URL)
	challenge, _ := t.cache.Get(host)
	if len(challenge) != 0 || !t.auth.NeedChallenge() {
		if err := t.auth.Apply(req, challenge); err != nil {
			return nil, err
		}
	}
	rsp, err := t.next.RoundTrip(ctx, req)
	if err != nil {
		return nil, err
	}
	if rsp.StatusCode != http.StatusUnauthorized {
		return rsp, nil
	}
	fresh := matchChallenge(rsp.Header.Values("Www-Authenticate"), t.auth.Name())
	if len(fresh) == 0 || fresh == challenge || !req.Rewind() {
		return rsp, nil
	}
	_, _ = transport.ReadBody(rsp)
	t.cache.Add(host, fresh)
	req.Header.Del("Authorization")
	if err := t.auth.Apply(req, fresh); err != nil {
		return nil, err
	}
	return t.next.RoundTrip(ctx, req)
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return u.Host
}

func matchChallenge(values []string, scheme string) string {
	for _, v := range values {
		if strings.HasPrefix(strings.ToLower(strings.TrimSpace(v)), scheme) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
