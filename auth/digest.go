package auth

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/xxxsen/davkit/transport"
)

const (
	DigestAuthName = "digest"
)

func init() {
	register(DigestAuthName, func(user string, pass string) IAuth {
		return &digestAuth{user: user, pass: pass}
	})
}

type digestAuth struct {
	user string
	pass string
	nc   atomic.Uint64
}

func (d *digestAuth) Name() string {
	return DigestAuthName
}

func (d *digestAuth) NeedChallenge() bool {
	return true
}

func (d *digestAuth) Apply(req *transport.Request, challenge string) error {
	ch, err := parseDigestChallenge(challenge)
	if err != nil {
		return err
	}
	u, err := url.Parse(req.URL)
	if err != nil {
		return fmt.Errorf("parse request url failed, err:%w", err)
	}
	uri := u.EscapedPath()
	if len(uri) == 0 {
		uri = "/"
	}

	cnonce := strings.ReplaceAll(uuid.NewString(), "-", "")
	nc := fmt.Sprintf("%08x", d.nc.Add(1))

	ha1 := md5hex(d.user + ":" + ch.realm + ":" + d.pass)
	if strings.EqualFold(ch.algorithm, "MD5-sess") {
		ha1 = md5hex(ha1 + ":" + ch.nonce + ":" + cnonce)
	}
	ha2 := md5hex(req.Method + ":" + uri)

	var response string
	if len(ch.qop) != 0 {
		response = md5hex(strings.Join([]string{ha1, ch.nonce, nc, cnonce, ch.qop, ha2}, ":"))
	} else {
		response = md5hex(ha1 + ":" + ch.nonce + ":" + ha2)
	}

	var b strings.Builder
	fmt.Fprintf(&b, `Digest username=%q, realm=%q, nonce=%q, uri=%q, response=%q`,
		d.user, ch.realm, ch.nonce, uri, response)
	if len(ch.algorithm) != 0 {
		fmt.Fprintf(&b, `, algorithm=%s`, ch.algorithm)
	}
	if len(ch.opaque) != 0 {
		fmt.Fprintf(&b, `, opaque=%q`, ch.opaque)
	}
	if len(ch.qop) != 0 {
		fmt.Fprintf(&b, `, qop=%s, nc=%s, cnonce=%q`, ch.qop, nc, cnonce)
	}
	req.Header.Set("Authorization", b.String())
	return nil
}

type digestChallenge struct {
	realm     string
	nonce     string
	opaque    string
	algorithm string
	qop       string
}

func parseDigestChallenge(v string) (*digestChallenge, error) {
	const prefix = "digest "
	if len(v) < len(prefix) || !strings.EqualFold(v[:len(prefix)], prefix) {
		return nil, fmt.Errorf("not a digest challenge:%q", v)
	}
	ch := &digestChallenge{}
	for _, kv := range splitChallengeParams(v[len(prefix):]) {
		idx := strings.Index(kv, "=")
		if idx < 0 {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(kv[:idx]))
		val := strings.Trim(strings.TrimSpace(kv[idx+1:]), `"`)
		switch key {
		case "realm":
			ch.realm = val
		case "nonce":
			ch.nonce = val
		case "opaque":
			ch.opaque = val
		case "algorithm":
			ch.algorithm = val
		case "qop":
			// servers may offer "auth,auth-int"; body hashing is not
			// supported here, pick plain auth
			for _, q := range strings.Split(val, ",") {
				if strings.TrimSpace(q) == "auth" {
					ch.qop = "auth"
					break
				}
			}
		}
	}
	if len(ch.nonce) == 0 {
		return nil, fmt.Errorf("digest challenge carries no nonce:%q", v)
	}
	return ch, nil
}

// splitChallengeParams splits on commas that are outside quoted strings.
func splitChallengeParams(s string) []string {
	var parts []string
	var cur strings.Builder
	quoted := false
	for _, r := range s {
		switch {
		case r == '"':
			quoted = !quoted
			cur.WriteRune(r)
		case r == ',' && !quoted:
			parts = append(parts, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	if cur.Len() != 0 {
		parts = append(parts, cur.String())
	}
	return parts
}

func md5hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}
