package auth

import (
	"encoding/base64"

	"github.com/xxxsen/davkit/transport"
)

const (
	BasicAuthName = "basic"
)

func init() {
	register(BasicAuthName, func(user string, pass string) IAuth {
		return &basicAuth{user: user, pass: pass}
	})
}

type basicAuth struct {
	user string
	pass string
}

func (b *basicAuth) Name() string {
	return BasicAuthName
}

func (b *basicAuth) NeedChallenge() bool {
	return false
}

func (b *basicAuth) Apply(req *transport.Request, _ string) error {
	cred := base64.StdEncoding.EncodeToString([]byte(b.user + ":" + b.pass))
	req.Header.Set("Authorization", "Basic "+cred)
	return nil
}
