package registry

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/depscout/depscout/pkg/manifest"
)

// GoProxy checks module paths against the Go module proxy.
type GoProxy struct {
	BaseURL string
	client  *Client
}

func NewGoProxy(client *Client) *GoProxy {
	return &GoProxy{BaseURL: "https://proxy.golang.org", client: client}
}

func (g *GoProxy) Ecosystem() manifest.Ecosystem { return manifest.EcosystemGo }

func (g *GoProxy) Check(ctx context.Context, name string) (Verdict, error) {
	var data struct {
		Version string    `json:"Version"`
		Time    time.Time `json:"Time"`
	}

	err := g.client.Get(ctx, g.BaseURL+"/"+escapeModulePath(name)+"/@latest", &data)
	if errors.Is(err, ErrNotFound) {
		return Verdict{Exists: false}, nil
	}
	if err != nil {
		return Verdict{}, err
	}

	v := Verdict{Exists: true}
	if !data.Time.IsZero() {
		t := data.Time
		v.LastPublish = &t
	}
	return v, nil
}

// escapeModulePath applies the proxy protocol's case encoding: every
// uppercase letter becomes '!' followed by its lowercase form.
func escapeModulePath(path string) string {
	var b strings.Builder
	for _, r := range path {
		if r >= 'A' && r <= 'Z' {
			b.WriteByte('!')
			b.WriteRune(r + ('a' - 'A'))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

var _ Checker = (*GoProxy)(nil)
