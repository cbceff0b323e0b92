package registry

import (
	"context"
	"errors"
	"time"

	"github.com/depscout/depscout/pkg/manifest"
)

// NPM checks names against the npm registry.
type NPM struct {
	BaseURL string
	client  *Client
}

func NewNPM(client *Client) *NPM {
	return &NPM{BaseURL: "https://registry.npmjs.org", client: client}
}

func (n *NPM) Ecosystem() manifest.Ecosystem { return manifest.EcosystemNPM }

func (n *NPM) Check(ctx context.Context, name string) (Verdict, error) {
	var data struct {
		Name        string            `json:"name"`
		Time        map[string]string `json:"time"`
		Maintainers []struct {
			Name string `json:"name"`
		} `json:"maintainers"`
	}

	// Scoped names keep their slash unencoded on this endpoint.
	err := n.client.Get(ctx, n.BaseURL+"/"+name, &data)
	if errors.Is(err, ErrNotFound) {
		return Verdict{Exists: false}, nil
	}
	if err != nil {
		return Verdict{}, err
	}

	v := Verdict{Exists: true}
	if len(data.Maintainers) > 0 {
		v.Owner = data.Maintainers[0].Name
	}
	if mod, ok := data.Time["modified"]; ok {
		if t, err := time.Parse(time.RFC3339, mod); err == nil {
			v.LastPublish = &t
		}
	}
	return v, nil
}

var _ Checker = (*NPM)(nil)
