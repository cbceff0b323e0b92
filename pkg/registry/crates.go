package registry

import (
	"context"
	"errors"
	"time"

	"github.com/depscout/depscout/pkg/manifest"
)

// Crates checks names against crates.io.
type Crates struct {
	BaseURL string
	client  *Client
}

func NewCrates(client *Client) *Crates {
	return &Crates{BaseURL: "https://crates.io", client: client}
}

func (c *Crates) Ecosystem() manifest.Ecosystem { return manifest.EcosystemCargo }

func (c *Crates) Check(ctx context.Context, name string) (Verdict, error) {
	var data struct {
		Crate struct {
			Name      string    `json:"name"`
			UpdatedAt time.Time `json:"updated_at"`
		} `json:"crate"`
	}

	err := c.client.Get(ctx, c.BaseURL+"/api/v1/crates/"+name, &data)
	if errors.Is(err, ErrNotFound) {
		return Verdict{Exists: false}, nil
	}
	if err != nil {
		return Verdict{}, err
	}

	v := Verdict{Exists: true}
	if !data.Crate.UpdatedAt.IsZero() {
		t := data.Crate.UpdatedAt
		v.LastPublish = &t
	}
	return v, nil
}

var _ Checker = (*Crates)(nil)
