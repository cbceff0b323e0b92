package registry

import (
	"context"
	"errors"
	"time"

	"github.com/depscout/depscout/pkg/manifest"
)

// RubyGems checks names against rubygems.org.
type RubyGems struct {
	BaseURL string
	client  *Client
}

func NewRubyGems(client *Client) *RubyGems {
	return &RubyGems{BaseURL: "https://rubygems.org", client: client}
}

func (r *RubyGems) Ecosystem() manifest.Ecosystem { return manifest.EcosystemGem }

func (r *RubyGems) Check(ctx context.Context, name string) (Verdict, error) {
	var data struct {
		Name             string `json:"name"`
		Authors          string `json:"authors"`
		VersionCreatedAt string `json:"version_created_at"`
	}

	err := r.client.Get(ctx, r.BaseURL+"/api/v1/gems/"+name+".json", &data)
	if errors.Is(err, ErrNotFound) {
		return Verdict{Exists: false}, nil
	}
	if err != nil {
		return Verdict{}, err
	}

	v := Verdict{Exists: true, Owner: data.Authors}
	if t, err := time.Parse(time.RFC3339, data.VersionCreatedAt); err == nil {
		v.LastPublish = &t
	}
	return v, nil
}

var _ Checker = (*RubyGems)(nil)
