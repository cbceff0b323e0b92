package registry

import (
	"context"
	"errors"
	"time"

	"github.com/depscout/depscout/pkg/manifest"
)

// Packagist checks vendor/name pairs against packagist.org.
type Packagist struct {
	BaseURL string
	client  *Client
}

func NewPackagist(client *Client) *Packagist {
	return &Packagist{BaseURL: "https://repo.packagist.org", client: client}
}

func (p *Packagist) Ecosystem() manifest.Ecosystem { return manifest.EcosystemComposer }

func (p *Packagist) Check(ctx context.Context, name string) (Verdict, error) {
	var data struct {
		Packages map[string][]struct {
			Time    time.Time `json:"time"`
			Authors []struct {
				Name string `json:"name"`
			} `json:"authors"`
		} `json:"packages"`
	}

	err := p.client.Get(ctx, p.BaseURL+"/p2/"+name+".json", &data)
	if errors.Is(err, ErrNotFound) {
		return Verdict{Exists: false}, nil
	}
	if err != nil {
		return Verdict{}, err
	}

	versions, ok := data.Packages[name]
	if !ok || len(versions) == 0 {
		return Verdict{Exists: false}, nil
	}

	// p2 metadata lists the newest version first.
	v := Verdict{Exists: true}
	latest := versions[0]
	if !latest.Time.IsZero() {
		t := latest.Time
		v.LastPublish = &t
	}
	if len(latest.Authors) > 0 {
		v.Owner = latest.Authors[0].Name
	}
	return v, nil
}

var _ Checker = (*Packagist)(nil)
