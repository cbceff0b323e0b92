package registry

import (
	"context"
	"errors"
	"time"

	"github.com/depscout/depscout/pkg/manifest"
)

// PyPI checks names against the Python package index.
type PyPI struct {
	BaseURL string
	client  *Client
}

func NewPyPI(client *Client) *PyPI {
	return &PyPI{BaseURL: "https://pypi.org", client: client}
}

func (p *PyPI) Ecosystem() manifest.Ecosystem { return manifest.EcosystemPip }

func (p *PyPI) Check(ctx context.Context, name string) (Verdict, error) {
	var data struct {
		Info struct {
			Author     string `json:"author"`
			Maintainer string `json:"maintainer"`
		} `json:"info"`
		URLs []struct {
			UploadTime string `json:"upload_time_iso_8601"`
		} `json:"urls"`
	}

	err := p.client.Get(ctx, p.BaseURL+"/pypi/"+name+"/json", &data)
	if errors.Is(err, ErrNotFound) {
		return Verdict{Exists: false}, nil
	}
	if err != nil {
		return Verdict{}, err
	}

	v := Verdict{Exists: true, Owner: data.Info.Author}
	if v.Owner == "" {
		v.Owner = data.Info.Maintainer
	}
	if len(data.URLs) > 0 {
		if t, err := time.Parse(time.RFC3339, data.URLs[0].UploadTime); err == nil {
			v.LastPublish = &t
		}
	}
	return v, nil
}

var _ Checker = (*PyPI)(nil)
