package registry

import (
	"context"
	"errors"
	"strings"

	"github.com/depscout/depscout/pkg/manifest"
)

// NuGet checks ids against the nuget.org flat container.
type NuGet struct {
	BaseURL string
	client  *Client
}

func NewNuGet(client *Client) *NuGet {
	return &NuGet{BaseURL: "https://api.nuget.org", client: client}
}

func (n *NuGet) Ecosystem() manifest.Ecosystem { return manifest.EcosystemNuGet }

func (n *NuGet) Check(ctx context.Context, name string) (Verdict, error) {
	var data struct {
		Versions []string `json:"versions"`
	}

	id := strings.ToLower(name)
	err := n.client.Get(ctx, n.BaseURL+"/v3-flatcontainer/"+id+"/index.json", &data)
	if errors.Is(err, ErrNotFound) {
		return Verdict{Exists: false}, nil
	}
	if err != nil {
		return Verdict{}, err
	}
	return Verdict{Exists: len(data.Versions) > 0}, nil
}

var _ Checker = (*NuGet)(nil)
