package registry

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/depscout/depscout/pkg/manifest"
)

// MavenCentral checks group:artifact coordinates against the central
// search index. The index answers 200 with zero hits for unknown
// coordinates, so not-found is detected from the hit count.
type MavenCentral struct {
	BaseURL string
	client  *Client
}

func NewMavenCentral(client *Client) *MavenCentral {
	return &MavenCentral{BaseURL: "https://search.maven.org", client: client}
}

func (m *MavenCentral) Ecosystem() manifest.Ecosystem { return manifest.EcosystemMaven }

func (m *MavenCentral) Check(ctx context.Context, name string) (Verdict, error) {
	group, artifact, ok := strings.Cut(name, ":")
	if !ok {
		return Verdict{}, fmt.Errorf("not a group:artifact coordinate: %s", name)
	}

	var data struct {
		Response struct {
			NumFound int `json:"numFound"`
			Docs     []struct {
				Timestamp int64 `json:"timestamp"` // ms since epoch
			} `json:"docs"`
		} `json:"response"`
	}

	query := url.Values{
		"q":    {fmt.Sprintf(`g:%q AND a:%q`, group, artifact)},
		"rows": {"1"},
		"wt":   {"json"},
	}
	err := m.client.Get(ctx, m.BaseURL+"/solrsearch/select?"+query.Encode(), &data)
	if errors.Is(err, ErrNotFound) {
		return Verdict{Exists: false}, nil
	}
	if err != nil {
		return Verdict{}, err
	}

	if data.Response.NumFound == 0 {
		return Verdict{Exists: false}, nil
	}
	v := Verdict{Exists: true}
	if len(data.Response.Docs) > 0 && data.Response.Docs[0].Timestamp > 0 {
		t := time.UnixMilli(data.Response.Docs[0].Timestamp).UTC()
		v.LastPublish = &t
	}
	return v, nil
}

var _ Checker = (*MavenCentral)(nil)
