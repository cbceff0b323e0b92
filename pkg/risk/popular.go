package risk

import (
	"bufio"
	"bytes"
	"embed"
	"os"
	"strings"
	"sync"

	"github.com/depscout/depscout/pkg/aggregate"
	"github.com/depscout/depscout/pkg/errors"
	"github.com/depscout/depscout/pkg/manifest"
)

//go:embed data/popular_npm.txt data/popular_pypi.txt data/popular_cargo.txt data/popular_gem.txt
var popularFS embed.FS

var (
	popularOnce sync.Once
	popularSets map[manifest.Ecosystem][]string
)

// builtinPopular lazily loads the embedded popularity lists, keyed by
// ecosystem. Names are stored in canonical form.
func builtinPopular() map[manifest.Ecosystem][]string {
	popularOnce.Do(func() {
		popularSets = make(map[manifest.Ecosystem][]string)
		files := map[manifest.Ecosystem]string{
			manifest.EcosystemNPM:   "data/popular_npm.txt",
			manifest.EcosystemPip:   "data/popular_pypi.txt",
			manifest.EcosystemCargo: "data/popular_cargo.txt",
			manifest.EcosystemGem:   "data/popular_gem.txt",
		}
		for eco, path := range files {
			data, err := popularFS.ReadFile(path)
			if err != nil {
				continue
			}
			popularSets[eco] = parsePopular(eco, bufio.NewScanner(bytes.NewReader(data)))
		}
	})
	return popularSets
}

// LoadPopularFile reads a user-supplied popularity list. Each non-empty
// line is "<ecosystem> <name>"; lines starting with # are comments.
func LoadPopularFile(path string) (map[manifest.Ecosystem][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "open popularity list")
	}
	defer f.Close()

	sets := make(map[manifest.Ecosystem][]string)
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, errors.New(errors.ErrCodeInvalidConfig, "popularity list line %q is not \"ecosystem name\"", line)
		}
		eco := manifest.Ecosystem(fields[0])
		sets[eco] = append(sets[eco], aggregate.Normalize(eco, fields[1]))
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "read popularity list")
	}
	return sets, nil
}

func parsePopular(eco manifest.Ecosystem, sc *bufio.Scanner) []string {
	var names []string
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		names = append(names, aggregate.Normalize(eco, line))
	}
	return names
}
