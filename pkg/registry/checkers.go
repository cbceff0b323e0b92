package registry

// DefaultCheckers returns one checker per supported ecosystem, all sharing
// one HTTP client.
func DefaultCheckers(client *Client) []Checker {
	return []Checker{
		NewNPM(client),
		NewPyPI(client),
		NewMavenCentral(client),
		NewPackagist(client),
		NewCrates(client),
		NewGoProxy(client),
		NewRubyGems(client),
		NewNuGet(client),
	}
}
