// Package version holds the build identity shared by the CLI and the
// HTTP /version endpoint, so both surfaces report the same values.
package version

// Info is the JSON shape the HTTP surface returns at GET /version.
type Info struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Name and Version are overridden at build time via -ldflags for release
// builds; Version defaults to a development marker otherwise.
var (
	Name    = "beingdb"
	Version = "dev"
)

func Current() Info {
	return Info{Name: Name, Version: Version}
}
