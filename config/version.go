package config

import "fmt"

var (
	Version       = "dev"
	CommitHash    = "n/a"
	BuildTime     = "n/a"
	VersionString = fmt.Sprintf("%s-%s (%s)", Version, CommitHash, BuildTime)
)

// UserAgent identifies the exporter on outbound Customer.io requests.
func UserAgent() string {
	return "cioexport/" + Version
}
