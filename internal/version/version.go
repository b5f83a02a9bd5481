// Package version carries storefront build metadata. The linker fills the
// package variables at release time:
//
//	go build -ldflags "-X storefront/internal/version.Version=v1.4.0 \
//	    -X storefront/internal/version.GitCommit=$(git rev-parse HEAD) \
//	    -X storefront/internal/version.BuildDate=$(date -u +%FT%TZ)"
package version

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sync"

	"github.com/google/uuid"
)

const unset = "unknown"

var (
	Version   = unset
	BuildDate = unset
	GitCommit = unset
)

// Info describes this binary and the process running it.
// InstanceID distinguishes replicas that share a hostname pattern.
type Info struct {
	Version    string `json:"version"`
	GitCommit  string `json:"git_commit"`
	BuildDate  string `json:"build_date"`
	GoVersion  string `json:"go_version"`
	InstanceID string `json:"instance_id"`
	Hostname   string `json:"hostname"`
}

var current = sync.OnceValue(func() Info {
	host, err := os.Hostname()
	if err != nil {
		host = unset
	}
	return Info{
		Version:    Version,
		GitCommit:  GitCommit,
		BuildDate:  BuildDate,
		GoVersion:  runtime.Version(),
		InstanceID: uuid.NewString(),
		Hostname:   host,
	}
})

// GetInfo returns the process-wide Info. The instance id is generated on first use.
func GetInfo() Info {
	return current()
}

// String formats version info for CLI display.
func (i Info) String() string {
	return fmt.Sprintf("storefront version %s (commit: %s, built: %s, %s)", i.Version, i.GitCommit, i.BuildDate, i.GoVersion)
}

// UserAgent is the User-Agent header sent by storefront HTTP clients.
func (i Info) UserAgent() string {
	return "storefront/" + i.Version
}

// LogAttrs returns the attributes stamped on every log record.
func (i Info) LogAttrs() []any {
	return []any{
		slog.String("version", i.Version),
		slog.String("git_commit", i.GitCommit),
		slog.String("build_date", i.BuildDate),
		slog.String("instance_id", i.InstanceID),
	}
}
