// Package version exposes the ChromeLogger protocol version and build metadata of the running binary.
package version

import (
	"runtime/debug"
	"time"
)

// Protocol is the ChromeLogger data format version sent in every payload.
const Protocol = "4.1.0"

// Information describes the build of the running binary.
type Information struct {
	GitCommit string    `json:"git_commit"`
	Modified  bool      `json:"modified"`
	Version   string    `json:"version"`
	GoVersion string    `json:"go_version"`
	Date      time.Time `json:"-"`
}

// Info is populated from the build information embedded by the go toolchain.
var Info = fromBuildInfo(debug.ReadBuildInfo())

func fromBuildInfo(bi *debug.BuildInfo, ok bool) Information {
	info := Information{Version: "(devel)"}
	if !ok || bi == nil {
		return info
	}

	info.GoVersion = bi.GoVersion
	if bi.Main.Version != "" {
		info.Version = bi.Main.Version
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			info.GitCommit = s.Value
		case "vcs.modified":
			info.Modified = s.Value == "true"
		case "vcs.time":
			info.Date = parseDate(s.Value)
		}
	}
	return info
}

func parseDate(s string) time.Time {
	d, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return d.UTC()
}
