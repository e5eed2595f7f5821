package meta

import (
	"fmt"
	"runtime"
)

// Info describes the build an rconctl binary came from.
type Info struct {
	Version   string
	Build     string
	Branch    string
	BuildTime string
	Platform  string
	GoVersion string
}

// These will be filled in using the linker -X flag, e.g.
//
//   go build -ldflags "-X github.com/luma/rconctl/internal/meta.Version=v0.1.0"
//
var (
	// Version as an arbitrary string
	Version = "dev"

	// Build is the Git sha from when we are building
	Build string

	// Branch is the Git branch that we are building from
	Branch string

	// BuildTimeUTC is the build time in UTC (year/month/day hour:min:sec)
	BuildTimeUTC string

	platform = fmt.Sprintf("%s %s", runtime.GOOS, runtime.GOARCH)
)

// GetInfo returns an Info struct populated with the build information.
func GetInfo() Info {
	return Info{
		GoVersion: runtime.Version(),
		Version:   Version,
		Build:     Build,
		Branch:    Branch,
		BuildTime: BuildTimeUTC,
		Platform:  platform,
	}
}

func (i Info) String() string {
	s := "rconctl " + i.Version

	if i.Build != "" {
		s += fmt.Sprintf(" (%s %s)", i.Branch, i.Build)
	}

	if i.BuildTime != "" {
		s += ", built " + i.BuildTime
	}

	return s + fmt.Sprintf(", %s %s", i.GoVersion, i.Platform)
}
