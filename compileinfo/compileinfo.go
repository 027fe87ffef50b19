// Package compileinfo reports which commit a binary was built from, so that
// archived runs and server logs can be traced back to the code that produced
// them.
package compileinfo

import (
	"fmt"
	"io"
	"runtime/debug"
)

type CompileInfo struct {
	Package    string
	GoVersion  string
	Commit     string
	CommitTime string
	Modified   bool
}

func (c CompileInfo) String() string {
	mod := ""
	if c.Modified {
		mod = " Files in the repo were modified after that commit."
	}

	return fmt.Sprintf("This %s binary was built with %s at commit %v at time %v.%s", c.Package, c.GoVersion, c.Commit, c.CommitTime, mod)
}

// Build is the compact form stored alongside archived runs: the commit, with a
// "+modified" suffix for dirty trees, or "unknown" outside of a VCS build.
func (c CompileInfo) Build() string {
	if c.Commit == "" {
		return "unknown"
	}
	if c.Modified {
		return c.Commit + "+modified"
	}
	return c.Commit
}

func Get() CompileInfo {
	out := CompileInfo{}

	z, ok := debug.ReadBuildInfo()
	if !ok {
		return out
	}

	out.GoVersion = z.GoVersion
	out.Package = z.Path
	for _, s := range z.Settings {
		switch s.Key {
		case "vcs.revision":
			out.Commit = s.Value
		case "vcs.time":
			out.CommitTime = s.Value
		case "vcs.modified":
			out.Modified = s.Value == "true"
		}
	}

	return out
}

// Fprint writes the long description, one line, to w. Binaries call it with
// os.Stderr on startup.
func Fprint(w io.Writer) {
	fmt.Fprintf(w, "%s\n", Get())
}
