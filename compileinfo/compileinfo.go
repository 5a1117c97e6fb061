// Package compileinfo describes how the running binary was built, from the
// build information embedded by the go toolchain.
package compileinfo

import (
	"fmt"
	"os"
	"path"
	"runtime/debug"
)

type CompileInfo struct {
	Tool       string
	Module     string
	Version    string
	GoVersion  string
	Commit     string
	CommitTime string
	Modified   bool
}

func (c CompileInfo) String() string {
	if c.GoVersion == "" {
		return "No build information is available for this binary."
	}

	commit := ""
	if c.Commit != "" {
		commit = fmt.Sprintf(" at commit %v (%v)", c.Commit, c.CommitTime)
	}

	mod := ""
	if c.Modified {
		mod = " Files in the repo were modified after that commit."
	}

	return fmt.Sprintf("%s %s (%s) was built with %s%s.%s", c.Tool, c.Version, c.Module, c.GoVersion, commit, mod)
}

func Get() CompileInfo {
	z, ok := debug.ReadBuildInfo()
	if !ok {
		return CompileInfo{}
	}

	return fromBuildInfo(z)
}

func fromBuildInfo(z *debug.BuildInfo) CompileInfo {
	out := CompileInfo{
		Tool:      path.Base(z.Path),
		Module:    z.Main.Path,
		Version:   z.Main.Version,
		GoVersion: z.GoVersion,
	}

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

func PrintToStdErr() {
	fmt.Fprintf(os.Stderr, "%s\n", Get())
}
