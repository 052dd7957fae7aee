package cmd

import (
	"fmt"
	"io"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// version is set with -ldflags "-X github.com/abhisek/studycoach/cmd.version=v1.2.3".
var version = ""

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the build version",
	Run: func(cmd *cobra.Command, args []string) {
		info, _ := debug.ReadBuildInfo()
		printVersion(os.Stdout, version, info)
	},
}

// printVersion falls back to the module version recorded by go install,
// then to the VCS revision of a local build.
func printVersion(w io.Writer, ldflag string, info *debug.BuildInfo) {
	v, rev, dirty := ldflag, "", false
	if info != nil {
		if v == "" && info.Main.Version != "" && info.Main.Version != "(devel)" {
			v = info.Main.Version
		}
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				rev = s.Value
			case "vcs.modified":
				dirty = s.Value == "true"
			}
		}
	}
	if v == "" {
		v = "(devel)"
	}
	if len(rev) > 12 {
		rev = rev[:12]
	}
	if dirty {
		rev += "-dirty"
	}
	if rev != "" {
		fmt.Fprintf(w, "studycoach %s (%s)\n", v, rev)
		return
	}
	fmt.Fprintf(w, "studycoach %s\n", v)
}
