package picaprs

import (
	"fmt"
	"runtime/debug"
)

// Set at build time via `-ldflags "-X 'github.com/doismellburning/picaprs/src.PICAPRS_VERSION=X'"`
var PICAPRS_VERSION string

// describeBuild gives the version, short revision and build time for
// the banner.  Anything bi does not know is reported as unknown.
func describeBuild(bi *debug.BuildInfo, version string) string {
	var revision, when, dirty = "unknown", "unknown", ""

	if version == "" && bi != nil && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		version = bi.Main.Version
	}
	if version == "" {
		version = "!UNKNOWN!"
	}

	if bi != nil {
		for _, bs := range bi.Settings {
			switch bs.Key {
			case "vcs.revision":
				revision = bs.Value
				if len(revision) > 12 {
					revision = revision[:12]
				}
			case "vcs.time":
				when = bs.Value
			case "vcs.modified":
				if bs.Value == "true" {
					dirty = "-dirty"
				}
			}
		}
	}

	return fmt.Sprintf("picaprs - Version %s (revision %s%s, built at %s)", version, revision, dirty, when)
}

func versionString() string {
	var bi, _ = debug.ReadBuildInfo()
	return describeBuild(bi, PICAPRS_VERSION)
}

func printVersion(verbose bool) {
	fmt.Println(versionString())

	if verbose {
		if bi, ok := debug.ReadBuildInfo(); ok {
			fmt.Printf("%s built with %s\n", bi.Main.Path, bi.GoVersion)
		}
	}
}
