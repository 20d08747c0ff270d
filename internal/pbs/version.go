package pbs

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/centre-for-microbiome-research/hpc-scripts/internal/config"
	"github.com/centre-for-microbiome-research/hpc-scripts/internal/utils"
	"golang.org/x/mod/semver"
)

// MinServerVersion is the oldest PBS release the attribute parsers are
// exercised against. Older servers mostly work but see a warning.
const MinServerVersion = "v19.0.0"

var versionRe = regexp.MustCompile(`(\d+\.\d+(\.\d+)?)`)

// ServerVersion parses the version string from qstat --version.
// Returns empty when the binary does not report one.
func ServerVersion() string {
	out, err := runCommand(fmt.Sprintf("%s --version", config.Global.QstatBin), nil)
	if err != nil {
		return ""
	}
	match := versionRe.FindString(strings.TrimSpace(string(out)))
	if match == "" {
		return ""
	}
	if strings.Count(match, ".") == 1 {
		match += ".0"
	}
	return "v" + match
}

// WarnIfOldServer compares the server version against MinServerVersion
// and warns once when it is older. Detection failures stay silent; the
// version gate is advisory only.
func WarnIfOldServer() {
	version := ServerVersion()
	if version == "" || !semver.IsValid(version) {
		return
	}
	if semver.Compare(version, MinServerVersion) < 0 {
		utils.PrintWarning("PBS server version %s is older than the supported minimum %s; "+
			"qstat output parsing may be unreliable", version, MinServerVersion)
	}
}
