package cli

import (
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/canonica-labs/engarde/internal/sources/builtin"
	"github.com/canonica-labs/engarde/pkg/checks"
)

// BuildInfo describes the binary and what it can validate.
type BuildInfo struct {
	Version  string   `json:"version"`
	Commit   string   `json:"commit"`
	Built    string   `json:"built"`
	Runtime  string   `json:"runtime"`
	Platform string   `json:"platform"`
	Checks   []string `json:"checks"`
	Sources  []string `json:"sources"`
}

// SetVersionInfo overrides the build metadata; empty values keep the defaults.
func SetVersionInfo(version, commit, date string) {
	for dst, v := range map[*string]string{&Version: version, &GitCommit: commit, &BuildDate: date} {
		if v != "" {
			*dst = v
		}
	}
}

func currentBuild() BuildInfo {
	return BuildInfo{
		Version:  Version,
		Commit:   GitCommit,
		Built:    BuildDate,
		Runtime:  runtime.Version(),
		Platform: runtime.GOOS + "/" + runtime.GOARCH,
		Checks:   checks.Names(),
		Sources:  builtin.Registry().Kinds(),
	}
}

func (c *CLI) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build metadata and supported checks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := currentBuild()
			if c.jsonOutput {
				return c.outputJSON(info)
			}
			c.printf("engarde %s (%s, %s) %s %s\n", info.Version, info.Commit, info.Built, info.Runtime, info.Platform)
			c.printf("checks:  %s\n", strings.Join(info.Checks, ", "))
			c.printf("sources: %s\n", strings.Join(info.Sources, ", "))
			return nil
		},
	}
}
