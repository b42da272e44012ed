package commands

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gogpu/clmem"
	"github.com/gogpu/clmem/backend/native"
	"github.com/gogpu/clmem/backend/soft"
)

// defaultProfiles is used when --profiles is not given.
const defaultProfiles = `devices:
  - name: igpu
    unified_memory: true
    user_memory: true
  - name: dgpu
    tiled_textures: true
    row_alignment: 256
  - name: dgpu-deferred
    tiled_textures: true
    deferred: true
    memory_budget: 67108864
`

type rootOptions struct {
	profiles string
	verbose  bool
}

// NewRootCommand builds the clmemprobe command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "clmemprobe",
		Short: "Probe memory object mapping on soft and HAL devices",
		Long: `clmemprobe creates buffers and images on a set of devices, maps and
unmaps them, and reports whether each mapping pointed straight into device
memory or went through a shadow copy.

Soft devices are described by a YAML profile document. Without --profiles a
built-in set with a unified, a discrete and a deferred device is used.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			if !opts.verbose {
				return
			}
			l := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelDebug}))
			clmem.SetLogger(l)
			soft.SetLogger(l)
			native.SetLogger(l)
		},
	}
	root.PersistentFlags().StringVar(&opts.profiles, "profiles", "", "YAML device profile file")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log mapping decisions to stderr")

	root.AddCommand(newProfilesCommand(opts), newMapCommand(opts))
	return root
}

// Execute runs the root command.
func Execute() error {
	return NewRootCommand().Execute()
}

// loadProfiles reads the profile file, or the built-in profiles.
func (o *rootOptions) loadProfiles() ([]soft.Options, error) {
	var r io.Reader
	if o.profiles == "" {
		r = strings.NewReader(defaultProfiles)
	} else {
		f, err := os.Open(o.profiles)
		if err != nil {
			return nil, fmt.Errorf("open profiles: %w", err)
		}
		defer f.Close()
		r = f
	}
	return soft.LoadProfiles(r)
}
