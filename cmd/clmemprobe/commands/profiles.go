package commands

import (
	"github.com/spf13/cobra"

	"github.com/gogpu/clmem/backend/soft"
)

func newProfilesCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "Print the device profiles in effect",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			devices, err := opts.loadProfiles()
			if err != nil {
				return err
			}
			out, err := soft.MarshalProfiles(devices)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}
