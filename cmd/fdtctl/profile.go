package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuapare/fdtkit/pkg/fdt"
)

var profileConfig string

func init() {
	cmd := newProfileCmd()
	cmd.Flags().StringVar(&profileConfig, "config", "", "YAML profile to load over the defaults")
	rootCmd.AddCommand(cmd)
}

func newProfileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile [--config profile.yaml]",
		Short: "Print the effective passthrough profile",
		Long: `The profile command prints the passthrough profile as YAML: the Xen
defaults, or the result of loading --config over them. The output is a
valid --config file.

Example:
  fdtctl profile > xen.yaml
  fdtctl profile --config custom.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProfile()
		},
	}
	return cmd
}

func runProfile() error {
	opts := fdt.DefaultOptions()
	if profileConfig != "" {
		var err error
		if opts, err = fdt.LoadProfile(profileConfig); err != nil {
			return err
		}
	}
	data, err := fdt.MarshalProfile(opts)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(os.Stdout, string(data))
	return err
}
