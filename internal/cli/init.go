package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/dialin/internal/config"
)

func newInitCmd(opts *rootOptions) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default equipment file for editing",
		Long: `init writes the default grinder and basket settings to the equipment file
so they can be edited by hand. An existing file is kept unless --force is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := opts.settingsFile
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists, use --force to overwrite it", path)
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("checking %s: %w", path, err)
			}

			eq := config.DefaultEquipment()
			if err := config.WriteEquipment(path, eq); err != nil {
				return err
			}

			if opts.jsonOut {
				return printJSON(cmd.OutOrStdout(), eq)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (grinder %g-%g step %g, dose %g-%gg)\n", path,
				eq.Grinder.ScaleMin, eq.Grinder.ScaleMax, eq.Grinder.StepSize, eq.Basket.CoffeeInMin, eq.Basket.CoffeeInMax)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing equipment file")
	return cmd
}
