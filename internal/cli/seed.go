package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/dialin/internal/seed"
)

func runSeed(cmd *cobra.Command, a *app, beans, shots int, rngSeed uint64) (*seed.Result, error) {
	ctx := cmd.Context()

	grinder, err := a.settings.Grinder(ctx)
	if err != nil {
		return nil, err
	}
	basket, err := a.settings.Basket(ctx)
	if err != nil {
		return nil, err
	}

	gen := seed.NewGenerator(rngSeed, a.analyzer, grinder, basket, time.Now())
	return gen.Run(ctx, a.beans, a.shots, seed.Options{Beans: beans, ShotsPerBean: shots, Seed: rngSeed})
}

func newSeedCmd(opts *rootOptions) *cobra.Command {
	var (
		beans   int
		shots   int
		rngSeed int64
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Fill the journal with generated beans and shots",
		Args:  cobra.NoArgs,
		RunE: opts.withApp(func(cmd *cobra.Command, args []string, a *app) error {
			if beans < 1 || shots < 0 {
				return fmt.Errorf("--beans must be at least 1 and --shots must not be negative")
			}
			if rngSeed == 0 {
				rngSeed = time.Now().UnixNano()
			}

			res, err := runSeed(cmd, a, beans, shots, uint64(rngSeed))
			if err != nil {
				return err
			}
			if opts.jsonOut {
				return printJSON(cmd.OutOrStdout(), res)
			}
			total, err := a.shots.Count(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d beans and %d shots, journal now holds %d shots\n", res.Beans, res.Shots, total)
			return nil
		}),
	}
	cmd.Flags().IntVar(&beans, "beans", 3, "Number of beans to create")
	cmd.Flags().IntVar(&shots, "shots", 10, "Shots per bean")
	cmd.Flags().Int64Var(&rngSeed, "seed", 0, "Random seed (0 picks one)")
	return cmd
}
