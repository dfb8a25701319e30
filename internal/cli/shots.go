package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/dialin/internal/analysis"
	"github.com/ZanzyTHEbar/dialin/internal/database"
	"github.com/ZanzyTHEbar/dialin/internal/validation"
)

// filterFlags are the shared --bean/--from/--to options
type filterFlags struct {
	beanID string
	from   string
	to     string
	limit  string
}

func (f *filterFlags) register(cmd *cobra.Command, withLimit bool) {
	cmd.Flags().StringVar(&f.beanID, "bean", "", "Only shots of this bean ID")
	cmd.Flags().StringVar(&f.from, "from", "", "Earliest shot (YYYY-MM-DD or RFC 3339)")
	cmd.Flags().StringVar(&f.to, "to", "", "Latest shot (YYYY-MM-DD or RFC 3339)")
	if withLimit {
		cmd.Flags().StringVar(&f.limit, "limit", "20", "Maximum number of shots")
	}
}

func (f *filterFlags) parse() (validation.ShotFilter, error) {
	return validation.ParseShotFilter(f.beanID, f.from, f.to, f.limit)
}

func (f *filterFlags) analysisFilter() (analysis.Filter, error) {
	sf, err := f.parse()
	if err != nil {
		return analysis.Filter{}, err
	}
	return analysis.Filter{BeanID: sf.BeanID, From: sf.From, To: sf.To}, nil
}

func newShotsCmd(opts *rootOptions) *cobra.Command {
	shotsCmd := &cobra.Command{
		Use:   "shots",
		Short: "Browse the shot history",
	}

	var filters filterFlags
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List recent shots, newest first",
		Args:  cobra.NoArgs,
		RunE: opts.withApp(func(cmd *cobra.Command, args []string, a *app) error {
			sf, err := filters.parse()
			if err != nil {
				return err
			}

			shots, err := a.shots.List(cmd.Context(), database.ShotQuery{
				BeanID:     sf.BeanID,
				From:       sf.From,
				To:         sf.To,
				Limit:      sf.Limit,
				Descending: true,
			})
			if err != nil {
				return err
			}
			if opts.jsonOut {
				return printJSON(cmd.OutOrStdout(), shots)
			}

			out := cmd.OutOrStdout()
			if len(shots) == 0 {
				fmt.Fprintln(out, "No shots recorded")
				return nil
			}
			for _, s := range shots {
				taste := "-"
				if s.TastePrimary != nil {
					taste = string(*s.TastePrimary)
				}
				fmt.Fprintf(out, "  %-36s  %s  %5.1fg -> %5.1fg  1:%-5.2f  %3ds  grind %-6s  %s\n",
					s.ID, s.Timestamp.Local().Format("2006-01-02 15:04"),
					s.CoffeeWeightIn, s.CoffeeWeightOut, s.RoundedBrewRatio(),
					s.ExtractionTimeSeconds, s.GrinderSetting, taste)
			}
			return nil
		}),
	}
	filters.register(listCmd, true)

	shotsCmd.AddCommand(listCmd)
	return shotsCmd
}
