package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/dialin/internal/analysis"
	"github.com/ZanzyTHEbar/dialin/internal/types"
)

func newStatsCmd(opts *rootOptions) *cobra.Command {
	var filters filterFlags
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize ratios, times and quality",
		Args:  cobra.NoArgs,
		RunE: opts.withApp(func(cmd *cobra.Command, args []string, a *app) error {
			f, err := filters.analysisFilter()
			if err != nil {
				return err
			}
			summary, err := a.analytics.Summary(cmd.Context(), f)
			if err != nil {
				return err
			}
			if opts.jsonOut {
				return printJSON(cmd.OutOrStdout(), summary)
			}
			printSummary(cmd.OutOrStdout(), summary)
			return nil
		}),
	}
	filters.register(cmd, false)
	return cmd
}

func printSummary(out io.Writer, s *analysis.Summary) {
	if s.Count == 0 {
		fmt.Fprintln(out, "No shots match")
		return
	}

	fmt.Fprintf(out, "Shots:            %d\n", s.Count)
	fmt.Fprintf(out, "Brew ratio:       mean 1:%.2f  median 1:%.2f  range 1:%.2f-1:%.2f\n",
		s.Ratio.Mean, s.Ratio.Median, deref(s.Ratio.Min), deref(s.Ratio.Max))
	fmt.Fprintf(out, "Extraction time:  mean %.1fs  median %.1fs  range %.0f-%.0fs\n",
		s.ExtractionTime.Mean, s.ExtractionTime.Median, deref(s.ExtractionTime.Min), deref(s.ExtractionTime.Max))
	fmt.Fprintf(out, "In time window:   %.1f%%\n", s.OptimalTimePercentage)
	fmt.Fprintf(out, "Typical ratio:    %.1f%%\n", s.TypicalRatioPercentage)
	fmt.Fprintf(out, "Average quality:  %.1f\n", s.AverageQuality)
	if s.MostUsedGrinderSetting != "" {
		fmt.Fprintf(out, "Usual grind:      %s\n", s.MostUsedGrinderSetting)
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Extraction times:")
	for _, b := range s.TimeHistogram {
		fmt.Fprintf(out, "  %3.0f-%-3.0fs %s %d\n", b.Lower, b.Upper, strings.Repeat("#", b.Count), b.Count)
	}
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func newTrendCmd(opts *rootOptions) *cobra.Command {
	var filters filterFlags
	cmd := &cobra.Command{
		Use:   "trend",
		Short: "Compare older shots with newer ones",
		Args:  cobra.NoArgs,
		RunE: opts.withApp(func(cmd *cobra.Command, args []string, a *app) error {
			f, err := filters.analysisFilter()
			if err != nil {
				return err
			}
			trend, err := a.analytics.Trend(cmd.Context(), f)
			if err != nil {
				return err
			}
			if opts.jsonOut {
				return printJSON(cmd.OutOrStdout(), trend)
			}

			out := cmd.OutOrStdout()
			if trend.FirstHalf.Count+trend.SecondHalf.Count < 2 {
				fmt.Fprintln(out, "Need at least two shots for a trend")
				return nil
			}
			fmt.Fprintf(out, "Older %d shots:  ratio 1:%.2f  time %.1fs\n", trend.FirstHalf.Count, trend.FirstHalf.MeanRatio, trend.FirstHalf.MeanTime)
			fmt.Fprintf(out, "Newer %d shots:  ratio 1:%.2f  time %.1fs\n", trend.SecondHalf.Count, trend.SecondHalf.MeanRatio, trend.SecondHalf.MeanTime)
			fmt.Fprintf(out, "Change:          ratio %+.2f  time %+.1fs\n", trend.RatioDelta, trend.TimeDelta)
			fmt.Fprintf(out, "Outlook:         ratio 1:%.2f  time %.1fs\n", trend.Outlook.MeanRatio, trend.Outlook.MeanTime)
			if trend.Improving {
				fmt.Fprintln(out, "Improving: yes")
			} else {
				fmt.Fprintln(out, "Improving: no")
			}
			return nil
		}),
	}
	filters.register(cmd, false)
	return cmd
}

func newScoreCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "score <shot-id>",
		Short: "Score a saved shot and suggest the next grind",
		Args:  cobra.ExactArgs(1),
		RunE: opts.withApp(func(cmd *cobra.Command, args []string, a *app) error {
			result, err := a.shots.Analyze(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if opts.jsonOut {
				return printJSON(cmd.OutOrStdout(), result)
			}

			out := cmd.OutOrStdout()
			q := result.Quality
			fmt.Fprintf(out, "Score: %d/100 (%s)\n", q.Score, q.Grade)
			fmt.Fprintf(out, "  extraction time %2d  brew ratio %2d  taste %2d  consistency %2d  precision %2d\n",
				q.Breakdown.ExtractionTime, q.Breakdown.BrewRatio, q.Breakdown.Taste, q.Breakdown.Consistency, q.Breakdown.Precision)
			fmt.Fprintf(out, "Ratio: 1:%.2f\n", result.BrewRatio)
			if result.Freshness != "" {
				fmt.Fprintf(out, "Beans: %s\n", result.Freshness)
			}
			printRecommendation(out, &result.Recommendation)
			for _, insight := range result.Insights {
				fmt.Fprintf(out, "  - %s\n", insight)
			}
			return nil
		}),
	}
}

func newRecommendCmd(opts *rootOptions) *cobra.Command {
	var (
		req   types.RecommendRequest
		taste string
	)
	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Suggest a grind change for a shot you just pulled",
		Args:  cobra.NoArgs,
		RunE: opts.withApp(func(cmd *cobra.Command, args []string, a *app) error {
			if taste != "" {
				t := types.ParseTastePrimary(taste)
				req.TastePrimary = &t
			}
			rec, err := a.analytics.Recommend(cmd.Context(), req)
			if err != nil {
				return err
			}
			if opts.jsonOut {
				return printJSON(cmd.OutOrStdout(), rec)
			}
			printRecommendation(cmd.OutOrStdout(), rec)
			return nil
		}),
	}
	cmd.Flags().StringVar(&req.GrinderSetting, "setting", "", "Grinder setting used")
	cmd.Flags().IntVar(&req.ExtractionTimeSeconds, "time", 0, "Extraction time in seconds")
	cmd.Flags().StringVar(&taste, "taste", "", "perfect, slightly_sour, slightly_bitter, sour or bitter")
	_ = cmd.MarkFlagRequired("setting")
	_ = cmd.MarkFlagRequired("time")
	return cmd
}

func printRecommendation(out io.Writer, rec *analysis.Recommendation) {
	switch rec.Direction {
	case analysis.DirectionNoChange:
		fmt.Fprintf(out, "Next: keep grind at %s (%s confidence)\n", rec.CurrentSetting, rec.Confidence)
	default:
		target := ""
		if rec.SuggestedSetting != "" {
			target = " to " + rec.SuggestedSetting
		}
		fmt.Fprintf(out, "Next: %d step(s) %s%s (%s confidence)\n", rec.Steps, rec.Direction, target, rec.Confidence)
	}
	fmt.Fprintf(out, "  %s\n", rec.Reason)
	if rec.DoseHint != "" {
		fmt.Fprintf(out, "  %s\n", rec.DoseHint)
	}
}
