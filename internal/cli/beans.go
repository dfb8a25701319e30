package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/dialin/internal/types"
	"github.com/ZanzyTHEbar/dialin/internal/validation"
)

func newBeansCmd(opts *rootOptions) *cobra.Command {
	beansCmd := &cobra.Command{
		Use:   "beans",
		Short: "Manage the bean library",
	}

	var includeArchived bool
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List beans with their freshness",
		Args:  cobra.NoArgs,
		RunE: opts.withApp(func(cmd *cobra.Command, args []string, a *app) error {
			beans, err := a.beans.List(cmd.Context(), includeArchived)
			if err != nil {
				return err
			}
			if opts.jsonOut {
				return printJSON(cmd.OutOrStdout(), beans)
			}

			out := cmd.OutOrStdout()
			if len(beans) == 0 {
				fmt.Fprintln(out, "No beans yet; add one with: dialin beans add")
				return nil
			}

			now := time.Now()
			for _, b := range beans {
				status := ""
				if !b.IsActive {
					status = "  (archived)"
				}
				fmt.Fprintf(out, "  %-36s  %-28s  %s  %3dd  %-10s  grind %-6s%s\n",
					b.ID, truncate(b.Name, 28), b.RoastDate.Format(validation.RoastDateLayout),
					b.DaysSinceRoast(now), b.Freshness(now), orDash(b.LastGrinderSetting), status)
			}
			return nil
		}),
	}
	listCmd.Flags().BoolVar(&includeArchived, "all", false, "Include archived beans")

	var req types.CreateBeanRequest
	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Add a bean to the library",
		Args:  cobra.NoArgs,
		RunE: opts.withApp(func(cmd *cobra.Command, args []string, a *app) error {
			bean, err := a.beans.Create(cmd.Context(), req)
			if err != nil {
				return err
			}
			if opts.jsonOut {
				return printJSON(cmd.OutOrStdout(), bean)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%s)\n", bean.Name, bean.ID)
			return nil
		}),
	}
	addCmd.Flags().StringVar(&req.Name, "name", "", "Bean name")
	addCmd.Flags().StringVar(&req.RoastDate, "roast-date", time.Now().Format(validation.RoastDateLayout), "Roast date (YYYY-MM-DD)")
	addCmd.Flags().StringVar(&req.Notes, "notes", "", "Tasting notes")

	beansCmd.AddCommand(listCmd, addCmd)
	return beansCmd
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
