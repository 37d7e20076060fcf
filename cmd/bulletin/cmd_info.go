package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"js8bulletin/internal/budget"
)

var (
	previewCount int
	historyCount int
	jsonOut      bool
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the saved bulletin and its settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(true)
		if err != nil {
			return err
		}
		defer closeRuntime(rt)

		st := rt.App().Status()
		if jsonOut {
			return printJSON(st)
		}
		fmt.Printf("Schedule:  %s\n", st.ScheduleLabel)
		fmt.Printf("JS8Call:   %s (frequency %s)\n", st.Addr, st.Frequency)
		fmt.Printf("Limit:     %d characters (%s, max airtime %s)\n", st.Report.Limit, st.LimitPreset, st.MaxAirtime)
		fmt.Printf("Message:   %d/%d characters [%s]\n", st.Report.CharCount, st.Report.Limit, st.Budget)
		fmt.Printf("Autostart: %t\n", st.AutostartEnabled)
		if st.Message != "" {
			fmt.Printf("\n%s\n", st.Message)
		}
		return nil
	},
}

var nextCmd = &cobra.Command{
	Use:   "next",
	Short: "List the next trigger times of the selected schedule",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(true)
		if err != nil {
			return err
		}
		defer closeRuntime(rt)

		fmt.Println(rt.App().State().Schedule.Label())
		for _, t := range rt.App().Preview(previewCount) {
			fmt.Println(" ", t.Format("Mon 2006-01-02 15:04:05"))
		}
		return nil
	},
}

var estimateCmd = &cobra.Command{
	Use:   "estimate [limit]",
	Short: "Estimate the airtime of a bulletin limit",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limits := make([]int, 0, len(budget.Presets))
		if len(args) == 1 {
			n, err := strconv.Atoi(args[0])
			if err != nil || n < budget.MinLimit {
				return fmt.Errorf("limit must be a number of at least %d", budget.MinLimit)
			}
			limits = append(limits, n)
		} else {
			for _, p := range budget.Presets {
				limits = append(limits, p.Limit)
			}
		}
		for _, n := range limits {
			fmt.Printf("%4d characters (%s): %d segments, %s\n",
				n, budget.PresetName(n), budget.Segments(n), budget.FormatDuration(budget.EstimateDurationSeconds(n)))
		}
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent emissions",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(true)
		if err != nil {
			return err
		}
		defer closeRuntime(rt)

		recs, err := rt.App().History(cmd.Context(), historyCount)
		if err != nil {
			return err
		}
		if jsonOut {
			return printJSON(recs)
		}
		for _, r := range recs {
			line := fmt.Sprintf("%s  %-9s %3d chars", r.Timestamp.Local().Format(time.DateTime), r.Outcome, r.CharCount)
			if r.Manual {
				line += "  manual"
			}
			if r.Error != "" {
				line += "  " + r.Error
			}
			fmt.Println(line)
		}
		return nil
	},
}

func init() {
	statusCmd.Flags().BoolVar(&jsonOut, "json", false, "print JSON")
	historyCmd.Flags().BoolVar(&jsonOut, "json", false, "print JSON")
	nextCmd.Flags().IntVarP(&previewCount, "count", "n", 5, "number of trigger times")
	historyCmd.Flags().IntVarP(&historyCount, "count", "n", 20, "number of emissions")
	rootCmd.AddCommand(statusCmd, nextCmd, estimateCmd, historyCmd)
}
