package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"js8bulletin/internal/app"
	"js8bulletin/internal/budget"
	"js8bulletin/internal/schedule"
)

var (
	limitConfirm  bool
	limitTruncate bool

	connHost      string
	connPort      int
	connFreq      int64
	connAutostart bool
)

var setCmd = &cobra.Command{
	Use:   "set",
	Short: "Change the saved bulletin settings",
}

var setMessageCmd = &cobra.Command{
	Use:   "message <text|->",
	Short: "Set the bulletin text (\"-\" reads stdin)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text := args[0]
		if text == "-" {
			b, err := io.ReadAll(os.Stdin)
			if err != nil {
				return err
			}
			text = string(b)
		}
		rt, err := openRuntime(true)
		if err != nil {
			return err
		}
		defer closeRuntime(rt)

		res, err := rt.App().SetMessage(text)
		if err != nil {
			return err
		}
		if res.Truncated {
			fmt.Printf("message truncated to %d characters\n", res.Report.Limit)
		}
		fmt.Printf("%d/%d characters [%s]\n", res.Report.CharCount, res.Report.Limit, res.Report.Status)
		return nil
	},
}

var setLimitCmd = &cobra.Command{
	Use:   "limit <n|short|medium|long>",
	Short: "Set the character limit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := parseLimit(args[0])
		if err != nil {
			return err
		}
		rt, err := openRuntime(true)
		if err != nil {
			return err
		}
		defer closeRuntime(rt)

		res, err := rt.App().SetLimit(n, app.LimitOptions{ConfirmLarge: limitConfirm, Truncate: limitTruncate})
		if errors.Is(err, app.ErrConfirmLargeLimit) {
			return fmt.Errorf("%w; pass --confirm to accept", err)
		}
		if err != nil {
			return err
		}
		fmt.Printf("limit %d -> %d characters (max airtime %s)\n",
			res.Old, res.New, budget.FormatDuration(budget.EstimateDurationSeconds(res.New)))
		switch {
		case res.Truncated:
			fmt.Println("message truncated to the new limit")
		case res.Overflow:
			fmt.Println("warning: the message is longer than the new limit (use --truncate)")
		}
		return nil
	},
}

func parseLimit(s string) (int, error) {
	for _, p := range budget.Presets {
		if strings.EqualFold(p.Name, s) {
			return p.Limit, nil
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid limit %q", s)
	}
	return n, nil
}

var setIntervalCmd = &cobra.Command{
	Use:   "interval <minutes|even|odd>",
	Short: "Select the emission schedule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		spec, err := schedule.Parse(args[0])
		if err != nil {
			return err
		}
		rt, err := openRuntime(true)
		if err != nil {
			return err
		}
		defer closeRuntime(rt)

		if err := rt.App().SetSchedule(spec); err != nil {
			return err
		}
		fmt.Println("schedule:", spec.Label())
		return nil
	},
}

var setConnectionCmd = &cobra.Command{
	Use:   "connection",
	Short: "Set the JS8Call endpoint, frequency and autostart",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(true)
		if err != nil {
			return err
		}
		defer closeRuntime(rt)

		a := rt.App()
		st := a.State()
		s := app.Settings{
			Host:             st.Connection.Host,
			Port:             st.Connection.Port,
			FrequencyHz:      st.Connection.FrequencyHz,
			AutostartEnabled: st.AutostartEnabled,
		}
		fl := cmd.Flags()
		if fl.Changed("host") {
			s.Host = connHost
		}
		if fl.Changed("port") {
			s.Port = connPort
		}
		if fl.Changed("freq") {
			s.FrequencyHz = connFreq
		}
		if fl.Changed("autostart") {
			s.AutostartEnabled = connAutostart
		}

		res, err := a.ApplySettings(cmd.Context(), s)
		if err != nil {
			return err
		}
		if len(res.Changes) == 0 {
			fmt.Println("no changes")
		}
		for _, c := range res.Changes {
			fmt.Println(c)
		}
		for _, w := range res.Warnings {
			fmt.Println("warning:", w)
		}
		if res.ReconnectErr != nil {
			fmt.Println("warning: JS8Call not reachable at the new endpoint:", res.ReconnectErr)
		}
		return nil
	},
}

func init() {
	setLimitCmd.Flags().BoolVar(&limitConfirm, "confirm", false, "accept limits above "+strconv.Itoa(budget.LargeLimit)+" characters")
	setLimitCmd.Flags().BoolVar(&limitTruncate, "truncate", false, "truncate a message that no longer fits")

	f := setConnectionCmd.Flags()
	f.StringVar(&connHost, "host", "", "JS8Call API host")
	f.IntVar(&connPort, "port", 0, "JS8Call API port")
	f.Int64Var(&connFreq, "freq", 0, "dial frequency in Hz (0 = leave the rig alone)")
	f.BoolVar(&connAutostart, "autostart", false, "start emissions when \"run\" starts")

	setCmd.AddCommand(setMessageCmd, setLimitCmd, setIntervalCmd, setConnectionCmd)
	rootCmd.AddCommand(setCmd)
}
