package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"js8bulletin/internal/js8call"
	"js8bulletin/internal/scheduler"
)

var (
	sendTo     string
	checkHost  string
	checkPort  int
	cmdTimeout time.Duration
)

// commandTimeout bounds the whole command. It never undercuts the fixed
// connect timeout of the client.
func commandTimeout(d time.Duration) time.Duration {
	return max(d, js8call.DialTimeout)
}

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Transmit the bulletin once",
	Long:  "Sends the saved bulletin immediately. Fails when JS8Call is unreachable.",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(true)
		if err != nil {
			return err
		}
		defer closeRuntime(rt)

		ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout(cmdTimeout))
		defer cancel()

		var rec scheduler.EmissionRecord
		if sendTo != "" {
			rec, err = rt.App().SendDirected(ctx, sendTo)
		} else {
			rec, err = rt.App().SendNow(ctx)
		}
		if err != nil {
			return err
		}
		fmt.Printf("sent %d characters at %s (%s)\n", rec.CharCount, rec.Timestamp.Format("15:04:05"), rec.ID)
		return nil
	},
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Test the connection to JS8Call",
	Long:  "Opens and closes a TCP connection to the JS8Call API without sending anything.",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(true)
		if err != nil {
			return err
		}
		defer closeRuntime(rt)

		st := rt.App().State()
		host, port := st.Connection.Host, st.Connection.Port
		if checkHost != "" {
			host = checkHost
		}
		if checkPort != 0 {
			port = checkPort
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout(cmdTimeout))
		defer cancel()
		if err := rt.App().TestConnection(ctx, host, port); err != nil {
			return err
		}
		fmt.Printf("JS8Call reachable at %s:%d\n", host, port)
		return nil
	},
}

func init() {
	sendCmd.Flags().StringVar(&sendTo, "to", "", "address the bulletin to a callsign or group (e.g. @ALLCALL)")
	sendCmd.Flags().DurationVar(&cmdTimeout, "timeout", 10*time.Second, "overall command timeout (at least the 5s connect timeout)")
	checkCmd.Flags().StringVar(&checkHost, "host", "", "host to test (default: saved setting)")
	checkCmd.Flags().IntVar(&checkPort, "port", 0, "port to test (default: saved setting)")
	checkCmd.Flags().DurationVar(&cmdTimeout, "timeout", 10*time.Second, "overall command timeout (at least the 5s connect timeout)")
	rootCmd.AddCommand(sendCmd, checkCmd)
}
