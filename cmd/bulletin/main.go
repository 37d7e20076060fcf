package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"js8bulletin/internal/app"
)

var (
	cfgPath      string
	settingsPath string
)

var rootCmd = &cobra.Command{
	Use:   "bulletin",
	Short: "JS8Call bulletin transmitter",
	Long: "bulletin sends a short text bulletin through a running JS8Call instance on a\n" +
		"fixed schedule (every N minutes, even or odd hours).",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "runtime options file (JSON or YAML)")
	rootCmd.PersistentFlags().StringVarP(&settingsPath, "settings", "s", "", "bulletin settings file (overrides settings_path)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// openRuntime builds the runtime for one-shot commands: console output is
// limited to warnings so command output stays readable.
func openRuntime(quiet bool) (*app.Runtime, error) {
	rt, err := app.NewRuntime(app.RuntimeOptions{
		ConfigPath:   cfgPath,
		SettingsPath: settingsPath,
		Quiet:        quiet,
	})
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return rt, nil
}

// closeRuntime shuts a one-shot runtime down with a bounded wait.
func closeRuntime(rt *app.Runtime) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := rt.Close(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "warning: shutdown: %v\n", err)
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
