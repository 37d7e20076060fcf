package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"js8bulletin/internal/app"
	"js8bulletin/internal/budget"
)

var adoptLimit bool

var exportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Save the bulletin to a .json or .txt file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(true)
		if err != nil {
			return err
		}
		defer closeRuntime(rt)

		path, err := rt.App().SaveBulletin(args[0])
		if err != nil {
			return err
		}
		fmt.Println("saved", path)
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Load a bulletin from a .json or .txt file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(true)
		if err != nil {
			return err
		}
		defer closeRuntime(rt)

		res, err := rt.App().OpenBulletin(args[0], adoptLimit)
		if err != nil {
			return err
		}
		if res.AdoptedLimit > 0 {
			fmt.Printf("limit set to %d characters from the file\n", res.AdoptedLimit)
		} else if res.FileLimit > 0 && res.FileLimit != rt.App().State().LimitChars {
			fmt.Printf("note: file limit is %d characters (use --adopt-limit)\n", res.FileLimit)
		}
		if res.Truncated {
			fmt.Printf("message truncated from %d characters\n", res.OriginalChars)
		}
		fmt.Printf("loaded %s (%s, %d characters)\n", res.Path, res.Format, budget.Count(res.Message))
		return nil
	},
}

var newCmd = &cobra.Command{
	Use:   "new",
	Short: "Clear the message and reset the interval",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(true)
		if err != nil {
			return err
		}
		defer closeRuntime(rt)
		if err := rt.App().NewBulletin(); err != nil {
			if errors.Is(err, app.ErrBusy) {
				return fmt.Errorf("emissions are active: %w", err)
			}
			return err
		}
		fmt.Println("bulletin cleared")
		return nil
	},
}

func init() {
	importCmd.Flags().BoolVar(&adoptLimit, "adopt-limit", false, "use the file's max_chars as the new limit")
	rootCmd.AddCommand(exportCmd, importCmd, newCmd)
}
