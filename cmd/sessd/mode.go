package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/sessiond/internal/state"
)

func init() {
	rootCmd.AddCommand(modeCmd)
}

var modeCmd = &cobra.Command{
	Use:   "mode [discussion|implementation|toggle]",
	Short: "Show or set the workflow mode",
	Long: `Show or set the workflow mode for the current project.

Without an argument the current mode is printed. Setting the mode by hand
is the developer's escape hatch; the usual path is a trigger phrase in the
conversation.

Examples:
  sessd mode
  sessd mode discussion
  sessd mode toggle`,
	Args: cobra.MaximumNArgs(1),
	RunE: runMode,
}

func runMode(cmd *cobra.Command, args []string) error {
	store := state.NewStore(projectRoot(""))

	if len(args) == 0 {
		fmt.Println(store.ReadMode())
		return nil
	}

	var next state.Mode
	switch args[0] {
	case "discussion":
		next = state.ModeDiscussion
	case "implementation":
		next = state.ModeImplementation
	case "toggle":
		m, err := store.ToggleMode()
		if err != nil {
			return err
		}
		fmt.Println(m)
		return nil
	default:
		return fmt.Errorf("unknown mode %q (want discussion, implementation or toggle)", args[0])
	}

	if err := store.WriteMode(next); err != nil {
		return err
	}
	fmt.Println(next)
	return nil
}
