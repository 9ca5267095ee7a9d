package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/sessiond/internal/config"
	"github.com/fyrsmithlabs/sessiond/internal/policy"
	"github.com/fyrsmithlabs/sessiond/internal/state"
)

var (
	// taskBranchFlag pins the task to an explicit branch, overriding the
	// prefix policy
	taskBranchFlag string
	// taskScopeFlag lists the files or areas the task is expected to touch
	taskScopeFlag []string
)

func init() {
	rootCmd.AddCommand(taskCmd)
	taskCmd.AddCommand(taskStartCmd)
	taskCmd.AddCommand(taskShowCmd)
	taskCmd.AddCommand(taskClearCmd)

	taskStartCmd.Flags().StringVar(&taskBranchFlag, "branch", "", "required branch (overrides the prefix policy)")
	taskStartCmd.Flags().StringSliceVar(&taskScopeFlag, "scope", nil, "files or areas in scope for the task")
}

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage the active task",
	Long: `Manage the project's active task descriptor.

The task name's prefix (implement-, fix-, refactor-, ...) selects the
branch the work must happen on. Starting a task replaces any previous one.

Examples:
  sessd task start implement-login
  sessd task start fix-flaky-test --branch fix/flaky-test
  sessd task show
  sessd task clear`,
}

var taskStartCmd = &cobra.Command{
	Use:   "start <name>",
	Short: "Start (or replace) the active task",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskStart,
}

var taskShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the active task",
	RunE:  runTaskShow,
}

var taskClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear the active task",
	RunE:  runTaskClear,
}

func runTaskStart(cmd *cobra.Command, args []string) error {
	root := projectRoot("")
	store := state.NewStore(root)
	cfg, _ := config.Load(root)

	td := state.TaskDescriptor{
		Name:           args[0],
		RequiredBranch: taskBranchFlag,
		Scope:          taskScopeFlag,
	}
	if err := store.StartTask(td); err != nil {
		return err
	}

	fmt.Printf("Task started: %s\n", td.Name)
	expected := td.RequiredBranch
	if expected == "" {
		expected, _ = policy.NewBranchPolicy(cfg.Branch.Policy).ExpectedBranch(td.Name)
	}
	if expected != "" && cfg.Branch.Enforcement {
		fmt.Printf("Required branch: %s\n", expected)
	}
	return nil
}

func runTaskShow(cmd *cobra.Command, args []string) error {
	store := state.NewStore(projectRoot(""))
	task, ok := store.ReadTask()
	if !ok {
		fmt.Println("No active task.")
		return nil
	}
	fmt.Printf("Task: %s\n", task.Name)
	if task.RequiredBranch != "" {
		fmt.Printf("Required branch: %s\n", task.RequiredBranch)
	}
	if len(task.Scope) > 0 {
		fmt.Printf("Scope: %v\n", task.Scope)
	}
	return nil
}

func runTaskClear(cmd *cobra.Command, args []string) error {
	store := state.NewStore(projectRoot(""))
	if err := store.ClearTask(); err != nil {
		return err
	}
	fmt.Println("Task cleared.")
	return nil
}
