// Statusline commands for Claude Code integration.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/sessiond/internal/config"
	"github.com/fyrsmithlabs/sessiond/internal/monitor"
	"github.com/fyrsmithlabs/sessiond/internal/state"
	"github.com/fyrsmithlabs/sessiond/pkg/git"
)

func init() {
	rootCmd.AddCommand(statuslineCmd)
	statuslineCmd.AddCommand(statuslineRunCmd)
	statuslineCmd.AddCommand(statuslineInstallCmd)
	statuslineCmd.AddCommand(statuslineUninstallCmd)
	statuslineCmd.AddCommand(statuslineTestCmd)
}

var statuslineCmd = &cobra.Command{
	Use:   "statusline",
	Short: "Manage the Claude Code statusline integration",
	Long: `Manage the sessd statusline for Claude Code's status bar.

The statusline shows the workflow mode, the active task, the current
branch and the context usage.

Examples:
  # Run as the Claude Code statusline command
  sessd statusline run

  # Install into ~/.claude/settings.json
  sessd statusline install

  # Preview the output
  sessd statusline test`,
}

var statuslineRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Render one statusline update from stdin",
	RunE:  runStatuslineRun,
}

var statuslineInstallCmd = &cobra.Command{
	Use:   "install",
	Short: "Install the statusline into Claude Code settings",
	RunE:  runStatuslineInstall,
}

var statuslineUninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Remove the statusline from Claude Code settings",
	RunE:  runStatuslineUninstall,
}

var statuslineTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Preview the statusline without installing",
	RunE:  runStatuslineTest,
}

// statuslineInput is the JSON Claude Code writes to the statusline
// command's stdin on each update.
type statuslineInput struct {
	SessionID      string `json:"session_id"`
	TranscriptPath string `json:"transcript_path"`
	CWD            string `json:"cwd"`
	Workspace      struct {
		CurrentDir string `json:"current_dir"`
		ProjectDir string `json:"project_dir"`
	} `json:"workspace"`
}

var (
	discussionStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	implementationStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	taskStyle           = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	branchStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("13"))
	contextOKStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	contextWarnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	contextHighStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	separatorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

func runStatuslineRun(cmd *cobra.Command, args []string) error {
	var in statuslineInput
	data, err := io.ReadAll(os.Stdin)
	if err == nil && len(data) > 0 {
		// A bad payload still renders; the line just lacks context usage.
		_ = json.Unmarshal(data, &in)
	}

	root := in.Workspace.ProjectDir
	if root == "" {
		root = in.CWD
	}
	fmt.Println(renderStatusline(projectRoot(root), in.TranscriptPath))
	return nil
}

// renderStatusline builds the status bar line from local state.
func renderStatusline(root, transcriptPath string) string {
	cfg, _ := config.Load(root)
	store := state.NewStore(root)

	var segments []string

	mode := store.ReadMode()
	if mode == state.ModeImplementation {
		segments = append(segments, implementationStyle.Render("IMPLEMENT"))
	} else {
		segments = append(segments, discussionStyle.Render("DISCUSS"))
	}

	if task, ok := store.ReadTask(); ok {
		segments = append(segments, taskStyle.Render(task.Name))
	} else {
		segments = append(segments, taskStyle.Render("no task"))
	}

	if branch, err := git.CurrentBranch(root); err == nil {
		segments = append(segments, branchStyle.Render(branch))
	}

	if transcriptPath != "" {
		m := monitor.New(cfg.Context, store, nil)
		if tokens, percent, err := m.Usage(transcriptPath); err == nil {
			segments = append(segments, contextSegment(cfg.Context, tokens, percent))
		}
	}

	return strings.Join(segments, separatorStyle.Render(" │ "))
}

func contextSegment(cfg config.ContextConfig, tokens int, percent float64) string {
	text := fmt.Sprintf("ctx %.0f%%", percent)
	low, high := 75, 90
	if len(cfg.WarnPercent) == 2 {
		low, high = cfg.WarnPercent[0], cfg.WarnPercent[1]
	}
	switch {
	case percent >= float64(high):
		return contextHighStyle.Render(text)
	case percent >= float64(low):
		return contextWarnStyle.Render(text)
	default:
		return contextOKStyle.Render(text)
	}
}

func runStatuslineInstall(cmd *cobra.Command, args []string) error {
	binPath, err := sessdBinaryPath()
	if err != nil {
		return err
	}

	settingsPath, err := claudeSettingsPath()
	if err != nil {
		return err
	}
	settings, err := readSettings(settingsPath)
	if err != nil {
		return err
	}

	settings["statusLine"] = map[string]any{
		"type":    "command",
		"command": fmt.Sprintf("%s statusline run", binPath),
	}

	if err := writeSettings(settingsPath, settings); err != nil {
		return err
	}
	fmt.Printf("Statusline installed in %s\n", settingsPath)
	fmt.Println("Restart Claude Code to apply changes.")
	return nil
}

func runStatuslineUninstall(cmd *cobra.Command, args []string) error {
	settingsPath, err := claudeSettingsPath()
	if err != nil {
		return err
	}
	settings, err := readSettings(settingsPath)
	if err != nil {
		return err
	}
	if _, exists := settings["statusLine"]; !exists {
		fmt.Println("No statusline configuration found, nothing to uninstall.")
		return nil
	}
	delete(settings, "statusLine")

	if err := writeSettings(settingsPath, settings); err != nil {
		return err
	}
	fmt.Printf("Statusline removed from %s\n", settingsPath)
	return nil
}

func runStatuslineTest(cmd *cobra.Command, args []string) error {
	fmt.Println(renderStatusline(projectRoot(""), ""))
	return nil
}

// sessdBinaryPath locates the installed binary for settings entries.
func sessdBinaryPath() (string, error) {
	path, err := exec.LookPath("sessd")
	if err != nil {
		path, err = os.Executable()
		if err != nil {
			return "", fmt.Errorf("could not find sessd binary: %w", err)
		}
	}
	path, err = filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("could not resolve sessd path: %w", err)
	}
	if strings.ContainsAny(path, "\n\r\x00'\"`$;&|") {
		return "", fmt.Errorf("sessd binary path contains characters unsafe for settings entries")
	}
	return path, nil
}
