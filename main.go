package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"mindcanvas/internal/config"
)

var (
	cfgFile   string
	verbose   bool
	ephemeral bool
)

var rootCmd = &cobra.Command{
	Use:   "mindcanvas",
	Short: "A mind map canvas for the terminal",
	Long: `mindcanvas is an infinite canvas of cards and connections. The map and
your key bindings are saved automatically; Markdown, Mermaid, JSON, PNG and
SVG exports are available from the canvas and from the subcommands.`,
	SilenceUsage: true,
	RunE:         runCanvas,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", config.DefaultPath(), "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&ephemeral, "ephemeral", false, "keep the map in memory only")
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runCanvas(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, closer, err := tuiLogger(cfg)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: logging disabled: %v\n", err)
	}
	if closer != nil {
		defer closer.Close()
	}

	ctx := cmd.Context()
	m := newModel(cfg, logger)
	ed, err := openEditor(ctx, cfg, logger, m, m)
	if err != nil {
		return err
	}
	m.ed = ed

	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)
	_, runErr := p.Run()
	if errors.Is(runErr, tea.ErrProgramKilled) {
		runErr = nil
	}
	return errors.Join(runErr, ed.Close())
}
