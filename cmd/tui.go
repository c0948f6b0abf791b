package cmd

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	zone "github.com/lrstanley/bubblezone"
	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/equilibrium/internal/config"
	"github.com/twiced-technology-gmbh/equilibrium/internal/log"
	"github.com/twiced-technology-gmbh/equilibrium/internal/tui"
	"github.com/twiced-technology-gmbh/equilibrium/internal/watcher"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Open the interactive dashboard",
	Args:  cobra.NoArgs,
	RunE:  runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	cfg, reg, closeFn, err := openRegistry(ctx, false)
	if err != nil {
		return err
	}
	defer closeFn()

	zone.NewGlobal()
	defer zone.Close()

	model := tui.NewBoard(reg, cfg)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion())

	go startTUIWatcher(ctx, cfg, p)

	_, err = p.Run()
	return err
}

func startTUIWatcher(ctx context.Context, cfg *config.Config, p *tea.Program) {
	w, err := watcher.New(cfg.Dir(), tui.WatchNames(cfg), func() {
		p.Send(tui.ReloadMsg{})
	})
	if err != nil {
		log.ErrorErr(log.CatWatcher, "dashboard runs without live reload", err)
		return
	}
	defer w.Close() //nolint:errcheck // best-effort cleanup
	w.Run(ctx, func(err error) {
		log.ErrorErr(log.CatWatcher, "watch error", err)
	})
}
