package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/sunrotstudios/velvet-metal/internal/models"
	"github.com/sunrotstudios/velvet-metal/internal/repositories"
	"github.com/sunrotstudios/velvet-metal/internal/shared"
	"github.com/sunrotstudios/velvet-metal/internal/tasks"
	"github.com/sunrotstudios/velvet-metal/internal/ui"
)

// TUI launches the interactive terminal UI for playlist transfer.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	r.loadConfig(cmd)

	sourceService := cmd.String("from")
	targetService := cmd.String("to")
	if !models.KnownService(sourceService) || !models.KnownService(targetService) {
		return fmt.Errorf("%w: services must be spotify or apple_music", shared.ErrInvalidArgument)
	}

	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/velvet-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	resolver := NewCredentialResolver(r.config, repositories.NewServiceAuthRepository(db))
	engine := tasks.NewTransferEngine(resolver, repositories.NewTransferRepository(db), r.logger)

	source, err := resolver.Resolve(ctx, r.userID(), sourceService)
	if err != nil {
		return err
	}
	target, err := resolver.Resolve(ctx, r.userID(), targetService)
	if err != nil {
		return err
	}

	model := ui.NewModel(ctx, r.userID(), sourceService, targetService, source, target, engine)
	p := tea.NewProgram(model)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
