package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"dtolsp/internal/hosttype/srcparse"
	"dtolsp/internal/ui"
	"dtolsp/internal/workspace"
)

var indexCmd = &cobra.Command{
	Use:          "index [flags] [dir]",
	Short:        "Build the host type indexes of a project and its subprojects",
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	RunE:         runIndex,
}

func init() {
	indexCmd.Flags().String("ui", "auto", "progress display (auto|on|off)")
	indexCmd.Flags().String("settings", "", "settings file (default $XDG_CONFIG_HOME/dtolsp/settings.toml)")
}

func runIndex(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) == 1 {
		dir = args[0]
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	root, ok, err := workspace.FindProjectDir(filepath.Join(abs, "_"), true)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s is not inside a Gradle, Maven or git project", abs)
	}
	subs, err := workspace.FindSubprojects(root)
	if err != nil {
		return err
	}
	projects := append([]string{root}, subs...)

	uiFlag, _ := cmd.Flags().GetString("ui")
	mode, err := readUIMode(uiFlag)
	if err != nil {
		return err
	}

	cache, err := srcparse.OpenCache(appName)
	if err != nil {
		slog.Debug("declaration cache disabled", "error", err)
		cache = nil
	}
	cfg := loadSettings(cmd)

	events := make(chan workspace.Event, 64)
	envs := make([]*workspace.Environment, 0, len(projects))
	for _, p := range projects {
		env, err := workspace.NewEnvironment(p, workspace.EnvOptions{
			Classpath:   cfg.Classpath,
			RootProject: root,
			Cache:       cache,
			Log:         slog.Default(),
			Progress:    workspace.ChannelSink{Ch: events},
		})
		if err != nil {
			return err
		}
		envs = append(envs, env)
	}

	outcome := make(chan error, 1)
	go func() {
		outcome <- refreshAll(cmd.Context(), envs)
		close(events)
	}()

	if shouldUseTUI(mode) {
		program := tea.NewProgram(ui.NewProgressModel("indexing "+root, projects, events), tea.WithOutput(os.Stdout))
		_, uiErr := program.Run()
		// keep the refresh from blocking on a closed display
		go func() {
			for range events {
			}
		}()
		if err := <-outcome; err != nil {
			return err
		}
		return uiErr
	}

	for ev := range events {
		if quiet(cmd) {
			continue
		}
		printEvent(root, ev)
	}
	return <-outcome
}

func refreshAll(ctx context.Context, envs []*workspace.Environment) error {
	var (
		mu   sync.Mutex
		errs []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, env := range envs {
		g.Go(func() error {
			if err := env.Refresh(gctx); err != nil {
				mu.Lock()
				errs = append(errs, err.Error())
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	if len(errs) > 0 {
		return fmt.Errorf("index failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func printEvent(root string, ev workspace.Event) {
	name, err := filepath.Rel(root, ev.Project)
	if err != nil {
		name = ev.Project
	}
	switch ev.Status {
	case workspace.StatusDone:
		fmt.Fprintf(os.Stdout, "%-30s %-8s %5d in %s\n", name, ev.Stage, ev.Count, ev.Elapsed.Round(time.Millisecond))
	case workspace.StatusError:
		fmt.Fprintf(os.Stdout, "%-30s %-8s error: %v\n", name, ev.Stage, ev.Err)
	}
}
