package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/term"

	"riskchat/internal/bootstrap"
	"riskchat/internal/config"
	"riskchat/internal/i18n"
	"riskchat/internal/logging"
	"riskchat/internal/repl"
	"riskchat/internal/tui"
)

func main() {
	var (
		configPath string
		uiMode     string
	)
	flag.StringVar(&configPath, "config", "", "Path to config JSON/JSONC")
	flag.StringVar(&uiMode, "ui", "", "Frontend: tui | plain | auto (overrides config)")
	flag.Parse()

	if err := run(configPath, uiMode); err != nil {
		fmt.Fprintf(os.Stderr, "riskchat: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, uiMode string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config failed: %w", err)
	}
	if m := strings.ToLower(strings.TrimSpace(uiMode)); m != "" {
		switch m {
		case config.UIModeTUI, config.UIModePlain, config.UIModeAuto:
			cfg.UI.Mode = m
		default:
			return fmt.Errorf("invalid -ui %q: want tui, plain or auto", uiMode)
		}
	}

	logger, err := logging.New(cfg)
	if err != nil {
		return fmt.Errorf("init logging failed: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	i18n.Init(cfg.UI.Locale)

	result, err := bootstrap.Build(cfg, logger)
	if err != nil {
		return err
	}
	defer result.Store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting",
		zap.String("ui", cfg.UI.Mode),
		zap.String("api_base", result.APIBase),
		zap.String("locale", result.Translator.Locale()))

	if useTUI(cfg.UI.Mode) {
		return tui.Run(ctx, result.Controller, result.Translator, tui.Options{AltScreen: cfg.UI.AltScreen})
	}

	in, inErr := repl.NewLineInput(filepath.Join(cfg.Storage.BaseDir, "repl_history"))
	if inErr != nil {
		logger.Warn("readline unavailable, using plain input", zap.Error(inErr))
	}
	defer in.Close()
	return repl.New(result.Controller, in, os.Stdout, logging.Component(logger, "repl")).Run(ctx)
}

// useTUI picks the full-screen UI for "tui", the REPL for "plain", and for
// "auto" the TUI only when both stdin and stdout are terminals.
func useTUI(mode string) bool {
	switch mode {
	case config.UIModeTUI:
		return true
	case config.UIModePlain:
		return false
	default:
		return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
	}
}
