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
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/dictdeck/dictdeck/internal/config"
	"github.com/dictdeck/dictdeck/internal/entry"
	"github.com/dictdeck/dictdeck/internal/lexstore"
	"github.com/dictdeck/dictdeck/internal/library"
	"github.com/dictdeck/dictdeck/internal/logging"
	"github.com/dictdeck/dictdeck/internal/matchnav"
	"github.com/dictdeck/dictdeck/internal/resultwindow"
	"github.com/dictdeck/dictdeck/internal/searchipc"
	"github.com/dictdeck/dictdeck/internal/ui"
)

const Version = "0.3.0"

func init() {
	initColorProfile()
}

// initColorProfile configures lipgloss color profile based on terminal
// capabilities. Prefers TrueColor, falls back to ANSI256.
func initColorProfile() {
	// DICTDECK_COLOR: truecolor, 256, 16, none
	if colorEnv := os.Getenv("DICTDECK_COLOR"); colorEnv != "" {
		switch strings.ToLower(colorEnv) {
		case "truecolor", "true", "24bit":
			lipgloss.SetColorProfile(termenv.TrueColor)
			return
		case "256", "ansi256":
			lipgloss.SetColorProfile(termenv.ANSI256)
			return
		case "16", "ansi", "basic":
			lipgloss.SetColorProfile(termenv.ANSI)
			return
		case "none", "off", "ascii":
			lipgloss.SetColorProfile(termenv.Ascii)
			return
		}
	}

	if colorTerm := os.Getenv("COLORTERM"); colorTerm == "truecolor" || colorTerm == "24bit" {
		lipgloss.SetColorProfile(termenv.TrueColor)
		return
	}

	termName := os.Getenv("TERM")
	for _, t := range []string{
		"xterm-256color", "screen-256color", "tmux-256color",
		"xterm-direct", "alacritty", "kitty", "wezterm",
	} {
		if strings.Contains(termName, t) {
			lipgloss.SetColorProfile(termenv.TrueColor)
			return
		}
	}

	lipgloss.SetColorProfile(termenv.ANSI256)
}

func main() {
	var (
		showVersion = flag.Bool("version", false, "print version and exit")
		debug       = flag.Bool("debug", false, "enable debug logging")
		demo        = flag.Bool("demo", false, "run with a built-in sample dictionary instead of an engine")
		engineAddr  = flag.String("engine", "", "engine websocket address (overrides config)")
		dumpLogs    = flag.String("dump-logs", "", "write the in-memory log ring buffer to a file and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("dictdeck v%s\n", Version)
		return
	}

	if !term.IsTerminal(int(os.Stdout.Fd())) && *dumpLogs == "" {
		fmt.Fprintln(os.Stderr, "dictdeck: stdout is not a terminal")
		os.Exit(1)
	}

	cfg, cfgErr := config.Load()

	logDir := ""
	if dir, err := config.Dir(); err == nil {
		logDir = filepath.Join(dir, "logs")
	}
	logging.Init(logging.Config{
		LogDir:    logDir,
		Debug:     *debug || cfg.Logs.Debug,
		Format:    cfg.Logs.Format,
		MaxSizeMB: cfg.Logs.MaxSizeMB,
	})
	defer logging.Shutdown()

	if *dumpLogs != "" {
		if err := logging.DumpRingBuffer(*dumpLogs); err != nil {
			fmt.Fprintf(os.Stderr, "dictdeck: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(cfg, cfgErr, *demo, *engineAddr); err != nil {
		fmt.Fprintf(os.Stderr, "dictdeck: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, cfgErr error, demo bool, engineAddr string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ui.InitTheme(cfg.ResolveTheme())

	lib := library.New(cfg.Library.Paths)
	if err := lib.Rescan(); err != nil {
		return err
	}

	libChanges := make(chan struct{}, 1)
	watcher, err := library.NewWatcher(lib, func() {
		select {
		case libChanges <- struct{}{}:
		default:
		}
	})
	if err == nil {
		if err := watcher.Start(); err == nil {
			defer watcher.Stop()
		}
	}

	var store *lexstore.Store
	if dir, err := config.Dir(); err == nil {
		store, err = lexstore.Open(filepath.Join(dir, "lexicon.db"))
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.SetMaxHistorySize(cfg.History.MaxSize); err != nil {
			return err
		}
	}

	searcher, closeSearcher, err := connectSearcher(ctx, cfg, demo, engineAddr)
	if err != nil {
		return err
	}
	defer closeSearcher()

	win := resultwindow.New(searcher, resultwindow.Options{
		PageSize:       cfg.Search.PageSize,
		MaxCachedPages: cfg.Search.MaxCachedPages,
		FetchTimeout:   time.Duration(cfg.Search.FetchTimeoutSeconds) * time.Second,
	})
	if cfg.Search.DefaultMode == "fulltext" {
		win.SetMode(resultwindow.ModeFulltext)
	}

	coord := matchnav.New()
	loader := entry.NewLoader(searcher, coord)
	loader.SetProfileNames(lib.Titles())

	model := ui.NewModel(ctx, ui.Options{
		Window:         win,
		Loader:         loader,
		Coordinator:    coord,
		Store:          store,
		Library:        lib,
		LibraryChanges: libChanges,
	})
	defer model.Close()

	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("run ui: %w", err)
	}

	// a config parse failure should not block startup, but tell the user
	if cfgErr != nil {
		fmt.Fprintf(os.Stderr, "dictdeck: %v (defaults were used)\n", cfgErr)
	}
	return nil
}

func connectSearcher(ctx context.Context, cfg *config.Config, demo bool, engineAddr string) (searchipc.Searcher, func(), error) {
	if demo {
		return searchipc.NewFakeEngine(1, "Sample Dictionary", demoEntries()), func() {}, nil
	}

	addr := cfg.Engine.Address
	if engineAddr != "" {
		addr = engineAddr
	}
	dialCtx, cancel := context.WithTimeout(ctx, time.Duration(cfg.Engine.ConnectTimeoutSeconds)*time.Second)
	defer cancel()

	client, err := searchipc.Dial(dialCtx, addr)
	if err != nil {
		return nil, nil, fmt.Errorf("connect engine at %s: %w (use --demo to try without one)", addr, err)
	}
	return client, func() { client.Close() }, nil
}
