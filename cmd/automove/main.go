package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"automove/pkg/automove"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

func main() {
	configPath := flag.String("config", "", "path to config.json (default: search upwards from cwd)")
	inputPath := flag.String("input", "-", "feed capture to read, - for stdin")
	outputPath := flag.String("output", "-", "where to write move frames, - for stdout")
	controlAddr := flag.String("control", "", "listen address for the status/config API")
	journalPath := flag.String("journal", "", "parquet file recording every decision")
	mode := flag.String("mode", "", "move source: engine or heuristic")
	pretty := flag.Bool("pretty", false, "human readable logs")
	initTimeout := flag.Duration("init-timeout", 10*time.Second, "engine handshake timeout")
	flag.Parse()

	cfg, root, err := loadConfig(*configPath)
	if err != nil {
		fatal(err)
	}
	if *controlAddr != "" {
		cfg.Control = *controlAddr
	}
	if *journalPath != "" {
		cfg.Journal = *journalPath
	}
	if *mode != "" {
		cfg.Mode = *mode
	}
	if err := cfg.Validate(); err != nil {
		fatal(err)
	}
	sourceMode, _ := cfg.ResolveMode()

	log, err := automove.NewLogger(os.Stderr, cfg.LogLevel, *pretty)
	if err != nil {
		fatal(err)
	}
	settings, err := automove.NewSettings(cfg.Options())
	if err != nil {
		fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		source  automove.MoveSource
		session *automove.Session
	)
	switch sourceMode {
	case automove.ModeEngine:
		enginePath, err := automove.ResolveEnginePath(cfg.Engine, root)
		if err != nil {
			fatal(err)
		}
		if _, err := os.Stat(enginePath); err != nil {
			fatal(fmt.Errorf("engine binary not found at %s: %w", enginePath, err))
		}
		session = automove.NewSession(automove.ProcessLauncher(log, enginePath, cfg.Args...), log)
		initCtx, cancel := context.WithTimeout(ctx, *initTimeout)
		err = session.Init(initCtx)
		cancel()
		if err != nil {
			fatal(fmt.Errorf("engine handshake: %w", err))
		}
		defer session.Shutdown()
		source = automove.NewEngineSource(session, settings, cfg.Timeout())
	case automove.ModeHeuristic:
		source = automove.NewHeuristicSource(automove.NewChessRules(), nil, log)
	}

	opts := []automove.DeciderOption{automove.WithLogger(log)}
	var journal *automove.JournalWriter
	if cfg.Journal != "" {
		if dir := filepath.Dir(cfg.Journal); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				fatal(err)
			}
		}
		journal = automove.OpenJournal(cfg.Journal, log, nil)
		opts = append(opts, automove.WithJournal(journal))
	}
	decider := automove.NewDecider(source, opts...)

	if cfg.Control != "" {
		srv := startControl(cfg.Control, settings, func() automove.Status {
			return automove.StatusOf(source, session, settings)
		}, log)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	in, closeIn, err := openInput(*inputPath)
	if err != nil {
		fatal(err)
	}
	defer closeIn()
	out, closeOut, err := openOutput(*outputPath)
	if err != nil {
		fatal(err)
	}
	defer closeOut()

	stats := run(ctx, decider, automove.NewFeedReader(in), out, log)
	log.Info().
		Int("positions", stats.positions).
		Int("moves", stats.moves).
		Int("no_move", stats.noMove).
		Int("failed", stats.failed).
		Msg("feed finished")

	if journal != nil {
		if err := journal.Close(); err != nil {
			log.Error().Err(err).Msg("journal close failed")
		}
	}
}

type runStats struct {
	positions int
	moves     int
	noMove    int
	failed    int
}

// run decides every position on the feed. A failing position is logged by
// the decider and skipped.
func run(ctx context.Context, decider *automove.Decider, feed *automove.FeedReader, out io.Writer, log zerolog.Logger) runStats {
	var stats runStats
	for ctx.Err() == nil {
		partial, err := feed.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			log.Error().Err(err).Msg("feed read failed")
			break
		}
		stats.positions++
		decision, err := decider.Decide(ctx, partial)
		if err != nil {
			stats.failed++
			continue
		}
		if decision.Move == automove.NoMove {
			stats.noMove++
			continue
		}
		if err := automove.WriteMove(out, decision.Move); err != nil {
			log.Error().Err(err).Msg("move write failed")
			break
		}
		stats.moves++
	}
	if n := feed.Skipped(); n > 0 {
		log.Warn().Int("skipped", n).Msg("malformed feed lines")
	}
	return stats
}

func startControl(addr string, settings *automove.Settings, status func() automove.Status, log zerolog.Logger) *http.Server {
	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:    addr,
		Handler: automove.NewControlRouter(settings, status),
	}
	go func() {
		log.Info().Str("addr", addr).Msg("control api listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("control api stopped")
		}
	}()
	return srv
}

// loadConfig reads config.json and the .env beside it. Without an explicit
// path a missing config.json is fine; the process then runs on defaults
// and environment overrides only.
func loadConfig(arg string) (automove.Config, string, error) {
	var (
		path string
		root string
		err  error
	)
	if arg != "" {
		path, err = filepath.Abs(arg)
		if err != nil {
			return automove.Config{}, "", err
		}
		root = filepath.Dir(path)
	} else {
		path, root, err = automove.FindConfigPath()
		if err != nil {
			path = ""
			if root, err = os.Getwd(); err != nil {
				return automove.Config{}, "", err
			}
		}
	}

	var cfg automove.Config
	if path != "" {
		if cfg, err = automove.LoadConfig(path); err != nil {
			return automove.Config{}, "", err
		}
	}
	if err := cfg.ApplyEnv(filepath.Join(root, ".env")); err != nil {
		return automove.Config{}, "", err
	}
	return cfg, root, nil
}

func openInput(path string) (io.Reader, func(), error) {
	if path == "-" || path == "" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { _ = f.Close() }, nil
}

func openOutput(path string) (io.Writer, func(), error) {
	if path == "-" || path == "" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { _ = f.Close() }, nil
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
