package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/erazemk/poetrack/internal/config"
	"github.com/erazemk/poetrack/internal/db"
	"github.com/erazemk/poetrack/internal/model"
	"github.com/erazemk/poetrack/internal/store"
)

const usage = `Usage: poetrack [flags] <command> [args]

Commands:
  add [-note <text>] [file]           parse item text (stdin by default) and track it
  list [-sold]                        list active (or sold) items
  show <id>                           print an item as JSON
  price <id> <amount> <currency>      set a new price
  sell <id> [amount [currency]]       mark an item as sold
  unprice <id> <history-id>           remove a price history entry
  delete <id>                         stop tracking an item
  export [-o <file>]                  write all items to an export file
  import [flags] <file>               merge items from an export file
  stats                               show sales statistics
  backups                             list backups, newest first
  restore <key>                       replace all items with a backup
  serve [-a <addr>]                   serve the JSON API (default 127.0.0.1:8080)
  env                                 list supported environment variables

Flags:
  -d, -db <path>          SQLite database path (default: $POETRACK_DB_PATH or poetrack.sqlite3)
  -l, -log <path>         log file path (default: no file, stdout/stderr only)
  -v, -verbose            log store activity
  -h, -help               show this help and exit
`

// app holds what every command needs.
type app struct {
	cfg    *config.Config
	db     *sql.DB
	store  *store.Store
	rates  model.Rates
	stdin  io.Reader
	stdout io.Writer
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("poetrack", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var dbPath string
	fs.StringVar(&dbPath, "db", "", "")
	fs.StringVar(&dbPath, "d", "", "")

	var logPath string
	fs.StringVar(&logPath, "log", "", "")
	fs.StringVar(&logPath, "l", "", "")

	var verbose bool
	fs.BoolVar(&verbose, "verbose", false, "")
	fs.BoolVar(&verbose, "v", false, "")

	fs.Usage = func() { fmt.Fprint(stdout, usage) }

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 1
	}

	if fs.NArg() == 0 {
		fs.Usage()
		return 1
	}
	command, cmdArgs := fs.Arg(0), fs.Args()[1:]

	if command == "env" {
		if err := config.Usage(); err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
			return 1
		}
		return 0
	}

	cmd, ok := commands[command]
	if !ok {
		fmt.Fprintf(stderr, "unknown command: %s\n", command)
		fs.Usage()
		return 1
	}

	cfg, err := config.Parse()
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	if logPath != "" {
		cfg.LogPath = logPath
	}

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	closeLog := setupLogger(cfg.LogPath, level, stdout, stderr)
	defer closeLog()

	a, err := openApp(ctx, cfg, stdin, stdout)
	if err != nil {
		slog.Error("failed to open item store", "error", err)
		return 1
	}
	defer a.db.Close()

	if err := cmd(ctx, a, cmdArgs); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

func openApp(ctx context.Context, cfg *config.Config, stdin io.Reader, stdout io.Writer) (*app, error) {
	rates, err := cfg.ExchangeRates()
	if err != nil {
		return nil, err
	}

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	slog.Debug("database ready", "path", cfg.DBPath)

	backend := &store.SQLiteBackend{DB: database, Quota: cfg.StorageQuotaBytes}
	s, err := store.Open(ctx, backend, cfg.StorageKey)
	if err != nil {
		database.Close()
		return nil, err
	}
	s.Subscribe(func(e store.Event) {
		slog.Debug("store changed", "kind", e.Kind, "item_id", e.ItemID)
	})

	return &app{
		cfg:    cfg,
		db:     database,
		store:  s,
		rates:  rates,
		stdin:  stdin,
		stdout: stdout,
	}, nil
}
