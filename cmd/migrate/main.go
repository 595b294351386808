package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	_ "github.com/lib/pq"
	"github.com/schoolledger/backend/internal/infrastructure/config"
	"github.com/schoolledger/backend/internal/infrastructure/logger"
	"github.com/schoolledger/backend/internal/infrastructure/migration"
	"github.com/schoolledger/backend/migrations"
	"go.uber.org/zap"
)

func main() {
	var (
		dir      string
		logLevel string
	)

	flag.StringVar(&dir, "dir", "migrations", "Directory new migrations are written to by 'create'")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.Usage = printUsage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}
	command := args[0]

	log, err := logger.New(&logger.Config{
		Level:      logLevel,
		Format:     "console",
		Output:     "stdout",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	// Commands that only touch files
	switch command {
	case "create":
		if len(args) < 2 {
			log.Fatal("Migration name required. Usage: migrate create <name> [description]")
		}
		description := ""
		if len(args) > 2 {
			description = args[2]
		}
		mf, err := migration.CreateMigration(dir, args[1], description, time.Now())
		if err != nil {
			log.Fatal("Failed to create migration", zap.Error(err))
		}
		log.Info("Migration created",
			zap.Uint("version", mf.Version),
			zap.String("up_file", mf.UpPath),
			zap.String("down_file", mf.DownPath),
		)
		return

	case "list":
		names, err := migration.ListMigrationsFS(migrations.FS)
		if err != nil {
			log.Fatal("Failed to list migrations", zap.Error(err))
		}
		log.Info("Embedded migrations", zap.Int("count", len(names)))
		for _, name := range names {
			fmt.Println("  -", name)
		}
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatal("Failed to open database", zap.Error(err))
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatal("Failed to ping database", zap.Error(err))
	}

	m, err := migration.New(db, migrations.FS, log)
	if err != nil {
		log.Fatal("Failed to create migrator", zap.Error(err))
	}
	defer m.Close()

	switch command {
	case "up":
		if err := m.Up(); err != nil {
			log.Fatal("Migration up failed", zap.Error(err))
		}

	case "down":
		if err := m.Down(); err != nil {
			log.Fatal("Migration down failed", zap.Error(err))
		}

	case "step":
		n, err := strconv.Atoi(argAt(args, 1))
		if err != nil {
			log.Fatal("Step count required. Usage: migrate step <n>")
		}
		if err := m.Steps(n); err != nil {
			log.Fatal("Migration step failed", zap.Error(err))
		}

	case "goto":
		version, err := strconv.ParseUint(argAt(args, 1), 10, 32)
		if err != nil {
			log.Fatal("Version required. Usage: migrate goto <version>")
		}
		if err := m.GoTo(uint(version)); err != nil {
			log.Fatal("Migration goto failed", zap.Error(err))
		}

	case "version", "status":
		status, err := m.Status()
		if err != nil {
			log.Fatal("Failed to read migration status", zap.Error(err))
		}
		log.Info("Schema status",
			zap.Uint("version", status.Version),
			zap.Bool("dirty", status.Dirty),
			zap.Int("available", len(status.Available)),
			zap.Strings("pending", status.Pending),
		)

	case "force":
		version, err := strconv.Atoi(argAt(args, 1))
		if err != nil {
			log.Fatal("Version required. Usage: migrate force <version>")
		}
		if err := m.Force(version); err != nil {
			log.Fatal("Force version failed", zap.Error(err))
		}

	default:
		log.Error("Unknown command", zap.String("command", command))
		printUsage()
		os.Exit(1)
	}
}

func argAt(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}

func printUsage() {
	fmt.Println(`School ledger schema migrations

Usage:
  migrate [flags] <command> [arguments]

Commands:
  up                    Apply all pending migrations
  down                  Roll back all migrations
  step <n>              Apply n migrations (negative rolls back)
  goto <version>        Migrate to a specific version
  version | status      Show the applied version and pending migrations
  force <version>       Set the version without migrating (clears dirty state)
  create <name> [desc]  Write a new migration pair into -dir
  list                  List the embedded migrations

Flags:
  -dir string           Directory for 'create' (default: migrations)
  -log-level string     Log level: debug, info, warn, error (default: info)

The database is configured through config.toml or LEDGER_DATABASE_* variables.`)
}
