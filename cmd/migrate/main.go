// Command migrate manages the Postgres schema.
//
//	migrate [-dir path] up | down | status | to <version> | create <name> | validate
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/surplus-backend/pkg/config"
	"github.com/angelmondragon/surplus-backend/pkg/db"
	"github.com/angelmondragon/surplus-backend/pkg/logger"
	"github.com/angelmondragon/surplus-backend/pkg/migrate"
)

func main() {
	dir := flag.String("dir", migrate.DefaultDir, "migrations directory; the default uses the embedded set")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: migrate [-dir path] up|down|status|to <version>|create <name>|validate")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	_ = godotenv.Load()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *dir, flag.Args()); err != nil {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, dir string, args []string) error {
	cmd, rest := args[0], args[1:]

	// Offline commands need neither config nor a database.
	switch cmd {
	case "create":
		if len(rest) != 1 {
			return fmt.Errorf("create takes exactly one name")
		}
		path, err := migrate.CreateSQLMigration(dir, rest[0])
		if err != nil {
			return err
		}
		fmt.Println("created", path)
		return nil
	case "validate":
		if err := migrate.ValidateFS(migrate.Source(dir)); err != nil {
			return err
		}
		fmt.Println("migrations ok")
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.FeatureFlags.UseSQLite {
		return fmt.Errorf("goose migrations target postgres; sqlite schemas come from the dev auto-migrate")
	}
	logg := logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "cmd": cmd})

	dbClient, err := db.New(ctx, cfg.DB, false, logg)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer dbClient.Close()
	sqlDB, err := dbClient.DB().DB()
	if err != nil {
		return fmt.Errorf("sql handle: %w", err)
	}

	runner, err := migrate.NewRunner(sqlDB, migrate.Source(dir), logg)
	if err != nil {
		return err
	}

	switch cmd {
	case "up":
		return runner.Up(ctx)
	case "down":
		return runner.Down(ctx)
	case "to":
		if len(rest) != 1 {
			return fmt.Errorf("to takes a version (YYYYMMDDHHMMSS)")
		}
		version, err := strconv.ParseInt(rest[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid version %q: %w", rest[0], err)
		}
		return runner.To(ctx, version)
	case "status":
		lines, err := runner.Status(ctx)
		if err != nil {
			return err
		}
		printStatus(lines)
		return nil
	}
	return fmt.Errorf("unknown command %q", cmd)
}

func printStatus(lines []migrate.StatusLine) {
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "VERSION\tAPPLIED AT\tFILE")
	for _, l := range lines {
		applied := "pending"
		if l.Applied {
			applied = l.AppliedAt.UTC().Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\n", l.Version, applied, l.Path)
	}
	_ = tw.Flush()
}
