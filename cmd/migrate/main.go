// Command migrate manages the database schema.
//
//	migrate up | down | status | to <version> | create <name> | validate
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
	"time"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/easyshop-backend/pkg/config"
	"github.com/angelmondragon/easyshop-backend/pkg/db"
	"github.com/angelmondragon/easyshop-backend/pkg/logger"
	"github.com/angelmondragon/easyshop-backend/pkg/migrate"
)

func main() {
	dir := flag.String("dir", migrate.SourceDir, "migration source directory for create and validate")
	flag.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), "usage: migrate [-dir path] up|down|status|to <version>|create <name>|validate")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}
	cmd, args := flag.Arg(0), flag.Args()[1:]

	// create and validate only touch the source tree.
	switch cmd {
	case "create":
		if len(args) != 1 {
			exit("create needs exactly one name")
		}
		path, err := migrate.Create(*dir, args[0], time.Now())
		if err != nil {
			exit(err.Error())
		}
		fmt.Println(path)
		return
	case "validate":
		files, err := migrate.Scan(os.DirFS(*dir))
		if err != nil {
			exit(err.Error())
		}
		fmt.Printf("%d migrations ok\n", len(files))
		return
	}

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		exit("config: " + err.Error())
	}
	logg := logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       cfg.App.LogLevel,
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "cmd": cmd})

	if err := run(ctx, cfg, logg, cmd, args); err != nil {
		logg.Error(ctx, "migrate failed", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger, cmd string, args []string) error {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer dbClient.Close()

	sqlDB, err := dbClient.DB().DB()
	if err != nil {
		return err
	}
	m, err := migrate.NewMigrator(sqlDB, migrate.Migrations(), logg)
	if err != nil {
		return err
	}

	switch cmd {
	case "up":
		return m.Up(ctx)
	case "down":
		return m.Down(ctx)
	case "to":
		if len(args) != 1 {
			return fmt.Errorf("to needs a version")
		}
		version, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("version %q: %w", args[0], err)
		}
		return m.To(ctx, version)
	case "status":
		statuses, err := m.Status(ctx)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "VERSION\tSTATE\tAPPLIED AT")
		for _, st := range statuses {
			applied := "-"
			if !st.AppliedAt.IsZero() {
				applied = st.AppliedAt.UTC().Format(time.RFC3339)
			}
			fmt.Fprintf(w, "%d\t%s\t%s\n", st.Source.Version, st.State, applied)
		}
		return w.Flush()
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func exit(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
