// import-legacy loads a storage export of the original browser app (a JSON
// object keyed by storage slot) into the configured backend.
//
// It uses the same environment as the API (STORAGE_BACKEND, DB_*). Imported
// legacy password hashes are upgraded to bcrypt on each user's next login.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"arrest-log/internal/audit"
	"arrest-log/internal/auth"
	"arrest-log/internal/config"
	"arrest-log/internal/legacy"
	"arrest-log/internal/records"
	"arrest-log/internal/settings"
	"arrest-log/internal/users"
	"arrest-log/pkg/logger"
	"arrest-log/pkg/utils"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/pflag"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		filePath   string
		credScheme string
		skipLogs   bool
		dryRun     bool
	)
	flagSet := pflag.NewFlagSet("import-legacy", pflag.ContinueOnError)
	flagSet.StringVarP(&filePath, "file", "f", "-", "export JSON file (- for stdin)")
	flagSet.StringVar(&credScheme, "credential-scheme", string(legacy.CredentialsAuto), "how all-digit passwords are read: auto, rolling or plaintext")
	flagSet.BoolVar(&skipLogs, "skip-logs", false, "do not import activityLogs")
	flagSet.BoolVar(&dryRun, "dry-run", false, "decode and summarise the export without writing")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}
	credMode, err := legacy.ParseCredentialMode(credScheme)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	export, err := readExport(filePath)
	if err != nil {
		return err
	}
	if skipLogs {
		export.ActivityLogs = nil
	}
	if dryRun {
		slog.Info("export decoded",
			"users", len(export.Users),
			"records", len(export.PrisonRecords),
			"logs", len(export.ActivityLogs),
			"settings", export.AppSettings != nil,
		)
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	log := logger.New(cfg.App.Env, "arrest-log-import")
	slog.SetDefault(log)
	ctx = logger.With(ctx, log)
	if cfg.Storage.Backend != config.BackendPostgres {
		return fmt.Errorf("import needs STORAGE_BACKEND=%s", config.BackendPostgres)
	}

	db, err := utils.OpenPostgres(ctx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer db.Close()

	schema := append([]string{}, users.Schema...)
	schema = append(schema, records.Schema...)
	schema = append(schema, audit.Schema...)
	schema = append(schema, settings.Schema...)
	if err := utils.EnsureSchema(ctx, db, schema...); err != nil {
		return err
	}

	im := &legacy.Importer{
		Users:       users.NewPostgresRepo(db),
		Records:     records.NewPostgresRepo(db),
		Audit:       audit.NewService(audit.NewPostgresRepo(db)),
		Settings:    settings.NewPostgresRepo(db),
		Hasher:      auth.NewHasher(),
		Credentials: credMode,
	}
	rep, err := im.Import(ctx, export)
	if err != nil {
		return err
	}
	for _, s := range rep.Skipped {
		log.Warn("skipped", "reason", s)
	}
	out, _ := json.MarshalIndent(rep, "", "  ")
	fmt.Println(string(out))
	return nil
}

func readExport(path string) (legacy.Export, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return legacy.Export{}, err
		}
		defer f.Close()
		r = f
	}
	return legacy.Decode(r)
}
