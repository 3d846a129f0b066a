package migrate

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/sandeepkv93/identity-service/internal/config"
	"github.com/sandeepkv93/identity-service/internal/database"
	"github.com/sandeepkv93/identity-service/internal/tools/common"
	"github.com/sandeepkv93/identity-service/internal/tools/ui"
)

type options struct {
	envFile string
	timeout time.Duration
	ci      bool
}

func NewRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration tooling",
	}
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "path to env file")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "operation timeout")
	cmd.PersistentFlags().BoolVar(&opts.ci, "ci", false, "non-interactive machine-readable output")

	cmd.AddCommand(
		newUpCommand(opts),
		newStatusCommand(opts),
		newPlanCommand(opts),
	)
	return cmd
}

func newUpCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(opts, "up", func(ctx context.Context, cfg *config.Config, db *gorm.DB) ([]string, error) {
				if err := database.Migrate(db); err != nil {
					return nil, err
				}
				return []string{"schema migration applied", "service: " + cfg.OTELServiceName}, nil
			})
		},
	}
}

func newStatusCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check database reachability and pending changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(opts, "status", func(ctx context.Context, cfg *config.Config, db *gorm.DB) ([]string, error) {
				pending, err := database.Plan(db)
				if err != nil {
					return nil, err
				}
				details := []string{"database reachable", "service: " + cfg.OTELServiceName}
				if len(pending) == 0 {
					return append(details, "schema: up to date"), nil
				}
				return append(details, fmt.Sprintf("schema: %d pending change(s)", len(pending))), nil
			})
		},
	}
}

func newPlanCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "plan",
		Short: "Show migration plan (dry-run)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(opts, "plan", func(ctx context.Context, cfg *config.Config, db *gorm.DB) ([]string, error) {
				pending, err := database.Plan(db)
				if err != nil {
					return nil, err
				}
				if len(pending) == 0 {
					return []string{"nothing to apply"}, nil
				}
				return append(pending, "no mutation executed in plan mode"), nil
			})
		},
	}
}

func execute(opts *options, command string, fn func(context.Context, *config.Config, *gorm.DB) ([]string, error)) error {
	title := "migrate " + command
	details, err := run(opts, title, common.Instrument("migrate", command, func(ctx context.Context) ([]string, error) {
		cfg, db, err := loadConfigDB(opts.envFile)
		if err != nil {
			return nil, err
		}
		sqlDB, _ := db.DB()
		defer func() { _ = sqlDB.Close() }()
		return fn(ctx, cfg, db)
	}))
	if opts.ci {
		common.PrintCIResult(err == nil, title, details, err)
	}
	if err != nil {
		os.Exit(3)
	}
	return nil
}

func run(opts *options, title string, fn func(context.Context) ([]string, error)) ([]string, error) {
	if opts.ci {
		ctx, cancel := context.WithTimeout(context.Background(), opts.timeout)
		defer cancel()
		return fn(ctx)
	}
	return ui.Run(title, fn)
}

func loadConfigDB(envFile string) (*config.Config, *gorm.DB, error) {
	if err := common.LoadEnvFile(envFile); err != nil {
		return nil, nil, err
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	db, err := database.Open(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, db, nil
}
