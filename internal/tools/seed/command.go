package seed

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/sandeepkv93/identity-service/internal/config"
	"github.com/sandeepkv93/identity-service/internal/database"
	"github.com/sandeepkv93/identity-service/internal/repository"
	"github.com/sandeepkv93/identity-service/internal/service"
	"github.com/sandeepkv93/identity-service/internal/tools/common"
	"github.com/sandeepkv93/identity-service/internal/tools/ui"
)

var errProductionSeed = errors.New("refusing to seed accounts in production")

type options struct {
	envFile string
	ci      bool
}

func NewRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{Use: "seed", Short: "Database seed tooling"}
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "path to env file")
	cmd.PersistentFlags().BoolVar(&opts.ci, "ci", false, "non-interactive machine-readable output")
	cmd.AddCommand(newAccountCommand(opts), newPurgeCodesCommand(opts))
	return cmd
}

func newAccountCommand(opts *options) *cobra.Command {
	var in database.SeedAccountInput
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Create a verified local account, skipping the email code flow",
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(opts, "account", func(ctx context.Context, cfg *config.Config, db *gorm.DB) ([]string, error) {
				if cfg.IsProduction() {
					return nil, errProductionSeed
				}
				if dryRun {
					return []string{
						fmt.Sprintf("would create account %q <%s>", strings.TrimSpace(in.Username), service.NormalizeEmail(in.Email)),
						"no mutation executed in dry-run mode",
					}, nil
				}
				account, err := database.SeedAccount(ctx, db, in)
				if err != nil {
					return nil, err
				}
				return []string{fmt.Sprintf("created account id=%d username=%s", account.ID, account.Username)}, nil
			})
		},
	}
	cmd.Flags().StringVar(&in.Username, "username", "dev", "account username")
	cmd.Flags().StringVar(&in.Email, "email", "dev@example.com", "account email")
	cmd.Flags().StringVar(&in.Password, "password", "", "account password")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show what would be created")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newPurgeCodesCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "purge-codes",
		Short: "Delete expired verification codes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(opts, "purge-codes", func(ctx context.Context, cfg *config.Config, db *gorm.DB) ([]string, error) {
				store := service.NewVerificationCodeStore(repository.NewVerificationCodeRepository(db), cfg.VerificationCodeTTL)
				deleted, err := store.CleanupExpired(ctx)
				if err != nil {
					return nil, err
				}
				return []string{fmt.Sprintf("deleted %d expired verification code(s)", deleted)}, nil
			})
		},
	}
}

func execute(opts *options, command string, fn func(context.Context, *config.Config, *gorm.DB) ([]string, error)) error {
	title := "seed " + command
	details, err := run(opts, title, common.Instrument("seed", command, func(ctx context.Context) ([]string, error) {
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
		return fn(context.Background())
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
