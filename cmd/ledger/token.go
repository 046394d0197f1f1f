package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"game-ledger-bot/internal/api"
	"game-ledger-bot/internal/pkg/db"
	"game-ledger-bot/internal/repository"
)

func init() {
	rootCmd.AddCommand(tokenCmd)
}

var tokenCmd = &cobra.Command{
	Use:   "token TELEGRAM_ID",
	Short: "Sign an API token for a Telegram user",
	Long: `Sign an API bearer token for a user who has already talked to the bot.
Users can also get a token from the bot with /token in a private chat.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil || id <= 0 {
			return fmt.Errorf("invalid telegram id %q", args[0])
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := cfg.Validate(false, true); err != nil {
			return err
		}

		ctx := cmd.Context()
		dbPool, err := db.NewPool(ctx, &cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer dbPool.Close()

		exists, err := repository.NewUserRepository(dbPool.Pool).Exists(ctx, id)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("user %d has never used the bot", id)
		}

		token, expires, err := api.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL).Issue(id)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, token)
		fmt.Fprintf(out, "expires %s\n", expires.Format(time.RFC3339))
		return nil
	},
}
