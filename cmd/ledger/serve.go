package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"game-ledger-bot/internal/api"
	"game-ledger-bot/internal/bot"
	"game-ledger-bot/internal/pkg/db"
	"game-ledger-bot/internal/pkg/lock"
	"game-ledger-bot/internal/repository"
	"game-ledger-bot/internal/service"
)

var (
	noBot bool
	noAPI bool
)

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().BoolVar(&noBot, "no-bot", false, "Do not start the Telegram bot")
	serveCmd.Flags().BoolVar(&noAPI, "no-api", false, "Do not start the HTTP API")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Telegram bot and the HTTP API",
	Long: `Run migrations, then serve the Telegram bot and the HTTP API until
SIGINT or SIGTERM is received.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	if noBot && noAPI {
		return errors.New("nothing to serve: both --no-bot and --no-api are set")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(!noBot, !noAPI); err != nil {
		return err
	}
	loc, err := cfg.Ledger.Location()
	if err != nil {
		return err
	}

	// Create context for graceful shutdown
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database connection pool
	dbPool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer dbPool.Close()

	if err := db.RunMigrations(ctx, cfg.Database.DSN()); err != nil {
		return err
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(dbPool.Pool)
	sessionRepo := repository.NewSessionRepository(dbPool.Pool)
	txRepo := repository.NewTransactionRepository(dbPool.Pool)
	assetRepo := repository.NewAssetRepository(dbPool.Pool)
	txManager := repository.NewTxManager(dbPool.Pool)

	// Initialize services
	tokens := api.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	accountService := service.NewAccountService(userRepo, tokens)
	sessionService := service.NewSessionService(sessionRepo, txRepo, txManager, lock.NewKeyedLock())
	transactionService := service.NewTransactionService(txRepo, sessionRepo, txManager)
	assetService := service.NewAssetService(assetRepo)
	dashboardService := service.NewDashboardService(sessionRepo, txRepo, assetRepo, loc)
	importService := service.NewImportService(sessionRepo, txRepo, assetRepo)

	// Every transport is built before any of them starts.
	var server apiRunner
	if !noAPI {
		server = api.NewServer(&cfg.HTTP, api.Dependencies{
			Sessions:     sessionService,
			Transactions: transactionService,
			Assets:       assetService,
			Dashboard:    dashboardService,
			Importer:     importService,
			Tokens:       tokens,
			Health:       dbPool,
		})
	}

	var telegramBot botRunner
	if !noBot {
		b, err := bot.New(&bot.Dependencies{
			Config:             cfg,
			AccountService:     accountService,
			SessionService:     sessionService,
			TransactionService: transactionService,
			AssetService:       assetService,
			DashboardService:   dashboardService,
		})
		if err != nil {
			return err
		}
		telegramBot = b
	}

	log.Info().Bool("bot", !noBot).Bool("api", !noAPI).Msg("Ledger is running")
	if err := runTransports(ctx, server, telegramBot); err != nil {
		return err
	}
	log.Info().Msg("Stopped gracefully")
	return nil
}

type apiRunner interface {
	Run(ctx context.Context) error
}

type botRunner interface {
	Start()
	Stop()
}

// runTransports runs the API and the bot until ctx is done or one of them
// fails, then stops both and waits for them. Either may be nil.
func runTransports(ctx context.Context, server apiRunner, telegramBot botRunner) error {
	g, gctx := errgroup.WithContext(ctx)

	if server != nil {
		g.Go(func() error {
			return server.Run(gctx)
		})
	}
	if telegramBot != nil {
		g.Go(func() error {
			go telegramBot.Start()
			<-gctx.Done()
			telegramBot.Stop()
			return nil
		})
	}

	return g.Wait()
}
