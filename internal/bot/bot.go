// Package bot provides the Telegram bot initialization and handler registration.
package bot

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"game-ledger-bot/internal/config"
	"game-ledger-bot/internal/handler"
	"game-ledger-bot/internal/service"
)

// Bot wraps the telebot instance with application dependencies.
type Bot struct {
	bot *tele.Bot
	cfg *config.Config

	accountHandler     *handler.AccountHandler
	sessionHandler     *handler.SessionHandler
	transactionHandler *handler.TransactionHandler
	assetHandler       *handler.AssetHandler
	dashboardHandler   *handler.DashboardHandler
}

// Dependencies holds all the dependencies needed by the bot handlers.
type Dependencies struct {
	Config             *config.Config
	AccountService     *service.AccountService
	SessionService     *service.SessionService
	TransactionService *service.TransactionService
	AssetService       *service.AssetService
	DashboardService   *service.DashboardService
}

// New creates a new Bot instance with the given dependencies.
func New(deps *Dependencies) (*Bot, error) {
	if deps.Config.Bot.Token == "" {
		return nil, config.ErrMissingBotToken
	}

	timeout := deps.Config.Bot.PollTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	teleBot, err := tele.NewBot(tele.Settings{
		Token:  deps.Config.Bot.Token,
		Poller: &tele.LongPoller{Timeout: timeout},
		OnError: func(err error, c tele.Context) {
			event := log.Error().Err(err)
			if c != nil && c.Sender() != nil {
				event = event.Int64("user_id", c.Sender().ID)
			}
			event.Msg("Bot handler error")
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	loc := deps.DashboardService.Location()
	b := &Bot{
		bot:                teleBot,
		cfg:                deps.Config,
		accountHandler:     handler.NewAccountHandler(deps.AccountService),
		sessionHandler:     handler.NewSessionHandler(deps.SessionService, loc),
		transactionHandler: handler.NewTransactionHandler(deps.TransactionService, deps.SessionService, loc),
		assetHandler:       handler.NewAssetHandler(deps.AssetService),
		dashboardHandler:   handler.NewDashboardHandler(deps.DashboardService),
	}

	b.registerMiddleware(deps.AccountService)
	b.registerHandlers()

	return b, nil
}

// registerMiddleware registers all middleware.
func (b *Bot) registerMiddleware(accounts *service.AccountService) {
	b.bot.Use(RecoveryMiddleware())
	b.bot.Use(WhitelistMiddleware(b.cfg))
	b.bot.Use(LoggingMiddleware())
	b.bot.Use(RegisterUserMiddleware(accounts))
}

// registerHandlers registers all command handlers.
func (b *Bot) registerHandlers() {
	b.bot.Handle("/start", b.accountHandler.HandleStart)
	b.bot.Handle("/help", b.accountHandler.HandleHelp)
	b.bot.Handle("/token", b.accountHandler.HandleToken)

	b.bot.Handle("/go", b.sessionHandler.HandleGo)
	b.bot.Handle("/end", b.sessionHandler.HandleEnd)
	b.bot.Handle("/archive", b.sessionHandler.HandleArchive)
	b.bot.Handle("/sessions", b.sessionHandler.HandleSessions)

	b.bot.Handle("/income", b.transactionHandler.HandleIncome)
	b.bot.Handle("/expense", b.transactionHandler.HandleExpense)
	b.bot.Handle("/txs", b.transactionHandler.HandleTxs)
	b.bot.Handle("/tx_del", b.transactionHandler.HandleTxDel)

	b.bot.Handle("/asset", b.assetHandler.HandleAsset)
	b.bot.Handle("/assets", b.assetHandler.HandleAssets)
	b.bot.Handle("/asset_del", b.assetHandler.HandleAssetDel)

	b.bot.Handle("/dashboard", b.dashboardHandler.HandleDashboard)
	b.bot.Handle("/trend", b.dashboardHandler.HandleTrend)
}

// Start starts the bot polling. It blocks until Stop is called.
func (b *Bot) Start() {
	log.Info().Str("username", b.bot.Me.Username).Msg("Starting bot...")
	b.bot.Start()
}

// Stop stops the bot gracefully.
func (b *Bot) Stop() {
	log.Info().Msg("Stopping bot...")
	b.bot.Stop()
}
