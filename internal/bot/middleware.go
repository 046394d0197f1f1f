// Package bot provides middleware for the Telegram bot.
package bot

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"game-ledger-bot/internal/config"
	"game-ledger-bot/internal/pkg/metrics"
	"game-ledger-bot/internal/service"
)

// privateUserCache tracks users who have used the bot in whitelisted groups.
// This allows them to use the bot in private chat.
var (
	privateUserCache = make(map[int64]bool)
	privateUserMu    sync.RWMutex
)

// AllowPrivateUser marks a user as allowed to use private chat.
func AllowPrivateUser(userID int64) {
	privateUserMu.Lock()
	defer privateUserMu.Unlock()
	privateUserCache[userID] = true
}

// IsPrivateUserAllowed checks if a user is allowed to use private chat.
func IsPrivateUserAllowed(userID int64) bool {
	privateUserMu.RLock()
	defer privateUserMu.RUnlock()
	return privateUserCache[userID]
}

// WhitelistMiddleware creates a middleware that checks if the chat is whitelisted.
func WhitelistMiddleware(cfg *config.Config) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			chat := c.Chat()
			sender := c.Sender()

			if chat == nil || sender == nil {
				return nil
			}

			if chat.Type == tele.ChatPrivate {
				// Allow if user has previously used bot in whitelisted group
				if IsPrivateUserAllowed(sender.ID) {
					return next(c)
				}

				// If whitelist is empty, allow all private chats
				if len(cfg.Whitelist.Chats) == 0 {
					return next(c)
				}

				log.Debug().
					Int64("user_id", sender.ID).
					Msg("Ignoring private chat from user not in whitelist cache")
				return nil
			}

			if !cfg.IsChatAllowed(chat.ID) {
				log.Debug().
					Int64("chat_id", chat.ID).
					Msg("Ignoring command from non-whitelisted chat")
				return nil
			}

			AllowPrivateUser(sender.ID)

			return next(c)
		}
	}
}

// commandName extracts "/cmd" from a message, dropping any @botname suffix.
// It returns "" for plain text.
func commandName(text string) string {
	if !strings.HasPrefix(text, "/") {
		return ""
	}
	cmd, _, _ := strings.Cut(text, " ")
	cmd, _, _ = strings.Cut(cmd, "@")
	return cmd
}

// LoggingMiddleware creates a middleware that logs all incoming commands and
// counts them.
func LoggingMiddleware() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			start := time.Now()
			sender := c.Sender()
			chat := c.Chat()
			cmd := commandName(c.Text())

			err := next(c)

			if cmd != "" {
				metrics.BotCommands.WithLabelValues(cmd).Inc()
			}
			logEvent := log.Debug()
			if sender != nil {
				logEvent = logEvent.
					Int64("user_id", sender.ID).
					Str("username", sender.Username)
			}
			if chat != nil {
				logEvent = logEvent.
					Int64("chat_id", chat.ID).
					Str("chat_type", string(chat.Type))
			}
			logEvent.
				Str("command", cmd).
				Dur("elapsed", time.Since(start)).
				Bool("failed", err != nil).
				Msg("Handled message")

			return err
		}
	}
}

// RegisterUserMiddleware makes sure every sender owns a ledger before any
// command writes to it. Senders already registered by this process are
// skipped.
func RegisterUserMiddleware(accounts *service.AccountService) tele.MiddlewareFunc {
	var known sync.Map
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			sender := c.Sender()
			if sender == nil || sender.IsBot {
				return next(c)
			}
			if _, ok := known.Load(sender.ID); !ok {
				name := sender.Username
				if name == "" {
					name = sender.FirstName
				}
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				_, _, err := accounts.EnsureUser(ctx, sender.ID, name)
				cancel()
				if err != nil {
					log.Error().Err(err).Int64("user_id", sender.ID).Msg("Failed to register user")
					return c.Reply("❌ 账户初始化失败，请稍后重试")
				}
				known.Store(sender.ID, struct{}{})
			}
			return next(c)
		}
	}
}

// RecoveryMiddleware creates a middleware that recovers from panics.
func RecoveryMiddleware() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Error().
						Interface("panic", r).
						Str("command", commandName(c.Text())).
						Msg("Recovered from panic in handler")
					err = c.Reply("❌ 发生内部错误，请稍后重试")
				}
			}()
			return next(c)
		}
	}
}
