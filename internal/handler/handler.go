// Package handler provides Telegram bot command handlers.
package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"game-ledger-bot/internal/ledger"
	"game-ledger-bot/internal/model"
	"game-ledger-bot/internal/pkg/lock"
	"game-ledger-bot/internal/repository"
	"game-ledger-bot/internal/service"
)

// commandTimeout bounds the work of one command.
const commandTimeout = 15 * time.Second

func commandContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), commandTimeout)
}

// errorText maps a service error to a user-facing reply, or "" if the error
// is unexpected.
func errorText(err error) string {
	switch {
	case errors.Is(err, service.ErrNoActiveSession):
		return "❌ 没有进行中的会话，先用 /go 开始一个"
	case errors.Is(err, ledger.ErrSessionNotActive):
		return "❌ 会话已结束或已归档"
	case errors.Is(err, ledger.ErrInvalidMultiAccount):
		return fmt.Sprintf("❌ 多开数量必须在 %d 到 %d 之间", model.MinMultiAccount, model.MaxMultiAccount)
	case errors.Is(err, ledger.ErrEndBeforeStart):
		return "❌ 结束时间早于开始时间"
	case errors.Is(err, lock.ErrLockTimeout):
		return "⏳ 会话正在结算，请稍后重试"
	case errors.Is(err, repository.ErrNotFound):
		return "❌ 记录不存在"
	case errors.Is(err, service.ErrLinkedSession):
		return "❌ 关联的会话不存在"
	case errors.Is(err, service.ErrInvalidInput):
		return "❌ 参数无效: " + strings.TrimPrefix(err.Error(), service.ErrInvalidInput.Error()+": ")
	case errors.Is(err, ErrBadNumber):
		return "❌ 数字格式错误"
	}
	return ""
}

// replyError replies with the mapped message, logging unexpected errors.
func replyError(c tele.Context, err error, fallback string) error {
	if text := errorText(err); text != "" {
		return c.Reply(text)
	}
	event := log.Error().Err(err)
	if sender := c.Sender(); sender != nil {
		event = event.Int64("user_id", sender.ID)
	}
	event.Str("command", c.Text()).Msg("Command failed")
	return c.Reply("❌ " + fallback + "，请稍后重试")
}
