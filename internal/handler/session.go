package handler

import (
	"strings"
	"time"

	tele "gopkg.in/telebot.v3"

	"game-ledger-bot/internal/service"
)

const recentLimit = 10

// SessionHandler handles play session commands.
type SessionHandler struct {
	sessions *service.SessionService
	loc      *time.Location
}

// NewSessionHandler creates a new SessionHandler. loc is used to display times.
func NewSessionHandler(sessions *service.SessionService, loc *time.Location) *SessionHandler {
	return &SessionHandler{sessions: sessions, loc: loc}
}

// HandleGo handles /go [多开数] [备注].
func (h *SessionHandler) HandleGo(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	args, err := parseGoArgs(c.Args())
	if err != nil {
		return c.Reply("用法: /go [多开数] [备注]\n例如: /go 5 抓鬼")
	}

	ctx, cancel := commandContext()
	defer cancel()
	s, err := h.sessions.Start(ctx, sender.ID, args.MultiAccount, args.Notes)
	if err != nil {
		return replyError(c, err, "开始会话失败")
	}
	return c.Reply("🎮 会话已开始\n" + formatSession(s, h.loc) + "\n结束时发送 /end")
}

// HandleEnd handles /end [备注]. It settles the latest active session.
func (h *SessionHandler) HandleEnd(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	ctx, cancel := commandContext()
	defer cancel()
	s, err := h.sessions.EndLatest(ctx, sender.ID, joinNotes(c.Args()))
	if err != nil {
		return replyError(c, err, "结束会话失败")
	}
	return c.Reply(formatSettled(s))
}

// HandleArchive handles /archive.
func (h *SessionHandler) HandleArchive(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	ctx, cancel := commandContext()
	defer cancel()
	s, err := h.sessions.ArchiveLatest(ctx, sender.ID)
	if err != nil {
		return replyError(c, err, "归档会话失败")
	}
	return c.Reply("🗄 已归档\n" + formatSession(s, h.loc))
}

// HandleSessions handles /sessions.
func (h *SessionHandler) HandleSessions(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	ctx, cancel := commandContext()
	defer cancel()
	sessions, err := h.sessions.List(ctx, sender.ID, "", recentLimit)
	if err != nil {
		return replyError(c, err, "获取会话失败")
	}
	if len(sessions) == 0 {
		return c.Reply("📭 暂无会话，发送 /go 开始")
	}

	lines := make([]string, 0, len(sessions)+1)
	lines = append(lines, "🎮 最近会话\n"+separator)
	for _, s := range sessions {
		lines = append(lines, formatSession(s, h.loc))
	}
	return c.Reply(strings.Join(lines, "\n"))
}
