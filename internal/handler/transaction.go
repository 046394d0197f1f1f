package handler

import (
	"fmt"
	"strings"
	"time"

	tele "gopkg.in/telebot.v3"

	"game-ledger-bot/internal/model"
	"game-ledger-bot/internal/service"
)

// TransactionHandler handles income and expense commands.
type TransactionHandler struct {
	txs      *service.TransactionService
	sessions *service.SessionService
	loc      *time.Location
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(txs *service.TransactionService, sessions *service.SessionService, loc *time.Location) *TransactionHandler {
	return &TransactionHandler{txs: txs, sessions: sessions, loc: loc}
}

// HandleIncome handles /income <分类> <金额> [物品].
func (h *TransactionHandler) HandleIncome(c tele.Context) error {
	return h.record(c, model.TxIncome)
}

// HandleExpense handles /expense <分类> <金额> [物品].
func (h *TransactionHandler) HandleExpense(c tele.Context) error {
	return h.record(c, model.TxExpense)
}

// record stores a transaction, linked to the active session when there is one.
func (h *TransactionHandler) record(c tele.Context, txType model.TxType) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	tx, err := parseTxArgs(txType, c.Args())
	if err != nil {
		cmd := "/income"
		if txType == model.TxExpense {
			cmd = "/expense"
		}
		return c.Reply(fmt.Sprintf("用法: %s <分类> <金额> [物品]\n分类: %s\n例如: %s 抓鬼 30w", cmd, joinCategories(), cmd))
	}

	ctx, cancel := commandContext()
	defer cancel()
	if active, err := h.sessions.List(ctx, sender.ID, model.SessionActive, 1); err == nil && len(active) == 1 {
		tx.SessionID = &active[0].ID
	}

	saved, err := h.txs.Create(ctx, sender.ID, tx)
	if err != nil {
		return replyError(c, err, "记账失败")
	}

	reply := fmt.Sprintf("✅ 已记%s\n%s", saved.Type.Label(), formatTransaction(saved, h.loc))
	if saved.SessionID != nil {
		reply += fmt.Sprintf("\n🔗 关联会话 #%d", *saved.SessionID)
	}
	return c.Reply(reply)
}

// HandleTxs handles /txs.
func (h *TransactionHandler) HandleTxs(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	ctx, cancel := commandContext()
	defer cancel()
	txs, err := h.txs.Recent(ctx, sender.ID, recentLimit)
	if err != nil {
		return replyError(c, err, "获取流水失败")
	}
	if len(txs) == 0 {
		return c.Reply("📭 暂无流水")
	}

	lines := make([]string, 0, len(txs)+1)
	lines = append(lines, "💰 最近流水\n"+separator)
	for _, tx := range txs {
		lines = append(lines, formatTransaction(tx, h.loc))
	}
	return c.Reply(strings.Join(lines, "\n"))
}

// HandleTxDel handles /tx_del <ID>.
func (h *TransactionHandler) HandleTxDel(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	id, err := parseID(c.Args())
	if err != nil {
		return c.Reply("用法: /tx_del <ID>")
	}

	ctx, cancel := commandContext()
	defer cancel()
	if err := h.txs.Delete(ctx, sender.ID, id); err != nil {
		return replyError(c, err, "删除流水失败")
	}
	return c.Reply(fmt.Sprintf("🗑 流水 #%d 已删除", id))
}
