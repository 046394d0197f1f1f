package handler

import (
	"fmt"

	tele "gopkg.in/telebot.v3"

	"game-ledger-bot/internal/model"
	"game-ledger-bot/internal/service"
)

const helpText = "📒 梦幻记账命令\n" +
	separator + "\n" +
	"/go [多开数] [备注] - 开始会话\n" +
	"/end [备注] - 结束当前会话并结算点卡\n" +
	"/archive - 归档当前会话(不计成本)\n" +
	"/sessions - 最近会话\n" +
	"/income <分类> <金额> [物品] - 记收入\n" +
	"/expense <分类> <金额> [物品] - 记支出\n" +
	"/txs - 最近流水\n" +
	"/tx_del <ID> - 删除流水\n" +
	"/asset <类型> <名称> <单价> [数量] - 记资产\n" +
	"/assets - 资产列表\n" +
	"/asset_del <ID> - 删除资产\n" +
	"/dashboard [开始日期 结束日期] - 数据看板\n" +
	"/trend - 近30天收益\n" +
	"/token - 获取API令牌(仅私聊)\n" +
	separator + "\n" +
	"金额为游戏币，可写 5w 表示 50000"

// AccountHandler handles account-related commands.
type AccountHandler struct {
	accountService *service.AccountService
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accountService *service.AccountService) *AccountHandler {
	return &AccountHandler{accountService: accountService}
}

// HandleStart handles the /start command.
func (h *AccountHandler) HandleStart(c tele.Context) error {
	ctx, cancel := commandContext()
	defer cancel()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	name := displayName(sender)
	_, created, err := h.accountService.EnsureUser(ctx, sender.ID, name)
	if err != nil {
		return replyError(c, err, "创建账户失败")
	}

	if created {
		return c.Reply(fmt.Sprintf("🎉 欢迎 @%s！账本已创建。\n\n%s", name, helpText))
	}
	return c.Reply(fmt.Sprintf("👋 欢迎回来 @%s！\n\n%s", name, helpText))
}

// HandleHelp handles the /help command.
func (h *AccountHandler) HandleHelp(c tele.Context) error {
	return c.Reply(helpText + "\n分类: " + joinCategories() + "\n资产类型: " + joinAssetTypes())
}

// HandleToken handles the /token command. Tokens are only sent in private chat.
func (h *AccountHandler) HandleToken(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	if chat := c.Chat(); chat == nil || chat.Type != tele.ChatPrivate {
		return c.Reply("🔒 请私聊机器人获取令牌")
	}

	ctx, cancel := commandContext()
	defer cancel()
	token, expires, err := h.accountService.IssueToken(ctx, sender.ID, displayName(sender))
	if err != nil {
		return replyError(c, err, "生成令牌失败")
	}
	return c.Send(fmt.Sprintf(
		"🔑 API 令牌 (有效期至 %s)\n\n<code>%s</code>\n\n请求头: Authorization: Bearer &lt;令牌&gt;",
		expires.Format("2006-01-02 15:04"), token,
	), tele.ModeHTML)
}

func joinCategories() string {
	out := ""
	for i, c := range model.Categories() {
		if i > 0 {
			out += " "
		}
		out += string(c)
	}
	return out
}

func joinAssetTypes() string {
	out := ""
	for i, t := range model.AssetTypes() {
		if i > 0 {
			out += " "
		}
		out += string(t)
	}
	return out
}
