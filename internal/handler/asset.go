package handler

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	tele "gopkg.in/telebot.v3"

	"game-ledger-bot/internal/model"
	"game-ledger-bot/internal/service"
)

// AssetHandler handles asset commands.
type AssetHandler struct {
	assets *service.AssetService
}

// NewAssetHandler creates a new AssetHandler.
func NewAssetHandler(assets *service.AssetService) *AssetHandler {
	return &AssetHandler{assets: assets}
}

// HandleAsset handles /asset <类型> <名称> <单价> [数量].
func (h *AssetHandler) HandleAsset(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	a, err := parseAssetArgs(c.Args())
	if err != nil {
		return c.Reply("用法: /asset <类型> <名称> <单价> [数量]\n类型: " + joinAssetTypes() + "\n例如: /asset 召唤兽 须弥 800")
	}

	ctx, cancel := commandContext()
	defer cancel()
	saved, err := h.assets.Create(ctx, sender.ID, a)
	if err != nil {
		return replyError(c, err, "记录资产失败")
	}
	return c.Reply("✅ 资产已记录\n" + formatAsset(saved))
}

// HandleAssets handles /assets [类型].
func (h *AssetHandler) HandleAssets(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	var assetType string
	if args := c.Args(); len(args) > 0 {
		assetType = args[0]
	}

	ctx, cancel := commandContext()
	defer cancel()
	assets, err := h.assets.List(ctx, sender.ID, model.AssetType(assetType))
	if err != nil {
		return replyError(c, err, "获取资产失败")
	}
	if len(assets) == 0 {
		return c.Reply("📭 暂无资产")
	}

	total := decimal.Zero
	lines := make([]string, 0, len(assets)+2)
	lines = append(lines, "🎒 资产列表\n"+separator)
	for _, a := range assets {
		total = total.Add(a.TotalValue())
		lines = append(lines, formatAsset(a))
	}
	lines = append(lines, fmt.Sprintf("%s\n合计: %s", separator, money(total)))
	return c.Reply(strings.Join(lines, "\n"))
}

// HandleAssetDel handles /asset_del <ID>.
func (h *AssetHandler) HandleAssetDel(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	id, err := parseID(c.Args())
	if err != nil {
		return c.Reply("用法: /asset_del <ID>")
	}

	ctx, cancel := commandContext()
	defer cancel()
	if err := h.assets.Delete(ctx, sender.ID, id); err != nil {
		return replyError(c, err, "删除资产失败")
	}
	return c.Reply(fmt.Sprintf("🗑 资产 #%d 已删除", id))
}
