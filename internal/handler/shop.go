package handler

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"

	"discord-community-bot/internal/model"
	"discord-community-bot/internal/service"
	"discord-community-bot/internal/shop"
)

// ShopHandler handles shop and inventory commands.
type ShopHandler struct {
	shopService    *service.ShopService
	accountService *service.AccountService
}

// NewShopHandler creates a new ShopHandler.
func NewShopHandler(shopService *service.ShopService, accountService *service.AccountService) *ShopHandler {
	return &ShopHandler{
		shopService:    shopService,
		accountService: accountService,
	}
}

// HandleShop handles /shop: the catalog with prices.
func (h *ShopHandler) HandleShop(s *discordgo.Session, i *discordgo.InteractionCreate) {
	replyEmbed(s, i, ShopEmbed(h.shopService.GetShopItems()), nil, true)
}

// HandleBuy handles /buy item:<id or name>.
func (h *ShopHandler) HandleBuy(s *discordgo.Session, i *discordgo.InteractionCreate) {
	c := CallerOf(i)
	if c.GuildID == 0 {
		replyError(s, i, "buy", errNoGuild)
		return
	}
	_, opts := commandOptions(i)
	item, ok := service.FindItem(opts.getString("item"))
	if !ok {
		replyError(s, i, "buy", service.ErrItemNotFound)
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	balance, err := h.shopService.PurchaseItem(ctx, c.GuildID, c.UserID, item.Type)
	if err != nil {
		replyError(s, i, "buy", err)
		return
	}
	replyEphemeral(s, i, fmt.Sprintf("🛒 Bought %s for %s. Balance: %s", item.Label(), Coins(item.Price), Coins(balance)))
}

// HandleUse handles /use item:<id or name> [nickname:<text>]. Boosters
// start their effect; a nickname ticket renames the caller.
func (h *ShopHandler) HandleUse(s *discordgo.Session, i *discordgo.InteractionCreate) {
	c := CallerOf(i)
	if c.GuildID == 0 {
		replyError(s, i, "use", errNoGuild)
		return
	}
	_, opts := commandOptions(i)
	item, ok := service.FindItem(opts.getString("item"))
	if !ok {
		replyError(s, i, "use", service.ErrItemNotFound)
		return
	}
	nickname := strings.TrimSpace(opts.getString("nickname"))
	if item.Type == shop.ItemNicknameTicket && nickname == "" {
		replyEphemeral(s, i, "✏️ Give the new name with the nickname option.")
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	use, err := h.shopService.UseItem(ctx, c.GuildID, c.UserID, item.Type)
	if err != nil {
		replyError(s, i, "use", err)
		return
	}
	if use.Effect != nil {
		replyEphemeral(s, i, item.Label()+" "+EffectLine(*use.Effect))
		return
	}

	if err := s.GuildMemberNickname(i.GuildID, strconv.FormatInt(c.UserID, 10), nickname); err != nil {
		if rerr := h.shopService.ReturnItem(ctx, c.GuildID, c.UserID, item.Type); rerr != nil {
			log.Error().Err(rerr).Int64("guild_id", c.GuildID).Int64("user_id", c.UserID).Msg("Failed to return nickname ticket")
		}
		replyError(s, i, "use", err)
		return
	}
	replyEphemeral(s, i, "✏️ Your nickname is now **"+nickname+"**.")
}

// EffectLine renders a running effect with its relative expiry.
func EffectLine(e model.ActiveEffect) string {
	return fmt.Sprintf("active, ends <t:%d:R>", e.ExpiresAt.Unix())
}

// HandleInventory handles /inventory.
func (h *ShopHandler) HandleInventory(s *discordgo.Session, i *discordgo.InteractionCreate) {
	c := CallerOf(i)
	if c.GuildID == 0 {
		replyError(s, i, "inventory", errNoGuild)
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	items, err := h.accountService.GetInventory(ctx, c.GuildID, c.UserID)
	if err != nil {
		replyError(s, i, "inventory", err)
		return
	}
	effects, err := h.shopService.ActiveEffects(ctx, c.GuildID, c.UserID)
	if err != nil {
		replyError(s, i, "inventory", err)
		return
	}
	if len(items) == 0 && len(effects) == 0 {
		replyEphemeral(s, i, "🎒 Your inventory is empty.")
		return
	}

	var b strings.Builder
	for _, it := range items {
		label := it.ItemID
		if cfg, ok := shop.GetItem(shop.ItemType(it.ItemID)); ok {
			label = cfg.Label()
		}
		fmt.Fprintf(&b, "%s × %d\n", label, it.Quantity)
	}
	for _, e := range effects {
		fmt.Fprintf(&b, "`%s` %s\n", e.Effect, EffectLine(e))
	}
	replyEmbed(s, i, &discordgo.MessageEmbed{Title: "🎒 Inventory", Description: b.String(), Color: colorInfo}, nil, true)
}

// ShopEmbed renders the catalog.
func ShopEmbed(items []shop.ItemConfig) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:  "🏪 Shop",
		Color:  colorInfo,
		Footer: &discordgo.MessageEmbedFooter{Text: "Buy with /buy item:<name>"},
	}
	for _, it := range items {
		value := Coins(it.Price) + "\n" + it.Description
		if it.IsTimeBased() {
			value += "\nLasts " + it.Duration.String()
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   it.Label(),
			Value:  value,
			Inline: true,
		})
	}
	return embed
}
