// Package handler provides the Discord interaction handlers and the
// renderers that turn game state into embeds and buttons.
package handler

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"discord-community-bot/internal/service"
)

// historyLimit is how many ledger entries /history shows.
const historyLimit = 10

// AccountHandler handles account-related commands.
type AccountHandler struct {
	accountService *service.AccountService
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accountService *service.AccountService) *AccountHandler {
	return &AccountHandler{accountService: accountService}
}

// HandleBalance handles /balance [member].
func (h *AccountHandler) HandleBalance(s *discordgo.Session, i *discordgo.InteractionCreate) {
	c := CallerOf(i)
	if c.GuildID == 0 {
		replyError(s, i, "balance", errNoGuild)
		return
	}
	_, opts := commandOptions(i)
	target := c.UserID
	if other := opts.getUser("member"); other != 0 {
		target = other
	}

	ctx, cancel := requestContext()
	defer cancel()

	balance, err := h.accountService.GetBalance(ctx, c.GuildID, target)
	if err != nil {
		replyError(s, i, "balance", err)
		return
	}
	replyEphemeral(s, i, fmt.Sprintf("💰 %s has %s", Mention(target), Coins(balance)))
}

// HandleDaily handles /daily.
func (h *AccountHandler) HandleDaily(s *discordgo.Session, i *discordgo.InteractionCreate) {
	c := CallerOf(i)
	if c.GuildID == 0 {
		replyError(s, i, "daily", errNoGuild)
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	claim, err := h.accountService.ClaimDaily(ctx, c.GuildID, c.UserID)
	if err != nil {
		replyError(s, i, "daily", err)
		return
	}
	reply(s, i, fmt.Sprintf("🎁 %s claimed %s! Balance: %s", Mention(c.UserID), Coins(claim.Amount), Coins(claim.Balance)))
}

// HandleProfile handles /profile: level, coins and progress counters.
func (h *AccountHandler) HandleProfile(s *discordgo.Session, i *discordgo.InteractionCreate) {
	c := CallerOf(i)
	if c.GuildID == 0 {
		replyError(s, i, "profile", errNoGuild)
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	user, _, err := h.accountService.EnsureUser(ctx, c.GuildID, c.UserID)
	if err != nil {
		replyError(s, i, "profile", err)
		return
	}
	progress, err := h.accountService.GetProgress(ctx, c.GuildID, c.UserID)
	if err != nil {
		replyError(s, i, "profile", err)
		return
	}

	embed := &discordgo.MessageEmbed{
		Title: "📇 Profile",
		Color: colorInfo,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Coins", Value: Coins(user.Coins), Inline: true},
			{Name: "Level", Value: fmt.Sprint(user.Level), Inline: true},
			{Name: "XP", Value: printer.Sprintf("%d", user.XP), Inline: true},
		},
	}
	if len(progress) > 0 {
		var b strings.Builder
		for _, p := range progress {
			fmt.Fprintf(&b, "%s: %s\n", progressLabel(p.Event), printer.Sprintf("%d", p.Count))
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Progress", Value: b.String()})
	}
	embed.Description = Mention(c.UserID)
	replyEmbed(s, i, embed, nil, true)
}

func progressLabel(event string) string {
	return strings.ReplaceAll(strings.ToLower(event), "_", " ")
}

// HandleHistory handles /history: the latest ledger entries.
func (h *AccountHandler) HandleHistory(s *discordgo.Session, i *discordgo.InteractionCreate) {
	c := CallerOf(i)
	if c.GuildID == 0 {
		replyError(s, i, "history", errNoGuild)
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	txs, err := h.accountService.GetHistory(ctx, c.GuildID, c.UserID, historyLimit)
	if err != nil {
		replyError(s, i, "history", err)
		return
	}
	if len(txs) == 0 {
		replyEphemeral(s, i, "📜 No transactions yet.")
		return
	}

	var b strings.Builder
	for _, tx := range txs {
		fmt.Fprintf(&b, "<t:%d:R> `%s` %s", tx.CreatedAt.Unix(), tx.Type, Signed(tx.Amount))
		if tx.Description != nil && *tx.Description != "" {
			b.WriteString(" · " + *tx.Description)
		}
		b.WriteString("\n")
	}
	replyEmbed(s, i, &discordgo.MessageEmbed{Title: "📜 Recent transactions", Description: b.String(), Color: colorInfo}, nil, true)
}
