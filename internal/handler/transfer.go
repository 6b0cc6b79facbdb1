package handler

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"discord-community-bot/internal/service"
)

// TransferHandler handles transfer-related commands.
type TransferHandler struct {
	transferService *service.TransferService
}

// NewTransferHandler creates a new TransferHandler.
func NewTransferHandler(transferService *service.TransferService) *TransferHandler {
	return &TransferHandler{transferService: transferService}
}

// HandleGive handles /give member:<user> amount:<n>.
func (h *TransferHandler) HandleGive(s *discordgo.Session, i *discordgo.InteractionCreate) {
	c := CallerOf(i)
	if c.GuildID == 0 {
		replyError(s, i, "give", errNoGuild)
		return
	}
	_, opts := commandOptions(i)
	to := opts.getUser("member")
	amount, _ := opts.getInt("amount")
	if member, ok := opts["member"]; ok {
		if u := member.UserValue(s); u != nil && u.Bot {
			replyEphemeral(s, i, "🤖 Bots cannot hold coins.")
			return
		}
	}

	ctx, cancel := requestContext()
	defer cancel()

	balance, err := h.transferService.Transfer(ctx, c.GuildID, c.UserID, to, amount)
	if err != nil {
		replyError(s, i, "give", err)
		return
	}
	reply(s, i, fmt.Sprintf("💸 %s gave %s to %s. Remaining: %s",
		Mention(c.UserID), Coins(amount), Mention(to), Coins(balance)))
}
