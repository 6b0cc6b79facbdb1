package handler

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"discord-community-bot/internal/model"
	"discord-community-bot/internal/service"
)

// rankingLimit is how many members each leaderboard shows.
const rankingLimit = 10

// RankingHandler handles leaderboard commands.
type RankingHandler struct {
	rankingService *service.RankingService
}

// NewRankingHandler creates a new RankingHandler.
func NewRankingHandler(rankingService *service.RankingService) *RankingHandler {
	return &RankingHandler{rankingService: rankingService}
}

// HandleTop handles /top: the richest members of the guild.
func (h *RankingHandler) HandleTop(s *discordgo.Session, i *discordgo.InteractionCreate) {
	c := CallerOf(i)
	if c.GuildID == 0 {
		replyError(s, i, "top", errNoGuild)
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	users, err := h.rankingService.GetTopUsers(ctx, c.GuildID, rankingLimit)
	if err != nil {
		replyError(s, i, "top", err)
		return
	}
	replyEmbed(s, i, TopEmbed(users), nil, false)
}

// HandleDailyTop handles /daily-top: today's biggest game winners and losers.
func (h *RankingHandler) HandleDailyTop(s *discordgo.Session, i *discordgo.InteractionCreate) {
	c := CallerOf(i)
	if c.GuildID == 0 {
		replyError(s, i, "daily-top", errNoGuild)
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	winners, err := h.rankingService.GetDailyWinners(ctx, c.GuildID, rankingLimit)
	if err != nil {
		replyError(s, i, "daily-top", err)
		return
	}
	losers, err := h.rankingService.GetDailyLosers(ctx, c.GuildID, rankingLimit)
	if err != nil {
		replyError(s, i, "daily-top", err)
		return
	}
	replyEmbed(s, i, DailyTopEmbed(winners, losers), nil, false)
}

// TopEmbed renders the richest members.
func TopEmbed(users []*model.User) *discordgo.MessageEmbed {
	var b strings.Builder
	for rank, u := range users {
		fmt.Fprintf(&b, "%s %s: %s\n", medal(rank), Mention(u.UserID), Coins(u.Coins))
	}
	return &discordgo.MessageEmbed{
		Title:       "🏆 Richest members",
		Description: nonEmpty(b.String()),
		Color:       colorInfo,
	}
}

// DailyTopEmbed renders today's game results.
func DailyTopEmbed(winners, losers []*model.DailyRank) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title: "📊 Today's games",
		Color: colorInfo,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "🏆 Winners", Value: rankLines(winners, true), Inline: true},
			{Name: "😢 Losers", Value: rankLines(losers, false), Inline: true},
		},
	}
}

func rankLines(ranks []*model.DailyRank, medals bool) string {
	if len(ranks) == 0 {
		return "No games yet"
	}
	var b strings.Builder
	for i, r := range ranks {
		prefix := fmt.Sprintf("%d.", i+1)
		if medals {
			prefix = medal(i)
		}
		fmt.Fprintf(&b, "%s %s: %s\n", prefix, Mention(r.UserID), Signed(r.NetProfit))
	}
	return b.String()
}
