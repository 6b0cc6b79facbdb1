package handler

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"

	"discord-community-bot/internal/game"
	"discord-community-bot/internal/service"
)

// GameHandler handles the single-player games registered in the game
// registry. Every solo game is one slash command named after its Command.
type GameHandler struct {
	registry    *game.Registry
	playService *service.PlayService
}

// NewGameHandler creates a new GameHandler.
func NewGameHandler(registry *game.Registry, playService *service.PlayService) *GameHandler {
	return &GameHandler{
		registry:    registry,
		playService: playService,
	}
}

// HandlePlay handles solo game commands, e.g. /slots bet:100 or
// /coin bet:50 side:tails. Every string option is passed to the game as a param.
func (h *GameHandler) HandlePlay(s *discordgo.Session, i *discordgo.InteractionCreate) {
	c := CallerOf(i)
	if c.GuildID == 0 {
		replyError(s, i, "play", errNoGuild)
		return
	}

	command := i.ApplicationCommandData().Name
	_, opts := commandOptions(i)
	bet, _ := opts.getInt("bet")
	params := soloParams(opts)

	ctx, cancel := requestContext()
	defer cancel()

	res, err := h.playService.Play(ctx, c.GuildID, c.UserID, command, bet, params)
	if err != nil {
		replyError(s, i, command, err)
		return
	}

	log.Debug().
		Int64("guild_id", c.GuildID).
		Int64("user_id", c.UserID).
		Str("game", command).
		Int64("bet", bet).
		Int64("payout", res.Result.Payout).
		Msg("Solo game played")

	replyEmbed(s, i, PlayEmbed(c.UserID, bet, res), nil, false)
}

// HandleGames handles /games: every solo and table game with its limits.
func (h *GameHandler) HandleGames(s *discordgo.Session, i *discordgo.InteractionCreate) {
	replyEmbed(s, i, GamesEmbed(h.registry), nil, true)
}

func soloParams(opts optionMap) map[string]any {
	params := make(map[string]any)
	for name, o := range opts {
		if o.Type == discordgo.ApplicationCommandOptionString {
			params[name] = o.StringValue()
		}
	}
	return params
}

// PlayEmbed renders a settled solo play.
func PlayEmbed(player, bet int64, res *service.PlayResult) *discordgo.MessageEmbed {
	color := colorWarn
	switch {
	case res.Result.Payout > 0:
		color = colorSuccess
	case res.Result.Payout < 0:
		color = colorError
	}

	return &discordgo.MessageEmbed{
		Title:       res.Game.Name(),
		Description: Mention(player) + "\n" + res.Result.Description,
		Color:       color,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Bet", Value: Coins(bet), Inline: true},
			{Name: "Result", Value: Signed(res.Result.Payout), Inline: true},
			{Name: "Balance", Value: Coins(res.Balance), Inline: true},
		},
	}
}

// GamesEmbed lists the registered games.
func GamesEmbed(registry *game.Registry) *discordgo.MessageEmbed {
	var solo strings.Builder
	for _, g := range registry.List() {
		fmt.Fprintf(&solo, "`/%s` %s · %s", g.Command(), g.Name(), g.Description())
		if limit := g.MaxBet(); limit > 0 {
			fmt.Fprintf(&solo, " · max %s", Coins(limit))
		}
		solo.WriteString("\n")
	}

	var tables strings.Builder
	for _, d := range registry.Sessions() {
		fmt.Fprintf(&tables, "%s `/%s` %s · %d+ players\n", kindEmoji(d.Kind), d.Kind, d.Name, d.MinPlayers)
	}

	return &discordgo.MessageEmbed{
		Title: "🎲 Games",
		Color: colorInfo,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Solo", Value: nonEmpty(solo.String())},
			{Name: "Tables", Value: nonEmpty(tables.String())},
		},
	}
}
