package handler

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"

	"discord-community-bot/internal/raid"
	"discord-community-bot/internal/service"
	"discord-community-bot/internal/session"
)

// requestTimeout bounds the work done for one interaction. Discord drops
// responses that take longer than three seconds.
const requestTimeout = 2500 * time.Millisecond

func requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), requestTimeout)
}

// Caller identifies who triggered an interaction and where.
type Caller struct {
	GuildID   int64
	ChannelID int64
	UserID    int64
}

// CallerOf extracts the caller of an interaction.
func CallerOf(i *discordgo.InteractionCreate) Caller {
	c := Caller{GuildID: Snowflake(i.GuildID), ChannelID: Snowflake(i.ChannelID)}
	switch {
	case i.Member != nil && i.Member.User != nil:
		c.UserID = Snowflake(i.Member.User.ID)
	case i.User != nil:
		c.UserID = Snowflake(i.User.ID)
	}
	return c
}

type optionMap map[string]*discordgo.ApplicationCommandInteractionDataOption

// commandOptions returns the options of the invoked command, descending
// into a subcommand when present. The subcommand name is "" otherwise.
func commandOptions(i *discordgo.InteractionCreate) (string, optionMap) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return "", optionMap{}
	}
	opts := i.ApplicationCommandData().Options
	sub := ""
	if len(opts) == 1 && opts[0].Type == discordgo.ApplicationCommandOptionSubCommand {
		sub = opts[0].Name
		opts = opts[0].Options
	}
	m := make(optionMap, len(opts))
	for _, o := range opts {
		m[o.Name] = o
	}
	return sub, m
}

func (m optionMap) getInt(name string) (int64, bool) {
	o, ok := m[name]
	if !ok {
		return 0, false
	}
	return o.IntValue(), true
}

func (m optionMap) getString(name string) string {
	if o, ok := m[name]; ok {
		return o.StringValue()
	}
	return ""
}

func (m optionMap) getUser(name string) int64 {
	o, ok := m[name]
	if !ok {
		return 0
	}
	// UserValue with a nil session only fills in the id.
	if u := o.UserValue(nil); u != nil {
		return Snowflake(u.ID)
	}
	return 0
}

func respond(s *discordgo.Session, i *discordgo.InteractionCreate, kind discordgo.InteractionResponseType, data *discordgo.InteractionResponseData) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{Type: kind, Data: data})
	if err != nil {
		log.Error().Err(err).Str("interaction_id", i.ID).Msg("Failed to respond to interaction")
	}
}

func reply(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	respond(s, i, discordgo.InteractionResponseChannelMessageWithSource, &discordgo.InteractionResponseData{
		Content: content,
	})
}

func replyEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	respond(s, i, discordgo.InteractionResponseChannelMessageWithSource, &discordgo.InteractionResponseData{
		Content: content,
		Flags:   discordgo.MessageFlagsEphemeral,
	})
}

func replyEmbed(s *discordgo.Session, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed, components []discordgo.MessageComponent, ephemeral bool) {
	data := &discordgo.InteractionResponseData{
		Embeds:     []*discordgo.MessageEmbed{embed},
		Components: components,
	}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	respond(s, i, discordgo.InteractionResponseChannelMessageWithSource, data)
}

// update rewrites the message the clicked component belongs to.
func update(s *discordgo.Session, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed, components []discordgo.MessageComponent) {
	if components == nil {
		components = []discordgo.MessageComponent{}
	}
	respond(s, i, discordgo.InteractionResponseUpdateMessage, &discordgo.InteractionResponseData{
		Embeds:     []*discordgo.MessageEmbed{embed},
		Components: components,
	})
}

// replyError answers with a short ephemeral message. Unexpected errors are
// logged and answered generically.
func replyError(s *discordgo.Session, i *discordgo.InteractionCreate, op string, err error) {
	msg, expected := UserMessage(err)
	if !expected {
		c := CallerOf(i)
		log.Error().Err(err).
			Str("op", op).
			Int64("guild_id", c.GuildID).
			Int64("user_id", c.UserID).
			Msg("Interaction failed")
	}
	replyEphemeral(s, i, msg)
}

// UserMessage maps an error to the text shown to the member. The boolean
// reports whether the error is an expected rejection.
func UserMessage(err error) (string, bool) {
	var (
		cooldown *raid.CooldownError
		wait     *service.WaitError
		short    *session.InsufficientFundsError
	)
	switch {
	case errors.As(err, &cooldown):
		return "⏳ You can attack again in " + Wait(cooldown.Remaining) + ".", true
	case errors.As(err, &wait) && errors.Is(err, service.ErrDailyAlreadyClaimed):
		return "⏳ Daily reward already claimed. Come back in " + Wait(wait.Remaining) + ".", true
	case errors.As(err, &wait):
		return "⏳ Slow down. Try again in " + Wait(wait.Remaining) + ".", true
	case errors.As(err, &short):
		return "💸 " + Mention(short.UserID) + " does not have enough coins.", true
	case errors.Is(err, service.ErrInvalidAmount) && err != service.ErrInvalidAmount:
		return "🚫 " + strings.TrimPrefix(err.Error(), service.ErrInvalidAmount.Error()+": "), true
	}

	for _, m := range rejections {
		if errors.Is(err, m.err) {
			return m.text, true
		}
	}
	return "❌ Something went wrong, please try again later.", false
}

var rejections = []struct {
	err  error
	text string
}{
	{session.ErrInsufficientFunds, "💸 Not enough coins."},
	{session.ErrNotYourTurn, "⏳ It is not your turn."},
	{session.ErrIllegalAction, "🚫 You cannot do that right now."},
	{session.ErrNotHost, "🚫 Only the host can do that."},
	{session.ErrAlreadyJoined, "You are already seated at this table."},
	{session.ErrNotEnoughPlayers, "👥 Not enough players to start."},
	{session.ErrSessionClosed, "This table is closed."},
	{session.ErrSessionNotFound, "This table no longer exists."},
	{session.ErrInvalidTransition, "This table has already moved on."},
	{session.ErrInvalidStake, "🚫 The stake must not be negative."},
	{session.ErrUnknownGame, "🚫 Unknown game."},
	{raid.ErrEncounterNotFound, "No boss is active right now."},
	{raid.ErrEncounterExists, "A boss is already active in this server."},
	{raid.ErrInvalidHP, "🚫 Boss HP must be positive."},
	{service.ErrInvalidAmount, "🚫 Invalid amount."},
	{service.ErrSelfTransfer, "🚫 You cannot give coins to yourself."},
	{service.ErrItemNotFound, "🚫 No such item in the shop."},
	{service.ErrItemNotOwned, "🎒 You do not have that item."},
	{service.ErrItemNotUsable, "🚫 That item cannot be used."},
	{service.ErrEffectActive, "⏳ That booster is still active."},
	{service.ErrUnknownGame, "🚫 Unknown game."},
	{ErrBadCustomID, "This button has expired."},
	{errNoGuild, "This command only works inside a server."},
	{errAdminBusy, "⏳ That member is busy, try again in a moment."},
}

var errNoGuild = errors.New("command used outside a guild")
