package bot

import (
	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"

	"discord-community-bot/internal/config"
	"discord-community-bot/internal/handler"
)

// HandlerFunc handles one interaction.
type HandlerFunc func(s *discordgo.Session, i *discordgo.InteractionCreate)

// Middleware wraps a HandlerFunc.
type Middleware func(next HandlerFunc) HandlerFunc

// DenyFunc tells the caller why their interaction was refused.
type DenyFunc func(s *discordgo.Session, i *discordgo.InteractionCreate, msg string)

// Chain applies middleware so the first one listed runs first.
func Chain(h HandlerFunc, mw ...Middleware) HandlerFunc {
	for i := len(mw) - 1; i >= 0; i-- {
		h = mw[i](h)
	}
	return h
}

// denyEphemeral answers with a message only the caller sees.
func denyEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate, msg string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: msg,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		log.Error().Err(err).Str("interaction_id", i.ID).Msg("Failed to deny interaction")
	}
}

// WhitelistMiddleware drops interactions from guilds that are not whitelisted.
// Direct messages are refused: every feature is scoped to a guild.
func WhitelistMiddleware(cfg *config.Config, deny DenyFunc) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			c := handler.CallerOf(i)
			if c.GuildID == 0 {
				deny(s, i, "This bot only works inside a server.")
				return
			}
			if !cfg.IsGuildAllowed(c.GuildID) {
				log.Debug().
					Int64("guild_id", c.GuildID).
					Msg("Ignoring interaction from non-whitelisted guild")
				deny(s, i, "This bot is not enabled in this server.")
				return
			}
			next(s, i)
		}
	}
}

// AdminMiddleware refuses callers that are not configured admins.
func AdminMiddleware(cfg *config.Config, deny DenyFunc) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			c := handler.CallerOf(i)
			if !cfg.IsAdmin(c.UserID) {
				log.Warn().
					Int64("user_id", c.UserID).
					Int64("guild_id", c.GuildID).
					Str("command", interactionName(i)).
					Msg("Non-admin attempted admin command")
				deny(s, i, "❌ Permission denied: admin only.")
				return
			}
			next(s, i)
		}
	}
}

// LoggingMiddleware logs every incoming interaction at debug level.
func LoggingMiddleware() Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			c := handler.CallerOf(i)
			log.Debug().
				Int64("user_id", c.UserID).
				Int64("guild_id", c.GuildID).
				Int64("channel_id", c.ChannelID).
				Str("type", i.Type.String()).
				Str("name", interactionName(i)).
				Msg("Received interaction")
			next(s, i)
		}
	}
}

// RecoveryMiddleware recovers from panics in handlers.
func RecoveryMiddleware(deny DenyFunc) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			defer func() {
				if r := recover(); r != nil {
					log.Error().
						Interface("panic", r).
						Str("name", interactionName(i)).
						Msg("Recovered from panic in handler")
					deny(s, i, "❌ Internal error, please try again later.")
				}
			}()
			next(s, i)
		}
	}
}

// interactionName is the command name or component id of an interaction.
func interactionName(i *discordgo.InteractionCreate) string {
	switch i.Type {
	case discordgo.InteractionApplicationCommand, discordgo.InteractionApplicationCommandAutocomplete:
		return i.ApplicationCommandData().Name
	case discordgo.InteractionMessageComponent:
		return i.MessageComponentData().CustomID
	default:
		return ""
	}
}
