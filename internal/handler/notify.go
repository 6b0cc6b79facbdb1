package handler

import (
	"context"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"

	"discord-community-bot/internal/model"
	"discord-community-bot/internal/raid"
	"discord-community-bot/internal/session"
)

// Messenger is the part of the Discord REST API the notifiers need.
// *discordgo.Session satisfies it.
type Messenger interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageEditComplex(m *discordgo.MessageEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// SessionNotifier rewrites a table's message once the session closes,
// including closes that no button press caused, such as sweeps and aborts.
// It implements session.Listener.
type SessionNotifier struct {
	messenger Messenger
	names     Namer
}

// NewSessionNotifier creates a new SessionNotifier.
func NewSessionNotifier(messenger Messenger, names Namer) *SessionNotifier {
	return &SessionNotifier{messenger: messenger, names: names}
}

func (n *SessionNotifier) SessionClosed(ctx context.Context, ev session.ClosedEvent) {
	snap := ev.Snapshot
	if snap.MessageID == 0 || snap.ChannelID == 0 {
		return
	}

	embeds := []*discordgo.MessageEmbed{SessionEmbed(snap, n.names)}
	components := []discordgo.MessageComponent{}
	if Replayable(ev.Reason) {
		components = ReplayComponents(ev.Replay)
	}

	_, err := n.messenger.ChannelMessageEditComplex(&discordgo.MessageEdit{
		ID:         SnowflakeString(snap.MessageID),
		Channel:    SnowflakeString(snap.ChannelID),
		Embeds:     &embeds,
		Components: &components,
	}, discordgo.WithContext(ctx))
	if err != nil {
		log.Warn().Err(err).
			Str("session_id", snap.ID).
			Str("reason", string(ev.Reason)).
			Msg("Failed to update closed session message")
	}
}

// RaidAnnouncer posts raid outcomes to the encounter's channel.
// It implements raid.Announcer.
type RaidAnnouncer struct {
	messenger Messenger
}

// NewRaidAnnouncer creates a new RaidAnnouncer.
func NewRaidAnnouncer(messenger Messenger) *RaidAnnouncer {
	return &RaidAnnouncer{messenger: messenger}
}

// Defeated retires the encounter message and posts the reward board.
func (a *RaidAnnouncer) Defeated(ctx context.Context, rewards raid.Rewards) error {
	boss := rewards.Boss
	if boss.ChannelID == 0 {
		return nil
	}
	a.retire(ctx, boss, DefeatEmbed(rewards))

	_, err := a.messenger.ChannelMessageSendComplex(SnowflakeString(boss.ChannelID), &discordgo.MessageSend{
		Content: "⚔️ **" + boss.Name + "** has fallen!",
		Embeds:  []*discordgo.MessageEmbed{DefeatEmbed(rewards)},
	}, discordgo.WithContext(ctx))
	return err
}

// Expired marks the encounter message as escaped.
func (a *RaidAnnouncer) Expired(ctx context.Context, boss model.Boss) error {
	if boss.ChannelID == 0 {
		return nil
	}
	a.retire(ctx, boss, EscapedEmbed(boss))

	_, err := a.messenger.ChannelMessageSendComplex(SnowflakeString(boss.ChannelID), &discordgo.MessageSend{
		Content: "💨 **" + boss.Name + "** escaped. No rewards this time.",
	}, discordgo.WithContext(ctx))
	return err
}

// retire replaces the encounter message and drops its attack button.
func (a *RaidAnnouncer) retire(ctx context.Context, boss model.Boss, embed *discordgo.MessageEmbed) {
	if boss.MessageID == 0 {
		return
	}
	embeds := []*discordgo.MessageEmbed{embed}
	components := []discordgo.MessageComponent{}
	_, err := a.messenger.ChannelMessageEditComplex(&discordgo.MessageEdit{
		ID:         SnowflakeString(boss.MessageID),
		Channel:    SnowflakeString(boss.ChannelID),
		Embeds:     &embeds,
		Components: &components,
	}, discordgo.WithContext(ctx))
	if err != nil {
		log.Warn().Err(err).Int64("guild_id", boss.GuildID).Msg("Failed to retire boss message")
	}
}
