package bot

import (
	"strconv"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"

	"discord-community-bot/internal/pkg/cache"
	"discord-community-bot/internal/pkg/lock"
)

const (
	// DefaultPresenceSize bounds how many display names are remembered.
	DefaultPresenceSize = 4096

	// presenceTTL is how long a resolved name is trusted. Nicknames change.
	presenceTTL = 30 * time.Minute
)

// MemberSource looks up a guild member.
type MemberSource interface {
	Member(guildID, userID string) (*discordgo.Member, error)
}

// stateMembers reads the gateway state cache and falls back to REST.
type stateMembers struct {
	s *discordgo.Session
}

// SessionMembers returns a MemberSource backed by a gateway session.
func SessionMembers(s *discordgo.Session) MemberSource {
	return stateMembers{s: s}
}

func (m stateMembers) Member(guildID, userID string) (*discordgo.Member, error) {
	if m.s.State != nil {
		if member, err := m.s.State.Member(guildID, userID); err == nil {
			return member, nil
		}
	}
	return m.s.GuildMember(guildID, userID)
}

// Presence resolves member display names for renderers. Lookups that fail
// degrade to a raw mention and are not cached, so a member who left or a
// guild that is unavailable never blocks rendering.
type Presence struct {
	source MemberSource
	names  *cache.LRU[lock.MemberKey, string]
}

// NewPresence creates a Presence remembering at most size names.
func NewPresence(source MemberSource, size int) (*Presence, error) {
	if size <= 0 {
		size = DefaultPresenceSize
	}
	names, err := cache.NewLRU[lock.MemberKey, string](size, presenceTTL)
	if err != nil {
		return nil, err
	}
	return &Presence{source: source, names: names}, nil
}

// DisplayName implements handler.Namer.
func (p *Presence) DisplayName(guildID, userID int64) string {
	key := lock.MemberKey{GuildID: guildID, UserID: userID}
	if name, ok := p.names.Get(key); ok {
		return name
	}

	member, err := p.source.Member(strconv.FormatInt(guildID, 10), strconv.FormatInt(userID, 10))
	if err != nil || member == nil || member.User == nil {
		log.Debug().Err(err).
			Int64("guild_id", guildID).
			Int64("user_id", userID).
			Msg("Failed to resolve member name")
		return "<@" + strconv.FormatInt(userID, 10) + ">"
	}

	name := memberName(member)
	p.names.Add(key, name)
	return name
}

func memberName(m *discordgo.Member) string {
	switch {
	case m.Nick != "":
		return m.Nick
	case m.User.GlobalName != "":
		return m.User.GlobalName
	default:
		return m.User.Username
	}
}
