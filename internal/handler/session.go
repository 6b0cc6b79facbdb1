package handler

import (
	"context"
	"fmt"
	"strconv"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"

	"discord-community-bot/internal/game/poker"
	"discord-community-bot/internal/session"
)

// SessionHandler runs multiplayer tables: one slash command per game opens
// a lobby message, and the buttons on it drive the session.
type SessionHandler struct {
	sessions *session.Manager
	names    Namer
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessions *session.Manager, names Namer) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		names:    names,
	}
}

// HandleOpen handles the game commands, e.g. /blackjack stake:100.
// The command name is the session kind.
func (h *SessionHandler) HandleOpen(s *discordgo.Session, i *discordgo.InteractionCreate) {
	_, opts := commandOptions(i)
	stake, _ := opts.getInt("stake")
	h.open(s, i, i.ApplicationCommandData().Name, stake)
}

func (h *SessionHandler) open(s *discordgo.Session, i *discordgo.InteractionCreate, kind string, stake int64) {
	c := CallerOf(i)
	if c.GuildID == 0 {
		replyError(s, i, "open", errNoGuild)
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	snap, err := h.sessions.Open(ctx, session.OpenRequest{
		Kind:      kind,
		GuildID:   c.GuildID,
		ChannelID: c.ChannelID,
		Host:      c.UserID,
		Stake:     stake,
	})
	if err != nil {
		replyError(s, i, "open", err)
		return
	}

	replyEmbed(s, i, SessionEmbed(snap, h.names), SessionComponents(snap), false)

	msg, err := s.InteractionResponse(i.Interaction)
	if err != nil {
		log.Warn().Err(err).Str("session_id", snap.ID).Msg("Failed to fetch lobby message")
		return
	}
	if err := h.sessions.Bind(snap.ID, Snowflake(msg.ID)); err != nil {
		log.Debug().Err(err).Str("session_id", snap.ID).Msg("Session closed before its message was bound")
	}
}

// HandleComponent handles lobby, action and replay buttons.
func (h *SessionHandler) HandleComponent(s *discordgo.Session, i *discordgo.InteractionCreate, id CustomID) {
	if id.Scope == scopeReplay {
		h.open(s, i, id.Target, id.Stake())
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	snap, view, err := h.dispatch(ctx, CallerOf(i).UserID, id)
	if err != nil {
		replyError(s, i, id.Verb, err)
		return
	}
	if view != nil {
		replyEphemeral(s, i, PrivateView(view))
		return
	}
	update(s, i, SessionEmbed(snap, h.names), Components(snap))
}

// dispatch applies the button press. view is set for read-only actions.
func (h *SessionHandler) dispatch(ctx context.Context, player int64, id CustomID) (session.Snapshot, any, error) {
	var (
		snap session.Snapshot
		err  error
	)
	switch id.Verb {
	case verbJoin:
		snap, err = h.sessions.Join(ctx, id.Target, player)
	case verbStart:
		snap, err = h.sessions.Start(ctx, id.Target, player)
	case verbCancel:
		snap, err = h.sessions.Cancel(ctx, id.Target, player)
	default:
		action, perr := ParseAction(id)
		if perr != nil {
			return session.Snapshot{}, nil, perr
		}
		var res session.Result
		res, err = h.sessions.Submit(ctx, id.Target, player, action)
		if err != nil {
			return session.Snapshot{}, nil, err
		}
		return res.Snapshot, res.View, nil
	}
	return snap, nil, err
}

// ParseAction converts a session button into a game action.
func ParseAction(id CustomID) (session.Action, error) {
	a := session.Action{Name: id.Verb}
	if id.Verb == poker.ActionRaise {
		amount, err := strconv.ParseInt(id.Arg, 10, 64)
		if err != nil || amount <= 0 || amount > poker.MaxRaise {
			return session.Action{}, fmt.Errorf("%w: raise %q", ErrBadCustomID, id.Arg)
		}
		a.Amount = amount
		return a, nil
	}
	a.Choice = id.Arg
	return a, nil
}

// Components returns the buttons for any state, including the replay offer
// once the table has closed.
func Components(snap session.Snapshot) []discordgo.MessageComponent {
	if snap.State != session.StateClosed {
		return SessionComponents(snap)
	}
	if !Replayable(snap.Reason) {
		return []discordgo.MessageComponent{}
	}
	return ReplayComponents(session.ReplayOffer{Kind: snap.Kind, Stake: snap.Stake})
}

// Replayable reports whether a closed table offers a rematch.
func Replayable(reason session.CloseReason) bool {
	return reason == session.ReasonCompleted || reason == session.ReasonTimeout
}

// HandleAbort handles /admin abort session:<id>. Held stakes are returned.
func (h *SessionHandler) HandleAbort(s *discordgo.Session, i *discordgo.InteractionCreate, sessionID string) {
	ctx, cancel := requestContext()
	defer cancel()

	snap, err := h.sessions.Abort(ctx, sessionID)
	if err != nil {
		replyError(s, i, "abort", err)
		return
	}
	replyEphemeral(s, i, fmt.Sprintf("🛑 Aborted %s table %s.", snap.Name, shortID(snap.ID)))
}
