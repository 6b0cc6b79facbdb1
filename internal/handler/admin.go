package handler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"

	"discord-community-bot/internal/model"
	"discord-community-bot/internal/pkg/lock"
	"discord-community-bot/internal/service"
)

// adminLockTimeout bounds how long an admin edit waits for a member's
// in-flight play to finish.
const adminLockTimeout = time.Second

// Admin subcommands.
const (
	AdminAdd     = "add"
	AdminSub     = "sub"
	AdminSet     = "set"
	AdminAbort   = "abort"
	AdminSpawn   = "spawn"
	AdminDespawn = "despawn"
)

var errAdminBusy = errors.New("member is busy, try again")

// AdminHandler handles /admin. Permission is checked by the bot middleware
// before any subcommand runs.
type AdminHandler struct {
	ledger   *service.LedgerService
	locks    *lock.Keyed[lock.MemberKey]
	sessions *SessionHandler
	raids    *RaidHandler
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(ledger *service.LedgerService, locks *lock.Keyed[lock.MemberKey], sessions *SessionHandler, raids *RaidHandler) *AdminHandler {
	return &AdminHandler{
		ledger:   ledger,
		locks:    locks,
		sessions: sessions,
		raids:    raids,
	}
}

// HandleAdmin routes the /admin subcommands.
func (h *AdminHandler) HandleAdmin(s *discordgo.Session, i *discordgo.InteractionCreate) {
	c := CallerOf(i)
	if c.GuildID == 0 {
		replyError(s, i, "admin", errNoGuild)
		return
	}
	sub, opts := commandOptions(i)

	log.Info().
		Int64("admin_id", c.UserID).
		Int64("guild_id", c.GuildID).
		Str("operation", sub).
		Msg("Admin operation requested")

	switch sub {
	case AdminAdd, AdminSub, AdminSet:
		amount, _ := opts.getInt("amount")
		h.adjust(s, i, sub, opts.getUser("member"), amount)
	case AdminAbort:
		h.sessions.HandleAbort(s, i, opts.getString("session"))
	case AdminSpawn:
		hp, _ := opts.getInt("hp")
		h.raids.Spawn(s, i, opts.getString("name"), hp)
	case AdminDespawn:
		h.raids.Despawn(s, i)
	default:
		replyEphemeral(s, i, "🚫 Unknown admin command.")
	}
}

func (h *AdminHandler) adjust(s *discordgo.Session, i *discordgo.InteractionCreate, op string, target, amount int64) {
	c := CallerOf(i)
	if target == 0 {
		replyEphemeral(s, i, "🚫 Pick a member.")
		return
	}
	if amount <= 0 && !(op == AdminSet && amount == 0) {
		replyError(s, i, "admin "+op, service.ErrInvalidAmount)
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	var balance int64
	key := lock.MemberKey{GuildID: c.GuildID, UserID: target}
	err := h.locks.WithLockContext(ctx, key, adminLockTimeout, func() error {
		var err error
		balance, err = h.apply(ctx, c, op, target, amount)
		return err
	})
	if errors.Is(err, lock.ErrLockTimeout) {
		err = errAdminBusy
	}
	if err != nil {
		replyError(s, i, "admin "+op, err)
		return
	}

	log.Info().
		Int64("admin_id", c.UserID).
		Int64("guild_id", c.GuildID).
		Int64("target_id", target).
		Int64("amount", amount).
		Int64("balance", balance).
		Str("operation", "admin_"+op).
		Msg("Admin operation executed")

	replyEphemeral(s, i, fmt.Sprintf("✅ %s %s %s. Balance: %s",
		adminVerb(op), Mention(target), Coins(amount), Coins(balance)))
}

func (h *AdminHandler) apply(ctx context.Context, c Caller, op string, target, amount int64) (int64, error) {
	desc := fmt.Sprintf("admin %d", c.UserID)
	switch op {
	case AdminAdd:
		return h.ledger.ApplyDelta(ctx, c.GuildID, target, amount, model.TxTypeAdminAdd, desc)
	case AdminSub:
		return h.ledger.ApplyDelta(ctx, c.GuildID, target, -amount, model.TxTypeAdminAdd, desc)
	default:
		user, err := h.ledger.SetBalance(ctx, c.GuildID, target, amount, desc)
		if err != nil {
			return 0, err
		}
		return user.Coins, nil
	}
}

func adminVerb(op string) string {
	switch op {
	case AdminAdd:
		return "Added to"
	case AdminSub:
		return "Took from"
	default:
		return "Set"
	}
}
