package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"

	"discord-community-bot/internal/model"
	"discord-community-bot/internal/raid"
	"discord-community-bot/internal/shop"
)

// hpBarWidth is the number of blocks in a health bar.
const hpBarWidth = 20

// RaidHandler handles the boss raid commands and the attack button.
type RaidHandler struct {
	arbiter *raid.Arbiter
}

// NewRaidHandler creates a new RaidHandler.
func NewRaidHandler(arbiter *raid.Arbiter) *RaidHandler {
	return &RaidHandler{arbiter: arbiter}
}

// HandleBoss handles /boss, which shows the encounter and its damage board.
func (h *RaidHandler) HandleBoss(s *discordgo.Session, i *discordgo.InteractionCreate) {
	c := CallerOf(i)
	if c.GuildID == 0 {
		replyError(s, i, "boss", errNoGuild)
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	status, err := h.arbiter.Status(ctx, c.GuildID)
	if err != nil {
		replyError(s, i, "boss", err)
		return
	}
	replyEmbed(s, i, BossEmbed(status.Boss, status.Attackers), RaidComponents(), false)
}

// HandleAttack handles /attack and the attack button.
func (h *RaidHandler) HandleAttack(s *discordgo.Session, i *discordgo.InteractionCreate) {
	c := CallerOf(i)
	if c.GuildID == 0 {
		replyError(s, i, "attack", errNoGuild)
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	hit, err := h.arbiter.Attack(ctx, c.GuildID, c.UserID)
	if err != nil {
		replyError(s, i, "attack", err)
		return
	}

	embed, components := AttackEmbed(hit, c.UserID), RaidComponents()
	if hit.HP <= 0 {
		components = []discordgo.MessageComponent{}
	}
	if i.Type == discordgo.InteractionMessageComponent {
		update(s, i, embed, components)
		return
	}
	replyEmbed(s, i, embed, components, false)
}

// Spawn creates an encounter in the caller's channel and posts its message.
func (h *RaidHandler) Spawn(s *discordgo.Session, i *discordgo.InteractionCreate, name string, hp int64) {
	c := CallerOf(i)
	if c.GuildID == 0 {
		replyError(s, i, "boss spawn", errNoGuild)
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	boss, err := h.arbiter.Spawn(ctx, c.GuildID, name, hp, c.UserID, c.ChannelID)
	if err != nil {
		replyError(s, i, "boss spawn", err)
		return
	}
	replyEmbed(s, i, BossEmbed(*boss, nil), RaidComponents(), false)

	msg, err := s.InteractionResponse(i.Interaction)
	if err != nil {
		log.Warn().Err(err).Int64("guild_id", c.GuildID).Msg("Failed to fetch boss message")
		return
	}
	h.bind(c, Snowflake(msg.ID))
}

func (h *RaidHandler) bind(c Caller, messageID int64) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := h.arbiter.Bind(ctx, c.GuildID, c.ChannelID, messageID); err != nil && !errors.Is(err, raid.ErrEncounterNotFound) {
		log.Warn().Err(err).Int64("guild_id", c.GuildID).Msg("Failed to bind boss message")
	}
}

// Despawn removes the caller's guild encounter without rewards.
func (h *RaidHandler) Despawn(s *discordgo.Session, i *discordgo.InteractionCreate) {
	c := CallerOf(i)
	ctx, cancel := requestContext()
	defer cancel()

	boss, err := h.arbiter.Despawn(ctx, c.GuildID)
	if err != nil {
		replyError(s, i, "boss despawn", err)
		return
	}
	reply(s, i, "🧹 **"+boss.Name+"** was removed by an admin.")
}

// RaidComponents is the attack button row.
func RaidComponents() []discordgo.MessageComponent {
	return rows([]discordgo.Button{button(RaidAttackID, "Attack", "⚔️", discordgo.DangerButton)})
}

// HPBar draws remaining health as a fixed-width bar.
func HPBar(hp, maxHP int64) string {
	if maxHP <= 0 {
		return strings.Repeat("░", hpBarWidth)
	}
	hp = min(max(hp, 0), maxHP)
	filled := int(hp * hpBarWidth / maxHP)
	if hp > 0 && filled == 0 {
		filled = 1
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", hpBarWidth-filled)
}

func hpLine(hp, maxHP int64) string {
	return fmt.Sprintf("`%s` %s / %s HP", HPBar(hp, maxHP), printer.Sprintf("%d", max(hp, 0)), printer.Sprintf("%d", maxHP))
}

// BossEmbed renders a live encounter with its damage board.
func BossEmbed(boss model.Boss, attackers []model.Attacker) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       "👹 " + boss.Name,
		Description: hpLine(boss.CurrentHP, boss.MaxHP),
		Color:       colorError,
		Footer:      &discordgo.MessageEmbedFooter{Text: "Defeat pays " + printer.Sprintf("%d", boss.MaxHP) + " coins, split by damage"},
	}
	if !boss.SpawnedAt.IsZero() {
		embed.Timestamp = boss.SpawnedAt.Format(time.RFC3339)
	}

	if len(attackers) > 0 {
		var b strings.Builder
		for rank, a := range attackers[:min(len(attackers), 10)] {
			fmt.Fprintf(&b, "%s %s: %s dmg\n", medal(rank), Mention(a.UserID), printer.Sprintf("%d", a.TotalDamage))
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Damage", Value: b.String()})
	}
	return embed
}

// AttackEmbed renders the result of one hit.
func AttackEmbed(hit *raid.Attack, attacker int64) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title: "👹 " + hit.Name,
		Description: fmt.Sprintf("%s hits for **%s** damage (%s total).\n%s",
			Mention(attacker), printer.Sprintf("%d", hit.Damage), printer.Sprintf("%d", hit.Total), hpLine(hit.HP, hit.MaxHP)),
		Color: colorError,
	}
	switch {
	case hit.Defeat != nil:
		embed.Color = colorSuccess
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "💀 Defeated",
			Value: Mention(attacker) + " landed the final blow!",
		})
	case hit.Claimed:
		embed.Color = colorSuccess
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "💀 Defeated",
			Value: "The boss fell in the same instant. Rewards are on their way.",
		})
	}
	return embed
}

// DefeatEmbed renders the reward board of a defeat.
func DefeatEmbed(rewards raid.Rewards) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title: "🏆 " + rewards.Boss.Name + " defeated",
		Color: colorSuccess,
	}
	if rewards.Empty() {
		embed.Description = "Nobody dealt damage, so there is nothing to share."
		return embed
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Pool %s for %s damage.\n\n", Coins(rewards.Pool), printer.Sprintf("%d", rewards.TotalDamage))
	for rank, r := range rewards.Rewards {
		fmt.Fprintf(&b, "%s %s: %s dmg → %s, %s XP", medal(rank), Mention(r.UserID),
			printer.Sprintf("%d", r.Damage), Coins(r.Coins()), printer.Sprintf("%d", r.XP))
		if r.MVP {
			b.WriteString(" · 👑 MVP")
		}
		if r.LastHit {
			b.WriteString(" · 🗡️ last hit")
		}
		if item, ok := shop.GetItem(r.Item); ok {
			b.WriteString(" · 🎁 " + item.Label())
		}
		b.WriteString("\n")
	}
	embed.Description = b.String()
	return embed
}

// EscapedEmbed renders an encounter that expired undefeated.
func EscapedEmbed(boss model.Boss) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "💨 " + boss.Name + " escaped",
		Description: hpLine(boss.CurrentHP, boss.MaxHP),
		Color:       colorWarn,
	}
}
