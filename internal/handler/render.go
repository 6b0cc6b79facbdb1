package handler

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"discord-community-bot/internal/game/blackjack"
	"discord-community-bot/internal/game/cards"
	"discord-community-bot/internal/game/coinflip"
	"discord-community-bot/internal/game/horserace"
	"discord-community-bot/internal/game/pick"
	"discord-community-bot/internal/game/poker"
	"discord-community-bot/internal/game/taixiu"
	"discord-community-bot/internal/session"
)

// SessionEmbed renders a session message for any state.
func SessionEmbed(snap session.Snapshot, names Namer) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:     sessionTitle(snap),
		Color:     sessionColor(snap),
		Timestamp: snap.UpdatedAt.Format(time.RFC3339),
		Footer:    &discordgo.MessageEmbedFooter{Text: "Table " + snap.ID},
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Host: %s · Stake: %s\n", Mention(snap.Host), Coins(snap.Stake))
	switch snap.State {
	case session.StateLobby:
		fmt.Fprintf(&b, "Waiting for players (%d seated, %d needed).\n", len(snap.Seats), snap.MinPlayers)
		for _, seat := range snap.Seats {
			b.WriteString("• " + Mention(seat.Player) + "\n")
		}
	case session.StateInProgress, session.StateResolving:
		if snap.Current != 0 {
			fmt.Fprintf(&b, "Turn: %s\n", Mention(snap.Current))
		}
	case session.StateClosed:
		b.WriteString(closedLine(snap.Reason) + "\n")
	}
	embed.Description = b.String()

	if snap.State != session.StateLobby {
		embed.Fields = append(embed.Fields, tableFields(snap, names)...)
	}
	if len(snap.Settlements) > 0 {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "Results",
			Value: settlementLines(snap.Settlements),
		})
	}
	return embed
}

func sessionTitle(snap session.Snapshot) string {
	name := snap.Name
	if name == "" {
		name = snap.Kind
	}
	return kindEmoji(snap.Kind) + " " + name
}

func kindEmoji(kind string) string {
	switch kind {
	case blackjack.Kind:
		return "🃏"
	case poker.Kind:
		return "🂡"
	case coinflip.Kind:
		return "🪙"
	case taixiu.Kind:
		return "🎲"
	case horserace.Kind:
		return "🏇"
	default:
		return "🎮"
	}
}

func sessionColor(snap session.Snapshot) int {
	switch {
	case snap.State == session.StateLobby:
		return colorInfo
	case snap.State != session.StateClosed:
		return colorWarn
	case snap.Reason == session.ReasonCompleted || snap.Reason == session.ReasonTimeout:
		return colorSuccess
	default:
		return colorError
	}
}

func closedLine(reason session.CloseReason) string {
	switch reason {
	case session.ReasonCompleted:
		return "🏁 The game is over."
	case session.ReasonTimeout:
		return "⌛ Idle players forfeited. The game is over."
	case session.ReasonCancelled:
		return "🚪 The host closed the lobby."
	case session.ReasonLobbyExpired:
		return "⌛ The lobby expired before it started."
	case session.ReasonAborted:
		return "🛑 An admin aborted the game. Stakes were returned."
	default:
		return "The table is closed."
	}
}

func settlementLines(settlements []session.Settlement) string {
	var b strings.Builder
	for _, st := range settlements {
		fmt.Fprintf(&b, "%s %s: %s (%s)\n", outcomeEmoji(st.Outcome), Mention(st.Player), outcomeLabel(st.Outcome), Signed(st.Net))
	}
	return b.String()
}

func outcomeEmoji(o session.Outcome) string {
	switch o {
	case session.OutcomeWin:
		return "🎉"
	case session.OutcomeSpecialWin:
		return "🌟"
	case session.OutcomePush:
		return "🤝"
	case session.OutcomeRefund:
		return "↩️"
	case session.OutcomeForfeit:
		return "💤"
	default:
		return "💀"
	}
}

func outcomeLabel(o session.Outcome) string {
	switch o {
	case session.OutcomeSpecialWin:
		return "big win"
	case session.OutcomeForfeit:
		return "forfeit"
	default:
		return string(o)
	}
}

func tableFields(snap session.Snapshot, names Namer) []*discordgo.MessageEmbedField {
	switch t := snap.Table.(type) {
	case blackjack.TableView:
		return blackjackFields(snap.GuildID, t, names)
	case poker.TableView:
		return pokerFields(snap.GuildID, t, names)
	case coinflip.TableView:
		return pickFields(t.Entries, t.Picks, coinflipResult(t))
	case taixiu.TableView:
		return pickFields(t.Entries, t.Picks, taixiuResult(t))
	case horserace.TableView:
		return horseraceFields(t)
	default:
		return nil
	}
}

func hand(cs []cards.Card) string {
	if len(cs) == 0 {
		return "—"
	}
	parts := make([]string, len(cs))
	for i, c := range cs {
		parts[i] = "`" + c.String() + "`"
	}
	return strings.Join(parts, " ")
}

func blackjackFields(guildID int64, t blackjack.TableView, names Namer) []*discordgo.MessageEmbedField {
	dealer := hand(t.Dealer)
	if t.HoleHidden && len(t.Dealer) > 0 {
		dealer += " `??`"
	}
	fields := []*discordgo.MessageEmbedField{{
		Name:  fmt.Sprintf("Dealer (%d)", t.DealerScore),
		Value: dealer,
	}}
	for _, seat := range t.Seats {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:   fmt.Sprintf("%s (%d)", displayName(names, guildID, seat.Player), seat.Score),
			Value:  hand(seat.Cards) + "\n" + statusLabel(seat.Status),
			Inline: true,
		})
	}
	return fields
}

func pokerFields(guildID int64, t poker.TableView, names Namer) []*discordgo.MessageEmbedField {
	fields := []*discordgo.MessageEmbedField{{
		Name:  "Bet to match",
		Value: Coins(t.ToMatch),
	}}
	if t.Showdown {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:  fmt.Sprintf("Dealer (%d)", t.DealerScore),
			Value: hand(t.Dealer),
		})
	}
	for _, seat := range t.Seats {
		value := "Bet " + Coins(seat.Bet) + "\n" + statusLabel(seat.Status)
		name := displayName(names, guildID, seat.Player)
		if t.Showdown && len(seat.Cards) > 0 {
			value = hand(seat.Cards) + "\n" + value
			name = fmt.Sprintf("%s (%d)", name, seat.Score)
		}
		fields = append(fields, &discordgo.MessageEmbedField{Name: name, Value: value, Inline: true})
	}
	return fields
}

func pickFields(entries []pick.Entry, picks map[int64]string, result string) []*discordgo.MessageEmbedField {
	var b strings.Builder
	for _, e := range entries {
		switch choice, revealed := picks[e.Player]; {
		case revealed:
			fmt.Fprintf(&b, "%s picked **%s**\n", Mention(e.Player), choice)
		case e.Picked:
			fmt.Fprintf(&b, "✅ %s has picked\n", Mention(e.Player))
		case e.Status == session.StatusForfeited:
			fmt.Fprintf(&b, "💤 %s did not pick\n", Mention(e.Player))
		default:
			fmt.Fprintf(&b, "⏳ %s is choosing\n", Mention(e.Player))
		}
	}
	fields := []*discordgo.MessageEmbedField{{Name: "Players", Value: nonEmpty(b.String())}}
	if result != "" {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Result", Value: result})
	}
	return fields
}

func coinflipResult(t coinflip.TableView) string {
	switch t.Result {
	case coinflip.Heads:
		return "🙂 Heads"
	case coinflip.Tails:
		return "🦅 Tails"
	}
	return ""
}

var taixiuLabels = map[string]string{
	taixiu.Tai: "Tài (8-12)",
	taixiu.Xiu: "Xỉu (2-6)",
	taixiu.Hoa: "Hòa (7)",
}

func taixiuResult(t taixiu.TableView) string {
	if t.Result == "" {
		return ""
	}
	return fmt.Sprintf("🎲 %d + %d = **%d** → %s", t.Dice[0], t.Dice[1], t.Total, taixiuLabels[t.Result])
}

func horseraceFields(t horserace.TableView) []*discordgo.MessageEmbedField {
	var track strings.Builder
	for i, pos := range t.Positions {
		emoji := horserace.Emojis[i%len(horserace.Emojis)]
		run := min(pos, t.Track)
		fmt.Fprintf(&track, "`%s` %s%s%s🏁", horserace.Lane(i),
			strings.Repeat("·", run), emoji, strings.Repeat("·", t.Track-run))
		if i == t.Winner {
			track.WriteString(" 🏆")
		}
		track.WriteString("\n")
	}

	picks := make(map[int64]string, len(t.Picks))
	for p, lane := range t.Picks {
		picks[p] = "lane " + lane
	}
	// Lanes are public once the race has run.
	if t.Winner < 0 {
		picks = nil
	}

	fields := []*discordgo.MessageEmbedField{{Name: "Track", Value: track.String()}}
	return append(fields, pickFields(t.Entries, picks, "")...)
}

func statusLabel(st session.Status) string {
	switch st {
	case session.StatusPlaying:
		return "🎯 playing"
	case session.StatusStood:
		return "✋ stood"
	case session.StatusBusted:
		return "💥 busted"
	case session.StatusFolded:
		return "🏳️ folded"
	case session.StatusForfeited:
		return "💤 forfeited"
	default:
		return st.String()
	}
}

func displayName(names Namer, guildID, userID int64) string {
	if names == nil {
		return "User " + strconv.FormatInt(userID, 10)
	}
	return names.DisplayName(guildID, userID)
}

func nonEmpty(s string) string {
	if s == "" {
		return "—"
	}
	return s
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// SessionComponents returns the buttons for the session's state.
func SessionComponents(snap session.Snapshot) []discordgo.MessageComponent {
	switch snap.State {
	case session.StateLobby:
		return rows([]discordgo.Button{
			button(sessionButtonID(snap.ID, verbJoin, ""), "Join", "🪑", discordgo.PrimaryButton),
			button(sessionButtonID(snap.ID, verbStart, ""), "Start", "▶️", discordgo.SuccessButton),
			button(sessionButtonID(snap.ID, verbCancel, ""), "Cancel", "✖️", discordgo.DangerButton),
		})
	case session.StateInProgress:
		return rows(actionButtons(snap))
	default:
		return nil
	}
}

// ReplayComponents offers the same game at the same stake.
func ReplayComponents(offer session.ReplayOffer) []discordgo.MessageComponent {
	if offer.Kind == "" {
		return []discordgo.MessageComponent{}
	}
	return rows([]discordgo.Button{
		button(replayButtonID(offer.Kind, offer.Stake), "Play again", "🔁", discordgo.SecondaryButton),
	})
}

func actionButtons(snap session.Snapshot) []discordgo.Button {
	id := snap.ID
	switch snap.Kind {
	case blackjack.Kind:
		return []discordgo.Button{
			button(sessionButtonID(id, blackjack.ActionHit, ""), "Hit", "➕", discordgo.PrimaryButton),
			button(sessionButtonID(id, blackjack.ActionStand, ""), "Stand", "✋", discordgo.SecondaryButton),
			button(sessionButtonID(id, blackjack.ActionHand, ""), "My hand", "👀", discordgo.SecondaryButton),
		}
	case poker.Kind:
		raise := max(snap.Stake, 1)
		return []discordgo.Button{
			button(sessionButtonID(id, poker.ActionCall, ""), "Call", "✅", discordgo.PrimaryButton),
			button(sessionButtonID(id, poker.ActionRaise, strconv.FormatInt(raise, 10)), "Raise "+printer.Sprintf("%d", raise), "⬆️", discordgo.SuccessButton),
			button(sessionButtonID(id, poker.ActionFold, ""), "Fold", "🏳️", discordgo.DangerButton),
			button(sessionButtonID(id, poker.ActionHand, ""), "My hand", "👀", discordgo.SecondaryButton),
		}
	case coinflip.Kind:
		return []discordgo.Button{
			button(sessionButtonID(id, pick.ActionPick, coinflip.Heads), "Heads", "🙂", discordgo.PrimaryButton),
			button(sessionButtonID(id, pick.ActionPick, coinflip.Tails), "Tails", "🦅", discordgo.PrimaryButton),
			button(sessionButtonID(id, pick.ActionMine, ""), "My pick", "👀", discordgo.SecondaryButton),
		}
	case taixiu.Kind:
		return []discordgo.Button{
			button(sessionButtonID(id, pick.ActionPick, taixiu.Tai), taixiuLabels[taixiu.Tai], "⬆️", discordgo.PrimaryButton),
			button(sessionButtonID(id, pick.ActionPick, taixiu.Xiu), taixiuLabels[taixiu.Xiu], "⬇️", discordgo.PrimaryButton),
			button(sessionButtonID(id, pick.ActionPick, taixiu.Hoa), taixiuLabels[taixiu.Hoa], "🎯", discordgo.SuccessButton),
			button(sessionButtonID(id, pick.ActionMine, ""), "My pick", "👀", discordgo.SecondaryButton),
		}
	case horserace.Kind:
		t, _ := snap.Table.(horserace.TableView)
		buttons := make([]discordgo.Button, 0, len(t.Positions)+1)
		for i := range t.Positions {
			lane := horserace.Lane(i)
			buttons = append(buttons, button(sessionButtonID(id, pick.ActionPick, lane), "Lane "+lane, horserace.Emojis[i%len(horserace.Emojis)], discordgo.PrimaryButton))
		}
		return append(buttons, button(sessionButtonID(id, pick.ActionMine, ""), "My pick", "👀", discordgo.SecondaryButton))
	default:
		return nil
	}
}

func button(customID, label, emoji string, style discordgo.ButtonStyle) discordgo.Button {
	b := discordgo.Button{CustomID: customID, Label: label, Style: style}
	if emoji != "" {
		b.Emoji = &discordgo.ComponentEmoji{Name: emoji}
	}
	return b
}

// rows packs buttons five to an action row, the Discord maximum.
func rows(buttons []discordgo.Button) []discordgo.MessageComponent {
	var out []discordgo.MessageComponent
	for chunk := range slices.Chunk(buttons, 5) {
		row := discordgo.ActionsRow{}
		for _, b := range chunk {
			row.Components = append(row.Components, b)
		}
		out = append(out, row)
	}
	return out
}

// PrivateView renders the answer to a read-only action.
func PrivateView(view any) string {
	switch v := view.(type) {
	case blackjack.HandView:
		return fmt.Sprintf("Your hand: %s (%d)", hand(v.Cards), v.Score)
	case poker.HandView:
		return fmt.Sprintf("Your hand: %s (%d points)", hand(v.Cards), v.Score)
	case string:
		if v == "" {
			return "You have not picked yet."
		}
		return "You picked **" + v + "**."
	default:
		return "Nothing to show."
	}
}
