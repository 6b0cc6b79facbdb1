package bot

import (
	"strconv"
	"testing"

	"github.com/bwmarrin/discordgo"
	"pgregory.net/rapid"

	"discord-community-bot/internal/config"
)

// denials records refusals instead of answering through Discord.
type denials struct {
	msgs []string
}

func (d *denials) deny(_ *discordgo.Session, _ *discordgo.InteractionCreate, msg string) {
	d.msgs = append(d.msgs, msg)
}

func commandInteraction(guildID, userID int64, name string) *discordgo.InteractionCreate {
	i := &discordgo.Interaction{
		ID:   "1",
		Type: discordgo.InteractionApplicationCommand,
		Data: discordgo.ApplicationCommandInteractionData{Name: name},
	}
	if guildID != 0 {
		i.GuildID = strconv.FormatInt(guildID, 10)
		i.Member = &discordgo.Member{User: &discordgo.User{ID: strconv.FormatInt(userID, 10)}}
	} else {
		i.User = &discordgo.User{ID: strconv.FormatInt(userID, 10)}
	}
	return &discordgo.InteractionCreate{Interaction: i}
}

func drawIDs(t *rapid.T, label string, minLen int) []int64 {
	n := rapid.IntRange(minLen, 10).Draw(t, label+"Count")
	ids := make([]int64, n)
	for k := range ids {
		ids[k] = rapid.Int64Range(1, 1000000000).Draw(t, label)
	}
	return ids
}

func contains(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// TestAdminMiddlewareProperty checks that the wrapped handler runs exactly
// when the caller is a configured admin, and is denied otherwise.
func TestAdminMiddlewareProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		adminIDs := drawIDs(t, "adminID", 1)
		cfg := &config.Config{Admin: config.AdminConfig{IDs: adminIDs}}

		var userID int64
		if rapid.Bool().Draw(t, "pickAdmin") {
			userID = adminIDs[rapid.IntRange(0, len(adminIDs)-1).Draw(t, "adminIndex")]
		} else {
			userID = rapid.Int64Range(1, 1000000000).Draw(t, "userID")
		}

		d := &denials{}
		ran := false
		h := Chain(func(*discordgo.Session, *discordgo.InteractionCreate) { ran = true },
			AdminMiddleware(cfg, d.deny))
		h(nil, commandInteraction(42, userID, "admin"))

		want := contains(adminIDs, userID)
		if ran != want {
			t.Fatalf("admin check mismatch: userID=%d adminIDs=%v expected=%v got=%v", userID, adminIDs, want, ran)
		}
		if ran == (len(d.msgs) > 0) {
			t.Fatalf("handler ran=%v but denials=%v", ran, d.msgs)
		}
	})
}

// TestWhitelistMiddlewareProperty checks guild whitelisting: an empty
// whitelist admits every guild, otherwise only listed guilds pass.
func TestWhitelistMiddlewareProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		var guilds []int64
		if rapid.Bool().Draw(t, "restricted") {
			guilds = drawIDs(t, "guildID", 1)
		}
		cfg := &config.Config{Whitelist: config.WhitelistConfig{Guilds: guilds}}

		var guildID int64
		if len(guilds) > 0 && rapid.Bool().Draw(t, "pickListed") {
			guildID = guilds[rapid.IntRange(0, len(guilds)-1).Draw(t, "guildIndex")]
		} else {
			guildID = rapid.Int64Range(1, 1000000000).Draw(t, "guild")
		}

		d := &denials{}
		ran := false
		h := Chain(func(*discordgo.Session, *discordgo.InteractionCreate) { ran = true },
			WhitelistMiddleware(cfg, d.deny))
		h(nil, commandInteraction(guildID, 7, "balance"))

		want := len(guilds) == 0 || contains(guilds, guildID)
		if ran != want {
			t.Fatalf("whitelist mismatch: guildID=%d guilds=%v expected=%v got=%v", guildID, guilds, want, ran)
		}
		if !ran && len(d.msgs) != 1 {
			t.Fatalf("expected one denial, got %v", d.msgs)
		}
	})
}

// TestWhitelistRefusesDirectMessagesProperty checks that interactions
// outside a guild never reach a handler, whatever the whitelist says.
func TestWhitelistRefusesDirectMessagesProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		var guilds []int64
		if rapid.Bool().Draw(t, "restricted") {
			guilds = drawIDs(t, "guildID", 1)
		}
		cfg := &config.Config{Whitelist: config.WhitelistConfig{Guilds: guilds}}
		userID := rapid.Int64Range(1, 1000000000).Draw(t, "userID")

		d := &denials{}
		ran := false
		h := Chain(func(*discordgo.Session, *discordgo.InteractionCreate) { ran = true },
			WhitelistMiddleware(cfg, d.deny))
		h(nil, commandInteraction(0, userID, "daily"))

		if ran {
			t.Fatalf("direct message reached handler: userID=%d guilds=%v", userID, guilds)
		}
		if len(d.msgs) != 1 {
			t.Fatalf("expected one denial, got %v", d.msgs)
		}
	})
}

// TestChainOrderProperty checks that middleware run in the order listed.
func TestChainOrderProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 8).Draw(t, "n")
		var order []int
		mws := make([]Middleware, n)
		for k := 0; k < n; k++ {
			k := k
			mws[k] = func(next HandlerFunc) HandlerFunc {
				return func(s *discordgo.Session, i *discordgo.InteractionCreate) {
					order = append(order, k)
					next(s, i)
				}
			}
		}
		Chain(func(*discordgo.Session, *discordgo.InteractionCreate) { order = append(order, n) }, mws...)(nil, commandInteraction(1, 1, "x"))

		if len(order) != n+1 {
			t.Fatalf("expected %d calls, got %v", n+1, order)
		}
		for k, v := range order {
			if v != k {
				t.Fatalf("out of order: %v", order)
			}
		}
	})
}

func TestRecoveryMiddlewareDeniesOnPanic(t *testing.T) {
	d := &denials{}
	h := Chain(func(*discordgo.Session, *discordgo.InteractionCreate) { panic("boom") },
		RecoveryMiddleware(d.deny))
	h(nil, commandInteraction(1, 1, "slots"))

	if len(d.msgs) != 1 {
		t.Fatalf("expected one denial after panic, got %v", d.msgs)
	}
}
