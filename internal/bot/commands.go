package bot

import (
	"github.com/bwmarrin/discordgo"

	"discord-community-bot/internal/game"
	"discord-community-bot/internal/game/coin"
	"discord-community-bot/internal/handler"
)

var (
	minZero  = 0.0
	minOne   = 1.0
	manageGS = int64(discordgo.PermissionManageServer)
	noDM     = false
)

// soloOptions are the extra options of solo games beyond the bet.
var soloOptions = map[string][]*discordgo.ApplicationCommandOption{
	"coin": {
		{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "side",
			Description: "Heads or tails",
			Choices: []*discordgo.ApplicationCommandOptionChoice{
				{Name: "Heads", Value: coin.Heads},
				{Name: "Tails", Value: coin.Tails},
			},
		},
	},
}

func memberOption(required bool, description string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionUser,
		Name:        "member",
		Description: description,
		Required:    required,
	}
}

func amountOption(name, description string, required bool, minValue *float64) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionInteger,
		Name:        name,
		Description: description,
		Required:    required,
		MinValue:    minValue,
	}
}

// Commands builds the slash commands for the fixed features plus one
// command per registered solo game and table game.
func Commands(registry *game.Registry) []*discordgo.ApplicationCommand {
	cmds := []*discordgo.ApplicationCommand{
		{Name: "balance", Description: "Show a coin balance", Options: []*discordgo.ApplicationCommandOption{memberOption(false, "Whose balance")}},
		{Name: "daily", Description: "Claim the daily reward"},
		{Name: "profile", Description: "Show your level, coins and progress"},
		{Name: "history", Description: "Show your latest transactions"},
		{Name: "give", Description: "Give coins to another member", Options: []*discordgo.ApplicationCommandOption{
			memberOption(true, "Who receives the coins"),
			amountOption("amount", "How many coins", true, &minOne),
		}},
		{Name: "top", Description: "Richest members of this server"},
		{Name: "dailytop", Description: "Today's biggest winners and losers"},
		{Name: "shop", Description: "Browse the item shop"},
		{Name: "buy", Description: "Buy an item", Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionString, Name: "item", Description: "Item id or name", Required: true},
		}},
		{Name: "inventory", Description: "Show your items and running boosters"},
		{Name: "use", Description: "Use an item from your inventory", Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionString, Name: "item", Description: "Item id or name", Required: true},
			{Type: discordgo.ApplicationCommandOptionString, Name: "nickname", Description: "New nickname, for a nickname ticket", MaxLength: 32},
		}},
		{Name: "boss", Description: "Show the current raid boss"},
		{Name: "attack", Description: "Attack the raid boss"},
		{Name: "games", Description: "List the available games"},
		adminCommand(),
	}

	for _, g := range registry.List() {
		opts := []*discordgo.ApplicationCommandOption{amountOption("bet", "Coins to bet", false, &minZero)}
		opts = append(opts, soloOptions[g.Command()]...)
		cmds = append(cmds, &discordgo.ApplicationCommand{
			Name:        g.Command(),
			Description: truncate(g.Description(), 100),
			Options:     opts,
		})
	}

	for _, d := range registry.Sessions() {
		cmds = append(cmds, &discordgo.ApplicationCommand{
			Name:        d.Kind,
			Description: "Open a " + d.Name + " table",
			Options: []*discordgo.ApplicationCommandOption{
				amountOption("stake", "Coins every player stakes", true, &minZero),
			},
		})
	}

	for _, c := range cmds {
		c.DMPermission = &noDM
	}
	return cmds
}

func adminCommand() *discordgo.ApplicationCommand {
	sub := func(name, description string, opts ...*discordgo.ApplicationCommandOption) *discordgo.ApplicationCommandOption {
		return &discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        name,
			Description: description,
			Options:     opts,
		}
	}
	return &discordgo.ApplicationCommand{
		Name:                     "admin",
		Description:              "Bot administration",
		DefaultMemberPermissions: &manageGS,
		Options: []*discordgo.ApplicationCommandOption{
			sub(handler.AdminAdd, "Add coins to a member", memberOption(true, "Target member"), amountOption("amount", "Coins", true, &minOne)),
			sub(handler.AdminSub, "Take coins from a member", memberOption(true, "Target member"), amountOption("amount", "Coins", true, &minOne)),
			sub(handler.AdminSet, "Set a member's coins", memberOption(true, "Target member"), amountOption("amount", "Coins", true, &minZero)),
			sub(handler.AdminAbort, "Abort a table and refund its stakes", &discordgo.ApplicationCommandOption{
				Type: discordgo.ApplicationCommandOptionString, Name: "session", Description: "Session id", Required: true,
			}),
			sub(handler.AdminSpawn, "Spawn a raid boss here",
				&discordgo.ApplicationCommandOption{Type: discordgo.ApplicationCommandOptionString, Name: "name", Description: "Boss name", Required: true},
				amountOption("hp", "Boss HP", true, &minOne),
			),
			sub(handler.AdminDespawn, "Remove the raid boss without rewards"),
		},
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
