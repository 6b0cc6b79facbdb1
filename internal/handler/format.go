package handler

import (
	"strconv"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// Embed colors.
const (
	colorInfo    = 0x5865F2
	colorSuccess = 0x57F287
	colorWarn    = 0xFEE75C
	colorError   = 0xED4245
)

// Namer resolves a member's display name for places where mentions do not render.
type Namer interface {
	DisplayName(guildID, userID int64) string
}

// Coins formats an amount with thousands separators, e.g. "1,500 🪙".
func Coins(n int64) string {
	return printer.Sprintf("%d 🪙", n)
}

// Signed formats a delta with an explicit sign.
func Signed(n int64) string {
	if n > 0 {
		return printer.Sprintf("+%d", n)
	}
	return printer.Sprintf("%d", n)
}

// Mention renders a user mention.
func Mention(userID int64) string {
	return "<@" + strconv.FormatInt(userID, 10) + ">"
}

// Wait formats a remaining cooldown, at least one second.
func Wait(d time.Duration) string {
	d = d.Round(time.Second)
	if d < time.Second {
		d = time.Second
	}
	return d.String()
}

// Snowflake parses a Discord id. Malformed ids yield 0.
func Snowflake(id string) int64 {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// SnowflakeString formats an id for the Discord API.
func SnowflakeString(id int64) string {
	return strconv.FormatInt(id, 10)
}

func medal(rank int) string {
	switch rank {
	case 0:
		return "🥇"
	case 1:
		return "🥈"
	case 2:
		return "🥉"
	default:
		return strconv.Itoa(rank+1) + "."
	}
}
