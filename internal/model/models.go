// Package model defines the persistent data models of the community bot.
package model

import "time"

// User is a member's per-guild economy profile. Coins is the ledger balance.
type User struct {
	GuildID         int64      `db:"guild_id"`
	UserID          int64      `db:"user_id"`
	Coins           int64      `db:"coins"`
	XP              int64      `db:"xp"`
	Level           int        `db:"level"`
	PermDamageBonus float64    `db:"perm_damage_bonus"`
	DailyClaimedAt  *time.Time `db:"daily_claimed_at"`
	CreatedAt       time.Time  `db:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at"`
}

// Transaction is one applied ledger delta.
type Transaction struct {
	ID          int64     `db:"id"`
	GuildID     int64     `db:"guild_id"`
	UserID      int64     `db:"user_id"`
	Amount      int64     `db:"amount"`
	Type        string    `db:"type"`
	Description *string   `db:"description"`
	CreatedAt   time.Time `db:"created_at"`
}

// Boss is the live raid encounter of a guild.
type Boss struct {
	GuildID   int64     `db:"guild_id"`
	Name      string    `db:"boss_name"`
	CurrentHP int64     `db:"current_hp"`
	MaxHP     int64     `db:"max_hp"`
	ChannelID int64     `db:"channel_id"`
	MessageID int64     `db:"message_id"`
	SpawnedBy int64     `db:"spawned_by"`
	LastHitBy *int64    `db:"last_hit_by"`
	SpawnedAt time.Time `db:"spawned_at"`
}

// Attacker is a member's cumulative contribution to the current encounter.
type Attacker struct {
	GuildID       int64     `db:"guild_id"`
	UserID        int64     `db:"user_id"`
	TotalDamage   int64     `db:"total_damage"`
	FirstAttackAt time.Time `db:"first_attack_at"`
	LastAttackAt  time.Time `db:"last_attack_at"`
}

// InventoryItem is a stack of catalog items owned by a member.
type InventoryItem struct {
	GuildID  int64  `db:"guild_id"`
	UserID   int64  `db:"user_id"`
	ItemID   string `db:"item_id"`
	Quantity int    `db:"quantity"`
}

// ActiveEffect is a used booster running until ExpiresAt.
type ActiveEffect struct {
	GuildID   int64     `db:"guild_id"`
	UserID    int64     `db:"user_id"`
	Effect    string    `db:"effect"`
	ExpiresAt time.Time `db:"expires_at"`
}

// Progress counts occurrences of a quest/achievement event for a member.
type Progress struct {
	GuildID   int64     `db:"guild_id"`
	UserID    int64     `db:"user_id"`
	Event     string    `db:"event"`
	Count     int64     `db:"count"`
	UpdatedAt time.Time `db:"updated_at"`
}

// DailyRank is a member's net game result for one day.
type DailyRank struct {
	UserID    int64 `db:"user_id"`
	NetProfit int64 `db:"net_profit"`
}

// Transaction types for categorizing balance changes.
const (
	TxTypeDaily      = "daily"
	TxTypeStake      = "session_stake"  // Stake debited at session start or raise
	TxTypePayout     = "session_payout" // Settlement credit
	TxTypeRefund     = "session_refund" // Held stake returned on abort
	TxTypeSlot       = "slot"
	TxTypeCoin       = "coin"
	TxTypeBossReward = "boss_reward"
	TxTypeAdminAdd   = "admin_add"
	TxTypeAdminSet   = "admin_set"
	TxTypeTransfer   = "transfer"
	TxTypePurchase   = "shop_purchase"
	TxTypeLevelUp    = "level_up"
)

// GameTxTypes are the journal types counted toward daily game rankings.
var GameTxTypes = []string{TxTypeStake, TxTypePayout, TxTypeRefund, TxTypeSlot, TxTypeCoin}

// Progress events recorded for quests and achievements.
const (
	EventBlackjackWin = "BLACKJACK_WIN"
	EventFlipWin      = "FLIP_WIN"
	EventTaiXiuWin    = "TAIXIU_WIN"
	EventPokerWin     = "POKER_WIN"
	EventHorseWin     = "HORSE_WIN"
	EventBossKill     = "BOSS_KILL"
	EventBossDamage   = "BOSS_DAMAGE"
	EventGiveCoin     = "GIVE_COIN"
	EventShopSpend    = "SHOP_SPEND"
	EventReachLevel   = "REACH_LEVEL" // count is the highest level reached
)
