// Package shop holds the item catalog. Items are granted as boss drops and
// kept in member inventories.
package shop

import (
	"math/rand/v2"
	"time"
)

// ItemType identifies a catalog item. It is the inventory item_id.
type ItemType string

const (
	ItemXPBooster      ItemType = "xp_booster"
	ItemLotteryTicket  ItemType = "lottery_ticket"
	ItemCoinBooster3h  ItemType = "coin_booster_3h"
	ItemNicknameTicket ItemType = "nickname_ticket"
)

// Effects started by boosters. One of each can run per member.
const (
	EffectXPBoost   = "xp_booster"
	EffectCoinBoost = "coin_booster"
)

// ItemConfig holds the configuration for a catalog item
type ItemConfig struct {
	Type         ItemType
	Name         string
	Emoji        string
	Price        int64
	Duration     time.Duration // effect duration once used, 0 for instant
	Effect       string        // effect started on use, empty for instant
	BoostPercent int64         // extra reward while the effect runs
	Description  string
	Usable       bool
	Droppable    bool // can be granted by a boss defeat
}

// ShopItems contains every catalog item.
var ShopItems = map[ItemType]ItemConfig{
	ItemXPBooster: {
		Type:         ItemXPBooster,
		Name:         "XP Booster (24h)",
		Emoji:        "✨",
		Price:        10000,
		Duration:     24 * time.Hour,
		Effect:       EffectXPBoost,
		BoostPercent: 50,
		Description:  "+50% raid XP for 24 hours",
		Usable:       true,
		Droppable:    true,
	},
	ItemLotteryTicket: {
		Type:        ItemLotteryTicket,
		Name:        "Lottery Ticket",
		Emoji:       "🎟️",
		Price:       100,
		Description: "A shot at the jackpot",
	},
	ItemCoinBooster3h: {
		Type:         ItemCoinBooster3h,
		Name:         "Coin Booster (3h)",
		Emoji:        "💰",
		Price:        7500,
		Duration:     3 * time.Hour,
		Effect:       EffectCoinBoost,
		BoostPercent: 25,
		Description:  "+25% coins from boss rewards for 3 hours",
		Usable:       true,
		Droppable:    true,
	},
	ItemNicknameTicket: {
		Type:        ItemNicknameTicket,
		Name:        "Nickname Ticket",
		Emoji:       "🎫",
		Price:       30000,
		Description: "Change your nickname once",
		Usable:      true,
		Droppable:   true,
	},
}

// displayOrder is the order items are listed in.
var displayOrder = []ItemType{
	ItemXPBooster,
	ItemLotteryTicket,
	ItemCoinBooster3h,
	ItemNicknameTicket,
}

// GetAllItems returns all catalog items in display order
func GetAllItems() []ItemConfig {
	items := make([]ItemConfig, 0, len(displayOrder))
	for _, itemType := range displayOrder {
		if item, ok := ShopItems[itemType]; ok {
			items = append(items, item)
		}
	}
	return items
}

// GetItem returns the item config for a given type
func GetItem(itemType ItemType) (ItemConfig, bool) {
	item, ok := ShopItems[itemType]
	return item, ok
}

// Droppable returns the items a boss defeat can grant, in display order.
func Droppable() []ItemType {
	var out []ItemType
	for _, it := range GetAllItems() {
		if it.Droppable {
			out = append(out, it.Type)
		}
	}
	return out
}

// RandomDrop picks a droppable item uniformly.
func RandomDrop(rng *rand.Rand) ItemType {
	drops := Droppable()
	return drops[rng.IntN(len(drops))]
}

// IsTimeBased returns true if the item has a duration (not one-time use)
func (c ItemConfig) IsTimeBased() bool {
	return c.Duration > 0
}

// Boosted adds the item's boost to amount.
func (c ItemConfig) Boosted(amount int64) int64 {
	return amount + amount*c.BoostPercent/100
}

// Label renders the item as "emoji name".
func (c ItemConfig) Label() string {
	return c.Emoji + " " + c.Name
}
