package service

import (
	"context"
	"fmt"

	"discord-community-bot/internal/model"
	"discord-community-bot/internal/repository"
)

// XPToLevelUp returns the experience needed to advance past level.
func XPToLevelUp(level int) int64 {
	l := int64(level)
	return 5*l*l + 50*l + 100
}

// LevelReward returns the coins paid for reaching level.
func LevelReward(level int) int64 {
	return int64(level) * 100
}

// AdvanceLevel spends xp on as many level-ups as it covers, starting from
// level. Experience left over after the last level-up carries over.
func AdvanceLevel(level int, xp int64) (newLevel int, rest, reward int64) {
	newLevel, rest = level, xp
	for rest >= XPToLevelUp(newLevel) {
		rest -= XPToLevelUp(newLevel)
		newLevel++
		reward += LevelReward(newLevel)
	}
	return newLevel, rest, reward
}

// grantXP adds experience and applies any level-ups it earns with the same
// repositories, so both land in the caller's transaction. The level-up
// reward is journaled and REACH_LEVEL is raised to the new level.
func grantXP(
	ctx context.Context,
	users *repository.UserRepository,
	txs *repository.TransactionRepository,
	progress *repository.ProgressRepository,
	guildID, userID, xp int64,
) (*model.User, error) {
	user, err := users.AddXP(ctx, guildID, userID, xp)
	if err != nil {
		return nil, err
	}

	level, rest, reward := AdvanceLevel(user.Level, user.XP)
	if level == user.Level {
		return user, nil
	}

	user, err = users.SetLevel(ctx, guildID, userID, level, rest, reward)
	if err != nil {
		return nil, err
	}
	desc := fmt.Sprintf("reached level %d", level)
	if _, err := txs.Create(ctx, guildID, userID, reward, model.TxTypeLevelUp, &desc); err != nil {
		return nil, err
	}
	if _, err := progress.Raise(ctx, guildID, userID, model.EventReachLevel, int64(level)); err != nil {
		return nil, err
	}
	return user, nil
}
