package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"discord-community-bot/internal/game"
	"discord-community-bot/internal/model"
	"discord-community-bot/internal/pkg/cache"
	"discord-community-bot/internal/pkg/lock"
)

// DefaultCooldownCacheSize bounds how many member cooldowns are remembered.
const DefaultCooldownCacheSize = 4096

// soloTxTypes maps a solo game command to its journal type.
var soloTxTypes = map[string]string{
	"slots": model.TxTypeSlot,
	"coin":  model.TxTypeCoin,
}

// PlayResult is a settled solo play.
type PlayResult struct {
	Game    game.Game
	Result  *game.GameResult
	Balance int64
}

type cooldownKey struct {
	member  lock.MemberKey
	command string
}

// PlayService runs single-player games against the house.
type PlayService struct {
	registry  *game.Registry
	ledger    *LedgerService
	locks     *lock.Keyed[lock.MemberKey]
	cooldowns *cache.LRU[cooldownKey, time.Time]
	now       func() time.Time
}

// NewPlayService creates a new PlayService instance.
func NewPlayService(registry *game.Registry, ledger *LedgerService, locks *lock.Keyed[lock.MemberKey]) (*PlayService, error) {
	cooldowns, err := cache.NewLRU[cooldownKey, time.Time](DefaultCooldownCacheSize, 0)
	if err != nil {
		return nil, err
	}
	return &PlayService{
		registry:  registry,
		ledger:    ledger,
		locks:     locks,
		cooldowns: cooldowns,
		now:       time.Now,
	}, nil
}

// Remaining returns the member's cooldown left for command.
func (s *PlayService) Remaining(guildID, userID int64, g game.Game) time.Duration {
	last, ok := s.cooldowns.Get(cooldownKey{lock.MemberKey{GuildID: guildID, UserID: userID}, g.Command()})
	if !ok {
		return 0
	}
	remaining := time.Duration(g.Cooldown())*time.Second - s.now().Sub(last)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Play debits the bet, plays, and credits the gross result. The bet is
// refunded if the game fails to play.
func (s *PlayService) Play(ctx context.Context, guildID, userID int64, command string, bet int64, params map[string]any) (*PlayResult, error) {
	g, ok := s.registry.Get(command)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownGame, command)
	}
	if err := g.ValidateBet(bet, params); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}

	key := lock.MemberKey{GuildID: guildID, UserID: userID}
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	// The cooldown is read under the member lock.
	if remaining := s.Remaining(guildID, userID, g); remaining > 0 {
		return nil, &WaitError{Err: ErrGameCooldown, Remaining: remaining}
	}

	txType, ok := soloTxTypes[command]
	if !ok {
		txType = command
	}

	if bet > 0 {
		if _, err := s.ledger.ApplyDelta(ctx, guildID, userID, -bet, txType, g.Name()+" bet"); err != nil {
			return nil, err
		}
	}

	result, err := g.Play(ctx, userID, bet, params)
	if err != nil {
		if bet > 0 {
			if _, rerr := s.ledger.ApplyDelta(ctx, guildID, userID, bet, txType, g.Name()+" refund"); rerr != nil {
				log.Error().Err(rerr).Int64("guild_id", guildID).Int64("user_id", userID).Msg("Failed to refund solo bet")
			}
		}
		return nil, fmt.Errorf("failed to play %s: %w", command, err)
	}
	s.cooldowns.Add(cooldownKey{key, command}, s.now())

	balance, err := s.ledger.ApplyDelta(ctx, guildID, userID, bet+result.Payout, txType, g.Name()+" payout")
	if err != nil {
		return nil, fmt.Errorf("failed to credit %s payout: %w", command, err)
	}

	return &PlayResult{Game: g, Result: result, Balance: balance}, nil
}
