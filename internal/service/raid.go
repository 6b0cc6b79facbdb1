package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"discord-community-bot/internal/model"
	"discord-community-bot/internal/pkg/db"
	"discord-community-bot/internal/raid"
	"discord-community-bot/internal/repository"
	"discord-community-bot/internal/shop"
)

// RaidStore persists raid encounters in PostgreSQL. It implements raid.Store.
type RaidStore struct {
	db            db.Beginner
	bossRepo      *repository.BossRepository
	userRepo      *repository.UserRepository
	txRepo        *repository.TransactionRepository
	inventoryRepo *repository.InventoryRepository
	progressRepo  *repository.ProgressRepository
	effectRepo    *repository.EffectRepository
}

// NewRaidStore creates a new RaidStore instance.
func NewRaidStore(
	beginner db.Beginner,
	bossRepo *repository.BossRepository,
	userRepo *repository.UserRepository,
	txRepo *repository.TransactionRepository,
	inventoryRepo *repository.InventoryRepository,
	progressRepo *repository.ProgressRepository,
	effectRepo *repository.EffectRepository,
) *RaidStore {
	return &RaidStore{
		db:            beginner,
		bossRepo:      bossRepo,
		userRepo:      userRepo,
		txRepo:        txRepo,
		inventoryRepo: inventoryRepo,
		progressRepo:  progressRepo,
		effectRepo:    effectRepo,
	}
}

// mapBossErr translates repository errors into raid errors.
func mapBossErr(err error) error {
	switch {
	case errors.Is(err, repository.ErrBossNotFound):
		return raid.ErrEncounterNotFound
	case errors.Is(err, repository.ErrBossExists):
		return raid.ErrEncounterExists
	case errors.Is(err, repository.ErrAttackOnCooldown):
		return raid.ErrOnCooldown
	default:
		return err
	}
}

func (s *RaidStore) Spawn(ctx context.Context, boss model.Boss) (*model.Boss, error) {
	var created *model.Boss
	err := db.InTx(ctx, s.db, func(tx pgx.Tx) error {
		bosses := s.bossRepo.WithTx(tx)
		// Tallies left by a despawned or expired encounter never carry over.
		if err := bosses.DeleteAttackers(ctx, boss.GuildID); err != nil {
			return err
		}
		var err error
		created, err = bosses.Create(ctx, boss)
		return err
	})
	if err != nil {
		return nil, mapBossErr(err)
	}
	return created, nil
}

func (s *RaidStore) Encounter(ctx context.Context, guildID int64) (*model.Boss, error) {
	boss, err := s.bossRepo.Get(ctx, guildID)
	if err != nil {
		return nil, mapBossErr(err)
	}
	return boss, nil
}

func (s *RaidStore) Encounters(ctx context.Context) ([]*model.Boss, error) {
	return s.bossRepo.List(ctx)
}

func (s *RaidStore) Attackers(ctx context.Context, guildID int64) ([]model.Attacker, error) {
	return s.bossRepo.ListAttackers(ctx, guildID)
}

func (s *RaidStore) Fighter(ctx context.Context, guildID, userID int64) (raid.Fighter, error) {
	user, _, err := s.userRepo.GetOrCreate(ctx, guildID, userID)
	if err != nil {
		return raid.Fighter{}, err
	}
	f := raid.Fighter{Level: user.Level, DamageBonus: user.PermDamageBonus}

	a, err := s.bossRepo.GetAttacker(ctx, guildID, userID)
	switch {
	case err == nil:
		at := a.LastAttackAt
		f.LastAttackAt = &at
	case !errors.Is(err, repository.ErrUserNotFound):
		return raid.Fighter{}, err
	}
	return f, nil
}

// Strike records the attack and decrements HP in one transaction, so a hit
// rejected by either guard leaves no trace.
func (s *RaidStore) Strike(ctx context.Context, guildID, userID, damage int64, now time.Time, cooldown time.Duration) (*raid.Hit, error) {
	var hit raid.Hit
	err := db.InTx(ctx, s.db, func(tx pgx.Tx) error {
		bosses := s.bossRepo.WithTx(tx)
		a, err := bosses.RecordAttack(ctx, guildID, userID, damage, now, cooldown)
		if err != nil {
			return err
		}
		hit.Attacker = *a
		hit.HP, hit.LastHitBy, err = bosses.Strike(ctx, guildID, userID, damage)
		return err
	})
	if err != nil {
		return nil, mapBossErr(err)
	}
	return &hit, nil
}

// Claim deletes a defeated encounter and pays its rewards in one transaction.
func (s *RaidStore) Claim(ctx context.Context, guildID int64, plan raid.Plan) (*raid.Rewards, error) {
	var rewards raid.Rewards
	err := db.InTx(ctx, s.db, func(tx pgx.Tx) error {
		bosses := s.bossRepo.WithTx(tx)
		boss, err := bosses.Claim(ctx, guildID)
		if err != nil {
			return err
		}
		attackers, err := bosses.ListAttackers(ctx, guildID)
		if err != nil {
			return err
		}

		rewards = plan(*boss, attackers)
		if err := s.pay(ctx, tx, guildID, rewards); err != nil {
			return err
		}
		return bosses.DeleteAttackers(ctx, guildID)
	})
	if err != nil {
		return nil, mapBossErr(err)
	}
	return &rewards, nil
}

// pay credits every reward. Running boosters raise coins and XP, and the
// raised amounts are written back into rewards for the announcement.
func (s *RaidStore) pay(ctx context.Context, tx pgx.Tx, guildID int64, rewards raid.Rewards) error {
	users := s.userRepo.WithTx(tx)
	txs := s.txRepo.WithTx(tx)
	inventory := s.inventoryRepo.WithTx(tx)
	progress := s.progressRepo.WithTx(tx)
	effects := s.effectRepo.WithTx(tx)
	desc := "defeated " + rewards.Boss.Name
	now := time.Now()

	for i := range rewards.Rewards {
		r := &rewards.Rewards[i]
		coins, err := boosted(ctx, effects, guildID, r.UserID, shop.ItemCoinBooster3h, r.Coins(), now)
		if err != nil {
			return err
		}
		r.Boost = coins - r.Coins()
		if r.XP, err = boosted(ctx, effects, guildID, r.UserID, shop.ItemXPBooster, r.XP, now); err != nil {
			return err
		}

		if coins > 0 {
			if _, err := users.Credit(ctx, guildID, r.UserID, coins); err != nil {
				return err
			}
			if _, err := txs.Create(ctx, guildID, r.UserID, coins, model.TxTypeBossReward, &desc); err != nil {
				return err
			}
		}
		if r.XP > 0 {
			if _, err := grantXP(ctx, users, txs, progress, guildID, r.UserID, r.XP); err != nil {
				return err
			}
		}
		if r.Item != "" {
			if err := inventory.AddItem(ctx, guildID, r.UserID, string(r.Item), 1); err != nil {
				return err
			}
		}
		if _, err := progress.Increment(ctx, guildID, r.UserID, model.EventBossDamage, r.Damage); err != nil {
			return err
		}
		if r.LastHit {
			if _, err := progress.Increment(ctx, guildID, r.UserID, model.EventBossKill, 1); err != nil {
				return err
			}
		}
	}
	return nil
}

// Remove deletes the encounter and its tallies without rewards.
func (s *RaidStore) Remove(ctx context.Context, guildID int64) (*model.Boss, error) {
	var boss *model.Boss
	err := db.InTx(ctx, s.db, func(tx pgx.Tx) error {
		bosses := s.bossRepo.WithTx(tx)
		var err error
		boss, err = bosses.Delete(ctx, guildID)
		if err != nil {
			return err
		}
		return bosses.DeleteAttackers(ctx, guildID)
	})
	if err != nil {
		return nil, mapBossErr(err)
	}
	return boss, nil
}

func (s *RaidStore) SetMessage(ctx context.Context, guildID, channelID, messageID int64) error {
	if err := s.bossRepo.SetMessage(ctx, guildID, channelID, messageID); err != nil {
		return fmt.Errorf("failed to bind boss message: %w", mapBossErr(err))
	}
	return nil
}
