package service

import (
	"context"
	"errors"
	"os/exec"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"discord-community-bot/internal/game"
	"discord-community-bot/internal/game/coin"
	"discord-community-bot/internal/model"
	"discord-community-bot/internal/pkg/db"
	"discord-community-bot/internal/pkg/lock"
	"discord-community-bot/internal/raid"
	"discord-community-bot/internal/repository"
	"discord-community-bot/internal/session"
	"discord-community-bot/internal/shop"
)

const testGuild int64 = 777

// checkDockerAvailable checks if Docker is available and running
func checkDockerAvailable() bool {
	cmd := exec.Command("docker", "info")
	return cmd.Run() == nil
}

type services struct {
	pool     *pgxpool.Pool
	users    *repository.UserRepository
	txs      *repository.TransactionRepository
	items    *repository.InventoryRepository
	progress *repository.ProgressRepository
	bosses   *repository.BossRepository
	effects  *repository.EffectRepository
	ledger   *LedgerService
	locks    *lock.Keyed[lock.MemberKey]
}

// setupServices starts PostgreSQL and wires the repositories.
// Skips the test if Docker is not available
func setupServices(t *testing.T) (*services, func()) {
	if !checkDockerAvailable() {
		t.Skip("Docker is not available, skipping integration test")
	}

	ctx := context.Background()
	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	require.NoError(t, db.Migrate(ctx, pool))

	s := &services{
		pool:     pool,
		users:    repository.NewUserRepository(pool),
		txs:      repository.NewTransactionRepository(pool),
		items:    repository.NewInventoryRepository(pool),
		progress: repository.NewProgressRepository(pool),
		bosses:   repository.NewBossRepository(pool),
		effects:  repository.NewEffectRepository(pool),
		locks:    lock.NewKeyed[lock.MemberKey](),
	}
	s.ledger = NewLedgerService(pool, s.users, s.txs)

	return s, func() {
		pool.Close()
		_ = pgContainer.Terminate(ctx)
	}
}

func (s *services) fund(t *testing.T, userID, coins int64) {
	t.Helper()
	_, err := s.users.SetBalance(context.Background(), testGuild, userID, coins)
	require.NoError(t, err)
}

func (s *services) balance(t *testing.T, userID int64) int64 {
	t.Helper()
	coins, err := s.users.Balance(context.Background(), testGuild, userID)
	require.NoError(t, err)
	return coins
}

func TestLedgerService_DebitAllIsAllOrNothing(t *testing.T) {
	s, cleanup := setupServices(t)
	defer cleanup()
	ctx := context.Background()

	s.fund(t, 1, 1000)
	s.fund(t, 2, 400)
	s.fund(t, 3, 1000)

	err := s.ledger.DebitAll(ctx, testGuild, []int64{1, 2, 3}, 500, session.Memo{Type: model.TxTypeStake})
	var short *session.InsufficientFundsError
	require.ErrorAs(t, err, &short)
	assert.Equal(t, int64(2), short.UserID)
	assert.ErrorIs(t, err, session.ErrInsufficientFunds)

	assert.Equal(t, int64(1000), s.balance(t, 1))
	assert.Equal(t, int64(400), s.balance(t, 2))
	assert.Equal(t, int64(1000), s.balance(t, 3))
	sum, err := s.txs.SumByType(ctx, testGuild, 1, model.TxTypeStake)
	require.NoError(t, err)
	assert.Zero(t, sum, "rolled back debits leave no journal entries")

	require.NoError(t, s.ledger.DebitAll(ctx, testGuild, []int64{1, 3}, 500, session.Memo{Type: model.TxTypeStake, Note: "blackjack"}))
	assert.Equal(t, int64(500), s.balance(t, 1))
	assert.Equal(t, int64(500), s.balance(t, 3))
}

func TestLedgerService_CreditAllJournals(t *testing.T) {
	s, cleanup := setupServices(t)
	defer cleanup()
	ctx := context.Background()

	credits := []session.Credit{{UserID: 1, Amount: 2500}, {UserID: 2, Amount: 0}}
	require.NoError(t, s.ledger.CreditAll(ctx, testGuild, credits, session.Memo{Type: model.TxTypePayout}))

	assert.Equal(t, int64(2500), s.balance(t, 1))
	sum, err := s.txs.SumByType(ctx, testGuild, 1, model.TxTypePayout)
	require.NoError(t, err)
	assert.Equal(t, int64(2500), sum)

	history, err := s.txs.GetByUserID(ctx, testGuild, 2, 10)
	require.NoError(t, err)
	assert.Empty(t, history, "zero credits are skipped")
}

func TestLedgerService_CreditAllOncePaysRetryNothing(t *testing.T) {
	s, cleanup := setupServices(t)
	defer cleanup()
	ctx := context.Background()

	s.fund(t, 1, 100)
	s.fund(t, 2, 100)
	memo := session.Memo{Type: model.TxTypePayout, Note: "poker:abc", Once: true}

	require.NoError(t, s.ledger.CreditAll(ctx, testGuild, []session.Credit{{UserID: 1, Amount: 300}}, memo))
	// A retry of the same settlement adds only the member not yet paid.
	credits := []session.Credit{{UserID: 1, Amount: 300}, {UserID: 2, Amount: 50}}
	require.NoError(t, s.ledger.CreditAll(ctx, testGuild, credits, memo))
	require.NoError(t, s.ledger.CreditAll(ctx, testGuild, credits, memo))

	assert.Equal(t, int64(400), s.balance(t, 1))
	assert.Equal(t, int64(150), s.balance(t, 2))
	sum, err := s.txs.SumByType(ctx, testGuild, 1, model.TxTypePayout)
	require.NoError(t, err)
	assert.Equal(t, int64(300), sum)

	other := session.Memo{Type: model.TxTypePayout, Note: "poker:def", Once: true}
	require.NoError(t, s.ledger.CreditAll(ctx, testGuild, []session.Credit{{UserID: 1, Amount: 300}}, other))
	assert.Equal(t, int64(700), s.balance(t, 1), "another session pays again")
}

func TestLedgerService_ApplyDeltaAndSetBalance(t *testing.T) {
	s, cleanup := setupServices(t)
	defer cleanup()
	ctx := context.Background()

	balance, err := s.ledger.ApplyDelta(ctx, testGuild, 1, 300, model.TxTypeAdminAdd, "")
	require.NoError(t, err)
	assert.Equal(t, int64(300), balance)

	_, err = s.ledger.ApplyDelta(ctx, testGuild, 1, -301, model.TxTypeSlot, "slots bet")
	assert.ErrorIs(t, err, session.ErrInsufficientFunds)

	user, err := s.ledger.SetBalance(ctx, testGuild, 1, 1000, "reset")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), user.Coins)

	sum, err := s.txs.SumByType(ctx, testGuild, 1, model.TxTypeAdminSet)
	require.NoError(t, err)
	assert.Equal(t, int64(700), sum, "set journals the difference")

	_, err = s.ledger.SetBalance(ctx, testGuild, 1, -1, "")
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestAccountService_ClaimDaily(t *testing.T) {
	s, cleanup := setupServices(t)
	defer cleanup()
	ctx := context.Background()

	svc := NewAccountService(s.pool, s.users, s.txs, s.items, s.progress, s.locks, DailyConfig{})
	claim, err := svc.ClaimDaily(ctx, testGuild, 1)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, claim.Amount, DefaultDailyMin)
	assert.LessOrEqual(t, claim.Amount, DefaultDailyMax)
	assert.Equal(t, claim.Amount, claim.Balance)

	_, err = svc.ClaimDaily(ctx, testGuild, 1)
	var wait *WaitError
	require.ErrorAs(t, err, &wait)
	assert.ErrorIs(t, err, ErrDailyAlreadyClaimed)
	assert.Greater(t, wait.Remaining, 23*time.Hour)
	assert.Equal(t, claim.Amount, s.balance(t, 1))
}

func TestTransferService_Transfer(t *testing.T) {
	s, cleanup := setupServices(t)
	defer cleanup()
	ctx := context.Background()

	svc := NewTransferService(s.pool, s.ledger, s.progress, s.locks)
	s.fund(t, 1, 1000)

	balance, err := svc.Transfer(ctx, testGuild, 1, 2, 400)
	require.NoError(t, err)
	assert.Equal(t, int64(600), balance)
	assert.Equal(t, int64(400), s.balance(t, 2))

	_, err = svc.Transfer(ctx, testGuild, 1, 2, 601)
	assert.ErrorIs(t, err, session.ErrInsufficientFunds)
	assert.Equal(t, int64(600), s.balance(t, 1))
	assert.Equal(t, int64(400), s.balance(t, 2))

	progress, err := s.progress.List(ctx, testGuild, 1)
	require.NoError(t, err)
	require.Len(t, progress, 1)
	assert.Equal(t, int64(400), progress[0].Count)
}

func TestShopService_PurchaseItem(t *testing.T) {
	s, cleanup := setupServices(t)
	defer cleanup()
	ctx := context.Background()

	svc := NewShopService(s.pool, s.ledger, s.items, s.progress, s.effects, s.locks)
	s.fund(t, 1, 10050)

	balance, err := svc.PurchaseItem(ctx, testGuild, 1, shop.ItemXPBooster)
	require.NoError(t, err)
	assert.Equal(t, int64(50), balance)

	_, err = svc.PurchaseItem(ctx, testGuild, 1, shop.ItemLotteryTicket)
	assert.ErrorIs(t, err, session.ErrInsufficientFunds)

	qty, err := s.items.GetQuantity(ctx, testGuild, 1, string(shop.ItemXPBooster))
	require.NoError(t, err)
	assert.Equal(t, 1, qty)
	qty, err = s.items.GetQuantity(ctx, testGuild, 1, string(shop.ItemLotteryTicket))
	require.NoError(t, err)
	assert.Zero(t, qty)

	_, err = svc.PurchaseItem(ctx, testGuild, 1, "sword")
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestShopService_UseItem(t *testing.T) {
	s, cleanup := setupServices(t)
	defer cleanup()
	ctx := context.Background()

	svc := NewShopService(s.pool, s.ledger, s.items, s.progress, s.effects, s.locks)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	require.NoError(t, s.items.AddItem(ctx, testGuild, 1, string(shop.ItemXPBooster), 2))
	require.NoError(t, s.items.AddItem(ctx, testGuild, 1, string(shop.ItemNicknameTicket), 1))
	require.NoError(t, s.items.AddItem(ctx, testGuild, 1, string(shop.ItemLotteryTicket), 1))

	use, err := svc.UseItem(ctx, testGuild, 1, shop.ItemXPBooster)
	require.NoError(t, err)
	require.NotNil(t, use.Effect)
	assert.Equal(t, shop.EffectXPBoost, use.Effect.Effect)
	assert.True(t, now.Add(24*time.Hour).Equal(use.Effect.ExpiresAt))

	_, err = svc.UseItem(ctx, testGuild, 1, shop.ItemXPBooster)
	assert.ErrorIs(t, err, ErrEffectActive)
	qty, err := s.items.GetQuantity(ctx, testGuild, 1, string(shop.ItemXPBooster))
	require.NoError(t, err)
	assert.Equal(t, 1, qty, "a refused use keeps the item")

	now = now.Add(25 * time.Hour)
	_, err = svc.UseItem(ctx, testGuild, 1, shop.ItemXPBooster)
	require.NoError(t, err, "an expired effect can be started again")

	_, err = svc.UseItem(ctx, testGuild, 1, shop.ItemXPBooster)
	assert.ErrorIs(t, err, ErrItemNotOwned)
	_, err = svc.UseItem(ctx, testGuild, 1, shop.ItemLotteryTicket)
	assert.ErrorIs(t, err, ErrItemNotUsable)

	use, err = svc.UseItem(ctx, testGuild, 1, shop.ItemNicknameTicket)
	require.NoError(t, err)
	assert.Nil(t, use.Effect)
	require.NoError(t, svc.ReturnItem(ctx, testGuild, 1, shop.ItemNicknameTicket))
	qty, err = s.items.GetQuantity(ctx, testGuild, 1, string(shop.ItemNicknameTicket))
	require.NoError(t, err)
	assert.Equal(t, 1, qty)

	effects, err := svc.ActiveEffects(ctx, testGuild, 1)
	require.NoError(t, err)
	require.Len(t, effects, 1)
	assert.Equal(t, shop.EffectXPBoost, effects[0].Effect)
}

func TestPlayService_ConcurrentPlaysRespectCooldown(t *testing.T) {
	s, cleanup := setupServices(t)
	defer cleanup()
	ctx := context.Background()

	registry := game.NewRegistry()
	require.NoError(t, registry.Register(coin.New(&coin.Config{Cooldown: 60})))
	plays, err := NewPlayService(registry, s.ledger, s.locks)
	require.NoError(t, err)
	s.fund(t, 1, 1000)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		played    int
		throttled int
		other     []error
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := plays.Play(ctx, testGuild, 1, "coin", 10, nil)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				played++
			case errors.Is(err, ErrGameCooldown):
				throttled++
			default:
				other = append(other, err)
			}
		}()
	}
	wg.Wait()

	require.Empty(t, other)
	assert.Equal(t, 1, played)
	assert.Equal(t, 7, throttled)
}

func TestRaidStore_InterleavedDefeatPaysOnce(t *testing.T) {
	s, cleanup := setupServices(t)
	defer cleanup()
	ctx := context.Background()

	store := NewRaidStore(s.pool, s.bosses, s.users, s.txs, s.items, s.progress, s.effects)
	_, err := store.Spawn(ctx, model.Boss{GuildID: testGuild, Name: "Hydra", MaxHP: 1000, SpawnedBy: 9})
	require.NoError(t, err)

	now := time.Now()
	hit, err := store.Strike(ctx, testGuild, 1, 700, now, 10*time.Second)
	require.NoError(t, err)
	assert.Equal(t, int64(300), hit.HP)
	assert.Nil(t, hit.LastHitBy)

	hit, err = store.Strike(ctx, testGuild, 2, 400, now.Add(time.Second), 10*time.Second)
	require.NoError(t, err)
	assert.Equal(t, int64(-100), hit.HP)
	require.NotNil(t, hit.LastHitBy)
	assert.Equal(t, int64(2), *hit.LastHitBy)

	_, err = store.Strike(ctx, testGuild, 3, 50, now, 10*time.Second)
	assert.ErrorIs(t, err, raid.ErrEncounterNotFound, "a defeated encounter takes no more hits")

	plan := func(boss model.Boss, attackers []model.Attacker) raid.Rewards {
		return raid.Distribute(boss, attackers, raid.Options{MVPBonusPercent: 10, LastHitBonusPercent: 5}, nil)
	}

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		wins  int
		other []error
	)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Claim(ctx, testGuild, plan)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case !errors.Is(err, raid.ErrEncounterNotFound):
				other = append(other, err)
			}
		}()
	}
	wg.Wait()

	require.Empty(t, other)
	assert.Equal(t, 1, wins)
	assert.Equal(t, int64(736), s.balance(t, 1))
	assert.Equal(t, int64(413), s.balance(t, 2))

	user, err := s.users.Get(ctx, testGuild, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(140), user.XP)

	attackers, err := s.bosses.ListAttackers(ctx, testGuild)
	require.NoError(t, err)
	assert.Empty(t, attackers)

	kills, err := s.progress.List(ctx, testGuild, 2)
	require.NoError(t, err)
	assert.Len(t, kills, 2, "damage and kill are both counted")
}

func TestRaidStore_RewardXPLevelsUp(t *testing.T) {
	s, cleanup := setupServices(t)
	defer cleanup()
	ctx := context.Background()

	store := NewRaidStore(s.pool, s.bosses, s.users, s.txs, s.items, s.progress, s.effects)
	_, err := store.Spawn(ctx, model.Boss{GuildID: testGuild, Name: "Titan", MaxHP: 100, SpawnedBy: 9})
	require.NoError(t, err)
	_, err = store.Strike(ctx, testGuild, 1, 100, time.Now(), 10*time.Second)
	require.NoError(t, err)

	// 400 xp covers level 1 (155) and level 2 (220) with 25 to spare.
	_, err = store.Claim(ctx, testGuild, func(boss model.Boss, _ []model.Attacker) raid.Rewards {
		return raid.Rewards{Boss: boss, Rewards: []raid.Reward{{UserID: 1, Damage: 100, XP: 400}}}
	})
	require.NoError(t, err)

	user, err := s.users.Get(ctx, testGuild, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, user.Level)
	assert.Equal(t, int64(25), user.XP)
	assert.Equal(t, int64(200+300), user.Coins)

	txs, err := s.txs.GetByUserID(ctx, testGuild, 1, 10)
	require.NoError(t, err)
	var journaled int64
	for _, tx := range txs {
		if tx.Type == model.TxTypeLevelUp {
			journaled += tx.Amount
		}
	}
	assert.Equal(t, int64(500), journaled)

	progress, err := s.progress.List(ctx, testGuild, 1)
	require.NoError(t, err)
	var reached int64
	for _, p := range progress {
		if p.Event == model.EventReachLevel {
			reached = p.Count
		}
	}
	assert.Equal(t, int64(3), reached)
}

func TestRaidStore_BoostersRaiseRewards(t *testing.T) {
	s, cleanup := setupServices(t)
	defer cleanup()
	ctx := context.Background()

	store := NewRaidStore(s.pool, s.bosses, s.users, s.txs, s.items, s.progress, s.effects)
	_, err := store.Spawn(ctx, model.Boss{GuildID: testGuild, Name: "Wyrm", MaxHP: 100, SpawnedBy: 9})
	require.NoError(t, err)
	_, err = store.Strike(ctx, testGuild, 1, 60, time.Now(), 10*time.Second)
	require.NoError(t, err)
	_, err = store.Strike(ctx, testGuild, 2, 40, time.Now(), 10*time.Second)
	require.NoError(t, err)

	now := time.Now()
	_, err = s.effects.Activate(ctx, testGuild, 1, shop.EffectCoinBoost, now, now.Add(time.Hour))
	require.NoError(t, err)
	_, err = s.effects.Activate(ctx, testGuild, 1, shop.EffectXPBoost, now, now.Add(time.Hour))
	require.NoError(t, err)

	rewards, err := store.Claim(ctx, testGuild, func(boss model.Boss, _ []model.Attacker) raid.Rewards {
		return raid.Rewards{Boss: boss, Rewards: []raid.Reward{
			{UserID: 1, Damage: 60, Share: 100, XP: 100},
			{UserID: 2, Damage: 40, Share: 100, XP: 100},
		}}
	})
	require.NoError(t, err)

	assert.Equal(t, int64(125), rewards.Rewards[0].Coins())
	assert.Equal(t, int64(150), rewards.Rewards[0].XP)
	assert.Equal(t, int64(100), rewards.Rewards[1].Coins())
	assert.Equal(t, int64(100), rewards.Rewards[1].XP)

	assert.Equal(t, int64(125), s.balance(t, 1))
	assert.Equal(t, int64(100), s.balance(t, 2))
	user, err := s.users.Get(ctx, testGuild, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(150), user.XP)
}

func TestRaidStore_CooldownLeavesNoTrace(t *testing.T) {
	s, cleanup := setupServices(t)
	defer cleanup()
	ctx := context.Background()

	store := NewRaidStore(s.pool, s.bosses, s.users, s.txs, s.items, s.progress, s.effects)
	_, err := store.Spawn(ctx, model.Boss{GuildID: testGuild, Name: "Golem", MaxHP: 1000, SpawnedBy: 9})
	require.NoError(t, err)

	now := time.Now()
	_, err = store.Strike(ctx, testGuild, 1, 100, now, 10*time.Second)
	require.NoError(t, err)
	_, err = store.Strike(ctx, testGuild, 1, 100, now.Add(5*time.Second), 10*time.Second)
	assert.ErrorIs(t, err, raid.ErrOnCooldown)

	boss, err := store.Encounter(ctx, testGuild)
	require.NoError(t, err)
	assert.Equal(t, int64(900), boss.CurrentHP)

	f, err := store.Fighter(ctx, testGuild, 1)
	require.NoError(t, err)
	require.NotNil(t, f.LastAttackAt)
	assert.Equal(t, 1, f.Level)

	_, err = store.Spawn(ctx, model.Boss{GuildID: testGuild, Name: "Other", MaxHP: 10, SpawnedBy: 9})
	assert.ErrorIs(t, err, raid.ErrEncounterExists)

	_, err = store.Remove(ctx, testGuild)
	require.NoError(t, err)
	_, err = store.Encounter(ctx, testGuild)
	assert.ErrorIs(t, err, raid.ErrEncounterNotFound)
}
