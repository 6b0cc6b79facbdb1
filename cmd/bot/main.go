// Package main is the entry point for the Discord community bot.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"discord-community-bot/internal/bot"
	"discord-community-bot/internal/config"
	"discord-community-bot/internal/game"
	"discord-community-bot/internal/game/blackjack"
	"discord-community-bot/internal/game/coin"
	"discord-community-bot/internal/game/coinflip"
	"discord-community-bot/internal/game/horserace"
	"discord-community-bot/internal/game/poker"
	"discord-community-bot/internal/game/slot"
	"discord-community-bot/internal/game/taixiu"
	"discord-community-bot/internal/handler"
	"discord-community-bot/internal/pkg/db"
	"discord-community-bot/internal/pkg/lock"
	"discord-community-bot/internal/raid"
	"discord-community-bot/internal/repository"
	"discord-community-bot/internal/service"
	"discord-community-bot/internal/session"
)

func main() {
	// Configure zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Load configuration
	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil || cfg.Log.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	log.Info().Str("level", level.String()).Msg("Configuration loaded successfully")

	// Cancel on SIGINT/SIGTERM for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database connection pool
	dbPool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbPool.Close()

	if err := db.Migrate(ctx, dbPool.Pool); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(dbPool.Pool)
	txRepo := repository.NewTransactionRepository(dbPool.Pool)
	inventoryRepo := repository.NewInventoryRepository(dbPool.Pool)
	progressRepo := repository.NewProgressRepository(dbPool.Pool)
	bossRepo := repository.NewBossRepository(dbPool.Pool)
	effectRepo := repository.NewEffectRepository(dbPool.Pool)

	// Member locks serialize one member's balance edits across features
	locks := lock.NewKeyed[lock.MemberKey]()

	// Initialize services
	ledgerService := service.NewLedgerService(dbPool.Pool, userRepo, txRepo)
	accountService := service.NewAccountService(dbPool.Pool, userRepo, txRepo, inventoryRepo, progressRepo, locks,
		service.DailyConfig{
			Min:      cfg.Economy.DailyMin,
			Max:      cfg.Economy.DailyMax,
			Cooldown: cfg.Economy.DailyCooldown,
		})
	transferService := service.NewTransferService(dbPool.Pool, ledgerService, progressRepo, locks)
	rankingService := service.NewRankingService(userRepo, txRepo, time.Local)
	shopService := service.NewShopService(dbPool.Pool, ledgerService, inventoryRepo, progressRepo, effectRepo, locks)

	gameRegistry, err := newRegistry(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to register games")
	}

	playService, err := service.NewPlayService(gameRegistry, ledgerService, locks)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create play service")
	}

	// Discord session and member names
	dg, err := bot.NewSession(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create discord session")
	}
	presence, err := bot.NewPresence(bot.SessionMembers(dg), cfg.Cache.PresenceSize)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create presence cache")
	}

	// Table games
	sessions, err := session.NewManager(ledgerService, gameRegistry, session.Options{
		LobbyTimeout:    cfg.Sessions.LobbyTimeout,
		ClosedCacheSize: cfg.Sessions.ClosedCacheSize,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create session manager")
	}
	sessions.AddListener(handler.NewSessionNotifier(dg, presence))
	sessions.AddListener(service.NewProgressRecorder(progressRepo))

	// Boss raids
	arbiter := raid.NewArbiter(
		service.NewRaidStore(dbPool.Pool, bossRepo, userRepo, txRepo, inventoryRepo, progressRepo, effectRepo),
		handler.NewRaidAnnouncer(dg),
		raid.Config{
			AttackCooldown:      cfg.Raid.AttackCooldown,
			MVPBonusPercent:     cfg.Raid.MVPBonusPercent,
			LastHitBonusPercent: cfg.Raid.LastHitBonusPercent,
			DropChance:          cfg.Raid.DropChance,
			EncounterTTL:        cfg.Raid.EncounterTTL,
		},
	)

	discordBot, err := bot.New(&bot.Dependencies{
		Config:          cfg,
		Session:         dg,
		Names:           presence,
		AccountService:  accountService,
		TransferService: transferService,
		RankingService:  rankingService,
		ShopService:     shopService,
		PlayService:     playService,
		LedgerService:   ledgerService,
		GameRegistry:    gameRegistry,
		Sessions:        sessions,
		Arbiter:         arbiter,
		Locks:           locks,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create bot")
	}

	if err := discordBot.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start bot")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sweep(gctx, cfg.Sessions.SweepInterval, sessions, arbiter)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Received shutdown signal")
		discordBot.Stop()
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Shutdown with error")
	}
	log.Info().Msg("Bot stopped gracefully")
}

// newRegistry registers the solo games and table games enabled by config.
func newRegistry(cfg *config.Config) (*game.Registry, error) {
	registry := game.NewRegistry()

	solo := []game.Game{
		slot.New(&slot.Config{
			MaxBet:   cfg.Games.Slot.MaxBet,
			Cooldown: cfg.Games.Slot.CooldownSeconds,
		}),
		coin.New(&coin.Config{
			MaxBet:   cfg.Games.Coin.MaxBet,
			Cooldown: cfg.Games.Coin.CooldownSeconds,
		}),
	}
	for _, g := range solo {
		if err := registry.Register(g); err != nil {
			return nil, err
		}
	}

	tables := []session.Definition{
		blackjack.Definition(cfg.Games.Blackjack.Timeout),
		poker.Definition(cfg.Games.Poker.Timeout),
		coinflip.Definition(cfg.Games.CoinFlip.Timeout),
		taixiu.Definition(cfg.Games.TaiXiu.Timeout),
		horserace.Definition(horserace.Options{
			Timeout:     cfg.Games.HorseRace.Timeout,
			Horses:      cfg.Games.HorseRace.Horses,
			TrackLength: cfg.Games.HorseRace.TrackLength,
		}),
	}
	for _, def := range tables {
		if err := registry.RegisterSession(def); err != nil {
			return nil, err
		}
	}

	log.Info().
		Int("game_count", registry.Count()).
		Int("table_count", len(registry.Sessions())).
		Msg("Games registered")
	return registry, nil
}

// sweep expires idle lobbies, forfeits stalled tables and retires stale
// raid encounters until ctx is cancelled.
func sweep(ctx context.Context, interval time.Duration, sessions *session.Manager, arbiter *raid.Arbiter) {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sessions.Sweep(ctx)
			arbiter.Sweep(ctx)
		}
	}
}
