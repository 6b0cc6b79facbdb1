// Package bot provides the Discord gateway setup, slash command
// registration and interaction routing.
package bot

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"

	"discord-community-bot/internal/config"
	"discord-community-bot/internal/game"
	"discord-community-bot/internal/handler"
	"discord-community-bot/internal/pkg/lock"
	"discord-community-bot/internal/raid"
	"discord-community-bot/internal/service"
	"discord-community-bot/internal/session"
)

// Bot wraps the discordgo session with application dependencies.
type Bot struct {
	session  *discordgo.Session
	cfg      *config.Config
	registry *game.Registry

	commands  map[string]HandlerFunc
	component HandlerFunc

	// Handlers
	accountHandler  *handler.AccountHandler
	transferHandler *handler.TransferHandler
	rankingHandler  *handler.RankingHandler
	shopHandler     *handler.ShopHandler
	gameHandler     *handler.GameHandler
	sessionHandler  *handler.SessionHandler
	raidHandler     *handler.RaidHandler
	adminHandler    *handler.AdminHandler
}

// Dependencies holds all the dependencies needed by the bot handlers.
type Dependencies struct {
	Config          *config.Config
	Session         *discordgo.Session
	Names           handler.Namer
	AccountService  *service.AccountService
	TransferService *service.TransferService
	RankingService  *service.RankingService
	ShopService     *service.ShopService
	PlayService     *service.PlayService
	LedgerService   *service.LedgerService
	GameRegistry    *game.Registry
	Sessions        *session.Manager
	Arbiter         *raid.Arbiter
	Locks           *lock.Keyed[lock.MemberKey]
}

// NewSession creates the gateway session for the configured token.
func NewSession(cfg *config.Config) (*discordgo.Session, error) {
	if cfg.Bot.Token == "" {
		return nil, fmt.Errorf("bot token is required")
	}
	s, err := discordgo.New("Bot " + cfg.Bot.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	s.Identify.Intents = discordgo.IntentsGuilds
	return s, nil
}

// New creates a new Bot instance with the given dependencies.
func New(deps *Dependencies) (*Bot, error) {
	if deps.Session == nil {
		return nil, fmt.Errorf("discord session is required")
	}

	b := &Bot{
		session:  deps.Session,
		cfg:      deps.Config,
		registry: deps.GameRegistry,
	}

	// Initialize handlers
	b.accountHandler = handler.NewAccountHandler(deps.AccountService)
	b.transferHandler = handler.NewTransferHandler(deps.TransferService)
	b.rankingHandler = handler.NewRankingHandler(deps.RankingService)
	b.shopHandler = handler.NewShopHandler(deps.ShopService, deps.AccountService)
	b.gameHandler = handler.NewGameHandler(deps.GameRegistry, deps.PlayService)
	b.sessionHandler = handler.NewSessionHandler(deps.Sessions, deps.Names)
	b.raidHandler = handler.NewRaidHandler(deps.Arbiter)
	b.adminHandler = handler.NewAdminHandler(deps.LedgerService, deps.Locks, b.sessionHandler, b.raidHandler)

	b.registerHandlers()
	b.session.AddHandler(b.onReady)
	b.session.AddHandler(b.onInteraction)

	return b, nil
}

// registerHandlers builds the command routes with their middleware.
func (b *Bot) registerHandlers() {
	base := []Middleware{
		RecoveryMiddleware(denyEphemeral),
		LoggingMiddleware(),
		WhitelistMiddleware(b.cfg, denyEphemeral),
	}
	route := func(h HandlerFunc, extra ...Middleware) HandlerFunc {
		return Chain(h, append(append([]Middleware{}, base...), extra...)...)
	}

	b.commands = map[string]HandlerFunc{
		// Account handlers
		"balance": route(b.accountHandler.HandleBalance),
		"daily":   route(b.accountHandler.HandleDaily),
		"profile": route(b.accountHandler.HandleProfile),
		"history": route(b.accountHandler.HandleHistory),

		// Transfer handler
		"give": route(b.transferHandler.HandleGive),

		// Ranking handlers
		"top":      route(b.rankingHandler.HandleTop),
		"dailytop": route(b.rankingHandler.HandleDailyTop),

		// Shop handlers
		"shop":      route(b.shopHandler.HandleShop),
		"buy":       route(b.shopHandler.HandleBuy),
		"inventory": route(b.shopHandler.HandleInventory),
		"use":       route(b.shopHandler.HandleUse),

		// Raid handlers
		"boss":   route(b.raidHandler.HandleBoss),
		"attack": route(b.raidHandler.HandleAttack),

		"games": route(b.gameHandler.HandleGames),

		// Admin handler (with admin middleware)
		"admin": route(b.adminHandler.HandleAdmin, AdminMiddleware(b.cfg, denyEphemeral)),
	}

	for _, g := range b.registry.List() {
		b.commands[g.Command()] = route(b.gameHandler.HandlePlay)
	}
	for _, d := range b.registry.Sessions() {
		b.commands[d.Kind] = route(b.sessionHandler.HandleOpen)
	}

	b.component = route(b.handleComponent)
}

// onInteraction routes slash commands by name and components by custom id.
func (b *Bot) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		h, ok := b.commands[i.ApplicationCommandData().Name]
		if !ok {
			log.Warn().Str("command", i.ApplicationCommandData().Name).Msg("Unrouted command")
			return
		}
		h(s, i)
	case discordgo.InteractionMessageComponent:
		b.component(s, i)
	}
}

// handleComponent routes session, replay and raid buttons.
func (b *Bot) handleComponent(s *discordgo.Session, i *discordgo.InteractionCreate) {
	id, err := handler.ParseCustomID(i.MessageComponentData().CustomID)
	if err != nil {
		log.Debug().Err(err).Msg("Unrecognized component")
		denyEphemeral(s, i, "This button has expired.")
		return
	}

	if id.IsRaid() {
		b.raidHandler.HandleAttack(s, i)
		return
	}
	b.sessionHandler.HandleComponent(s, i, id)
}

// onReady registers the slash commands once the gateway is up.
func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	log.Info().
		Str("user", r.User.Username).
		Str("user_id", r.User.ID).
		Int("guilds", len(r.Guilds)).
		Msg("Discord bot logged in")

	appID := b.cfg.Bot.AppID
	if appID == "" {
		appID = r.User.ID
	}
	cmds, err := s.ApplicationCommandBulkOverwrite(appID, b.cfg.Bot.DevGuildID, Commands(b.registry))
	if err != nil {
		log.Error().Err(err).Msg("Failed to register slash commands")
		return
	}
	log.Info().Int("commands", len(cmds)).Str("guild_id", b.cfg.Bot.DevGuildID).Msg("Slash commands registered")
}

// Start opens the gateway connection.
func (b *Bot) Start() error {
	log.Info().Msg("Starting bot...")
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open discord connection: %w", err)
	}
	return nil
}

// Stop closes the gateway connection.
func (b *Bot) Stop() {
	log.Info().Msg("Stopping bot...")
	if err := b.session.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close discord connection")
	}
}
