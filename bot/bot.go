package bot

import (
	"log"
	"sync/atomic"
	"timer-bot/commands"
	"timer-bot/model"
	"timer-bot/scanner"
	"timer-bot/streaks"
	"timer-bot/timers"
	"timer-bot/utils"
	"timer-bot/utils/cache"

	"github.com/bwmarrin/discordgo"
	"github.com/jmoiron/sqlx"
)

type Bot struct {
	Session            *discordgo.Session
	DB                 *sqlx.DB
	Timers             *timers.Service
	Ledger             *streaks.Ledger
	Members            *cache.MemberCache
	Effects            *scanner.Effects
	Reconciler         *scanner.Reconciler
	RegisteredCommands []*discordgo.ApplicationCommand
	CommandHandlers    map[string]func(s *discordgo.Session, i *discordgo.InteractionCreate)

	config    atomic.Value // *model.Config
	scheduler *Scheduler
}

func New(cfg *model.Config, db *sqlx.DB) (*Bot, error) {
	dg, err := discordgo.New("Bot " + cfg.BotToken)
	if err != nil {
		return nil, err
	}
	dg.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMembers

	locks := utils.NewKeyedLock()
	b := &Bot{
		Session: dg,
		DB:      db,
		Timers:  timers.NewService(db, locks),
		Ledger:  streaks.NewLedger(db),
		Members: cache.New(dg, cfg.MemberCacheTTL),
	}
	b.config.Store(cfg)
	b.scheduler = NewScheduler(b)
	return b, nil
}

func (b *Bot) GetConfig() *model.Config {
	return b.config.Load().(*model.Config)
}

// initEngine wires the reconciliation engine. Called after the session
// opens because the hierarchy check needs the bot's own user ID.
func (b *Bot) initEngine() {
	cfg := b.GetConfig()
	b.Effects = &scanner.Effects{
		Session:   b.Session,
		Notifier:  &utils.EmbedNotifier{Session: b.Session},
		DB:        b.DB,
		BotUserID: b.Session.State.User.ID,
	}
	b.Reconciler = scanner.NewReconciler(
		b.DB, b.Effects, b.Timers.Locks(), cfg.TickInterval,
		// Collaborator hook: keep the member mirror from going stale.
		func(guildID string) error {
			b.Members.Prune()
			return nil
		},
	)
}

// RefreshCommands re-registers the slash command set for one guild.
func (b *Bot) RefreshCommands(guildID string) {
	cmds := commands.GenerateCommands()
	log.Printf("Registering %d commands for guild %s...", len(cmds), guildID)
	registeredCmds, err := b.Session.ApplicationCommandBulkOverwrite(b.Session.State.User.ID, guildID, cmds)
	if err != nil {
		log.Printf("cannot update commands for guild '%s': %v", guildID, err)
		return
	}
	b.RegisteredCommands = append(b.RegisteredCommands, registeredCmds...)
}

func (b *Bot) Close() {
	log.Println("Gracefully shutting down.")
	b.scheduler.Stop()
	if err := b.Session.Close(); err != nil {
		log.Printf("Error closing session: %v", err)
	}
}
