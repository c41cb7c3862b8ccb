package bot

import (
	"log"
	"sync"
	"timer-bot/tasks"

	"github.com/robfig/cron/v3"
)

// Scheduler owns the background work: the reconciliation loop and the
// daily streak report.
type Scheduler struct {
	bot        *Bot
	done       chan struct{}
	wg         sync.WaitGroup
	reportCron *cron.Cron
}

func NewScheduler(bot *Bot) *Scheduler {
	return &Scheduler{
		bot:  bot,
		done: make(chan struct{}),
	}
}

// Start begins all background tasks. Must run after the session opens.
func (s *Scheduler) Start() {
	s.wg.Add(1)
	go s.runReconciler()

	reportCron, err := tasks.StartDailyReports(s.bot.Session, s.bot.Ledger, s.bot.GetConfig())
	if err != nil {
		log.Printf("Failed to start daily reports: %v", err)
	} else {
		s.reportCron = reportCron
	}
}

// Stop terminates all background tasks gracefully.
func (s *Scheduler) Stop() {
	log.Println("Stopping scheduler...")
	close(s.done)
	if s.reportCron != nil {
		s.reportCron.Stop()
	}
	s.wg.Wait()
	log.Println("Scheduler stopped.")
}

func (s *Scheduler) runReconciler() {
	defer s.wg.Done()
	log.Printf("Starting reconciliation loop (every %s)", s.bot.Reconciler.Interval)
	s.bot.Reconciler.Run(s.done)
}
