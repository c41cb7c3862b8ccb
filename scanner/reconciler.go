package scanner

import (
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"
	"timer-bot/model"
	"timer-bot/timers"
	"timer-bot/utils"
	"timer-bot/utils/database"

	"github.com/jmoiron/sqlx"
)

// guildWorkerLimit bounds how many guilds one tick processes concurrently.
const guildWorkerLimit = 5

// GuildHook is an opaque per-guild collaborator invoked after a guild's
// grants are processed (scheduled reports, purges, queued notifications).
// Hook failures are logged and never affect grant processing.
type GuildHook func(guildID string) error

// Reconciler drives the grant state machine over the full population on
// a fixed interval. Grants within a guild are processed sequentially;
// guilds run concurrently behind a small worker bound.
type Reconciler struct {
	db      *sqlx.DB
	effects *Effects
	locks   *utils.KeyedLock
	hooks   []GuildHook

	Interval time.Duration
	Now      func() time.Time

	inFlight atomic.Bool
}

func NewReconciler(db *sqlx.DB, effects *Effects, locks *utils.KeyedLock, interval time.Duration, hooks ...GuildHook) *Reconciler {
	return &Reconciler{
		db:       db,
		effects:  effects,
		locks:    locks,
		hooks:    hooks,
		Interval: interval,
		Now:      time.Now,
	}
}

// Run ticks until done is closed.
func (r *Reconciler) Run(done <-chan struct{}) {
	ticker := time.NewTicker(r.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.Tick(r.Now())
		case <-done:
			return
		}
	}
}

// Tick runs one reconciliation pass. An overlapping tick is dropped:
// passes never run concurrently.
func (r *Reconciler) Tick(now time.Time) {
	if !r.inFlight.CompareAndSwap(false, true) {
		log.Println("Previous reconciliation pass still running, skipping tick")
		return
	}
	defer r.inFlight.Store(false)

	grants, err := database.ListAllGrants(r.db)
	if err != nil {
		log.Printf("Error snapshotting grants: %v", err)
		return
	}

	byGuild := make(map[string][]model.TimedGrant)
	for _, g := range grants {
		byGuild[g.GuildID] = append(byGuild[g.GuildID], g)
	}

	var wg sync.WaitGroup
	guard := make(chan struct{}, guildWorkerLimit)
	for guildID, guildGrants := range byGuild {
		wg.Add(1)
		guard <- struct{}{}

		go func(guildID string, guildGrants []model.TimedGrant) {
			defer func() {
				if p := recover(); p != nil {
					log.Printf("Panic while reconciling guild %s: %v", guildID, p)
				}
				<-guard
				wg.Done()
			}()
			r.reconcileGuild(guildID, guildGrants, now)
		}(guildID, guildGrants)
	}
	wg.Wait()
}

// reconcileGuild processes one guild: lapsed pauses are lifted first so
// a freshly resumed grant participates fully in the same tick, then the
// rest of the population goes through warn/expire evaluation. Per-grant
// failures are logged and retried naturally on the next tick.
func (r *Reconciler) reconcileGuild(guildID string, grants []model.TimedGrant, now time.Time) {
	swept := make(map[string]bool)
	for _, g := range grants {
		if g.Paused && g.PauseExpiresAt > 0 && g.PauseExpiresAt <= now.UnixMilli() {
			swept[g.Key()] = true
			if err := r.ProcessGrant(g.GuildID, g.UserID, g.RoleID, now); err != nil {
				log.Printf("Error processing grant %s: %v", g.Key(), err)
			}
		}
	}

	for _, g := range grants {
		if swept[g.Key()] {
			continue
		}
		if err := r.ProcessGrant(g.GuildID, g.UserID, g.RoleID, now); err != nil {
			log.Printf("Error processing grant %s: %v", g.Key(), err)
		}
	}

	for _, hook := range r.hooks {
		if err := hook(guildID); err != nil {
			log.Printf("Guild hook failed for %s: %v", guildID, err)
		}
	}
}

// ProcessGrant re-reads one grant under its key lock and applies the
// state machine's decision. The snapshot is never trusted: commands may
// have mutated the row since the tick started. Exported so command
// handlers can route a resume-expired grant through the same path.
func (r *Reconciler) ProcessGrant(guildID, userID, roleID string, now time.Time) error {
	unlock := r.locks.Lock(guildID + ":" + userID + ":" + roleID)
	defer unlock()

	grant, err := database.GetGrant(r.db, guildID, userID, roleID)
	if errors.Is(err, database.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	// Two rounds at most: an auto-resume makes the grant eligible for
	// warn/expire logic within the same tick.
	for range [2]struct{}{} {
		decision := timers.Evaluate(grant, now)
		switch decision.Kind {
		case timers.DecideNone:
			return nil
		case timers.DecideAutoResume:
			timers.ApplyAutoResume(&grant, now)
			if err := database.UpdateGrant(r.db, grant); err != nil {
				return err
			}
			// The update bumped the stored revision; re-read so the
			// second round's write passes the revision guard.
			grant, err = database.GetGrant(r.db, guildID, userID, roleID)
			if err != nil {
				return err
			}
			continue
		case timers.DecideWarn:
			return r.effects.ApplyWarnings(&grant, decision.WarnMinutes)
		case timers.DecideExpire:
			return r.expire(&grant, now)
		}
	}
	return nil
}

// expire resolves a spent countdown through the streak ledger.
func (r *Reconciler) expire(g *model.TimedGrant, now time.Time) error {
	rec, err := database.GetStreak(r.db, g.GuildID, g.UserID)
	if err != nil {
		return err
	}
	thresholds, err := database.ListThresholds(r.db, g.GuildID)
	if err != nil {
		return err
	}

	decision := timers.ResolveExpiry(rec, thresholds, now)
	switch decision.Kind {
	case timers.ExpirySave:
		return r.effects.ApplySave(g, rec, now)
	case timers.ExpiryDegrade:
		return r.effects.ApplyDegrade(g, rec, thresholds, decision.NewTier, now)
	case timers.ExpiryReset:
		return r.effects.Revoke(*g, true)
	default:
		return r.effects.Revoke(*g, false)
	}
}
