package cache

import (
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
)

// MemberCache is an explicit, per-process mirror of member lookups with
// a TTL refresh policy. Collaborators that only need display data read
// through it instead of hitting the directory on every render.
type MemberCache struct {
	session *discordgo.Session
	ttl     time.Duration

	mu      sync.RWMutex
	entries map[string]memberEntry
}

type memberEntry struct {
	member    *discordgo.Member
	fetchedAt time.Time
}

func New(session *discordgo.Session, ttl time.Duration) *MemberCache {
	return &MemberCache{
		session: session,
		ttl:     ttl,
		entries: make(map[string]memberEntry),
	}
}

// Member returns the cached member, refreshing it once the TTL lapses.
func (c *MemberCache) Member(guildID, userID string) (*discordgo.Member, error) {
	key := guildID + ":" + userID

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if ok && time.Since(entry.fetchedAt) < c.ttl {
		return entry.member, nil
	}

	member, err := c.session.GuildMember(guildID, userID)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[key] = memberEntry{member: member, fetchedAt: time.Now()}
	c.mu.Unlock()
	return member, nil
}

// Invalidate drops one cached member.
func (c *MemberCache) Invalidate(guildID, userID string) {
	c.mu.Lock()
	delete(c.entries, guildID+":"+userID)
	c.mu.Unlock()
}

// Prune drops every entry older than the TTL. Run periodically from the
// scheduler so departed members do not linger.
func (c *MemberCache) Prune() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, entry := range c.entries {
		if time.Since(entry.fetchedAt) >= c.ttl {
			delete(c.entries, key)
		}
	}
}
