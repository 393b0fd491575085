package notify

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jsrothwell/job-monitor-sub000/internal/model"
)

// DefaultCooldownTTL is how long a fingerprint stays muted after an alert.
const DefaultCooldownTTL = 7 * 24 * time.Hour

// Target is the downstream alert channel a Cooldown wraps.
type Target interface {
	NotifyNewPostings(ctx context.Context, company model.Company, postings []model.JobPosting) error
}

// Cooldown suppresses repeat alerts for fingerprints already notified
// within the TTL window. Postings can legitimately show up as NEW again
// (page glitches, a posting re-listed after removal); the cooldown keeps
// those from spamming the channel.
type Cooldown struct {
	rdb    *redis.Client
	target Target
	ttl    time.Duration
}

// NewCooldown wraps target with a Redis-backed mute window. ttl <= 0
// selects DefaultCooldownTTL.
func NewCooldown(rdb *redis.Client, target Target, ttl time.Duration) *Cooldown {
	if ttl <= 0 {
		ttl = DefaultCooldownTTL
	}
	return &Cooldown{rdb: rdb, target: target, ttl: ttl}
}

// NotifyNewPostings forwards only postings whose fingerprint has not been
// alerted within the TTL, then records the ones it sent. Fingerprints are
// recorded only after the downstream send succeeds, so a failed send
// leaves its postings eligible for the next run. Redis trouble fails
// open: better a duplicate alert than a silent drop.
func (c *Cooldown) NotifyNewPostings(ctx context.Context, company model.Company, postings []model.JobPosting) error {
	fresh := postings[:0:0]
	for _, p := range postings {
		n, err := c.rdb.Exists(ctx, c.key(company.ID, p.Fingerprint)).Result()
		if err != nil {
			log.Printf("[notify] Cooldown check failed (%v) — alerting anyway", err)
			fresh = append(fresh, p)
			continue
		}
		if n == 0 {
			fresh = append(fresh, p)
		}
	}

	if len(fresh) == 0 {
		return nil
	}
	if err := c.target.NotifyNewPostings(ctx, company, fresh); err != nil {
		return err
	}
	for _, p := range fresh {
		if err := c.rdb.SetNX(ctx, c.key(company.ID, p.Fingerprint), 1, c.ttl).Err(); err != nil {
			log.Printf("[notify] Cooldown record failed for %s: %v", p.Fingerprint, err)
		}
	}
	return nil
}

func (c *Cooldown) key(companyID, fingerprint string) string {
	return fmt.Sprintf("jobmonitor:alerted:%s:%s", companyID, fingerprint)
}
