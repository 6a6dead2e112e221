package coordination

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/poyrazK/zoneplane/internal/infrastructure/metrics"
)

const memberKeyPrefix = "zoneplane:group:"

// RedisCoordinator tracks group membership through heartbeat keys with a
// TTL. Every member registers itself, refreshes its key at a third of the
// TTL, and polls the key space for the live member set. A membership
// change fires the OnChange callbacks with the full member list; a member
// that stops heartbeating ages out within one TTL.
type RedisCoordinator struct {
	client   *redis.Client
	group    string
	memberID string
	ttl      time.Duration
	logger   *slog.Logger

	mu        sync.Mutex
	callbacks []func(members []string)
	last      []string
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewRedisCoordinator creates a coordinator for the named group.
func NewRedisCoordinator(client *redis.Client, group, memberID string, ttl time.Duration, logger *slog.Logger) *RedisCoordinator {
	if logger == nil {
		logger = slog.Default()
	}
	if ttl <= 0 {
		ttl = 15 * time.Second
	}
	return &RedisCoordinator{
		client:   client,
		group:    group,
		memberID: memberID,
		ttl:      ttl,
		logger:   logger,
	}
}

// MemberID returns this instance's member id.
func (c *RedisCoordinator) MemberID() string {
	return c.memberID
}

// OnChange registers a callback fired with the sorted member list on
// every membership change, including the initial join.
func (c *RedisCoordinator) OnChange(fn func(members []string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.callbacks = append(c.callbacks, fn)
}

func (c *RedisCoordinator) key() string {
	return memberKeyPrefix + c.group + ":" + c.memberID
}

// Start joins the group and begins the heartbeat/poll loop. The first
// membership snapshot is taken synchronously so callers observe an
// assigned range before Start returns.
func (c *RedisCoordinator) Start(ctx context.Context) error {
	if err := c.client.Set(ctx, c.key(), time.Now().UTC().Format(time.RFC3339), c.ttl).Err(); err != nil {
		return err
	}
	c.poll(ctx)

	loopCtx, cancel := context.WithCancel(context.Background())
	c.mu.Lock()
	c.cancel = cancel
	c.done = make(chan struct{})
	done := c.done
	c.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(c.ttl / 3)
		defer ticker.Stop()
		for {
			select {
			case <-loopCtx.Done():
				return
			case <-ticker.C:
				if err := c.client.Set(loopCtx, c.key(), time.Now().UTC().Format(time.RFC3339), c.ttl).Err(); err != nil {
					c.logger.Warn("failed to refresh membership heartbeat", "error", err)
				}
				c.poll(loopCtx)
			}
		}
	}()
	return nil
}

// Stop leaves the group and stops the heartbeat loop.
func (c *RedisCoordinator) Stop(ctx context.Context) error {
	c.mu.Lock()
	cancel := c.cancel
	done := c.done
	c.mu.Unlock()
	if cancel != nil {
		cancel()
		<-done
	}
	return c.client.Del(ctx, c.key()).Err()
}

// poll scans the group's key space and fires callbacks if the member set
// changed since the last poll.
func (c *RedisCoordinator) poll(ctx context.Context) {
	pattern := memberKeyPrefix + c.group + ":*"
	var members []string
	iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		members = append(members, iter.Val()[len(memberKeyPrefix+c.group+":"):])
	}
	if err := iter.Err(); err != nil {
		c.logger.Warn("failed to scan group membership", "error", err)
		return
	}
	members = uniqueMembers(members)

	c.mu.Lock()
	changed := !equalMembers(c.last, members)
	if changed {
		c.last = append([]string(nil), members...)
	}
	callbacks := c.callbacks
	c.mu.Unlock()

	if !changed {
		return
	}
	metrics.PartitionMembers.Set(float64(len(members)))
	c.logger.Info("group membership changed", "group", c.group, "members", len(members))
	for _, fn := range callbacks {
		fn(members)
	}
}

// uniqueMembers drops repeated ids. SCAN may return the same key more
// than once; a doubled member would skew the partition widths and leave
// part of the shard space owned by nobody.
func uniqueMembers(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	var out []string
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func equalMembers(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]bool, len(a))
	for _, m := range a {
		seen[m] = true
	}
	for _, m := range b {
		if !seen[m] {
			return false
		}
	}
	return true
}
