package sweep

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Lease is a redis SET NX PX lease that keeps overlapping sweep ticks, or
// two scheduler processes, from double-running the same sweep. A nil
// *Lease always grants, for single-process deployments without redis.
type Lease struct {
	client *redis.Client
	ttl    time.Duration
	holder string
}

// NewLease creates a lease manager with the given time-to-live.
func NewLease(client *redis.Client, ttl time.Duration) *Lease {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Lease{client: client, ttl: ttl, holder: uuid.NewString()}
}

// Acquire attempts to take the named lease. It reports false when another
// holder has it.
func (l *Lease) Acquire(ctx context.Context, name string) (bool, error) {
	if l == nil {
		return true, nil
	}
	ok, err := l.client.SetNX(ctx, l.key(name), l.holder, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("sweep: acquire lease %q: %w", name, err)
	}
	return ok, nil
}

// Release gives the lease back early. Only the current holder's value is
// removed, so an expired-and-reacquired lease is left alone.
func (l *Lease) Release(ctx context.Context, name string) error {
	if l == nil {
		return nil
	}
	val, err := l.client.Get(ctx, l.key(name)).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("sweep: release lease %q: %w", name, err)
	}
	if val != l.holder {
		return nil
	}
	if err := l.client.Del(ctx, l.key(name)).Err(); err != nil {
		return fmt.Errorf("sweep: release lease %q: %w", name, err)
	}
	return nil
}

func (l *Lease) key(name string) string {
	return "sweep:lease:" + name
}
