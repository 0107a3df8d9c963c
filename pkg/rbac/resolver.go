package rbac

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/bookcourier/bookcourier/pkg/observability"
	"github.com/bookcourier/bookcourier/pkg/storage"
)

// Resolver maps an authenticated email to its stored role.
type Resolver interface {
	Resolve(ctx context.Context, email string) (Role, error)
}

// StoreResolver resolves roles straight from the user store. An email with
// no record resolves to RoleUser; storage faults propagate unchanged and
// are never retried here.
type StoreResolver struct {
	users storage.UserStore
}

// NewStoreResolver creates a store-backed resolver.
func NewStoreResolver(users storage.UserStore) *StoreResolver {
	return &StoreResolver{users: users}
}

// Resolve implements Resolver.
func (r *StoreResolver) Resolve(ctx context.Context, email string) (Role, error) {
	user, err := r.users.GetUserByEmail(ctx, email)
	if errors.Is(err, storage.ErrNotFound) {
		return RoleUser, nil
	}
	if err != nil {
		return "", fmt.Errorf("resolve role for %s: %w", email, err)
	}
	return ParseRole(user.Role), nil
}

type cachedRole struct {
	role    Role
	expires time.Time
}

// CachedResolver layers an in-process LRU and an optional Redis cache over
// another resolver. Cache failures fall through to the inner resolver; a
// cache can make a lookup cheaper, never make it fail.
type CachedResolver struct {
	next   Resolver
	l1     *lru.Cache[string, cachedRole]
	redis  *redis.Client
	ttl    time.Duration
	logger *observability.Logger
}

// NewCachedResolver wraps next with caching. redisClient may be nil, in
// which case only the in-process cache is used.
func NewCachedResolver(next Resolver, redisClient *redis.Client, size int, ttl time.Duration, logger *observability.Logger) (*CachedResolver, error) {
	if size <= 0 {
		size = 1024
	}
	l1, err := lru.New[string, cachedRole](size)
	if err != nil {
		return nil, fmt.Errorf("role cache: %w", err)
	}
	return &CachedResolver{
		next:   next,
		l1:     l1,
		redis:  redisClient,
		ttl:    ttl,
		logger: logger,
	}, nil
}

// Resolve implements Resolver with L1 then L2 lookup.
func (r *CachedResolver) Resolve(ctx context.Context, email string) (Role, error) {
	if entry, ok := r.l1.Get(email); ok && time.Now().Before(entry.expires) {
		return entry.role, nil
	}

	if r.redis != nil {
		val, err := r.redis.Get(ctx, roleCacheKey(email)).Result()
		if err == nil {
			role := ParseRole(val)
			r.l1.Add(email, cachedRole{role: role, expires: time.Now().Add(r.ttl)})
			return role, nil
		}
		if err != redis.Nil {
			r.logger.WithError(err).Warn("role cache read failed")
		}
	}

	role, err := r.next.Resolve(ctx, email)
	if err != nil {
		return "", err
	}

	r.l1.Add(email, cachedRole{role: role, expires: time.Now().Add(r.ttl)})
	if r.redis != nil {
		if err := r.redis.Set(ctx, roleCacheKey(email), string(role), r.ttl).Err(); err != nil {
			r.logger.WithError(err).Warn("role cache write failed")
		}
	}
	return role, nil
}

// Invalidate drops any cached role for email. Called after role promotions
// so the new role takes effect without waiting out the TTL.
func (r *CachedResolver) Invalidate(ctx context.Context, email string) {
	r.l1.Remove(email)
	if r.redis != nil {
		if err := r.redis.Del(ctx, roleCacheKey(email)).Err(); err != nil {
			r.logger.WithError(err).Warn("role cache invalidation failed")
		}
	}
}

func roleCacheKey(email string) string {
	return "role:" + email
}
