package roles

import (
	"context"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"

	"donorhub/internal/session"
	"donorhub/pkg/platform/sentinel"
)

const defaultAdminSetKey = "donorhub:roles:administrators"

// RedisStore keeps administrator membership in a Redis set so every instance
// shares it.
type RedisStore struct {
	client *redis.Client
	key    string
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithSetKey overrides the Redis key holding the administrator set.
func WithSetKey(key string) RedisOption {
	return func(s *RedisStore) {
		if key != "" {
			s.key = key
		}
	}
}

func NewRedis(client *redis.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{client: client, key: defaultAdminSetKey}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *RedisStore) Role(ctx context.Context, identityID string) (session.Role, error) {
	identityID, err := normalize(identityID)
	if err != nil {
		return session.RoleNone, err
	}
	isAdmin, err := s.client.SIsMember(ctx, s.key, identityID).Result()
	if err != nil {
		return session.RoleNone, fmt.Errorf("check administrator membership: %w: %w", sentinel.ErrUnavailable, err)
	}
	if isAdmin {
		return session.RoleAdministrator, nil
	}
	return session.RoleOrdinary, nil
}

func (s *RedisStore) Grant(ctx context.Context, identityID string) error {
	identityID, err := normalize(identityID)
	if err != nil {
		return err
	}
	if err := s.client.SAdd(ctx, s.key, identityID).Err(); err != nil {
		return fmt.Errorf("grant administrator: %w: %w", sentinel.ErrUnavailable, err)
	}
	return nil
}

func (s *RedisStore) Revoke(ctx context.Context, identityID string) error {
	identityID, err := normalize(identityID)
	if err != nil {
		return err
	}
	if err := s.client.SRem(ctx, s.key, identityID).Err(); err != nil {
		return fmt.Errorf("revoke administrator: %w: %w", sentinel.ErrUnavailable, err)
	}
	return nil
}

func (s *RedisStore) Administrators(ctx context.Context) ([]string, error) {
	members, err := s.client.SMembers(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("list administrators: %w: %w", sentinel.ErrUnavailable, err)
	}
	sort.Strings(members)
	return members, nil
}
