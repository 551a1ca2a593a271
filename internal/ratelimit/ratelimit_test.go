package ratelimit

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"donorhub/pkg/platform/middleware/metadata"
	"donorhub/pkg/platform/sentinel"
	"donorhub/pkg/requestcontext"
)

const (
	testLimit  = 3
	testWindow = time.Minute
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// StoreSuite runs the same sliding-window behaviour against every Store.
type StoreSuite struct {
	suite.Suite
	clock    *fakeClock
	newStore func(s *StoreSuite) Store
	store    Store
	ctx      context.Context
}

func TestInMemoryStore(t *testing.T) {
	suite.Run(t, &StoreSuite{newStore: func(s *StoreSuite) Store {
		store := NewInMemory()
		store.now = s.clock.Now
		return store
	}})
}

func TestRedisStore(t *testing.T) {
	suite.Run(t, &StoreSuite{newStore: func(s *StoreSuite) Store {
		mr := miniredis.RunT(s.T())
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		s.T().Cleanup(func() { _ = client.Close() })
		store := NewRedis(client)
		store.now = s.clock.Now
		return store
	}})
}

func (s *StoreSuite) SetupTest() {
	s.clock = &fakeClock{now: time.Date(2026, 6, 14, 9, 0, 0, 0, time.UTC)}
	s.store = s.newStore(s)
	s.ctx = context.Background()
}

func (s *StoreSuite) TestAllowsUpToLimit() {
	for i := range testLimit {
		res, err := s.store.Allow(s.ctx, "signin:192.0.2.1", testLimit, testWindow)
		s.Require().NoError(err)
		s.True(res.Allowed)
		s.Equal(testLimit, res.Limit)
		s.Equal(testLimit-i-1, res.Remaining)
	}

	res, err := s.store.Allow(s.ctx, "signin:192.0.2.1", testLimit, testWindow)
	s.Require().NoError(err)
	s.False(res.Allowed)
	s.Zero(res.Remaining)
	s.Equal(s.clock.now.Add(testWindow).Unix(), res.ResetAt.Unix())
}

func (s *StoreSuite) TestKeysAreIndependent() {
	for range testLimit {
		_, err := s.store.Allow(s.ctx, "signin:192.0.2.1", testLimit, testWindow)
		s.Require().NoError(err)
	}
	res, err := s.store.Allow(s.ctx, "signin:192.0.2.2", testLimit, testWindow)
	s.Require().NoError(err)
	s.True(res.Allowed)
}

func (s *StoreSuite) TestWindowSlides() {
	for range testLimit {
		_, err := s.store.Allow(s.ctx, "roles:192.0.2.1", testLimit, testWindow)
		s.Require().NoError(err)
		s.clock.Advance(10 * time.Second)
	}

	res, err := s.store.Allow(s.ctx, "roles:192.0.2.1", testLimit, testWindow)
	s.Require().NoError(err)
	s.False(res.Allowed, "all requests are still inside the window")

	// The first request (t=0) falls out once a full window has passed.
	s.clock.Advance(31 * time.Second)
	res, err = s.store.Allow(s.ctx, "roles:192.0.2.1", testLimit, testWindow)
	s.Require().NoError(err)
	s.True(res.Allowed)
	s.Zero(res.Remaining)
}

func TestRedisStore_Unavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	_, err := NewRedis(client).Allow(context.Background(), "signin:x", testLimit, testWindow)
	assert.ErrorIs(t, err, sentinel.ErrUnavailable)
}

type failingStore struct{}

func (failingStore) Allow(context.Context, string, int, time.Duration) (*Result, error) {
	return nil, sentinel.ErrUnavailable
}

func TestMiddleware_Limit(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusSeeOther)
	})
	request := func(ip string) *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		return req.WithContext(requestcontext.WithClientMetadata(req.Context(), ip, "test"))
	}

	t.Run("throttles one client", func(t *testing.T) {
		h := NewMiddleware(NewInMemory(), logger).Limit("signin", Policy{Limit: 2, Window: time.Minute})(ok)

		for range 2 {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, request("192.0.2.1"))
			require.Equal(t, http.StatusSeeOther, rec.Code)
		}

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, request("192.0.2.1"))
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Contains(t, rec.Body.String(), "rate_limited")
		assert.NotEmpty(t, rec.Header().Get("Retry-After"))
		assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

		rec = httptest.NewRecorder()
		h.ServeHTTP(rec, request("192.0.2.9"))
		assert.Equal(t, http.StatusSeeOther, rec.Code, "other clients are unaffected")
	})

	t.Run("fails open when the store is down", func(t *testing.T) {
		h := NewMiddleware(failingStore{}, logger).Limit("signin", Policy{Limit: 1, Window: time.Minute})(ok)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, request("192.0.2.1"))
		assert.Equal(t, http.StatusSeeOther, rec.Code)
	})
}

func TestMiddleware_ForwardedForCannotDodgeLimit(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusSeeOther)
	})
	trusted, err := metadata.ParseTrustedProxies([]string{"10.0.0.0/8"})
	require.NoError(t, err)
	limit := NewMiddleware(NewInMemory(), logger).Limit("signin", Policy{Limit: 2, Window: time.Minute})
	h := metadata.ClientMetadata(trusted)(limit(ok))

	post := func(remote, forwardedFor string) int {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = remote
		req.Header.Set("X-Forwarded-For", forwardedFor)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	t.Run("untrusted peer rotating the header", func(t *testing.T) {
		allowed := 0
		for i := range 50 {
			if post("203.0.113.9:4000", fmt.Sprintf("198.51.100.%d", i)) != http.StatusTooManyRequests {
				allowed++
			}
		}
		assert.Equal(t, 2, allowed)
	})

	t.Run("client behind a trusted proxy prepending hops", func(t *testing.T) {
		allowed := 0
		for i := range 10 {
			if post("10.0.0.2:4000", fmt.Sprintf("198.51.100.%d, 192.0.2.44", i)) != http.StatusTooManyRequests {
				allowed++
			}
		}
		assert.Equal(t, 2, allowed)
	})
}
