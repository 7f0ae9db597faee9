package groupctx

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// KeyCookie names the cookie holding the browser's random key into Redis.
const KeyCookie = "groupSel"

const redisKeyPrefix = "bandmanager:groupsel:"

// RedisStore keeps the selection server-side in a Redis hash with fields
// groupId and userRole. The browser only holds a random key.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	opts   CookieOptions
}

// NewRedisStore returns a store writing hashes that expire after ttl.
func NewRedisStore(client *redis.Client, ttl time.Duration, opts CookieOptions) *RedisStore {
	if opts.MaxAge == 0 {
		opts.MaxAge = ttl
	}
	return &RedisStore{client: client, ttl: ttl, opts: opts}
}

func redisKey(browserKey string) string {
	return redisKeyPrefix + browserKey
}

func browserKey(r *http.Request) (string, bool) {
	c, err := r.Cookie(KeyCookie)
	if err != nil {
		return "", false
	}
	if _, err := uuid.Parse(c.Value); err != nil {
		return "", false
	}
	return c.Value, true
}

// Load reads the hash for the browser's key.
func (s *RedisStore) Load(r *http.Request) (Selection, error) {
	key, ok := browserKey(r)
	if !ok {
		return Selection{}, nil
	}

	vals, err := s.client.HGetAll(r.Context(), redisKey(key)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return Selection{}, fmt.Errorf("load group selection: %w", err)
	}
	return parseSelection(vals["groupId"], vals["userRole"]), nil
}

// Save writes both fields in one transaction and refreshes the key cookie.
func (s *RedisStore) Save(w http.ResponseWriter, r *http.Request, sel Selection) error {
	if sel.Empty() {
		return s.Clear(w, r)
	}

	key, ok := browserKey(r)
	if !ok {
		key = uuid.NewString()
	}
	ctx := r.Context()
	rk := redisKey(key)

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, rk,
		"groupId", strconv.FormatInt(*sel.GroupID, 10),
		"userRole", string(sel.Role),
	)
	if s.ttl > 0 {
		pipe.Expire(ctx, rk, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save group selection: %w", err)
	}

	http.SetCookie(w, s.opts.cookie(KeyCookie, key, s.opts.maxAgeSeconds()))
	return nil
}

// Clear deletes the hash and expires the key cookie.
func (s *RedisStore) Clear(w http.ResponseWriter, r *http.Request) error {
	key, ok := browserKey(r)
	if ok {
		if err := s.client.Del(r.Context(), redisKey(key)).Err(); err != nil {
			return fmt.Errorf("clear group selection: %w", err)
		}
	}
	http.SetCookie(w, s.opts.cookie(KeyCookie, "", -1))
	return nil
}
