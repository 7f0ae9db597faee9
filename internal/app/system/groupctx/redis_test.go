package groupctx_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dalemusser/bandmanager/internal/app/system/groupctx"
	"github.com/dalemusser/bandmanager/internal/app/system/roles"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedisStore(t *testing.T) (*groupctx.RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)

	opts, err := redis.ParseURL("redis://" + mr.Addr())
	require.NoError(t, err)
	client := redis.NewClient(opts)

	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})

	return groupctx.NewRedisStore(client, time.Hour, groupctx.CookieOptions{}), mr
}

func browserKeyFrom(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == groupctx.KeyCookie && c.MaxAge >= 0 {
			return c.Value
		}
	}
	t.Fatal("no key cookie set")
	return ""
}

func TestRedisStore_RoundTrip(t *testing.T) {
	store, mr := setupRedisStore(t)

	gc, rec := contextFor(t, store, httptest.NewRequest("POST", "/groups/5/select", nil))
	require.NoError(t, gc.SelectGroup(5, roles.Manager))

	key := "bandmanager:groupsel:" + browserKeyFrom(t, rec)
	assert.Equal(t, "5", mr.HGet(key, "groupId"))
	assert.Equal(t, "manager", mr.HGet(key, "userRole"))
	assert.True(t, mr.TTL(key) > 0, "hash should expire")

	next, _ := contextFor(t, store, carry(rec))
	id, ok := next.GroupID()
	assert.True(t, ok)
	assert.Equal(t, int64(5), id)
	role, ok := next.Role()
	assert.True(t, ok)
	assert.Equal(t, roles.Manager, role)
}

func TestRedisStore_ClearDeletesHash(t *testing.T) {
	store, mr := setupRedisStore(t)

	gc, rec := contextFor(t, store, httptest.NewRequest("POST", "/", nil))
	require.NoError(t, gc.SelectGroup(2, roles.Member))
	key := "bandmanager:groupsel:" + browserKeyFrom(t, rec)
	require.True(t, mr.Exists(key))

	next, _ := contextFor(t, store, carry(rec))
	require.NoError(t, next.ClearGroup())

	assert.False(t, mr.Exists(key), "hash should be gone after ClearGroup")
	assert.True(t, next.Selection().Empty())
}

func TestRedisStore_UnknownKeyIsNoSelection(t *testing.T) {
	store, _ := setupRedisStore(t)

	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(&http.Cookie{Name: groupctx.KeyCookie, Value: "not-a-uuid"})
	gc, _ := contextFor(t, store, req)
	assert.True(t, gc.Selection().Empty())
}

func TestRedisStore_SetRoleWithoutGroup(t *testing.T) {
	store, mr := setupRedisStore(t)

	gc, _ := contextFor(t, store, httptest.NewRequest("POST", "/", nil))
	assert.ErrorIs(t, gc.SetRole(roles.Manager), groupctx.ErrNoGroupSelected)
	assert.Empty(t, mr.Keys())
}

func TestRedisStore_LoadErrorTreatedAsNone(t *testing.T) {
	store, mr := setupRedisStore(t)

	gc, rec := contextFor(t, store, httptest.NewRequest("POST", "/", nil))
	require.NoError(t, gc.SelectGroup(5, roles.Manager))

	mr.Close()
	next, _ := contextFor(t, store, carry(rec))
	assert.True(t, next.Selection().Empty())
}
