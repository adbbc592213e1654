package store

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	sserr "github.com/ahems/SportsLeague/pkg/errors"
	"github.com/ahems/SportsLeague/pkg/models"
)

type mockCommands struct {
	mock.Mock
}

func (m *mockCommands) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return m.Called(ctx, key, value, expiration).Error(0)
}

func (m *mockCommands) Get(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *mockCommands) MGet(ctx context.Context, keys ...string) ([]interface{}, error) {
	args := m.Called(ctx, keys)
	vals, _ := args.Get(0).([]interface{})
	return vals, args.Error(1)
}

func (m *mockCommands) Del(ctx context.Context, keys ...string) (int64, error) {
	args := m.Called(ctx, keys)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockCommands) SAdd(ctx context.Context, key string, members ...interface{}) (int64, error) {
	args := m.Called(ctx, key, members)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockCommands) SRem(ctx context.Context, key string, members ...interface{}) (int64, error) {
	args := m.Called(ctx, key, members)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockCommands) SMembers(ctx context.Context, key string) ([]string, error) {
	args := m.Called(ctx, key)
	ids, _ := args.Get(0).([]string)
	return ids, args.Error(1)
}

func (m *mockCommands) Health(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockCommands) Close() error {
	return m.Called().Error(0)
}

func newRedisStore(t *testing.T) (Store, *mockCommands) {
	t.Helper()
	cmds := &mockCommands{}
	t.Cleanup(func() { cmds.AssertExpectations(t) })
	return NewRedis(cmds, "league", WithLogger(discard())), cmds
}

var ctxArg = mock.Anything

func TestRedis_Keys(t *testing.T) {
	b := &redisBackend{prefix: "league"}
	assert.Equal(t, "league:doc:Cart:c1", b.docKey(models.PartitionCart, "c1"))
	assert.Equal(t, "league:idx:Cart", b.indexKey(models.PartitionCart))
}

func TestRedis_Get(t *testing.T) {
	s, cmds := newRedisStore(t)
	cmds.On("Get", ctxArg, "league:doc:Category:c1").
		Return(`{"id":"c1","CategoryId":"CAT-1","Name":"Balls"}`, nil)

	var c models.Category
	require.NoError(t, s.Get(context.Background(), models.PartitionCategory, "c1", &c))
	assert.Equal(t, "CAT-1", c.CategoryID)
}

func TestRedis_Get_NotFound(t *testing.T) {
	s, cmds := newRedisStore(t)
	cmds.On("Get", ctxArg, "league:doc:Cart:gone").
		Return("", sserr.New(sserr.CodeNotFoundResource, "redis: key not found"))

	var c models.Cart
	err := s.Get(context.Background(), models.PartitionCart, "gone", &c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Cart/gone")
	assert.True(t, sserr.IsNotFound(err))
}

func TestRedis_Get_Failure(t *testing.T) {
	s, cmds := newRedisStore(t)
	failure := sserr.New(sserr.CodeInternalDatabase, "redis: get failed")
	cmds.On("Get", ctxArg, "league:doc:Cart:c1").Return("", failure)

	var c models.Cart
	err := s.Get(context.Background(), models.PartitionCart, "c1", &c)
	assert.Equal(t, sserr.CodeInternalDatabase, sserr.GetCode(err))
}

func TestRedis_Upsert_WritesDocumentThenIndex(t *testing.T) {
	s, cmds := newRedisStore(t)
	set := cmds.On("Set", ctxArg, "league:doc:Order:o1", mock.MatchedBy(func(v interface{}) bool {
		body, ok := v.(string)
		return ok && strings.Contains(body, `"id":"o1"`)
	}), time.Duration(0)).Return(nil)
	cmds.On("SAdd", ctxArg, "league:idx:Order", []interface{}{"o1"}).
		Return(int64(1), nil).NotBefore(set)

	require.NoError(t, s.Upsert(context.Background(), models.PartitionOrder, "o1", &models.Order{ID: "o1"}))
}

func TestRedis_Upsert_SetFailureSkipsIndex(t *testing.T) {
	s, cmds := newRedisStore(t)
	cmds.On("Set", ctxArg, "league:doc:Cart:c1", mock.Anything, time.Duration(0)).
		Return(sserr.New(sserr.CodeTimeoutDatabase, "redis: set timed out"))

	err := s.Upsert(context.Background(), models.PartitionCart, "c1", &models.Cart{ID: "c1"})
	assert.True(t, sserr.IsTimeout(err))
	cmds.AssertNotCalled(t, "SAdd", mock.Anything, mock.Anything, mock.Anything)
}

func TestRedis_Query(t *testing.T) {
	s, cmds := newRedisStore(t)
	cmds.On("SMembers", ctxArg, "league:idx:Cart").Return([]string{"b", "a", "stale"}, nil)
	cmds.On("MGet", ctxArg, []string{"league:doc:Cart:b", "league:doc:Cart:a", "league:doc:Cart:stale"}).
		Return([]interface{}{
			`{"id":"b","DateCreated":"2026-02-01T00:00:00Z"}`,
			`{"id":"a","DateCreated":"2026-03-01T00:00:00Z"}`,
			nil,
		}, nil)

	var carts []models.Cart
	require.NoError(t, s.Query(context.Background(), models.PartitionCart, Query{OrderBy: "DateCreated"}, &carts))
	require.Len(t, carts, 2)
	assert.Equal(t, "b", carts[0].ID)
	assert.Equal(t, "a", carts[1].ID)
}

func TestRedis_Query_EmptyIndexSkipsMGet(t *testing.T) {
	s, cmds := newRedisStore(t)
	cmds.On("SMembers", ctxArg, "league:idx:Product").Return([]string{}, nil)

	var products []models.Product
	require.NoError(t, s.Query(context.Background(), models.PartitionProduct, Query{}, &products))
	assert.Empty(t, products)
	cmds.AssertNotCalled(t, "MGet", mock.Anything, mock.Anything)
}

func TestRedis_Delete(t *testing.T) {
	tests := []struct {
		name     string
		deleted  int64
		notFound bool
	}{
		{"removed", 1, false},
		{"missing", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, cmds := newRedisStore(t)
			cmds.On("Del", ctxArg, []string{"league:doc:Order:o1"}).Return(tt.deleted, nil)
			cmds.On("SRem", ctxArg, "league:idx:Order", []interface{}{"o1"}).Return(int64(0), nil)

			err := s.Delete(context.Background(), models.PartitionOrder, "o1")
			if tt.notFound {
				assert.True(t, sserr.HasCode(err, sserr.CodeNotFoundResource), "got %v", err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestRedis_HealthAndClose(t *testing.T) {
	s, cmds := newRedisStore(t)
	cmds.On("Health", ctxArg).Return(errors.New("down")).Once()
	cmds.On("Close").Return(nil).Once()

	assert.Error(t, s.Health(context.Background()))
	assert.NoError(t, s.Close())
}
