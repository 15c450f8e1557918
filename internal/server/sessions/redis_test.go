package sessions

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisRegistry_Add(t *testing.T) {
	client, mock := redismock.NewClientMock()
	r := NewRedisRegistry(client, 48*time.Hour)

	mock.ExpectSet("session:s1", "a1", time.Hour).SetVal("OK")
	mock.ExpectSAdd("account_sessions:a1", "s1").SetVal(1)
	mock.ExpectExpire("account_sessions:a1", 48*time.Hour).SetVal(true)

	require.NoError(t, r.Add(context.Background(), "a1", "s1", time.Hour))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisRegistry_AddError(t *testing.T) {
	client, mock := redismock.NewClientMock()
	r := NewRedisRegistry(client, 0)

	mock.ExpectSet("session:s1", "a1", time.Hour).SetErr(errors.New("down"))

	err := r.Add(context.Background(), "a1", "s1", time.Hour)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "down")
}

func TestRedisRegistry_Active(t *testing.T) {
	client, mock := redismock.NewClientMock()
	r := NewRedisRegistry(client, 0)

	mock.ExpectExists("session:s1").SetVal(1)
	mock.ExpectExists("session:s2").SetVal(0)

	ok, err := r.Active(context.Background(), "s1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.Active(context.Background(), "s2")
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisRegistry_Remove(t *testing.T) {
	client, mock := redismock.NewClientMock()
	r := NewRedisRegistry(client, 0)

	mock.ExpectDel("session:s1").SetVal(1)
	mock.ExpectSRem("account_sessions:a1", "s1").SetVal(1)

	require.NoError(t, r.Remove(context.Background(), "a1", "s1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisRegistry_RemoveAll(t *testing.T) {
	client, mock := redismock.NewClientMock()
	r := NewRedisRegistry(client, 0)

	mock.ExpectSMembers("account_sessions:a1").SetVal([]string{"s1", "s2"})
	mock.ExpectDel("session:s1", "session:s2", "account_sessions:a1").SetVal(3)

	require.NoError(t, r.RemoveAll(context.Background(), "a1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisRegistry_RemoveAllListError(t *testing.T) {
	client, mock := redismock.NewClientMock()
	r := NewRedisRegistry(client, 0)

	mock.ExpectSMembers("account_sessions:a1").SetErr(errors.New("down"))

	assert.Error(t, r.RemoveAll(context.Background(), "a1"))
}
