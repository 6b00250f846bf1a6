package sessionrepo_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"drive360/internal/domain"
	"drive360/internal/pkg/logger"
	"drive360/internal/repository/sessionrepo"
)

var adminSession = domain.NewSession("tok-1", domain.RoleAdmin, "Ana")

func TestKey_HashesSessionID(t *testing.T) {
	k := sessionrepo.Key("abc")

	assert.Len(t, k, 64)
	assert.NotContains(t, k, "abc")
	assert.Equal(t, k, sessionrepo.Key("abc"))
	assert.NotEqual(t, k, sessionrepo.Key("abd"))
}

// --- Memory ---

func TestMemoryStore_RoundTrip(t *testing.T) {
	store := sessionrepo.NewMemoryStore(0)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "s1", adminSession))
	got, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, adminSession, got)

	require.NoError(t, store.Delete(ctx, "s1"))
	got, err = store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, got.Authenticated())
	assert.Equal(t, 0, store.Len())
}

func TestMemoryStore_RejectsPartialSession(t *testing.T) {
	store := sessionrepo.NewMemoryStore(0)

	err := store.Save(context.Background(), "s1", domain.Session{Token: "t", Role: domain.RoleUser})

	assert.Error(t, err)
	assert.Equal(t, 0, store.Len())
}

func TestMemoryStore_Expiry(t *testing.T) {
	store := sessionrepo.NewMemoryStore(time.Nanosecond)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "s1", adminSession))
	time.Sleep(time.Millisecond)

	got, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, got.Authenticated())
}

// --- Redis ---

type MockCache struct {
	mock.Mock
}

func (m *MockCache) IncrWindow(ctx context.Context, key string, window time.Duration) (int64, error) {
	args := m.Called(ctx, key, window)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCache) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *MockCache) HSetAll(ctx context.Context, key string, fields map[string]string, expiration time.Duration) error {
	return m.Called(ctx, key, fields, expiration).Error(0)
}

func (m *MockCache) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(map[string]string), args.Error(1)
}

func (m *MockCache) Ping(ctx context.Context) error { return m.Called(ctx).Error(0) }
func (m *MockCache) Close() error                   { return m.Called().Error(0) }

func TestRedisStore_SaveWritesAllFieldsAtOnce(t *testing.T) {
	c := new(MockCache)
	store := sessionrepo.NewRedisStore(c, time.Second, time.Hour, logger.Nop())
	key := "session:" + sessionrepo.Key("s1")

	c.On("HSetAll", mock.Anything, key, map[string]string{"token": "tok-1", "papel": "admin", "nome": "Ana"}, time.Hour).Return(nil).Once()

	require.NoError(t, store.Save(context.Background(), "s1", adminSession))
	c.AssertExpectations(t)
}

func TestRedisStore_LoadComplete(t *testing.T) {
	c := new(MockCache)
	store := sessionrepo.NewRedisStore(c, time.Second, 0, logger.Nop())
	key := "session:" + sessionrepo.Key("s1")

	c.On("HGetAll", mock.Anything, key).Return(map[string]string{"token": "tok-1", "papel": "gestor", "nome": "Rui"}, nil).Once()

	got, err := store.Load(context.Background(), "s1")

	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, got.Role)
	assert.Equal(t, "Rui", got.DisplayName)
	c.AssertExpectations(t)
}

func TestRedisStore_PartialHashIsAnonymousAndPurged(t *testing.T) {
	c := new(MockCache)
	store := sessionrepo.NewRedisStore(c, time.Second, 0, logger.Nop())
	key := "session:" + sessionrepo.Key("s1")

	c.On("HGetAll", mock.Anything, key).Return(map[string]string{"token": "tok-1", "papel": "admin"}, nil).Once()
	c.On("Delete", mock.Anything, key).Return(nil).Once()

	got, err := store.Load(context.Background(), "s1")

	require.NoError(t, err)
	assert.False(t, got.Authenticated())
	c.AssertExpectations(t)
}

func TestRedisStore_ReadError(t *testing.T) {
	c := new(MockCache)
	store := sessionrepo.NewRedisStore(c, time.Second, 0, logger.Nop())

	c.On("HGetAll", mock.Anything, mock.Anything).Return(map[string]string(nil), errors.New("connection refused")).Once()

	got, err := store.Load(context.Background(), "s1")

	assert.Error(t, err)
	assert.False(t, got.Authenticated())
}

// --- PostgreSQL ---

func TestPostgresStore_Save(t *testing.T) {
	db, m, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store := sessionrepo.NewPostgresStore(db, time.Second, 0, logger.Nop())

	m.ExpectExec("INSERT INTO console_sessions").
		WithArgs(sessionrepo.Key("s1"), "tok-1", "admin", "Ana", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Save(context.Background(), "s1", adminSession))
	assert.NoError(t, m.ExpectationsWereMet())
}

func TestPostgresStore_Load(t *testing.T) {
	db, m, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store := sessionrepo.NewPostgresStore(db, time.Second, 0, logger.Nop())

	m.ExpectQuery("FROM console_sessions WHERE key_hash").
		WithArgs(sessionrepo.Key("s1")).
		WillReturnRows(sqlmock.NewRows([]string{"token", "papel", "nome"}).AddRow("tok-1", "admin", "Ana"))

	got, err := store.Load(context.Background(), "s1")

	require.NoError(t, err)
	assert.Equal(t, adminSession, got)
	assert.NoError(t, m.ExpectationsWereMet())
}

func TestPostgresStore_LoadMissing(t *testing.T) {
	db, m, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store := sessionrepo.NewPostgresStore(db, time.Second, 0, logger.Nop())

	m.ExpectQuery("SELECT token, papel, nome").WillReturnError(sql.ErrNoRows)

	got, err := store.Load(context.Background(), "s1")

	require.NoError(t, err)
	assert.False(t, got.Authenticated())
}

func TestPostgresStore_LoadEmptyColumnIsAnonymous(t *testing.T) {
	db, m, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store := sessionrepo.NewPostgresStore(db, time.Second, 0, logger.Nop())

	m.ExpectQuery("SELECT token, papel, nome").
		WillReturnRows(sqlmock.NewRows([]string{"token", "papel", "nome"}).AddRow("tok-1", "admin", ""))

	got, err := store.Load(context.Background(), "s1")

	require.NoError(t, err)
	assert.False(t, got.Authenticated())
}

func TestPostgresStore_DeleteAndPurge(t *testing.T) {
	db, m, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store := sessionrepo.NewPostgresStore(db, time.Second, time.Hour, logger.Nop())

	m.ExpectExec("DELETE FROM console_sessions WHERE key_hash").
		WithArgs(sessionrepo.Key("s1")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	m.ExpectExec("DELETE FROM console_sessions WHERE expires_at").
		WillReturnResult(sqlmock.NewResult(0, 3))

	require.NoError(t, store.Delete(context.Background(), "s1"))
	n, err := store.PurgeExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, m.ExpectationsWereMet())
}
