package sessionrepo

import (
	"context"
	"time"

	"drive360/internal/domain"
	"drive360/internal/errors"
	"drive360/internal/pkg/cache"
	"drive360/internal/pkg/logger"
)

const redisPrefix = "session:"

// RedisStore guarda cada sessão num hash Redis.
type RedisStore struct {
	client       cache.Client
	CacheTimeout time.Duration
	ttl          time.Duration
	logger       logger.Logger
}

// NewRedisStore cria o armazenamento. ttl 0 significa sem expiração.
func NewRedisStore(client cache.Client, cacheTimeout, ttl time.Duration, logger logger.Logger) *RedisStore {
	return &RedisStore{
		client:       client,
		CacheTimeout: cacheTimeout,
		ttl:          ttl,
		logger:       logger,
	}
}

// Save grava token, papel e nome na mesma transação.
func (r *RedisStore) Save(ctx context.Context, sessionID string, s domain.Session) error {
	if !s.Authenticated() {
		return errors.NewValidationError("sessão incompleta não pode ser gravada.")
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, r.CacheTimeout)
	defer cancel()

	if err := r.client.HSetAll(ctxTimeout, redisPrefix+Key(sessionID), toFields(s), r.ttl); err != nil {
		r.logger.Error("Falha ao gravar sessão no Redis.", err)
		return errors.NewDBError("Falha ao gravar sessão", err)
	}
	return nil
}

// Load lê a sessão. Um hash inexistente é anónimo; um hash parcial é anónimo e é removido.
func (r *RedisStore) Load(ctx context.Context, sessionID string) (domain.Session, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.CacheTimeout)
	defer cancel()

	key := redisPrefix + Key(sessionID)
	fields, err := r.client.HGetAll(ctxTimeout, key)
	if err != nil {
		r.logger.Error("Falha ao ler sessão do Redis.", err)
		return domain.AnonymousSession, errors.NewDBError("Falha ao ler sessão", err)
	}

	s, partial := fromFields(fields)
	if partial {
		r.logger.Warn("Sessão parcial encontrada, a remover.", map[string]interface{}{"fields": len(fields)})
		_ = r.client.Delete(ctxTimeout, key)
	}
	return s, nil
}

// Delete remove a sessão.
func (r *RedisStore) Delete(ctx context.Context, sessionID string) error {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.CacheTimeout)
	defer cancel()

	if err := r.client.Delete(ctxTimeout, redisPrefix+Key(sessionID)); err != nil {
		r.logger.Error("Falha ao remover sessão do Redis.", err)
		return errors.NewDBError("Falha ao remover sessão", err)
	}
	return nil
}
