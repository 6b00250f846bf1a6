package cache

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

// Client define o contrato de cache usado pelo armazenamento de sessões e pelo rate limiter.
type Client interface {
	// IncrWindow incrementa o contador da janela e devolve o novo valor.
	// A chave é criada com o TTL da janela no mesmo MULTI/EXEC, por isso nunca fica sem expiração.
	IncrWindow(ctx context.Context, key string, window time.Duration) (int64, error)
	Delete(ctx context.Context, key string) error

	// HSetAll grava todos os campos do hash numa única transação MULTI/EXEC,
	// substituindo o conteúdo anterior. expiration 0 significa sem expiração.
	HSetAll(ctx context.Context, key string, fields map[string]string, expiration time.Duration) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)

	Ping(ctx context.Context) error
	Close() error
}

// RedisClient é a implementação concreta da interface Client, usando Redis.
type RedisClient struct {
	rdb *redis.Client
}

// NewRedisClient cria o cliente e testa a ligação com PING.
// Esta função é chamada no main.go.
func NewRedisClient(addr string) (Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}

	return &RedisClient{rdb: rdb}, nil
}

// IncrWindow executa SET key 0 EX window NX seguido de INCR numa transação.
// INCR mantém o TTL existente, e uma chave expirada é recriada já com TTL.
func (c *RedisClient) IncrWindow(ctx context.Context, key string, window time.Duration) (int64, error) {
	var incr *redis.IntCmd
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SetNX(ctx, key, 0, window)
		incr = pipe.Incr(ctx, key)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

// Delete remove uma chave do cache.
func (c *RedisClient) Delete(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, key).Err()
}

// HSetAll apaga e regrava o hash dentro do mesmo MULTI/EXEC:
// um leitor nunca vê uma mistura do hash antigo com o novo.
func (c *RedisClient) HSetAll(ctx context.Context, key string, fields map[string]string, expiration time.Duration) error {
	values := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		values = append(values, k, v)
	}

	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, values...)
		if expiration > 0 {
			pipe.Expire(ctx, key, expiration)
		}
		return nil
	})
	return err
}

// HGetAll devolve todos os campos do hash; um hash inexistente devolve um mapa vazio.
func (c *RedisClient) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	return c.rdb.HGetAll(ctx, key).Result()
}

// Ping verifica a disponibilidade do Redis.
func (c *RedisClient) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close fecha o pool de ligações.
func (c *RedisClient) Close() error {
	return c.rdb.Close()
}
