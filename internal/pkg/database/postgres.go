package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	// Driver pq para PostgreSQL
	_ "github.com/lib/pq"

	"drive360/internal/pkg/logger"
)

// NewPostgresDB abre o pool de conexões usado pelo armazenamento de sessões
// (SESSION_BACKEND=postgres) e pelo comando de migração.
func NewPostgresDB(dataSourceName string, pingTimeout time.Duration, log logger.Logger) (*sql.DB, error) {
	// 1. Abrir a conexão (ainda sem usar o pool)
	db, err := sql.Open("postgres", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("falha ao abrir a conexão com o DB: %w", err)
	}

	// 2. Testar a conexão imediatamente
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("falha ao realizar o ping inicial no DB: %w", err)
	}

	// 3. Pool: as sessões são linhas pequenas e lidas em cada pedido.
	db.SetMaxOpenConns(15)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(2 * time.Minute)

	log.Info("Pool de Conexões PostgreSQL configurado e pronto.", map[string]interface{}{"max_open": 15})
	return db, nil
}
