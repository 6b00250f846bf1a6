package sessionrepo

import (
	"context"
	"database/sql"
	"time"

	"drive360/internal/domain"
	"drive360/internal/errors"
	"drive360/internal/pkg/logger"
)

// PostgresStore guarda cada sessão numa linha de console_sessions.
// As três colunas são NOT NULL, portanto uma linha nunca está parcial.
type PostgresStore struct {
	DB        *sql.DB
	DBTimeout time.Duration
	ttl       time.Duration
	logger    logger.Logger
}

// NewPostgresStore cria o armazenamento. ttl 0 significa sem expiração.
func NewPostgresStore(db *sql.DB, dbTimeout, ttl time.Duration, logger logger.Logger) *PostgresStore {
	return &PostgresStore{
		DB:        db,
		DBTimeout: dbTimeout,
		ttl:       ttl,
		logger:    logger,
	}
}

// Save faz upsert da sessão numa única instrução.
func (r *PostgresStore) Save(ctx context.Context, sessionID string, s domain.Session) error {
	if !s.Authenticated() {
		return errors.NewValidationError("sessão incompleta não pode ser gravada.")
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	var expiresAt sql.NullTime
	if r.ttl > 0 {
		expiresAt = sql.NullTime{Time: time.Now().UTC().Add(r.ttl), Valid: true}
	}

	query := `
        INSERT INTO console_sessions (key_hash, token, papel, nome, expires_at)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (key_hash) DO UPDATE
        SET token = EXCLUDED.token, papel = EXCLUDED.papel, nome = EXCLUDED.nome, expires_at = EXCLUDED.expires_at`

	_, err := r.DB.ExecContext(ctxTimeout, query, Key(sessionID), s.Token, string(s.Role), s.DisplayName, expiresAt)
	if err != nil {
		r.logger.Error("Falha ao gravar sessão no DB.", err)
		return errors.NewDBError("Falha ao gravar sessão", err)
	}
	return nil
}

// Load devolve a sessão ou anónimo quando não existe ou expirou.
func (r *PostgresStore) Load(ctx context.Context, sessionID string) (domain.Session, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := `
        SELECT token, papel, nome
        FROM console_sessions
        WHERE key_hash = $1 AND (expires_at IS NULL OR expires_at > NOW())`

	var token, papel, nome string
	err := r.DB.QueryRowContext(ctxTimeout, query, Key(sessionID)).Scan(&token, &papel, &nome)
	if err == sql.ErrNoRows {
		return domain.AnonymousSession, nil
	}
	if err != nil {
		r.logger.Error("Falha ao ler sessão do DB.", err)
		return domain.AnonymousSession, errors.NewDBError("Falha ao ler sessão", err)
	}

	s, _ := fromFields(map[string]string{fieldToken: token, fieldPapel: papel, fieldNome: nome})
	return s, nil
}

// Delete remove a sessão. Remover uma sessão inexistente não é erro.
func (r *PostgresStore) Delete(ctx context.Context, sessionID string) error {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	if _, err := r.DB.ExecContext(ctxTimeout, `DELETE FROM console_sessions WHERE key_hash = $1`, Key(sessionID)); err != nil {
		r.logger.Error("Falha ao remover sessão do DB.", err)
		return errors.NewDBError("Falha ao remover sessão", err)
	}
	return nil
}

// PurgeExpired apaga as sessões expiradas e devolve quantas foram removidas.
func (r *PostgresStore) PurgeExpired(ctx context.Context) (int64, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	res, err := r.DB.ExecContext(ctxTimeout, `DELETE FROM console_sessions WHERE expires_at IS NOT NULL AND expires_at <= NOW()`)
	if err != nil {
		return 0, errors.NewDBError("Falha ao limpar sessões", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		r.logger.Info("Sessões expiradas removidas.", map[string]interface{}{"count": n})
	}
	return n, nil
}
