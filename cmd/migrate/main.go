package main

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"

	"drive360/internal/pkg/database"
	"drive360/internal/pkg/logger"
)

// migrateConfig é o subconjunto da configuração de que as migrações precisam.
type migrateConfig struct {
	DatabaseURL string        `env:"DATABASE_URL,required"`
	DBTimeout   time.Duration `env:"DB_TIMEOUT" envDefault:"5s"`
	LogLevel    string        `env:"LOG_LEVEL" envDefault:"info"`
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️ Aviso: .env não encontrado, a usar apenas o ambiente do sistema: %v", err)
	}
	if err := newRootCmd().Execute(); err != nil {
		log.Fatal(err)
	}
}

func newRootCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:           "migrate",
		Short:         "Migrações da tabela de sessões da consola (SESSION_BACKEND=postgres)",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&dir, "dir", "./sql", "diretório com os ficheiros de migração")

	cmd.AddCommand(
		newGooseCmd("up", "Aplica todas as migrações pendentes", &dir, func(db *sql.DB, dir string) error {
			return goose.Up(db, dir)
		}),
		newGooseCmd("down", "Reverte a última migração", &dir, func(db *sql.DB, dir string) error {
			return goose.Down(db, dir)
		}),
		newGooseCmd("status", "Mostra o estado das migrações", &dir, func(db *sql.DB, dir string) error {
			return goose.Status(db, dir)
		}),
	)
	return cmd
}

func newGooseCmd(use, short string, dir *string, run func(db *sql.DB, dir string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var cfg migrateConfig
			if err := env.Parse(&cfg); err != nil {
				return fmt.Errorf("falha ao ler configuração: %w", err)
			}

			db, err := database.NewPostgresDB(cfg.DatabaseURL, cfg.DBTimeout, logger.NewLogger(cfg.LogLevel))
			if err != nil {
				return fmt.Errorf("goose: falha ao conectar ao DB: %w", err)
			}
			defer db.Close()

			if err := goose.SetDialect("postgres"); err != nil {
				return err
			}
			if err := run(db, *dir); err != nil {
				return fmt.Errorf("goose %s: %w", use, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "goose %s concluído\n", use)
			return nil
		},
	}
}
