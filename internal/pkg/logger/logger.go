package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger define a interface para logging estruturado.
// A aplicação (Handler, Service, Repository) deve depender apenas desta interface.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, err error)
	Fatal(msg string, err error)
}

// ZeroLogger é a implementação concreta da interface Logger sobre zerolog,
// com saída JSON de uma linha por entrada.
type ZeroLogger struct {
	zl zerolog.Logger
}

// NewLogger cria um Logger que escreve em stdout com o nível indicado.
// Esta função é chamada no main.go.
func NewLogger(level string) Logger {
	return New(level, os.Stdout)
}

// New cria um Logger que escreve no writer indicado (útil em testes).
func New(level string, w io.Writer) Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	zl := zerolog.New(w).
		Level(parseLevel(level)).
		With().
		Timestamp().
		Logger()
	return &ZeroLogger{zl: zl}
}

// Nop devolve um Logger que descarta tudo.
func Nop() Logger {
	return &ZeroLogger{zl: zerolog.Nop()}
}

// parseLevel traduz o LOG_LEVEL da configuração; valores desconhecidos caem em info.
func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

func (l *ZeroLogger) Debug(msg string, fields map[string]interface{}) {
	l.zl.Debug().Fields(fields).Msg(msg)
}

func (l *ZeroLogger) Info(msg string, fields map[string]interface{}) {
	l.zl.Info().Fields(fields).Msg(msg)
}

func (l *ZeroLogger) Warn(msg string, fields map[string]interface{}) {
	l.zl.Warn().Fields(fields).Msg(msg)
}

func (l *ZeroLogger) Error(msg string, err error) {
	l.zl.Error().Err(err).Msg(msg)
}

// Fatal regista a entrada e termina o processo.
func (l *ZeroLogger) Fatal(msg string, err error) {
	l.zl.Fatal().Err(err).Msg(msg)
}

// Zerolog expõe o logger subjacente para o middleware de acesso HTTP.
func (l *ZeroLogger) Zerolog() zerolog.Logger {
	return l.zl
}
