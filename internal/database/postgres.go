package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// ErrClosed el pool ya fue cerrado por el shutdown
var ErrClosed = errors.New("database pool closed")

// PostgresDB pool compartido del proceso. Se abre en el primer uso, se reutiliza
// en todos los requests y solo se cierra en el shutdown.
type PostgresDB struct {
	dsn             string
	maxOpenConns    int
	maxIdleConns    int
	connMaxLifetime time.Duration
	logger          *zap.Logger

	mu     sync.Mutex
	db     *sql.DB
	closed bool
}

// NewPostgresDB prepara el handle sin conectar
func NewPostgresDB(dsn string, maxOpenConns, maxIdleConns int, connMaxLifetime time.Duration, logger *zap.Logger) *PostgresDB {
	return &PostgresDB{
		dsn:             dsn,
		maxOpenConns:    maxOpenConns,
		maxIdleConns:    maxIdleConns,
		connMaxLifetime: connMaxLifetime,
		logger:          logger,
	}
}

// DB devuelve el pool, abriéndolo si todavía no existe. Si la apertura falla
// el siguiente llamado vuelve a intentarlo.
func (p *PostgresDB) DB(ctx context.Context) (*sql.DB, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrClosed
	}
	if p.db != nil {
		return p.db, nil
	}

	db, err := sql.Open("postgres", p.dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configurar connection pooling
	db.SetMaxOpenConns(p.maxOpenConns)
	db.SetMaxIdleConns(p.maxIdleConns)
	db.SetConnMaxLifetime(p.connMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	p.logger.Info("Database connection established",
		zap.Int("max_open_conns", p.maxOpenConns),
		zap.Int("max_idle_conns", p.maxIdleConns),
		zap.Duration("conn_max_lifetime", p.connMaxLifetime),
	)

	p.db = db
	return db, nil
}

// Close cierra el pool; llamadas posteriores a DB fallan con ErrClosed
func (p *PostgresDB) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	if p.db == nil {
		return nil
	}
	err := p.db.Close()
	p.db = nil
	return err
}

// Ping verifica la conexión (abre el pool si hace falta)
func (p *PostgresDB) Ping(ctx context.Context) error {
	db, err := p.DB(ctx)
	if err != nil {
		return err
	}
	return db.PingContext(ctx)
}

// GetStats retorna estadísticas del pool de conexiones; ceros si aún no se abrió
func (p *PostgresDB) GetStats() sql.DBStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.db == nil {
		return sql.DBStats{}
	}
	return p.db.Stats()
}

// Opened indica si el pool ya fue inicializado
func (p *PostgresDB) Opened() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.db != nil
}
