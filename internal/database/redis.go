package database

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// RedisDB cliente del L2 del caché de detalles. Es opcional: si no conecta
// el servicio sigue solo con el L1.
type RedisDB struct {
	Client  *redis.Client
	timeout time.Duration
}

// NewRedisDB abre el cliente y exige un ping dentro de timeout.
// El password explícito reemplaza al de la URL.
func NewRedisDB(url, password string, db int, timeout time.Duration, logger *zap.Logger) (*RedisDB, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	if password != "" {
		opt.Password = password
	}
	opt.DB = db
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	opt.DialTimeout = timeout
	opt.ReadTimeout = timeout
	opt.WriteTimeout = timeout

	r := &RedisDB{Client: redis.NewClient(opt), timeout: timeout}
	if err := r.Ping(context.Background()); err != nil {
		r.Client.Close()
		return nil, fmt.Errorf("redis at %s did not answer: %w", opt.Addr, err)
	}

	logger.Info("Redis L2 cache connected",
		zap.String("addr", opt.Addr),
		zap.Int("db", db),
		zap.Duration("timeout", timeout),
	)
	return r, nil
}

// Ping acota la espera al timeout configurado aunque ctx no tenga deadline
func (r *RedisDB) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return r.Client.Ping(ctx).Err()
}

func (r *RedisDB) Close() error {
	return r.Client.Close()
}
