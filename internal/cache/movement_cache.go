package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"stock-movement-service/internal/models"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// ErrCacheMiss el detalle no está en ningún nivel
var ErrCacheMiss = errors.New("movement not cached")

// CacheStats estadísticas del caché
type CacheStats struct {
	Hits          int64
	Misses        int64
	TotalRequests int64
	TotalKeys     int
}

// HitRate proporción de hits sobre el total; 0 sin requests
func (s CacheStats) HitRate() float64 {
	if s.TotalRequests == 0 {
		return 0
	}
	return float64(s.Hits) / float64(s.TotalRequests)
}

// MovementCache caché multi-nivel para el detalle de movimientos.
// Ambos niveles guardan solo detalles asentados, que ya no cambian: L1 en
// memoria y L2 en Redis con TTL. Un detalle sin revertir siempre se lee del motor.
type MovementCache struct {
	// L1 Cache: Memoria local
	l1Cache map[string]*models.StockMovementDetail
	l1Mutex sync.RWMutex

	// L2 Cache: Redis, opcional
	redisClient *redis.Client

	maxL1Size int
	ttl       time.Duration

	logger *zap.Logger

	statsMutex sync.RWMutex
	hits       int64
	misses     int64

	stop     chan struct{}
	stopOnce sync.Once
}

// NewMovementCache crea el caché. redisClient puede ser nil (solo L1).
func NewMovementCache(redisClient *redis.Client, maxL1Size int, ttl time.Duration, logger *zap.Logger) *MovementCache {
	mc := &MovementCache{
		l1Cache:     make(map[string]*models.StockMovementDetail),
		redisClient: redisClient,
		maxL1Size:   maxL1Size,
		ttl:         ttl,
		logger:      logger,
		stop:        make(chan struct{}),
	}

	go mc.reportL1()

	return mc
}

func key(idAccount, idStockMovement int64) string {
	return fmt.Sprintf("stock-movement:%d:%d", idAccount, idStockMovement)
}

// GetStats retorna estadísticas del caché
func (mc *MovementCache) GetStats() CacheStats {
	mc.statsMutex.RLock()
	defer mc.statsMutex.RUnlock()

	mc.l1Mutex.RLock()
	totalKeys := len(mc.l1Cache)
	mc.l1Mutex.RUnlock()

	return CacheStats{
		Hits:          mc.hits,
		Misses:        mc.misses,
		TotalRequests: mc.hits + mc.misses,
		TotalKeys:     totalKeys,
	}
}

// Connected indica si hay un L2 configurado
func (mc *MovementCache) Connected() bool {
	return mc.redisClient != nil
}

// GetMovement busca un detalle en L1 y luego en L2
func (mc *MovementCache) GetMovement(ctx context.Context, idAccount, idStockMovement int64) (*models.StockMovementDetail, error) {
	start := time.Now()
	k := key(idAccount, idStockMovement)

	if detail := mc.getFromL1(k); detail != nil {
		mc.recordHit()
		mc.logger.Debug("L1 cache hit",
			zap.String("key", k),
			zap.Duration("latency", time.Since(start)))
		return detail, nil
	}

	detail, err := mc.getFromL2(ctx, k)
	if err == nil && detail != nil && detail.Settled() {
		mc.setToL1(k, detail)
		mc.recordHit()
		mc.logger.Debug("L2 cache hit",
			zap.String("key", k),
			zap.Duration("latency", time.Since(start)))
		return detail, nil
	}
	if err != nil && !errors.Is(err, redis.Nil) && !errors.Is(err, ErrCacheMiss) {
		mc.logger.Warn("L2 cache read failed", zap.String("key", k), zap.Error(err))
	}

	mc.recordMiss()
	mc.logger.Debug("Cache miss",
		zap.String("key", k),
		zap.Duration("latency", time.Since(start)))

	return nil, ErrCacheMiss
}

// SetMovement almacena el detalle si está asentado; los demás se ignoran
func (mc *MovementCache) SetMovement(ctx context.Context, detail *models.StockMovementDetail) error {
	if !detail.Settled() {
		return nil
	}
	k := key(detail.IDAccount, detail.IDStockMovement)
	mc.setToL1(k, detail)
	return mc.setToL2(ctx, k, detail)
}

// InvalidateMovement invalida el detalle en ambos niveles
func (mc *MovementCache) InvalidateMovement(ctx context.Context, idAccount, idStockMovement int64) error {
	k := key(idAccount, idStockMovement)

	mc.l1Mutex.Lock()
	delete(mc.l1Cache, k)
	mc.l1Mutex.Unlock()

	if mc.redisClient == nil {
		return nil
	}
	return mc.redisClient.Del(ctx, k).Err()
}

// Close detiene el reporte periódico de L1
func (mc *MovementCache) Close() {
	mc.stopOnce.Do(func() { close(mc.stop) })
}

func (mc *MovementCache) recordHit() {
	mc.statsMutex.Lock()
	mc.hits++
	mc.statsMutex.Unlock()
}

func (mc *MovementCache) recordMiss() {
	mc.statsMutex.Lock()
	mc.misses++
	mc.statsMutex.Unlock()
}

func (mc *MovementCache) getFromL1(k string) *models.StockMovementDetail {
	mc.l1Mutex.RLock()
	defer mc.l1Mutex.RUnlock()
	return mc.l1Cache[k]
}

func (mc *MovementCache) setToL1(k string, detail *models.StockMovementDetail) {
	if mc.maxL1Size <= 0 {
		return
	}

	mc.l1Mutex.Lock()
	defer mc.l1Mutex.Unlock()

	if _, exists := mc.l1Cache[k]; !exists && len(mc.l1Cache) >= mc.maxL1Size {
		mc.evictOne()
	}

	mc.l1Cache[k] = detail
}

// evictOne elimina una entrada arbitraria
func (mc *MovementCache) evictOne() {
	for k := range mc.l1Cache {
		delete(mc.l1Cache, k)
		break
	}
}

func (mc *MovementCache) getFromL2(ctx context.Context, k string) (*models.StockMovementDetail, error) {
	if mc.redisClient == nil {
		return nil, ErrCacheMiss
	}
	data, err := mc.redisClient.Get(ctx, k).Bytes()
	if err != nil {
		return nil, err
	}

	var entry cachedDetail
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, err
	}

	detail := entry.StockMovementDetail
	detail.IDAccount = entry.IDAccount
	return &detail, nil
}

func (mc *MovementCache) setToL2(ctx context.Context, k string, detail *models.StockMovementDetail) error {
	if mc.redisClient == nil {
		return nil
	}
	data, err := json.Marshal(cachedDetail{StockMovementDetail: *detail, IDAccount: detail.IDAccount})
	if err != nil {
		return err
	}

	return mc.redisClient.Set(ctx, k, data, mc.ttl).Err()
}

// cachedDetail conserva la cuenta, que el JSON público omite
type cachedDetail struct {
	models.StockMovementDetail
	IDAccount int64 `json:"idAccount"`
}

// reportL1 registra el tamaño de L1 periódicamente
func (mc *MovementCache) reportL1() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			mc.l1Mutex.RLock()
			mc.logger.Debug("L1 cache size", zap.Int("items", len(mc.l1Cache)))
			mc.l1Mutex.RUnlock()
		case <-mc.stop:
			return
		}
	}
}
