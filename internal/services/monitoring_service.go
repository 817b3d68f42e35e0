package services

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"stock-movement-service/internal/cache"
	"stock-movement-service/internal/config"
	"stock-movement-service/internal/database"
	"stock-movement-service/internal/models"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

type MonitoringService interface {
	GetMetrics(ctx context.Context) *models.MonitoringResponse
	RecordRequest(data models.RequestData)
	RecordOperation(operation, outcome string, elapsed time.Duration)
	GetCacheStats() models.CacheMetrics
	GetDatabaseStats() models.DatabaseMetrics
	GetSystemStats() models.SystemMetrics
	GetRedisStats(ctx context.Context) models.RedisMetrics
	GetMovementStats() models.MovementMetrics
}

// OperationRecorder recibe el resultado de cada operación de movimientos
type OperationRecorder interface {
	RecordOperation(operation, outcome string, elapsed time.Duration)
}

type monitoringService struct {
	logger        *zap.Logger
	config        *config.Config
	redisClient   *redis.Client
	db            *database.PostgresDB
	engineName    string
	movementCache *cache.MovementCache
	metrics       *Metrics

	// Métricas de requests
	requestsMutex sync.RWMutex
	requests      map[string]*models.EndpointMetrics
	slowRequests  []models.SlowRequest
	errors        []models.RequestError
	totalRequests int64

	// Operaciones de movimientos
	operationsMutex sync.RWMutex
	byOperation     map[string]int64
	byOutcome       map[string]int64
	totalOperations int64

	startTime time.Time
}

// NewMonitoringService redisClient y db pueden ser nil (sin L2 o motor en memoria)
func NewMonitoringService(
	logger *zap.Logger,
	config *config.Config,
	redisClient *redis.Client,
	db *database.PostgresDB,
	engineName string,
	movementCache *cache.MovementCache,
	metrics *Metrics,
) MonitoringService {
	return &monitoringService{
		logger:        logger,
		config:        config,
		redisClient:   redisClient,
		db:            db,
		engineName:    engineName,
		movementCache: movementCache,
		metrics:       metrics,
		requests:      make(map[string]*models.EndpointMetrics),
		byOperation:   make(map[string]int64),
		byOutcome:     make(map[string]int64),
		startTime:     time.Now(),
	}
}

func (s *monitoringService) RecordRequest(data models.RequestData) {
	s.metrics.ObserveRequest(data.Endpoint, data.Method, data.StatusCode, data.Duration)

	s.requestsMutex.Lock()
	defer s.requestsMutex.Unlock()

	endpointKey := fmt.Sprintf("%s %s", data.Method, data.Endpoint)

	metrics, exists := s.requests[endpointKey]
	if !exists {
		metrics = &models.EndpointMetrics{}
		s.requests[endpointKey] = metrics
	}

	metrics.Count++
	durationMs := data.Duration.Milliseconds()
	metrics.TotalTime += durationMs
	metrics.AvgTime = float64(metrics.TotalTime) / float64(metrics.Count)

	s.totalRequests++

	// Request lento: > 1000ms
	if durationMs > 1000 {
		s.slowRequests = append(s.slowRequests, models.SlowRequest{
			Endpoint:  endpointKey,
			Duration:  durationMs,
			Timestamp: data.Timestamp,
		})

		// Mantener solo los últimos 100
		if len(s.slowRequests) > 100 {
			s.slowRequests = s.slowRequests[1:]
		}
	}

	if data.Error != nil || data.StatusCode >= 400 {
		s.errors = append(s.errors, models.RequestError{
			Endpoint:   endpointKey,
			StatusCode: data.StatusCode,
			Timestamp:  data.Timestamp,
		})

		if len(s.errors) > 100 {
			s.errors = s.errors[1:]
		}
	}
}

func (s *monitoringService) RecordOperation(operation, outcome string, elapsed time.Duration) {
	s.metrics.ObserveOperation(operation, outcome, elapsed)

	s.operationsMutex.Lock()
	defer s.operationsMutex.Unlock()

	s.byOperation[operation]++
	s.byOutcome[outcome]++
	s.totalOperations++
}

func (s *monitoringService) GetMetrics(ctx context.Context) *models.MonitoringResponse {
	s.requestsMutex.RLock()
	requestMetrics := s.calculateRequestMetrics()
	performanceMetrics := s.calculatePerformanceMetrics()
	s.requestsMutex.RUnlock()

	return &models.MonitoringResponse{
		Requests:    requestMetrics,
		Performance: performanceMetrics,
		Cache:       s.GetCacheStats(),
		Database:    s.GetDatabaseStats(),
		System:      s.GetSystemStats(),
		Redis:       s.GetRedisStats(ctx),
		Movements:   s.GetMovementStats(),
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		Version:     "1.0",
		GeneratedBy: "Stock Movement Service",
	}
}

func (s *monitoringService) calculateRequestMetrics() models.RequestMetrics {
	type endpointEntry struct {
		key     string
		metrics *models.EndpointMetrics
	}

	endpoints := make([]endpointEntry, 0, len(s.requests))
	byEndpoint := make(map[string]models.EndpointMetrics, len(s.requests))
	for key, metrics := range s.requests {
		endpoints = append(endpoints, endpointEntry{key, metrics})
		byEndpoint[key] = *metrics
	}

	// Por count descendente, desempate por nombre
	sort.Slice(endpoints, func(i, j int) bool {
		if endpoints[i].metrics.Count != endpoints[j].metrics.Count {
			return endpoints[i].metrics.Count > endpoints[j].metrics.Count
		}
		return endpoints[i].key < endpoints[j].key
	})

	topEndpoints := []models.TopEndpoint{}
	for i, endpoint := range endpoints {
		if i >= 10 {
			break
		}
		topEndpoints = append(topEndpoints, models.TopEndpoint{
			Endpoint:  endpoint.key,
			Count:     endpoint.metrics.Count,
			AvgTimeMs: fmt.Sprintf("%.2fms", endpoint.metrics.AvgTime),
		})
	}

	slow := append([]models.SlowRequest{}, s.slowRequests...)
	errs := append([]models.RequestError{}, s.errors...)

	return models.RequestMetrics{
		Total:             len(s.requests),
		ByEndpoint:        byEndpoint,
		SlowRequests:      slow,
		Errors:            errs,
		TotalRequests:     int(s.totalRequests),
		SlowRequestsCount: len(slow),
		ErrorsCount:       len(errs),
		TopEndpoints:      topEndpoints,
	}
}

func (s *monitoringService) calculatePerformanceMetrics() models.PerformanceMetrics {
	var totalTime int64
	var maxTime int64
	var minTime int64 = math.MaxInt64
	var count int

	for _, metrics := range s.requests {
		totalTime += metrics.TotalTime
		avg := int64(metrics.AvgTime)
		if avg > maxTime {
			maxTime = avg
		}
		if avg < minTime {
			minTime = avg
		}
		count += metrics.Count
	}

	var avgTime float64
	if count > 0 {
		avgTime = float64(totalTime) / float64(count)
	}

	if minTime == math.MaxInt64 {
		minTime = 0
	}

	return models.PerformanceMetrics{
		AvgResponseTime:   avgTime,
		MaxResponseTime:   maxTime,
		MinResponseTime:   minTime,
		AvgResponseTimeMs: fmt.Sprintf("%.2fms", avgTime),
		MaxResponseTimeMs: fmt.Sprintf("%dms", maxTime),
		MinResponseTimeMs: fmt.Sprintf("%dms", minTime),
	}
}

func (s *monitoringService) GetCacheStats() models.CacheMetrics {
	cacheStats := s.movementCache.GetStats()
	hitRate := cacheStats.HitRate()

	status := "l1-only"
	if s.movementCache.Connected() {
		status = "online"
	}

	return models.CacheMetrics{
		Connected:         s.movementCache.Connected(),
		TotalKeys:         cacheStats.TotalKeys,
		ByPrefix:          map[string]int{"stock-movement": cacheStats.TotalKeys},
		HitRate:           hitRate,
		Status:            status,
		HitRatePercentage: fmt.Sprintf("%.2f%%", hitRate*100),
		TotalHits:         cacheStats.Hits,
		TotalMisses:       cacheStats.Misses,
		TotalRequests:     cacheStats.TotalRequests,
	}
}

func (s *monitoringService) GetDatabaseStats() models.DatabaseMetrics {
	metrics := models.DatabaseMetrics{
		Engine: s.engineName,
		Status: "online",
	}
	if s.db == nil {
		return metrics
	}

	stats := s.db.GetStats()
	metrics.Opened = s.db.Opened()
	metrics.OpenConnections = stats.OpenConnections
	metrics.InUse = stats.InUse
	metrics.Idle = stats.Idle
	metrics.WaitCount = stats.WaitCount
	metrics.MaxOpenConnections = stats.MaxOpenConnections
	if !metrics.Opened {
		metrics.Status = "idle"
	}

	s.operationsMutex.RLock()
	metrics.TotalQueries = s.totalOperations
	s.operationsMutex.RUnlock()

	return metrics
}

func (s *monitoringService) GetSystemStats() models.SystemMetrics {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	uptime := time.Since(s.startTime).Seconds()

	environment := "production"
	if s.config.Server.GinMode == "debug" {
		environment = "development"
	}

	return models.SystemMetrics{
		MemoryUsage: fmt.Sprintf("%.2f", float64(m.Alloc)/1024/1024),
		Uptime:      uptime,
		Memory: models.MemoryMetrics{
			HeapUsed:  fmt.Sprintf("%.2f MB", float64(m.HeapAlloc)/1024/1024),
			HeapTotal: fmt.Sprintf("%.2f MB", float64(m.HeapSys)/1024/1024),
			OtherSys:  fmt.Sprintf("%.2f MB", float64(m.OtherSys)/1024/1024),
			Sys:       fmt.Sprintf("%.2f MB", float64(m.Sys)/1024/1024),
			NumGC:     m.NumGC,
		},
		UptimeHours: fmt.Sprintf("%.2fh", uptime/3600),
		GoVersion:   runtime.Version(),
		Goroutines:  runtime.NumGoroutine(),
		Platform:    runtime.GOOS,
		Environment: environment,
	}
}

func (s *monitoringService) GetRedisStats(ctx context.Context) models.RedisMetrics {
	if s.redisClient == nil {
		return models.RedisMetrics{Status: "disabled"}
	}

	connected := s.redisClient.Ping(ctx).Err() == nil

	var keys int
	var memory string
	var memoryMB string

	if connected {
		if keysResult, err := s.redisClient.DBSize(ctx).Result(); err == nil {
			keys = int(keysResult)
		}

		if info, err := s.redisClient.Info(ctx, "memory").Result(); err == nil {
			memory, memoryMB = usedMemory(info)
		}
	}

	status := "offline"
	if connected {
		status = "online"
	}

	return models.RedisMetrics{
		Connected: connected,
		Keys:      keys,
		Memory:    memory,
		Status:    status,
		MemoryMB:  memoryMB,
	}
}

func (s *monitoringService) GetMovementStats() models.MovementMetrics {
	s.operationsMutex.RLock()
	defer s.operationsMutex.RUnlock()

	byOperation := make(map[string]int64, len(s.byOperation))
	for k, v := range s.byOperation {
		byOperation[k] = v
	}
	byOutcome := make(map[string]int64, len(s.byOutcome))
	for k, v := range s.byOutcome {
		byOutcome[k] = v
	}

	return models.MovementMetrics{
		Total:       s.totalOperations,
		ByOperation: byOperation,
		ByOutcome:   byOutcome,
	}
}

// usedMemory extrae used_memory de la sección memory de INFO
func usedMemory(info string) (string, string) {
	for _, line := range strings.Split(info, "\n") {
		if !strings.HasPrefix(line, "used_memory:") {
			continue
		}
		memory := strings.TrimSpace(strings.TrimPrefix(line, "used_memory:"))
		if memBytes, err := strconv.ParseInt(memory, 10, 64); err == nil {
			return memory, fmt.Sprintf("%.2f MB", float64(memBytes)/1024/1024)
		}
		return memory, ""
	}
	return "", ""
}
