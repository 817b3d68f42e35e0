package models

import "time"

// MonitoringResponse respuesta completa del sistema de monitoring
type MonitoringResponse struct {
	Requests    RequestMetrics     `json:"requests"`
	Performance PerformanceMetrics `json:"performance"`
	Cache       CacheMetrics       `json:"cache"`
	Database    DatabaseMetrics    `json:"database"`
	System      SystemMetrics      `json:"system"`
	Redis       RedisMetrics       `json:"redis"`
	Movements   MovementMetrics    `json:"movements"`
	Timestamp   string             `json:"timestamp"`
	Version     string             `json:"version"`
	GeneratedBy string             `json:"generated_by"`
}

// RequestMetrics métricas de requests
type RequestMetrics struct {
	Total             int                        `json:"total"`
	ByEndpoint        map[string]EndpointMetrics `json:"byEndpoint"`
	SlowRequests      []SlowRequest              `json:"slowRequests"`
	Errors            []RequestError             `json:"errors"`
	TotalRequests     int                        `json:"total_requests"`
	SlowRequestsCount int                        `json:"slow_requests_count"`
	ErrorsCount       int                        `json:"errors_count"`
	TopEndpoints      []TopEndpoint              `json:"top_endpoints"`
}

// EndpointMetrics métricas por endpoint
type EndpointMetrics struct {
	Count     int     `json:"count"`
	AvgTime   float64 `json:"avgTime"`
	TotalTime int64   `json:"totalTime"`
}

// SlowRequest request lento
type SlowRequest struct {
	Endpoint  string    `json:"endpoint"`
	Duration  int64     `json:"duration"`
	Timestamp time.Time `json:"timestamp"`
}

// RequestError error de request
type RequestError struct {
	Endpoint   string    `json:"endpoint"`
	StatusCode int       `json:"statusCode"`
	Timestamp  time.Time `json:"timestamp"`
}

// TopEndpoint endpoint más usado
type TopEndpoint struct {
	Endpoint  string `json:"endpoint"`
	Count     int    `json:"count"`
	AvgTimeMs string `json:"avg_time_ms"`
}

// PerformanceMetrics métricas de rendimiento
type PerformanceMetrics struct {
	AvgResponseTime   float64 `json:"avgResponseTime"`
	MaxResponseTime   int64   `json:"maxResponseTime"`
	MinResponseTime   int64   `json:"minResponseTime"`
	AvgResponseTimeMs string  `json:"avg_response_time_ms"`
	MaxResponseTimeMs string  `json:"max_response_time_ms"`
	MinResponseTimeMs string  `json:"min_response_time_ms"`
}

// CacheMetrics métricas de cache
type CacheMetrics struct {
	Connected         bool           `json:"connected"`
	TotalKeys         int            `json:"totalKeys"`
	ByPrefix          map[string]int `json:"byPrefix"`
	HitRate           float64        `json:"hitRate"`
	Status            string         `json:"status"`
	HitRatePercentage string         `json:"hit_rate_percentage"`
	TotalHits         int64          `json:"total_hits"`
	TotalMisses       int64          `json:"total_misses"`
	TotalRequests     int64          `json:"total_requests"`
}

// DatabaseMetrics métricas del motor de movimientos
type DatabaseMetrics struct {
	Engine             string `json:"engine"`
	Opened             bool   `json:"opened"`
	OpenConnections    int    `json:"openConnections"`
	InUse              int    `json:"inUse"`
	Idle               int    `json:"idle"`
	WaitCount          int64  `json:"waitCount"`
	TotalQueries       int64  `json:"totalQueries"`
	Status             string `json:"status"`
	MaxOpenConnections int    `json:"max_open_connections"`
}

// MovementMetrics resultados de las operaciones de movimientos
type MovementMetrics struct {
	Total       int64            `json:"total"`
	ByOperation map[string]int64 `json:"byOperation"`
	ByOutcome   map[string]int64 `json:"byOutcome"`
}

// Resultados posibles de una operación
const (
	OutcomeSuccess      = "success"
	OutcomeValidation   = "validation_error"
	OutcomeBusinessRule = "business_rule"
	OutcomeNotFound     = "not_found"
	OutcomeError        = "error"
)

// SystemMetrics métricas del sistema
type SystemMetrics struct {
	MemoryUsage string        `json:"memoryUsage"`
	Uptime      float64       `json:"uptime"`
	Memory      MemoryMetrics `json:"memory"`
	UptimeHours string        `json:"uptime_hours"`
	GoVersion   string        `json:"go_version"`
	Goroutines  int           `json:"goroutines"`
	Platform    string        `json:"platform"`
	Environment string        `json:"environment"`
}

// MemoryMetrics métricas de memoria
type MemoryMetrics struct {
	HeapUsed  string `json:"heapUsed"`
	HeapTotal string `json:"heapTotal"`
	OtherSys  string `json:"otherSys"`
	Sys       string `json:"sys"`
	NumGC     uint32 `json:"numGC"`
}

// RedisMetrics métricas de Redis
type RedisMetrics struct {
	Connected bool   `json:"connected"`
	Keys      int    `json:"keys"`
	Memory    string `json:"memory"`
	Status    string `json:"status"`
	MemoryMB  string `json:"memory_mb"`
}

// RequestData datos de un request individual
type RequestData struct {
	Endpoint   string
	Method     string
	Duration   time.Duration
	StatusCode int
	Timestamp  time.Time
	Error      error
}
