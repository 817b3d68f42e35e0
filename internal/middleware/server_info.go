package middleware

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"go.uber.org/zap"
)

// ServerInfo banner de arranque con los endpoints disponibles
func ServerInfo(port, engine string, redisEnabled bool, logger *zap.Logger) {
	hostname, _ := os.Hostname()
	goVersion := runtime.Version()
	numCPU := runtime.NumCPU()
	startTime := time.Now().Format("2006-01-02 15:04:05")

	cacheMode := "L1 memory only"
	if redisEnabled {
		cacheMode = "L1 memory + L2 Redis"
	}

	base := "http://localhost:" + port
	endpoint := func(method, path, description string) {
		fmt.Printf("   %-5s %s%-46s%s %s\n", method, greenColor, path, resetColor, description)
	}

	fmt.Println("")
	fmt.Println("🚀 " + boldColor + "Stock Movement Service API" + resetColor)
	fmt.Println("═══════════════════════════════════════════════════════════════")
	fmt.Println("📅 Started at: " + startTime)
	fmt.Println("🌐 Server URL: " + cyanColor + base + resetColor)
	fmt.Println("💻 Hostname: " + hostname)
	fmt.Println("🔧 Go Version: " + goVersion)
	fmt.Println("⚡ CPU Cores: " + fmt.Sprintf("%d", numCPU))
	fmt.Println("")
	fmt.Println("📊 " + boldColor + "Available Endpoints:" + resetColor)
	endpoint("GET", "/api/v1/internal/stock-movement", "List movements")
	endpoint("POST", "/api/v1/internal/stock-movement", "Create movement")
	endpoint("GET", "/api/v1/internal/stock-movement/:id", "Movement detail")
	endpoint("POST", "/api/v1/internal/stock-movement/:id/reverse", "Reverse movement")
	fmt.Println("")
	fmt.Println("🔍 " + boldColor + "Monitoring:" + resetColor)
	endpoint("GET", "/health", "Health check")
	endpoint("GET", "/api/v1/monitoring/metrics", "Metrics")
	endpoint("GET", "/api/v1/monitoring/ws", "Live metrics (WebSocket)")
	endpoint("GET", "/metrics", "Prometheus")
	fmt.Println("")
	fmt.Println("⚙️  " + boldColor + "Environment:" + resetColor)
	fmt.Println("   🗄️  Engine: " + engine)
	fmt.Println("   🗃️  Cache: " + cacheMode)
	fmt.Println("   📝 Logging: Structured (Zap)")
	fmt.Println("═══════════════════════════════════════════════════════════════")
	fmt.Println("")

	logger.Info("Server started successfully",
		zap.String("port", port),
		zap.String("engine", engine),
		zap.Bool("redis", redisEnabled),
		zap.String("hostname", hostname),
		zap.String("go_version", goVersion),
		zap.Int("cpu_cores", numCPU),
	)
}
