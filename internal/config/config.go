package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Addr          string
	CORSOrigin    string
	FrameInterval time.Duration
	HistoryLimit  int
	// Redis - optional, history events stay in-process when empty
	RedisURL      string
	NotifyChannel string
	ExportTimeout time.Duration
	PandocPath    string
}

func Load() Config {
	return Config{
		Addr:          getenv("GRIDD_ADDR", ":8790"),
		CORSOrigin:    getenv("GRIDD_CORS_ORIGIN", "*"),
		FrameInterval: time.Duration(getenvInt("GRIDD_FRAME_INTERVAL_MS", 16)) * time.Millisecond,
		HistoryLimit:  getenvInt("GRIDD_HISTORY_LIMIT", 50),
		RedisURL:      getenv("REDIS_URL", ""),
		NotifyChannel: getenv("GRIDD_NOTIFY_CHANNEL", "bloomgrid:history"),
		ExportTimeout: time.Duration(getenvInt("GRIDD_EXPORT_TIMEOUT_SECONDS", 30)) * time.Second,
		PandocPath:    getenv("GRIDD_PANDOC_PATH", "pandoc"),
	}
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}
