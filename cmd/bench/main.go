// README: Smoke and load runner against a live trailquest-api; executes HTTP/DB/Redis checks and prints results.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"
)

func main() {
	cfg := loadConfig()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	bench := NewRunner(cfg)
	results := bench.RunAll(ctx)

	fmt.Println("\n== Summary ==")
	pass, fail, skipped := 0, 0, 0
	for _, r := range results {
		switch r.Status {
		case StatusPass:
			pass++
		case StatusFail:
			fail++
		case StatusSkip:
			skipped++
		}
	}
	fmt.Printf("PASS=%d FAIL=%d SKIP=%d\n", pass, fail, skipped)

	if fail > 0 || (cfg.Strict && skipped > 0) {
		os.Exit(1)
	}
}

type Config struct {
	BaseURL     string
	DSN         string
	RedisAddr   string
	JWTSecret   string
	Strict      bool
	Timeout     time.Duration
	Concurrency int
	Duration    time.Duration
}

func loadConfig() Config {
	var cfg Config
	flag.StringVar(&cfg.BaseURL, "base-url", envOrDefault("TRAILQUEST_BENCH_BASE_URL", "http://localhost:8080"), "API base URL")
	flag.StringVar(&cfg.DSN, "dsn", os.Getenv("TRAILQUEST_DB_DSN"), "Postgres DSN of the postgres backend (optional)")
	flag.StringVar(&cfg.RedisAddr, "redis", envOrDefault("TRAILQUEST_REDIS_ADDR", "localhost:6379"), "Redis address")
	flag.StringVar(&cfg.JWTSecret, "jwt-secret", os.Getenv("TRAILQUEST_JWT_SECRET"), "HS256 secret of a jwt-mode server; API flows are skipped without it")
	flag.BoolVar(&cfg.Strict, "strict", envOrDefaultBool("TRAILQUEST_BENCH_STRICT", false), "Fail on skipped cases")
	flag.DurationVar(&cfg.Timeout, "timeout", envOrDefaultDuration("TRAILQUEST_BENCH_TIMEOUT", 60*time.Second), "Total timeout")
	flag.IntVar(&cfg.Concurrency, "concurrency", envOrDefaultInt("TRAILQUEST_BENCH_CONCURRENCY", 20), "Concurrency for load cases")
	flag.DurationVar(&cfg.Duration, "duration", envOrDefaultDuration("TRAILQUEST_BENCH_DURATION", 10*time.Second), "Duration for load cases")
	flag.Parse()
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return cfg
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		v = strings.ToLower(v)
		return v == "1" || v == "true" || v == "yes"
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		var n int
		_, _ = fmt.Sscanf(v, "%d", &n)
		if n > 0 {
			return n
		}
	}
	return def
}

func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
