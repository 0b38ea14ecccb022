// v1
// internal/config/config.go
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	BindAddr    string // e.g. ":8090"
	LiveGridURL string // base URL of the realtime grid API; empty disables the source

	// Engine tunables.
	BiasMultiplier     float64
	MatchThreshold     float64
	CloseThreshold     float64
	DivergentThreshold float64
	CalcDeadline       time.Duration

	// Circuit breaker tunables, shared by all guarded sources.
	BreakerMaxFailures      int
	BreakerCooldown         time.Duration
	BreakerExtendedCooldown time.Duration

	// Audit ledger.
	AuditRetention     time.Duration
	AuditMaxRecords    int
	AuditSweepInterval time.Duration

	CacheTTL time.Duration

	// Kafka audit mirror; empty brokers disables publishing.
	KafkaBrokers []string
	KafkaTopic   string
}

func FromEnv() Config {
	bind := os.Getenv("ECOTRACE_BIND_ADDR")
	if bind == "" {
		bind = ":8090"
	}
	topic := os.Getenv("ECOTRACE_KAFKA_TOPIC")
	if topic == "" {
		topic = "ecotrace.audit"
	}
	return Config{
		BindAddr:    bind,
		LiveGridURL: os.Getenv("ECOTRACE_LIVE_GRID_URL"),

		BiasMultiplier:     envFloat("ECOTRACE_BIAS_MULTIPLIER", 1.15),
		MatchThreshold:     envFloat("ECOTRACE_MATCH_THRESHOLD", 0.05),
		CloseThreshold:     envFloat("ECOTRACE_CLOSE_THRESHOLD", 0.15),
		DivergentThreshold: envFloat("ECOTRACE_DIVERGENT_THRESHOLD", 0.40),
		CalcDeadline:       envDuration("ECOTRACE_CALC_DEADLINE", 10*time.Second),

		BreakerMaxFailures:      envInt("ECOTRACE_BREAKER_MAX_FAILURES", 5),
		BreakerCooldown:         envDuration("ECOTRACE_BREAKER_COOLDOWN", 30*time.Second),
		BreakerExtendedCooldown: envDuration("ECOTRACE_BREAKER_EXTENDED_COOLDOWN", 2*time.Minute),

		AuditRetention:     envDuration("ECOTRACE_AUDIT_RETENTION", 90*24*time.Hour),
		AuditMaxRecords:    envInt("ECOTRACE_AUDIT_MAX_RECORDS", 10000),
		AuditSweepInterval: envDuration("ECOTRACE_AUDIT_SWEEP_INTERVAL", time.Hour),

		CacheTTL: envDuration("ECOTRACE_CACHE_TTL", 30*time.Second),

		KafkaBrokers: envList("ECOTRACE_KAFKA_BROKERS"),
		KafkaTopic:   topic,
	}
}

func envFloat(key string, def float64) float64 {
	if s := os.Getenv(key); s != "" {
		if v, err := strconv.ParseFloat(s, 64); err == nil && v > 0 {
			return v
		}
	}
	return def
}

func envInt(key string, def int) int {
	if s := os.Getenv(key); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			return v
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if s := os.Getenv(key); s != "" {
		if d, err := time.ParseDuration(s); err == nil && d > 0 {
			return d
		}
	}
	return def
}

func envList(key string) []string {
	s := os.Getenv(key)
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
