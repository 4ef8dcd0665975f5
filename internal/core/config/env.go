package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Pattern: BAZELCP_[SECTION]_[KEY] (e.g., BAZELCP_BAZEL_EXECUTABLE).
func ApplyEnvOverrides(cfg *Config) {
	// Workspace
	setEnvString(&cfg.Workspace.Root, "BAZELCP_WORKSPACE_ROOT")

	// Bazel
	setEnvString(&cfg.Bazel.Executable, "BAZELCP_BAZEL_EXECUTABLE")
	setEnvDuration(&cfg.Bazel.CommandTimeout, "BAZELCP_BAZEL_COMMAND_TIMEOUT")
	setEnvInt(&cfg.Bazel.BatchSize, "BAZELCP_BAZEL_BATCH_SIZE")
	setEnvFloat64(&cfg.Bazel.RateLimit, "BAZELCP_BAZEL_RATE_LIMIT")
	setEnvString(&cfg.Bazel.AspectRepository, "BAZELCP_BAZEL_ASPECT_REPOSITORY")

	// Classpath
	setEnvDuration(&cfg.Classpath.CacheTTL, "BAZELCP_CLASSPATH_CACHE_TTL")
	setEnvString(&cfg.Classpath.OnFailure, "BAZELCP_CLASSPATH_ON_FAILURE")
	setEnvInt(&cfg.Classpath.Parallelism, "BAZELCP_CLASSPATH_PARALLELISM")

	// Metadata
	setEnvString(&cfg.Metadata.StorePath, "BAZELCP_METADATA_STORE_PATH")
	if val, ok := os.LookupEnv("BAZELCP_METADATA_LAST_GOOD_ENABLED"); ok {
		if b, err := strconv.ParseBool(strings.ToLower(val)); err == nil {
			slog.Info("applying env override", "key", "BAZELCP_METADATA_LAST_GOOD_ENABLED", "value", val)
			cfg.Metadata.LastGoodEnabled = &b
		}
	}

	// Watch
	setEnvDuration(&cfg.Watch.Debounce, "BAZELCP_WATCH_DEBOUNCE")

	// Observability
	setEnvString(&cfg.Observability.MetricsAddress, "BAZELCP_OBSERVABILITY_METRICS_ADDRESS")
	setEnvString(&cfg.Observability.OTLPEndpoint, "BAZELCP_OBSERVABILITY_OTLP_ENDPOINT")
	setEnvString(&cfg.Observability.ServiceName, "BAZELCP_OBSERVABILITY_SERVICE_NAME")
}

func setEnvString(target *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		slog.Info("applying env override", "key", key, "value", val)
		*target = val
	}
}

func setEnvInt(target *int, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			slog.Info("applying env override", "key", key, "value", val)
			*target = i
		}
	}
}

func setEnvFloat64(target *float64, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			slog.Info("applying env override", "key", key, "value", val)
			*target = f
		}
	}
}

// setEnvDuration accepts Go durations and "-1".
func setEnvDuration(target *time.Duration, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if strings.TrimSpace(val) == "-1" {
			*target = -1
			return
		}
		if d, err := time.ParseDuration(val); err == nil {
			slog.Info("applying env override", "key", key, "value", val)
			*target = d
		}
	}
}
