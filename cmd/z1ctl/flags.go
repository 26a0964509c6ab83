package main

import (
	"flag"
	"fmt"
	"os"
	"time"
)

// CLIConfig holds command-line configuration.
type CLIConfig struct {
	ConfigPath      string
	LocalIP         string
	RobotURL        string
	LogLevel        string
	LogFormat       string
	MetricsPort     int
	Record          bool
	Say             string
	Gait            int
	ShutdownTimeout time.Duration
	ShowVersion     bool
	ShowHelp        bool
}

func parseFlags() *CLIConfig {
	cfg := &CLIConfig{}

	flag.StringVar(&cfg.ConfigPath, "config",
		getEnv("MAGICBOT_CONFIG", ""),
		"Path to configuration file (env: MAGICBOT_CONFIG)")

	flag.StringVar(&cfg.LocalIP, "local-ip",
		getEnv("MAGICBOT_ROBOT_LOCAL_IP", ""),
		"Host IP on the robot's network (env: MAGICBOT_ROBOT_LOCAL_IP)")

	flag.StringVar(&cfg.RobotURL, "url",
		getEnv("MAGICBOT_ROBOT_URL", ""),
		"Robot broker endpoint, overrides config (env: MAGICBOT_ROBOT_URL)")

	flag.StringVar(&cfg.LogLevel, "log-level",
		getEnv("MAGICBOT_LOG_LEVEL", "info"),
		"Log level: debug, info, warn, error (env: MAGICBOT_LOG_LEVEL)")

	flag.StringVar(&cfg.LogFormat, "log-format",
		getEnv("MAGICBOT_LOG_FORMAT", "text"),
		"Log format: json, text (env: MAGICBOT_LOG_FORMAT)")

	flag.IntVar(&cfg.MetricsPort, "metrics-port",
		getEnvInt("MAGICBOT_METRICS_PORT", 0),
		"Prometheus metrics port, 0 to disable (env: MAGICBOT_METRICS_PORT)")

	flag.BoolVar(&cfg.Record, "record",
		getEnvBool("MAGICBOT_RECORDER_ENABLED", false),
		"Record telemetry to JetStream (env: MAGICBOT_RECORDER_ENABLED)")

	flag.StringVar(&cfg.Say, "say", "",
		"Speak a phrase through the robot's TTS after connecting")

	flag.IntVar(&cfg.Gait, "gait", -1,
		"Switch to a gait mode after connecting, -1 to skip (e.g. 46 balance stand)")

	flag.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout",
		getEnvDuration("MAGICBOT_SHUTDOWN_TIMEOUT", 15*time.Second),
		"Graceful shutdown timeout (env: MAGICBOT_SHUTDOWN_TIMEOUT)")

	flag.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")
	flag.BoolVar(&cfg.ShowHelp, "help", false, "Show help")

	flag.Parse()
	return cfg
}

func validateFlags(cfg *CLIConfig) error {
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q", cfg.LogLevel)
	}
	switch cfg.LogFormat {
	case "json", "text":
	default:
		return fmt.Errorf("invalid log format %q", cfg.LogFormat)
	}
	if cfg.MetricsPort < 0 || cfg.MetricsPort > 65535 {
		return fmt.Errorf("invalid metrics port %d", cfg.MetricsPort)
	}
	return nil
}

func printHelp() {
	fmt.Printf("%s - MagicBot Z1 control demo\n\n", appName)
	fmt.Println("Connects to a Z1 robot, prints its state and streams odometry")
	fmt.Println("until interrupted. SIGINT shuts the SDK down cleanly.")
	fmt.Println()
	fmt.Println("Usage:")
	flag.PrintDefaults()
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	switch os.Getenv(key) {
	case "1", "true", "TRUE", "True":
		return true
	case "0", "false", "FALSE", "False":
		return false
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
