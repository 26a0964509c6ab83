// Package main implements z1ctl, a demo driver for the MagicBot Z1 SDK.
// It connects to a robot, reports its state and battery, streams odometry
// and optionally records telemetry to JetStream until interrupted.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/MagiclabRobotics/magicbot-z1-sdk/config"
	"github.com/MagiclabRobotics/magicbot-z1-sdk/metric"
	"github.com/MagiclabRobotics/magicbot-z1-sdk/natsclient"
	"github.com/MagiclabRobotics/magicbot-z1-sdk/record"
	"github.com/MagiclabRobotics/magicbot-z1-sdk/robot"
	"github.com/MagiclabRobotics/magicbot-z1-sdk/types"
)

const appName = "z1ctl"

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		slog.Error("z1ctl failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cliCfg := parseFlags()
	if err := validateFlags(cliCfg); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}
	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, robot.Version)
		return nil
	}
	if cliCfg.ShowHelp {
		printHelp()
		return nil
	}

	logger := setupLogger(cliCfg.LogLevel, cliCfg.LogFormat)
	slog.SetDefault(logger)

	cfg, err := loadConfig(cliCfg)
	if err != nil {
		return err
	}

	registry := metric.NewMetricsRegistry()
	if cliCfg.MetricsPort > 0 {
		serveMetrics(registry, cliCfg.MetricsPort, logger)
	}

	bot := robot.New(
		robot.WithConfig(cfg),
		robot.WithLogger(logger),
		robot.WithMetrics(registry),
	)

	// SIGINT/SIGTERM shut the SDK down before the process exits. Shutdown
	// is bounded, so a second signal is never needed.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	if err := bot.Initialize(cfg.Robot.LocalIP); err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	defer bot.Shutdown()

	if st := bot.Connect(); !st.IsOK() {
		return fmt.Errorf("connect: %s", st)
	}
	logger.Info("connected", "url", cfg.Robot.URL, "sdk_version", bot.GetSDKVersion())

	if err := reportState(bot, logger); err != nil {
		return err
	}
	runDemos(bot, cliCfg, logger)

	stopRecorder, err := startRecorder(cfg, cliCfg, logger)
	if err != nil {
		return err
	}
	defer stopRecorder()

	if st := bot.SlamNav().OpenOdometryStream(); st.IsOK() {
		bot.SlamNav().SubscribeOdometry(func(o types.Odometry) {
			logger.Debug("odometry",
				"x", o.Position[0], "y", o.Position[1], "yaw_rate", o.AngularVelocity[2])
		})
		defer bot.SlamNav().CloseOdometryStream()
	} else {
		logger.Warn("odometry stream unavailable", "status", st.String())
	}

	logger.Info("running, press Ctrl-C to stop")
	sig := <-sigCh
	logger.Info("shutting down", "signal", sig.String(), "timeout", cliCfg.ShutdownTimeout)

	done := make(chan struct{})
	go func() {
		bot.Shutdown()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(cliCfg.ShutdownTimeout):
		logger.Error("shutdown timed out")
	}
	return nil
}

func loadConfig(cliCfg *CLIConfig) (*config.Config, error) {
	loader := config.NewLoader()
	if cliCfg.ConfigPath != "" {
		loader.AddLayer(cliCfg.ConfigPath)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	// CLI flags win over file and environment.
	if cliCfg.LocalIP != "" {
		cfg.Robot.LocalIP = cliCfg.LocalIP
	}
	if cliCfg.RobotURL != "" {
		cfg.Robot.URL = cliCfg.RobotURL
	}
	if cliCfg.Record {
		cfg.Recorder.Enabled = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func reportState(bot *robot.Robot, logger *slog.Logger) error {
	state, st := bot.Monitor().GetCurrentState()
	if !st.IsOK() {
		return fmt.Errorf("query robot state: %s", st)
	}

	logger.Info("robot state",
		"battery_pct", state.BmsData.BatteryPercentage,
		"faults", len(state.Faults))
	for _, f := range state.Faults {
		logger.Warn("active fault",
			"code", fmt.Sprintf("0x%04X", f.ErrorCode),
			"description", types.FaultDescription(f.ErrorCode))
	}
	return nil
}

// runDemos performs the optional one-shot demo actions selected by flags.
func runDemos(bot *robot.Robot, cliCfg *CLIConfig, logger *slog.Logger) {
	if cliCfg.Say != "" {
		st := bot.Audio().Play(types.TtsCommand{
			Content:  cliCfg.Say,
			Priority: types.TtsPriorityMiddle,
			Mode:     types.TtsModeAdd,
		})
		if !st.IsOK() {
			logger.Warn("tts playback failed", "status", st.String())
		}
	}
	if cliCfg.Gait >= 0 {
		st := bot.HighLevelMotion().SetGait(types.GaitMode(cliCfg.Gait))
		if !st.IsOK() {
			logger.Warn("gait switch failed", "gait", cliCfg.Gait, "status", st.String())
		}
	}
}

// startRecorder wires telemetry recording when enabled. The recorder needs
// the JetStream surface, so it runs on its own client connection rather
// than going through the Robot facade.
func startRecorder(cfg *config.Config, cliCfg *CLIConfig, logger *slog.Logger) (func(), error) {
	if !cfg.Recorder.Enabled {
		return func() {}, nil
	}

	client, err := natsclient.NewClient(cfg.Robot.URL,
		natsclient.WithLocalIP(cfg.Robot.LocalIP),
		natsclient.WithName(cfg.Robot.Name+"-recorder"),
	)
	if err != nil {
		return nil, fmt.Errorf("create recorder transport: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Link.ConnectTimeout)
	defer cancel()
	if err := client.Connect(ctx); err != nil {
		return nil, fmt.Errorf("connect recorder: %w", err)
	}

	rec := record.New(client, cfg.Recorder, record.WithLogger(logger))
	if err := rec.Start(context.Background()); err != nil {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), cfg.Link.DrainTimeout)
		defer closeCancel()
		_ = client.Close(closeCtx)
		return nil, fmt.Errorf("start recorder: %w", err)
	}

	return func() {
		rec.Stop()
		closeCtx, closeCancel := context.WithTimeout(context.Background(), cliCfg.ShutdownTimeout)
		defer closeCancel()
		_ = client.Close(closeCtx)
	}, nil
}

func serveMetrics(registry *metric.MetricsRegistry, port int, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", registry.Handler())
	addr := fmt.Sprintf(":%d", port)
	go func() {
		logger.Info("serving metrics", "addr", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Error("metrics server stopped", "error", err)
		}
	}()
}
