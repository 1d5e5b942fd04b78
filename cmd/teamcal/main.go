package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"teamcal/internal/config"
	"teamcal/internal/ics"
	appLog "teamcal/internal/log"
	"teamcal/internal/mapping"
	"teamcal/internal/pipeline"
)

// flagConfig holds CLI flag values.
type flagConfig struct {
	configPath string
	watch      bool
	months     int
}

func main() {
	appLog.Info("teamcal starting", "version", "0.1.0")

	flags, err := parseFlags()
	if err != nil {
		fmt.Fprintln(os.Stderr, "usage: teamcal [-config path] [-watch] [months]")
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}

	months := conf.DefaultMonths
	if flags.months > 0 {
		months = flags.months
	}

	if conf.Oracle.APIKey == "" {
		appLog.Error("no oracle API key configured", nil,
			"hint", "set oracle.api_key in the config or the ANTHROPIC_API_KEY environment variable")
		os.Exit(1)
	}

	appLog.Info("effective config",
		"timezone", conf.Timezone,
		"months", months,
		"employees_path", conf.EmployeesPath,
		"holiday_rules_path", conf.HolidayRulesPath,
		"output_dir", conf.OutputDir,
		"watch", flags.watch,
	)

	fetcher, err := ics.NewClient(conf.TrustAnchorCert, conf.FetchAttempts, time.Duration(conf.FetchTimeoutSeconds)*time.Second)
	if err != nil {
		appLog.Error("failed to build feed client", err)
		os.Exit(1)
	}
	oracle := mapping.NewAnthropicOracle(conf.Oracle.APIKey, conf.Oracle.Model, time.Duration(conf.Oracle.TimeoutSeconds)*time.Second)
	p := pipeline.New(conf, fetcher, oracle)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	runOnce := func() error {
		start, end, err := reportRange(conf.Timezone, months)
		if err != nil {
			return err
		}
		summary, err := p.Run(ctx, start, end)
		if err != nil {
			return err
		}
		for _, w := range summary.Warnings {
			appLog.Warn("run warning", "warning", w)
		}
		return nil
	}

	if !flags.watch {
		if err := runOnce(); err != nil {
			appLog.Error("run failed", err)
			os.Exit(1)
		}
		return
	}

	// Watch mode: run immediately, then on the configured cron schedule
	// until interrupted. A failed scheduled run logs and waits for the
	// next tick rather than killing the process.
	if err := runOnce(); err != nil {
		appLog.Error("initial run failed", err)
	}
	c := cron.New()
	_, err = c.AddFunc(conf.RefreshCron, func() {
		if err := runOnce(); err != nil {
			appLog.Error("scheduled run failed", err)
		}
	})
	if err != nil {
		appLog.Error("invalid refresh schedule", err, "refresh", conf.RefreshCron)
		os.Exit(1)
	}
	c.Start()
	appLog.Info("watch mode active", "refresh", conf.RefreshCron)

	<-ctx.Done()
	<-c.Stop().Done()
	appLog.Info("teamcal exiting")
}

// reportRange derives the inclusive report range: the first day of the
// current month in the configured timezone through months months later.
func reportRange(timezone string, months int) (time.Time, time.Time, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid timezone %q: %w", timezone, err)
	}
	now := time.Now().In(loc)
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, months, -1)
	return start, end, nil
}

func parseFlags() (flagConfig, error) {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "config.yaml", "Path to config file")
	flag.BoolVar(&cfg.watch, "watch", false, "Keep running and regenerate on the configured cron schedule")

	flag.Parse()

	switch flag.NArg() {
	case 0:
	case 1:
		n, err := strconv.Atoi(flag.Arg(0))
		if err != nil || n <= 0 {
			return cfg, fmt.Errorf("months must be a positive integer, got %q", flag.Arg(0))
		}
		cfg.months = n
	default:
		return cfg, fmt.Errorf("at most one positional argument (months) is accepted")
	}
	return cfg, nil
}
