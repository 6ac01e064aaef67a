package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"go-sentinel/internal/audit"
	"go-sentinel/internal/bot"
	"go-sentinel/internal/clock"
	"go-sentinel/internal/commands"
	"go-sentinel/internal/config"
	"go-sentinel/internal/engine"
	"go-sentinel/internal/exempt"
	"go-sentinel/internal/feed"
	"go-sentinel/internal/hierarchy"
	"go-sentinel/internal/logging"
	"go-sentinel/internal/metrics"
	"go-sentinel/internal/notifier"
	"go-sentinel/internal/sanction"
	"go-sentinel/internal/store"
	"go-sentinel/internal/strikes"
	"go-sentinel/internal/sweep"
	"go-sentinel/internal/watchdog"
	"go-sentinel/internal/window"
)

func main() {
	configPath := flag.String("config", "config.json", "path to the configuration file")
	flag.Parse()

	cfg := config.LoadOrDefault(*configPath)
	log := logging.New(cfg.Logging)
	defer log.Sync()

	if cfg.Bot.Token == "" {
		log.Fatal("no bot token configured (set bot.token or DISCORD_TOKEN)")
	}
	if !cfg.Engine.Enabled {
		log.Fatal("engine disabled in configuration, nothing to do")
	}

	if err := run(cfg, log); err != nil {
		log.Fatal("startup failed", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clk := clock.System()

	st, err := store.Open(cfg.Storage.Path)
	if err != nil {
		return err
	}
	defer st.Close()

	profiles := config.NewProfileStore()
	loaded, err := st.LoadProfiles()
	if err != nil {
		log.Warn("profile load failed, starting with defaults", zap.Error(err))
	}
	for _, p := range loaded {
		profiles.Replace(p)
	}
	profiles.SetPersister(st.SaveProfile)
	log.Info("profiles loaded", zap.Int("count", len(loaded)))

	ledger := strikes.NewLedger(st)
	cutoff := clk.Now().Add(-profiles.LongestStrikeExpiry())
	persisted, err := st.LoadStrikes(cutoff)
	if err != nil {
		log.Warn("strike load failed, starting empty", zap.Error(err))
	}
	ledger.Load(persisted)
	log.Info("strikes loaded", zap.Int("count", len(persisted)))

	rec := metrics.NewRecorder()

	oracle := exempt.NewOracle(cfg.Bot.OwnerIDs)
	guard := hierarchy.NewGuard(cfg.Bot.OwnerIDs)
	executor := sanction.NewRESTExecutor(cfg.Bot.Token, 4)
	escalator := sanction.NewEscalator(executor, oracle, guard, profiles, cfg.SanctionTimeout(), log.Named("sanction"))

	session, err := bot.New(cfg.Bot.Token, log.Named("bot"))
	if err != nil {
		return err
	}

	resolver := feed.NewStateResolver(session.Discord())
	reporter := notifier.New(session.Discord(), profiles, st, log.Named("notifier"))

	windows := window.NewCounter()
	eng := engine.New(clk, profiles, windows, ledger, oracle, escalator, resolver, reporter, rec, log.Named("engine"))

	fetcher := &audit.SessionFetcher{Session: session.Discord()}
	correlator := audit.NewCorrelator(fetcher, clk, log.Named("audit"), cfg.Engine.AuditRetries, cfg.AuditBackoff())

	gateway := feed.New(session.Discord(), eng, correlator, profiles, rec, clk, log.Named("feed"))

	tasks := sweep.NewTaskTable(resolver, log.Named("tasks"))
	scheduler := sweep.NewScheduler(cfg.SweepInterval(), clk, profiles, windows, ledger, tasks, rec, log.Named("sweep"))

	wd := watchdog.New(30*time.Second, log.Named("watchdog"))
	eng.SetHeartbeat(wd.Register("engine", 5*time.Minute))
	gateway.SetHeartbeat(wd.Register("feed", 10*time.Minute))
	scheduler.SetHeartbeat(wd.Register("sweeper", 2*cfg.SweepInterval()))

	gateway.Register(ctx)
	if err := session.Connect(); err != nil {
		return err
	}
	defer session.Close()

	handler := commands.NewHandler(session.Discord(), profiles, eng, escalator, resolver, oracle, wd, clk, log.Named("commands"))
	handler.Register()
	if err := session.RegisterCommands(cfg.Bot.ClientID, commands.Definitions()); err != nil {
		log.Error("command registration failed", zap.Error(err))
	}

	go scheduler.Run(ctx)
	go wd.Run(ctx)
	if cfg.Metrics.Enabled {
		go rec.Serve(ctx, cfg.Metrics.Addr, log.Named("metrics"))
		go rec.CollectProcessStats(ctx, 15*time.Second, log.Named("metrics"))
	}

	log.Info("sentinel running",
		zap.String("bot_id", session.BotID),
		zap.Duration("sweep_interval", cfg.SweepInterval()))

	<-ctx.Done()
	log.Info("shutting down")

	// Let in-flight sanction attempts and log writes drain.
	time.Sleep(500 * time.Millisecond)
	return nil
}
