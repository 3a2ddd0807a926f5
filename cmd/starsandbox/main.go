package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/starsandbox/server/internal/config"
	"github.com/starsandbox/server/internal/core/event"
	coresys "github.com/starsandbox/server/internal/core/system"
	"github.com/starsandbox/server/internal/data"
	"github.com/starsandbox/server/internal/debugdraw"
	"github.com/starsandbox/server/internal/handler"
	gonet "github.com/starsandbox/server/internal/net"
	"github.com/starsandbox/server/internal/persist"
	"github.com/starsandbox/server/internal/physics"
	"github.com/starsandbox/server/internal/protocol"
	"github.com/starsandbox/server/internal/scripting"
	"github.com/starsandbox/server/internal/system"
	"github.com/starsandbox/server/internal/world"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

var (
	bannerColor  = color.New(color.FgCyan, color.Bold)
	sectionColor = color.New(color.FgYellow)
	okColor      = color.New(color.FgGreen)
	dimColor     = color.New(color.FgHiBlack)
)

func printBanner(serverName string) {
	fmt.Println()
	bannerColor.Println("  ┌───────────────────────────────────────────┐")
	bannerColor.Print("  │")
	fmt.Printf("%-43s", centered(serverName, 43))
	bannerColor.Println("│")
	bannerColor.Println("  └───────────────────────────────────────────┘")
	fmt.Println()
}

func centered(s string, width int) string {
	pad := (width - len(s)) / 2
	if pad < 0 {
		return s
	}
	return strings.Repeat(" ", pad) + s
}

func printSection(title string) {
	lineLen := 46 - len(title) - 1
	if lineLen < 3 {
		lineLen = 3
	}
	sectionColor.Printf("  ── %s %s\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, value any) {
	val := fmt.Sprint(value)
	dotsLen := 42 - len(label) - len(val)
	if dotsLen < 3 {
		dotsLen = 3
	}
	fmt.Printf("  %s %s %s\n", label, dimColor.Sprint(strings.Repeat("·", dotsLen)), okColor.Sprint(val))
}

func printOK(msg string) {
	fmt.Printf("  %s %s\n", okColor.Sprint("✓"), msg)
}

func printReady(msg string) {
	fmt.Printf("  %s %s\n", okColor.Sprint("▶"), msg)
}

// ── Main server logic ─────────────────────────────────────────────

func run() error {
	// 1. Load config
	cfgPath := "config/server.toml"
	if p := os.Getenv("STARSANDBOX_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner(cfg.Server.Name)

	// 3. Scene: built-in layout, optional yaml override, optional Lua hook
	printSection("Scene")

	scene := data.DefaultScene()
	if cfg.Scene.Path != "" {
		scene, err = data.LoadScene(cfg.Scene.Path)
		if err != nil {
			return fmt.Errorf("load scene: %w", err)
		}
		printOK("scene file " + cfg.Scene.Path)
	}

	luaEngine, err := scripting.NewEngine(cfg.Scene.ScriptsDir, log)
	if err != nil {
		return fmt.Errorf("lua engine: %w", err)
	}
	scene, err = luaEngine.ApplyScene(scene)
	luaEngine.Close()
	if err != nil {
		return fmt.Errorf("scene script: %w", err)
	}
	printStat("Lua scripts", luaEngine.Count())
	printStat("Platforms", len(scene.Platforms))

	// 4. Physics world. Any failure here is fatal before the port opens.
	gravity := physics.Vec2{X: cfg.Simulation.GravityX, Y: cfg.Simulation.GravityY}
	physWorld, err := physics.New(scene, physics.Options{
		Gravity:        gravity,
		PixelsPerMeter: cfg.Simulation.PixelsPerMeter,
	})
	if err != nil {
		return fmt.Errorf("physics world: %w", err)
	}
	printStat("Bodies", physWorld.BodyCount())
	printStat("Gravity", fmt.Sprintf("(%g, %g)", gravity.X, gravity.Y))
	fmt.Println()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 5. Event bus and optional connection journal
	bus := event.NewBus()
	event.Subscribe(bus, func(e event.DebugModeChanged) {
		log.Debug("debug mode applied", zap.Bool("active", e.Active), zap.Int("subscribers", e.Subscribers))
	})

	var journal *persist.Journal
	stopJournal := func() {}
	defer func() { stopJournal() }()
	if cfg.Database.DSN != "" {
		printSection("Database")
		db, err := openDB(cfg.Database, log)
		if err != nil {
			return err
		}
		defer db.Close()
		journal = persist.NewJournal(persist.NewJournalRepo(db), cfg.Database.JournalBuffer, cfg.Database.JournalFlush, log)
		persist.SubscribeJournal(bus, journal)
		// The journal outlives the signal context so shutdown disconnects
		// are still written.
		var journalCtx context.Context
		journalCtx, stopJournal = context.WithCancel(context.Background())
		go journal.Run(journalCtx)
		printOK("connection journal enabled")
		fmt.Println()
	}

	// 6. Protocol registry and handlers
	registry := world.NewRegistry()
	deps := &handler.Deps{
		Registry: registry,
		Scene:    scene,
		Bus:      bus,
		Log:      log,
	}
	protoReg := protocol.NewRegistry(log)
	handler.RegisterAll(protoReg, deps)
	lifecycle, err := handler.NewLifecycle(deps, protoReg)
	if err != nil {
		return err
	}

	// 7. Network server
	netServer := gonet.NewServer(gonet.SessionOptions{
		InQueueSize:       cfg.Network.InQueueSize,
		OutQueueSize:      cfg.Network.OutQueueSize,
		MessagesPerSecond: cfg.Network.MessagesPerSecond,
		ReadLimit:         cfg.Network.ReadLimit,
		WriteTimeout:      cfg.Network.WriteTimeout,
	}, cfg.Server.StaticDir, log)
	if err := netServer.Listen(cfg.ListenAddr()); err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	go func() {
		if err := netServer.Serve(); err != nil {
			log.Error("http server stopped", zap.Error(err))
		}
	}()

	// 8. Systems, registered out of order on purpose: the runner sorts by phase.
	sessStore := gonet.NewSessionStore()
	runner := coresys.NewRunner()
	input := system.NewInputSystem(netServer, sessStore, lifecycle, cfg.Network.MaxMessagesPerTick)
	runner.Register(input)
	runner.Register(system.NewEventDispatchSystem(bus))
	runner.Register(system.NewPhysicsSystem(physWorld, cfg.Simulation))
	runner.Register(system.NewBroadcastSystem(physWorld, registry, debugdraw.NewAggregator(cfg.Simulation.PixelsPerMeter, log), log))
	runner.Register(system.NewOutputSystem(sessStore))

	printSection("Server")
	printReady(fmt.Sprintf("listening on %s", netServer.Addr().String()))
	printReady(fmt.Sprintf("game loop (tick: %s, step: %gs)", cfg.Simulation.TickRate, cfg.Simulation.TimeStep))
	fmt.Println()

	// 9. Game loop on this goroutine until a signal arrives
	scheduler := coresys.NewScheduler(runner, cfg.Simulation.TickRate, log)
	if err := scheduler.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	// 10. Shutdown: disconnect viewers through the lifecycle handler and
	// dispatch the resulting events once more so the journal sees them.
	closed := input.CloseAll()
	runner.TickPhase(coresys.PhasePreUpdate, cfg.Simulation.TickRate)
	log.Info("shutting down", zap.Int("sessions", closed))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := netServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
	if journal != nil {
		stopJournal()
		journal.Wait()
		if n := journal.Dropped(); n > 0 {
			log.Warn("journal entries dropped", zap.Uint64("count", n))
		}
	}
	log.Info("server stopped")
	return nil
}

// openDB connects to PostgreSQL and applies pending migrations.
func openDB(cfg config.DatabaseConfig, log *zap.Logger) (*persist.DB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := persist.NewDB(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	printOK("PostgreSQL connected")

	version, err := persist.RunMigrations(ctx, db.Pool, log)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}
	printStat("Journal schema", version)
	return db, nil
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
