package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/l1jgo/simkernel/internal/config"
	coresys "github.com/l1jgo/simkernel/internal/core/system"
	"github.com/l1jgo/simkernel/internal/data"
	gonet "github.com/l1jgo/simkernel/internal/net"
	"github.com/l1jgo/simkernel/internal/persist"
	"github.com/l1jgo/simkernel/internal/pipeline"
	"github.com/l1jgo/simkernel/internal/scripting"
	"github.com/l1jgo/simkernel/internal/system"
	"github.com/l1jgo/simkernel/internal/world"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner(name string, tickRate time.Duration) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m             simkernel  v0.1.0             \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  │\033[0m        2D 粒子模擬核心 · Go 實作          \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1m模擬:\033[0m %s \033[90m(tick: %s)\033[0m\n\n", name, tickRate)
}

// displayWidth counts CJK runes as two columns.
func displayWidth(s string) int {
	w := 0
	for _, r := range s {
		if r > 0x7F {
			w += 2
		} else {
			w++
		}
	}
	return w
}

func printSection(title string) {
	lineLen := 46 - displayWidth(title) - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := 42 - displayWidth(label) - len(numStr)
	if dotsLen < 3 {
		dotsLen = 3
	}
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Main simulation logic ─────────────────────────────────────────

func run() error {
	// 1. Load config
	cfgPath := "config/simkernel.toml"
	if p := os.Getenv("SIMKERNEL_CONFIG"); p != "" {
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

	printBanner(cfg.Kernel.Name, cfg.Kernel.TickRate)

	// 3. Build the kernel and its grid
	k := world.NewKernel(world.Settings{
		TickRate: cfg.Kernel.TickRate,
		Collision: world.CollisionConfig{
			ExchangeDamping:      cfg.Collision.ExchangeDamping,
			StrongDamping:        cfg.Collision.StrongDamping,
			ModerateDamping:      cfg.Collision.ModerateDamping,
			Jitter:               cfg.Collision.Jitter,
			DuplicateOnCollision: cfg.Collision.DuplicateOnCollision,
		},
		Seed: cfg.Kernel.Seed,
	}, log)
	g := cfg.Grid
	if err := k.ConfigureGrid(g.MinX, g.MinY, g.MaxX, g.MaxY); err != nil {
		return fmt.Errorf("configure grid: %w", err)
	}

	// 4. Load archetypes and the scenario
	printSection("資料載入")

	archetypes, err := data.LoadArchetypes(cfg.Data.Archetypes)
	if err != nil {
		return fmt.Errorf("load archetypes: %w", err)
	}
	if err := archetypes.Apply(k.Pool()); err != nil {
		return fmt.Errorf("apply archetypes: %w", err)
	}
	printStat("物件原型", archetypes.Count())

	scenario, err := data.LoadScenario(cfg.Data.Scenario)
	if err != nil {
		return fmt.Errorf("load scenario: %w", err)
	}
	spawned, err := scenario.Apply(k)
	if err != nil {
		return fmt.Errorf("apply scenario: %w", err)
	}
	printStat("場景條目", scenario.Count())
	printStat("物件生成", spawned)
	fmt.Println()

	// 5. Force pipeline
	printSection("力場管線")

	var disp *pipeline.Dispatcher
	switch cfg.Pipeline.Kind {
	case "gravity":
		disp = pipeline.NewDispatcher(&pipeline.Gravity{
			G:         cfg.Pipeline.GravityConstant,
			Softening: cfg.Pipeline.Softening,
			Workers:   cfg.Pipeline.Workers,
		}, log)
		printOK("萬有引力管線就緒")
	case "script":
		engine, err := scripting.NewEngine(cfg.Pipeline.ScriptDir, log)
		if err != nil {
			return fmt.Errorf("lua engine: %w", err)
		}
		defer engine.Close()
		disp = pipeline.NewDispatcher(&pipeline.Script{Engine: engine}, log)
		printOK(fmt.Sprintf("Lua 力場腳本載入完成 (%s)", cfg.Pipeline.ScriptDir))
	default:
		printOK("未啟用力場管線")
	}
	if disp != nil {
		defer disp.Close()
	}
	fmt.Println()

	// 6. Optional persistence
	var persistence *system.PersistenceSystem
	if cfg.Persist.Enabled {
		printSection("資料庫")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		db, err := persist.NewDB(ctx, cfg.Database, log)
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer db.Close()
		printOK("PostgreSQL 連線成功")

		version, err := persist.RunMigrations(ctx, db.Pool, log)
		if err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		printOK(fmt.Sprintf("資料庫遷移完成 (版本 %d)", version))
		fmt.Println()

		runID := fmt.Sprintf("%s-%d", cfg.Kernel.Name, cfg.Kernel.StartTime)
		persistence = system.NewPersistenceSystem(k,
			persist.NewSnapshotRepo(db), persist.NewEventLogRepo(db),
			runID, cfg.Persist.SnapshotInterval, log)
		persistence.KeepSnapshots(cfg.Persist.KeepSnapshots)
	}

	// 7. Renderers: the log summary, plus the observer stream when enabled.
	renderer := system.MultiRenderer{&system.LogRenderer{Log: log, Every: 20}}
	var streamAddr string
	if cfg.Stream.Enabled {
		srv, err := gonet.NewServer(cfg.Stream.BindAddress, cfg.Stream.InQueueSize, cfg.Stream.OutQueueSize, log)
		if err != nil {
			return fmt.Errorf("stream listen: %w", err)
		}
		defer srv.Shutdown()
		srv.SetLimit(cfg.Stream.MaxObservers)
		go srv.AcceptLoop()

		stream := system.NewStreamRenderer(srv, cfg.Stream.Every, log)
		defer stream.Close()
		renderer = append(renderer, stream)
		streamAddr = srv.Addr().String()
	}

	// 8. Register systems; the runner orders them by phase.
	runner := coresys.NewRunner()
	runner.Register(system.NewEventDispatchSystem(k.Bus()))
	runner.Register(system.NewKinematicsSystem(k))
	if disp != nil {
		runner.Register(system.NewForceSubmitSystem(k, disp))
		runner.Register(system.NewForceApplySystem(k, disp, log))
	}
	runner.Register(system.NewRenderSystem(k, renderer))
	if persistence != nil {
		runner.Register(persistence)
	}
	cleanup := system.NewCleanupSystem(k, log)
	runner.Register(cleanup)

	// 9. Simulation loop
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.Kernel.TickRate)
	defer ticker.Stop()

	printSection("模擬就緒")
	if streamAddr != "" {
		printReady(fmt.Sprintf("觀察者串流 %s", streamAddr))
	}
	printReady(fmt.Sprintf("模擬迴圈啟動 (tick: %s)", cfg.Kernel.TickRate))
	if cfg.Kernel.MaxTicks > 0 {
		printReady(fmt.Sprintf("執行 %d tick 後停止", cfg.Kernel.MaxTicks))
	}
	fmt.Println()

	stop := func(reason string) {
		log.Info("模擬停止", zap.String("reason", reason), zap.Uint64("tick", k.Tick()), zap.Int("objects", k.Len()), zap.Uint64("disposed", cleanup.Disposed()))
		if persistence != nil {
			persistence.Flush()
		}
		if st := runner.Stats(); st.Overruns > 0 {
			log.Warn("tick 超出預算", zap.Uint64("overruns", st.Overruns), zap.Uint64("ticks", st.Ticks), zap.Duration("max", st.Max))
		}
		if disp != nil && disp.Skipped() > 0 {
			log.Info("力場批次略過", zap.Uint64("skipped", disp.Skipped()))
		}
	}

	for {
		select {
		case <-ticker.C:
			if !runner.Tick(cfg.Kernel.TickRate) {
				st := runner.Stats()
				log.Debug("tick 超時",
					zap.Uint64("tick", k.Tick()),
					zap.Duration("took", st.Last),
					zap.Duration("update", st.LastPhase[coresys.PhaseUpdate]),
					zap.Duration("render", st.LastPhase[coresys.PhaseRender]),
				)
			}
			if cfg.Kernel.MaxTicks > 0 && k.Tick() >= cfg.Kernel.MaxTicks {
				stop("max_ticks")
				return nil
			}
		case sig := <-shutdownCh:
			log.Info("收到關閉信號", zap.String("signal", sig.String()))
			stop("signal")
			return nil
		}
	}
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
