package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/BrandonDHaskell/Portunus/locker/internal/config"
	"github.com/BrandonDHaskell/Portunus/locker/internal/console"
	"github.com/BrandonDHaskell/Portunus/locker/internal/db"
	"github.com/BrandonDHaskell/Portunus/locker/internal/httpapi"
	"github.com/BrandonDHaskell/Portunus/locker/internal/locker/bus"
	"github.com/BrandonDHaskell/Portunus/locker/internal/locker/hw"
	"github.com/BrandonDHaskell/Portunus/locker/internal/locker/service"
	"github.com/BrandonDHaskell/Portunus/locker/internal/locker/store"
	"github.com/BrandonDHaskell/Portunus/locker/internal/locker/store/memory"
	"github.com/BrandonDHaskell/Portunus/locker/internal/locker/store/sqlite"
)

func main() {
	envFile := flag.String("env-file", envOr("LOCKER_ENV_FILE", ".env"), "dotenv file loaded before reading LOCKER_* variables")
	configPath := flag.String("config", "", "optional TOML or YAML config file")
	flag.Parse()

	logger := newLogger("main")

	if err := config.LoadDotenv(*envFile); err != nil {
		logger.Fatalf("load %s: %v", *envFile, err)
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("config: %v", err)
	}

	if err := run(cfg, logger); err != nil {
		logger.Fatalf("%v", err)
	}
}

func run(cfg config.Config, logger *log.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Storage
	st, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()
	settings := service.NewSettings(st, newLogger("settings"))

	// Tasks, in tick order
	b := bus.New(cfg.QueueCapacity)
	sim := hw.NewSim(newLogger("hw"))

	session := service.NewPasswordSession(b, settings, service.PasswordSessionConfig{
		DigitTimeout:     cfg.DigitTimeout(),
		SelectionTimeout: cfg.SelectionTimeout(),
	}, newLogger("password"))
	doors := service.NewDoorCoordinator(b, sim, service.DoorTimings{
		MagnetDelay:   cfg.MagnetDelay(),
		ReengageDelay: cfg.ReengageDelay(),
	}, newLogger("doors"))
	childLock := service.NewChildLock(b, sim, cfg.ChildLockTimeout(), newLogger("childlock"))
	indicator := service.NewIndicator(newLogger("indicator"))
	light := service.NewLightTask(sim, settings, 0, newLogger("light"))

	sched := service.NewScheduler(b, service.NewSystemClock(), service.SchedulerConfig{
		Interval: cfg.TickInterval(),
	}, newLogger("scheduler"))
	sched.Register(session, doors, childLock, indicator, light)

	bootID := uuid.NewString()
	board := service.NewStatusBoard(bootID, service.StatusSources{
		Session:   session,
		Doors:     doors,
		ChildLock: childLock,
		Indicator: indicator,
		Light:     light,
		Drops:     b,
	})
	sched.Observe(board.Refresh)

	sched.Start(ctx)
	defer sched.Stop()
	logger.Printf("boot_id=%s storage=%s env=%s", bootID, cfg.Storage, cfg.Env)

	// HTTP
	srv := httpapi.NewServer(httpapi.Dependencies{
		Logger:    newLogger("http"),
		Addr:      cfg.HTTPAddr,
		Status:    board,
		RateLimit: cfg.RateLimit,
		RateBurst: cfg.RateBurst,
	})
	go func() {
		logger.Printf("listening on %s", cfg.HTTPAddr)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Printf("server error: %v", err)
			stop()
		}
	}()

	// gRPC health
	var health *healthServer
	if cfg.GRPCAddr != "" {
		health, err = newHealthServer(cfg.GRPCAddr, newLogger("grpc"))
		if err != nil {
			return err
		}
		go func() {
			if err := health.Serve(); err != nil {
				logger.Printf("grpc error: %v", err)
				stop()
			}
		}()
		go health.Watch(ctx, sched.Ticks, 5*cfg.TickInterval()+time.Second)
	}

	// Console
	var repl *REPL
	if cfg.Console {
		con := console.New(b, board.Current, settings, newLogger("console"))
		repl = NewREPL(con)
		go func() {
			repl.Run(ctx)
			stop()
		}()
	}

	<-ctx.Done()
	logger.Printf("shutting down")

	if repl != nil {
		repl.Close()
	}
	if health != nil {
		health.Stop()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	return nil
}

// openStore returns the configured record store and a func that releases
// it.
func openStore(ctx context.Context, cfg config.Config) (store.RecordStore, func(), error) {
	if cfg.Storage == "memory" {
		return memory.New(), func() {}, nil
	}

	sqlDB, err := db.Open(ctx, db.Config{Path: cfg.DBPath, Env: cfg.Env})
	if err != nil {
		return nil, nil, err
	}
	writer := db.NewWorker(sqlDB)
	closeFn := func() {
		writer.Close()
		_ = sqlDB.Close()
	}
	return sqlite.NewRecordStore(sqlDB, writer), closeFn, nil
}

func newLogger(component string) *log.Logger {
	return log.New(os.Stdout, "locker "+component+" ", log.LstdFlags|log.LUTC)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
