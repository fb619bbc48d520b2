package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"myfolio/internal/interfaces/scheduler"
	"myfolio/internal/shared/config"
	"myfolio/internal/shared/telemetry"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx := context.Background()

	// Telemetry (optional)
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.Init(ctx, telemetry.Config{
			ServiceName:  cfg.Telemetry.ServiceName,
			Environment:  cfg.Telemetry.Environment,
			OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
			MetricsPort:  cfg.Telemetry.MetricsPort,
		})
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				log.Printf("Error shutting down telemetry: %v", err)
			}
		}()
		log.Println("Telemetry initialized")
	}

	deps, err := NewDependencies(ctx, cfg)
	if err != nil {
		return err
	}
	defer deps.Close()

	deps.WorkerPool.Start()

	// Scheduler: daily token cleanup sweep.
	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		provider := func() ([]scheduler.Job, error) {
			return []scheduler.Job{
				scheduler.NewTokenCleanupJob(deps.TokenService, cfg.Tokens.CleanupThreshold),
			}, nil
		}

		sched, err = scheduler.NewScheduler(deps.WorkerPool, provider, cfg.Scheduler.ScheduleTimes)
		if err != nil {
			return err
		}
		sched.Start()

		if cfg.Scheduler.RunOnStartup {
			sched.RunNow()
		}
	} else {
		log.Println("Scheduler is disabled")
	}

	handler := SetupRoutes(deps, cfg)
	srv, redirectSrv := StartServers(NewServerConfigFromConfig(handler, cfg))

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	GracefulShutdown(srv, redirectSrv, sched, deps.WorkerPool, 30*time.Second)
	return nil
}
