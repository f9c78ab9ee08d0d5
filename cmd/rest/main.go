package main

import (
	"context"
	"log"

	"ai-research-agent-be/internal/bootstrap"
	"ai-research-agent-be/internal/config"
	"ai-research-agent-be/internal/server"
	"ai-research-agent-be/internal/tracer"
	"ai-research-agent-be/pkg/database"

	"golang.org/x/sync/errgroup"
)

func main() {
	// 0. Initialize Tracer (no-op unless OTEL_ENABLED=true)
	shutdownTracer := tracer.InitTracer()
	defer shutdownTracer(context.Background())

	// 1. Load Configuration
	cfg := config.Load()

	// 2. Initialize Database
	gormDB, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		log.Panicf("Unable to connect to GORM DB: %v", err)
	}

	// 3. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(gormDB, cfg)

	// 4. Supervise Ingestion Worker + HTTP Server
	g, ctx := errgroup.WithContext(context.Background())

	g.Go(func() error {
		log.Println("Background: Starting Consumer Service...")
		return container.ConsumerService.Consume(ctx)
	})

	srv := server.New(cfg, container)
	g.Go(func() error {
		return srv.Run()
	})
	g.Go(func() error {
		<-ctx.Done()
		return srv.Shutdown()
	})

	if err := g.Wait(); err != nil {
		log.Fatalf("Server stopped: %v", err)
	}
}
