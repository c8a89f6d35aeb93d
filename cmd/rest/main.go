package main

import (
	"context"
	"log"

	"paperchat-be/internal/bootstrap"
	"paperchat-be/internal/config"
	"paperchat-be/internal/server"
	"paperchat-be/internal/tracer"
	"paperchat-be/pkg/database"

	"gorm.io/gorm"
)

func main() {
	// 1. Initialize Tracer
	shutdownTracer := tracer.InitTracer()
	defer shutdownTracer(context.Background())

	// 2. Load Configuration
	cfg := config.Load()

	// 3. Initialize Database (optional: only needed for paper metadata)
	var gormDB *gorm.DB
	if cfg.Database.Connection != "" {
		var err error
		gormDB, err = database.NewGormDBFromDSN(cfg.Database.Connection)
		if err != nil {
			log.Panicf("Unable to connect to GORM DB: %v", err)
		}
	} else {
		log.Println("No database configured, paper metadata enrichment disabled")
	}

	// 4. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(gormDB, cfg)

	// 5. Start Background Services
	if err := container.Pipeline.Start(context.Background()); err != nil {
		log.Panicf("Unable to start ingestion pipeline: %v", err)
	}
	defer container.Pipeline.Close()

	// 6. Initialize and Run Server
	srv := server.New(cfg, container)
	log.Fatal(srv.Run())
}
