package main

import (
	"time"

	"egzersizlab/internal/capture"
	"egzersizlab/internal/catalog"
	"egzersizlab/internal/config"
	"egzersizlab/internal/database"
	logger "egzersizlab/internal/logging"
	"egzersizlab/internal/router"
	"egzersizlab/internal/session"
	"egzersizlab/internal/speech"

	"go.uber.org/zap"
)

func main() {
	// Initialize Logger
	log, err := logger.Init(".")
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer log.Sync()

	// Load configuration (watches the file for changes afterwards)
	if err := config.Init(".", log); err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	// Initialize Database
	database.Init(log)

	// Load the test catalog at startup
	cat, err := catalog.Load(config.Conf.Engine.CatalogPath)
	if err != nil {
		log.Fatal("Failed to load test catalog", zap.Error(err))
	}

	announcer := speech.New(config.Conf.Speech.Command, log)
	device := capture.NewFileDevice(config.Conf.Capture.DevicePath)

	store, err := capture.NewStore(&config.Conf.Storage)
	if err != nil {
		log.Fatal("Failed to initialize artifact storage", zap.Error(err))
	}

	ttl := time.Duration(config.Conf.Engine.SessionTTLMin) * time.Minute
	manager := session.NewManager(cat, ttl, log)
	if err := manager.StartJanitor(); err != nil {
		log.Fatal("Failed to start session janitor", zap.Error(err))
	}
	defer manager.StopJanitor()

	// Setup router, passing the logger to it
	r := router.Setup(log, router.Deps{
		Catalog:   cat,
		Manager:   manager,
		Device:    device,
		Store:     store,
		Announcer: announcer,
	})

	// Start the Gin server
	port := ":" + config.Conf.Server.Port
	log.Info("Server listening on http://localhost" + port)
	if err := r.Run(port); err != nil {
		log.Fatal("Failed to run Gin server", zap.Error(err))
	}
}
