package main

import (
	"context"
	"log"
	"os"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"

	"github.com/example/chatnest/modules/api"
	"github.com/example/chatnest/modules/broadcast"
	"github.com/example/chatnest/modules/chat"
	"github.com/example/chatnest/modules/photo"
	"github.com/example/chatnest/modules/wsserver"
)

func main() {
	log.Println("=== ChatNest - realtime group chat ===")

	cfg, err := LoadConfig()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Create mono application with embedded NATS JetStream
	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(cfg.ShutdownTimeout),
		mono.WithLogLevel(cfg.MonoLogLevel()),
		mono.WithLogFormat(mono.LogFormatText),
		mono.WithJetStreamStorageDir(cfg.JetStreamDir),
	)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}
	logger := app.Logger()

	// Create modules
	chatModule, err := chat.NewModule(chat.Settings{
		MaxMessages:      cfg.MaxMessages,
		HistoryReplay:    cfg.HistoryReplay,
		MaxMessageLength: cfg.MaxMessageLength,
		CensoredWords:    cfg.CensoredWordList(),
		CensorCharacter:  cfg.CensorRune(),
	}, logger.WithModule("chat"))
	if err != nil {
		log.Fatalf("Failed to create chat module: %v", err)
	}
	broadcastModule := broadcast.NewModule(logger.WithModule("broadcast"))
	photoModule := photo.NewModule(cfg.NATSURL, cfg.PhotoBucket, cfg.MaxPhotoBytes, logger.WithModule("photo"))
	apiModule := api.NewModule(api.Settings{
		Port:               cfg.Port,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		StaticDir:          cfg.StaticDir,
		MaxPhotoBytes:      cfg.MaxPhotoBytes,
		HistoryReplay:      cfg.HistoryReplay,
	}, logger.WithModule("api"))

	wsHandler := wsserver.NewHandler(chatModule.Hub(), broadcastModule.Clients(), wsserver.Settings{
		SendQueueSize:     cfg.SendQueueSize,
		PingInterval:      cfg.PingInterval,
		MessagesPerSecond: cfg.MessagesPerSecond,
		MessageBurst:      cfg.MessageBurst,
	}, logger.WithModule("wsserver"))

	// The hub and client set are not exposed via ServiceContainer, so they
	// are injected here.
	apiModule.SetChat(chatModule.Hub())
	apiModule.SetStats(broadcastModule.Stats())
	apiModule.SetWebSocketHandler(wsHandler)

	// Register modules with the framework.
	// - chat: presence, history and fan-out (EventEmitterModule)
	// - broadcast: client set and activity stats (EventConsumerModule)
	// - photo: photo storage (ServiceProviderModule)
	// - api: Fiber HTTP/WebSocket server, depends on photo
	app.Register(chatModule)
	app.Register(broadcastModule)
	app.Register(photoModule)
	app.Register(apiModule)

	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	printStartupInfo(cfg)

	// Graceful shutdown
	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				return app.Stop(ctx)
			},
		},
	)

	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	os.Exit(exitCode)
}

func printStartupInfo(cfg Config) {
	log.Println("")
	log.Println("Application started successfully!")
	log.Println("")
	log.Println("Architecture:")
	log.Println("  - HTTP Framework: Fiber with WebSocket support")
	log.Println("  - Event Bus: NATS JetStream (internal pubsub)")
	log.Printf("  - Photo storage: JetStream object store %q at %s", cfg.PhotoBucket, cfg.NATSURL)
	log.Println("")
	log.Println("Chat:")
	log.Printf("  - History: last %d messages, %d replayed on join", cfg.MaxMessages, cfg.HistoryReplay)
	if words := cfg.CensoredWordList(); len(words) > 0 {
		log.Printf("  - Moderation: %d censored words", len(words))
	}
	log.Println("")
	log.Printf("Endpoints (http://localhost:%s):", cfg.Port)
	log.Println("  GET    /health                 - Health check")
	log.Println("  GET    /ws                     - WebSocket chat")
	log.Println("  POST   /api/save_photo         - Upload a photo (data URL)")
	log.Println("  GET    /photos/:name           - Download a photo")
	log.Println("  GET    /api/v1/users           - Online users")
	log.Println("  GET    /api/v1/history?limit=N - Recent messages")
	log.Println("  GET    /api/v1/stats           - Activity counters")
	if cfg.StaticDir != "" {
		log.Printf("  GET    /                       - Static files from %s", cfg.StaticDir)
	}
	log.Println("")
	log.Println("Press Ctrl+C to shutdown")
}
