package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/benmeehan/pixie-bridge/internal/api"
	"github.com/benmeehan/pixie-bridge/internal/constants"
	"github.com/benmeehan/pixie-bridge/internal/devices"
	"github.com/benmeehan/pixie-bridge/internal/drawing"
	"github.com/benmeehan/pixie-bridge/internal/handlers"
	"github.com/benmeehan/pixie-bridge/internal/metrics_collectors"
	"github.com/benmeehan/pixie-bridge/internal/music"
	"github.com/benmeehan/pixie-bridge/internal/realtime"
	"github.com/benmeehan/pixie-bridge/internal/service_registry"
	"github.com/benmeehan/pixie-bridge/internal/services"
	"github.com/benmeehan/pixie-bridge/internal/store"
	"github.com/benmeehan/pixie-bridge/internal/utils"
	"github.com/benmeehan/pixie-bridge/pkg/jwt"
	"github.com/benmeehan/pixie-bridge/pkg/mqtt"
	"github.com/benmeehan/pixie-bridge/pkg/pairing"
	"github.com/benmeehan/pixie-bridge/pkg/s3"
)

func newLogger(level, format string, caller bool) zerolog.Logger {
	var log zerolog.Logger
	if format == "console" {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	} else {
		log = zerolog.New(os.Stdout)
	}
	ctx := log.With().Timestamp()
	if caller {
		ctx = ctx.Caller()
	}
	log = ctx.Logger()

	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return log.Level(lvl)
}

func main() {
	configFile := flag.String("config", "configs/config.yaml", "path to the configuration file")
	envFile := flag.String("env", ".env", "optional dotenv file with secrets")
	flag.Parse()

	// Load configuration from file
	config, err := utils.LoadConfig(*configFile, *envFile)
	if err != nil {
		bootstrap := newLogger("info", "json", false)
		bootstrap.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := newLogger(config.Log.Level, config.Log.Format, config.Log.Caller)

	if err := config.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	// Generate a unique MQTT Client ID by appending a UUID
	config.MQTT.ClientID = config.MQTT.ClientID + "-" + uuid.New().String()
	log.Info().Str("client_id", config.MQTT.ClientID).Msg("Using MQTT Client ID")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Datastore
	db, err := store.Open(ctx, config.Database.URL, config.Database.MaxOpenConns)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to the database")
	}
	defer db.Close()
	if config.Database.Migrate {
		if err := store.Migrate(ctx, db); err != nil {
			log.Fatal().Err(err).Msg("Failed to migrate the database")
		}
	}
	deviceStore := store.NewPostgresDeviceRepository(db)
	photoStore := store.NewPostgresPhotoRepository(db)
	firmwareStore := store.NewPostgresFirmwareRepository(db)
	credentialStore := store.NewPostgresCredentialRepository(db)
	userStore := store.NewPostgresUserRepository(db)
	drawingStore := store.NewPostgresDrawingRepository(db)

	// Object storage
	objectStorage := s3.NewObjectStorage()
	if err := objectStorage.Connect(config.Storage.Endpoint, config.Storage.AccessKey, config.Storage.SecretKey, config.Storage.UseSSL); err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to object storage")
	}

	// Initialize the shared MQTT connection. The broker publishes "offline" if we vanish.
	mqttClient := mqtt.NewMqttService()
	err = mqttClient.Initialize(mqtt.Options{
		Broker:     config.MQTT.Broker,
		ClientID:   config.MQTT.ClientID,
		Username:   config.MQTT.Username,
		Password:   config.MQTT.Password,
		CACertPath: config.MQTT.CACertificate,
		KeepAlive:  config.MQTT.KeepAlive,
		Will: &mqtt.Will{
			Topic:    constants.ServerStatusTopic,
			Payload:  string(services.StatusPayload(constants.StatusOffline, time.Now())),
			QoS:      byte(config.Services.Heartbeat.QOS),
			Retained: true,
		},
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize MQTT connection")
	}
	defer mqttClient.Disconnect(250)

	codes, err := pairing.NewGenerator(config.Security.PairingSecret)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create pairing code generator")
	}
	tokens, err := jwt.NewValidator(config.Security.JWTSecret, config.Security.JWTIssuer, config.Security.JWTAudience)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create token validator")
	}

	pusher := devices.NewPusher(mqttClient, byte(config.MQTT.QOS), config.MQTT.PublishTimeout, log.With().Str("component", "pusher").Logger())
	deviceRegistry := devices.NewRegistry(deviceStore, photoStore, codes, pusher, log.With().Str("component", "devices").Logger())
	engine := drawing.NewEngine(config.DrawingConfig(), pusher, log.With().Str("component", "drawing").Logger())
	archive := drawing.NewArchive(drawingStore, deviceRegistry, engine, log.With().Str("component", "drawing").Logger())
	if config.Drawing.RestoreLatest {
		engine.SetLoader(archive)
	}
	player := music.NewSpotifyPlayer(config.Spotify.ClientID, config.Spotify.ClientSecret, credentialStore, log.With().Str("component", "music").Logger())

	requestHandlers := handlers.New(deviceRegistry, deviceStore, photoStore, firmwareStore, player, objectStorage, handlers.Options{
		PhotoBucket:    config.Storage.PhotoBucket,
		FirmwareBucket: config.Storage.FirmwareBucket,
		PresignExpiry:  config.Storage.PresignExpiry,
	}, log.With().Str("component", "handlers").Logger())

	hub := realtime.NewHub(engine, deviceRegistry, realtime.Options{
		AccessTTL:   config.Drawing.AccessTTL,
		CheckOrigin: api.AllowedOrigins(config.HTTP.AllowedOrigins),
	}, log.With().Str("component", "realtime").Logger())

	gin.SetMode(gin.ReleaseMode)
	httpServer := api.NewServer(api.Options{
		Listen:         config.HTTP.Listen,
		ReadTimeout:    config.HTTP.ReadTimeout,
		WriteTimeout:   config.HTTP.WriteTimeout,
		AllowedOrigins: config.HTTP.AllowedOrigins,
		AdminKey:       config.Security.AdminKey,
	}, deviceRegistry, archive, hub, mqttClient, engine, tokens, userStore, log.With().Str("component", "http").Logger())

	// Status metrics
	metrics := metrics_collectors.NewMetricsRegistry()
	metrics.Register(&metrics_collectors.CPUMetricCollector{Logger: log}, &config.Metrics)
	metrics.Register(&metrics_collectors.MemoryMetricCollector{Logger: log}, &config.Metrics)
	metrics.Register(&metrics_collectors.ProcessMetricCollector{Logger: log}, &config.Metrics)
	metrics.Register(&metrics_collectors.GoroutineMetricCollector{}, &config.Metrics)
	metrics.Register(&metrics_collectors.SessionMetricCollector{Sessions: engine}, &config.Metrics)

	// Create a new service registry to manage services
	serviceRegistry := service_registry.NewServiceRegistry(mqttClient, metrics, log)

	chain, err := serviceRegistry.InitializeMiddlewares(config, requestHandlers.Table())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize middlewares")
	}

	if err := serviceRegistry.RegisterServices(config, service_registry.Components{
		Handler: chain,
		Drawing: engine,
		HTTP:    httpServer,
	}); err != nil {
		log.Fatal().Err(err).Msg("Failed to register services")
	}

	if err := serviceRegistry.StartServices(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start services")
	}
	log.Info().Msg("All services started successfully")

	// Handle graceful shutdown
	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)
	<-stopCh

	log.Info().Msg("Shutting down gracefully...")
	if err := serviceRegistry.StopServices(); err != nil {
		log.Error().Err(err).Msg("Some services did not stop cleanly")
	}
	hub.CloseAll()
}
