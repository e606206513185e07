package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"voxchat/audio"
	"voxchat/clients"
	"voxchat/config"
	"voxchat/export"
	"voxchat/models"
	"voxchat/pipeline"
	"voxchat/storage"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	cfg         *config.Config
	logger      *slog.Logger
	logLevel    = new(slog.LevelVar)
	ctx, cancel = context.WithCancel(context.Background())
	store       *storage.ProviderSQL
	sess        *session
	ctrl        *pipeline.Controller
	uploader    *export.S3Uploader
	registry    = prometheus.NewRegistry()
)

// GetLogLevel returns the current log level as a string
func GetLogLevel() string {
	switch logLevel.Level() {
	case slog.LevelDebug:
		return "Debug"
	case slog.LevelWarn:
		return "Warn"
	case slog.LevelError:
		return "Error"
	default:
		return "Info"
	}
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func setup(configPath string) error {
	var err error
	cfg, err = config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config %s: %w", configPath, err)
	}
	logfile, err := os.OpenFile(cfg.LogFile,
		os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file %s: %w", cfg.LogFile, err)
	}
	logLevel.Set(parseLogLevel(cfg.LogLevel))
	logger = slog.New(slog.NewTextHandler(logfile, &slog.HandlerOptions{Level: logLevel}))
	store, err = storage.NewProviderSQL(cfg.DBPATH, logger)
	if err != nil {
		return err
	}
	sess = newSession(logger, store)
	lastEntries := sess.loadOldConversationOrGetNew()
	opts := clients.Options{
		BaseURL: cfg.APIURL,
		Token:   cfg.OpenAIToken,
		Timeout: cfg.Timeout(),
	}
	if cfg.OpenAIToken == "" {
		logger.Warn("no api key configured, remote calls will be rejected")
	}
	var synth pipeline.Synthesizer
	s, err := clients.NewSynthesizer(logger, opts, clients.SynthOptions{
		Provider: cfg.TTS_PROVIDER,
		Model:    cfg.TTS_MODEL,
		Speed:    cfg.TTS_SPEED,
		Language: cfg.TTS_LANGUAGE,
	})
	if err != nil {
		logger.Warn("voice output unavailable", "error", err, "provider", cfg.TTS_PROVIDER)
	} else {
		synth = s
	}
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	pstore := pipeline.NewStore(cfg.TTS_ENABLED && synth != nil)
	pstore.Load(lastEntries)
	ctrl = pipeline.NewController(logger, pipeline.Deps{
		Recorder:    audio.NewRecorder(logger, audio.NewDefaultDevice(logger), cfg.STT_SR),
		Transcriber: clients.NewTranscriber(logger, opts, cfg.STT_MODEL),
		Chat:        clients.NewChat(logger, opts, cfg.ChatModel, cfg.MaxTokens, cfg.SysPrompt),
		Synthesizer: synth,
		Player:      audio.NewDefaultPlayer(logger),
		Sink:        sess,
		Store:       pstore,
		Metrics:     pipeline.NewMetrics(registry),
	}, pipeline.Options{
		Language:    cfg.STT_LANG,
		Voice:       cfg.TTS_VOICE,
		ChatHistory: cfg.ChatHistory,
	})
	if cfg.S3Enabled() {
		uploader, err = export.NewS3Uploader(logger, export.S3Options{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Secure:    cfg.S3Secure,
		})
		if err != nil {
			logger.Warn("s3 export disabled", "error", err)
			uploader = nil
		}
	}
	logger.Info("voxchat ready", "api", cfg.APIURL, "chat_model", cfg.ChatModel,
		"voice", pstore.VoiceOutput(), "entries", len(lastEntries))
	return nil
}

func shutdown() {
	cancel()
	if ctrl != nil {
		ctrl.Close()
	}
	if store != nil {
		if err := store.Close(); err != nil {
			logger.Warn("failed to close db", "error", err)
		}
	}
}

// toggleRecording starts a recording or finishes the running one.
func toggleRecording() {
	if ctrl.Store().State() != models.StateRecording {
		if err := ctrl.Start(); err != nil {
			logger.Warn("failed to start recording", "error", err)
		}
		return
	}
	go func() {
		if err := ctrl.Stop(ctx); err != nil {
			logger.Warn("failed to finish recording", "error", err)
		}
	}()
}

// exportLog writes the log to disk and, when configured, uploads it.
func exportLog() (string, error) {
	entries := ctrl.Store().Entries()
	path, err := export.WriteFile(cfg.ExportDir, entries)
	if err != nil {
		return "", err
	}
	if uploader == nil {
		return path, nil
	}
	link, err := uploader.Upload(ctx, "", entries)
	if err != nil {
		logger.Error("failed to upload log", "error", err)
		return path, nil
	}
	return link, nil
}
