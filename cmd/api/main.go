package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"voicemailboard/internal/claim"
	"voicemailboard/internal/config"
	"voicemailboard/internal/handler"
	"voicemailboard/internal/metrics"
	"voicemailboard/internal/playback"
	"voicemailboard/internal/storage"
	"voicemailboard/internal/transcoder"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// @title        Voicemail Board API
// @version      1.0
// @description  # + 4자리 번호로 30초 음성 메시지를 남기고 재생하는 API
// @BasePath     /
func main() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("main(): invalid configuration: %v", err)
	}
	logrus.SetLevel(cfg.LogLevel)

	registry, uploadDir, err := openRegistry(context.Background(), cfg)
	if err != nil {
		logrus.Fatalf("main(): failed to open %s storage: %v", cfg.Backend, err)
	}
	defer func() {
		if err := registry.Close(); err != nil {
			logrus.Errorf("main(): failed to close storage: %v", err)
		}
	}()
	logrus.WithField("backend", cfg.Backend).Info("main(): storage ready")

	m := metrics.NewMetrics(prometheus.DefaultRegisterer)
	ffmpeg := transcoder.New(cfg.FFmpegPath, transcoder.DefaultMaxDuration)
	workflow, err := claim.NewWorkflow(registry, ffmpeg, cfg.TempDir, m)
	if err != nil {
		logrus.Fatalf("main(): %v", err)
	}
	resolver := playback.NewResolver(registry, m)

	h := handler.New(workflow, resolver, handler.Options{
		MaxUploadBytes: cfg.MaxUploadBytes,
		CaptureOptions: handler.CaptureOptions{MaxDuration: transcoder.DefaultMaxDuration, Metrics: m},
	})
	router := handler.NewRouter(h, handler.RouterOptions{
		UploadDir:        uploadDir,
		RecordRatePerMin: cfg.RecordRatePerMin,
		Gatherer:         prometheus.DefaultGatherer,
	})

	srv := &http.Server{Addr: cfg.Addr(), Handler: router}
	go func() {
		logrus.Infof("main(): server listening on %s", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("main(): server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("main(): shutting down")

	// 처리 중인 업로드 요청이 끝날 때까지 대기
	ctx, cancel := context.WithTimeout(context.Background(), 40*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logrus.Errorf("main(): forced shutdown: %v", err)
	}
}

// openRegistry returns the configured backend and, for local storage, the
// directory served under /uploads.
func openRegistry(ctx context.Context, cfg *config.Config) (storage.Registry, string, error) {
	switch cfg.Backend {
	case config.BackendDropbox:
		r, err := storage.NewDropboxRegistry(cfg.Dropbox)
		return r, "", err
	case config.BackendGCS:
		r, err := storage.NewGCSRegistry(ctx, cfg.GCS)
		return r, "", err
	}

	db, err := storage.OpenDB(cfg.DBPath)
	if err != nil {
		return nil, "", err
	}
	r, err := storage.NewLocalRegistry(db, cfg.UploadDir, "/uploads")
	if err != nil {
		db.Close()
		return nil, "", err
	}
	return r, cfg.UploadDir, nil
}
