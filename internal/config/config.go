/**
* Name: 			config.go
* Description: 		.env 및 환경 변수에서 서버 설정을 읽어옴
* Backends: 		local(SQLite + 파일), dropbox, gcs
 */
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"voicemailboard/internal/storage"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const (
	BackendLocal   = "local"
	BackendDropbox = "dropbox"
	BackendGCS     = "gcs"
)

type Config struct {
	Port             string
	Backend          string
	DataDir          string
	DBPath           string
	UploadDir        string
	TempDir          string
	FFmpegPath       string
	MaxUploadBytes   int64
	RecordRatePerMin int
	LinkTTL          time.Duration
	LogLevel         logrus.Level

	Dropbox storage.DropboxConfig
	GCS     storage.GCSConfig
}

// Load reads .env (if any) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("Load(): failed to read .env: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function so tests can avoid the process env.
func FromEnv(getenv func(string) string) (*Config, error) {
	get := func(key, fallback string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return fallback
	}

	cfg := &Config{
		Port:       get("PORT", "8080"),
		Backend:    strings.ToLower(get("STORAGE_BACKEND", BackendLocal)),
		DataDir:    get("DATA_DIR", "data"),
		FFmpegPath: get("FFMPEG_PATH", "ffmpeg"),
	}
	cfg.DBPath = get("DB_PATH", filepath.Join(cfg.DataDir, "voicemail.db"))
	cfg.UploadDir = get("UPLOAD_DIR", filepath.Join(cfg.DataDir, "uploads"))
	cfg.TempDir = get("TEMP_DIR", filepath.Join(cfg.DataDir, "tmp"))

	var err error
	if cfg.MaxUploadBytes, err = strconv.ParseInt(get("MAX_UPLOAD_BYTES", "16777216"), 10, 64); err != nil || cfg.MaxUploadBytes <= 0 {
		return nil, fmt.Errorf("MAX_UPLOAD_BYTES must be a positive integer: %q", getenv("MAX_UPLOAD_BYTES"))
	}
	if cfg.RecordRatePerMin, err = strconv.Atoi(get("RECORD_RATE_PER_MIN", "10")); err != nil {
		return nil, fmt.Errorf("RECORD_RATE_PER_MIN must be an integer: %w", err)
	}
	if cfg.LinkTTL, err = time.ParseDuration(get("LINK_TTL", "15m")); err != nil || cfg.LinkTTL <= 0 {
		return nil, fmt.Errorf("LINK_TTL must be a positive duration: %q", getenv("LINK_TTL"))
	}
	if cfg.LogLevel, err = logrus.ParseLevel(get("LOG_LEVEL", "info")); err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}

	cfg.Dropbox = storage.DropboxConfig{
		AccessToken:  getenv("DROPBOX_ACCESS_TOKEN"),
		AppKey:       getenv("DROPBOX_APP_KEY"),
		AppSecret:    getenv("DROPBOX_APP_SECRET"),
		RefreshToken: getenv("DROPBOX_REFRESH_TOKEN"),
		Root:         get("DROPBOX_ROOT", "/voicemail"),
	}
	cfg.GCS = storage.GCSConfig{
		Bucket:          getenv("GCS_BUCKET"),
		Prefix:          getenv("GCS_PREFIX"),
		CredentialsFile: getenv("GOOGLE_APPLICATION_CREDENTIALS"),
		LinkTTL:         cfg.LinkTTL,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the selected backend has its credentials.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendLocal:
		return nil
	case BackendDropbox:
		d := c.Dropbox
		if d.AccessToken == "" && (d.AppKey == "" || d.AppSecret == "" || d.RefreshToken == "") {
			return errors.New("dropbox backend requires DROPBOX_ACCESS_TOKEN or DROPBOX_APP_KEY, DROPBOX_APP_SECRET and DROPBOX_REFRESH_TOKEN")
		}
		return nil
	case BackendGCS:
		if c.GCS.Bucket == "" {
			return errors.New("gcs backend requires GCS_BUCKET")
		}
		if c.GCS.CredentialsFile == "" {
			return errors.New("gcs backend requires GOOGLE_APPLICATION_CREDENTIALS")
		}
		return nil
	}
	return fmt.Errorf("unknown STORAGE_BACKEND %q (local, dropbox, gcs)", c.Backend)
}

func (c *Config) Addr() string {
	return ":" + c.Port
}
