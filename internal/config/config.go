// Package config loads runtime settings from the environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/tendant/bucket-thumbnailer/internal/img"
	"github.com/tendant/bucket-thumbnailer/internal/notify"
)

const (
	BackendS3    = "s3"
	BackendMinio = "minio"
)

type Storage struct {
	Backend string

	Region       string
	S3Endpoint   string
	UsePathStyle bool

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioUseSSL    bool
}

type Config struct {
	Storage   Storage
	Thumbnail img.ThumbnailSpec
	Routes    notify.RouteTable
	TaskName  string

	NATSURL      string
	EventSubject string
	WorkerQueue  string
	RunTimeout   time.Duration
	KafkaBrokers []string

	LogLevel slog.Level
}

func Load() (Config, error) {
	cfg := Config{
		Storage: Storage{
			Backend:        strings.ToLower(getenv("STORAGE_BACKEND", BackendS3)),
			Region:         getenv("AWS_REGION", "us-east-1"),
			S3Endpoint:     getenv("AWS_S3_ENDPOINT", ""),
			UsePathStyle:   getenvBool("AWS_S3_USE_PATH_STYLE", false),
			MinioEndpoint:  getenv("MINIO_ENDPOINT", "localhost:9000"),
			MinioAccessKey: getenv("MINIO_ACCESS_KEY", "minioadmin"),
			MinioSecretKey: getenv("MINIO_SECRET_KEY", "minioadmin"),
			MinioUseSSL:    getenvBool("MINIO_USE_SSL", false),
		},
		TaskName:     getenv("THUMBNAIL_TASK_NAME", notify.DefaultTaskName),
		NATSURL:      getenv("NATS_URL", "nats://127.0.0.1:4222"),
		EventSubject: getenv("EVENT_SUBJECT", "bucket.events"),
		WorkerQueue:  getenv("WORKER_QUEUE", "thumbnail-workers"),
		KafkaBrokers: parseList(getenv("KAFKA_BROKERS", "")),
	}

	switch cfg.Storage.Backend {
	case BackendS3, BackendMinio:
	default:
		return Config{}, fmt.Errorf("invalid STORAGE_BACKEND %q, expected s3 or minio", cfg.Storage.Backend)
	}

	cfg.Thumbnail = img.DefaultSpec()
	if edgesEnv := getenv("THUMBNAIL_EDGES", ""); edgesEnv != "" {
		edges, err := parseEdges(edgesEnv)
		if err != nil {
			return Config{}, fmt.Errorf("parse THUMBNAIL_EDGES: %w", err)
		}
		cfg.Thumbnail.Edges = edges
	}
	if v := getenv("THUMBNAIL_WORKING_EDGE", ""); v != "" {
		edge, err := strconv.Atoi(v)
		if err != nil || edge < 0 {
			return Config{}, fmt.Errorf("invalid THUMBNAIL_WORKING_EDGE %q", v)
		}
		cfg.Thumbnail.WorkingEdge = edge
	}
	quality, err := parsePositiveInt(getenv("THUMBNAIL_JPEG_QUALITY", strconv.Itoa(img.DefaultJPEGQuality)), "THUMBNAIL_JPEG_QUALITY")
	if err != nil {
		return Config{}, err
	}
	cfg.Thumbnail.JPEGQuality = quality
	if err := cfg.Thumbnail.Validate(); err != nil {
		return Config{}, err
	}

	cfg.Routes = notify.DefaultRoutes(getenv("THUMBNAIL_DEV_QUEUE_URL", ""))
	if routesEnv := getenv("THUMBNAIL_ROUTES", ""); routesEnv != "" {
		routes, err := notify.ParseRoutes(routesEnv)
		if err != nil {
			return Config{}, fmt.Errorf("parse THUMBNAIL_ROUTES: %w", err)
		}
		cfg.Routes = routes
	}
	for _, t := range cfg.Routes.Transports() {
		if t == notify.TransportKafka && len(cfg.KafkaBrokers) == 0 {
			return Config{}, fmt.Errorf("route uses kafka but KAFKA_BROKERS is empty")
		}
	}

	if v := getenv("WORKER_RUN_TIMEOUT", ""); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid WORKER_RUN_TIMEOUT: %w", err)
		}
		cfg.RunTimeout = d
	}

	level, err := parseLevel(getenv("LOG_LEVEL", "info"))
	if err != nil {
		return Config{}, err
	}
	cfg.LogLevel = level

	return cfg, nil
}

// NewLogger returns a text logger, or a JSON one when json is set, writing to
// stdout at level.
func NewLogger(level slog.Level, json bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if json {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid LOG_LEVEL %q: %w", s, err)
	}
	return level, nil
}

func parseEdges(edgesEnv string) ([]int, error) {
	var edges []int
	for _, part := range strings.Split(edgesEnv, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		edge, err := parsePositiveInt(part, "edge")
		if err != nil {
			return nil, err
		}
		edges = append(edges, edge)
	}
	if len(edges) == 0 {
		return nil, fmt.Errorf("no edges in '%s'", edgesEnv)
	}
	return edges, nil
}

func parseList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parsePositiveInt(value string, name string) (int, error) {
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	if v <= 0 {
		return 0, fmt.Errorf("%s must be greater than zero (got %d)", name, v)
	}
	return v, nil
}

func getenvBool(key string, defaultValue bool) bool {
	val := getenv(key, "")
	if val == "" {
		return defaultValue
	}
	return val == "true"
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}
