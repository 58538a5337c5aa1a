// Package config assembles a storycontent.Service from declarative server
// configuration, loadable from the environment.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chronicle/story-content/pkg/storycontent"
	"github.com/chronicle/story-content/pkg/storycontent/probe"
	repomemory "github.com/chronicle/story-content/pkg/storycontent/repo/memory"
	repopg "github.com/chronicle/story-content/pkg/storycontent/repo/postgres"
	fsstorage "github.com/chronicle/story-content/pkg/storycontent/storage/fs"
	memorystorage "github.com/chronicle/story-content/pkg/storycontent/storage/memory"
	s3storage "github.com/chronicle/story-content/pkg/storycontent/storage/s3"
)

// ServerConfig represents server configuration for the story-content service
type ServerConfig struct {
	Port        string `env:"PORT" env-default:"8080"`
	Environment string `env:"ENVIRONMENT" env-default:"development"`

	// Database configuration
	DatabaseType string `env:"DATABASE_TYPE" env-default:"memory"` // "memory", "postgres"
	DatabaseURL  string `env:"DATABASE_URL" env-default:""`

	// Storage configuration
	StorageType string `env:"STORAGE_TYPE" env-default:"memory"` // "memory", "fs", "s3"
	FSBaseDir   string `env:"FS_BASE_DIR" env-default:"./data/blobs"`

	S3 S3Config

	// Media probing
	FFmpegPath  string `env:"FFMPEG_PATH" env-default:"ffmpeg"`
	FFprobePath string `env:"FFPROBE_PATH" env-default:"ffprobe"`

	// Auth
	JWTSecret string `env:"JWT_SECRET" env-default:"dev-secret"`

	// Server options
	EnableEventLogging bool `env:"ENABLE_EVENT_LOGGING" env-default:"true"`
}

// S3Config represents configuration for the S3 storage backends. Video and
// gif media live in a separate bucket from all other media.
type S3Config struct {
	Endpoint        string `env:"AWS_S3_ENDPOINT" env-default:""`
	AccessKeyID     string `env:"AWS_ACCESS_KEY_ID" env-default:""`
	SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" env-default:""`
	Region          string `env:"AWS_S3_REGION" env-default:"us-east-1"`
	MediaBucket     string `env:"AWS_S3_MEDIA_BUCKET" env-default:"story-media"`
	VideoBucket     string `env:"AWS_S3_VIDEO_BUCKET" env-default:"story-video"`
	UsePathStyle    bool   `env:"AWS_S3_USE_PATH_STYLE" env-default:"false"`
	CreateBuckets   bool   `env:"AWS_S3_CREATE_BUCKETS" env-default:"false"`
}

// Load reads server configuration from the environment.
func Load() (*ServerConfig, error) {
	var cfg ServerConfig
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}
	if c.DatabaseType != "memory" && c.DatabaseType != "postgres" {
		return errors.New("database_type must be 'memory' or 'postgres'")
	}
	if c.DatabaseType == "postgres" && c.DatabaseURL == "" {
		return errors.New("database_url is required when using postgres")
	}
	switch c.StorageType {
	case "memory", "fs", "s3":
	default:
		return errors.New("storage_type must be 'memory', 'fs' or 's3'")
	}
	return nil
}

// BuildService wires the repository, blob stores, prober and event sink
// selected by the configuration into a ready service.
func (c *ServerConfig) BuildService(ctx context.Context, logger *slog.Logger) (storycontent.Service, error) {
	var repo storycontent.Repository
	switch c.DatabaseType {
	case "postgres":
		pool, err := pgxpool.New(ctx, c.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to create connection pool: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
		repo = repopg.NewWithPool(pool)
	default:
		repo = repomemory.New()
	}

	mediaStore, videoStore, err := c.buildStores()
	if err != nil {
		return nil, err
	}

	var sink storycontent.EventSink
	if c.EnableEventLogging {
		sink = storycontent.NewLogEventSink(logger)
	} else {
		sink = storycontent.NewNoopEventSink()
	}

	prober := probe.New(probe.Config{
		FFmpegPath:  c.FFmpegPath,
		FFprobePath: c.FFprobePath,
	})

	return storycontent.New(
		storycontent.WithRepository(repo),
		storycontent.WithBlobStore(storycontent.DefaultMediaBackend, mediaStore),
		storycontent.WithBlobStore(storycontent.DefaultVideoBackend, videoStore),
		storycontent.WithProber(prober),
		storycontent.WithEventSink(sink),
		storycontent.WithLogger(logger),
	)
}

func (c *ServerConfig) buildStores() (storycontent.BlobStore, storycontent.BlobStore, error) {
	switch c.StorageType {
	case "fs":
		media, err := fsstorage.New(fsstorage.Config{BaseDir: c.FSBaseDir + "/media"})
		if err != nil {
			return nil, nil, err
		}
		video, err := fsstorage.New(fsstorage.Config{BaseDir: c.FSBaseDir + "/video"})
		if err != nil {
			return nil, nil, err
		}
		return media, video, nil
	case "s3":
		media, err := s3storage.New(s3storage.Config{
			Endpoint:               c.S3.Endpoint,
			AccessKeyID:            c.S3.AccessKeyID,
			SecretAccessKey:        c.S3.SecretAccessKey,
			Region:                 c.S3.Region,
			Bucket:                 c.S3.MediaBucket,
			UsePathStyle:           c.S3.UsePathStyle,
			CreateBucketIfNotExist: c.S3.CreateBuckets,
		})
		if err != nil {
			return nil, nil, err
		}
		video, err := s3storage.New(s3storage.Config{
			Endpoint:               c.S3.Endpoint,
			AccessKeyID:            c.S3.AccessKeyID,
			SecretAccessKey:        c.S3.SecretAccessKey,
			Region:                 c.S3.Region,
			Bucket:                 c.S3.VideoBucket,
			UsePathStyle:           c.S3.UsePathStyle,
			CreateBucketIfNotExist: c.S3.CreateBuckets,
		})
		if err != nil {
			return nil, nil, err
		}
		return media, video, nil
	default:
		return memorystorage.New(), memorystorage.New(), nil
	}
}
