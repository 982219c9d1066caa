package providers

import (
	"context"
	"fmt"

	"github.com/samber/do/v2"

	"github.com/purriosity/purriosity-server/internal/backend/postgrest"
	"github.com/purriosity/purriosity-server/internal/config"
	"github.com/purriosity/purriosity-server/internal/logger"
	"github.com/purriosity/purriosity-server/internal/media"
)

// MediaStorage holds the upload pipeline. Uploader is nil when the chosen
// driver has no usable credentials; Local is set for the local driver so
// the HTTP server can serve the files.
type MediaStorage struct {
	Uploader *media.Uploader
	Local    *media.LocalStore
}

// ProvideMediaStorage builds the object store selected by STORAGE_DRIVER.
func ProvideMediaStorage(i do.Injector) (*MediaStorage, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	uploadLog := log.Component("uploads")

	switch cfg.Storage.Driver {
	case config.StorageLocal:
		local, err := media.NewLocalStore(cfg.Storage.LocalPath, cfg.Storage.LocalURL)
		if err != nil {
			return nil, err
		}
		log.Info("Media storage initialized", "driver", "local", "path", cfg.Storage.LocalPath)
		return &MediaStorage{Uploader: media.NewUploader(local, 0, uploadLog), Local: local}, nil

	case config.StorageS3:
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Backend.Timeout)
		defer cancel()
		store, err := media.NewS3Store(ctx, media.S3Options{
			Bucket:    cfg.Storage.Bucket,
			Region:    cfg.Storage.S3Region,
			Endpoint:  cfg.Storage.S3Endpoint,
			AccessKey: cfg.Storage.S3AccessKey,
			SecretKey: cfg.Storage.S3SecretKey,
			PublicURL: cfg.Storage.S3PublicURL,
		})
		if err != nil {
			return nil, fmt.Errorf("init s3 storage: %w", err)
		}
		log.Info("Media storage initialized", "driver", "s3", "bucket", cfg.Storage.Bucket)
		return &MediaStorage{Uploader: media.NewUploader(store, 0, uploadLog)}, nil

	default:
		if !cfg.Backend.Usable() {
			log.Warn("backend credentials missing, uploads are disabled")
			return &MediaStorage{}, nil
		}
		store := postgrest.NewStorage(postgrest.Options{
			BaseURL: cfg.Backend.URL,
			AnonKey: cfg.Backend.AnonKey,
			Timeout: cfg.Backend.Timeout,
			Logger:  uploadLog,
		}, cfg.Storage.Bucket)
		log.Info("Media storage initialized", "driver", "backend", "bucket", cfg.Storage.Bucket)
		return &MediaStorage{Uploader: media.NewUploader(store, 0, uploadLog)}, nil
	}
}
