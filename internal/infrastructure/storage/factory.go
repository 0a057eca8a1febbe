package storage

import (
	"fmt"

	"massdownloader/internal/application/ports"
	"massdownloader/internal/infrastructure/config"
	"massdownloader/internal/infrastructure/storage/adapters/fs"
	"massdownloader/internal/infrastructure/storage/adapters/s3"
)

type Factory struct {
	logger  ports.Logger
	metrics ports.Metrics
}

func NewFactory(obs ports.Observability) (*Factory, error) {
	logger, metrics, err := obs.ComponentsScoped("storage")
	if err != nil {
		return nil, err
	}
	return &Factory{
		logger:  logger,
		metrics: metrics,
	}, nil
}

// Create returns the mirror store selected by MIRROR_ADAPTER, or nil when
// mirroring is off
func (f *Factory) Create(cfg *config.Config) (ports.Storage, error) {
	switch cfg.Adapters.Mirror {
	case "":
		return nil, nil

	case "s3":
		f.logger.Info("Creating S3 storage adapter",
			"bucket", cfg.Storage.BucketOrPath,
			"region", cfg.Storage.S3.Region)
		return s3.New(&cfg.Storage, f.logger, f.metrics)

	case "filesystem":
		f.logger.Info("Creating filesystem storage adapter",
			"path", cfg.Storage.BucketOrPath)
		store, err := fs.NewStorage(cfg.Storage.BucketOrPath, f.logger, f.metrics)
		if err != nil {
			return nil, err
		}
		return store, nil

	default:
		return nil, fmt.Errorf("unsupported storage adapter: %s", cfg.Adapters.Mirror)
	}
}
