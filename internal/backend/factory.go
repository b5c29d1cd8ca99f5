package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"fluxo/internal/amqp"
	"fluxo/internal/storage"
	"fluxo/internal/store"
	"fluxo/internal/store/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
	dial   func(url, exchange, queue string) (*amqp.Client, error)
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger, dial: amqp.NewClient}
}

// CreateBackend opens the configured store and, when AMQP_URL is set,
// connects the change-event broker.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		s   store.Store
		err error
	)
	switch config.Type {
	case SQLiteBackend:
		s, err = f.createSQLiteStore(config)
	case MemoryBackend:
		s = f.createMemoryStore(config)
	default:
		err = fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	broker, err := f.connectBroker(config)
	if err != nil {
		s.Close()
		return nil, err
	}

	return &BackendResult{
		Store:  s,
		Broker: broker,
		Cleanup: func() error {
			var errs []error
			if broker != nil {
				errs = append(errs, broker.Close())
			}
			errs = append(errs, s.Close())
			return errors.Join(errs...)
		},
	}, nil
}

func (f *DefaultFactory) createSQLiteStore(config Config) (store.Store, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	return repo, nil
}

func (f *DefaultFactory) createMemoryStore(config Config) store.Store {
	s := memory.NewFromFiles(config.DataDirectory)
	f.logger.Info("Initialized memory backend", "data_directory", config.DataDirectory)
	return s
}

func (f *DefaultFactory) connectBroker(config Config) (*amqp.Client, error) {
	if config.AMQPURL == "" {
		return nil, nil
	}
	client, err := f.dial(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
	if err != nil {
		if config.RequireBroker {
			return nil, fmt.Errorf("failed to connect to AMQP: %w", err)
		}
		f.logger.Warn("Failed to initialize AMQP client, continuing without change events", "error", err)
		return nil, nil
	}
	f.logger.Info("Initialized AMQP client",
		"exchange", config.AMQPExchange,
		"queue", config.AMQPQueue)
	return client, nil
}
