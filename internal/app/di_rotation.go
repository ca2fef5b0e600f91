package app

import (
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"golang.org/x/time/rate"

	"github.com/allisson/fieldcrypt/internal/config"
	"github.com/allisson/fieldcrypt/internal/database"
	rotationRepository "github.com/allisson/fieldcrypt/internal/rotation/repository"
	rotationUsecase "github.com/allisson/fieldcrypt/internal/rotation/usecase"
)

// RecordStore returns the record store for the configured database driver.
func (c *Container) RecordStore() (rotationUsecase.RecordStore, error) {
	var err error
	c.recordStoreInit.Do(func() {
		c.recordStore, err = c.initRecordStore()
		if err != nil {
			c.initErrors["recordStore"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["recordStore"]; exists {
		return nil, storedErr
	}
	return c.recordStore, nil
}

// ProgressStore returns the progress store selected by PROGRESS_STORE.
func (c *Container) ProgressStore() (rotationUsecase.ProgressStore, error) {
	var err error
	c.progressStoreInit.Do(func() {
		c.progressStore, err = c.initProgressStore()
		if err != nil {
			c.initErrors["progressStore"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["progressStore"]; exists {
		return nil, storedErr
	}
	return c.progressStore, nil
}

// BadgerDB returns the embedded database backing the badger progress store.
func (c *Container) BadgerDB() (*badger.DB, error) {
	var err error
	c.badgerDBInit.Do(func() {
		c.badgerDB, err = rotationRepository.OpenBadger(c.config.ProgressBadgerDir)
		if err != nil {
			c.initErrors["badgerDB"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["badgerDB"]; exists {
		return nil, storedErr
	}
	return c.badgerDB, nil
}

// RotationUseCase returns the rotation use case decorated with business metrics.
func (c *Container) RotationUseCase() (rotationUsecase.RotationUseCase, error) {
	var err error
	c.rotationUseCaseInit.Do(func() {
		c.rotationUseCase, err = c.initRotationUseCase()
		if err != nil {
			c.initErrors["rotationUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["rotationUseCase"]; exists {
		return nil, storedErr
	}
	return c.rotationUseCase, nil
}

// initRecordStore creates the record store based on the database driver.
func (c *Container) initRecordStore() (rotationUsecase.RecordStore, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for record store: %w", err)
	}

	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for record store: %w", err)
	}

	switch c.config.DBDriver {
	case database.DriverPostgres:
		return rotationRepository.NewPostgreSQLRecordStore(db, txManager), nil
	case database.DriverMySQL:
		return rotationRepository.NewMySQLRecordStore(db, txManager), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initProgressStore creates the progress store for the configured backend.
func (c *Container) initProgressStore() (rotationUsecase.ProgressStore, error) {
	switch c.config.ProgressStore {
	case config.ProgressStoreFile:
		return rotationRepository.NewFileProgressStore(c.config.ProgressFile), nil
	case config.ProgressStoreBadger:
		db, err := c.BadgerDB()
		if err != nil {
			return nil, fmt.Errorf("failed to get badger database for progress store: %w", err)
		}
		return rotationRepository.NewBadgerProgressStore(db), nil
	case config.ProgressStoreDatabase:
		db, err := c.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get database for progress store: %w", err)
		}
		switch c.config.DBDriver {
		case database.DriverPostgres:
			return rotationRepository.NewPostgreSQLProgressStore(db), nil
		case database.DriverMySQL:
			return rotationRepository.NewMySQLProgressStore(db), nil
		default:
			return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
		}
	default:
		return nil, fmt.Errorf("unsupported progress store: %s", c.config.ProgressStore)
	}
}

// initRotationUseCase creates the rotation use case with all its dependencies.
func (c *Container) initRotationUseCase() (rotationUsecase.RotationUseCase, error) {
	records, err := c.RecordStore()
	if err != nil {
		return nil, fmt.Errorf("failed to get record store for rotation use case: %w", err)
	}

	progress, err := c.ProgressStore()
	if err != nil {
		return nil, fmt.Errorf("failed to get progress store for rotation use case: %w", err)
	}

	stringCipher, err := c.StringCipher()
	if err != nil {
		return nil, fmt.Errorf("failed to get string cipher for rotation use case: %w", err)
	}

	binaryCipher, err := c.BinaryCipher()
	if err != nil {
		return nil, fmt.Errorf("failed to get binary cipher for rotation use case: %w", err)
	}

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for rotation use case: %w", err)
	}

	opts := []rotationUsecase.Option{
		rotationUsecase.WithBatchSize(c.config.RotationBatchSize),
		rotationUsecase.WithConcurrency(c.config.RotationConcurrency),
	}
	if c.config.RotationBatchesPerSec > 0 {
		opts = append(opts, rotationUsecase.WithLimiter(
			rate.NewLimiter(rate.Limit(c.config.RotationBatchesPerSec), 1),
		))
	}

	useCase := rotationUsecase.NewRotationUseCase(
		records,
		progress,
		stringCipher,
		binaryCipher,
		c.Logger(),
		opts...,
	)
	return rotationUsecase.NewRotationUseCaseWithMetrics(useCase, businessMetrics), nil
}
