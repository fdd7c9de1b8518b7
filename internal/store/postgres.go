package store

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"blog-sync/internal/model"
)

type postRow struct {
	Slug string    `gorm:"primaryKey"`
	View int64     `gorm:"not null;default:0"`
	Last time.Time `gorm:"not null"`
}

func (postRow) TableName() string { return "posts" }

func (r postRow) record() model.ViewRecord {
	return model.ViewRecord{Slug: r.Slug, View: r.View, LastUpdated: r.Last}
}

// PostgresStore keeps counters in Postgres through gorm.
type PostgresStore struct {
	db  *gorm.DB
	now func() time.Time
}

func OpenPostgres(dsn string) (*PostgresStore, error) {
	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             300 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormLogger,
	})
	if err != nil {
		return nil, errors.Wrap(err, "open postgres")
	}
	if err := db.AutoMigrate(&postRow{}); err != nil {
		return nil, errors.Wrap(err, "migrate posts")
	}
	return &PostgresStore{db: db, now: time.Now}, nil
}

func (s *PostgresStore) IncrementOrCreate(ctx context.Context, slug string) (model.ViewRecord, error) {
	if slug == "" {
		return model.ViewRecord{}, ErrEmptySlug
	}

	now := s.now()
	row := postRow{Slug: slug, View: 1, Last: now}
	err := s.db.WithContext(ctx).Clauses(
		clause.OnConflict{
			Columns: []clause.Column{{Name: "slug"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"view": gorm.Expr("posts.view + 1"),
				"last": now,
			}),
		},
		clause.Returning{},
	).Create(&row).Error
	if err != nil {
		return model.ViewRecord{}, errors.Wrapf(err, "increment %q", slug)
	}
	return row.record(), nil
}

func (s *PostgresStore) GetOrCreateMany(ctx context.Context, slugs []string) ([]model.ViewRecord, error) {
	unique, err := uniqueSlugs(slugs)
	if err != nil {
		return nil, err
	}
	if len(unique) == 0 {
		return []model.ViewRecord{}, nil
	}

	found := make(map[string]model.ViewRecord, len(unique))
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.now()
		rows := make([]postRow, 0, len(unique))
		for _, slug := range unique {
			rows = append(rows, postRow{Slug: slug, Last: now})
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error; err != nil {
			return err
		}

		var existing []postRow
		if err := tx.Where("slug IN ?", unique).Find(&existing).Error; err != nil {
			return err
		}
		for _, r := range existing {
			found[r.Slug] = r.record()
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "get or create views")
	}
	return inOrder(unique, found)
}

func (s *PostgresStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
