package roadmap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

type itemRecord struct {
	ID            string     `gorm:"primaryKey;size:36"`
	UserID        string     `gorm:"size:255;not null;index:idx_roadmap_items_user_created,priority:1"`
	Title         string     `gorm:"size:255;not null"`
	Description   string     `gorm:"type:text"`
	Status        string     `gorm:"size:20;not null;default:pending"`
	Priority      string     `gorm:"size:10;not null;default:medium"`
	EstimatedTime string     `gorm:"size:100"`
	Skills        []string   `gorm:"serializer:json"`
	Resources     []Resource `gorm:"serializer:json"`
	Source        string     `gorm:"size:20;not null;default:user-added"`
	StepNumber    int
	CreatedAt     time.Time `gorm:"autoCreateTime:false;index:idx_roadmap_items_user_created,priority:2"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime:false"`
}

func (itemRecord) TableName() string {
	return "roadmap_items"
}

func toRecord(item Item) itemRecord {
	return itemRecord{
		ID:            item.ID,
		UserID:        item.UserID,
		Title:         item.Title,
		Description:   item.Description,
		Status:        string(item.Status),
		Priority:      string(item.Priority),
		EstimatedTime: item.EstimatedTime,
		Skills:        item.Skills,
		Resources:     item.Resources,
		Source:        string(item.Source),
		StepNumber:    item.StepNumber,
		CreatedAt:     item.CreatedAt,
		UpdatedAt:     item.UpdatedAt,
	}
}

func (r itemRecord) toItem() Item {
	return Item{
		ID:            r.ID,
		UserID:        r.UserID,
		Title:         r.Title,
		Description:   r.Description,
		Status:        Status(r.Status),
		Priority:      Priority(r.Priority),
		EstimatedTime: r.EstimatedTime,
		Skills:        r.Skills,
		Resources:     r.Resources,
		Source:        Source(r.Source),
		StepNumber:    r.StepNumber,
		CreatedAt:     r.CreatedAt.UTC(),
		UpdatedAt:     r.UpdatedAt.UTC(),
	}
}

// PostgresStore persists items via PostgreSQL using GORM.
type PostgresStore struct {
	db *gorm.DB
}

func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	if err = db.WithContext(ctx).AutoMigrate(&itemRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate roadmap items: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Create(ctx context.Context, item Item) error {
	record := toRecord(item)
	return s.db.WithContext(ctx).Create(&record).Error
}

func (s *PostgresStore) List(ctx context.Context, userID string) ([]Item, error) {
	var records []itemRecord

	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}

	result := make([]Item, 0, len(records))
	for _, record := range records {
		result = append(result, record.toItem())
	}
	return result, nil
}

func (s *PostgresStore) Count(ctx context.Context, userID string) (int, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&itemRecord{}).Where("user_id = ?", userID).Count(&count).Error
	return int(count), err
}

func (s *PostgresStore) find(db *gorm.DB, userID, id string) (itemRecord, error) {
	query := db.Where("id = ?", id)
	if userID != "" {
		query = query.Where("user_id = ?", userID)
	}

	var record itemRecord
	err := query.First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return itemRecord{}, ErrNotFound
	}
	return record, err
}

func (s *PostgresStore) Get(ctx context.Context, userID, id string) (Item, error) {
	record, err := s.find(s.db.WithContext(ctx), userID, id)
	if err != nil {
		return Item{}, err
	}
	return record.toItem(), nil
}

func (s *PostgresStore) Update(ctx context.Context, userID, id string, mutate func(*Item)) (Item, error) {
	var result Item

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		record, err := s.find(tx.Clauses(clause.Locking{Strength: "UPDATE"}), userID, id)
		if err != nil {
			return err
		}

		item := record.toItem()
		mutate(&item)

		updated := toRecord(item)
		if err = tx.Save(&updated).Error; err != nil {
			return err
		}

		result = item
		return nil
	})
	if err != nil {
		return Item{}, err
	}

	return result, nil
}

func (s *PostgresStore) Delete(ctx context.Context, userID, id string) error {
	query := s.db.WithContext(ctx).Where("id = ?", id)
	if userID != "" {
		query = query.Where("user_id = ?", userID)
	}

	res := query.Delete(&itemRecord{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
