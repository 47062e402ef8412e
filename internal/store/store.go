package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"kds-display-backend/internal/model"
)

// ErrNotFound is returned by KV.Get when a key has never been written.
var ErrNotFound = errors.New("store: key not found")

// KV is a namespaced byte store used for device-local state.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Store defines the interface for all database operations.
type Store interface {
	KV
	ReplaceSubscription(ctx context.Context, sub model.PushSubscription, displayIDs []int64) error
	GetSubscription(ctx context.Context, endpoint string) (*model.PushSubscription, error)
	DeleteSubscription(ctx context.Context, endpoint string) error
	SubscriptionsForDisplay(ctx context.Context, displayID int64) ([]model.PushSubscription, error)
	DB() *gorm.DB
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

// Get reads a single key.
func (s *gormStore) Get(ctx context.Context, key string) ([]byte, error) {
	var entry model.KVEntry
	err := s.db.WithContext(ctx).Where(&model.KVEntry{Key: key}).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read key %q: %w", key, err)
	}
	return []byte(entry.Value), nil
}

// Set upserts a single key.
func (s *gormStore) Set(ctx context.Context, key string, value []byte) error {
	entry := model.KVEntry{Key: key, Value: string(value), UpdatedAt: time.Now().UTC()}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
	if err != nil {
		return fmt.Errorf("failed to write key %q: %w", key, err)
	}
	return nil
}

// ReplaceSubscription upserts a subscription and replaces the displays it follows.
func (s *gormStore) ReplaceSubscription(ctx context.Context, sub model.PushSubscription, displayIDs []int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		record := model.PushSubscription{Endpoint: sub.Endpoint, P256DH: sub.P256DH, Auth: sub.Auth}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "endpoint"}},
			DoUpdates: clause.AssignmentColumns([]string{"p256dh", "auth"}),
		}).Omit("Displays").Create(&record).Error; err != nil {
			return fmt.Errorf("failed to upsert subscription: %w", err)
		}

		if err := tx.Where("endpoint = ?", sub.Endpoint).Delete(&model.SubscriptionDisplay{}).Error; err != nil {
			return fmt.Errorf("failed to clear subscription displays: %w", err)
		}

		if len(displayIDs) == 0 {
			return nil
		}
		rows := make([]model.SubscriptionDisplay, 0, len(displayIDs))
		seen := make(map[int64]bool, len(displayIDs))
		for _, id := range displayIDs {
			if seen[id] {
				continue
			}
			seen[id] = true
			rows = append(rows, model.SubscriptionDisplay{Endpoint: sub.Endpoint, DisplayID: id})
		}
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("failed to store subscription displays: %w", err)
		}
		return nil
	})
}

// GetSubscription returns the subscription and the displays it follows.
func (s *gormStore) GetSubscription(ctx context.Context, endpoint string) (*model.PushSubscription, error) {
	var sub model.PushSubscription
	err := s.db.WithContext(ctx).Preload("Displays").Where("endpoint = ?", endpoint).First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// DeleteSubscription removes a subscription and its display mappings.
func (s *gormStore) DeleteSubscription(ctx context.Context, endpoint string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("endpoint = ?", endpoint).Delete(&model.SubscriptionDisplay{}).Error; err != nil {
			return err
		}
		return tx.Where("endpoint = ?", endpoint).Delete(&model.PushSubscription{}).Error
	})
}

// SubscriptionsForDisplay lists the subscriptions following a display.
func (s *gormStore) SubscriptionsForDisplay(ctx context.Context, displayID int64) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	err := s.db.WithContext(ctx).
		Joins("JOIN subscription_displays sd ON sd.endpoint = push_subscriptions.endpoint").
		Where("sd.display_id = ?", displayID).
		Find(&subs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch subscriptions for display %d: %w", displayID, err)
	}
	return subs, nil
}
