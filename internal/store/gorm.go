package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/suteetoe/storefront/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RecordRow is the table every gorm-backed collection shares. Records are kept
// as JSON documents so the schema does not follow the model structs.
type RecordRow struct {
	Collection string    `gorm:"primaryKey;type:varchar(64)"`
	ID         string    `gorm:"primaryKey;type:varchar(64)"`
	Data       []byte    `gorm:"type:jsonb;not null"`
	CreatedAt  time.Time `gorm:"index"`
	UpdatedAt  time.Time
}

// TableName implements gorm's tabler interface
func (RecordRow) TableName() string {
	return "records"
}

// GormCollection stores one collection in the records table. Unique keys are
// claimed by a reservation row in the "<name>:unique" collection, so the
// composite primary key enforces them.
type GormCollection[T Record] struct {
	db   *gorm.DB
	name string
}

func (g *GormCollection[T]) reservation(key, id string) RecordRow {
	data, _ := json.Marshal(map[string]string{"id": id})
	return RecordRow{Collection: g.name + ":unique", ID: key, Data: data}
}

func (g *GormCollection[T]) releaseKey(tx *gorm.DB, key string) error {
	if key == "" {
		return nil
	}
	return tx.Where("collection = ? AND id = ?", g.name+":unique", key).Delete(&RecordRow{}).Error
}

func (g *GormCollection[T]) claimKey(tx *gorm.DB, key, id string) error {
	if key == "" {
		return nil
	}
	row := g.reservation(key, id)
	return tx.Create(&row).Error
}

// NewGormCollection returns the named collection backed by db
func NewGormCollection[T Record](db *gorm.DB, name string) *GormCollection[T] {
	return &GormCollection[T]{db: db, name: name}
}

// NewGormStores migrates the records table and opens the collections
func NewGormStores(db *gorm.DB) (*Stores, error) {
	if err := db.AutoMigrate(&RecordRow{}); err != nil {
		return nil, fmt.Errorf("failed to run database migrations: %w", err)
	}

	return &Stores{
		Users:  instrument[model.User](CollectionUsers, NewGormCollection[model.User](db, CollectionUsers)),
		Orders: instrument[model.Order](CollectionOrders, NewGormCollection[model.Order](db, CollectionOrders)),
		Carts:  instrument[model.Cart](CollectionCarts, NewGormCollection[model.Cart](db, CollectionCarts)),
		closeFn: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	}, nil
}

func (g *GormCollection[T]) rows(ctx context.Context) ([]RecordRow, error) {
	var rows []RecordRow
	err := g.db.WithContext(ctx).
		Where("collection = ?", g.name).
		Order("created_at").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", g.name, err)
	}
	return rows, nil
}

func decodeRow[T Record](row RecordRow) (T, error) {
	var rec T
	if err := json.Unmarshal(row.Data, &rec); err != nil {
		return rec, fmt.Errorf("failed to decode %s/%s: %w", row.Collection, row.ID, err)
	}
	return rec, nil
}

// Get implements Collection
func (g *GormCollection[T]) Get(ctx context.Context, id string) (T, bool, error) {
	var (
		zero T
		row  RecordRow
	)
	err := g.db.WithContext(ctx).
		Where("collection = ? AND id = ?", g.name, id).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, fmt.Errorf("failed to load %s/%s: %w", g.name, id, err)
	}
	rec, err := decodeRow[T](row)
	if err != nil {
		return zero, false, err
	}
	return rec, true, nil
}

// Find implements Collection
func (g *GormCollection[T]) Find(ctx context.Context, pred func(T) bool) (T, bool, error) {
	var zero T
	rows, err := g.rows(ctx)
	if err != nil {
		return zero, false, err
	}
	pred = matchAll(pred)
	for _, row := range rows {
		rec, err := decodeRow[T](row)
		if err != nil {
			return zero, false, err
		}
		if pred(rec) {
			return rec, true, nil
		}
	}
	return zero, false, nil
}

// List implements Collection
func (g *GormCollection[T]) List(ctx context.Context, pred func(T) bool) ([]T, error) {
	rows, err := g.rows(ctx)
	if err != nil {
		return nil, err
	}
	pred = matchAll(pred)
	out := make([]T, 0, len(rows))
	for _, row := range rows {
		rec, err := decodeRow[T](row)
		if err != nil {
			return nil, err
		}
		if pred(rec) {
			out = append(out, rec)
		}
	}
	return out, nil
}

// Insert implements Collection
func (g *GormCollection[T]) Insert(ctx context.Context, record T) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode %s/%s: %w", g.name, record.RecordID(), err)
	}

	row := RecordRow{Collection: g.name, ID: record.RecordID(), Data: data}
	err = g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := g.claimKey(tx, uniqueKeyOf(record), row.ID); err != nil {
			return err
		}
		return tx.Create(&row).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to insert %s/%s: %w", g.name, row.ID, err)
	}
	return nil
}

// Update implements Collection. The row is locked for the duration of the patch.
func (g *GormCollection[T]) Update(ctx context.Context, id string, patch func(*T)) (T, bool, error) {
	var (
		updated T
		found   bool
	)

	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row RecordRow
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("collection = ? AND id = ?", g.name, id).
			Take(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		rec, err := decodeRow[T](row)
		if err != nil {
			return err
		}
		oldKey := uniqueKeyOf(rec)
		patch(&rec)

		if newKey := uniqueKeyOf(rec); newKey != oldKey {
			if err := g.releaseKey(tx, oldKey); err != nil {
				return err
			}
			if err := g.claimKey(tx, newKey, id); err != nil {
				return err
			}
		}

		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		if err := tx.Model(&row).Update("data", data).Error; err != nil {
			return err
		}

		updated, found = rec, true
		return nil
	})
	if err != nil {
		var zero T
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return zero, false, ErrDuplicate
		}
		return zero, false, fmt.Errorf("failed to update %s/%s: %w", g.name, id, err)
	}
	return updated, found, nil
}

// Delete implements Collection. The record's unique key is released with it.
func (g *GormCollection[T]) Delete(ctx context.Context, id string) (bool, error) {
	var deleted bool
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row RecordRow
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("collection = ? AND id = ?", g.name, id).
			Take(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		rec, err := decodeRow[T](row)
		if err != nil {
			return err
		}
		if err := g.releaseKey(tx, uniqueKeyOf(rec)); err != nil {
			return err
		}
		result := tx.Where("collection = ? AND id = ?", g.name, id).Delete(&RecordRow{})
		if result.Error != nil {
			return result.Error
		}
		deleted = result.RowsAffected > 0
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to delete %s/%s: %w", g.name, id, err)
	}
	return deleted, nil
}
