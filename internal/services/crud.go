package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalidInput  = errors.New("invalid input")
)

// notFound maps gorm's sentinel onto ErrNotFound.
func notFound(err error, what string, id int) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %d: %w", what, id, ErrNotFound)
	}
	return err
}

// nextID returns max(column)+1 for tables with client-assigned keys.
func nextID(ctx context.Context, db *gorm.DB, model interface{}, column string) (int, error) {
	var max *int
	if err := db.WithContext(ctx).Model(model).Select("MAX(" + column + ")").Scan(&max).Error; err != nil {
		return 0, err
	}
	if max == nil {
		return 1, nil
	}
	return *max + 1, nil
}

// insertNew creates row under key column, assigning the next ID when id is 0.
// It runs in a transaction so concurrent creates cannot take the same key.
func insertNew(ctx context.Context, db *gorm.DB, model interface{}, column string, id *int, row interface{}) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if *id == 0 {
			next, err := nextID(ctx, tx, model, column)
			if err != nil {
				return err
			}
			*id = next
		} else {
			var n int64
			if err := tx.Model(model).Where(column+" = ?", *id).Count(&n).Error; err != nil {
				return err
			}
			if n > 0 {
				return fmt.Errorf("%s %d: %w", column, *id, ErrAlreadyExists)
			}
		}
		return tx.Create(row).Error
	})
}

// deleteByID removes one row, ErrNotFound when nothing matched.
func deleteByID(ctx context.Context, db *gorm.DB, model interface{}, what string, id int) error {
	res := db.WithContext(ctx).Delete(model, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%s %d: %w", what, id, ErrNotFound)
	}
	return nil
}
