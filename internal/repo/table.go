package repo

import (
	"context"

	"gorm.io/gorm"
)

// table is the relational store client: generic row operations keyed by a
// uint primary key. Errors are raw gorm errors; repositories translate them.
type table[M any] struct {
	db *gorm.DB
}

func (t table[M]) insert(ctx context.Context, m *M) error {
	return t.db.WithContext(ctx).Create(m).Error
}

func (t table[M]) get(ctx context.Context, id uint) (*M, error) {
	var m M
	if err := t.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// list returns rows ordered by id; scopes narrow the query.
func (t table[M]) list(ctx context.Context, scopes ...func(*gorm.DB) *gorm.DB) ([]M, error) {
	var out []M
	err := t.db.WithContext(ctx).Scopes(scopes...).Order("id").Find(&out).Error
	return out, err
}

// update applies fields to row id and returns the row as stored afterwards.
func (t table[M]) update(ctx context.Context, id uint, fields map[string]any) (*M, error) {
	var m M
	err := t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&m, id).Error; err != nil {
			return err
		}
		if len(fields) == 0 {
			return nil
		}
		if err := tx.Model(&m).Updates(fields).Error; err != nil {
			return err
		}
		return tx.First(&m, id).Error
	})
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// delete removes row id and returns its prior state. A row removed by a
// concurrent delete between the read and the delete reports ErrRecordNotFound.
func (t table[M]) delete(ctx context.Context, id uint) (*M, error) {
	var m M
	err := t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&m, id).Error; err != nil {
			return err
		}
		res := tx.Delete(&m)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &m, nil
}
