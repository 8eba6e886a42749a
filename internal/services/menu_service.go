package services

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/yerevan-pricing/backend/internal/models"
)

// MenuFilter narrows menu item listings; price bounds apply to base_price.
type MenuFilter struct {
	RestaurantID *int
	CategoryID   *int
	Available    *bool
	MinPrice     *float64
	MaxPrice     *float64
}

type MenuService struct {
	DB *gorm.DB
}

func NewMenuService(db *gorm.DB) *MenuService {
	return &MenuService{DB: db}
}

func (s *MenuService) List(ctx context.Context, f MenuFilter) ([]models.MenuItem, error) {
	q := s.DB.WithContext(ctx).Model(&models.MenuItem{})
	if f.RestaurantID != nil {
		q = q.Where("restaurant_id = ?", *f.RestaurantID)
	}
	if f.CategoryID != nil {
		q = q.Where("category_id = ?", *f.CategoryID)
	}
	if f.Available != nil {
		q = q.Where("available = ?", *f.Available)
	}
	if f.MinPrice != nil {
		q = q.Where("base_price >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		q = q.Where("base_price <= ?", *f.MaxPrice)
	}
	var out []models.MenuItem
	err := q.Order("product_id").Find(&out).Error
	return out, err
}

func (s *MenuService) Get(ctx context.Context, id int) (*models.MenuItem, error) {
	var m models.MenuItem
	if err := s.DB.WithContext(ctx).First(&m, id).Error; err != nil {
		return nil, notFound(err, "menu item", id)
	}
	return &m, nil
}

func (s *MenuService) Create(ctx context.Context, m *models.MenuItem) error {
	if strings.TrimSpace(m.ProductName) == "" {
		return fmt.Errorf("%w: product_name is required", ErrInvalidInput)
	}
	return insertNew(ctx, s.DB, &models.MenuItem{}, "product_id", &m.ProductID, m)
}

func (s *MenuService) Update(ctx context.Context, id int, m *models.MenuItem) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	m.ProductID = id
	return s.DB.WithContext(ctx).Save(m).Error
}

func (s *MenuService) Delete(ctx context.Context, id int) error {
	return deleteByID(ctx, s.DB, &models.MenuItem{}, "menu item", id)
}

// Names lists distinct product names in ascending order.
func (s *MenuService) Names(ctx context.Context) ([]string, error) {
	var names []string
	err := s.DB.WithContext(ctx).Model(&models.MenuItem{}).
		Where("product_name <> ''").
		Distinct("product_name").Order("product_name").Pluck("product_name", &names).Error
	return names, err
}
