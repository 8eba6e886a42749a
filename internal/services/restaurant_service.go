/**
 * @description
 * Restaurant, customer and category reads and writes over GORM.
 */

package services

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/yerevan-pricing/backend/internal/models"
)

type RestaurantFilter struct {
	Location  string
	VenueType string
	MinRating *float64
}

type RestaurantService struct {
	DB *gorm.DB
}

func NewRestaurantService(db *gorm.DB) *RestaurantService {
	return &RestaurantService{DB: db}
}

// List filters case-insensitively on location and venue type.
func (s *RestaurantService) List(ctx context.Context, f RestaurantFilter) ([]models.Restaurant, error) {
	q := s.DB.WithContext(ctx).Model(&models.Restaurant{})
	if v := strings.TrimSpace(f.Location); v != "" {
		q = q.Where("LOWER(location) = ?", strings.ToLower(v))
	}
	if v := strings.TrimSpace(f.VenueType); v != "" {
		q = q.Where("LOWER(type) = ?", strings.ToLower(v))
	}
	if f.MinRating != nil {
		q = q.Where("rating >= ?", *f.MinRating)
	}
	var out []models.Restaurant
	err := q.Order("restaurant_id").Find(&out).Error
	return out, err
}

func (s *RestaurantService) Get(ctx context.Context, id int) (*models.Restaurant, error) {
	var r models.Restaurant
	if err := s.DB.WithContext(ctx).First(&r, id).Error; err != nil {
		return nil, notFound(err, "restaurant", id)
	}
	return &r, nil
}

func (s *RestaurantService) Create(ctx context.Context, r *models.Restaurant) error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	return insertNew(ctx, s.DB, &models.Restaurant{}, "restaurant_id", &r.RestaurantID, r)
}

// Update replaces every field of an existing restaurant.
func (s *RestaurantService) Update(ctx context.Context, id int, r *models.Restaurant) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	r.RestaurantID = id
	return s.DB.WithContext(ctx).Save(r).Error
}

func (s *RestaurantService) Delete(ctx context.Context, id int) error {
	return deleteByID(ctx, s.DB, &models.Restaurant{}, "restaurant", id)
}

type CustomerFilter struct {
	AgeGroup    string
	Gender      string
	MinSpending *float64
}

type CustomerService struct {
	DB *gorm.DB
}

func NewCustomerService(db *gorm.DB) *CustomerService {
	return &CustomerService{DB: db}
}

// List matches age group exactly and gender case-insensitively.
func (s *CustomerService) List(ctx context.Context, f CustomerFilter) ([]models.Customer, error) {
	q := s.DB.WithContext(ctx).Model(&models.Customer{})
	if v := strings.TrimSpace(f.AgeGroup); v != "" {
		q = q.Where("age_group = ?", v)
	}
	if v := strings.TrimSpace(f.Gender); v != "" {
		q = q.Where("LOWER(gender) = ?", strings.ToLower(v))
	}
	if f.MinSpending != nil {
		q = q.Where("avg_spending >= ?", *f.MinSpending)
	}
	var out []models.Customer
	err := q.Order("customer_id").Find(&out).Error
	return out, err
}

func (s *CustomerService) Get(ctx context.Context, id int) (*models.Customer, error) {
	var c models.Customer
	if err := s.DB.WithContext(ctx).First(&c, id).Error; err != nil {
		return nil, notFound(err, "customer", id)
	}
	return &c, nil
}

type CategoryService struct {
	DB *gorm.DB
}

func NewCategoryService(db *gorm.DB) *CategoryService {
	return &CategoryService{DB: db}
}

func (s *CategoryService) List(ctx context.Context) ([]models.Category, error) {
	var out []models.Category
	err := s.DB.WithContext(ctx).Order("category_id").Find(&out).Error
	return out, err
}
