package services

import (
	"strings"

	apperrors "pocketledger/internal/errors"
	"pocketledger/internal/models"

	"gorm.io/gorm"
)

// defaultCategories are seeded once when the category table is empty.
var defaultCategories = []models.Category{
	{Name: "Food & Dining", Icon: "restaurant", Color: "#FF7043"},
	{Name: "Transportation", Icon: "car", Color: "#42A5F5"},
	{Name: "Shopping", Icon: "cart", Color: "#AB47BC"},
	{Name: "Entertainment", Icon: "film", Color: "#EC407A"},
	{Name: "Bills & Utilities", Icon: "receipt", Color: "#FFA726"},
	{Name: "Healthcare", Icon: "medical", Color: "#EF5350"},
	{Name: "Education", Icon: "school", Color: "#5C6BC0"},
	{Name: "Salary", Icon: "briefcase", Color: "#66BB6A"},
	{Name: "Freelance", Icon: "laptop", Color: "#26A69A"},
	{Name: "Investments", Icon: "trending-up", Color: "#8D6E63"},
	{Name: "Gifts", Icon: "gift", Color: "#D4E157"},
	{Name: "Other", Icon: "dots", Color: "#78909C"},
}

// categoryService handles category-related business logic.
type categoryService struct {
	*store
}

// CreateCategory creates a new user-defined category
func (s *categoryService) CreateCategory(name, icon, color string) (*models.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "category name is required")
	}

	category := &models.Category{
		Name:     name,
		Icon:     icon,
		Color:    color,
		IsCustom: true,
	}
	category.Touch()

	err := s.write(func(tx *gorm.DB) error {
		// Check if a category with the same name already exists
		var count int64
		if err := tx.Model(&models.Category{}).Where("name = ?", name).Count(&count).Error; err != nil {
			return internal(err)
		}
		if count > 0 {
			return apperrors.WithMessage(apperrors.ErrInvalidInput, "category with this name already exists")
		}

		if err := tx.Create(category).Error; err != nil {
			return internal(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return category, nil
}

// GetCategories lists seeded defaults first, then custom categories, by name.
func (s *categoryService) GetCategories() ([]models.Category, error) {
	var categories []models.Category
	if err := s.db.Order("is_custom ASC, name ASC").Find(&categories).Error; err != nil {
		return nil, internal(err)
	}
	return categories, nil
}

// GetCategoryByID retrieves a category by ID
func (s *categoryService) GetCategoryByID(id string) (*models.Category, error) {
	var category models.Category
	if err := first(s.db.Where("id = ?", id), &category, apperrors.ErrCategoryNotFound); err != nil {
		return nil, err
	}
	return &category, nil
}

// DeleteCategory soft-deletes a custom category. Seeded defaults are never removed.
func (s *categoryService) DeleteCategory(id string) error {
	return s.write(func(tx *gorm.DB) error {
		var category models.Category
		if err := first(tx.Where("id = ?", id), &category, apperrors.ErrCategoryNotFound); err != nil {
			return err
		}
		if !category.IsCustom {
			return apperrors.WithMessage(apperrors.ErrInvalidInput, "default categories cannot be deleted")
		}
		return softDelete(tx, &models.Category{}, id, apperrors.ErrCategoryNotFound)
	})
}

// SeedDefaultCategories inserts the default set if no category exists yet.
// It returns the number of categories created.
func (s *categoryService) SeedDefaultCategories() (int, error) {
	created := 0
	err := s.write(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Unscoped().Model(&models.Category{}).Count(&count).Error; err != nil {
			return internal(err)
		}
		if count > 0 {
			return nil
		}
		for _, def := range defaultCategories {
			category := def
			if err := tx.Create(&category).Error; err != nil {
				return internal(err)
			}
			created++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}
