package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/localnerve/botdesk/internal/models"
	"gorm.io/gorm"
)

// Identity is what the auth provider tells us about a signed-in user
type Identity struct {
	ID    string
	Name  string
	Email string
	Roles []string
}

// HasRole reports whether the identity carries role
func (i Identity) HasRole(role string) bool {
	for _, r := range i.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// UserService keeps the local record of provider identities
type UserService struct {
	DB *gorm.DB
}

// NewUserService creates a UserService
func NewUserService(db *gorm.DB) *UserService {
	return &UserService{DB: db}
}

// FindOrCreate returns the user for id.ID, creating it on first sight. Existing
// users are returned unchanged.
func (s *UserService) FindOrCreate(ctx context.Context, id Identity) (*models.User, error) {
	if id.ID == "" {
		return nil, ErrInvalidInput
	}

	user := models.User{ID: id.ID}
	err := s.DB.WithContext(ctx).
		Attrs(models.User{Name: id.Name, Email: id.Email}).
		FirstOrCreate(&user, models.User{ID: id.ID}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return &user, nil
}

// Get returns one user
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read user: %w", err)
	}
	return &user, nil
}

// SetExternalRef sets the secondary-system identifier; an empty ref clears it. It
// reports false when the user does not exist.
func (s *UserService) SetExternalRef(ctx context.Context, id, ref string) (bool, error) {
	var value interface{}
	if ref = strings.TrimSpace(ref); ref != "" {
		value = ref
	}

	res := s.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		Update("external_ref", value)
	if res.Error != nil {
		return false, fmt.Errorf("failed to update user: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}
