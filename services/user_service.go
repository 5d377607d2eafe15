package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"gorm.io/gorm"

	"servicesync-server/models"
)

// UserService owns accounts and credentials.
type UserService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

type RegisterInput struct {
	Name          string          `json:"name" form:"name"`
	Email         string          `json:"email" form:"email"`
	Password      string          `json:"password" form:"password"`
	Address       string          `json:"address" form:"address"`
	ContactNumber string          `json:"contactNumber" form:"contactNumber"`
	Avatar        string          `json:"-" form:"-"`
	Role          models.UserRole `json:"role" form:"role"`
	ServiceID     *uint           `json:"serviceID" form:"serviceID"`
}

type UpdateUserInput struct {
	Name          *string `json:"name" form:"name"`
	Email         *string `json:"email" form:"email"`
	Address       *string `json:"address" form:"address"`
	ContactNumber *string `json:"contactNumber" form:"contactNumber"`
	ServiceID     *uint   `json:"serviceID" form:"serviceID"`
	Avatar        *string `json:"-" form:"-"`
}

// RegisterCustomer creates a self-registered account. Any role in the
// input is ignored.
func (s *UserService) RegisterCustomer(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Role = models.RoleCustomer
	in.ServiceID = nil
	return s.create(ctx, in)
}

// Register creates an account of any role on behalf of an administrator.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	if in.Role == "" {
		in.Role = models.RoleCustomer
	}
	return s.create(ctx, in)
}

func (s *UserService) create(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)

	if in.Name == "" {
		return nil, validationf("name is required")
	}
	if !strings.Contains(in.Email, "@") {
		return nil, validationf("a valid email is required")
	}
	if len(in.Password) < MinPasswordLength {
		return nil, validationf("password must be at least %d characters", MinPasswordLength)
	}
	if !in.Role.Valid() {
		return nil, validationf("unknown role %q", in.Role)
	}
	if in.Role == models.RoleStoreOwner && in.ServiceID == nil {
		return nil, validationf("a store owner needs a serviceID")
	}
	if in.Role != models.RoleStoreOwner {
		in.ServiceID = nil
	}

	db := s.db.WithContext(ctx)
	if in.ServiceID != nil {
		if err := db.First(&models.Service{}, *in.ServiceID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, validationf("service %d does not exist", *in.ServiceID)
			}
			return nil, err
		}
	}

	var existing int64
	if err := db.Model(&models.User{}).Where("email = ?", in.Email).Count(&existing).Error; err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, fmt.Errorf("%w: an account with email %s already exists", ErrConflict, in.Email)
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		log.Printf("❌ Password hashing failed: %v", err)
		return nil, err
	}

	user := models.User{
		Name:          in.Name,
		Email:         in.Email,
		Address:       strings.TrimSpace(in.Address),
		ContactNumber: strings.TrimSpace(in.ContactNumber),
		Avatar:        in.Avatar,
		PasswordHash:  hash,
		Role:          in.Role,
		ServiceID:     in.ServiceID,
	}
	if err := db.Create(&user).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: an account with email %s already exists", ErrConflict, in.Email)
		}
		return nil, err
	}

	log.Printf("✅ User %d registered as %s", user.ID, user.Role)
	return &user, nil
}

// Authenticate checks credentials. Unknown email and wrong password are
// indistinguishable to the caller.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidLogin
		}
		return nil, err
	}
	if !CheckPasswordHash(password, user.PasswordHash) {
		return nil, ErrInvalidLogin
	}
	return &user, nil
}

func (s *UserService) FindByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Preload("Service").First(&user, id).Error; err != nil {
		return nil, notFound("user", err)
	}
	return &user, nil
}

func (s *UserService) ListByRole(ctx context.Context, role models.UserRole) ([]models.User, error) {
	var users []models.User
	err := s.db.WithContext(ctx).
		Preload("Service").
		Where("role = ?", role).
		Order("created_at DESC").
		Find(&users).Error
	return users, err
}

// UpdateInfo edits profile fields. Users may edit themselves; a super
// admin may edit anyone. Role and password are not editable here.
func (s *UserService) UpdateInfo(ctx context.Context, actor Actor, userID uint, in UpdateUserInput) (*models.User, error) {
	if actor.ID != userID && !actor.IsSuperAdmin() {
		return nil, fmt.Errorf("%w: role %q may only update its own profile", ErrForbidden, actor.Role)
	}

	user, err := s.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, validationf("name cannot be empty")
		}
		updates["name"] = name
	}
	if in.Address != nil {
		updates["address"] = strings.TrimSpace(*in.Address)
	}
	if in.ContactNumber != nil {
		updates["contact_number"] = strings.TrimSpace(*in.ContactNumber)
	}
	if in.Avatar != nil {
		updates["avatar"] = *in.Avatar
	}
	if in.Email != nil {
		email := normalizeEmail(*in.Email)
		if !strings.Contains(email, "@") {
			return nil, validationf("a valid email is required")
		}
		if email != user.Email {
			var taken int64
			if err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ? AND id <> ?", email, userID).Count(&taken).Error; err != nil {
				return nil, err
			}
			if taken > 0 {
				return nil, fmt.Errorf("%w: an account with email %s already exists", ErrConflict, email)
			}
			updates["email"] = email
		}
	}
	if in.ServiceID != nil {
		if !actor.IsSuperAdmin() || !user.IsStoreOwner() {
			return nil, fmt.Errorf("%w: only an administrator may move a store owner between services", ErrForbidden)
		}
		if err := s.db.WithContext(ctx).First(&models.Service{}, *in.ServiceID).Error; err != nil {
			return nil, notFound("service", err)
		}
		updates["service_id"] = *in.ServiceID
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Updates(updates).Error; err != nil {
			if isUniqueViolation(err) {
				return nil, fmt.Errorf("%w: email already in use", ErrConflict)
			}
			return nil, err
		}
	}
	return s.FindByID(ctx, userID)
}

func (s *UserService) UpdatePassword(ctx context.Context, actor Actor, oldPassword, newPassword string) error {
	user, err := s.FindByID(ctx, actor.ID)
	if err != nil {
		return err
	}
	if !CheckPasswordHash(oldPassword, user.PasswordHash) {
		return validationf("old password is incorrect")
	}
	if len(newPassword) < MinPasswordLength {
		return validationf("password must be at least %d characters", MinPasswordLength)
	}
	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", actor.ID).Update("password_hash", hash).Error
}

// Delete removes a user together with any list entries it owns. A store
// owner with work in progress, or a customer with unresolved requests, is
// kept so no request loses the user it depends on.
func (s *UserService) Delete(ctx context.Context, userID uint) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&user, userID).Error; err != nil {
			return notFound("user", err)
		}

		var pending int64
		if err := tx.Model(&models.Request{}).
			Where("(store_id = ? AND status = ?) OR (requestor_id = ? AND status IN ?)",
				userID, models.RequestStatusInProgress,
				userID, []models.RequestStatus{models.RequestStatusOpen, models.RequestStatusInProgress}).
			Count(&pending).Error; err != nil {
			return err
		}
		if pending > 0 {
			return fmt.Errorf("%w: user %d has %d unresolved requests", ErrConflict, userID, pending)
		}
		if err := tx.Where("user_id = ?", userID).Delete(&models.AcceptedService{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).Delete(&models.ServiceLog{}).Error; err != nil {
			return err
		}
		return tx.Delete(&user).Error
	})
	if err != nil {
		return nil, err
	}
	log.Printf("✅ User %d deleted", userID)
	return &user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
