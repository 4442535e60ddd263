// Package store is the typed persistence layer over the domain entities.
// Every multi-row write runs in a transaction; referential invariants are
// checked inside the same transaction so partial writes never become
// visible.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jokeworks/joker-api/internal/models"
	"gorm.io/gorm"
)

var (
	ErrEmailTaken        = errors.New("email already registered")
	ErrUserNotFound      = errors.New("user not found")
	ErrEndpointNotFound  = errors.New("endpoint not found")
	ErrSourceNotFound    = errors.New("joke source not found")
	ErrReferenceNotFound = errors.New("referenced row does not exist")
	ErrInvalidRole       = errors.New("invalid role")
	ErrInvalidFormat     = errors.New("invalid response format")
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying handle for migrations and the log sink.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// ---------------------------------------------------------------------------
// Users
// ---------------------------------------------------------------------------

// CreateUser inserts a user together with its role assignments atomically.
func (s *Store) CreateUser(ctx context.Context, email string, roles []models.Role) (*models.User, error) {
	for _, r := range roles {
		if !r.Valid() {
			return nil, fmt.Errorf("%w: %s", ErrInvalidRole, r)
		}
	}

	user := models.User{Email: email}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrEmailTaken
		}
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		for _, r := range roles {
			if err := tx.Create(&models.UserRole{UserID: user.ID, Role: r}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetUser(ctx, user.ID)
}

// GetUser returns the user with its role set preloaded.
func (s *Store) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Preload("Roles").First(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}
	return &user, nil
}

// GetUserRoles reads the current role set. Callers gating a request must use
// this per request instead of caching: roles can change between calls.
func (s *Store) GetUserRoles(ctx context.Context, id uuid.UUID) ([]models.Role, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}
	if count == 0 {
		return nil, ErrUserNotFound
	}

	var assignments []models.UserRole
	if err := s.db.WithContext(ctx).Where("user_id = ?", id).Find(&assignments).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch roles: %w", err)
	}
	roles := make([]models.Role, 0, len(assignments))
	for _, a := range assignments {
		roles = append(roles, a.Role)
	}
	return roles, nil
}

func (s *Store) ListUsers(ctx context.Context, limit, offset int) ([]models.User, int64, error) {
	var users []models.User
	var total int64

	if err := s.db.WithContext(ctx).Model(&models.User{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}
	err := s.db.WithContext(ctx).Preload("Roles").
		Order("created_at ASC").Limit(limit).Offset(offset).Find(&users).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	return users, total, nil
}

// UpdateUser changes the email and/or replaces the role set atomically.
// Nil email leaves it unchanged; nil roles leaves the set unchanged.
func (s *Store) UpdateUser(ctx context.Context, id uuid.UUID, email *string, roles []models.Role) (*models.User, error) {
	for _, r := range roles {
		if !r.Valid() {
			return nil, fmt.Errorf("%w: %s", ErrInvalidRole, r)
		}
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}

		if email != nil && *email != user.Email {
			var count int64
			if err := tx.Model(&models.User{}).Where("email = ? AND id <> ?", *email, id).Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				return ErrEmailTaken
			}
			if err := tx.Model(&user).Update("email", *email).Error; err != nil {
				return err
			}
		}

		if roles != nil {
			if err := tx.Where("user_id = ?", id).Delete(&models.UserRole{}).Error; err != nil {
				return err
			}
			for _, r := range roles {
				if err := tx.Create(&models.UserRole{UserID: id, Role: r}).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetUser(ctx, id)
}

// DeleteUser soft-deletes the user. Audit rows referencing it are preserved.
func (s *Store) DeleteUser(ctx context.Context, id uuid.UUID) error {
	result := s.db.WithContext(ctx).Delete(&models.User{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete user: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// AssignRole adds one role assignment. Fails with ErrReferenceNotFound when
// the user row does not exist; assigning an already-held role is a no-op.
func (s *Store) AssignRole(ctx context.Context, userID uuid.UUID, role models.Role) error {
	if !role.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidRole, role)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("id = ?", userID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrReferenceNotFound
		}
		var existing int64
		if err := tx.Model(&models.UserRole{}).Where("user_id = ? AND role = ?", userID, role).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return nil
		}
		return tx.Create(&models.UserRole{UserID: userID, Role: role}).Error
	})
}

func (s *Store) RemoveRole(ctx context.Context, userID uuid.UUID, role models.Role) error {
	return s.db.WithContext(ctx).
		Where("user_id = ? AND role = ?", userID, role).
		Delete(&models.UserRole{}).Error
}

// ---------------------------------------------------------------------------
// Jokes
// ---------------------------------------------------------------------------

// CreateJoke materializes freshly fetched content. Jokes are immutable;
// there is no update method.
func (s *Store) CreateJoke(ctx context.Context, content string, source *string) (*models.Joke, error) {
	joke := models.Joke{Content: content, Source: source}
	if err := s.db.WithContext(ctx).Create(&joke).Error; err != nil {
		return nil, fmt.Errorf("failed to create joke: %w", err)
	}
	return &joke, nil
}

// JokeStatus reports the joke count and the newest creation time (nil when
// the table is empty).
func (s *Store) JokeStatus(ctx context.Context) (int64, *time.Time, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Joke{}).Count(&total).Error; err != nil {
		return 0, nil, fmt.Errorf("failed to count jokes: %w", err)
	}
	if total == 0 {
		return 0, nil, nil
	}

	var latest models.Joke
	if err := s.db.WithContext(ctx).Order("created_at DESC").First(&latest).Error; err != nil {
		return 0, nil, fmt.Errorf("failed to fetch latest joke: %w", err)
	}
	return total, &latest.CreatedAt, nil
}

// ---------------------------------------------------------------------------
// Audit
// ---------------------------------------------------------------------------

// CreateAuditRecord appends one immutable audit row. Non-null user/joke
// references are verified inside the transaction.
func (s *Store) CreateAuditRecord(ctx context.Context, rec *models.APIRequest) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if rec.UserID != nil {
			var count int64
			if err := tx.Unscoped().Model(&models.User{}).Where("id = ?", *rec.UserID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return ErrReferenceNotFound
			}
		}
		if rec.JokeID != nil {
			var count int64
			if err := tx.Model(&models.Joke{}).Where("id = ?", *rec.JokeID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return ErrReferenceNotFound
			}
		}
		return tx.Create(rec).Error
	})
}

func (s *Store) ListAuditRecords(ctx context.Context, limit, offset int) ([]models.APIRequest, int64, error) {
	var records []models.APIRequest
	var total int64

	if err := s.db.WithContext(ctx).Model(&models.APIRequest{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count audit records: %w", err)
	}
	err := s.db.WithContext(ctx).
		Order("created_at DESC").Limit(limit).Offset(offset).Find(&records).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list audit records: %w", err)
	}
	return records, total, nil
}

// ---------------------------------------------------------------------------
// Endpoint catalog
// ---------------------------------------------------------------------------

// CreateEndpoint inserts an endpoint and its format bindings atomically.
// Binding positions follow the given order.
func (s *Store) CreateEndpoint(ctx context.Context, path string, method models.HTTPMethod, description string, formats []models.FormatType) (*models.APIEndpoint, error) {
	if !method.Valid() {
		return nil, fmt.Errorf("invalid method: %s", method)
	}
	for _, f := range formats {
		if !f.Valid() {
			return nil, fmt.Errorf("%w: %s", ErrInvalidFormat, f)
		}
	}

	ep := models.APIEndpoint{Path: path, Method: method, Description: description}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&ep).Error; err != nil {
			return err
		}
		for i, f := range formats {
			binding := models.ResponseFormat{EndpointID: ep.ID, Format: f, Position: i}
			if err := tx.Create(&binding).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create endpoint: %w", err)
	}
	return s.GetEndpoint(ctx, path, method)
}

// GetEndpoint returns the endpoint with formats preloaded in binding order.
func (s *Store) GetEndpoint(ctx context.Context, path string, method models.HTTPMethod) (*models.APIEndpoint, error) {
	var ep models.APIEndpoint
	err := s.db.WithContext(ctx).
		Preload("Formats", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		First(&ep, "path = ? AND method = ?", path, method).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrEndpointNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch endpoint: %w", err)
	}
	return &ep, nil
}

func (s *Store) ListEndpoints(ctx context.Context) ([]models.APIEndpoint, error) {
	var endpoints []models.APIEndpoint
	err := s.db.WithContext(ctx).
		Preload("Formats", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Order("path ASC").Find(&endpoints).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list endpoints: %w", err)
	}
	return endpoints, nil
}

// BindFormat appends one format binding. Fails with ErrReferenceNotFound
// when the endpoint row does not exist.
func (s *Store) BindFormat(ctx context.Context, endpointID uuid.UUID, format models.FormatType) error {
	if !format.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidFormat, format)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.APIEndpoint{}).Where("id = ?", endpointID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrReferenceNotFound
		}
		var position int64
		if err := tx.Model(&models.ResponseFormat{}).Where("endpoint_id = ?", endpointID).Count(&position).Error; err != nil {
			return err
		}
		return tx.Create(&models.ResponseFormat{EndpointID: endpointID, Format: format, Position: int(position)}).Error
	})
}

// ---------------------------------------------------------------------------
// Joke sources
// ---------------------------------------------------------------------------

func (s *Store) CreateSource(ctx context.Context, src *models.JokeSource) error {
	if err := s.db.WithContext(ctx).Create(src).Error; err != nil {
		return fmt.Errorf("failed to create source: %w", err)
	}
	return nil
}

// ListSourcesByPriority returns the configured providers in fetch order.
func (s *Store) ListSourcesByPriority(ctx context.Context) ([]models.JokeSource, error) {
	var sources []models.JokeSource
	if err := s.db.WithContext(ctx).Order("priority ASC").Find(&sources).Error; err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}
	return sources, nil
}

// FirstSource returns the highest-priority provider.
func (s *Store) FirstSource(ctx context.Context) (*models.JokeSource, error) {
	var src models.JokeSource
	err := s.db.WithContext(ctx).Order("priority ASC").First(&src).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSourceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch source: %w", err)
	}
	return &src, nil
}

// UpdateSourceSettings patches a provider's API key and/or endpoint URL.
// Nil fields are left unchanged.
func (s *Store) UpdateSourceSettings(ctx context.Context, id uuid.UUID, apiKey, endpoint *string) error {
	updates := map[string]interface{}{}
	if apiKey != nil {
		updates["api_key"] = *apiKey
	}
	if endpoint != nil {
		updates["endpoint"] = *endpoint
	}
	if len(updates) == 0 {
		return nil
	}

	result := s.db.WithContext(ctx).Model(&models.JokeSource{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update source: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrSourceNotFound
	}
	return nil
}

// RecordSourceFailure appends one failure row for a fetch attempt.
func (s *Store) RecordSourceFailure(ctx context.Context, sourceID uuid.UUID, reason string) error {
	failure := models.SourceFailure{SourceID: sourceID, Reason: reason}
	if err := s.db.WithContext(ctx).Create(&failure).Error; err != nil {
		return fmt.Errorf("failed to record source failure: %w", err)
	}
	return nil
}

func (s *Store) CountSourceFailures(ctx context.Context, sourceID uuid.UUID) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.SourceFailure{}).
		Where("source_id = ?", sourceID).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count source failures: %w", err)
	}
	return count, nil
}
