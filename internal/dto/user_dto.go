package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/jokeworks/joker-api/internal/models"
)

type CreateUserRequest struct {
	Email string        `json:"email"`
	Roles []models.Role `json:"roles"`
}

type UpdateUserRequest struct {
	Email *string       `json:"email,omitempty"`
	Roles []models.Role `json:"roles,omitempty"`
}

type DeleteUserRequest struct {
	Confirmation bool `json:"confirmation"`
}

type UserResponse struct {
	ID        uuid.UUID     `json:"id"`
	Email     string        `json:"email"`
	Roles     []models.Role `json:"roles"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

func NewUserResponse(u *models.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		Roles:     u.RoleSet(),
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

type UserListResponse struct {
	Users  []UserResponse `json:"users"`
	Total  int64          `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}
