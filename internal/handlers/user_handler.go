package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/jokeworks/joker-api/internal/dto"
	"github.com/jokeworks/joker-api/internal/models"
	"github.com/jokeworks/joker-api/internal/store"
)

// UserHandler exposes administrative user management. Routes mounting it
// are gated on SYSTEM_ADMIN.
type UserHandler struct {
	store *store.Store
}

func NewUserHandler(st *store.Store) *UserHandler {
	return &UserHandler{store: st}
}

func (h *UserHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.Email == "" {
		return badRequest(c, "Email is required")
	}
	if len(req.Roles) == 0 {
		req.Roles = []models.Role{models.RoleAPIUser}
	}

	user, err := h.store.CreateUser(c.UserContext(), req.Email, req.Roles)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrEmailTaken):
			return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{
				Error: true, Message: err.Error(),
			})
		case errors.Is(err, store.ErrInvalidRole):
			return badRequest(c, err.Error())
		}
		return internalError(c)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewUserResponse(user))
}

func (h *UserHandler) List(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)
	offset := c.QueryInt("offset", 0)
	if limit < 1 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	users, total, err := h.store.ListUsers(c.UserContext(), limit, offset)
	if err != nil {
		return internalError(c)
	}

	resp := dto.UserListResponse{
		Users:  make([]dto.UserResponse, 0, len(users)),
		Total:  total,
		Limit:  limit,
		Offset: offset,
	}
	for i := range users {
		resp.Users = append(resp.Users, dto.NewUserResponse(&users[i]))
	}
	return c.JSON(resp)
}

func (h *UserHandler) Get(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid user id")
	}

	user, err := h.store.GetUser(c.UserContext(), id)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return notFound(c, "User not found")
		}
		return internalError(c)
	}
	return c.JSON(dto.NewUserResponse(user))
}

func (h *UserHandler) Update(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid user id")
	}

	var req dto.UpdateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	user, err := h.store.UpdateUser(c.UserContext(), id, req.Email, req.Roles)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrUserNotFound):
			return notFound(c, "User not found")
		case errors.Is(err, store.ErrEmailTaken):
			return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{
				Error: true, Message: err.Error(),
			})
		case errors.Is(err, store.ErrInvalidRole):
			return badRequest(c, err.Error())
		}
		return internalError(c)
	}
	return c.JSON(dto.NewUserResponse(user))
}

// Delete requires an explicit confirmation flag; the removal is a soft
// delete so audit rows keep resolving.
func (h *UserHandler) Delete(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid user id")
	}

	var req dto.DeleteUserRequest
	if err := c.BodyParser(&req); err != nil || !req.Confirmation {
		return badRequest(c, "Deletion requires confirmation")
	}

	if err := h.store.DeleteUser(c.UserContext(), id); err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return notFound(c, "User not found")
		}
		return internalError(c)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: true, Message: msg})
}

func notFound(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: true, Message: msg})
}

func internalError(c *fiber.Ctx) error {
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
		Error: true, Message: "Internal server error",
	})
}
