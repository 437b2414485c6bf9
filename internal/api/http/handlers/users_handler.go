package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-desk/internal/api/dto"
	"github.com/spec-kit/support-desk/internal/service"
)

// UsersHandler manages contact and staff accounts.
type UsersHandler struct {
	users *service.UserService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(users *service.UserService) *UsersHandler {
	return &UsersHandler{users: users}
}

// UpdateContact PATCH /contacts/:id.
func (h *UsersHandler) UpdateContact(c *fiber.Ctx) error {
	principal, err := principalOf(c)
	if err != nil {
		return err
	}
	var req dto.UpdateUserRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	user, err := h.users.UpdateContact(c.UserContext(), principal, c.Params("id"), updateInput(req))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// DeleteContact DELETE /contacts/:id.
func (h *UsersHandler) DeleteContact(c *fiber.Ctx) error {
	principal, err := principalOf(c)
	if err != nil {
		return err
	}
	id := c.Params("id")
	outcome, err := h.users.DeleteContact(c.UserContext(), principal, id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.DeletionResponse{ID: id, Outcome: outcome}})
}

// ListStaff GET /staff.
func (h *UsersHandler) ListStaff(c *fiber.Ctx) error {
	principal, err := principalOf(c)
	if err != nil {
		return err
	}
	staff, err := h.users.ListStaff(c.UserContext(), principal, parseBool(c.Query("active")))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponses(staff)})
}

// CreateStaff POST /staff.
func (h *UsersHandler) CreateStaff(c *fiber.Ctx) error {
	principal, err := principalOf(c)
	if err != nil {
		return err
	}
	var req dto.CreateStaffRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	user, err := h.users.CreateStaff(c.UserContext(), principal, service.UserInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// UpdateStaff PATCH /staff/:id.
func (h *UsersHandler) UpdateStaff(c *fiber.Ctx) error {
	principal, err := principalOf(c)
	if err != nil {
		return err
	}
	var req dto.UpdateUserRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	user, err := h.users.UpdateStaff(c.UserContext(), principal, c.Params("id"), updateInput(req))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// DeleteStaff DELETE /staff/:id.
func (h *UsersHandler) DeleteStaff(c *fiber.Ctx) error {
	principal, err := principalOf(c)
	if err != nil {
		return err
	}
	id := c.Params("id")
	outcome, err := h.users.DeleteStaff(c.UserContext(), principal, id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.DeletionResponse{ID: id, Outcome: outcome}})
}

func updateInput(req dto.UpdateUserRequest) service.UserUpdateInput {
	return service.UserUpdateInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
		Active:   req.Active,
	}
}
