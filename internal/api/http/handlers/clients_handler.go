package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-desk/internal/api/dto"
	"github.com/spec-kit/support-desk/internal/service"
)

// ClientsHandler manages client organizations and their contacts.
type ClientsHandler struct {
	clients *service.ClientService
	users   *service.UserService
}

// NewClientsHandler constructs handler.
func NewClientsHandler(clients *service.ClientService, users *service.UserService) *ClientsHandler {
	return &ClientsHandler{clients: clients, users: users}
}

// List GET /clients.
func (h *ClientsHandler) List(c *fiber.Ctx) error {
	principal, err := principalOf(c)
	if err != nil {
		return err
	}
	clients, err := h.clients.List(c.UserContext(), principal, service.ClientQuery{
		Search:   c.Query("search"),
		Active:   parseBool(c.Query("active")),
		Page:     parseInt(c.Query("page"), 1),
		PageSize: parseInt(c.Query("page_size"), 0),
	})
	if err != nil {
		return err
	}
	items := make([]dto.ClientResponse, 0, len(clients))
	for i := range clients {
		items = append(items, dto.NewClientResponse(&clients[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Create POST /clients.
func (h *ClientsHandler) Create(c *fiber.Ctx) error {
	principal, err := principalOf(c)
	if err != nil {
		return err
	}
	var req dto.CreateClientRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	client, err := h.clients.Create(c.UserContext(), principal, req.Name)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewClientResponse(client)})
}

// Get GET /clients/:id.
func (h *ClientsHandler) Get(c *fiber.Ctx) error {
	principal, err := principalOf(c)
	if err != nil {
		return err
	}
	client, err := h.clients.Get(c.UserContext(), principal, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewClientResponse(client)})
}

// Update PATCH /clients/:id.
func (h *ClientsHandler) Update(c *fiber.Ctx) error {
	principal, err := principalOf(c)
	if err != nil {
		return err
	}
	var req dto.UpdateClientRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	client, err := h.clients.Update(c.UserContext(), principal, c.Params("id"), service.ClientUpdateInput{Name: req.Name, Active: req.Active})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewClientResponse(client)})
}

// Delete DELETE /clients/:id.
func (h *ClientsHandler) Delete(c *fiber.Ctx) error {
	principal, err := principalOf(c)
	if err != nil {
		return err
	}
	id := c.Params("id")
	outcome, err := h.clients.Delete(c.UserContext(), principal, id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.DeletionResponse{ID: id, Outcome: outcome}})
}

// ListContacts GET /clients/:id/contacts.
func (h *ClientsHandler) ListContacts(c *fiber.Ctx) error {
	principal, err := principalOf(c)
	if err != nil {
		return err
	}
	contacts, err := h.users.ListContacts(c.UserContext(), principal, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponses(contacts)})
}

// CreateContact POST /clients/:id/contacts.
func (h *ClientsHandler) CreateContact(c *fiber.Ctx) error {
	principal, err := principalOf(c)
	if err != nil {
		return err
	}
	var req dto.CreateContactRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	contact, err := h.users.CreateContact(c.UserContext(), principal, c.Params("id"), service.UserInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewUserResponse(contact)})
}
