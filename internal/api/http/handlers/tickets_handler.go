package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-desk/internal/api/dto"
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/service"
)

// TicketsHandler manages ticket endpoints for staff and contacts.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	principal, err := principalOf(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}

	ticket, err := h.service.Create(c.UserContext(), principal, service.TicketCreateInput{
		ClientOrganizationID: req.ClientOrganizationID,
		RequesterContactID:   req.RequesterContactID,
		Title:                req.Title,
		Description:          req.Description,
		Category:             req.Category,
		Priority:             req.Priority,
		Attachments:          attachmentsFrom(req.Attachments),
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	principal, err := principalOf(c)
	if err != nil {
		return err
	}
	page, err := h.service.List(c.UserContext(), principal, parseTicketQuery(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TicketListResponse{
		Items:        dto.NewTicketViewResponses(page.Items),
		Total:        page.Total,
		Page:         page.Page,
		PageSize:     page.PageSize,
		StatusCounts: page.StatusCounts,
	}})
}

// Board GET /tickets/board.
func (h *TicketsHandler) Board(c *fiber.Ctx) error {
	principal, err := principalOf(c)
	if err != nil {
		return err
	}
	board, err := h.service.Board(c.UserContext(), principal, parseTicketQuery(c))
	if err != nil {
		return err
	}
	columns := make(map[domain.TicketStatus][]dto.TicketResponse, len(board))
	for status, items := range board {
		columns[status] = dto.NewTicketViewResponses(items)
	}
	return c.JSON(fiber.Map{"data": columns})
}

// GetTicket GET /tickets/:id; the id may also be a folio such as S-000001.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	principal, err := principalOf(c)
	if err != nil {
		return err
	}
	detail, err := h.service.Get(c.UserContext(), principal, c.Params("id"))
	if err != nil {
		return err
	}

	resp := dto.TicketDetailResponse{
		TicketResponse: dto.NewTicketResponse(detail.Ticket),
		CreatorEmail:   detail.CreatorEmail,
		History:        make([]dto.HistoryEntryResponse, 0, len(detail.History)),
	}
	resp.ClientName = detail.ClientName
	resp.CreatorName = detail.CreatorName
	resp.AssignedToName = detail.AssignedToName
	for i := range detail.History {
		item := detail.History[i]
		resp.History = append(resp.History, dto.NewHistoryEntryResponse(&item.TicketHistoryEntry, item.AuthorName))
	}
	return c.JSON(fiber.Map{"data": resp})
}

// Assignees GET /tickets/:id/assignees.
func (h *TicketsHandler) Assignees(c *fiber.Ctx) error {
	principal, err := principalOf(c)
	if err != nil {
		return err
	}
	staff, err := h.service.AssignableStaff(c.UserContext(), principal, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponses(staff)})
}

// MoveStatus PATCH /tickets/:id/status.
func (h *TicketsHandler) MoveStatus(c *fiber.Ctx) error {
	principal, err := principalOf(c)
	if err != nil {
		return err
	}
	var req dto.StatusMoveRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	result, err := h.service.QuickStatusMove(c.UserContext(), principal, c.Params("id"), req.Status, req.AssignedToID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": updateResponse(result)})
}

// AddUpdate POST /tickets/:id/updates.
func (h *TicketsHandler) AddUpdate(c *fiber.Ctx) error {
	principal, err := principalOf(c)
	if err != nil {
		return err
	}
	var req dto.ManagementUpdateRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	result, err := h.service.FullManagementUpdate(c.UserContext(), principal, c.Params("id"), service.ManagementUpdateInput{
		Status:       req.Status,
		Priority:     req.Priority,
		Category:     req.Category,
		AssignedToID: req.AssignedToID,
		Comment:      req.Comment,
		Attachments:  attachmentsFrom(req.Attachments),
		IsInternal:   req.IsInternal,
		Notify:       req.Notify,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": updateResponse(result)})
}

func parseTicketQuery(c *fiber.Ctx) service.TicketQuery {
	query := service.TicketQuery{
		Statuses:         splitList[domain.TicketStatus](c.Query("status")),
		Categories:       splitList[domain.TicketCategory](c.Query("category")),
		Priorities:       splitList[domain.TicketPriority](c.Query("priority")),
		TitleSearch:      c.Query("title"),
		ClientNameSearch: c.Query("client_name"),
		ClientID:         c.Query("client_id"),
		SortField:        c.Query("sort"),
		SortDesc:         strings.EqualFold(c.Query("order"), "desc"),
		Page:             parseInt(c.Query("page"), 1),
		PageSize:         parseInt(c.Query("page_size"), 0),
	}
	if assignee := c.Query("assigned_to_id"); assignee != "" {
		query.AssignedToID = &assignee
	}
	return query
}

func updateResponse(result *service.UpdateResult) dto.UpdateResponse {
	resp := dto.UpdateResponse{Ticket: dto.NewTicketResponse(result.Ticket)}
	if result.Entry != nil {
		entry := dto.NewHistoryEntryResponse(result.Entry, "")
		resp.Entry = &entry
	}
	return resp
}
