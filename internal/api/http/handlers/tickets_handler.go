package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/service"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// TicketsHandler exposes the owner's ticket endpoints. Every route sits behind
// the bearer middleware.
type TicketsHandler struct {
	tickets  *service.TicketService
	validate *Validator
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(tickets *service.TicketService, validate *Validator) *TicketsHandler {
	return &TicketsHandler{tickets: tickets, validate: validate}
}

// Create handles POST /api/tickets.
func (h *TicketsHandler) Create(c *fiber.Ctx) error {
	ownerID, err := owner(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := h.validate.Bind(c, &req); err != nil {
		return err
	}

	ticket, err := h.tickets.Create(c.UserContext(), ownerID, service.TicketCreateInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewTicketResponse(*ticket))
}

// List handles GET /api/tickets?q=&status=.
func (h *TicketsHandler) List(c *fiber.Ctx) error {
	ownerID, err := owner(c)
	if err != nil {
		return err
	}
	var query dto.TicketListQuery
	if err := c.QueryParser(&query); err != nil {
		return apperrors.NewValidationError("invalid query", nil)
	}

	tickets, err := h.tickets.Search(c.UserContext(), ownerID, query.Q, query.Status)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewTicketListResponse(tickets))
}

// Stats handles GET /api/tickets/stats?q=&status=.
func (h *TicketsHandler) Stats(c *fiber.Ctx) error {
	ownerID, err := owner(c)
	if err != nil {
		return err
	}
	var query dto.TicketListQuery
	if err := c.QueryParser(&query); err != nil {
		return apperrors.NewValidationError("invalid query", nil)
	}

	stats, err := h.tickets.Stats(c.UserContext(), ownerID, query.Q, query.Status)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewStatsResponse(stats))
}

// UpdateStatus handles PUT /api/tickets/:id.
func (h *TicketsHandler) UpdateStatus(c *fiber.Ctx) error {
	ownerID, err := owner(c)
	if err != nil {
		return err
	}
	var req dto.UpdateStatusRequest
	if err := h.validate.Bind(c, &req); err != nil {
		return err
	}

	ticket, err := h.tickets.UpdateStatus(c.UserContext(), ownerID, c.Params("id"), req.Status)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewTicketResponse(*ticket))
}

// Delete handles DELETE /api/tickets/:id.
func (h *TicketsHandler) Delete(c *fiber.Ctx) error {
	ownerID, err := owner(c)
	if err != nil {
		return err
	}
	if err := h.tickets.Delete(c.UserContext(), ownerID, c.Params("id")); err != nil {
		return err
	}
	return c.JSON(dto.MessageResponse{Message: "ticket deleted"})
}

func owner(c *fiber.Ctx) (string, error) {
	ownerID, ok := auth.OwnerFromContext(c)
	if !ok {
		return "", apperrors.NewInvalidToken("missing authenticated owner")
	}
	return ownerID, nil
}
