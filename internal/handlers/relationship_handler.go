package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/saeid-a/CoachLinkBack/internal/apperror"
	"github.com/saeid-a/CoachLinkBack/internal/models"
)

type relationshipApplicationService interface {
	Invite(ctx context.Context, clientID int64, role models.Role, trainerID int64) (*models.Relationship, error)
	Accept(ctx context.Context, trainerID int64, role models.Role, inviteID int64) (*models.AcceptInviteResult, error)
	Reject(ctx context.Context, trainerID int64, role models.Role, inviteID int64) (*models.Relationship, error)
	CancelInvite(ctx context.Context, clientID int64, role models.Role, inviteID int64) error
	CancelInviteByTrainer(ctx context.Context, clientID int64, role models.Role, trainerID int64) error
	CancelCooperation(ctx context.Context, clientID int64, role models.Role) (*models.CancelCooperationResult, error)
	ToggleFavorite(ctx context.Context, trainerID int64, role models.Role, clientID int64) (*models.Relationship, error)
	ListInvites(ctx context.Context, userID int64, role models.Role) ([]models.RelationshipDetail, error)
	GetActiveTrainer(ctx context.Context, clientID int64, role models.Role) (*models.RelationshipDetail, error)
	ListClients(ctx context.Context, trainerID int64, role models.Role) ([]models.RelationshipDetail, error)
}

type RelationshipHandler struct {
	service relationshipApplicationService
}

func NewRelationshipHandler(service relationshipApplicationService) *RelationshipHandler {
	return &RelationshipHandler{service: service}
}

type inviteTrainerRequest struct {
	TrainerID int64 `json:"trainer_id"`
}

func (h *RelationshipHandler) InviteTrainer(c *fiber.Ctx) error {
	userID, role, err := currentUser(c)
	if err != nil {
		return err
	}

	var req inviteTrainerRequest
	if err := c.BodyParser(&req); err != nil {
		return apperror.BadRequest("Invalid request body")
	}
	if req.TrainerID <= 0 {
		return apperror.BadRequest("trainer_id is required")
	}

	invite, err := h.service.Invite(c.UserContext(), userID, role, req.TrainerID)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"invite": invite})
}

func (h *RelationshipHandler) ListInvites(c *fiber.Ctx) error {
	userID, role, err := currentUser(c)
	if err != nil {
		return err
	}

	invites, err := h.service.ListInvites(c.UserContext(), userID, role)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"invites": invites})
}

func (h *RelationshipHandler) AcceptInvite(c *fiber.Ctx) error {
	userID, role, err := currentUser(c)
	if err != nil {
		return err
	}
	inviteID, err := parseIDParam(c, "id", "invite id")
	if err != nil {
		return err
	}

	result, err := h.service.Accept(c.UserContext(), userID, role, inviteID)
	if err != nil {
		return err
	}
	return c.JSON(result)
}

func (h *RelationshipHandler) RejectInvite(c *fiber.Ctx) error {
	userID, role, err := currentUser(c)
	if err != nil {
		return err
	}
	inviteID, err := parseIDParam(c, "id", "invite id")
	if err != nil {
		return err
	}

	invite, err := h.service.Reject(c.UserContext(), userID, role, inviteID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"invite": invite})
}

func (h *RelationshipHandler) CancelInvite(c *fiber.Ctx) error {
	userID, role, err := currentUser(c)
	if err != nil {
		return err
	}
	inviteID, err := parseIDParam(c, "id", "invite id")
	if err != nil {
		return err
	}

	if err := h.service.CancelInvite(c.UserContext(), userID, role, inviteID); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Invite cancelled"})
}

func (h *RelationshipHandler) CancelInviteByTrainer(c *fiber.Ctx) error {
	userID, role, err := currentUser(c)
	if err != nil {
		return err
	}
	trainerID, err := parseIDParam(c, "trainerId", "trainer id")
	if err != nil {
		return err
	}

	if err := h.service.CancelInviteByTrainer(c.UserContext(), userID, role, trainerID); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Invite cancelled"})
}

func (h *RelationshipHandler) GetTrainer(c *fiber.Ctx) error {
	userID, role, err := currentUser(c)
	if err != nil {
		return err
	}

	trainer, err := h.service.GetActiveTrainer(c.UserContext(), userID, role)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"relationship": trainer})
}

func (h *RelationshipHandler) CancelCooperation(c *fiber.Ctx) error {
	userID, role, err := currentUser(c)
	if err != nil {
		return err
	}

	result, err := h.service.CancelCooperation(c.UserContext(), userID, role)
	if err != nil {
		return err
	}
	return c.JSON(result)
}

func (h *RelationshipHandler) ListClients(c *fiber.Ctx) error {
	userID, role, err := currentUser(c)
	if err != nil {
		return err
	}

	clients, err := h.service.ListClients(c.UserContext(), userID, role)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"clients": clients})
}

func (h *RelationshipHandler) ToggleFavorite(c *fiber.Ctx) error {
	userID, role, err := currentUser(c)
	if err != nil {
		return err
	}
	clientID, err := parseIDParam(c, "id", "client id")
	if err != nil {
		return err
	}

	relationship, err := h.service.ToggleFavorite(c.UserContext(), userID, role, clientID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"relationship": relationship})
}
