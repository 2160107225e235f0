package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/saeid-a/CoachLinkBack/internal/apperror"
	"github.com/saeid-a/CoachLinkBack/internal/models"
	"github.com/saeid-a/CoachLinkBack/internal/services"
)

type authApplicationService interface {
	Register(ctx context.Context, input services.RegisterInput) (*services.AuthResult, error)
	Login(ctx context.Context, email string, password string) (*services.AuthResult, error)
	Logout(ctx context.Context, userID int64, sessionID string) error
	Me(ctx context.Context, userID int64) (*models.User, error)
}

type AuthHandler struct {
	service authApplicationService
}

func NewAuthHandler(service authApplicationService) *AuthHandler {
	return &AuthHandler{service: service}
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
	FullName string `json:"full_name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return apperror.BadRequest("Invalid request body")
	}

	result, err := h.service.Register(c.UserContext(), services.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
		FullName: req.FullName,
	})
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(result)
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperror.BadRequest("Invalid request body")
	}

	result, err := h.service.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(result)
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	userID, _, err := currentUser(c)
	if err != nil {
		return err
	}
	sessionID, _ := c.Locals("session_id").(string)
	if sessionID == "" {
		return apperror.BadRequest("Token has no session")
	}

	if err := h.service.Logout(c.UserContext(), userID, sessionID); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	userID, _, err := currentUser(c)
	if err != nil {
		return err
	}

	user, err := h.service.Me(c.UserContext(), userID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"user": user})
}
