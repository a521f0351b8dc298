package handlers

import (
	"dealflow/internal/models"
	"dealflow/internal/services"

	"github.com/gofiber/fiber/v2"
)

// ProfileHandler handles seller profile API endpoints
type ProfileHandler struct {
	contextService *services.SellerContextService
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(contextService *services.SellerContextService) *ProfileHandler {
	return &ProfileHandler{contextService: contextService}
}

// resolveSellerID returns the profile subject: the caller itself, or the
// seller_id query param when the caller is an admin. On failure the response
// is already written and ok is false.
func resolveSellerID(c *fiber.Ctx) (string, bool) {
	userID, authed := c.Locals("user_id").(string)
	if !authed || userID == "" {
		c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
		return "", false
	}

	target := c.Query("seller_id", "")
	if target == "" || target == userID {
		return userID, true
	}

	role, _ := c.Locals("user_role").(string)
	if role != "admin" {
		c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Admin access required to view other sellers",
		})
		return "", false
	}
	return target, true
}

// GetProfile returns the seller's profile document
// GET /api/v1/profile?seller_id=...
func (h *ProfileHandler) GetProfile(c *fiber.Ctx) error {
	sellerID, ok := resolveSellerID(c)
	if !ok {
		return nil
	}

	ctx, cancel := requestContext()
	defer cancel()

	profile, err := h.contextService.GetProfile(ctx, sellerID)
	if err != nil {
		return respondLifecycleError(c, err)
	}
	return c.JSON(profile)
}

// GetPromptContext returns the formatted prompt context document
// GET /api/v1/profile/prompt-context?seller_id=...
func (h *ProfileHandler) GetPromptContext(c *fiber.Ctx) error {
	sellerID, ok := resolveSellerID(c)
	if !ok {
		return nil
	}

	ctx, cancel := requestContext()
	defer cancel()

	doc, err := h.contextService.FormatForPrompt(ctx, sellerID)
	if err != nil {
		return respondLifecycleError(c, err)
	}

	c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	return c.SendString(doc)
}

// UpdateCustomContextRequest is the payload for admin context edits
type UpdateCustomContextRequest struct {
	SellerID string                     `json:"seller_id"`
	Name     string                     `json:"name"`
	Context  models.CustomContextUpdate `json:"context"`
}

// UpdateCustomContext merges admin-authored fields into a seller's profile
// PUT /api/v1/profile/context
func (h *ProfileHandler) UpdateCustomContext(c *fiber.Ctx) error {
	role, _ := c.Locals("user_role").(string)
	if role != "admin" {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Admin access required",
		})
	}

	var req UpdateCustomContextRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.SellerID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "seller_id is required",
		})
	}

	ctx, cancel := requestContext()
	defer cancel()

	profile, err := h.contextService.UpdateCustomContext(ctx, req.SellerID, req.Name, req.Context)
	if err != nil {
		return respondLifecycleError(c, err)
	}
	return c.JSON(profile)
}
