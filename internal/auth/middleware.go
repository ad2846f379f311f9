package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

const ownerKey = "auth_owner_id"

// TokenVerifier resolves a bearer token to the owner id it was issued for.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// AuthMiddleware validates bearer tokens and stores the caller's id.
type AuthMiddleware struct {
	verifier TokenVerifier
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(verifier TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier}
}

// Handle enforces authentication for protected routes. Verification errors are
// returned as-is so the error middleware can render them.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	token, ok := bearerToken(c.Get(fiber.HeaderAuthorization))
	if !ok {
		return apperrors.NewInvalidToken("missing or malformed bearer token")
	}

	ownerID, err := m.verifier.Verify(token)
	if err != nil {
		return err
	}

	c.Locals(ownerKey, ownerID)
	return c.Next()
}

// OwnerFromContext retrieves the authenticated owner id.
func OwnerFromContext(c *fiber.Ctx) (string, bool) {
	ownerID, ok := c.Locals(ownerKey).(string)
	return ownerID, ok && ownerID != ""
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}
