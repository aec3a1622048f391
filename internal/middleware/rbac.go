package middleware

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gema-assessment-api/internal/identity"
	"github.com/noah-isme/gema-assessment-api/internal/utils"
)

// Faculty roles allowed to read other learners' submissions.
var FacultyRoles = []string{"admin", "teacher", "faculty"}

// RequireRole ensures that the authenticated user possesses one of the allowed roles.
func RequireRole(roles ...string) fiber.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		normalized := strings.ToLower(strings.TrimSpace(role))
		if normalized != "" {
			allowed[normalized] = struct{}{}
		}
	}

	return func(c *fiber.Ctx) error {
		role := normalizeRoleValue(c.Locals("user_role"))
		if _, ok := allowed[role]; !ok {
			return utils.SendFailure(c, fiber.StatusForbidden, utils.ErrCodeUnauthorized, "insufficient permissions", nil)
		}
		return c.Next()
	}
}

// RequireSelfOrRole lets callers read resources addressed by their own id in
// the route parameter param. Holders of one of roles may read any id.
// Identifiers match in either their string or native form.
func RequireSelfOrRole(param string, roles ...string) fiber.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		if normalized := strings.ToLower(strings.TrimSpace(role)); normalized != "" {
			allowed[normalized] = struct{}{}
		}
	}

	return func(c *fiber.Ctx) error {
		if _, ok := allowed[normalizeRoleValue(c.Locals("user_role"))]; ok {
			return c.Next()
		}

		caller, _ := c.Locals("user_id").(string)
		if sameIdentity(caller, c.Params(param)) {
			return c.Next()
		}
		return utils.SendFailure(c, fiber.StatusForbidden, utils.ErrCodeUnauthorized, "insufficient permissions", nil)
	}
}

func sameIdentity(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if a == "" || b == "" {
		return false
	}
	if idA, ok := identity.Native(a); ok {
		idB, ok := identity.Native(b)
		return ok && idA == idB
	}
	return a == b
}

func normalizeRoleValue(value interface{}) string {
	switch v := value.(type) {
	case string:
		return strings.ToLower(strings.TrimSpace(v))
	case fmt.Stringer:
		return strings.ToLower(strings.TrimSpace(v.String()))
	default:
		if value == nil {
			return ""
		}
		return strings.ToLower(strings.TrimSpace(fmt.Sprintf("%v", value)))
	}
}
