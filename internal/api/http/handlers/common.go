package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-desk/internal/api/dto"
	"github.com/spec-kit/support-desk/internal/auth"
	"github.com/spec-kit/support-desk/internal/domain"
	apperrors "github.com/spec-kit/support-desk/pkg/util/errorutil"
	"github.com/spec-kit/support-desk/pkg/util/validation"
)

func principalOf(c *fiber.Ctx) (*domain.Principal, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	return principal, nil
}

// bindJSON parses the body into dst and runs its validate tags.
func bindJSON(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return validation.Struct(dst)
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func parseBool(val string) *bool {
	if val == "" {
		return nil
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return nil
	}
	return &parsed
}

// splitList reads a comma separated query value into typed enum values.
func splitList[T ~string](val string) []T {
	if val == "" {
		return nil
	}
	var out []T
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, T(strings.ToUpper(part)))
		}
	}
	return out
}

func attachmentsFrom(reqs []dto.AttachmentRequest) []domain.Attachment {
	out := make([]domain.Attachment, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, domain.Attachment{URL: r.URL, Name: r.Name})
	}
	return out
}
