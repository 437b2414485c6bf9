package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/repository"
)

// FolioPrefixes maps each category to its folio letter. SALES uses V (ventas)
// so that it does not collide with SUPPORT.
var FolioPrefixes = map[domain.TicketCategory]string{
	domain.TicketCategorySupport:     "S",
	domain.TicketCategoryDevelopment: "D",
	domain.TicketCategorySales:       "V",
}

// FormatFolio renders "<prefix>-<6-digit sequence>".
func FormatFolio(category domain.TicketCategory, sequence int64) string {
	return fmt.Sprintf("%s-%06d", FolioPrefixes[category], sequence)
}

// IsFolio reports whether ref has the folio shape rather than a ticket id.
func IsFolio(ref string) bool {
	prefix, digits, ok := strings.Cut(ref, "-")
	if !ok || len(digits) < 6 {
		return false
	}
	known := false
	for _, p := range FolioPrefixes {
		if p == prefix {
			known = true
			break
		}
	}
	if !known {
		return false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// AllocateFolio reserves the next sequence number for category. tx must be
// the transaction that inserts the ticket so that a rollback returns the
// number to the counter.
func AllocateFolio(ctx context.Context, tx repository.Store, category domain.TicketCategory) (string, int64, error) {
	if !category.Valid() {
		return "", 0, fmt.Errorf("unknown ticket category %q", category)
	}
	seq, err := tx.Sequences().Next(ctx, category)
	if err != nil {
		return "", 0, fmt.Errorf("allocate folio: %w", err)
	}
	return FormatFolio(category, seq), seq, nil
}
