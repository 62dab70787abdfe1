package checkout

import (
	"fmt"

	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/easyshop-backend/pkg/errors"
)

// QuantityInput describes one requested line for quantity validation.
type QuantityInput struct {
	ProductID uuid.UUID
	Quantity  int
}

// QuantityViolation is reported back to callers when a line is not orderable.
type QuantityViolation struct {
	ProductID    uuid.UUID `json:"product_id"`
	RequestedQty int       `json:"requested_qty"`
}

// ValidateQuantities rejects any line with a quantity below one.
func ValidateQuantities(items []QuantityInput) error {
	var violations []QuantityViolation
	for _, item := range items {
		if item.Quantity < 1 {
			violations = append(violations, QuantityViolation{
				ProductID:    item.ProductID,
				RequestedQty: item.Quantity,
			})
		}
	}
	if len(violations) == 0 {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("quantity must be at least 1 for %d item(s)", len(violations))).WithDetails(map[string]any{
		"violations": violations,
	})
}
