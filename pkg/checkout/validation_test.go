package checkout

import (
	"testing"

	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/easyshop-backend/pkg/errors"
)

func TestValidateQuantities_NoViolations(t *testing.T) {
	items := []QuantityInput{
		{ProductID: uuid.New(), Quantity: 1},
		{ProductID: uuid.New(), Quantity: 4},
	}
	if err := ValidateQuantities(items); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestValidateQuantities_ReportsViolations(t *testing.T) {
	bad := uuid.New()
	err := ValidateQuantities([]QuantityInput{
		{ProductID: uuid.New(), Quantity: 2},
		{ProductID: bad, Quantity: 0},
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	details, ok := typed.Details().(map[string]any)
	if !ok {
		t.Fatalf("expected details map")
	}
	violations, ok := details["violations"].([]QuantityViolation)
	if !ok || len(violations) != 1 || violations[0].ProductID != bad {
		t.Fatalf("unexpected violations %+v", details["violations"])
	}
}
