package validator

import (
	"errors"
	"testing"

	"go-inventory-pos/pkg/apperror"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

type sample struct {
	BranchID uuid.UUID        `validate:"uuid_required"`
	Amount   decimal.Decimal  `validate:"decimal_gte0"`
	Price    *decimal.Decimal `validate:"decimal_gte0"`
	Quantity int              `validate:"gt=0"`
}

func TestCheckPasses(t *testing.T) {
	s := sample{BranchID: uuid.New(), Amount: decimal.NewFromInt(10), Quantity: 1}
	assert.NoError(t, Check(&s))
}

func TestCheckReportsEveryField(t *testing.T) {
	neg := decimal.NewFromInt(-1)
	s := sample{Amount: decimal.NewFromInt(-5), Price: &neg}

	errs := ValidateStruct(&s)
	assert.Len(t, errs, 4)

	err := Check(&s)
	assert.True(t, errors.Is(err, apperror.ErrValidation))
	assert.Contains(t, err.Error(), "sample.BranchID failed on 'uuid_required'")
	assert.Contains(t, err.Error(), "sample.Quantity failed on 'gt=0'")
}
