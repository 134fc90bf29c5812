package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestInvalidCategoryIsInvalidProduct(t *testing.T) {
	assert.True(t, errors.Is(ErrInvalidCategory, ErrInvalidProduct))
	assert.False(t, errors.Is(ErrInvalidProduct, ErrInvalidCategory))
}

func TestConflictingSettlementError(t *testing.T) {
	ref := uuid.New()
	err := fmt.Errorf("settle: %w", &ConflictingSettlementError{AttemptRef: ref, Recorded: "paid", Requested: "failed"})

	assert.True(t, errors.Is(err, ErrConflictingSettlement))

	var conflict *ConflictingSettlementError
	assert.True(t, errors.As(err, &conflict))
	assert.Equal(t, ref, conflict.AttemptRef)
	assert.Contains(t, err.Error(), "already settled as paid")
}
