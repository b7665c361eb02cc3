package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/palemoky/old-maid/internal/protocol"
)

func TestCode(t *testing.T) {
	t.Parallel()

	assert.Equal(t, protocol.ErrCodeNotYourTurn, Code(ErrNotYourTurn))
	assert.Equal(t, protocol.ErrCodeConfig, Code(fmt.Errorf("%w: odd suits", ErrConfig)))
	assert.Equal(t, protocol.ErrCodeUnknown, Code(errors.New("boom")))
}

func TestWrappedSentinel(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("deal: %w", ErrConfig)
	assert.ErrorIs(t, err, ErrConfig)
	assert.NotErrorIs(t, err, ErrIllegalState)
}
