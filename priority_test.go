package coldcore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateBudgetsAscendWithTier(t *testing.T) {
	assert.Equal(t, 100*time.Microsecond, PriorityCritical.UpdateBudget())
	assert.Equal(t, 500*time.Microsecond, PriorityHigh.UpdateBudget())
	assert.Equal(t, 2*time.Millisecond, PriorityStandard.UpdateBudget())
	assert.Equal(t, 5*time.Millisecond, PriorityLow.UpdateBudget())
	assert.Equal(t, 10*time.Millisecond, PriorityBackground.UpdateBudget())
}

func TestHeartbeatTimeoutsAscendWithTier(t *testing.T) {
	tiers := []Priority{PriorityCritical, PriorityHigh, PriorityStandard, PriorityLow, PriorityBackground}
	for i := 1; i < len(tiers); i++ {
		assert.Greater(t, tiers[i].HeartbeatTimeout(), tiers[i-1].HeartbeatTimeout(),
			"%s must wait longer than %s", tiers[i], tiers[i-1])
	}
	assert.Equal(t, 30*time.Second, PriorityStandard.HeartbeatTimeout())
}

func TestParsePriorityRoundTrip(t *testing.T) {
	for _, p := range []Priority{PriorityCritical, PriorityHigh, PriorityStandard, PriorityLow, PriorityBackground} {
		parsed, err := ParsePriority(p.String())
		require.NoError(t, err)
		assert.Equal(t, p, parsed)
	}

	_, err := ParsePriority("turbo")
	assert.ErrorIs(t, err, ErrUnknownPriority)
}

func TestPriorityStringUnknown(t *testing.T) {
	assert.Equal(t, "unknown", Priority(42).String())
}

func TestModuleStateString(t *testing.T) {
	assert.Equal(t, "created", StateCreated.String())
	assert.Equal(t, "configured", StateConfigured.String())
	assert.Equal(t, "initialized", StateInitialized.String())
	assert.Equal(t, "error", StateError.String())
}
