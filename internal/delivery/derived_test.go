package delivery

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestElapsed(t *testing.T) {
	ordered := time.Date(2025, 3, 14, 19, 0, 0, 0, time.UTC)
	d := Delivery{OrderedAt: ordered}

	assert.Equal(t, "0 min", Elapsed(d, ordered.Add(-time.Minute)))
	assert.Equal(t, "15 min", Elapsed(d, ordered.Add(15*time.Minute+30*time.Second)))
	assert.Equal(t, "59 min", Elapsed(d, ordered.Add(59*time.Minute)))
	assert.Equal(t, "1h 0min", Elapsed(d, ordered.Add(time.Hour)))
	assert.Equal(t, "1h 30min", Elapsed(d, ordered.Add(90*time.Minute)))
}

func TestIsLate(t *testing.T) {
	ordered := time.Date(2025, 3, 14, 19, 0, 0, 0, time.UTC)
	d := Delivery{OrderedAt: ordered, State: StateEnRoute}

	assert.False(t, IsLate(d, ordered.Add(45*time.Minute)))
	assert.False(t, IsLate(d, ordered.Add(45*time.Minute+59*time.Second)))
	assert.True(t, IsLate(d, ordered.Add(46*time.Minute)))

	d.State = StateDelivered
	assert.False(t, IsLate(d, ordered.Add(3*time.Hour)))
	d.State = StateCancelled
	assert.False(t, IsLate(d, ordered.Add(3*time.Hour)))
}

func TestStateColor(t *testing.T) {
	assert.Equal(t, "#6f42c1", StateColor(StateEnRoute))
	assert.Equal(t, "#28a745", StateColor(StateDelivered))
	assert.Equal(t, "#6c757d", StateColor("desconocido"))
}

func TestStatePath(t *testing.T) {
	assert.True(t, StatePending.CanAdvanceTo(StatePreparing))
	assert.True(t, StatePending.CanAdvanceTo(StateDelivered))
	assert.False(t, StateReady.CanAdvanceTo(StatePreparing))
	assert.False(t, StateReady.CanAdvanceTo(StateReady))
	assert.False(t, StateReady.CanAdvanceTo(StateCancelled))
	assert.False(t, StateCancelled.CanAdvanceTo(StateDelivered))
	assert.True(t, StateEnRoute.CanCancel())
	assert.False(t, StateDelivered.CanCancel())
	assert.True(t, StateCancelled.IsValid())
}

func TestSplitNeighborhoods(t *testing.T) {
	assert.Equal(t, []string{"Centro", "La Candelaria"}, SplitNeighborhoods(" Centro, ,La Candelaria,"))
	assert.Nil(t, SplitNeighborhoods(""))
}
