package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_TrackAndGet(t *testing.T) {
	r := NewRegistry()

	h := r.Track("ingestor", "OPTIMISM")
	require.NotNil(t, h)
	assert.Same(t, h, r.Track("ingestor", "OPTIMISM"), "Track reuses the tracker")
	assert.Same(t, h, r.Get("ingestor", "OPTIMISM"))
	assert.Nil(t, r.Get("ingestor", "ETHEREUM"))
}

func TestRegistry_SnapshotsOrdered(t *testing.T) {
	r := NewRegistry()
	r.Track("scheduler", "")
	r.Track("ingestor", "OPTIMISM")
	r.Track("ingestor", "ETHEREUM")

	snaps := r.Snapshots()
	require.Len(t, snaps, 3)
	assert.Equal(t, "ingestor", snaps[0].Component)
	assert.Equal(t, "ETHEREUM", snaps[0].Network)
	assert.Equal(t, "OPTIMISM", snaps[1].Network)
	assert.Equal(t, "scheduler", snaps[2].Component)
}

func TestRegistry_Healthy(t *testing.T) {
	r := NewRegistry()
	h := r.Track("claimer", "")
	assert.True(t, r.Healthy(), "UNKNOWN is not unhealthy")

	for i := 0; i < DefaultUnhealthyThreshold; i++ {
		h.Observe(0, errTick)
	}
	assert.False(t, r.Healthy())

	h.Observe(time.Second, nil)
	assert.True(t, r.Healthy())
}
