package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clan-tracker/internal/constants"
)

func resetZone(t *testing.T) *time.Location {
	t.Helper()
	zone, err := time.LoadLocation(constants.DailyResetZone)
	require.NoError(t, err)
	return zone
}

func TestLastResetBeforeNoon(t *testing.T) {
	zone := resetZone(t)
	svc := &PointsService{resetZone: zone}

	// 09:00 local is before the reset, so the window opened at noon yesterday
	now := time.Date(2026, time.March, 10, 9, 0, 0, 0, zone)
	reset := svc.lastReset(now)

	assert.Equal(t, time.Date(2026, time.March, 9, 12, 0, 0, 0, zone), reset)
}

func TestLastResetAfterNoon(t *testing.T) {
	zone := resetZone(t)
	svc := &PointsService{resetZone: zone}

	now := time.Date(2026, time.March, 10, 15, 30, 0, 0, zone)
	reset := svc.lastReset(now)

	assert.Equal(t, time.Date(2026, time.March, 10, 12, 0, 0, 0, zone), reset)
}

func TestLastResetExactlyNoon(t *testing.T) {
	zone := resetZone(t)
	svc := &PointsService{resetZone: zone}

	now := time.Date(2026, time.March, 10, 12, 0, 0, 0, zone)
	reset := svc.lastReset(now)

	assert.Equal(t, now, reset, "noon itself belongs to the new window")
}

func TestLastResetNormalizesForeignZones(t *testing.T) {
	zone := resetZone(t)
	svc := &PointsService{resetZone: zone}

	// 13:00 UTC during BST is 14:00 London, past the reset
	now := time.Date(2026, time.July, 10, 13, 0, 0, 0, time.UTC)
	reset := svc.lastReset(now)

	assert.Equal(t, time.Date(2026, time.July, 10, 12, 0, 0, 0, zone), reset)
}
