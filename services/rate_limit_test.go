package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ysyyds1688-maker/drinktea_api/model"
)

func newTestRateLimitService(t *testing.T) (*RateLimitService, *PostgresService) {
	t.Helper()

	ds := newTestStore(t)
	svc := &RateLimitService{sqlSvc: ds}
	svc.initDefaultConfigs()
	return svc, ds
}

func TestIsAllowed_UnknownEndpointType(t *testing.T) {
	svc, _ := newTestRateLimitService(t)

	allowed, info, err := svc.IsAllowed("10.0.0.1", "does_not_exist")
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, -1, info.Remaining)
}

func TestIsAllowed_CountsDownThenBlocks(t *testing.T) {
	svc, _ := newTestRateLimitService(t)
	const identifier = "user-123"

	// submit_report allows 10 per hour.
	for i := 1; i <= 10; i++ {
		allowed, info, err := svc.IsAllowed(identifier, "submit_report")
		require.NoError(t, err)
		assert.True(t, allowed, "request %d should pass", i)
		assert.Equal(t, 10-i, info.Remaining)
	}

	allowed, info, err := svc.IsAllowed(identifier, "submit_report")
	require.NoError(t, err)
	assert.False(t, allowed)
	require.NotNil(t, info.BlockedUntil)
	assert.WithinDuration(t, time.Now().Add(2*time.Hour), *info.BlockedUntil, time.Minute)

	// While blocked, further requests stay rejected.
	allowed, info, err = svc.IsAllowed(identifier, "submit_report")
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.NotNil(t, info.BlockedUntil)
}

func TestIsAllowed_WindowReset(t *testing.T) {
	svc, ds := newTestRateLimitService(t)
	const identifier = "10.0.0.2"

	// A filled-up window from two hours ago no longer counts.
	stale := &model.RateLimit{
		Identifier:   identifier,
		EndpointType: "submit_report",
		RequestCount: 10,
		WindowStart:  time.Now().Add(-2 * time.Hour),
	}
	require.NoError(t, ds.SaveRateLimit(stale))

	allowed, info, err := svc.IsAllowed(identifier, "submit_report")
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, 9, info.Remaining)
}

func TestIsAllowed_PerIdentifierIsolation(t *testing.T) {
	svc, _ := newTestRateLimitService(t)

	for i := 0; i < 10; i++ {
		allowed, _, err := svc.IsAllowed("heavy-user", "submit_report")
		require.NoError(t, err)
		require.True(t, allowed)
	}
	allowed, _, err := svc.IsAllowed("heavy-user", "submit_report")
	require.NoError(t, err)
	assert.False(t, allowed)

	// A different identifier on the same endpoint is unaffected.
	allowed, _, err = svc.IsAllowed("light-user", "submit_report")
	require.NoError(t, err)
	assert.True(t, allowed)

	// And the blocked identifier can still hit other endpoints.
	allowed, _, err = svc.IsAllowed("heavy-user", "booking_create")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestGetRateLimit_MissIsNil(t *testing.T) {
	_, ds := newTestRateLimitService(t)

	got, err := ds.GetRateLimit("nobody", "submit_report")
	require.NoError(t, err)
	assert.Nil(t, got)
}
