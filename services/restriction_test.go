package services

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ysyyds1688-maker/drinktea_api/model"
	"github.com/ysyyds1688-maker/drinktea_api/shared"
)

// newTestGuard wires the restriction service against an in-memory store with
// no Redis (every cache read is a miss) and email disabled.
func newTestGuard(t *testing.T) (*RestrictionService, *PostgresService) {
	t.Helper()

	ds := newTestStore(t)
	guard := &RestrictionService{
		sqlSvc:   ds,
		redisSvc: &RedisService{},
		notificationSvc: &NotificationService{
			sqlSvc:   ds,
			emailSvc: &EmailService{},
		},
	}
	return guard, ds
}

func TestProcessCancellationViolation_EscalatesAtThreshold(t *testing.T) {
	guard, ds := newTestGuard(t)
	user := seedUser(t, ds, shared.RoleClient)

	for i := 0; i < 2; i++ {
		r, err := guard.ProcessCancellationViolation(user.ID)
		require.NoError(t, err)
		assert.Nil(t, r, "cancellation %d must not escalate", i+1)
	}

	r, err := guard.ProcessCancellationViolation(user.ID)
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, shared.RestrictionCancellationLimit, r.RestrictionType)
	assert.Equal(t, 1, r.ViolationLevel)
	assert.True(t, r.IsFrozen)
	assert.Equal(t, 3, r.CancellationCount)
	assert.Equal(t, 0, r.NoShowCount)

	require.NotNil(t, r.AutoUnfreezeAt)
	assert.WithinDuration(t, time.Now().AddDate(0, 0, 30), *r.AutoUnfreezeAt, time.Minute)

	fresh, err := ds.GetUser(user.ID)
	require.NoError(t, err)
	assert.True(t, fresh.ClientFrozen)
	assert.False(t, fresh.WarningBadge)

	notifications, err := ds.GetNotifications(user.ID, 0)
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	assert.Equal(t, shared.NotificationAccountFrozen, notifications[0].Type)
}

func TestProcessCancellationViolation_NoDuplicateWhileActive(t *testing.T) {
	guard, ds := newTestGuard(t)
	user := seedUser(t, ds, shared.RoleClient)

	for i := 0; i < 3; i++ {
		_, err := guard.ProcessCancellationViolation(user.ID)
		require.NoError(t, err)
	}

	r, err := guard.ProcessCancellationViolation(user.ID)
	require.NoError(t, err)
	assert.Nil(t, r)

	history, err := ds.GetBookingRestrictions(user.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)

	// The counter keeps advancing even while frozen.
	fresh, err := ds.GetUser(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, fresh.CancellationCount)
}

func TestProcessNoShowViolation_SecondOffenseEscalates(t *testing.T) {
	guard, ds := newTestGuard(t)
	user := seedUser(t, ds, shared.RoleClient)

	// Third no-show opens the first restriction.
	for i := 0; i < 3; i++ {
		_, err := guard.ProcessNoShowViolation(user.ID)
		require.NoError(t, err)
	}
	first, err := ds.GetActiveBookingRestriction(user.ID)
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, 1, first.ViolationLevel)

	_, _, err = ds.UnfreezeBookingRestriction(first.ID, "admin-1", "")
	require.NoError(t, err)

	// Fourth no-show re-matches the level-1 tier.
	r, err := guard.ProcessNoShowViolation(user.ID)
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, 1, r.ViolationLevel)

	_, _, err = ds.UnfreezeBookingRestriction(r.ID, "admin-1", "")
	require.NoError(t, err)

	// Fifth no-show with level-1 history jumps to a year-long freeze.
	r, err = guard.ProcessNoShowViolation(user.ID)
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, 2, r.ViolationLevel)
	assert.Equal(t, 5, r.NoShowCount)
	require.NotNil(t, r.AutoUnfreezeAt)
	assert.WithinDuration(t, time.Now().AddDate(0, 0, 365), *r.AutoUnfreezeAt, time.Minute)

	fresh, err := ds.GetUser(user.ID)
	require.NoError(t, err)
	assert.True(t, fresh.WarningBadge)
	assert.True(t, fresh.NoShowBadge)
}

func TestProcessReportViolation_ReportLimit(t *testing.T) {
	guard, ds := newTestGuard(t)
	provider := seedUser(t, ds, shared.RoleProvider)

	for i := 0; i < 3; i++ {
		_, err := ds.IncrementReportCounters(provider.ID, shared.ReportCategoryOther)
		require.NoError(t, err)
	}

	r, err := guard.ProcessReportViolation(provider.ID)
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, shared.RestrictionReportLimit, r.RestrictionType)
	assert.Equal(t, 1, r.ViolationLevel)
	assert.Equal(t, 3, r.ReportCount)
	require.NotNil(t, r.AutoUnfreezeAt)
	assert.WithinDuration(t, time.Now().AddDate(0, 0, 30), *r.AutoUnfreezeAt, time.Minute)

	fresh, err := ds.GetUser(provider.ID)
	require.NoError(t, err)
	assert.True(t, fresh.ProviderFrozen)
	assert.Equal(t, 1, fresh.ProviderViolationLevel)
}

func TestProcessReportViolation_SevereCeilingIsPermanent(t *testing.T) {
	guard, ds := newTestGuard(t)
	provider := seedUser(t, ds, shared.RoleProvider)

	// Two not-real-person reports do not freeze on their own.
	for i := 0; i < 2; i++ {
		_, err := ds.IncrementReportCounters(provider.ID, shared.ReportCategoryNotRealPerson)
		require.NoError(t, err)
	}
	r, err := guard.ProcessReportViolation(provider.ID)
	require.NoError(t, err)
	assert.Nil(t, r)

	// The third crosses the ceiling and bypasses the level curve entirely.
	_, err = ds.IncrementReportCounters(provider.ID, shared.ReportCategoryNotRealPerson)
	require.NoError(t, err)

	r, err = guard.ProcessReportViolation(provider.ID)
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, shared.RestrictionSevereViolation, r.RestrictionType)
	assert.Equal(t, 4, r.ViolationLevel)
	assert.True(t, r.IsPermanent())
	assert.Equal(t, 3, r.NotRealPersonCount)
	assert.Equal(t, 3, r.ReportCount)
}

func TestIsUserFrozen_LazyExpirySelfHeals(t *testing.T) {
	guard, ds := newTestGuard(t)
	user := seedUser(t, ds, shared.RoleClient)

	expired := frozenBookingRestriction(user.ID, 1, inDays(-1))
	require.NoError(t, ds.CreateBookingRestriction(expired))
	require.NoError(t, ds.UpdateUserFlags(user.ID, map[string]interface{}{"client_frozen": true}))

	frozen, active, err := guard.IsUserFrozen(user.ID)
	require.NoError(t, err)
	assert.False(t, frozen)
	assert.Nil(t, active)

	healed, err := ds.GetBookingRestriction(expired.ID)
	require.NoError(t, err)
	require.NotNil(t, healed)
	assert.False(t, healed.IsFrozen)
	assert.Equal(t, shared.UnfrozenBySystem, healed.UnfrozenBy)

	fresh, err := ds.GetUser(user.ID)
	require.NoError(t, err)
	assert.False(t, fresh.ClientFrozen)
}

func TestIsUserFrozen_ActiveRestriction(t *testing.T) {
	guard, ds := newTestGuard(t)
	user := seedUser(t, ds, shared.RoleClient)

	require.NoError(t, ds.CreateBookingRestriction(frozenBookingRestriction(user.ID, 2, inDays(180))))

	frozen, active, err := guard.IsUserFrozen(user.ID)
	require.NoError(t, err)
	assert.True(t, frozen)
	require.NotNil(t, active)
	assert.Equal(t, 2, active.ViolationLevel)
}

func TestRunAutoUnfreeze(t *testing.T) {
	guard, ds := newTestGuard(t)
	dueClient := seedUser(t, ds, shared.RoleClient)
	dueProvider := seedUser(t, ds, shared.RoleProvider)
	banned := seedUser(t, ds, shared.RoleProvider)

	require.NoError(t, ds.CreateBookingRestriction(frozenBookingRestriction(dueClient.ID, 1, inDays(-2))))
	require.NoError(t, ds.CreateProviderRestriction(frozenProviderRestriction(dueProvider.ID, 1, inDays(-1))))
	require.NoError(t, ds.CreateProviderRestriction(frozenProviderRestriction(banned.ID, 4, nil)))
	require.NoError(t, ds.UpdateUserFlags(dueClient.ID, map[string]interface{}{"client_frozen": true}))
	require.NoError(t, ds.UpdateUserFlags(dueProvider.ID, map[string]interface{}{"provider_frozen": true}))

	count, err := guard.RunAutoUnfreeze(time.Now())
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	freshClient, err := ds.GetUser(dueClient.ID)
	require.NoError(t, err)
	assert.False(t, freshClient.ClientFrozen)

	freshProvider, err := ds.GetUser(dueProvider.ID)
	require.NoError(t, err)
	assert.False(t, freshProvider.ProviderFrozen)

	stillBanned, err := ds.GetActiveProviderRestriction(banned.ID)
	require.NoError(t, err)
	assert.NotNil(t, stillBanned)

	// Both lifted users got an unfreeze notice.
	for _, id := range []string{dueClient.ID, dueProvider.ID} {
		notifications, err := ds.GetNotifications(id, 0)
		require.NoError(t, err)
		require.Len(t, notifications, 1)
		assert.Equal(t, shared.NotificationAccountUnfrozen, notifications[0].Type)
	}

	count, err = guard.RunAutoUnfreeze(time.Now())
	require.NoError(t, err)
	assert.EqualValues(t, 0, count)
}

func TestNotifyUpcomingUnfreezes(t *testing.T) {
	guard, ds := newTestGuard(t)
	soon := seedUser(t, ds, shared.RoleClient)
	banned := seedUser(t, ds, shared.RoleClient)

	require.NoError(t, ds.CreateBookingRestriction(frozenBookingRestriction(soon.ID, 1, inDays(2))))
	require.NoError(t, ds.CreateBookingRestriction(frozenBookingRestriction(banned.ID, 4, nil)))

	require.NoError(t, guard.NotifyUpcomingUnfreezes(time.Now(), 3))

	notifications, err := ds.GetNotifications(soon.ID, 0)
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	assert.Equal(t, shared.NotificationUnfreezeSoon, notifications[0].Type)

	notifications, err = ds.GetNotifications(banned.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, notifications)
}

func TestCreateManualBookingRestriction(t *testing.T) {
	guard, ds := newTestGuard(t)
	user := seedUser(t, ds, shared.RoleClient)

	r, err := guard.CreateManualBookingRestriction(user.ID, "repeated chargebacks", 2, false, "ticket 4412")
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, shared.RestrictionManual, r.RestrictionType)
	assert.Equal(t, "ticket 4412", r.Notes)
	require.NotNil(t, r.AutoUnfreezeAt)
	assert.WithinDuration(t, time.Now().AddDate(0, 0, 180), *r.AutoUnfreezeAt, time.Minute)

	// A second manual freeze while one is active is a conflict, not a no-op.
	_, err = guard.CreateManualBookingRestriction(user.ID, "again", 1, false, "")
	require.Error(t, err)
	appErr, ok := shared.GetAppError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusConflict, appErr.StatusCode)
}

func TestCreateManualBookingRestriction_Permanent(t *testing.T) {
	guard, ds := newTestGuard(t)
	user := seedUser(t, ds, shared.RoleClient)

	r, err := guard.CreateManualBookingRestriction(user.ID, "fraud ring", 3, true, "")
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.True(t, r.IsPermanent())
}

func TestCreateManualProviderRestriction_Permanent(t *testing.T) {
	guard, ds := newTestGuard(t)
	user := seedUser(t, ds, shared.RoleProvider)

	r, err := guard.CreateManualProviderRestriction(user.ID, "offline payment solicitation", 3, true, "ticket 9001")
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.True(t, r.IsPermanent())
	assert.Nil(t, r.AutoUnfreezeAt)
	assert.Equal(t, "ticket 9001", r.Notes)

	fresh, err := ds.GetUser(user.ID)
	require.NoError(t, err)
	assert.True(t, fresh.ProviderFrozen)

	// The notice must describe the restriction as permanent, not carry a
	// lift date the record does not have.
	notifications, err := ds.GetNotifications(user.ID, 0)
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	assert.Equal(t, shared.NotificationAccountFrozen, notifications[0].Type)
	assert.Contains(t, notifications[0].Content, "permanently")
	assert.NotContains(t, notifications[0].Content, "until")
	assert.NotContains(t, notifications[0].Metadata, "auto_unfreeze_at")
}

func TestUnfreezeBooking_ReplayDoesNotClearNewerFreeze(t *testing.T) {
	guard, ds := newTestGuard(t)
	user := seedUser(t, ds, shared.RoleClient)

	first, err := guard.CreateManualBookingRestriction(user.ID, "chargebacks", 1, false, "")
	require.NoError(t, err)
	_, err = guard.UnfreezeBooking(first.ID, "admin-1", "")
	require.NoError(t, err)

	second, err := guard.CreateManualBookingRestriction(user.ID, "chargebacks again", 2, false, "")
	require.NoError(t, err)
	require.NotNil(t, second)

	// Replaying the first unfreeze returns the old record but leaves the
	// newer freeze and its flags untouched.
	replayed, err := guard.UnfreezeBooking(first.ID, "admin-2", "")
	require.NoError(t, err)
	require.NotNil(t, replayed)
	assert.Equal(t, "admin-1", replayed.UnfrozenBy)

	fresh, err := ds.GetUser(user.ID)
	require.NoError(t, err)
	assert.True(t, fresh.ClientFrozen)

	unfrozen := 0
	notifications, err := ds.GetNotifications(user.ID, 0)
	require.NoError(t, err)
	for _, n := range notifications {
		if n.Type == shared.NotificationAccountUnfrozen {
			unfrozen++
		}
	}
	assert.Equal(t, 1, unfrozen)
}

func TestUnfreezeBooking_UnknownID(t *testing.T) {
	guard, _ := newTestGuard(t)

	r, err := guard.UnfreezeBooking(newID(), "admin-1", "")
	require.NoError(t, err)
	assert.Nil(t, r)
}

func TestFreezeNoticeText(t *testing.T) {
	at := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	title, content := freezeNoticeText(shared.RestrictionCancellationLimit, 1, "Exceeded the cancellation limit (3 cancellations)", &at)
	assert.Equal(t, "Your account has been restricted", title)
	assert.Contains(t, content, "until 2025-03-01")
	assert.Contains(t, content, "violation level 1")

	_, content = freezeNoticeText(shared.RestrictionSevereViolation, 4, "Severe reports against this profile", nil)
	assert.Contains(t, content, "permanently")
}

// A model.Restriction with no scheduled end is permanent; an end in the past
// makes it expired but only while still frozen.
func TestRestrictionLifecyclePredicates(t *testing.T) {
	now := time.Now()

	permanent := model.Restriction{IsFrozen: true}
	assert.True(t, permanent.IsPermanent())
	assert.False(t, permanent.IsExpired(now))

	past := now.Add(-time.Hour)
	expired := model.Restriction{IsFrozen: true, AutoUnfreezeAt: &past}
	assert.False(t, expired.IsPermanent())
	assert.True(t, expired.IsExpired(now))

	future := now.Add(time.Hour)
	live := model.Restriction{IsFrozen: true, AutoUnfreezeAt: &future}
	assert.False(t, live.IsExpired(now))

	// Due exactly now is already expired, matching the sweep's cutoff.
	due := model.Restriction{IsFrozen: true, AutoUnfreezeAt: &now}
	assert.True(t, due.IsExpired(now))
}
