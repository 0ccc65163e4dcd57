package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ysyyds1688-maker/drinktea_api/model"
	"github.com/ysyyds1688-maker/drinktea_api/shared"
)

// newTestStore opens an isolated in-memory database with the production
// schema, partial unique indexes included.
func newTestStore(t *testing.T) *PostgresService {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", newID())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	ds := &PostgresService{db: db}
	require.NoError(t, ds.migrate())

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	return ds
}

func seedUser(t *testing.T, ds *PostgresService, role string) *model.User {
	t.Helper()

	id := newID()
	user := &model.User{
		ID:       id,
		Email:    id + "@example.com",
		Username: "u_" + id,
		Role:     role,
	}
	_, err := ds.CreateUser(user)
	require.NoError(t, err)
	return user
}

func frozenBookingRestriction(userID string, level int, autoUnfreezeAt *time.Time) *model.BookingRestriction {
	return &model.BookingRestriction{
		Restriction: model.Restriction{
			ID:              newID(),
			UserID:          userID,
			RestrictionType: shared.RestrictionCancellationLimit,
			ViolationLevel:  level,
			IsFrozen:        true,
			FrozenAt:        time.Now(),
			AutoUnfreezeAt:  autoUnfreezeAt,
		},
	}
}

func frozenProviderRestriction(userID string, level int, autoUnfreezeAt *time.Time) *model.ProviderRestriction {
	return &model.ProviderRestriction{
		Restriction: model.Restriction{
			ID:              newID(),
			UserID:          userID,
			RestrictionType: shared.RestrictionReportLimit,
			ViolationLevel:  level,
			IsFrozen:        true,
			FrozenAt:        time.Now(),
			AutoUnfreezeAt:  autoUnfreezeAt,
		},
	}
}

func inDays(d int) *time.Time {
	t := time.Now().AddDate(0, 0, d)
	return &t
}

func TestCreateBookingRestriction_SecondActiveRowRejected(t *testing.T) {
	ds := newTestStore(t)
	user := seedUser(t, ds, shared.RoleClient)

	require.NoError(t, ds.CreateBookingRestriction(frozenBookingRestriction(user.ID, 1, inDays(30))))

	err := ds.CreateBookingRestriction(frozenBookingRestriction(user.ID, 2, inDays(180)))
	assert.ErrorIs(t, err, ErrRestrictionActive)

	// The two families are independent: the same user can still carry an
	// active provider restriction.
	require.NoError(t, ds.CreateProviderRestriction(frozenProviderRestriction(user.ID, 1, inDays(30))))

	// And an unfrozen history row does not block a new freeze.
	other := seedUser(t, ds, shared.RoleClient)
	first := frozenBookingRestriction(other.ID, 1, inDays(30))
	require.NoError(t, ds.CreateBookingRestriction(first))
	_, _, err = ds.UnfreezeBookingRestriction(first.ID, "admin-1", "")
	require.NoError(t, err)
	require.NoError(t, ds.CreateBookingRestriction(frozenBookingRestriction(other.ID, 2, inDays(180))))
}

func TestUnfreezeBookingRestriction_Idempotent(t *testing.T) {
	ds := newTestStore(t)
	user := seedUser(t, ds, shared.RoleClient)

	r := frozenBookingRestriction(user.ID, 1, inDays(30))
	require.NoError(t, ds.CreateBookingRestriction(r))

	got, lifted, err := ds.UnfreezeBookingRestriction(r.ID, "admin-1", "appeal accepted")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, lifted)
	assert.False(t, got.IsFrozen)
	assert.Equal(t, "admin-1", got.UnfrozenBy)
	assert.NotNil(t, got.UnfrozenAt)
	assert.Equal(t, "appeal accepted", got.Notes)

	// Second call matches no frozen row, reports no transition and leaves
	// the attribution alone.
	again, lifted, err := ds.UnfreezeBookingRestriction(r.ID, "admin-2", "")
	require.NoError(t, err)
	require.NotNil(t, again)
	assert.False(t, lifted)
	assert.Equal(t, "admin-1", again.UnfrozenBy)

	// Unknown ids are not an error.
	missing, lifted, err := ds.UnfreezeBookingRestriction(newID(), "admin-1", "")
	require.NoError(t, err)
	assert.Nil(t, missing)
	assert.False(t, lifted)
}

func TestAutoUnfreezeBookingRestrictions(t *testing.T) {
	ds := newTestStore(t)
	due := seedUser(t, ds, shared.RoleClient)
	pending := seedUser(t, ds, shared.RoleClient)
	banned := seedUser(t, ds, shared.RoleClient)

	dueRow := frozenBookingRestriction(due.ID, 1, inDays(-1))
	require.NoError(t, ds.CreateBookingRestriction(dueRow))
	require.NoError(t, ds.CreateBookingRestriction(frozenBookingRestriction(pending.ID, 1, inDays(10))))
	require.NoError(t, ds.CreateBookingRestriction(frozenBookingRestriction(banned.ID, 4, nil)))

	now := time.Now()

	rows, err := ds.DueBookingRestrictions(now)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, due.ID, rows[0].UserID)

	count, err := ds.AutoUnfreezeBookingRestrictions(now)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	lifted, err := ds.GetBookingRestriction(dueRow.ID)
	require.NoError(t, err)
	require.NotNil(t, lifted)
	assert.False(t, lifted.IsFrozen)
	assert.Equal(t, shared.UnfrozenBySystem, lifted.UnfrozenBy)

	// Permanent rows are never swept.
	active, err := ds.GetActiveBookingRestriction(banned.ID)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.True(t, active.IsPermanent())

	// A second sweep finds nothing left to do.
	count, err = ds.AutoUnfreezeBookingRestrictions(time.Now())
	require.NoError(t, err)
	assert.EqualValues(t, 0, count)
}

func TestPendingBookingAutoUnfreeze(t *testing.T) {
	ds := newTestStore(t)
	soon := seedUser(t, ds, shared.RoleClient)
	later := seedUser(t, ds, shared.RoleClient)
	overdue := seedUser(t, ds, shared.RoleClient)
	banned := seedUser(t, ds, shared.RoleClient)

	require.NoError(t, ds.CreateBookingRestriction(frozenBookingRestriction(soon.ID, 1, inDays(2))))
	require.NoError(t, ds.CreateBookingRestriction(frozenBookingRestriction(later.ID, 2, inDays(10))))
	require.NoError(t, ds.CreateBookingRestriction(frozenBookingRestriction(overdue.ID, 1, inDays(-1))))
	require.NoError(t, ds.CreateBookingRestriction(frozenBookingRestriction(banned.ID, 4, nil)))

	rows, err := ds.PendingBookingAutoUnfreeze(time.Now(), 3)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, soon.ID, rows[0].UserID)
}

func TestMaxBookingViolationLevel(t *testing.T) {
	ds := newTestStore(t)
	user := seedUser(t, ds, shared.RoleClient)

	level, err := ds.MaxBookingViolationLevel(user.ID, shared.RestrictionCancellationLimit)
	require.NoError(t, err)
	assert.Equal(t, 0, level)

	first := frozenBookingRestriction(user.ID, 1, inDays(30))
	require.NoError(t, ds.CreateBookingRestriction(first))
	_, _, err = ds.UnfreezeBookingRestriction(first.ID, shared.UnfrozenBySystem, "")
	require.NoError(t, err)

	second := frozenBookingRestriction(user.ID, 2, inDays(180))
	require.NoError(t, ds.CreateBookingRestriction(second))

	level, err = ds.MaxBookingViolationLevel(user.ID, shared.RestrictionCancellationLimit)
	require.NoError(t, err)
	assert.Equal(t, 2, level)

	// History is per restriction type.
	level, err = ds.MaxBookingViolationLevel(user.ID, shared.RestrictionNoShow)
	require.NoError(t, err)
	assert.Equal(t, 0, level)
}

func TestIncrementUserCounter(t *testing.T) {
	ds := newTestStore(t)
	user := seedUser(t, ds, shared.RoleClient)

	got, err := ds.IncrementUserCounter(user.ID, "cancellation_count")
	require.NoError(t, err)
	assert.Equal(t, 1, got.CancellationCount)

	got, err = ds.IncrementUserCounter(user.ID, "cancellation_count")
	require.NoError(t, err)
	assert.Equal(t, 2, got.CancellationCount)
	assert.Equal(t, 0, got.NoShowCount)

	_, err = ds.IncrementUserCounter(newID(), "cancellation_count")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestIncrementReportCounters(t *testing.T) {
	ds := newTestStore(t)
	provider := seedUser(t, ds, shared.RoleProvider)

	got, err := ds.IncrementReportCounters(provider.ID, shared.ReportCategoryScam)
	require.NoError(t, err)
	assert.Equal(t, 1, got.ReportCount)
	assert.Equal(t, 1, got.ScamReportCount)
	assert.Equal(t, 0, got.NotRealPersonCount)

	// "other" has no category-specific counter.
	got, err = ds.IncrementReportCounters(provider.ID, shared.ReportCategoryOther)
	require.NoError(t, err)
	assert.Equal(t, 2, got.ReportCount)
	assert.Equal(t, 1, got.ScamReportCount)

	_, err = ds.IncrementReportCounters(newID(), shared.ReportCategoryScam)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestGetActiveBookingRestriction_MissIsNil(t *testing.T) {
	ds := newTestStore(t)
	user := seedUser(t, ds, shared.RoleClient)

	active, err := ds.GetActiveBookingRestriction(user.ID)
	require.NoError(t, err)
	assert.Nil(t, active)
}

func TestGetReportByReporterAndTarget_Window(t *testing.T) {
	ds := newTestStore(t)
	reporter := seedUser(t, ds, shared.RoleClient)
	target := seedUser(t, ds, shared.RoleProvider)

	report := &model.Report{
		ID:         newID(),
		ReporterID: reporter.ID,
		TargetID:   target.ID,
		Category:   shared.ReportCategoryScam,
		Status:     shared.ReportStatusPending,
	}
	_, err := ds.CreateReport(report)
	require.NoError(t, err)

	got, err := ds.GetReportByReporterAndTarget(reporter.ID, target.ID, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, report.ID, got.ID)

	// Outside the window the report no longer counts as a duplicate.
	got, err = ds.GetReportByReporterAndTarget(reporter.ID, target.ID, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Nil(t, got)
}
