package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/ysyyds1688-maker/drinktea_api/model"
	"github.com/ysyyds1688-maker/drinktea_api/shared"

	appContext "github.com/alphabatem/common/context"
	log "github.com/sirupsen/logrus"
)

// RestrictionService is the decision procedure between a counted violation
// and a freeze. Booking cancellations, no-show marks and accepted reports all
// funnel through here; it consults the policy tables, opens restriction
// records, mirrors the denormalized user flags and sends the (reporter-blind)
// freeze notice.
type RestrictionService struct {
	appContext.DefaultService

	sqlSvc          *PostgresService
	redisSvc        *RedisService
	notificationSvc *NotificationService
}

const RESTRICTION_SVC = "restriction_svc"

const (
	clientFamily   = "client"
	providerFamily = "provider"
)

func (svc RestrictionService) Id() string {
	return RESTRICTION_SVC
}

func (svc *RestrictionService) Start() error {
	svc.sqlSvc = svc.Service(POSTGRES_SVC).(*PostgresService)
	svc.redisSvc = svc.Service(REDIS_SVC).(*RedisService)
	svc.notificationSvc = svc.Service(NOTIFICATION_SVC).(*NotificationService)
	return nil
}

// ==================== BOOKING-SIDE GUARD ====================

// ProcessCancellationViolation records one more cancellation for the client
// and opens a booking restriction when the new count crosses a policy tier.
// Returns the created restriction, or nil when nothing escalated.
func (svc *RestrictionService) ProcessCancellationViolation(userID string) (*model.BookingRestriction, error) {
	user, err := svc.sqlSvc.IncrementUserCounter(userID, "cancellation_count")
	if err != nil {
		return nil, svc.sqlSvc.HandleError(err)
	}
	return svc.evaluateBookingViolation(user, shared.RestrictionCancellationLimit, user.CancellationCount)
}

// ProcessNoShowViolation records one more no-show for the client and opens a
// booking restriction when warranted.
func (svc *RestrictionService) ProcessNoShowViolation(userID string) (*model.BookingRestriction, error) {
	user, err := svc.sqlSvc.IncrementUserCounter(userID, "no_show_count")
	if err != nil {
		return nil, svc.sqlSvc.HandleError(err)
	}
	return svc.evaluateBookingViolation(user, shared.RestrictionNoShow, user.NoShowCount)
}

func (svc *RestrictionService) evaluateBookingViolation(user *model.User, restrictionType string, currentCount int) (*model.BookingRestriction, error) {
	previousLevel, err := svc.sqlSvc.MaxBookingViolationLevel(user.ID, restrictionType)
	if err != nil {
		return nil, svc.sqlSvc.HandleError(err)
	}

	newLevel := CalculateViolationLevel(currentCount, restrictionType, previousLevel)
	if newLevel == 0 {
		return nil, nil
	}

	active, err := svc.sqlSvc.GetActiveBookingRestriction(user.ID)
	if err != nil {
		return nil, svc.sqlSvc.HandleError(err)
	}
	if active != nil {
		// Never downgrade or duplicate an ongoing freeze.
		return nil, nil
	}

	now := time.Now()
	restriction := &model.BookingRestriction{
		Restriction: model.Restriction{
			ID:              newID(),
			UserID:          user.ID,
			RestrictionType: restrictionType,
			Reason:          bookingRestrictionReason(restrictionType, currentCount),
			ViolationLevel:  newLevel,
			IsFrozen:        true,
			FrozenAt:        now,
			AutoUnfreezeAt:  AutoUnfreezeTime(now, CalculateFreezeDuration(newLevel, restrictionType)),
		},
		CancellationCount: user.CancellationCount,
		NoShowCount:       user.NoShowCount,
	}

	if err := svc.sqlSvc.CreateBookingRestriction(restriction); err != nil {
		if err == ErrRestrictionActive {
			log.WithFields(log.Fields{"user_id": user.ID, "type": restrictionType}).
				Info("Concurrent violation already opened a restriction, skipping")
			return nil, nil
		}
		return nil, svc.sqlSvc.HandleError(err)
	}

	flags := map[string]interface{}{"client_frozen": true}
	if newLevel >= 2 {
		flags["warning_badge"] = true
		if restrictionType == shared.RestrictionNoShow {
			flags["no_show_badge"] = true
		}
	}
	if err := svc.sqlSvc.UpdateUserFlags(user.ID, flags); err != nil {
		return nil, svc.sqlSvc.HandleError(err)
	}

	svc.redisSvc.InvalidateFreezeFlag(context.Background(), clientFamily, user.ID)
	restrictionsCreatedTotal.WithLabelValues(clientFamily, restrictionType, strconv.Itoa(newLevel)).Inc()

	svc.sendFreezeNotice(user.ID, restriction.RestrictionType, restriction.ViolationLevel,
		restriction.Reason, restriction.AutoUnfreezeAt)

	log.WithFields(log.Fields{
		"user_id": user.ID,
		"type":    restrictionType,
		"level":   newLevel,
	}).Warn("Booking restriction created")

	return restriction, nil
}

// ==================== REPORT-SIDE GUARD ====================

// ProcessReportViolation re-evaluates a provider after an accepted report.
// Severe category ceilings take precedence over the report_limit level table
// and freeze the provider permanently.
func (svc *RestrictionService) ProcessReportViolation(targetID string) (*model.ProviderRestriction, error) {
	user, err := svc.sqlSvc.GetUser(targetID)
	if err != nil {
		return nil, svc.sqlSvc.HandleError(err)
	}

	if IsSevereViolation(user.NotRealPersonCount, user.ScamReportCount, user.FakeProfileCount) {
		return svc.createProviderRestriction(user, shared.RestrictionSevereViolation, 4,
			severeViolationReason(user), "", false)
	}

	previousLevel, err := svc.sqlSvc.MaxProviderViolationLevel(targetID, shared.RestrictionReportLimit)
	if err != nil {
		return nil, svc.sqlSvc.HandleError(err)
	}

	newLevel := CalculateProviderViolationLevel(user.ReportCount, previousLevel)
	if newLevel == 0 {
		return nil, nil
	}

	return svc.createProviderRestriction(user, shared.RestrictionReportLimit, newLevel,
		fmt.Sprintf("Accumulated %d reports against this profile", user.ReportCount), "", false)
}

// createProviderRestriction resolves the freeze duration before anything is
// written or announced, so a permanent freeze never carries an unfreeze date
// through the record or the notice.
func (svc *RestrictionService) createProviderRestriction(user *model.User, restrictionType string, level int, reason, notes string, permanent bool) (*model.ProviderRestriction, error) {
	active, err := svc.sqlSvc.GetActiveProviderRestriction(user.ID)
	if err != nil {
		return nil, svc.sqlSvc.HandleError(err)
	}
	if active != nil {
		return nil, nil
	}

	days := CalculateProviderFreezeDuration(level, restrictionType)
	if permanent {
		days = PermanentFreeze
	}

	now := time.Now()
	restriction := &model.ProviderRestriction{
		Restriction: model.Restriction{
			ID:              newID(),
			UserID:          user.ID,
			RestrictionType: restrictionType,
			Reason:          reason,
			ViolationLevel:  level,
			IsFrozen:        true,
			FrozenAt:        now,
			AutoUnfreezeAt:  AutoUnfreezeTime(now, days),
			Notes:           notes,
		},
		ReportCount:        user.ReportCount,
		ScamReportCount:    user.ScamReportCount,
		NotRealPersonCount: user.NotRealPersonCount,
		FakeProfileCount:   user.FakeProfileCount,
	}

	if err := svc.sqlSvc.CreateProviderRestriction(restriction); err != nil {
		if err == ErrRestrictionActive {
			log.WithFields(log.Fields{"user_id": user.ID, "type": restrictionType}).
				Info("Concurrent report already opened a restriction, skipping")
			return nil, nil
		}
		return nil, svc.sqlSvc.HandleError(err)
	}

	flags := map[string]interface{}{
		"provider_frozen":          true,
		"provider_violation_level": level,
	}
	if err := svc.sqlSvc.UpdateUserFlags(user.ID, flags); err != nil {
		return nil, svc.sqlSvc.HandleError(err)
	}

	svc.redisSvc.InvalidateFreezeFlag(context.Background(), providerFamily, user.ID)
	restrictionsCreatedTotal.WithLabelValues(providerFamily, restrictionType, strconv.Itoa(level)).Inc()

	svc.sendFreezeNotice(user.ID, restrictionType, level, reason, restriction.AutoUnfreezeAt)

	log.WithFields(log.Fields{
		"user_id": user.ID,
		"type":    restrictionType,
		"level":   level,
	}).Warn("Provider restriction created")

	return restriction, nil
}

// ==================== MANUAL RESTRICTIONS ====================

func (svc *RestrictionService) CreateManualBookingRestriction(userID, reason string, level int, permanent bool, notes string) (*model.BookingRestriction, error) {
	user, err := svc.sqlSvc.GetUser(userID)
	if err != nil {
		return nil, svc.sqlSvc.HandleError(err)
	}

	now := time.Now()
	days := CalculateFreezeDuration(level, shared.RestrictionManual)
	if permanent {
		days = PermanentFreeze
	}

	restriction := &model.BookingRestriction{
		Restriction: model.Restriction{
			ID:              newID(),
			UserID:          user.ID,
			RestrictionType: shared.RestrictionManual,
			Reason:          reason,
			ViolationLevel:  level,
			IsFrozen:        true,
			FrozenAt:        now,
			AutoUnfreezeAt:  AutoUnfreezeTime(now, days),
			Notes:           notes,
		},
		CancellationCount: user.CancellationCount,
		NoShowCount:       user.NoShowCount,
	}

	if err := svc.sqlSvc.CreateBookingRestriction(restriction); err != nil {
		if err == ErrRestrictionActive {
			return nil, shared.NewConflictError(err, "User already has an active restriction")
		}
		return nil, svc.sqlSvc.HandleError(err)
	}

	if err := svc.sqlSvc.UpdateUserFlags(user.ID, map[string]interface{}{"client_frozen": true}); err != nil {
		return nil, svc.sqlSvc.HandleError(err)
	}

	svc.redisSvc.InvalidateFreezeFlag(context.Background(), clientFamily, user.ID)
	restrictionsCreatedTotal.WithLabelValues(clientFamily, shared.RestrictionManual, strconv.Itoa(level)).Inc()
	svc.sendFreezeNotice(user.ID, shared.RestrictionManual, level, reason, restriction.AutoUnfreezeAt)

	return restriction, nil
}

func (svc *RestrictionService) CreateManualProviderRestriction(userID, reason string, level int, permanent bool, notes string) (*model.ProviderRestriction, error) {
	user, err := svc.sqlSvc.GetUser(userID)
	if err != nil {
		return nil, svc.sqlSvc.HandleError(err)
	}

	restriction, err := svc.createProviderRestriction(user, shared.RestrictionManual, level, reason, notes, permanent)
	if err != nil {
		return nil, err
	}
	if restriction == nil {
		return nil, shared.NewConflictError(nil, "User already has an active restriction")
	}

	return restriction, nil
}

// ==================== FREEZE QUERIES ====================

// IsUserFrozen is the live gate booking-creation calls before allowing a
// client to act. An expired-but-still-flagged restriction is self-healed
// inline rather than waiting for the sweep.
func (svc *RestrictionService) IsUserFrozen(userID string) (bool, *model.BookingRestriction, error) {
	ctx := context.Background()
	if frozen, ok := svc.redisSvc.GetFreezeFlag(ctx, clientFamily, userID); ok && !frozen {
		return false, nil, nil
	}

	active, err := svc.sqlSvc.GetActiveBookingRestriction(userID)
	if err != nil {
		return false, nil, svc.sqlSvc.HandleError(err)
	}
	if active == nil {
		svc.redisSvc.SetFreezeFlag(ctx, clientFamily, userID, false)
		return false, nil, nil
	}

	now := time.Now()
	if active.IsExpired(now) {
		svc.lazyUnfreezeBooking(active)
		return false, nil, nil
	}

	svc.redisSvc.SetFreezeFlag(ctx, clientFamily, userID, true)
	return true, active, nil
}

// IsProviderFrozen is the equivalent gate for provider-side actions (being
// booked, updating the profile, posting).
func (svc *RestrictionService) IsProviderFrozen(userID string) (bool, *model.ProviderRestriction, error) {
	ctx := context.Background()
	if frozen, ok := svc.redisSvc.GetFreezeFlag(ctx, providerFamily, userID); ok && !frozen {
		return false, nil, nil
	}

	active, err := svc.sqlSvc.GetActiveProviderRestriction(userID)
	if err != nil {
		return false, nil, svc.sqlSvc.HandleError(err)
	}
	if active == nil {
		svc.redisSvc.SetFreezeFlag(ctx, providerFamily, userID, false)
		return false, nil, nil
	}

	now := time.Now()
	if active.IsExpired(now) {
		svc.lazyUnfreezeProvider(active)
		return false, nil, nil
	}

	svc.redisSvc.SetFreezeFlag(ctx, providerFamily, userID, true)
	return true, active, nil
}

func (svc *RestrictionService) lazyUnfreezeBooking(r *model.BookingRestriction) {
	_, lifted, err := svc.sqlSvc.UnfreezeBookingRestriction(r.ID, shared.UnfrozenBySystem, "")
	if err != nil {
		log.WithError(err).WithField("restriction_id", r.ID).Warn("Lazy unfreeze failed")
		return
	}
	if lifted {
		svc.afterBookingUnfreeze(r.UserID)
	}
}

func (svc *RestrictionService) lazyUnfreezeProvider(r *model.ProviderRestriction) {
	_, lifted, err := svc.sqlSvc.UnfreezeProviderRestriction(r.ID, shared.UnfrozenBySystem, "")
	if err != nil {
		log.WithError(err).WithField("restriction_id", r.ID).Warn("Lazy unfreeze failed")
		return
	}
	if lifted {
		svc.afterProviderUnfreeze(r.UserID)
	}
}

// ==================== UNFREEZE ====================

// UnfreezeBooking lifts a client restriction, attributed to the acting admin.
// Already-unfrozen records are a strict no-op (the user's flags and notices
// are left alone, a newer freeze may be active); unknown ids return nil.
func (svc *RestrictionService) UnfreezeBooking(id, unfrozenBy, notes string) (*model.BookingRestriction, error) {
	r, lifted, err := svc.sqlSvc.UnfreezeBookingRestriction(id, unfrozenBy, notes)
	if err != nil {
		return nil, svc.sqlSvc.HandleError(err)
	}
	if r == nil {
		return nil, nil
	}
	if lifted {
		svc.afterBookingUnfreeze(r.UserID)
	}
	return r, nil
}

func (svc *RestrictionService) UnfreezeProvider(id, unfrozenBy, notes string) (*model.ProviderRestriction, error) {
	r, lifted, err := svc.sqlSvc.UnfreezeProviderRestriction(id, unfrozenBy, notes)
	if err != nil {
		return nil, svc.sqlSvc.HandleError(err)
	}
	if r == nil {
		return nil, nil
	}
	if lifted {
		svc.afterProviderUnfreeze(r.UserID)
	}
	return r, nil
}

func (svc *RestrictionService) afterBookingUnfreeze(userID string) {
	if err := svc.sqlSvc.UpdateUserFlags(userID, map[string]interface{}{"client_frozen": false}); err != nil {
		log.WithError(err).WithField("user_id", userID).Warn("Failed to clear client freeze flag")
	}
	svc.redisSvc.InvalidateFreezeFlag(context.Background(), clientFamily, userID)
	svc.sendUnfreezeNotice(userID)
}

func (svc *RestrictionService) afterProviderUnfreeze(userID string) {
	if err := svc.sqlSvc.UpdateUserFlags(userID, map[string]interface{}{"provider_frozen": false}); err != nil {
		log.WithError(err).WithField("user_id", userID).Warn("Failed to clear provider freeze flag")
	}
	svc.redisSvc.InvalidateFreezeFlag(context.Background(), providerFamily, userID)
	svc.sendUnfreezeNotice(userID)
}

// ==================== SWEEP ====================

// RunAutoUnfreeze is the periodic backstop for restrictions that were never
// touched by a lazy read. Order-independent with respect to concurrent
// create/unfreeze calls, and a second overlapping run matches zero rows.
func (svc *RestrictionService) RunAutoUnfreeze(now time.Time) (int64, error) {
	dueBooking, err := svc.sqlSvc.DueBookingRestrictions(now)
	if err != nil {
		return 0, svc.sqlSvc.HandleError(err)
	}
	dueProvider, err := svc.sqlSvc.DueProviderRestrictions(now)
	if err != nil {
		return 0, svc.sqlSvc.HandleError(err)
	}

	bookingCount, err := svc.sqlSvc.AutoUnfreezeBookingRestrictions(now)
	if err != nil {
		return 0, svc.sqlSvc.HandleError(err)
	}
	providerCount, err := svc.sqlSvc.AutoUnfreezeProviderRestrictions(now)
	if err != nil {
		return bookingCount, svc.sqlSvc.HandleError(err)
	}

	for _, r := range dueBooking {
		svc.afterBookingUnfreeze(r.UserID)
	}
	for _, r := range dueProvider {
		svc.afterProviderUnfreeze(r.UserID)
	}

	total := bookingCount + providerCount
	if total > 0 {
		restrictionsAutoUnfrozenTotal.Add(float64(total))
		log.WithFields(log.Fields{
			"booking":  bookingCount,
			"provider": providerCount,
		}).Info("Auto-unfreeze sweep completed")
	}

	return total, nil
}

// NotifyUpcomingUnfreezes sends "your freeze ends soon" notices for
// restrictions due within daysBefore days.
func (svc *RestrictionService) NotifyUpcomingUnfreezes(now time.Time, daysBefore int) error {
	booking, err := svc.sqlSvc.PendingBookingAutoUnfreeze(now, daysBefore)
	if err != nil {
		return svc.sqlSvc.HandleError(err)
	}
	provider, err := svc.sqlSvc.PendingProviderAutoUnfreeze(now, daysBefore)
	if err != nil {
		return svc.sqlSvc.HandleError(err)
	}

	for _, r := range booking {
		svc.sendUnfreezeSoonNotice(r.UserID, r.AutoUnfreezeAt)
	}
	for _, r := range provider {
		svc.sendUnfreezeSoonNotice(r.UserID, r.AutoUnfreezeAt)
	}

	return nil
}

// ==================== PASSTHROUGH QUERIES ====================

func (svc *RestrictionService) GetBookingRestriction(id string) (*model.BookingRestriction, error) {
	return svc.sqlSvc.GetBookingRestriction(id)
}

func (svc *RestrictionService) GetBookingRestrictions(userID string) ([]model.BookingRestriction, error) {
	return svc.sqlSvc.GetBookingRestrictions(userID)
}

func (svc *RestrictionService) GetAllBookingRestrictions(includeUnfrozen bool) ([]model.BookingRestriction, error) {
	return svc.sqlSvc.GetAllBookingRestrictions(includeUnfrozen)
}

func (svc *RestrictionService) GetProviderRestriction(id string) (*model.ProviderRestriction, error) {
	return svc.sqlSvc.GetProviderRestriction(id)
}

func (svc *RestrictionService) GetProviderRestrictions(userID string) ([]model.ProviderRestriction, error) {
	return svc.sqlSvc.GetProviderRestrictions(userID)
}

func (svc *RestrictionService) GetAllProviderRestrictions(includeUnfrozen bool) ([]model.ProviderRestriction, error) {
	return svc.sqlSvc.GetAllProviderRestrictions(includeUnfrozen)
}

// ==================== NOTICES ====================

// Freeze notices are derivable purely from the restriction type, level,
// counter snapshot and unfreeze date. Reporter identity must never appear,
// even indirectly.

func bookingRestrictionReason(restrictionType string, count int) string {
	switch restrictionType {
	case shared.RestrictionCancellationLimit:
		return fmt.Sprintf("Exceeded the cancellation limit (%d cancellations)", count)
	case shared.RestrictionNoShow:
		return fmt.Sprintf("Repeated no-shows (%d missed bookings)", count)
	default:
		return "Terms of service violation"
	}
}

func severeViolationReason(user *model.User) string {
	return fmt.Sprintf(
		"Severe reports against this profile (not-real-person: %d, scam: %d, fake-profile: %d)",
		user.NotRealPersonCount, user.ScamReportCount, user.FakeProfileCount)
}

func freezeNoticeText(restrictionType string, level int, reason string, autoUnfreezeAt *time.Time) (title, content string) {
	title = "Your account has been restricted"

	until := "permanently"
	if autoUnfreezeAt != nil {
		until = "until " + autoUnfreezeAt.Format("2006-01-02")
	}

	content = fmt.Sprintf("%s. Your account is restricted %s (violation level %d).", reason, until, level)
	return title, content
}

func (svc *RestrictionService) sendFreezeNotice(userID, restrictionType string, level int, reason string, autoUnfreezeAt *time.Time) {
	title, content := freezeNoticeText(restrictionType, level, reason, autoUnfreezeAt)

	metadata := map[string]interface{}{
		"restriction_type": restrictionType,
		"violation_level":  level,
	}
	if autoUnfreezeAt != nil {
		metadata["auto_unfreeze_at"] = autoUnfreezeAt.Format("2006-01-02")
	}

	if err := svc.notificationSvc.Notify(userID, shared.NotificationAccountFrozen, title, content, "", metadata); err != nil {
		log.WithError(err).WithField("user_id", userID).Warn("Failed to deliver freeze notice")
	}
}

func (svc *RestrictionService) sendUnfreezeNotice(userID string) {
	title := "Your account restriction has been lifted"
	content := "Your account is no longer restricted. Repeated violations lead to longer restrictions."

	if err := svc.notificationSvc.Notify(userID, shared.NotificationAccountUnfrozen, title, content, "", nil); err != nil {
		log.WithError(err).WithField("user_id", userID).Warn("Failed to deliver unfreeze notice")
	}
}

func (svc *RestrictionService) sendUnfreezeSoonNotice(userID string, autoUnfreezeAt *time.Time) {
	if autoUnfreezeAt == nil {
		return
	}
	title := "Your account restriction ends soon"
	content := fmt.Sprintf("Your account restriction is scheduled to lift on %s.", autoUnfreezeAt.Format("2006-01-02"))

	metadata := map[string]interface{}{"auto_unfreeze_at": autoUnfreezeAt.Format("2006-01-02")}

	if err := svc.notificationSvc.Notify(userID, shared.NotificationUnfreezeSoon, title, content, "", metadata); err != nil {
		log.WithError(err).WithField("user_id", userID).Warn("Failed to deliver unfreeze-soon notice")
	}
}
