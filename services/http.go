package services

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"

	"github.com/alphabatem/common/context"
	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	fiberSwagger "github.com/gofiber/swagger"
	log "github.com/sirupsen/logrus"

	docs "github.com/ysyyds1688-maker/drinktea_api/docs"
	"github.com/ysyyds1688-maker/drinktea_api/services/handlers"
	"github.com/ysyyds1688-maker/drinktea_api/shared"
)

type HttpService struct {
	context.DefaultService

	jwtSvc          *JWTService
	rateLimitSvc    *RateLimitService
	monitoringSvc   *MonitoringService
	reportSvc       *ReportService
	bookingSvc      *BookingService
	restrictionSvc  *RestrictionService
	notificationSvc *NotificationService

	port   int
	server *fiber.App
}

const HTTP_SVC = "http_svc"

func (svc HttpService) Id() string {
	return HTTP_SVC
}

func (svc *HttpService) Configure(ctx *context.Context) error {
	if port := os.Getenv("HTTP_PORT"); port != "" {
		var err error
		if svc.port, err = strconv.Atoi(port); err != nil {
			return err
		}
	} else {
		svc.port = 8000
	}

	return svc.DefaultService.Configure(ctx)
}

func (svc *HttpService) Start() error {
	svc.jwtSvc = svc.Service(JWT_SVC).(*JWTService)
	svc.rateLimitSvc = svc.Service(RATE_LIMIT_SVC).(*RateLimitService)
	svc.monitoringSvc = svc.Service(MONITORING_SVC).(*MonitoringService)
	svc.reportSvc = svc.Service(REPORT_SVC).(*ReportService)
	svc.bookingSvc = svc.Service(BOOKING_SVC).(*BookingService)
	svc.restrictionSvc = svc.Service(RESTRICTION_SVC).(*RestrictionService)
	svc.notificationSvc = svc.Service(NOTIFICATION_SVC).(*NotificationService)

	docs.SwaggerInfo.BasePath = ""

	app := fiber.New(fiber.Config{
		JSONEncoder:  sonic.Marshal,
		JSONDecoder:  sonic.Unmarshal,
		ErrorHandler: svc.handleError,
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
	app.Use(MonitoringMiddleware(svc.monitoringSvc))
	app.Use(svc.rateLimitSvc.IPRateLimit())

	svc.registerRoutes(app)

	app.Use(func(c *fiber.Ctx) error {
		return shared.ResponseJSON(c, http.StatusNotFound, "Page not found", nil)
	})

	svc.server = app

	log.Printf("HTTP service listening on port %d", svc.port)
	return app.Listen(fmt.Sprintf(":%v", svc.port))
}

func (svc *HttpService) Shutdown() {
	if svc.server != nil {
		_ = svc.server.Shutdown()
	}
}

func (svc *HttpService) registerRoutes(app *fiber.App) {
	reportHandler := handlers.NewReportHandler(svc.reportSvc)
	bookingHandler := handlers.NewBookingHandler(svc.bookingSvc)
	restrictionHandler := handlers.NewRestrictionHandler(svc.restrictionSvc)
	notificationHandler := handlers.NewNotificationHandler(svc.notificationSvc)

	app.Get("/ping", svc.ping)
	app.Get("/swagger/*", fiberSwagger.HandlerDefault)

	v1 := app.Group("/api/v1")
	v1.Get("/ping", svc.ping)

	auth := svc.jwtSvc.RequiredAuth()

	// Reports
	reports := v1.Group("/reports", auth)
	reports.Post("/", svc.rateLimitSvc.UserBasedRateLimit("submit_report"), reportHandler.SubmitReport)
	reports.Post("/:reportId/evidence", reportHandler.AttachEvidence)

	// Bookings
	bookings := v1.Group("/bookings", auth)
	bookings.Post("/", svc.rateLimitSvc.UserBasedRateLimit("booking_create"), bookingHandler.CreateBooking)
	bookings.Get("/", bookingHandler.GetUserBookings)
	bookings.Get("/:bookingId", bookingHandler.GetBooking)
	bookings.Post("/:bookingId/cancel", svc.rateLimitSvc.UserBasedRateLimit("booking_cancel"), bookingHandler.CancelBooking)
	bookings.Post("/:bookingId/no-show", svc.jwtSvc.RequireRole(shared.RoleProvider), bookingHandler.MarkNoShow)

	// Account
	account := v1.Group("/account", auth)
	account.Get("/freeze-status", restrictionHandler.GetFreezeStatus)

	// Notifications
	notifications := v1.Group("/notifications", auth)
	notifications.Get("/", notificationHandler.GetNotifications)
	notifications.Post("/:notificationId/read", notificationHandler.MarkRead)

	// Admin
	admin := v1.Group("/admin", auth, svc.jwtSvc.RequireRole(shared.RoleAdmin))
	admin.Get("/restrictions/:family", restrictionHandler.ListRestrictions)
	admin.Post("/restrictions", svc.rateLimitSvc.UserBasedRateLimit("unfreeze_admin"), restrictionHandler.CreateManualRestriction)
	admin.Post("/restrictions/:family/:restrictionId/unfreeze", svc.rateLimitSvc.UserBasedRateLimit("unfreeze_admin"), restrictionHandler.Unfreeze)
	admin.Get("/users/:userId/restrictions", restrictionHandler.GetUserRestrictions)
	admin.Get("/users/:userId/freeze-status", restrictionHandler.GetUserFreezeStatus)
	admin.Get("/users/:userId/reports", reportHandler.GetReportsByTarget)
	admin.Get("/reports/:reportId", reportHandler.GetReport)
	admin.Put("/reports/:reportId", reportHandler.UpdateReportStatus)
	admin.Get("/rate-limits/stats", svc.rateLimitSvc.GetRateLimitStats())
	admin.Delete("/rate-limits/:identifier/:endpointType", svc.rateLimitSvc.RemoveRateLimit())
}

// @Summary Ping
// @Description This endpoint checks the health of the service
// @Tags health
// @Accept  json
// @Produce json
// @Success 200 {object} shared.Response{data=string}
// @Router /ping [get]
func (svc *HttpService) ping(c *fiber.Ctx) error {
	c.Set("Cache-Control", "max-age=10")

	return shared.ResponseJSON(c, http.StatusOK, "Success", "pong")
}

func (svc *HttpService) handleError(c *fiber.Ctx, err error) error {
	if err == nil {
		return nil
	}

	if appErr, ok := shared.GetAppError(err); ok {
		return shared.ResponseJSON(c, appErr.StatusCode, appErr.Message, appErr.Data)
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return shared.ResponseJSON(c, fiberErr.Code, fiberErr.Message, nil)
	}

	return shared.ResponseInternalError(c, err)
}
