package services

import (
	"os"
	"time"

	"github.com/alphabatem/common/context"
	log "github.com/sirupsen/logrus"
)

// SweepService is the backstop for restriction expiry. Reads already self-heal
// expired freezes lazily, the sweep catches accounts nobody looks at and sends
// the advance unfreeze notices.
type SweepService struct {
	context.DefaultService

	restrictionSvc *RestrictionService

	interval         time.Duration
	noticeDaysBefore int

	closed chan struct{}
}

const SWEEP_SVC = "sweep_svc"

const (
	defaultSweepInterval    = 10 * time.Minute
	defaultNoticeDaysBefore = 3
)

func (svc SweepService) Id() string {
	return SWEEP_SVC
}

func (svc *SweepService) Configure(ctx *context.Context) error {
	svc.interval = defaultSweepInterval
	if raw := os.Getenv("SWEEP_INTERVAL"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			svc.interval = d
		} else {
			log.Printf("Invalid SWEEP_INTERVAL %q, using default %v", raw, defaultSweepInterval)
		}
	}

	svc.noticeDaysBefore = defaultNoticeDaysBefore

	return svc.DefaultService.Configure(ctx)
}

func (svc *SweepService) Start() error {
	svc.restrictionSvc = svc.Service(RESTRICTION_SVC).(*RestrictionService)
	svc.closed = make(chan struct{}, 1)

	go svc.run()

	log.Printf("Sweep service started with interval %v", svc.interval)
	return nil
}

func (svc *SweepService) Shutdown() {
	svc.closed <- struct{}{}
}

func (svc *SweepService) run() {
	ticker := time.NewTicker(svc.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			svc.RunOnce(time.Now())
		case <-svc.closed:
			return
		}
	}
}

// RunOnce executes a single sweep pass against the given clock.
func (svc *SweepService) RunOnce(now time.Time) {
	lifted, err := svc.restrictionSvc.RunAutoUnfreeze(now)
	if err != nil {
		log.WithFields(log.Fields{"error": err}).Error("auto unfreeze sweep failed")
	} else if lifted > 0 {
		log.Printf("Auto unfreeze sweep lifted %d restrictions", lifted)
	}

	if err := svc.restrictionSvc.NotifyUpcomingUnfreezes(now, svc.noticeDaysBefore); err != nil {
		log.WithFields(log.Fields{"error": err}).Error("upcoming unfreeze notices failed")
	}
}
