package worker

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"gathering-app/internal/service"
)

// GatheringCloseWorker periodically closes open gatherings whose date
// has passed so they stop accepting bookings.
type GatheringCloseWorker struct {
	gatheringService service.GatheringService
	interval         time.Duration
}

func NewGatheringCloseWorker(gatheringService service.GatheringService, interval time.Duration) *GatheringCloseWorker {
	return &GatheringCloseWorker{
		gatheringService: gatheringService,
		interval:         interval,
	}
}

func (w *GatheringCloseWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	logrus.Info("Gathering close worker started")

	for {
		select {
		case <-ctx.Done():
			logrus.Info("Gathering close worker stopped")
			return
		case <-ticker.C:
			w.closeFinishedGatherings(ctx)
		}
	}
}

func (w *GatheringCloseWorker) closeFinishedGatherings(ctx context.Context) {
	closed, err := w.gatheringService.CloseFinishedGatherings(ctx)
	if err != nil {
		logrus.Errorf("Failed to close finished gatherings: %v", err)
		return
	}

	if closed > 0 {
		logrus.Infof("Closed %d finished gatherings", closed)
	}
}
