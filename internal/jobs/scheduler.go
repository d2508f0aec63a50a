package jobs

import (
	"context"
	"time"

	"github.com/mangamuse/mangamuse-backend/internal/config"
	"github.com/mangamuse/mangamuse-backend/internal/logger"
	"github.com/mangamuse/mangamuse-backend/internal/services"
)

// RefreshScheduler owns the periodic sweep over stale recommendation
// records. One instance, explicit start/stop: the loop exits cleanly when
// the context is cancelled between iterations.
type RefreshScheduler struct {
	log  *logger.Logger
	cfg  config.RecommenderConfig
	recs services.RecommendationService
}

func NewRefreshScheduler(baseLog *logger.Logger, cfg config.RecommenderConfig, recs services.RecommendationService) *RefreshScheduler {
	return &RefreshScheduler{
		log:  baseLog.With("component", "RefreshScheduler"),
		cfg:  cfg,
		recs: recs,
	}
}

func (s *RefreshScheduler) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.cfg.SweepInterval)
		defer ticker.Stop()

		s.log.Info("Refresh scheduler started", "interval", s.cfg.SweepInterval.String())
		for {
			select {
			case <-ctx.Done():
				s.log.Info("Refresh scheduler stopped")
				return
			case <-ticker.C:
				s.runSweep(ctx)
			}
		}
	}()
}

func (s *RefreshScheduler) runSweep(ctx context.Context) {
	started := time.Now()
	refreshed, err := s.recs.SweepStale(ctx)
	if err != nil {
		s.log.Warn("Sweep aborted", "refreshed", refreshed, "elapsed", time.Since(started).String(), "error", err)
		return
	}
	s.log.Info("Sweep completed", "refreshed", refreshed, "elapsed", time.Since(started).String())
}
