package scheduler

import (
	"context"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"time"
)

// CheckFunc runs one price check cycle.
type CheckFunc func(ctx context.Context) error

// Interval runs Check on a fixed period until its context is cancelled.
type Interval struct {
	Every time.Duration
	Check CheckFunc
	// RunImmediately triggers a cycle at start instead of waiting one period.
	RunImmediately bool
}

// Start blocks until ctx is done. Cycle errors are logged, not returned.
func (i *Interval) Start(ctx context.Context) error {
	if i.Every <= 0 {
		return errors.Errorf("invalid check interval %s", i.Every)
	}

	log.Infof("🚀 Alert checker started, running every %s", i.Every)

	if i.RunImmediately {
		i.run(ctx)
	}

	ticker := time.NewTicker(i.Every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("Alert checker stopped")
			return nil
		case <-ticker.C:
			i.run(ctx)
		}
	}
}

func (i *Interval) run(ctx context.Context) {
	if err := i.Check(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		log.Warnf("Scheduled price check did not run: %v", err)
	}
}
