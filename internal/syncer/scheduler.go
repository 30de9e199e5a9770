package syncer

import (
	"context"
	"sync"
	"time"

	"github.com/jcalloway/tillpoint-backend/pkg/config"
	"github.com/jcalloway/tillpoint-backend/pkg/logger"
)

// Scheduler runs the periodic push loop. Mutation paths nudge it through
// Notify, which never blocks: a full queue just means a push is already due.
type Scheduler struct {
	svc    Service
	cfg    config.SyncConfig
	logg   *logger.Logger
	nudge  chan struct{}
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func NewScheduler(svc Service, cfg config.SyncConfig, logg *logger.Logger) *Scheduler {
	return &Scheduler{
		svc:   svc,
		cfg:   cfg,
		logg:  logg,
		nudge: make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
}

// Notify requests a push soon. Safe to call from any goroutine; drops the
// request when one is already queued.
func (s *Scheduler) Notify() {
	select {
	case s.nudge <- struct{}{}:
	default:
	}
}

// Start launches the loop. It returns immediately; the loop stops when the
// parent context is cancelled or Stop is called.
func (s *Scheduler) Start(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	s.cancel = cancel

	go func() {
		defer close(s.done)
		if !s.cfg.Enabled {
			s.logg.Info(ctx, "snapshot sync disabled")
			return
		}

		ticker := time.NewTicker(s.cfg.PushInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.runPush(ctx)
			case <-s.nudge:
				s.runPush(ctx)
			}
		}
	}()
}

func (s *Scheduler) runPush(ctx context.Context) {
	pushCtx := ctx
	if s.cfg.PushTimeout > 0 {
		var cancel context.CancelFunc
		pushCtx, cancel = context.WithTimeout(ctx, s.cfg.PushTimeout)
		defer cancel()
	}
	// Push already logs and counts its own failures.
	_ = s.svc.Push(pushCtx)
}

// Stop cancels the loop and waits for it to exit.
func (s *Scheduler) Stop() {
	s.once.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
		<-s.done
	})
}
