package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"trivia-duel-service/internal/domain"
)

// DefaultSpec fires at the daily window roll-over.
const DefaultSpec = "0 0 * * *"

// Publisher recomputes and broadcasts one period's leaderboard.
type Publisher interface {
	Publish(ctx context.Context, period domain.Period) error
}

// Rebroadcaster pushes every period's leaderboard on a cron schedule, so
// observers see entries leave a window without waiting for a new submission.
type Rebroadcaster struct {
	cron      *cron.Cron
	publisher Publisher
	timeout   time.Duration
	log       *zap.Logger
}

func New(spec string, publisher Publisher, logger *zap.Logger) (*Rebroadcaster, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if spec == "" {
		spec = DefaultSpec
	}
	r := &Rebroadcaster{
		cron:      cron.New(cron.WithLocation(time.UTC)),
		publisher: publisher,
		timeout:   30 * time.Second,
		log:       logger,
	}
	if _, err := r.cron.AddFunc(spec, func() { r.RunOnce(context.Background()) }); err != nil {
		return nil, fmt.Errorf("schedule rebroadcast %q: %w", spec, err)
	}
	return r, nil
}

// Start runs the schedule in the background.
func (r *Rebroadcaster) Start() {
	r.cron.Start()
}

// Stop halts the schedule and waits for a running job.
func (r *Rebroadcaster) Stop() {
	<-r.cron.Stop().Done()
}

// RunOnce publishes every period and returns how many succeeded.
func (r *Rebroadcaster) RunOnce(ctx context.Context) int {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	ok := 0
	for _, p := range domain.Periods {
		if err := r.publisher.Publish(ctx, p); err != nil {
			r.log.Warn("scheduled leaderboard rebroadcast failed",
				zap.String("period", string(p)),
				zap.Error(err))
			continue
		}
		ok++
	}
	r.log.Debug("leaderboards rebroadcast", zap.Int("published", ok))
	return ok
}
