package tracker

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Start begins ticking every TickInterval. Calling Start while running is a
// no-op. It returns the resulting state.
func (t *Tracker) Start() State {
	t.stateMu.Lock()
	defer t.stateMu.Unlock()
	if t.state == Running {
		return t.state
	}

	cronLog := cron.PrintfLogger(slog.NewLogLogger(slog.Default().Handler(), slog.LevelDebug))
	c := cron.New(cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)))
	c.Schedule(cron.Every(t.cfg.TickInterval), cron.FuncJob(t.scheduledTick))
	c.Start()

	t.sched = c
	t.state = Running
	t.reportState()
	slog.Info("[tracker] started", "interval", t.cfg.TickInterval.String())
	return t.state
}

// Stop prevents further ticks. A tick already in progress completes.
// Calling Stop while stopped is a no-op. It returns the resulting state.
func (t *Tracker) Stop() State {
	t.stateMu.Lock()
	defer t.stateMu.Unlock()
	if t.state == Stopped {
		return t.state
	}

	t.sched.Stop()
	t.sched = nil
	t.state = Stopped
	t.reportState()
	slog.Info("[tracker] stopped")
	return t.state
}

// State returns the current scheduler state.
func (t *Tracker) State() State {
	t.stateMu.Lock()
	defer t.stateMu.Unlock()
	return t.state
}

func (t *Tracker) scheduledTick() {
	if t.State() != Running {
		return
	}
	t.Tick(context.Background())
}

// reportState must be called with stateMu held.
func (t *Tracker) reportState() {
	running := t.state == Running
	if t.metrics != nil {
		v := 0.0
		if running {
			v = 1
		}
		t.metrics.TrackerRunning.Set(v)
	}
	if t.health != nil {
		t.health.SetTrackerRunning(running)
	}
}
