// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package session times one focus session, watches for tampering and settles
// the session with the remote authority.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/AccelByte/extend-study-economy/pkg/common"
	"github.com/AccelByte/extend-study-economy/pkg/habit"
	"github.com/AccelByte/extend-study-economy/pkg/metrics"
	"github.com/sirupsen/logrus"
)

// Dependencies are the collaborators of a Controller. Awarder, Entitlements,
// Listener and Clock are optional.
type Dependencies struct {
	Verifier     Verifier
	Awarder      Awarder
	Entitlements Entitlements
	Listener     Listener
	Clock        Clock
}

// Option configures a Controller.
type Option func(*Controller)

// WithDuration sets the initial duration without entitlement checks.
func WithDuration(seconds int) Option {
	return func(c *Controller) { c.duration = seconds }
}

// WithMode sets the initial mode.
func WithMode(m Mode) Option {
	return func(c *Controller) { c.mode = m }
}

// WithTickInterval changes how often the countdown advances. Non-positive values are ignored.
func WithTickInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.tickInterval = d
		}
	}
}

// WithDay binds the day index the session studies for. Without it the day is
// taken from the clock when the session starts.
func WithDay(day int) Option {
	return func(c *Controller) { c.day = day }
}

// event is a deferred listener call, dispatched after the lock is released.
type event func(Listener)

// Controller drives a single study session from configuration to exactly one
// terminal outcome. A Controller is not reusable; create a new one per session.
type Controller struct {
	deps         Dependencies
	tickInterval time.Duration

	mu          sync.Mutex
	status      Status
	mode        Mode
	duration    int
	remaining   int
	day         int
	token       string
	tampered    bool
	pauseReason PauseReason
	outcome     *Outcome
	baseCtx     context.Context
	stop        chan struct{}
	startCancel context.CancelFunc

	done chan struct{}
}

// New creates a controller in the Configuring state.
func New(deps Dependencies, opts ...Option) *Controller {
	if deps.Listener == nil {
		deps.Listener = NopListener{}
	}
	if deps.Clock == nil {
		deps.Clock = realClock{}
	}

	c := &Controller{
		deps:         deps,
		tickInterval: defaultTickInterval,
		status:       StatusConfiguring,
		mode:         ModeVerified,
		duration:     DefaultDurationSeconds,
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.remaining = c.duration
	return c
}

// SetDuration changes the configured duration. Durations above the free limit
// need a premium entitlement; a rejected value is not applied or clamped.
func (c *Controller) SetDuration(seconds int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status != StatusConfiguring {
		return fmt.Errorf("set duration while %s: %w", c.status, common.ErrInvalidState)
	}
	if seconds < MinDurationSeconds || seconds > MaxDurationSeconds {
		return &ConfigError{Seconds: seconds, Limit: MaxDurationSeconds}
	}
	if seconds%secondsPerMinute != 0 {
		return &ConfigError{Seconds: seconds, Limit: MaxDurationSeconds, PartialMinute: true}
	}
	if seconds > FreeMaxDurationSeconds && !c.isPremium() {
		return &ConfigError{Seconds: seconds, Limit: FreeMaxDurationSeconds, Upsell: true}
	}

	c.duration = seconds
	c.remaining = seconds
	return nil
}

func (c *Controller) isPremium() bool {
	return c.deps.Entitlements != nil && c.deps.Entitlements.IsPremium()
}

// SetMode switches between verified and research mode before the start.
func (c *Controller) SetMode(m Mode) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status != StatusConfiguring {
		return fmt.Errorf("set mode while %s: %w", c.status, common.ErrInvalidState)
	}
	if m != ModeVerified && m != ModeResearch {
		return fmt.Errorf("unknown mode %q: %w", m, common.ErrConfigurationRejected)
	}
	c.mode = m
	return nil
}

// Start begins the countdown. Verified sessions first obtain a token from the
// authority; a failed start is terminal and is not retried.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.status != StatusConfiguring {
		c.mu.Unlock()
		return fmt.Errorf("start while %s: %w", c.status, common.ErrInvalidState)
	}
	c.baseCtx = context.WithoutCancel(ctx)
	if c.day == 0 {
		c.day = habit.DayOfYear(c.deps.Clock.Now())
	}

	if c.mode == ModeResearch {
		events := c.beginRunningLocked()
		c.mu.Unlock()
		c.emit(events)
		logrus.Infof("research session started for %ds", c.duration)
		return nil
	}

	if c.deps.Verifier == nil {
		c.mu.Unlock()
		return fmt.Errorf("verified session without verifier: %w", common.ErrInvalidState)
	}

	startCtx, cancel := context.WithCancel(ctx)
	c.startCancel = cancel
	minutes := c.duration / secondsPerMinute
	events := c.setStatusLocked(StatusStarting)
	c.mu.Unlock()
	c.emit(events)

	scope := common.StartScope(startCtx, "session.Start")
	scope.SetAttributes("minutes", minutes)
	token, err := c.deps.Verifier.StartStudySession(scope.Ctx, minutes)
	if err != nil {
		scope.TraceError(err)
	}
	scope.Finish()

	c.mu.Lock()
	c.startCancel = nil
	cancel()

	if c.status != StatusStarting {
		c.mu.Unlock()
		return fmt.Errorf("session %s while starting: %w", c.status, common.ErrInvalidState)
	}

	if err != nil {
		err = fmt.Errorf("failed to start study session: %w", err)
		events := c.finishLocked(Outcome{Status: StatusFailed, Err: err})
		c.mu.Unlock()
		c.emit(events)
		c.settle()
		logrus.Errorf("%v", err)
		return err
	}

	c.token = token
	events = c.beginRunningLocked()
	c.mu.Unlock()
	c.emit(events)
	logrus.WithField("session", token).Infof("verified session started for %d minutes", minutes)
	return nil
}

func (c *Controller) beginRunningLocked() []event {
	c.remaining = c.duration
	c.stop = make(chan struct{})
	go c.run(c.deps.Clock.NewTicker(c.tickInterval), c.stop)
	return c.setStatusLocked(StatusRunning)
}

func (c *Controller) run(ticker Ticker, stop <-chan struct{}) {
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C():
			if c.tick() {
				return
			}
		}
	}
}

// tick advances the countdown by one step and reports whether the loop is done.
func (c *Controller) tick() bool {
	c.mu.Lock()
	if c.status != StatusRunning {
		c.mu.Unlock()
		return false
	}

	c.remaining--
	remaining := c.remaining
	events := []event{func(l Listener) { l.OnTick(remaining) }}

	if remaining > 0 {
		c.mu.Unlock()
		c.emit(events)
		return false
	}

	events = append(events, c.setStatusLocked(StatusCompleting)...)
	c.stop = nil
	ctx := c.baseCtx
	c.mu.Unlock()
	c.emit(events)

	c.complete(ctx)
	return true
}

// ObserveVisibility reports whether the timer is hidden from the user. Hiding a
// running verified session pauses it and flags it as tampered.
func (c *Controller) ObserveVisibility(hidden bool) {
	if !hidden {
		return
	}

	c.mu.Lock()
	if c.mode != ModeVerified || c.status != StatusRunning {
		c.mu.Unlock()
		return
	}
	c.tampered = true
	c.pauseReason = PauseTamper
	events := c.setStatusLocked(StatusPaused)
	token := c.token
	c.mu.Unlock()

	metrics.TamperEventsTotal.Inc()
	logrus.WithField("session", token).Warn(TamperPauseMessage)
	c.emit(events)
}

// Pause suspends a running session.
func (c *Controller) Pause() error {
	c.mu.Lock()
	if c.status != StatusRunning {
		c.mu.Unlock()
		return fmt.Errorf("pause while %s: %w", c.status, common.ErrInvalidState)
	}
	c.pauseReason = PauseManual
	events := c.setStatusLocked(StatusPaused)
	c.mu.Unlock()

	c.emit(events)
	return nil
}

// Resume continues a paused session, whatever paused it. The tamper flag stays set.
func (c *Controller) Resume() error {
	c.mu.Lock()
	if c.status != StatusPaused {
		c.mu.Unlock()
		return fmt.Errorf("resume while %s: %w", c.status, common.ErrInvalidState)
	}
	c.pauseReason = PauseNone
	events := c.setStatusLocked(StatusRunning)
	c.mu.Unlock()

	c.emit(events)
	return nil
}

// CompleteNow settles a running or paused session immediately and returns the outcome.
func (c *Controller) CompleteNow(ctx context.Context) (Outcome, error) {
	c.mu.Lock()
	if c.status != StatusRunning && c.status != StatusPaused {
		c.mu.Unlock()
		return Outcome{}, fmt.Errorf("complete while %s: %w", c.status, common.ErrInvalidState)
	}
	c.stopLoopLocked()
	events := c.setStatusLocked(StatusCompleting)
	c.mu.Unlock()
	c.emit(events)

	return c.complete(ctx), nil
}

func (c *Controller) complete(ctx context.Context) Outcome {
	c.mu.Lock()
	mode, token, day := c.mode, c.token, c.day
	c.mu.Unlock()

	if mode == ModeResearch {
		return c.resolve(Outcome{Status: StatusCompleted, Day: day})
	}

	scope := common.StartScope(ctx, "session.Complete")
	defer scope.Finish()
	scope.SetAttributes("day", day)
	log := scope.Log.WithField("session", token)

	verified, err := c.deps.Verifier.CompleteStudySession(scope.Ctx, token, day)
	if err != nil {
		scope.TraceError(err)
		log.Errorf("failed to complete study session: %v", err)
		return c.resolve(Outcome{Status: StatusFailed, Day: day, Err: fmt.Errorf("failed to complete study session: %w", err)})
	}
	if !verified {
		log.Warnf("study session rejected: %s", RejectReasonDiscrepancy)
		return c.resolve(Outcome{
			Status: StatusRejected,
			Day:    day,
			Reason: RejectReasonDiscrepancy,
			Err:    common.ErrVerificationFailed,
		})
	}

	c.mu.Lock()
	events := c.finishLocked(Outcome{Status: StatusCompleted, Day: day})
	c.mu.Unlock()
	c.emit(events)
	log.Infof("study session verified for day %d", day)

	if c.deps.Awarder != nil {
		award := c.deps.Awarder.RecordStudySession(scope.Ctx, day)
		c.mu.Lock()
		c.outcome.Award = &award
		c.mu.Unlock()
	}

	c.settle()
	return c.currentOutcome()
}

// resolve records a terminal outcome that carries no award.
func (c *Controller) resolve(out Outcome) Outcome {
	c.mu.Lock()
	events := c.finishLocked(out)
	c.mu.Unlock()
	c.emit(events)
	c.settle()
	return c.currentOutcome()
}

// Cancel abandons the session. It never reports completion to the authority.
func (c *Controller) Cancel() error {
	c.mu.Lock()
	switch c.status {
	case StatusConfiguring, StatusStarting, StatusRunning, StatusPaused:
	default:
		c.mu.Unlock()
		return fmt.Errorf("cancel while %s: %w", c.status, common.ErrInvalidState)
	}
	if c.startCancel != nil {
		c.startCancel()
		c.startCancel = nil
	}
	events := c.finishLocked(Outcome{Status: StatusCancelled, Err: context.Canceled})
	c.mu.Unlock()

	c.emit(events)
	c.settle()
	return nil
}

// finishLocked moves to a terminal status and returns the events to emit.
func (c *Controller) finishLocked(out Outcome) []event {
	c.stopLoopLocked()
	out.Mode = c.mode
	c.outcome = &out

	metrics.SessionOutcomesTotal.WithLabelValues(string(out.Status), string(c.mode)).Inc()

	events := c.setStatusLocked(out.Status)
	switch out.Status {
	case StatusCompleted:
		events = append(events, func(l Listener) { l.OnComplete(out.Day) })
	case StatusRejected:
		events = append(events, func(l Listener) { l.OnReject(out.Reason) })
	case StatusCancelled:
		events = append(events, func(l Listener) { l.OnCancel() })
	case StatusFailed:
		events = append(events, func(l Listener) { l.OnFailed(out.Err) })
	}
	return events
}

func (c *Controller) stopLoopLocked() {
	if c.stop != nil {
		close(c.stop)
		c.stop = nil
	}
}

func (c *Controller) setStatusLocked(s Status) []event {
	c.status = s
	return []event{func(l Listener) { l.OnStatusChange(s) }}
}

func (c *Controller) emit(events []event) {
	for _, e := range events {
		e(c.deps.Listener)
	}
}

func (c *Controller) settle() {
	close(c.done)
}

func (c *Controller) currentOutcome() Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	return *c.outcome
}

// Status returns the current lifecycle state.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Snapshot returns a consistent view of the controller.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		Status:           c.status,
		Mode:             c.mode,
		DurationSeconds:  c.duration,
		RemainingSeconds: c.remaining,
		Day:              c.day,
		Tampered:         c.tampered,
		PauseReason:      c.pauseReason,
		Token:            c.token,
	}
}

// Outcome returns the terminal outcome once the session has settled.
func (c *Controller) Outcome() (Outcome, bool) {
	select {
	case <-c.done:
		return c.currentOutcome(), true
	default:
		return Outcome{}, false
	}
}

// Done is closed once the session has settled, including any award.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// Wait blocks until the session settles or ctx ends.
func (c *Controller) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-c.done:
		return c.currentOutcome(), nil
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}

// IsCancelled reports whether err came from a cancelled session.
func IsCancelled(err error) bool {
	return errors.Is(err, context.Canceled)
}
