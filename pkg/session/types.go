// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package session

import (
	"context"
	"fmt"
	"time"

	"github.com/AccelByte/extend-study-economy/pkg/common"
	"github.com/AccelByte/extend-study-economy/pkg/economy"
)

// Status is the lifecycle state of a study session.
type Status string

const (
	StatusConfiguring Status = "configuring"
	StatusStarting    Status = "starting"
	StatusRunning     Status = "running"
	StatusPaused      Status = "paused"
	StatusCompleting  Status = "completing"
	StatusCompleted   Status = "completed"
	StatusRejected    Status = "rejected"
	StatusFailed      Status = "failed"
	StatusCancelled   Status = "cancelled"
)

// Terminal reports whether no further transition can leave s.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusRejected, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Mode selects whether the session is verified by the authority.
type Mode string

const (
	// ModeVerified sessions are opened and verified remotely and earn rewards.
	ModeVerified Mode = "verified"
	// ModeResearch sessions run locally and earn nothing.
	ModeResearch Mode = "research"
)

// PauseReason tells why a session is paused.
type PauseReason string

const (
	PauseNone   PauseReason = ""
	PauseManual PauseReason = "manual"
	PauseTamper PauseReason = "tamper"
)

const (
	MinDurationSeconds     = 60
	MaxDurationSeconds     = 7200
	FreeMaxDurationSeconds = 3600
	DefaultDurationSeconds = 25 * 60

	RejectReasonDiscrepancy = "time discrepancy"
	TamperPauseMessage      = "Cheating detected! Timer paused."

	defaultTickInterval = time.Second
	secondsPerMinute    = 60
)

// ConfigError rejects a duration. Upsell marks a duration that a paid tier would allow.
// PartialMinute marks a duration the authority cannot open, since it counts whole minutes.
type ConfigError struct {
	Seconds       int
	Limit         int
	Upsell        bool
	PartialMinute bool
}

func (e *ConfigError) Error() string {
	if e.PartialMinute {
		return fmt.Sprintf("duration %ds is not a whole number of minutes", e.Seconds)
	}
	if e.Upsell {
		return fmt.Sprintf("duration %ds exceeds the free limit of %ds, upgrade to unlock", e.Seconds, e.Limit)
	}
	return fmt.Sprintf("duration %ds outside %d..%ds", e.Seconds, MinDurationSeconds, e.Limit)
}

func (e *ConfigError) Unwrap() error {
	return common.ErrConfigurationRejected
}

// Outcome is the terminal result of a session.
type Outcome struct {
	Status Status
	Mode   Mode
	Day    int
	Reason string
	Err    error

	// Award is set for verified completions once the ledger has recorded them.
	Award *economy.Award
}

// Snapshot is a consistent view of the controller.
type Snapshot struct {
	Status           Status
	Mode             Mode
	DurationSeconds  int
	RemainingSeconds int
	Day              int
	Tampered         bool
	PauseReason      PauseReason
	Token            string
}

// Verifier opens and verifies sessions on the remote authority.
type Verifier interface {
	StartStudySession(ctx context.Context, durationMinutes int) (string, error)
	CompleteStudySession(ctx context.Context, token string, dayIndex int) (bool, error)
}

// Awarder records the reward of a verified session.
type Awarder interface {
	RecordStudySession(ctx context.Context, day int) economy.Award
}

// Entitlements answers whether premium-only durations are available.
type Entitlements interface {
	IsPremium() bool
}

// Listener receives controller events. Callbacks run outside the controller
// lock, in the goroutine that caused the transition.
type Listener interface {
	OnStatusChange(status Status)
	OnTick(remainingSeconds int)
	OnComplete(day int)
	OnReject(reason string)
	OnCancel()
	OnFailed(err error)
}

// NopListener ignores every event. Embed it to implement only some callbacks.
type NopListener struct{}

func (NopListener) OnStatusChange(Status) {}
func (NopListener) OnTick(int)            {}
func (NopListener) OnComplete(int)        {}
func (NopListener) OnReject(string)       {}
func (NopListener) OnCancel()             {}
func (NopListener) OnFailed(error)        {}

// Clock abstracts time for the run loop.
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) Ticker
}

// Ticker is the subset of time.Ticker the run loop needs.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) NewTicker(d time.Duration) Ticker {
	return &realTicker{t: time.NewTicker(d)}
}

type realTicker struct {
	t *time.Ticker
}

func (r *realTicker) C() <-chan time.Time { return r.t.C }
func (r *realTicker) Stop()               { r.t.Stop() }
