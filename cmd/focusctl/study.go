// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/AccelByte/extend-study-economy/pkg/common"
	"github.com/AccelByte/extend-study-economy/pkg/habit"
	"github.com/AccelByte/extend-study-economy/pkg/session"
	"github.com/spf13/cobra"
)

func newStudyCmd(opts *options) *cobra.Command {
	var (
		minutes  int
		research bool
		day      int
		tick     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "study",
		Short: "Run a study session",
		Long: "Run a study session. Type pause, resume or cancel and press enter while it runs.\n" +
			"Suspending the terminal (Ctrl+Z) counts as leaving the timer and pauses a verified session.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			today := habit.DayOfYear(time.Now())
			if day == 0 {
				day = today
			}
			if _, err := habit.Toggle(day, today, false); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			c, err := connect(cmd.Context(), opts, out)
			if err != nil {
				return err
			}
			defer c.Close()

			mode := session.ModeVerified
			if research {
				mode = session.ModeResearch
			}
			ctrl := session.New(session.Dependencies{
				Verifier:     c.auth,
				Awarder:      c.ledger,
				Entitlements: c.ledger,
				Listener:     &printer{out: out},
			}, session.WithMode(mode), session.WithDay(day), session.WithTickInterval(tick))

			if err := ctrl.SetDuration(minutes * 60); err != nil {
				var cfgErr *session.ConfigError
				if errors.As(err, &cfgErr) && cfgErr.Upsell {
					_, _ = fmt.Fprintln(out, "Sessions over 60 minutes are part of Focus+. Try: focusctl subscribe monthly")
				}
				return err
			}

			return runSession(cmd.Context(), ctrl, cmd.InOrStdin(), out)
		},
	}
	cmd.Flags().IntVar(&minutes, "minutes", session.DefaultDurationSeconds/60, "session length in minutes")
	cmd.Flags().BoolVar(&research, "research", false, "run unverified, without rewards")
	cmd.Flags().IntVar(&day, "day", 0, "day of year being studied (defaults to today)")
	cmd.Flags().DurationVar(&tick, "tick", time.Second, "countdown step")
	_ = cmd.Flags().MarkHidden("tick")
	return cmd
}

func runSession(ctx context.Context, ctrl *session.Controller, in io.Reader, out io.Writer) error {
	signals := make(chan os.Signal, 4)
	signal.Notify(signals, append([]os.Signal{os.Interrupt}, visibilitySignals...)...)
	defer signal.Stop(signals)

	if err := ctrl.Start(ctx); err != nil {
		return err
	}

	go readCommands(ctrl, in, out)
	go func() {
		for {
			select {
			case <-ctrl.Done():
				return
			case sig := <-signals:
				if sig == os.Interrupt {
					_ = ctrl.Cancel()
					continue
				}
				hidden, ok := visibilityChange(sig)
				if ok {
					ctrl.ObserveVisibility(hidden)
				}
			}
		}
	}()

	outcome, err := ctrl.Wait(ctx)
	if err != nil {
		return err
	}
	return report(outcome, out)
}

func readCommands(ctrl *session.Controller, in io.Reader, out io.Writer) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		var err error
		switch strings.TrimSpace(scanner.Text()) {
		case "pause", "p":
			err = ctrl.Pause()
		case "resume", "r":
			err = ctrl.Resume()
		case "cancel", "c":
			err = ctrl.Cancel()
		case "":
			continue
		default:
			_, _ = fmt.Fprintln(out, "commands: pause, resume, cancel")
			continue
		}
		if err != nil {
			_, _ = fmt.Fprintf(out, "cannot do that now: %v\n", err)
		}
		if ctrl.Status().Terminal() {
			return
		}
	}
}

func report(outcome session.Outcome, out io.Writer) error {
	switch outcome.Status {
	case session.StatusCompleted:
		if outcome.Award == nil {
			_, _ = fmt.Fprintln(out, "Session complete (research mode, no rewards).")
			return nil
		}
		a := outcome.Award
		boost := ""
		if a.Boosted {
			boost = " (boosted)"
		}
		_, _ = fmt.Fprintf(out, "Session verified for day %d: +%d XP%s, level %d\n", a.Day, a.XP, boost, a.Level)
		return nil
	case session.StatusRejected:
		return fmt.Errorf("%w: %s", common.ErrVerificationFailed, outcome.Reason)
	case session.StatusCancelled:
		_, _ = fmt.Fprintln(out, "Session cancelled.")
		return nil
	default:
		return outcome.Err
	}
}

// printer writes controller events to the terminal.
type printer struct {
	session.NopListener
	out io.Writer
}

func (p *printer) OnStatusChange(status session.Status) {
	switch status {
	case session.StatusRunning:
		_, _ = fmt.Fprintln(p.out, "Timer running.")
	case session.StatusPaused:
		_, _ = fmt.Fprintln(p.out, "Timer paused.")
	case session.StatusCompleting:
		_, _ = fmt.Fprintln(p.out, "Verifying session...")
	}
}

func (p *printer) OnTick(remaining int) {
	if remaining > 0 && remaining%60 == 0 {
		_, _ = fmt.Fprintf(p.out, "%d min left\n", remaining/60)
	}
}

func (p *printer) OnReject(reason string) {
	_, _ = fmt.Fprintf(p.out, "Session rejected: %s\n", reason)
}

func (p *printer) OnFailed(err error) {
	_, _ = fmt.Fprintf(p.out, "Session failed: %s\n", common.UserMessage(err))
}
