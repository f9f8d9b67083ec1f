// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

//go:build unix

package main

import (
	"os"
	"syscall"
)

// Suspending the terminal hides the timer; continuing shows it again.
var visibilitySignals = []os.Signal{syscall.SIGTSTP, syscall.SIGCONT}

func visibilityChange(sig os.Signal) (hidden bool, ok bool) {
	switch sig {
	case syscall.SIGTSTP:
		return true, true
	case syscall.SIGCONT:
		return false, true
	}
	return false, false
}
