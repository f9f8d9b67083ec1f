// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

//go:build !unix

package main

import "os"

var visibilitySignals []os.Signal

func visibilityChange(os.Signal) (hidden bool, ok bool) {
	return false, false
}
