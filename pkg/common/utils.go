// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package common

import (
	"os"
	"strconv"
	"time"
)

// GetEnv returns the value of key, or fallback when unset.
func GetEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}

	return fallback
}

// GetEnvInt returns key parsed as an int, or fallback when unset or malformed.
func GetEnvInt(key string, fallback int) int {
	val, err := strconv.Atoi(GetEnv(key, strconv.Itoa(fallback)))
	if err != nil {
		return fallback
	}

	return val
}

// GetEnvDuration returns key parsed as a time.Duration, or fallback when unset or malformed.
func GetEnvDuration(key string, fallback time.Duration) time.Duration {
	val, err := time.ParseDuration(GetEnv(key, fallback.String()))
	if err != nil {
		return fallback
	}

	return val
}
