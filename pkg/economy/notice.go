// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package economy

import (
	"github.com/sirupsen/logrus"
)

// NoticeKind classifies a user-facing notification.
type NoticeKind string

const (
	NoticeLevelUp  NoticeKind = "level_up"
	NoticePurchase NoticeKind = "purchase"
	NoticeWarning  NoticeKind = "warning"
)

// Notice is a message the host should surface to the user.
type Notice struct {
	Kind    NoticeKind
	Message string
	Err     error
}

// Notifier receives notices from the ledger. Implementations must not block.
type Notifier interface {
	Notify(n Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(n Notice)

func (f NotifierFunc) Notify(n Notice) { f(n) }

// LogNotifier writes notices to logrus.
type LogNotifier struct{}

func (LogNotifier) Notify(n Notice) {
	entry := logrus.WithField("notice", string(n.Kind))
	if n.Err != nil {
		entry.WithError(n.Err).Warn(n.Message)
		return
	}
	entry.Info(n.Message)
}
