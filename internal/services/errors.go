package services

import (
	apierrors "callreport/internal/errors"
	"callreport/internal/session"
)

// ErrSessionNotFound is returned when an upload id is unknown or expired.
var ErrSessionNotFound = session.ErrNotFound

// ErrNoSessions is returned by Upload on a service built without a
// session store.
var ErrNoSessions = apierrors.NewConfigError("upload sessions are not enabled", nil)
