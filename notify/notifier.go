// Package notify delivers templated email notifications to users.
package notify

//go:generate mockgen -source=notifier.go -destination=mock_notifier.go -package=notify

import (
	"context"
)

// Kind selects the template used for a notification.
type Kind string

const (
	KindVerifyEmail        Kind = "verify-email"
	KindStatusUpdate       Kind = "status-update"
	KindBusinessRegistered Kind = "business-registered"
	KindPasswordChanged    Kind = "password-changed"
	KindPasswordReset      Kind = "password-reset"
)

// Data carries the template fields for a notification.
type Data map[string]string

// Notifier sends one notification. Implementations make a single attempt.
type Notifier interface {
	Notify(ctx context.Context, to string, kind Kind, data Data) error
}
