package services

import (
	"log/slog"

	"github.com/google/uuid"

	"restaurant-directory-api/auth"
	"restaurant-directory-api/notify"
)

// Mailer builds notification payloads and hands them to the dispatcher.
// Nothing here reports failure to the caller.
type Mailer struct {
	dispatcher  *notify.Dispatcher
	creds       *auth.Service
	frontendURL string
}

func NewMailer(dispatcher *notify.Dispatcher, creds *auth.Service, frontendURL string) *Mailer {
	return &Mailer{dispatcher: dispatcher, creds: creds, frontendURL: frontendURL}
}

func (m *Mailer) VerifyEmail(userID uuid.UUID, email string) {
	token, err := m.creds.IssueVerificationToken(userID, email)
	if err != nil {
		slog.Error("failed to issue verification token", "user_id", userID, "error", err)
		return
	}
	m.dispatcher.Send(email, notify.KindVerifyEmail, notify.Data{
		"link": m.frontendURL + "/verify-email/" + token,
	})
}

func (m *Mailer) StatusUpdate(to, restaurant, status string) {
	m.dispatcher.Send(to, notify.KindStatusUpdate, notify.Data{
		"restaurant": restaurant,
		"status":     status,
	})
}

func (m *Mailer) BusinessRegistered(to, restaurant string) {
	m.dispatcher.Send(to, notify.KindBusinessRegistered, notify.Data{"restaurant": restaurant})
}

func (m *Mailer) PasswordChanged(to string) {
	m.dispatcher.Send(to, notify.KindPasswordChanged, notify.Data{})
}

func (m *Mailer) PasswordReset(to, rawToken string) {
	m.dispatcher.Send(to, notify.KindPasswordReset, notify.Data{
		"link": m.frontendURL + "/reset-password/" + rawToken,
	})
}
