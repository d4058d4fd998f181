// Package email renders templated mails and delivers them through a Sender.
package email

import (
	"context"
	"net/mail"

	"github.com/itchan-dev/community/internal/domain"
	"github.com/itchan-dev/community/internal/errors"
)

// Message is a fully rendered mail ready for delivery.
type Message struct {
	From     string
	To       string
	Subject  string
	HTMLBody string
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

func IsCorrect(email domain.Email) error {
	if _, err := mail.ParseAddress(email); err != nil {
		return errors.BadRequest(err.Error())
	}
	return nil
}
