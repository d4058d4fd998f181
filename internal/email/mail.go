package email

import (
	"context"
	"fmt"
	"maps"

	"github.com/itchan-dev/community/internal/domain"
	"github.com/itchan-dev/community/internal/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var mailsSentTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "community_mails_sent_total",
		Help: "Total number of mails handed to the transport",
	},
	[]string{"template", "result"},
)

// Mail describes one mail type: who receives it and which templates render
// it. An empty template disables that recipient.
type Mail struct {
	From    string
	Subject string
	// To is the administrator address used with AdminTemplate.
	To            string
	UserTemplate  string
	AdminTemplate string
	// UserEmail overrides the address of the user recipient.
	UserEmail domain.Email
}

// Factory renders and sends mails for a user.
type Factory struct {
	sender   Sender
	renderer *Renderer
	from     string
	globals  map[string]any
}

// NewFactory creates a factory. globals are merged into every template's
// variables, per-call variables win on conflict.
func NewFactory(sender Sender, renderer *Renderer, from string, globals map[string]any) *Factory {
	return &Factory{
		sender:   sender,
		renderer: renderer,
		from:     from,
		globals:  globals,
	}
}

// SendEmails sends the user mail and then the admin mail, skipping the ones
// without a template. vars always contain "user".
func (f *Factory) SendEmails(ctx context.Context, mail Mail, user domain.User, vars map[string]any) error {
	data := make(map[string]any, len(f.globals)+len(vars)+1)
	maps.Copy(data, f.globals)
	maps.Copy(data, vars)
	data["user"] = user

	from := mail.From
	if from == "" {
		from = f.from
	}

	if mail.UserTemplate != "" {
		to := mail.UserEmail
		if to == "" {
			to = user.Email
		}
		if err := f.send(ctx, mail.UserTemplate, from, to, mail.Subject, data); err != nil {
			return err
		}
	}

	if mail.AdminTemplate != "" {
		if mail.To == "" {
			return fmt.Errorf("mail template %s has no admin recipient", mail.AdminTemplate)
		}
		if err := f.send(ctx, mail.AdminTemplate, from, mail.To, mail.Subject, data); err != nil {
			return err
		}
	}
	return nil
}

func (f *Factory) send(ctx context.Context, template, from, to, subject string, data map[string]any) error {
	body, err := f.renderer.Render(template, data)
	if err != nil {
		return err
	}

	err = f.sender.Send(ctx, Message{From: from, To: to, Subject: subject, HTMLBody: body})
	if err != nil {
		mailsSentTotal.WithLabelValues(template, "error").Inc()
		return fmt.Errorf("failed to send %s mail: %w", template, err)
	}
	mailsSentTotal.WithLabelValues(template, "ok").Inc()

	logger.Log.Info("mail sent", "template", template, "recipient", to)
	return nil
}
