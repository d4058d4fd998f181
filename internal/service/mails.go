package service

import (
	"github.com/itchan-dev/community/internal/config"
	"github.com/itchan-dev/community/internal/email"
)

// Mail types. Each one may be overridden under community.mails in the config.
const (
	MailRegistration      = "registration"
	MailBlacklisted       = "blacklisted"
	MailPasswordForget    = "password_forget"
	MailPasswordReset     = "password_reset"
	MailEmailConfirmation = "email_confirmation"
)

func defaultMails() map[string]email.Mail {
	return map[string]email.Mail{
		MailRegistration: {
			Subject:      "Registration",
			UserTemplate: "registration",
		},
		MailBlacklisted: {
			Subject:       "Registration requires approval",
			AdminTemplate: "blacklisted",
		},
		MailPasswordForget: {
			Subject:      "Password forget",
			UserTemplate: "password_forget",
		},
		MailPasswordReset: {
			Subject:      "Password reset",
			UserTemplate: "password_reset",
		},
		MailEmailConfirmation: {
			Subject:      "Email confirmation",
			UserTemplate: "email_confirmation",
		},
	}
}

// Mails returns the built-in mails with the configured overrides applied.
// The admin recipient of every mail is the community admin address.
func Mails(cfg *config.Community) map[string]email.Mail {
	mails := defaultMails()
	for name, mail := range mails {
		if override, ok := cfg.Mails[name]; ok {
			if override.Subject != "" {
				mail.Subject = override.Subject
			}
			if override.UserTemplate != "" {
				mail.UserTemplate = override.UserTemplate
			}
			if override.AdminTemplate != "" {
				mail.AdminTemplate = override.AdminTemplate
			}
		}
		mail.From = cfg.From
		mail.To = cfg.AdminAddress
		mails[name] = mail
	}
	return mails
}
