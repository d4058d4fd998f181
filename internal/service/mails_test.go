package service

import (
	"testing"

	"github.com/itchan-dev/community/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestMails(t *testing.T) {
	mails := Mails(&config.Community{
		From:         "community@localhost",
		AdminAddress: "admin@localhost",
		Mails: map[string]config.Mail{
			MailRegistration: {Subject: "Welcome"},
		},
	})

	assert.Len(t, mails, 5)
	assert.Equal(t, "Welcome", mails[MailRegistration].Subject)
	assert.Equal(t, "registration", mails[MailRegistration].UserTemplate)
	assert.Equal(t, "admin@localhost", mails[MailBlacklisted].To)
	assert.Equal(t, "blacklisted", mails[MailBlacklisted].AdminTemplate)
	assert.Empty(t, mails[MailBlacklisted].UserTemplate)
	assert.Equal(t, "community@localhost", mails[MailPasswordForget].From)
}

func TestUUIDGenerator(t *testing.T) {
	var g UUIDGenerator
	a, err := g.Generate()
	assert.NoError(t, err)
	b, err := g.Generate()
	assert.NoError(t, err)

	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
}
