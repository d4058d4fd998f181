package domain

import "time"

type User struct {
	Id              UserId
	Username        Username
	Email           Email
	PassHash        string
	ConfirmationKey *Token
	State           RegistrationState
	FirstName       string
	LastName        string
	// ContactEmail is the address edited on the profile page. It differs
	// from Email until the change is confirmed.
	ContactEmail Email
	Admin        bool
	CreatedAt    time.Time
}

// CanLogin reports whether the account finished registration.
func (u User) CanLogin() bool {
	return u.ConfirmationKey == nil && u.State == StateConfirmed
}

func (u User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	default:
		return u.FirstName + " " + u.LastName
	}
}

type Role struct {
	Id     int64
	Name   string
	System string
}

type Credentials struct {
	Username Username
	Password Password
}

// Registration is the submitted registration form.
type Registration struct {
	Username  Username `validate:"required,min=3,max=60,excludesall=@/"`
	Email     Email    `validate:"required,email,max=255"`
	Password  Password `validate:"required,min=6,max=72"`
	FirstName string   `validate:"required,max=60"`
	LastName  string   `validate:"required,max=60"`
	Terms     bool     `validate:"required"`
}

// ProfileUpdate is the submitted profile form.
type ProfileUpdate struct {
	FirstName string `validate:"required,max=60"`
	LastName  string `validate:"required,max=60"`
	Email     Email  `validate:"required,email,max=255"`
}
