package domain

type (
	UserId   = int64
	Email    = string
	Username = string
	Password = string
	Token    = string
)
