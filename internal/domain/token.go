package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// EmailConfirmationToken proves control of the address a user entered on
// the profile page. There is at most one per user.
type EmailConfirmationToken struct {
	Token  Token
	UserId UserId
}

type PasswordResetToken struct {
	Token   Token
	UserId  UserId
	Expires time.Time
}

// HashToken returns the hex sha256 of a token. Reset tokens are stored hashed.
func HashToken(token Token) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
