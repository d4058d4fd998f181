package domain

import (
	"regexp"
	"strings"
)

type BlacklistType string

const (
	BlacklistTypeBlock   BlacklistType = "block"
	BlacklistTypeRequest BlacklistType = "request"
)

func (t BlacklistType) Valid() bool {
	return t == BlacklistTypeBlock || t == BlacklistTypeRequest
}

// BlacklistItem is a wildcard email pattern. "*" matches any run of
// characters except "@".
type BlacklistItem struct {
	Id      int64
	Pattern string
	Type    BlacklistType
}

// Regexp returns the anchored, case-insensitive expression for the pattern.
func (i BlacklistItem) Regexp() (*regexp.Regexp, error) {
	quoted := regexp.QuoteMeta(strings.TrimSpace(i.Pattern))
	expr := strings.ReplaceAll(quoted, `\*`, `[^@]*`)
	return regexp.Compile(`(?i)^` + expr + `$`)
}

// BlacklistRequest is a registration waiting for an administrator decision.
type BlacklistRequest struct {
	Token  Token
	UserId UserId
}
