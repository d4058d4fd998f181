package service

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/itchan-dev/community/internal/domain"
)

type TokenGenerator interface {
	Generate() (domain.Token, error)
}

// UUIDGenerator produces 32 hex characters from a random UUID.
type UUIDGenerator struct{}

func (UUIDGenerator) Generate() (domain.Token, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return strings.ReplaceAll(id.String(), "-", ""), nil
}
