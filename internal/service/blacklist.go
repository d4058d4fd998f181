package service

import (
	"context"
	"strings"

	"github.com/itchan-dev/community/internal/domain"
	internal_errors "github.com/itchan-dev/community/internal/errors"
	"github.com/itchan-dev/community/internal/logger"
)

type BlacklistService interface {
	Items(ctx context.Context) ([]domain.BlacklistItem, error)
	AddItem(ctx context.Context, item domain.BlacklistItem) (domain.BlacklistItem, error)
	DeleteItem(ctx context.Context, id int64) error
}

// CacheUpdater reloads the in-memory blacklist.
type CacheUpdater interface {
	Update(ctx context.Context) error
}

type Blacklist struct {
	storage BlacklistStorage
	cache   CacheUpdater
}

func NewBlacklist(storage BlacklistStorage, cache CacheUpdater) *Blacklist {
	return &Blacklist{storage: storage, cache: cache}
}

func (b *Blacklist) Items(ctx context.Context) ([]domain.BlacklistItem, error) {
	return b.storage.BlacklistItems(ctx)
}

func (b *Blacklist) AddItem(ctx context.Context, item domain.BlacklistItem) (domain.BlacklistItem, error) {
	item.Pattern = strings.ToLower(strings.TrimSpace(item.Pattern))
	if item.Pattern == "" {
		return domain.BlacklistItem{}, internal_errors.BadRequest("Pattern is required")
	}
	if !item.Type.Valid() {
		return domain.BlacklistItem{}, internal_errors.BadRequest("Type must be block or request")
	}
	if _, err := item.Regexp(); err != nil {
		return domain.BlacklistItem{}, internal_errors.BadRequest("Pattern is not valid")
	}

	id, err := b.storage.SaveBlacklistItem(ctx, item)
	if err != nil {
		return domain.BlacklistItem{}, err
	}
	item.Id = id
	b.refresh(ctx)
	return item, nil
}

func (b *Blacklist) DeleteItem(ctx context.Context, id int64) error {
	if err := b.storage.DeleteBlacklistItem(ctx, id); err != nil {
		return err
	}
	b.refresh(ctx)
	return nil
}

// refresh makes a change visible to registration immediately. On failure
// the background refresher catches up.
func (b *Blacklist) refresh(ctx context.Context) {
	if err := b.cache.Update(ctx); err != nil {
		logger.Log.Warn("blacklist changed but cache update failed", "error", err)
	}
}
