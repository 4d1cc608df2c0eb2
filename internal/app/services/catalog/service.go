package catalog

import (
	"context"

	"github.com/R3E-Network/canteen_pos/internal/app/domain/shop"
	"github.com/R3E-Network/canteen_pos/internal/app/storage"
	"github.com/R3E-Network/canteen_pos/pkg/logger"
)

// Service exposes the read side of shops and menus to students.
type Service struct {
	shops storage.ShopStore
	menu  storage.MenuStore
	log   *logger.Logger
}

// New constructs a catalog service.
func New(shops storage.ShopStore, menu storage.MenuStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("catalog")
	}
	return &Service{shops: shops, menu: menu, log: log}
}

// ListShops returns every shop ordered by id.
func (s *Service) ListShops(ctx context.Context) ([]shop.Shop, error) {
	return s.shops.ListShops(ctx)
}

// GetShop returns one shop.
func (s *Service) GetShop(ctx context.Context, id int64) (shop.Shop, error) {
	return s.shops.GetShop(ctx, id)
}

// ListMenu returns the available items of a shop. An unknown shop simply has
// no items.
func (s *Service) ListMenu(ctx context.Context, shopID int64) ([]shop.MenuItem, error) {
	items, err := s.menu.ListMenuItems(ctx, shopID, true)
	if err != nil {
		s.log.WithError(err).WithField("shop_id", shopID).Warn("list menu")
		return nil, err
	}
	if len(items) == 0 {
		s.log.WithField("shop_id", shopID).Debug("menu empty or shop unknown")
	}
	return items, nil
}

// GetMenuItem resolves the authoritative name, price and shop of an item.
func (s *Service) GetMenuItem(ctx context.Context, id int64) (shop.MenuItem, error) {
	return s.menu.GetMenuItem(ctx, id)
}
