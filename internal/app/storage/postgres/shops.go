package postgres

import (
	"context"

	"github.com/R3E-Network/canteen_pos/internal/app/domain/shop"
)

const shopColumns = `shop_id, shop_name, owner_name, password_hash, image_url`

const menuColumns = `item_id, shop_id, name, price, cost, available, category, image_url`

// --- ShopStore --------------------------------------------------------------

func (s *Store) CreateShop(ctx context.Context, sh shop.Shop) (shop.Shop, error) {
	err := s.db.QueryRowxContext(ctx, `
		INSERT INTO shops (shop_name, owner_name, password_hash, image_url)
		VALUES ($1, $2, $3, $4)
		RETURNING shop_id
	`, sh.Name, sh.OwnerName, sh.PasswordHash, sh.ImageURL).Scan(&sh.ID)
	if err != nil {
		return shop.Shop{}, mapError(err, "shop", sh.Name)
	}
	return sh, nil
}

func (s *Store) GetShop(ctx context.Context, id int64) (shop.Shop, error) {
	var sh shop.Shop
	err := s.db.GetContext(ctx, &sh, `SELECT `+shopColumns+` FROM shops WHERE shop_id = $1`, id)
	if err != nil {
		return shop.Shop{}, mapError(err, "shop", id)
	}
	return sh, nil
}

func (s *Store) GetShopByName(ctx context.Context, name string) (shop.Shop, error) {
	var sh shop.Shop
	err := s.db.GetContext(ctx, &sh, `SELECT `+shopColumns+` FROM shops WHERE shop_name = $1`, name)
	if err != nil {
		return shop.Shop{}, mapError(err, "shop", name)
	}
	return sh, nil
}

func (s *Store) ListShops(ctx context.Context) ([]shop.Shop, error) {
	result := []shop.Shop{}
	if err := s.db.SelectContext(ctx, &result, `SELECT `+shopColumns+` FROM shops ORDER BY shop_id`); err != nil {
		return nil, mapError(err, "shop", nil)
	}
	return result, nil
}

// --- MenuStore --------------------------------------------------------------

func (s *Store) CreateMenuItem(ctx context.Context, item shop.MenuItem) (shop.MenuItem, error) {
	err := s.db.QueryRowxContext(ctx, `
		INSERT INTO menu_items (shop_id, name, price, cost, available, category, image_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING item_id
	`, item.ShopID, item.Name, item.Price, item.Cost, item.Available, item.Category, item.ImageURL).Scan(&item.ID)
	if err != nil {
		return shop.MenuItem{}, mapError(err, "menu item", item.Name)
	}
	return item, nil
}

func (s *Store) GetMenuItem(ctx context.Context, id int64) (shop.MenuItem, error) {
	var item shop.MenuItem
	err := s.db.GetContext(ctx, &item, `SELECT `+menuColumns+` FROM menu_items WHERE item_id = $1`, id)
	if err != nil {
		return shop.MenuItem{}, mapError(err, "menu item", id)
	}
	return item, nil
}

func (s *Store) ListMenuItems(ctx context.Context, shopID int64, availableOnly bool) ([]shop.MenuItem, error) {
	result := []shop.MenuItem{}
	err := s.db.SelectContext(ctx, &result, `
		SELECT `+menuColumns+`
		FROM menu_items
		WHERE shop_id = $1 AND (available OR NOT $2)
		ORDER BY item_id
	`, shopID, availableOnly)
	if err != nil {
		return nil, mapError(err, "menu item", shopID)
	}
	return result, nil
}

func (s *Store) SetMenuItemAvailability(ctx context.Context, id int64, available bool) (shop.MenuItem, error) {
	var item shop.MenuItem
	err := s.db.GetContext(ctx, &item, `
		UPDATE menu_items SET available = $2
		WHERE item_id = $1
		RETURNING `+menuColumns, id, available)
	if err != nil {
		return shop.MenuItem{}, mapError(err, "menu item", id)
	}
	return item, nil
}
