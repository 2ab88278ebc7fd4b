package inventory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/vendora/vendora-backend/pkg/db/models"
	pkgerrors "github.com/vendora/vendora-backend/pkg/errors"
)

// Line is a cart item validated for purchase, with its SKU and product loaded.
type Line struct {
	CartItem models.CartItem
	SKU      models.SKU
	Product  models.Product
}

// Quantity returns the requested quantity.
func (l Line) Quantity() int {
	return l.CartItem.Quantity
}

// ShopID returns the shop that owns the line's product.
func (l Line) ShopID() int64 {
	return l.Product.CreatedByID
}

// RestoreItem is the stock given back for one order item.
type RestoreItem struct {
	SKUID    int64
	Quantity int
}

// Guard validates cart items against live stock and applies stock movements
// inside the caller's transaction.
type Guard struct {
	now func() time.Time
}

func NewGuard() *Guard {
	return &Guard{now: time.Now}
}

// Check loads the cart items owned by userID and verifies every one of them
// can be bought right now. Lines are returned in the order of cartItemIDs.
func (g *Guard) Check(ctx context.Context, tx *gorm.DB, userID int64, cartItemIDs []int64) ([]Line, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	if len(cartItemIDs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart item ids are required")
	}

	var items []models.CartItem
	err := tx.WithContext(ctx).
		Preload("SKU").
		Preload("SKU.Product").
		Preload("SKU.Product.Translations", "deleted_at IS NULL").
		Where("id IN ? AND user_id = ?", cartItemIDs, userID).
		Find(&items).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart items")
	}

	byID := make(map[int64]models.CartItem, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}

	var missing []int64
	for _, id := range cartItemIDs {
		if _, ok := byID[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFoundCartItem, "cart item not found").
			WithDetails(map[string]any{"cartItemIds": missing})
	}

	now := g.now()
	lines := make([]Line, 0, len(cartItemIDs))
	for _, id := range cartItemIDs {
		item := byID[id]
		if item.SKU == nil || item.SKU.DeletedAt != nil || item.SKU.Product == nil || !item.SKU.Product.IsPurchasable(now) {
			return nil, pkgerrors.New(pkgerrors.CodeProductUnavailable, "product is not available").
				WithDetails(map[string]any{"cartItemId": item.ID, "skuId": item.SKUID})
		}
		if item.SKU.Stock < item.Quantity {
			return nil, outOfStock(item.SKUID, item.Quantity, item.SKU.Stock)
		}
		lines = append(lines, Line{CartItem: item, SKU: *item.SKU, Product: *item.SKU.Product})
	}
	return lines, nil
}

// Reserve decrements stock for the summed quantity of every SKU in lines.
// SKUs are touched in ascending id order so concurrent checkouts acquire row
// locks in the same sequence.
func (g *Guard) Reserve(ctx context.Context, tx *gorm.DB, lines []Line) error {
	totals := make(map[int64]int, len(lines))
	for _, line := range lines {
		totals[line.SKU.ID] += line.Quantity()
	}

	for _, skuID := range sortedKeys(totals) {
		qty := totals[skuID]
		res := tx.WithContext(ctx).Exec(
			"UPDATE skus SET stock = stock - ?, updated_at = ? WHERE id = ? AND stock >= ? AND deleted_at IS NULL",
			qty, g.now().UTC(), skuID, qty,
		)
		if res.Error != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "decrement sku stock")
		}
		if res.RowsAffected != 1 {
			return outOfStock(skuID, qty, -1)
		}
	}
	return nil
}

// Restore gives back the summed quantity of each SKU. SKUs deleted since the
// order was placed are skipped.
func (g *Guard) Restore(ctx context.Context, tx *gorm.DB, items []RestoreItem) error {
	totals := make(map[int64]int, len(items))
	for _, item := range items {
		if item.Quantity <= 0 {
			continue
		}
		totals[item.SKUID] += item.Quantity
	}

	for _, skuID := range sortedKeys(totals) {
		err := tx.WithContext(ctx).Exec(
			"UPDATE skus SET stock = stock + ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL",
			totals[skuID], g.now().UTC(), skuID,
		).Error
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "restore sku stock")
		}
	}
	return nil
}

// RestoreItemsFrom converts order items into restore entries.
func RestoreItemsFrom(items []models.OrderItem) []RestoreItem {
	out := make([]RestoreItem, 0, len(items))
	for _, item := range items {
		out = append(out, RestoreItem{SKUID: item.SKUID, Quantity: item.Quantity})
	}
	return out
}

func outOfStock(skuID int64, requested, available int) error {
	details := map[string]any{"skuId": skuID, "requested": requested}
	if available >= 0 {
		details["available"] = available
	}
	return pkgerrors.New(pkgerrors.CodeOutOfStock, fmt.Sprintf("sku %d is out of stock", skuID)).WithDetails(details)
}

func sortedKeys(m map[int64]int) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
