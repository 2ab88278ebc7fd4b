package helpers

import (
	"github.com/vendora/vendora-backend/internal/inventory"
	"github.com/vendora/vendora-backend/pkg/db/models"
	pkgerrors "github.com/vendora/vendora-backend/pkg/errors"
	"github.com/vendora/vendora-backend/pkg/types"
)

// IndexLines keys checked lines by cart item id.
func IndexLines(lines []inventory.Line) map[int64]inventory.Line {
	indexed := make(map[int64]inventory.Line, len(lines))
	for _, line := range lines {
		indexed[line.CartItem.ID] = line
	}
	return indexed
}

// LinesFor picks the lines of one group, in the group's cart item order.
func LinesFor(cartItemIDs []int64, indexed map[int64]inventory.Line) []inventory.Line {
	lines := make([]inventory.Line, 0, len(cartItemIDs))
	for _, id := range cartItemIDs {
		if line, ok := indexed[id]; ok {
			lines = append(lines, line)
		}
	}
	return lines
}

// EnsureShopOwnership fails when any line's product was not created by shopID.
func EnsureShopOwnership(shopID int64, lines []inventory.Line) error {
	var foreign []int64
	for _, line := range lines {
		if line.ShopID() != shopID {
			foreign = append(foreign, line.SKU.ID)
		}
	}
	if len(foreign) == 0 {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeSKUNotBelongToShop, "sku does not belong to shop").
		WithDetails(map[string]any{"shopId": shopID, "skuIds": foreign})
}

// BuildOrderItems snapshots catalog data for each line. The snapshot is what
// the order keeps; later catalog edits never reach it.
func BuildOrderItems(lines []inventory.Line) []models.OrderItem {
	items := make([]models.OrderItem, 0, len(lines))
	for _, line := range lines {
		items = append(items, models.OrderItem{
			ProductID:           line.Product.ID,
			SKUID:               line.SKU.ID,
			ProductName:         line.Product.Name,
			SKUValue:            line.SKU.Value,
			SKUPrice:            line.SKU.Price,
			Image:               line.SKU.Image,
			Quantity:            line.Quantity(),
			ProductTranslations: snapshotTranslations(line.Product.Translations),
		})
	}
	return items
}

func snapshotTranslations(rows []models.ProductTranslation) types.TranslationSnapshots {
	snaps := make(types.TranslationSnapshots, 0, len(rows))
	for _, row := range rows {
		if row.DeletedAt != nil {
			continue
		}
		snaps = append(snaps, types.ProductTranslationSnapshot{
			ID:          row.ID,
			Name:        row.Name,
			Description: row.Description,
			LanguageID:  row.LanguageID,
		})
	}
	return snaps
}
