package helpers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vendora/vendora-backend/internal/inventory"
	"github.com/vendora/vendora-backend/pkg/db/models"
	pkgerrors "github.com/vendora/vendora-backend/pkg/errors"
	"github.com/vendora/vendora-backend/pkg/types"
)

var receiver = types.Receiver{Name: "Lan", Phone: "0901234567", Address: "12 Hang Bac"}

func TestValidateGroupsAcceptsWellFormedRequest(t *testing.T) {
	t.Parallel()
	err := ValidateGroups([]GroupShape{
		{ShopID: 1, CartItemIDs: []int64{10, 11}, Receiver: receiver},
		{ShopID: 2, CartItemIDs: []int64{12}, Receiver: receiver},
	})
	assert.NoError(t, err)
}

func TestValidateGroupsRejectsBadShapes(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		groups []GroupShape
	}{
		{name: "empty body", groups: nil},
		{name: "missing shop", groups: []GroupShape{{CartItemIDs: []int64{1}, Receiver: receiver}}},
		{name: "empty cart ids", groups: []GroupShape{{ShopID: 1, Receiver: receiver}}},
		{name: "non-positive cart id", groups: []GroupShape{{ShopID: 1, CartItemIDs: []int64{0}, Receiver: receiver}}},
		{name: "duplicate shop", groups: []GroupShape{
			{ShopID: 1, CartItemIDs: []int64{1}, Receiver: receiver},
			{ShopID: 1, CartItemIDs: []int64{2}, Receiver: receiver},
		}},
		{name: "cart item in two groups", groups: []GroupShape{
			{ShopID: 1, CartItemIDs: []int64{1}, Receiver: receiver},
			{ShopID: 2, CartItemIDs: []int64{1}, Receiver: receiver},
		}},
		{name: "missing receiver phone", groups: []GroupShape{
			{ShopID: 1, CartItemIDs: []int64{1}, Receiver: types.Receiver{Name: "Lan", Address: "12 Hang Bac"}},
		}},
		{name: "blank receiver name", groups: []GroupShape{
			{ShopID: 1, CartItemIDs: []int64{1}, Receiver: types.Receiver{Name: "  ", Phone: "0901234567", Address: "x"}},
		}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateGroups(tt.groups)
			require.Error(t, err)
			assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
		})
	}
}

func TestCartItemIDsKeepsRequestOrder(t *testing.T) {
	t.Parallel()
	ids := CartItemIDs([]GroupShape{{CartItemIDs: []int64{5, 3}}, {CartItemIDs: []int64{9}}})
	assert.Equal(t, []int64{5, 3, 9}, ids)
}

func TestValidateDiscount(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)
	shop := int64(7)
	other := int64(8)

	ok := &models.DiscountCode{ID: 1, IsActive: true, ValidFrom: &past, ValidTo: &future, ShopID: &shop, UsageLimit: 5, UsedCount: 4}
	assert.NoError(t, ValidateDiscount(ok, shop, now))
	assert.NoError(t, ValidateDiscount(&models.DiscountCode{ID: 2, IsActive: true}, shop, now))

	bad := map[string]*models.DiscountCode{
		"nil":         nil,
		"inactive":    {ID: 3},
		"not started": {ID: 4, IsActive: true, ValidFrom: &future},
		"expired":     {ID: 5, IsActive: true, ValidTo: &past},
		"other shop":  {ID: 6, IsActive: true, ShopID: &other},
		"used up":     {ID: 7, IsActive: true, UsageLimit: 2, UsedCount: 2},
	}
	for name, code := range bad {
		err := ValidateDiscount(code, shop, now)
		assert.Equal(t, pkgerrors.CodeDiscountCodeInvalid, pkgerrors.CodeOf(err), name)
	}
}

func line(cartID, skuID, shopID int64, price int64, qty int) inventory.Line {
	return inventory.Line{
		CartItem: models.CartItem{ID: cartID, SKUID: skuID, Quantity: qty},
		SKU:      models.SKU{ID: skuID, ProductID: skuID * 10, Value: "v", Price: price, Image: "img"},
		Product: models.Product{ID: skuID * 10, CreatedByID: shopID, Name: "Product", Translations: []models.ProductTranslation{
			{ID: 1, LanguageID: "en", Name: "Product", Description: "d"},
			{ID: 2, LanguageID: "vi", Name: "San pham", DeletedAt: &time.Time{}},
		}},
	}
}

func TestLinesForAndOwnership(t *testing.T) {
	t.Parallel()
	indexed := IndexLines([]inventory.Line{line(1, 100, 7, 1000, 1), line(2, 200, 7, 500, 2), line(3, 300, 8, 50, 1)})

	group := LinesFor([]int64{2, 1}, indexed)
	require.Len(t, group, 2)
	assert.Equal(t, int64(2), group[0].CartItem.ID)
	assert.NoError(t, EnsureShopOwnership(7, group))

	err := EnsureShopOwnership(7, LinesFor([]int64{1, 3}, indexed))
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeSKUNotBelongToShop, pkgerrors.CodeOf(err))
	assert.Equal(t, map[string]any{"shopId": int64(7), "skuIds": []int64{300}}, pkgerrors.As(err).Details())
}

func TestBuildOrderItemsSnapshotsCatalog(t *testing.T) {
	t.Parallel()
	items := BuildOrderItems([]inventory.Line{line(1, 100, 7, 1000, 3)})
	require.Len(t, items, 1)
	item := items[0]
	assert.Equal(t, int64(100), item.SKUID)
	assert.Equal(t, int64(1000), item.ProductID)
	assert.Equal(t, int64(1000), item.SKUPrice)
	assert.Equal(t, 3, item.Quantity)
	assert.Equal(t, "img", item.Image)
	require.Len(t, item.ProductTranslations, 1, "deleted translations are not frozen")
	assert.Equal(t, "en", item.ProductTranslations[0].LanguageID)
}
