package helpers

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/vendora/vendora-backend/pkg/db/models"
	pkgerrors "github.com/vendora/vendora-backend/pkg/errors"
	"github.com/vendora/vendora-backend/pkg/types"
)

var receiverValidator = validator.New()

// GroupShape is the part of a checkout group that can be checked without the database.
type GroupShape struct {
	ShopID      int64
	CartItemIDs []int64
	Receiver    types.Receiver
}

// ValidateGroups rejects malformed checkout requests before any transaction is opened.
func ValidateGroups(groups []GroupShape) error {
	if len(groups) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "at least one shop order is required")
	}

	seenShops := make(map[int64]struct{}, len(groups))
	seenItems := map[int64]struct{}{}
	var duplicateItems []int64

	for i, group := range groups {
		if group.ShopID <= 0 {
			return groupError(i, "shopId", "shop id is required")
		}
		if _, dup := seenShops[group.ShopID]; dup {
			return pkgerrors.New(pkgerrors.CodeValidation, "each shop may appear only once").
				WithDetails(map[string]any{"shopId": group.ShopID})
		}
		seenShops[group.ShopID] = struct{}{}

		if len(group.CartItemIDs) == 0 {
			return groupError(i, "cartItemIds", "cart item ids are required")
		}
		for _, id := range group.CartItemIDs {
			if id <= 0 {
				return groupError(i, "cartItemIds", "cart item ids must be positive")
			}
			if _, dup := seenItems[id]; dup {
				duplicateItems = append(duplicateItems, id)
				continue
			}
			seenItems[id] = struct{}{}
		}

		if err := validateReceiver(i, group.Receiver); err != nil {
			return err
		}
	}

	if len(duplicateItems) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart items must not be repeated").
			WithDetails(map[string]any{"cartItemIds": duplicateItems})
	}
	return nil
}

// CartItemIDs flattens the groups in request order.
func CartItemIDs(groups []GroupShape) []int64 {
	var ids []int64
	for _, group := range groups {
		ids = append(ids, group.CartItemIDs...)
	}
	return ids
}

// ValidateDiscount checks that a code can be applied to an order of shopID at now.
// Usage limits are enforced by the conditional claim, not here.
func ValidateDiscount(code *models.DiscountCode, shopID int64, now time.Time) error {
	if code == nil || code.DeletedAt != nil || !code.IsActive {
		return discountInvalid(code, "discount code is not active")
	}
	if code.ValidFrom != nil && now.Before(*code.ValidFrom) {
		return discountInvalid(code, "discount code is not yet valid")
	}
	if code.ValidTo != nil && now.After(*code.ValidTo) {
		return discountInvalid(code, "discount code has expired")
	}
	if code.ShopID != nil && *code.ShopID != shopID {
		return discountInvalid(code, "discount code belongs to another shop")
	}
	if code.UsageLimit > 0 && code.UsedCount >= code.UsageLimit {
		return discountInvalid(code, "discount code usage limit reached")
	}
	return nil
}

func discountInvalid(code *models.DiscountCode, msg string) error {
	details := map[string]any{}
	if code != nil {
		details["discountCodeId"] = code.ID
	}
	return pkgerrors.New(pkgerrors.CodeDiscountCodeInvalid, msg).WithDetails(details)
}

func validateReceiver(index int, receiver types.Receiver) error {
	receiver.Name = strings.TrimSpace(receiver.Name)
	receiver.Phone = strings.TrimSpace(receiver.Phone)
	receiver.Address = strings.TrimSpace(receiver.Address)

	err := receiverValidator.Struct(receiver)
	if err == nil {
		return nil
	}
	fields := map[string]string{}
	if verrs, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range verrs {
			fields["receiver."+strings.ToLower(fe.Field())] = fe.Tag()
		}
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "receiver is incomplete").
		WithDetails(map[string]any{"group": index, "fields": fields})
}

func groupError(index int, field, msg string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, msg).
		WithDetails(map[string]any{"group": index, "field": field})
}
