package orders

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vendora/vendora-backend/pkg/db/models"
	"github.com/vendora/vendora-backend/pkg/enums"
	pkgerrors "github.com/vendora/vendora-backend/pkg/errors"
)

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{})
	require.Error(t, err)
}

func TestGetHidesOtherUsersOrders(t *testing.T) {
	f := newFixture(t)
	shop := f.seed.Shop()
	buyer := f.seed.Client()
	stranger := f.seed.Client()
	sku := f.seed.SKU(f.seed.Product(shop.ID, "Mug").ID, "Blue", 50000, 5)
	payment := f.placeOrders(t, buyer.ID, groupLine{shopID: shop.ID, sku: sku, qty: 1})
	orderID := f.ordersOf(t, payment.ID)[0].ID

	got, err := f.svc.Get(context.Background(), Viewer{UserID: buyer.ID, Role: enums.RoleClient}, orderID)
	require.NoError(t, err)
	assert.Equal(t, orderID, got.ID)
	assert.Len(t, got.Items, 1)
	assert.Equal(t, "10.00", got.CommissionRate)

	_, err = f.svc.Get(context.Background(), Viewer{UserID: stranger.ID, Role: enums.RoleClient}, orderID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeOrderNotFound))

	_, err = f.svc.Get(context.Background(), Viewer{UserID: shop.ID, Role: enums.RoleSeller}, orderID)
	assert.NoError(t, err)

	_, err = f.svc.Get(context.Background(), Viewer{UserID: 1, Role: enums.RoleAdmin}, orderID)
	assert.NoError(t, err)
}

func TestListReturnsPageMetadata(t *testing.T) {
	f := newFixture(t)
	shop := f.seed.Shop()
	buyer := f.seed.Client()
	sku := f.seed.SKU(f.seed.Product(shop.ID, "Mug").ID, "Blue", 1000, 50)
	for i := 0; i < 3; i++ {
		f.placeOrders(t, buyer.ID, groupLine{shopID: shop.ID, sku: sku, qty: 1})
	}

	res, err := f.svc.List(context.Background(), Viewer{UserID: buyer.ID, Role: enums.RoleClient}, ListQuery{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.TotalItems)
	assert.Equal(t, 2, res.TotalPages)
	assert.Len(t, res.Orders, 2)
}

func TestCancelVoidsWholePaymentGroup(t *testing.T) {
	f := newFixture(t)
	shopA := f.seed.Shop()
	shopB := f.seed.Shop()
	buyer := f.seed.Client()
	skuA := f.seed.SKU(f.seed.Product(shopA.ID, "Mug").ID, "Blue", 50000, 5)
	skuB := f.seed.SKU(f.seed.Product(shopB.ID, "Cup").ID, "Red", 30000, 5)
	payment := f.placeOrders(t, buyer.ID,
		groupLine{shopID: shopA.ID, sku: skuA, qty: 2},
		groupLine{shopID: shopB.ID, sku: skuB, qty: 3},
	)
	first := f.ordersOf(t, payment.ID)[0]

	got, err := f.svc.Cancel(context.Background(), Viewer{UserID: buyer.ID, Role: enums.RoleClient}, first.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, got.Status)

	for _, order := range f.ordersOf(t, payment.ID) {
		assert.Equal(t, enums.OrderStatusCancelled, order.Status)
		require.NotNil(t, order.UpdatedByID)
		assert.Equal(t, buyer.ID, *order.UpdatedByID)
	}
	assert.Equal(t, enums.PaymentStatusFailed, f.paymentStatus(t, payment.ID))
	assert.Equal(t, 5, f.seed.Stock(skuA.ID))
	assert.Equal(t, 5, f.seed.Stock(skuB.ID))
	assert.Equal(t, []int64{payment.ID}, f.timer.cancelled)
}

func TestCancelSurvivesTimerFailure(t *testing.T) {
	f := newFixture(t)
	f.timer.err = errors.New("redis down")
	shop := f.seed.Shop()
	buyer := f.seed.Client()
	sku := f.seed.SKU(f.seed.Product(shop.ID, "Mug").ID, "Blue", 50000, 5)
	payment := f.placeOrders(t, buyer.ID, groupLine{shopID: shop.ID, sku: sku, qty: 1})

	_, err := f.svc.Cancel(context.Background(), Viewer{UserID: buyer.ID, Role: enums.RoleClient}, f.ordersOf(t, payment.ID)[0].ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusFailed, f.paymentStatus(t, payment.ID))
}

func TestCancelRejectsPaidOrders(t *testing.T) {
	f := newFixture(t)
	shop := f.seed.Shop()
	buyer := f.seed.Client()
	sku := f.seed.SKU(f.seed.Product(shop.ID, "Mug").ID, "Blue", 50000, 5)
	payment := f.placeOrders(t, buyer.ID, groupLine{shopID: shop.ID, sku: sku, qty: 1})
	order := f.ordersOf(t, payment.ID)[0]
	require.NoError(t, f.conn.Model(&models.Order{}).Where("id = ?", order.ID).Update("status", enums.OrderStatusPendingPickup).Error)

	_, err := f.svc.Cancel(context.Background(), Viewer{UserID: buyer.ID, Role: enums.RoleClient}, order.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeCannotCancelOrder))
	assert.Equal(t, enums.PaymentStatusPending, f.paymentStatus(t, payment.ID))
	assert.Empty(t, f.timer.cancelled)
}

func TestCancelRejectsSettledPaymentRace(t *testing.T) {
	f := newFixture(t)
	shop := f.seed.Shop()
	buyer := f.seed.Client()
	sku := f.seed.SKU(f.seed.Product(shop.ID, "Mug").ID, "Blue", 50000, 5)
	payment := f.placeOrders(t, buyer.ID, groupLine{shopID: shop.ID, sku: sku, qty: 1})
	require.NoError(t, f.conn.Model(&models.Payment{}).Where("id = ?", payment.ID).Update("status", enums.PaymentStatusSuccess).Error)

	_, err := f.svc.Cancel(context.Background(), Viewer{UserID: buyer.ID, Role: enums.RoleClient}, f.ordersOf(t, payment.ID)[0].ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeCannotCancelOrder))
	assert.Equal(t, 4, f.seed.Stock(sku.ID))
}

func TestCancelRequiresOwner(t *testing.T) {
	f := newFixture(t)
	shop := f.seed.Shop()
	buyer := f.seed.Client()
	sku := f.seed.SKU(f.seed.Product(shop.ID, "Mug").ID, "Blue", 50000, 5)
	payment := f.placeOrders(t, buyer.ID, groupLine{shopID: shop.ID, sku: sku, qty: 1})

	_, err := f.svc.Cancel(context.Background(), Viewer{UserID: shop.ID, Role: enums.RoleSeller}, f.ordersOf(t, payment.ID)[0].ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeOrderNotFound))
}

func TestUpdateStatusAdvancesFulfilment(t *testing.T) {
	f := newFixture(t)
	shop := f.seed.Shop()
	buyer := f.seed.Client()
	sku := f.seed.SKU(f.seed.Product(shop.ID, "Mug").ID, "Blue", 50000, 5)
	payment := f.placeOrders(t, buyer.ID, groupLine{shopID: shop.ID, sku: sku, qty: 1})
	order := f.ordersOf(t, payment.ID)[0]
	require.NoError(t, f.conn.Model(&models.Order{}).Where("id = ?", order.ID).Update("status", enums.OrderStatusPendingPickup).Error)

	seller := Viewer{UserID: shop.ID, Role: enums.RoleSeller}
	got, err := f.svc.UpdateStatus(context.Background(), seller, order.ID, enums.OrderStatusPendingDelivery)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPendingDelivery, got.Status)

	got, err = f.svc.UpdateStatus(context.Background(), Viewer{UserID: 1, Role: enums.RoleAdmin}, order.ID, enums.OrderStatusDelivered)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusDelivered, got.Status)

	events, err := f.outbox.ListByAggregate(context.Background(), enums.AggregateOrder, order.ID)
	require.NoError(t, err)
	assert.Len(t, events, 2)

	_, err = f.svc.UpdateStatus(context.Background(), seller, order.ID, enums.OrderStatusPendingDelivery)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidStateTransition))
}

func TestUpdateStatusGuards(t *testing.T) {
	f := newFixture(t)
	shop := f.seed.Shop()
	otherShop := f.seed.Shop()
	buyer := f.seed.Client()
	sku := f.seed.SKU(f.seed.Product(shop.ID, "Mug").ID, "Blue", 50000, 5)
	payment := f.placeOrders(t, buyer.ID, groupLine{shopID: shop.ID, sku: sku, qty: 1})
	order := f.ordersOf(t, payment.ID)[0]

	_, err := f.svc.UpdateStatus(context.Background(), Viewer{UserID: buyer.ID, Role: enums.RoleClient}, order.ID, enums.OrderStatusPendingDelivery)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	_, err = f.svc.UpdateStatus(context.Background(), Viewer{UserID: otherShop.ID, Role: enums.RoleSeller}, order.ID, enums.OrderStatusPendingDelivery)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	_, err = f.svc.UpdateStatus(context.Background(), Viewer{UserID: shop.ID, Role: enums.RoleSeller}, order.ID, enums.OrderStatusPendingPickup)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidStateTransition))

	_, err = f.svc.UpdateStatus(context.Background(), Viewer{UserID: shop.ID, Role: enums.RoleSeller}, order.ID, enums.OrderStatus("LOST"))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.UpdateStatus(context.Background(), Viewer{UserID: shop.ID, Role: enums.RoleSeller}, 999, enums.OrderStatusPendingDelivery)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeOrderNotFound))
}
