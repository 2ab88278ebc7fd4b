package orders

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/vendora/vendora-backend/pkg/db/models"
	"github.com/vendora/vendora-backend/pkg/enums"
	pkgerrors "github.com/vendora/vendora-backend/pkg/errors"
	"github.com/vendora/vendora-backend/pkg/outbox"
	"github.com/vendora/vendora-backend/pkg/outbox/payloads"
)

func TestVoidCancelsGroupAndRestoresStock(t *testing.T) {
	f := newFixture(t)
	shopA := f.seed.Shop()
	shopB := f.seed.Shop()
	buyer := f.seed.Client()
	skuA := f.seed.SKU(f.seed.Product(shopA.ID, "Mug").ID, "Blue", 50000, 5)
	skuB := f.seed.SKU(f.seed.Product(shopB.ID, "Cup").ID, "Red", 30000, 5)
	payment := f.placeOrders(t, buyer.ID,
		groupLine{shopID: shopA.ID, sku: skuA, qty: 2},
		groupLine{shopID: shopB.ID, sku: skuB, qty: 1},
	)
	require.Equal(t, 3, f.seed.Stock(skuA.ID))

	var result *VoidResult
	err := f.conn.Transaction(func(tx *gorm.DB) error {
		var err error
		result, err = f.voider.Void(context.Background(), tx, VoidInput{
			PaymentID: payment.ID,
			Reason:    payloads.CancelReasonPaymentTimeout,
			Actor:     ActorPaymentTimeout,
		})
		return err
	})
	require.NoError(t, err)
	assert.True(t, result.Voided)
	assert.Len(t, result.OrderIDs, 2)

	assert.Equal(t, enums.PaymentStatusFailed, f.paymentStatus(t, payment.ID))
	for _, order := range f.ordersOf(t, payment.ID) {
		assert.Equal(t, enums.OrderStatusCancelled, order.Status)
	}
	assert.Equal(t, 5, f.seed.Stock(skuA.ID))
	assert.Equal(t, 5, f.seed.Stock(skuB.ID))

	events, err := f.outbox.ListByAggregate(context.Background(), enums.AggregatePayment, payment.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, enums.EventOrderCanceled, events[0].EventType)

	var env outbox.PayloadEnvelope
	require.NoError(t, json.Unmarshal(events[0].Payload, &env))
	var data payloads.OrderCanceledEvent
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, payloads.CancelReasonPaymentTimeout, data.Reason)
	assert.ElementsMatch(t, result.OrderIDs, data.OrderIDs)
}

func TestVoidIsNoopOnSettledPayment(t *testing.T) {
	f := newFixture(t)
	shop := f.seed.Shop()
	buyer := f.seed.Client()
	sku := f.seed.SKU(f.seed.Product(shop.ID, "Mug").ID, "Blue", 50000, 5)
	payment := f.placeOrders(t, buyer.ID, groupLine{shopID: shop.ID, sku: sku, qty: 2})
	require.NoError(t, f.conn.Model(&models.Payment{}).Where("id = ?", payment.ID).Update("status", enums.PaymentStatusSuccess).Error)

	result, err := f.voider.Void(context.Background(), f.conn, VoidInput{PaymentID: payment.ID, Actor: ActorPaymentTimeout})
	require.NoError(t, err)
	assert.False(t, result.Voided)
	assert.Equal(t, enums.PaymentStatusSuccess, result.Status)
	assert.Equal(t, 3, f.seed.Stock(sku.ID))

	events, err := f.outbox.ListByAggregate(context.Background(), enums.AggregatePayment, payment.ID)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestVoidMissingPayment(t *testing.T) {
	f := newFixture(t)
	_, err := f.voider.Void(context.Background(), f.conn, VoidInput{PaymentID: 4242, Actor: ActorPaymentTimeout})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodePaymentNotFound))
}
