package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/vendora/vendora-backend/internal/inventory"
	"github.com/vendora/vendora-backend/internal/orders"
	"github.com/vendora/vendora-backend/pkg/db"
	"github.com/vendora/vendora-backend/pkg/db/dbtest"
	"github.com/vendora/vendora-backend/pkg/db/models"
	"github.com/vendora/vendora-backend/pkg/enums"
	pkgerrors "github.com/vendora/vendora-backend/pkg/errors"
	"github.com/vendora/vendora-backend/pkg/logger"
	"github.com/vendora/vendora-backend/pkg/outbox"
	"github.com/vendora/vendora-backend/pkg/outbox/payloads"
	"github.com/vendora/vendora-backend/pkg/types"
)

type fakeScheduler struct {
	mu        sync.Mutex
	scheduled []int64
	due       time.Time
	err       error
}

func (f *fakeScheduler) Schedule(_ context.Context, paymentID int64) (time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return time.Time{}, f.err
	}
	f.scheduled = append(f.scheduled, paymentID)
	return f.due, nil
}

type fixture struct {
	conn      *gorm.DB
	seed      *dbtest.Seeder
	outbox    *outbox.Repository
	scheduler *fakeScheduler
	svc       Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn := dbtest.Open(t)
	outboxRepo := outbox.NewRepository(conn)
	scheduler := &fakeScheduler{due: time.Date(2026, 6, 1, 9, 15, 0, 0, time.UTC)}
	svc, err := NewService(ServiceParams{
		DB:             db.NewFromConn(conn),
		Repository:     NewRepository(conn),
		Orders:         orders.NewRepository(conn),
		Guard:          inventory.NewGuard(),
		Scheduler:      scheduler,
		Outbox:         outbox.NewService(outboxRepo, logger.Nop()),
		Logger:         logger.Nop(),
		CommissionRate: decimal.NewFromInt(8),
	})
	require.NoError(t, err)
	return &fixture{conn: conn, seed: dbtest.NewSeeder(t, conn), outbox: outboxRepo, scheduler: scheduler, svc: svc}
}

func (f *fixture) count(t *testing.T, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.conn.Model(model).Count(&n).Error)
	return n
}

func (f *fixture) discount(t *testing.T, code models.DiscountCode) models.DiscountCode {
	t.Helper()
	code.IsActive = true
	require.NoError(t, f.conn.Create(&code).Error)
	return code
}

var receiver = types.Receiver{Name: "Lan", Phone: "0901234567", Address: "12 Hang Bac"}

func TestCreateOrdersSplitsCheckoutPerShop(t *testing.T) {
	f := newFixture(t)
	shopA := f.seed.Shop()
	shopB := f.seed.Shop()
	buyer := f.seed.Client()
	skuA := f.seed.SKU(f.seed.Product(shopA.ID, "Lamp").ID, "Brass", 100000, 5)
	skuB := f.seed.SKU(f.seed.Product(shopB.ID, "Rug").ID, "Wool", 12345, 3)
	itemA := f.seed.CartItem(buyer.ID, skuA.ID, 2)
	itemB := f.seed.CartItem(buyer.ID, skuB.ID, 1)
	keep := f.seed.CartItem(buyer.ID, skuB.ID, 1)

	result, err := f.svc.CreateOrders(context.Background(), buyer.ID, []GroupInput{
		{ShopID: shopA.ID, CartItemIDs: []int64{itemA.ID}, Receiver: receiver},
		{ShopID: shopB.ID, CartItemIDs: []int64{itemB.ID}, Receiver: receiver},
	})
	require.NoError(t, err)
	require.Len(t, result.Orders, 2)
	assert.Equal(t, int64(200000+12345), result.Total)
	assert.Equal(t, "DH"+strconv.FormatInt(result.PaymentID, 10), result.PaymentCode)
	assert.Equal(t, f.scheduler.due, result.CancelAfter)
	assert.Equal(t, []int64{result.PaymentID}, f.scheduler.scheduled)

	byShop := map[int64]orders.OrderDTO{}
	for _, order := range result.Orders {
		assert.Equal(t, result.PaymentID, order.PaymentID)
		assert.Equal(t, enums.OrderStatusPendingPayment, order.Status)
		assert.Equal(t, enums.PayoutStatusPending, order.PayoutStatus)
		assert.Equal(t, "8.00", order.CommissionRate)
		assert.Equal(t, order.Total, order.AdminCommissionAmount+order.ShopPayoutAmount)
		byShop[order.ShopID] = order
	}
	a := byShop[shopA.ID]
	assert.Equal(t, int64(200000), a.Total)
	assert.Equal(t, int64(16000), a.AdminCommissionAmount)
	require.Len(t, a.Items, 1)
	assert.Equal(t, "Lamp", a.Items[0].ProductName)
	assert.Equal(t, "Brass", a.Items[0].SKUValue)
	assert.Len(t, a.Items[0].ProductTranslations, 1)

	b := byShop[shopB.ID]
	assert.Equal(t, int64(988), b.AdminCommissionAmount, "987.6 rounds half-up")
	assert.Equal(t, int64(11357), b.ShopPayoutAmount)

	assert.Equal(t, 3, f.seed.Stock(skuA.ID))
	assert.Equal(t, 2, f.seed.Stock(skuB.ID))

	var remaining []models.CartItem
	require.NoError(t, f.conn.Where("user_id = ?", buyer.ID).Find(&remaining).Error)
	require.Len(t, remaining, 1)
	assert.Equal(t, keep.ID, remaining[0].ID)

	var payment models.Payment
	require.NoError(t, f.conn.First(&payment, result.PaymentID).Error)
	assert.Equal(t, enums.PaymentStatusPending, payment.Status)

	events, err := f.outbox.ListByAggregate(context.Background(), enums.AggregatePayment, result.PaymentID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, enums.EventOrderCreated, events[0].EventType)
	var env outbox.PayloadEnvelope
	require.NoError(t, json.Unmarshal(events[0].Payload, &env))
	var data payloads.OrderCreatedEvent
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, result.PaymentCode, data.PaymentCode)
	assert.ElementsMatch(t, []int64{shopA.ID, shopB.ID}, data.ShopIDs)
	assert.Equal(t, result.Total, data.Total)
}

func TestCreateOrdersAppliesDiscountAndClaimsUsage(t *testing.T) {
	f := newFixture(t)
	shop := f.seed.Shop()
	buyer := f.seed.Client()
	sku := f.seed.SKU(f.seed.Product(shop.ID, "Lamp").ID, "Brass", 100000, 5)
	item := f.seed.CartItem(buyer.ID, sku.ID, 2)
	code := f.discount(t, models.DiscountCode{Code: "SALE10", Type: enums.DiscountTypePercentage, Value: 10, ShopID: &shop.ID, UsageLimit: 1})

	result, err := f.svc.CreateOrders(context.Background(), buyer.ID, []GroupInput{
		{ShopID: shop.ID, CartItemIDs: []int64{item.ID}, Receiver: receiver, DiscountCodeID: &code.ID},
	})
	require.NoError(t, err)
	order := result.Orders[0]
	assert.Equal(t, int64(200000), order.Subtotal)
	assert.Equal(t, int64(20000), order.DiscountAmount)
	assert.Equal(t, int64(180000), order.Total)
	assert.Equal(t, int64(14400), order.AdminCommissionAmount)
	require.NotNil(t, order.DiscountCodeID)
	assert.Equal(t, code.ID, *order.DiscountCodeID)

	var stored models.DiscountCode
	require.NoError(t, f.conn.First(&stored, code.ID).Error)
	assert.Equal(t, 1, stored.UsedCount)

	again := f.seed.CartItem(buyer.ID, sku.ID, 1)
	_, err = f.svc.CreateOrders(context.Background(), buyer.ID, []GroupInput{
		{ShopID: shop.ID, CartItemIDs: []int64{again.ID}, Receiver: receiver, DiscountCodeID: &code.ID},
	})
	assert.Equal(t, pkgerrors.CodeDiscountCodeInvalid, pkgerrors.CodeOf(err))
}

func TestOrderItemsKeepPurchaseSnapshotAfterCatalogChanges(t *testing.T) {
	f := newFixture(t)
	shop := f.seed.Shop()
	buyer := f.seed.Client()
	product := f.seed.Product(shop.ID, "Lamp")
	sku := f.seed.SKU(product.ID, "Brass", 100000, 5)
	item := f.seed.CartItem(buyer.ID, sku.ID, 2)

	result, err := f.svc.CreateOrders(context.Background(), buyer.ID, []GroupInput{
		{ShopID: shop.ID, CartItemIDs: []int64{item.ID}, Receiver: receiver},
	})
	require.NoError(t, err)
	orderID := result.Orders[0].ID

	require.NoError(t, f.conn.Model(&models.Product{}).Where("id = ?", product.ID).Update("name", "Floor Lamp").Error)
	require.NoError(t, f.conn.Model(&models.SKU{}).Where("id = ?", sku.ID).
		Updates(map[string]any{"price": 250000, "value": "Copper"}).Error)

	var items []models.OrderItem
	require.NoError(t, f.conn.Where("order_id = ?", orderID).Find(&items).Error)
	require.Len(t, items, 1)
	assert.Equal(t, "Lamp", items[0].ProductName)
	assert.Equal(t, "Brass", items[0].SKUValue)
	assert.Equal(t, int64(100000), items[0].SKUPrice)

	require.NoError(t, f.conn.Delete(&models.SKU{}, sku.ID).Error)
	require.NoError(t, f.conn.Delete(&models.Product{}, product.ID).Error)

	stored, err := orders.NewRepository(f.conn).FindOrder(context.Background(), orderID)
	require.NoError(t, err)
	require.Len(t, stored.Items, 1)
	assert.Equal(t, "Lamp", stored.Items[0].ProductName)
	assert.Equal(t, "Brass", stored.Items[0].SKUValue)
	assert.Equal(t, int64(100000), stored.Items[0].SKUPrice)
	assert.Equal(t, int64(200000), stored.Items[0].LineTotal())
	assert.Equal(t, int64(200000), stored.Total)
}

func TestCreateOrdersRollsBackOnFailure(t *testing.T) {
	shopMismatch := func(_ *testing.T, f *fixture, buyer, _, shopB models.User, skuA models.SKU) []GroupInput {
		item := f.seed.CartItem(buyer.ID, skuA.ID, 1)
		return []GroupInput{{ShopID: shopB.ID, CartItemIDs: []int64{item.ID}, Receiver: receiver}}
	}
	tests := []struct {
		name   string
		code   pkgerrors.Code
		groups func(t *testing.T, f *fixture, buyer, shopA, shopB models.User, skuA models.SKU) []GroupInput
		setup  func(f *fixture)
	}{
		{
			name: "out of stock",
			code: pkgerrors.CodeOutOfStock,
			groups: func(t *testing.T, f *fixture, buyer, shopA, _ models.User, skuA models.SKU) []GroupInput {
				item := f.seed.CartItem(buyer.ID, skuA.ID, 9)
				return []GroupInput{{ShopID: shopA.ID, CartItemIDs: []int64{item.ID}, Receiver: receiver}}
			},
		},
		{
			name:   "sku of another shop",
			code:   pkgerrors.CodeSKUNotBelongToShop,
			groups: shopMismatch,
		},
		{
			name: "cart item of another user",
			code: pkgerrors.CodeNotFoundCartItem,
			groups: func(t *testing.T, f *fixture, _, shopA, _ models.User, skuA models.SKU) []GroupInput {
				other := f.seed.Client()
				item := f.seed.CartItem(other.ID, skuA.ID, 1)
				return []GroupInput{{ShopID: shopA.ID, CartItemIDs: []int64{item.ID}, Receiver: receiver}}
			},
		},
		{
			name: "inactive shipping method",
			code: pkgerrors.CodeShippingMethodUnavailable,
			groups: func(t *testing.T, f *fixture, buyer, shopA, _ models.User, skuA models.SKU) []GroupInput {
				method := models.ShippingMethod{Name: "Express", IsActive: true}
				require.NoError(t, f.conn.Create(&method).Error)
				require.NoError(t, f.conn.Model(&method).Update("is_active", false).Error)
				item := f.seed.CartItem(buyer.ID, skuA.ID, 1)
				return []GroupInput{{ShopID: shopA.ID, CartItemIDs: []int64{item.ID}, Receiver: receiver, ShippingMethodID: &method.ID}}
			},
		},
		{
			name: "unknown payment method",
			code: pkgerrors.CodePaymentMethodUnavailable,
			groups: func(t *testing.T, f *fixture, buyer, shopA, _ models.User, skuA models.SKU) []GroupInput {
				missing := int64(4040)
				item := f.seed.CartItem(buyer.ID, skuA.ID, 1)
				return []GroupInput{{ShopID: shopA.ID, CartItemIDs: []int64{item.ID}, Receiver: receiver, PaymentMethodID: &missing}}
			},
		},
		{
			name: "scheduler unavailable",
			code: pkgerrors.CodeDependency,
			setup: func(f *fixture) {
				f.scheduler.err = errors.New("redis down")
			},
			groups: func(t *testing.T, f *fixture, buyer, shopA, _ models.User, skuA models.SKU) []GroupInput {
				item := f.seed.CartItem(buyer.ID, skuA.ID, 1)
				return []GroupInput{{ShopID: shopA.ID, CartItemIDs: []int64{item.ID}, Receiver: receiver}}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			shopA := f.seed.Shop()
			shopB := f.seed.Shop()
			buyer := f.seed.Client()
			skuA := f.seed.SKU(f.seed.Product(shopA.ID, "Lamp").ID, "Brass", 100000, 5)
			if tt.setup != nil {
				tt.setup(f)
			}
			groups := tt.groups(t, f, buyer, shopA, shopB, skuA)
			cartBefore := f.count(t, &models.CartItem{})

			_, err := f.svc.CreateOrders(context.Background(), buyer.ID, groups)
			require.Error(t, err)
			assert.Equal(t, tt.code, pkgerrors.CodeOf(err))

			assert.Zero(t, f.count(t, &models.Payment{}))
			assert.Zero(t, f.count(t, &models.Order{}))
			assert.Zero(t, f.count(t, &models.OutboxEvent{}))
			assert.Equal(t, cartBefore, f.count(t, &models.CartItem{}))
			assert.Equal(t, 5, f.seed.Stock(skuA.ID))
		})
	}
}

func TestCreateOrdersValidatesBeforeTouchingStorage(t *testing.T) {
	f := newFixture(t)
	buyer := f.seed.Client()

	_, err := f.svc.CreateOrders(context.Background(), buyer.ID, nil)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))

	_, err = f.svc.CreateOrders(context.Background(), buyer.ID, []GroupInput{
		{ShopID: 1, CartItemIDs: []int64{1}, Receiver: receiver},
		{ShopID: 2, CartItemIDs: []int64{1}, Receiver: receiver},
	})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))

	_, err = f.svc.CreateOrders(context.Background(), 0, []GroupInput{{ShopID: 1, CartItemIDs: []int64{1}, Receiver: receiver}})
	assert.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.CodeOf(err))
	assert.Empty(t, f.scheduler.scheduled)
}

func TestCreateOrdersNeverOversellsUnderContention(t *testing.T) {
	f := newFixture(t)
	shop := f.seed.Shop()
	sku := f.seed.SKU(f.seed.Product(shop.ID, "Lamp").ID, "Brass", 1000, 2)

	const buyers = 5
	groups := make([][]GroupInput, buyers)
	ids := make([]int64, buyers)
	for i := range groups {
		buyer := f.seed.Client()
		item := f.seed.CartItem(buyer.ID, sku.ID, 1)
		ids[i] = buyer.ID
		groups[i] = []GroupInput{{ShopID: shop.ID, CartItemIDs: []int64{item.ID}, Receiver: receiver}}
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := f.svc.CreateOrders(context.Background(), ids[i], groups[i]); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 2, succeeded)
	assert.Equal(t, 0, f.seed.Stock(sku.ID))
}
