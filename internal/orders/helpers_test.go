package orders

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/vendora/vendora-backend/internal/inventory"
	"github.com/vendora/vendora-backend/pkg/db"
	"github.com/vendora/vendora-backend/pkg/db/dbtest"
	"github.com/vendora/vendora-backend/pkg/db/models"
	"github.com/vendora/vendora-backend/pkg/enums"
	"github.com/vendora/vendora-backend/pkg/logger"
	"github.com/vendora/vendora-backend/pkg/outbox"
	"github.com/vendora/vendora-backend/pkg/types"
)

type fakeTimer struct {
	mu        sync.Mutex
	cancelled []int64
	err       error
}

func (f *fakeTimer) Cancel(_ context.Context, paymentID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, paymentID)
	return f.err
}

type fixture struct {
	conn   *gorm.DB
	seed   *dbtest.Seeder
	repo   Repository
	outbox *outbox.Repository
	voider *Voider
	timer  *fakeTimer
	svc    Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	outboxRepo := outbox.NewRepository(conn)
	emitter := outbox.NewService(outboxRepo, logger.Nop())
	voider, err := NewVoider(repo, inventory.NewGuard(), emitter)
	require.NoError(t, err)
	timer := &fakeTimer{}
	svc, err := NewService(ServiceParams{
		Repository: repo,
		DB:         db.NewFromConn(conn),
		Voider:     voider,
		Timer:      timer,
		Outbox:     emitter,
		Logger:     logger.Nop(),
	})
	require.NoError(t, err)
	return &fixture{
		conn:   conn,
		seed:   dbtest.NewSeeder(t, conn),
		repo:   repo,
		outbox: outboxRepo,
		voider: voider,
		timer:  timer,
		svc:    svc,
	}
}

type groupLine struct {
	shopID int64
	sku    models.SKU
	qty    int
}

// placeOrders writes a pending payment with one order per shop, mirroring what
// checkout leaves behind (stock already decremented).
func (f *fixture) placeOrders(t *testing.T, buyerID int64, lines ...groupLine) models.Payment {
	t.Helper()
	payment := models.Payment{Status: enums.PaymentStatusPending}
	require.NoError(t, f.repo.CreatePayment(context.Background(), &payment))

	byShop := map[int64][]groupLine{}
	var shops []int64
	for _, line := range lines {
		if _, ok := byShop[line.shopID]; !ok {
			shops = append(shops, line.shopID)
		}
		byShop[line.shopID] = append(byShop[line.shopID], line)
	}
	for _, shopID := range shops {
		var items []models.OrderItem
		var subtotal int64
		for _, line := range byShop[shopID] {
			items = append(items, models.OrderItem{
				ProductID:   line.sku.ProductID,
				SKUID:       line.sku.ID,
				ProductName: "snapshot",
				SKUValue:    line.sku.Value,
				SKUPrice:    line.sku.Price,
				Quantity:    line.qty,
			})
			subtotal += line.sku.Price * int64(line.qty)
			require.NoError(t, f.conn.Exec("UPDATE skus SET stock = stock - ? WHERE id = ?", line.qty, line.sku.ID).Error)
		}
		admin := subtotal / 10
		order := models.Order{
			UserID:                buyerID,
			ShopID:                shopID,
			PaymentID:             payment.ID,
			Status:                enums.OrderStatusPendingPayment,
			Receiver:              types.Receiver{Name: "Lan", Phone: "0901234567", Address: "12 Hang Bac"},
			Subtotal:              subtotal,
			Total:                 subtotal,
			CommissionRate:        decimal.NewFromInt(10),
			AdminCommissionAmount: admin,
			ShopPayoutAmount:      subtotal - admin,
			PayoutStatus:          enums.PayoutStatusPending,
			CreatedByID:           buyerID,
			Items:                 items,
		}
		require.NoError(t, f.repo.CreateOrder(context.Background(), &order))
	}
	return payment
}

func (f *fixture) ordersOf(t *testing.T, paymentID int64) []models.Order {
	t.Helper()
	rows, err := f.repo.FindOrdersByPayment(context.Background(), paymentID)
	require.NoError(t, err)
	return rows
}

func (f *fixture) paymentStatus(t *testing.T, paymentID int64) enums.PaymentStatus {
	t.Helper()
	payment, err := f.repo.FindPayment(context.Background(), paymentID)
	require.NoError(t, err)
	return payment.Status
}
