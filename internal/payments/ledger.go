package payments

import (
	"context"

	"gorm.io/gorm"

	"github.com/vendora/vendora-backend/pkg/db"
	"github.com/vendora/vendora-backend/pkg/db/models"
	pkgerrors "github.com/vendora/vendora-backend/pkg/errors"
)

// LedgerRepository persists gateway transactions. Rows are never updated.
type LedgerRepository interface {
	WithTx(tx *gorm.DB) LedgerRepository
	Exists(ctx context.Context, transactionID int64) (bool, error)
	Insert(ctx context.Context, row *models.PaymentTransaction) error
}

type ledgerRepository struct {
	db *gorm.DB
}

func NewLedgerRepository(conn *gorm.DB) LedgerRepository {
	return &ledgerRepository{db: conn}
}

func (r *ledgerRepository) WithTx(tx *gorm.DB) LedgerRepository {
	if tx == nil {
		return r
	}
	return &ledgerRepository{db: tx}
}

func (r *ledgerRepository) Exists(ctx context.Context, transactionID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.PaymentTransaction{}).
		Where("id = ?", transactionID).
		Count(&count).Error
	return count > 0, err
}

// Insert writes the ledger row. A primary key collision means another delivery
// of the same transaction won the race.
func (r *ledgerRepository) Insert(ctx context.Context, row *models.PaymentTransaction) error {
	err := r.db.WithContext(ctx).Create(row).Error
	if err == nil {
		return nil
	}
	if db.IsUniqueViolation(err, "") {
		return duplicateTransaction(row.ID)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert payment transaction")
}

func duplicateTransaction(id int64) error {
	return pkgerrors.New(pkgerrors.CodeDuplicateTransaction, "transaction already processed").
		WithDetails(map[string]any{"transactionId": id})
}
