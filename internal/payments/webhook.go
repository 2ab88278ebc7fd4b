package payments

import (
	"strings"
	"time"

	"github.com/vendora/vendora-backend/pkg/db/models"
	"github.com/vendora/vendora-backend/pkg/enums"
	pkgerrors "github.com/vendora/vendora-backend/pkg/errors"
	"github.com/vendora/vendora-backend/pkg/validation"
)

// TransactionDateLayout is the gateway's yyyy-MM-dd HH:mm:ss timestamp format.
const TransactionDateLayout = "2006-01-02 15:04:05"

var webhookValidator = validation.New()

// WebhookEvent is one bank transfer notification as posted by the gateway.
type WebhookEvent struct {
	ID              int64              `json:"id" validate:"required,gt=0"`
	Gateway         string             `json:"gateway" validate:"required,max=100"`
	TransactionDate string             `json:"transactionDate" validate:"required,datetime=2006-01-02 15:04:05"`
	AccountNumber   *string            `json:"accountNumber" validate:"omitempty,max=100"`
	SubAccount      *string            `json:"subAccount" validate:"omitempty,max=250"`
	Code            *string            `json:"code" validate:"omitempty,max=250"`
	Content         *string            `json:"content"`
	TransferType    enums.TransferType `json:"transferType" validate:"required,oneof=in out"`
	TransferAmount  int64              `json:"transferAmount" validate:"gte=0"`
	Accumulated     int64              `json:"accumulated"`
	ReferenceCode   *string            `json:"referenceCode" validate:"omitempty,max=255"`
	Description     string             `json:"description"`
}

// Validate checks the body shape against its tags. It never touches storage.
func (e WebhookEvent) Validate() error {
	if err := webhookValidator.Struct(e); err != nil {
		return validation.Error(err, "invalid webhook body")
	}
	return nil
}

// ParsedDate reads TransactionDate in UTC.
func (e WebhookEvent) ParsedDate() (time.Time, error) {
	return time.ParseInLocation(TransactionDateLayout, strings.TrimSpace(e.TransactionDate), time.UTC)
}

// AmountIn is the credited amount; outgoing transfers credit nothing.
func (e WebhookEvent) AmountIn() int64 {
	if e.TransferType == enums.TransferTypeIn {
		return e.TransferAmount
	}
	return 0
}

// AmountOut is the debited amount.
func (e WebhookEvent) AmountOut() int64 {
	if e.TransferType == enums.TransferTypeOut {
		return e.TransferAmount
	}
	return 0
}

// LedgerRow maps the event onto the append-only ledger row.
func (e WebhookEvent) LedgerRow() (models.PaymentTransaction, error) {
	date, err := e.ParsedDate()
	if err != nil {
		return models.PaymentTransaction{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid transactionDate")
	}
	description := e.Description
	return models.PaymentTransaction{
		ID:                 e.ID,
		Gateway:            e.Gateway,
		TransactionDate:    date,
		AccountNumber:      e.AccountNumber,
		SubAccount:         e.SubAccount,
		AmountIn:           e.AmountIn(),
		AmountOut:          e.AmountOut(),
		Accumulated:        e.Accumulated,
		Code:               e.Code,
		TransactionContent: e.Content,
		ReferenceNumber:    e.ReferenceCode,
		Body:               &description,
	}, nil
}

func (e WebhookEvent) codeValue() string {
	if e.Code == nil {
		return ""
	}
	return *e.Code
}

func (e WebhookEvent) contentValue() string {
	if e.Content == nil {
		return ""
	}
	return *e.Content
}
