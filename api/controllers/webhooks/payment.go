package webhooks

import (
	"context"
	"net/http"

	"github.com/vendora/vendora-backend/api/responses"
	"github.com/vendora/vendora-backend/api/validators"
	"github.com/vendora/vendora-backend/internal/payments"
	pkgerrors "github.com/vendora/vendora-backend/pkg/errors"
	"github.com/vendora/vendora-backend/pkg/logger"
)

const maxWebhookBodyBytes = 64 << 10

type paymentReceiver interface {
	ReceiveWebhook(ctx context.Context, event payments.WebhookEvent) (*payments.Receipt, error)
}

// PaymentReceiver accepts bank transfer notifications from the payment gateway.
// Unknown fields are ignored so gateway additions do not break delivery.
func PaymentReceiver(svc paymentReceiver, apiKey string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment reconciler unavailable"))
			return
		}
		if err := payments.AuthorizeAPIKey(r.Header.Get("Authorization"), apiKey); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var event payments.WebhookEvent
		if err := validators.DecodeLenientJSONBody(r, &event, maxWebhookBodyBytes); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		receipt, err := svc.ReceiveWebhook(r.Context(), event)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteMessage(w, http.StatusOK, receipt.Message)
	}
}
