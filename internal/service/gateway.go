package service

import (
	"context"
	"errors"

	"bookstore/internal/domain"
	"bookstore/pkg/pesapal"
)

// Gateway is the part of the Pesapal client the payment services use.
type Gateway interface {
	EnsureIPNID(ctx context.Context, callbackURL string) (string, error)
	SubmitOrder(ctx context.Context, req pesapal.OrderRequest) (*pesapal.OrderResponse, error)
	GetTransactionStatus(ctx context.Context, orderTrackingID string) (*pesapal.TransactionStatus, error)
}

var gatewayKinds = map[pesapal.Op]domain.Kind{
	pesapal.OpAuth:   domain.KindAuthentication,
	pesapal.OpIPN:    domain.KindIPNRegistration,
	pesapal.OpSubmit: domain.KindGatewaySubmission,
	pesapal.OpStatus: domain.KindStatusFetch,
}

var gatewayFallbackMessages = map[domain.Kind]string{
	domain.KindAuthentication:    "Payment gateway authentication failed",
	domain.KindIPNRegistration:   "Payment notification registration failed",
	domain.KindGatewaySubmission: "Failed to submit order to payment gateway",
	domain.KindStatusFetch:       "Failed to fetch transaction status",
}

// gatewayError converts a client error into the domain taxonomy. stage is the kind
// used when the error does not say which gateway call failed.
func gatewayError(err error, stage domain.Kind) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pesapal.ErrMissingCredentials) {
		return domain.NewError(domain.KindConfiguration, "Payment gateway credentials are not configured", err)
	}
	if errors.Is(err, pesapal.ErrMissingTrackingID) {
		return domain.NewError(domain.KindValidation, "orderTrackingId is required", err)
	}
	var pe *pesapal.Error
	if errors.As(err, &pe) {
		kind, ok := gatewayKinds[pe.Op]
		if !ok {
			kind = stage
		}
		msg := pe.Message
		if msg == "" {
			msg = gatewayFallbackMessages[kind]
		}
		return domain.NewError(kind, msg, err)
	}
	return domain.NewError(stage, gatewayFallbackMessages[stage], err)
}
