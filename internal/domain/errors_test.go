package domain

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindHTTPStatus(t *testing.T) {
	want := map[Kind]int{
		KindValidation:        http.StatusBadRequest,
		KindInvalidState:      http.StatusBadRequest,
		KindNotFound:          http.StatusNotFound,
		KindUnauthorized:      http.StatusUnauthorized,
		KindConfiguration:     http.StatusInternalServerError,
		KindAuthentication:    http.StatusInternalServerError,
		KindIPNRegistration:   http.StatusInternalServerError,
		KindGatewaySubmission: http.StatusInternalServerError,
		KindStatusFetch:       http.StatusInternalServerError,
		KindInternal:          http.StatusInternalServerError,
	}
	for kind, status := range want {
		assert.Equal(t, status, kind.HTTPStatus(), kind.String())
	}
}

func TestKindOfWrapped(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("create order: %w", NewError(KindGatewaySubmission, "Failed to submit order", cause))

	assert.Equal(t, KindGatewaySubmission, KindOf(err))
	assert.Equal(t, "Failed to submit order", PublicMessage(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, KindInternal, KindOf(cause))
	assert.Equal(t, "Internal server error", PublicMessage(cause))
	assert.Equal(t, "GatewaySubmissionError", KindGatewaySubmission.String())
}
