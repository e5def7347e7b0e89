package webhooks

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"

	pkgerrors "github.com/finishpro/admin-backend/pkg/errors"
)

const testSecret = "whsec_test"

type recordingService struct {
	handled []stripe.EventType
	seen    map[string]bool
	err     error
}

func (s *recordingService) Process(_ context.Context, event *stripe.Event) (bool, error) {
	if s.seen[event.ID] {
		return true, nil
	}
	s.handled = append(s.handled, event.Type)
	if s.err != nil {
		return false, s.err
	}
	s.seen[event.ID] = true
	return false, nil
}

type secretClient string

func (c secretClient) SigningSecret() string { return string(c) }

func invoicePaidPayload(t *testing.T, apiVersion string) []byte {
	t.Helper()
	invoice, err := json.Marshal(&stripe.Invoice{
		ID:         "in_" + uuid.NewString(),
		Status:     stripe.InvoiceStatusPaid,
		AmountPaid: 4200,
		Currency:   stripe.CurrencyGBP,
		Metadata:   map[string]string{"order_id": uuid.NewString()},
	})
	require.NoError(t, err)
	payload, err := json.Marshal(&stripe.Event{
		ID:         "evt_" + uuid.NewString(),
		Type:       stripe.EventTypeInvoicePaid,
		Object:     "event",
		APIVersion: apiVersion,
		Data:       &stripe.EventData{Raw: invoice},
	})
	require.NoError(t, err)
	return payload
}

func sign(payload []byte, secret string) string {
	return webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: time.Now(),
	}).Header
}

func post(handler http.HandlerFunc, payload []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", bytes.NewReader(payload))
	if signature != "" {
		req.Header.Set("Stripe-Signature", signature)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestStripeWebhookProcessesOnceThenReportsDuplicate(t *testing.T) {
	payload := invoicePaidPayload(t, stripe.APIVersion)
	svc := &recordingService{seen: map[string]bool{}}
	handler := StripeWebhook(svc, secretClient(testSecret), nil)

	require.Equal(t, http.StatusOK, post(handler, payload, sign(payload, testSecret)).Code)
	rec := post(handler, payload, sign(payload, testSecret))
	require.Equal(t, http.StatusOK, rec.Code)

	var envelope struct {
		Data map[string]bool `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.True(t, envelope.Data["duplicate"])
	assert.Equal(t, []stripe.EventType{stripe.EventTypeInvoicePaid}, svc.handled)
}

func TestStripeWebhookAcceptsOtherAPIVersions(t *testing.T) {
	payload := invoicePaidPayload(t, "2020-08-27")
	svc := &recordingService{seen: map[string]bool{}}

	rec := post(StripeWebhook(svc, secretClient(testSecret), nil), payload, sign(payload, testSecret))

	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Len(t, svc.handled, 1)
}

func TestStripeWebhookRejections(t *testing.T) {
	payload := invoicePaidPayload(t, stripe.APIVersion)
	cases := []struct {
		name      string
		secret    string
		signature string
		svcErr    error
		want      int
	}{
		{"tampered signature", testSecret, "t=1,v1=invalid", nil, http.StatusUnauthorized},
		{"wrong secret", "whsec_other", sign(payload, testSecret), nil, http.StatusUnauthorized},
		{"missing signature", testSecret, "", nil, http.StatusBadRequest},
		{"dependency failure", testSecret, sign(payload, testSecret), pkgerrors.New(pkgerrors.CodeDependency, "database down"), http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &recordingService{seen: map[string]bool{}, err: tc.svcErr}

			rec := post(StripeWebhook(svc, secretClient(tc.secret), nil), payload, tc.signature)

			assert.Equal(t, tc.want, rec.Code)
			if tc.svcErr == nil {
				assert.Empty(t, svc.handled)
			}
		})
	}
}

func TestStripeWebhookWithoutDependencies(t *testing.T) {
	rec := post(StripeWebhook(nil, secretClient(testSecret), nil), []byte(`{}`), "sig")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
