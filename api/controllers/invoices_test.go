package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/finishpro/admin-backend/internal/invoices"
	"github.com/finishpro/admin-backend/pkg/enums"
	pkgerrors "github.com/finishpro/admin-backend/pkg/errors"
	"github.com/finishpro/admin-backend/pkg/pagination"
)

type stubInvoicesService struct {
	listFn        func(ctx context.Context, params pagination.Params, filters invoices.ListFilters) (*invoices.InvoiceList, error)
	getFn         func(ctx context.Context, invoiceID uuid.UUID) (*invoices.InvoiceDetail, error)
	listIntentsFn func(ctx context.Context, params pagination.Params, filters invoices.IntentFilters) (*invoices.IntentList, error)
	resolveFn     func(ctx context.Context, input invoices.ResolveIntentInput) (*invoices.IntentSummary, error)
}

func (s *stubInvoicesService) List(ctx context.Context, params pagination.Params, filters invoices.ListFilters) (*invoices.InvoiceList, error) {
	return s.listFn(ctx, params, filters)
}

func (s *stubInvoicesService) Get(ctx context.Context, invoiceID uuid.UUID) (*invoices.InvoiceDetail, error) {
	return s.getFn(ctx, invoiceID)
}

func (s *stubInvoicesService) ListIntents(ctx context.Context, params pagination.Params, filters invoices.IntentFilters) (*invoices.IntentList, error) {
	return s.listIntentsFn(ctx, params, filters)
}

func (s *stubInvoicesService) ResolveIntent(ctx context.Context, input invoices.ResolveIntentInput) (*invoices.IntentSummary, error) {
	return s.resolveFn(ctx, input)
}

func TestListInvoicesFilters(t *testing.T) {
	orderID := uuid.New()
	var got invoices.ListFilters
	svc := &stubInvoicesService{listFn: func(ctx context.Context, params pagination.Params, filters invoices.ListFilters) (*invoices.InvoiceList, error) {
		got = filters
		if params.Limit != pagination.DefaultLimit {
			t.Fatalf("expected default limit, got %d", params.Limit)
		}
		return &invoices.InvoiceList{}, nil
	}}
	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/invoices?status=paid&order_id="+orderID.String(), nil)
	resp := httptest.NewRecorder()
	ListInvoices(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
	}
	if got.OrderID == nil || *got.OrderID != orderID {
		t.Fatalf("order filter not parsed")
	}
	if got.Status == nil || *got.Status != enums.InvoiceStatusPaid {
		t.Fatalf("status filter not parsed")
	}
	if got.CompanyID != nil {
		t.Fatalf("company filter should be nil")
	}
}

func TestListInvoicesRejectsBadQuery(t *testing.T) {
	svc := &stubInvoicesService{}
	for _, query := range []string{"order_id=abc", "status=refunded", "limit=0", "limit=500"} {
		req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/invoices?"+query, nil)
		resp := httptest.NewRecorder()
		ListInvoices(svc, testLogger())(resp, req)
		if resp.Code != http.StatusBadRequest {
			t.Fatalf("query %s: expected 400 got %d", query, resp.Code)
		}
	}
}

func TestGetInvoice(t *testing.T) {
	invoiceID := uuid.New()
	svc := &stubInvoicesService{getFn: func(ctx context.Context, id uuid.UUID) (*invoices.InvoiceDetail, error) {
		if id != invoiceID {
			t.Fatalf("unexpected id %s", id)
		}
		return &invoices.InvoiceDetail{InvoiceSummary: invoices.InvoiceSummary{ID: id}}, nil
	}}
	req := addRouteParam(httptest.NewRequest(http.MethodGet, "/x", nil), "invoiceId", invoiceID.String())
	resp := httptest.NewRecorder()
	GetInvoice(svc, testLogger())(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
}

func TestListInvoiceIntentsStatusFilter(t *testing.T) {
	var got invoices.IntentFilters
	svc := &stubInvoicesService{listIntentsFn: func(ctx context.Context, params pagination.Params, filters invoices.IntentFilters) (*invoices.IntentList, error) {
		got = filters
		return &invoices.IntentList{}, nil
	}}
	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/invoice-intents?status=void_failed", nil)
	resp := httptest.NewRecorder()
	ListInvoiceIntents(svc, testLogger())(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	if got.Status == nil || *got.Status != enums.InvoiceIntentStatusVoidFailed {
		t.Fatalf("status filter not parsed")
	}
}

func TestResolveInvoiceIntent(t *testing.T) {
	intentID := uuid.New()
	operatorID := uuid.New()
	svc := &stubInvoicesService{resolveFn: func(ctx context.Context, input invoices.ResolveIntentInput) (*invoices.IntentSummary, error) {
		if input.IntentID != intentID || input.OperatorID != operatorID {
			t.Fatalf("unexpected input %+v", input)
		}
		return &invoices.IntentSummary{ID: intentID, Status: enums.InvoiceIntentStatusResolved}, nil
	}}
	req := httptest.NewRequest(http.MethodPost, "/resolve", nil)
	req = withActor(addRouteParam(req, "intentId", intentID.String()), operatorID.String())
	resp := httptest.NewRecorder()
	ResolveInvoiceIntent(svc, testLogger())(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
	}
}

func TestResolveInvoiceIntentStateConflict(t *testing.T) {
	svc := &stubInvoicesService{resolveFn: func(ctx context.Context, input invoices.ResolveIntentInput) (*invoices.IntentSummary, error) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "intent is not awaiting manual resolution")
	}}
	req := httptest.NewRequest(http.MethodPost, "/resolve", nil)
	req = withActor(addRouteParam(req, "intentId", uuid.NewString()), uuid.NewString())
	resp := httptest.NewRecorder()
	ResolveInvoiceIntent(svc, testLogger())(resp, req)
	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", resp.Code)
	}
}
