package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	"gorm.io/gorm"

	"github.com/finishpro/admin-backend/internal/approval"
	"github.com/finishpro/admin-backend/internal/invoices"
	"github.com/finishpro/admin-backend/pkg/db/models"
	"github.com/finishpro/admin-backend/pkg/enums"
	"github.com/finishpro/admin-backend/pkg/outbox"
)

type stubFinder struct {
	intent *models.InvoiceIntent
	err    error
}

func (s stubFinder) FindByID(context.Context, uuid.UUID) (*models.InvoiceIntent, error) {
	return s.intent, s.err
}

type stubVoider struct {
	calls  int
	source string
	result string
	err    error
}

func (s *stubVoider) Void(_ context.Context, _ *models.InvoiceIntent, source string, _ error) (string, error) {
	s.calls++
	s.source = source
	return s.result, s.err
}

func TestVoidIntentRequiresVoidFailed(t *testing.T) {
	invoiceID := "in_1"
	voider := &stubVoider{}
	_, err := voidIntent(context.Background(), stubFinder{intent: &models.InvoiceIntent{
		ID:              uuid.New(),
		Status:          enums.InvoiceIntentStatusCommitted,
		StripeInvoiceID: &invoiceID,
	}}, voider, uuid.New())
	if err == nil || !strings.Contains(err.Error(), "only void_failed") {
		t.Fatalf("expected status error, got %v", err)
	}
	if voider.calls != 0 {
		t.Fatal("void must not be attempted")
	}
}

func TestVoidIntentCallsCompensatorAsOperator(t *testing.T) {
	invoiceID := "in_2"
	voider := &stubVoider{result: approval.ResultVoided}
	result, err := voidIntent(context.Background(), stubFinder{intent: &models.InvoiceIntent{
		ID:              uuid.New(),
		Status:          enums.InvoiceIntentStatusVoidFailed,
		StripeInvoiceID: &invoiceID,
	}}, voider, uuid.New())
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if result != approval.ResultVoided || voider.source != approval.SourceOperator {
		t.Fatalf("unexpected result %q source %q", result, voider.source)
	}
}

func TestVoidIntentSurfacesProviderFailure(t *testing.T) {
	invoiceID := "in_3"
	voider := &stubVoider{result: approval.ResultVoidFailed, err: errors.New("invoice is paid")}
	result, err := voidIntent(context.Background(), stubFinder{intent: &models.InvoiceIntent{
		Status:          enums.InvoiceIntentStatusVoidFailed,
		StripeInvoiceID: &invoiceID,
	}}, voider, uuid.New())
	if err == nil || !strings.Contains(err.Error(), "void in_3") {
		t.Fatalf("expected wrapped provider error, got %v", err)
	}
	if result != approval.ResultVoidFailed {
		t.Fatalf("unexpected result %q", result)
	}
}

func TestIntentFilters(t *testing.T) {
	orderID := uuid.New()
	filters, err := intentFilters("void_failed", orderID.String())
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if filters.Status == nil || *filters.Status != enums.InvoiceIntentStatusVoidFailed {
		t.Fatalf("status filter not set")
	}
	if filters.OrderID == nil || *filters.OrderID != orderID {
		t.Fatalf("order filter not set")
	}

	if _, err := intentFilters("lost", ""); err == nil {
		t.Fatal("expected invalid status error")
	}
	if _, err := intentFilters("", "not-a-uuid"); err == nil {
		t.Fatal("expected invalid order error")
	}
}

func TestWriteIntentsTable(t *testing.T) {
	invoiceID := "in_9"
	var buf bytes.Buffer
	err := writeIntents(&buf, &invoices.IntentList{
		Intents: []invoices.IntentSummary{{
			ID:              uuid.New(),
			OrderID:         uuid.New(),
			Attempt:         2,
			Status:          enums.InvoiceIntentStatusVoidFailed,
			StripeInvoiceID: &invoiceID,
			TotalCents:      123456,
		}},
		NextCursor: "abc",
	})
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	out := buf.String()
	for _, want := range []string{"STATUS", "void_failed", "in_9", "1234.56", "next cursor: abc"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

type stubAdminStore struct {
	user        *models.User
	err         error
	deactivated []uuid.UUID
}

func (s *stubAdminStore) FindByEmail(context.Context, string) (*models.User, error) {
	return s.user, s.err
}

func (s *stubAdminStore) SetActive(_ context.Context, id uuid.UUID, active bool) (bool, error) {
	if !active {
		s.deactivated = append(s.deactivated, id)
	}
	return true, nil
}

func TestDeactivateAdmin(t *testing.T) {
	role := models.SystemRoleAdmin
	user := &models.User{ID: uuid.New(), Email: "ops@finishpro.test", SystemRole: &role}
	store := &stubAdminStore{user: user}

	id, err := deactivateAdmin(context.Background(), store, " OPS@finishpro.test ")
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if id != user.ID || len(store.deactivated) != 1 {
		t.Fatalf("admin not deactivated")
	}
}

func TestDeactivateAdminRejectsNonAdmins(t *testing.T) {
	store := &stubAdminStore{user: &models.User{ID: uuid.New()}}
	if _, err := deactivateAdmin(context.Background(), store, "user@finishpro.test"); err == nil {
		t.Fatal("expected error for non-admin")
	}
	if len(store.deactivated) != 0 {
		t.Fatal("non-admin must not be touched")
	}

	missing := &stubAdminStore{err: gorm.ErrRecordNotFound}
	if _, err := deactivateAdmin(context.Background(), missing, "ghost@finishpro.test"); err == nil || !strings.Contains(err.Error(), "no user") {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestReadPassword(t *testing.T) {
	noEnv := func(string) (string, bool) { return "", false }

	got, err := readPassword(strings.NewReader("correct-horse-battery\n"), true, noEnv)
	if err != nil || got != "correct-horse-battery" {
		t.Fatalf("stdin password: got %q err %v", got, err)
	}

	if _, err := readPassword(strings.NewReader("\n"), true, noEnv); err == nil {
		t.Fatal("expected empty stdin error")
	}

	env := func(key string) (string, bool) {
		if key == adminPasswordEnv {
			return "from-env-password", true
		}
		return "", false
	}
	got, err = readPassword(strings.NewReader(""), false, env)
	if err != nil || got != "from-env-password" {
		t.Fatalf("env password: got %q err %v", got, err)
	}

	if _, err := readPassword(strings.NewReader(""), false, noEnv); err == nil {
		t.Fatal("expected missing password error")
	}
}

type stubRequeuer struct {
	err error
	ids []uuid.UUID
}

func (s *stubRequeuer) Requeue(_ context.Context, id uuid.UUID) error {
	s.ids = append(s.ids, id)
	return s.err
}

func TestRequeueEvent(t *testing.T) {
	id := uuid.New()
	repo := &stubRequeuer{}
	if err := requeueEvent(context.Background(), repo, id); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if len(repo.ids) != 1 || repo.ids[0] != id {
		t.Fatalf("requeue not forwarded: %v", repo.ids)
	}

	missing := &stubRequeuer{err: outbox.ErrDLQEntryNotFound}
	if err := requeueEvent(context.Background(), missing, id); err == nil || !strings.Contains(err.Error(), "not in the dlq") {
		t.Fatalf("expected not-in-dlq error, got %v", err)
	}
}

func TestDLQFilter(t *testing.T) {
	filter, err := dlqFilter(" max_attempts ", 10)
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if filter.Reason == nil || *filter.Reason != enums.OutboxDLQReasonMaxAttempts || filter.Limit != 10 {
		t.Fatalf("unexpected filter %+v", filter)
	}
	if _, err := dlqFilter("timeout", 10); err == nil {
		t.Fatal("expected invalid reason error")
	}
}

func TestWriteDLQTable(t *testing.T) {
	msg := "publish: deadline exceeded"
	var buf bytes.Buffer
	err := writeDLQ(&buf, []models.OutboxDLQ{{
		EventID:       uuid.New(),
		EventType:     enums.EventInvoicePaid,
		AggregateType: enums.AggregateInvoice,
		AggregateID:   uuid.New(),
		ErrorReason:   enums.OutboxDLQReasonMaxAttempts,
		ErrorMessage:  &msg,
		AttemptCount:  5,
		FailedAt:      time.Date(2026, 3, 2, 10, 30, 0, 0, time.UTC),
	}})
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	out := buf.String()
	for _, want := range []string{"REASON", "invoice_paid", "max_attempts", "2026-03-02 10:30:00", "deadline exceeded"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	if err := writeDLQ(&buf, nil); err != nil || !strings.Contains(buf.String(), "empty") {
		t.Fatalf("expected empty message, got %q err %v", buf.String(), err)
	}
}

func TestWriteMigrationOutput(t *testing.T) {
	source := &goose.Source{Version: 20260105090400, Path: "20260105090400_create_invoices.sql"}

	var buf bytes.Buffer
	writeResults(&buf, []*goose.MigrationResult{{Source: source, Direction: "up", Duration: 12 * time.Millisecond}})
	if out := buf.String(); !strings.Contains(out, "20260105090400") || !strings.Contains(out, "OK") {
		t.Fatalf("unexpected result output %q", out)
	}

	buf.Reset()
	writeResults(&buf, nil)
	if !strings.Contains(buf.String(), "no migrations") {
		t.Fatalf("unexpected empty output %q", buf.String())
	}

	buf.Reset()
	err := writeStatuses(&buf, []*goose.MigrationStatus{{Source: source, State: goose.StatePending}})
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if out := buf.String(); !strings.Contains(out, "pending") || !strings.Contains(out, "create_invoices") {
		t.Fatalf("unexpected status output %q", out)
	}
}
