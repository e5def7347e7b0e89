package enums

import (
	"fmt"
	"slices"
)

// OutboxAggregateType maps to aggregate_type_enum.
type OutboxAggregateType string

const (
	AggregateDistributorOrder OutboxAggregateType = "distributor_order"
	AggregateInvoice          OutboxAggregateType = "invoice"
	AggregateInvoiceIntent    OutboxAggregateType = "invoice_intent"
)

var aggregateTypes = []OutboxAggregateType{AggregateDistributorOrder, AggregateInvoice, AggregateInvoiceIntent}

func (a OutboxAggregateType) IsValid() bool { return slices.Contains(aggregateTypes, a) }

func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	a := OutboxAggregateType(value)
	if !a.IsValid() {
		return "", fmt.Errorf("invalid aggregate type %q", value)
	}
	return a, nil
}

// OutboxEventType maps to event_type_enum. Adding a value needs a migration
// as well as a registry descriptor.
type OutboxEventType string

const (
	EventDistributorOrderApproved  OutboxEventType = "distributor_order_approved"
	EventDistributorOrderRejected  OutboxEventType = "distributor_order_rejected"
	EventInvoiceCompensationFailed OutboxEventType = "invoice_compensation_failed"
	EventInvoicePaid               OutboxEventType = "invoice_paid"
	EventInvoicePaymentFailed      OutboxEventType = "invoice_payment_failed"
)

var eventTypes = []OutboxEventType{
	EventDistributorOrderApproved,
	EventDistributorOrderRejected,
	EventInvoiceCompensationFailed,
	EventInvoicePaid,
	EventInvoicePaymentFailed,
}

func (e OutboxEventType) IsValid() bool { return slices.Contains(eventTypes, e) }

func ParseOutboxEventType(value string) (OutboxEventType, error) {
	e := OutboxEventType(value)
	if !e.IsValid() {
		return "", fmt.Errorf("invalid event type %q", value)
	}
	return e, nil
}
