package enums

import "fmt"

// NotificationType maps to the admin_notification_type enum in Postgres.
type NotificationType string

const (
	NotificationTypeOrderApproved        NotificationType = "order_approved"
	NotificationTypeOrderRejected        NotificationType = "order_rejected"
	NotificationTypeCompensationFailed   NotificationType = "compensation_failed"
	NotificationTypeInvoicePaid          NotificationType = "invoice_paid"
	NotificationTypeInvoicePaymentFailed NotificationType = "invoice_payment_failed"
)

func (n NotificationType) IsValid() bool {
	switch n {
	case NotificationTypeOrderApproved,
		NotificationTypeOrderRejected,
		NotificationTypeCompensationFailed,
		NotificationTypeInvoicePaid,
		NotificationTypeInvoicePaymentFailed:
		return true
	}
	return false
}

func ParseNotificationType(value string) (NotificationType, error) {
	if t := NotificationType(value); t.IsValid() {
		return t, nil
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}
