package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/finishpro/admin-backend/internal/approval"
	"github.com/finishpro/admin-backend/internal/invoices"
	"github.com/finishpro/admin-backend/internal/invoicing"
	"github.com/finishpro/admin-backend/pkg/db/models"
	"github.com/finishpro/admin-backend/pkg/enums"
	"github.com/finishpro/admin-backend/pkg/metrics"
	"github.com/finishpro/admin-backend/pkg/outbox"
	"github.com/finishpro/admin-backend/pkg/pagination"
	pkgstripe "github.com/finishpro/admin-backend/pkg/stripe"
)

var intentsCmd = &cobra.Command{
	Use:   "intents",
	Short: "Inspect and compensate invoice intents",
}

var intentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List invoice intents, newest first",
	Example: `  opsctl intents list --status void_failed
  opsctl intents list --order 6c1f0f0e-5b7a-4a43-9a2d-1c6f0f5b7a1e`,
	Args: cobra.NoArgs,
	RunE: runIntentsList,
}

var intentsVoidCmd = &cobra.Command{
	Use:   "void <intent-id>",
	Short: "Retry voiding the provider invoice of a void_failed intent",
	Args:  cobra.ExactArgs(1),
	RunE:  runIntentsVoid,
}

var intentsResolveCmd = &cobra.Command{
	Use:   "resolve <intent-id>",
	Short: "Mark a void_failed intent as handled outside the system",
	Long: `Marks a void_failed intent resolved after the provider invoice was dealt
with by hand. The order becomes eligible for another approval attempt.`,
	Args: cobra.ExactArgs(1),
	RunE: runIntentsResolve,
}

func init() {
	rootCmd.AddCommand(intentsCmd)
	intentsCmd.AddCommand(intentsListCmd, intentsVoidCmd, intentsResolveCmd)

	intentsListCmd.Flags().String("status", "", "filter by intent status")
	intentsListCmd.Flags().String("order", "", "filter by distributor order id")
	intentsListCmd.Flags().Int("limit", pagination.DefaultLimit, "page size")
	intentsListCmd.Flags().String("cursor", "", "cursor from a previous page")

	intentsResolveCmd.Flags().String("operator", "", "admin user id recorded as resolver (required)")
	_ = intentsResolveCmd.MarkFlagRequired("operator")
}

func runIntentsList(cmd *cobra.Command, _ []string) error {
	statusRaw, _ := cmd.Flags().GetString("status")
	orderRaw, _ := cmd.Flags().GetString("order")
	limit, _ := cmd.Flags().GetInt("limit")
	cursor, _ := cmd.Flags().GetString("cursor")

	filters, err := intentFilters(statusRaw, orderRaw)
	if err != nil {
		return err
	}

	rt, closeFn, err := bootstrap(cmd.Context())
	if err != nil {
		return err
	}
	defer closeFn()

	svc, err := invoices.NewService(invoices.NewRepository(rt.db.DB()), invoices.NewIntentRepository(rt.db.DB()))
	if err != nil {
		return err
	}
	list, err := svc.ListIntents(cmd.Context(), pagination.Params{Limit: limit, Cursor: cursor}, filters)
	if err != nil {
		return err
	}
	return writeIntents(cmd.OutOrStdout(), list)
}

func runIntentsVoid(cmd *cobra.Command, args []string) error {
	intentID, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid intent id %q", args[0])
	}

	rt, closeFn, err := bootstrap(cmd.Context())
	if err != nil {
		return err
	}
	defer closeFn()

	stripeClient, err := pkgstripe.NewClient(cmd.Context(), rt.cfg.Stripe, rt.logg)
	if err != nil {
		return fmt.Errorf("bootstrap stripe client: %w", err)
	}
	gateway, err := invoicing.NewStripeGateway(stripeClient)
	if err != nil {
		return err
	}
	intents := invoices.NewIntentRepository(rt.db.DB())
	compensator, err := approval.NewCompensator(approval.CompensatorParams{
		Gateway:     gateway,
		Intents:     intents,
		TxRunner:    rt.db,
		Outbox:      outbox.NewService(outbox.NewRepository(rt.db.DB()), rt.logg),
		Logger:      rt.logg,
		Metrics:     metrics.NewApprovalMetrics(prometheus.NewRegistry()),
		VoidTimeout: rt.cfg.Approval.VoidTimeout,
	})
	if err != nil {
		return err
	}

	result, err := voidIntent(cmd.Context(), intents, compensator, intentID)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "intent %s: %s\n", intentID, result)
	return nil
}

func runIntentsResolve(cmd *cobra.Command, args []string) error {
	intentID, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid intent id %q", args[0])
	}
	operatorRaw, _ := cmd.Flags().GetString("operator")
	operatorID, err := uuid.Parse(strings.TrimSpace(operatorRaw))
	if err != nil {
		return fmt.Errorf("invalid operator id %q", operatorRaw)
	}

	rt, closeFn, err := bootstrap(cmd.Context())
	if err != nil {
		return err
	}
	defer closeFn()

	svc, err := invoices.NewService(invoices.NewRepository(rt.db.DB()), invoices.NewIntentRepository(rt.db.DB()))
	if err != nil {
		return err
	}
	summary, err := svc.ResolveIntent(cmd.Context(), invoices.ResolveIntentInput{
		IntentID:   intentID,
		OperatorID: operatorID,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "intent %s: %s\n", summary.ID, summary.Status)
	return nil
}

type intentFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.InvoiceIntent, error)
}

type intentVoider interface {
	Void(ctx context.Context, intent *models.InvoiceIntent, source string, cause error) (string, error)
}

// voidIntent retries the provider void for an intent parked in void_failed.
func voidIntent(ctx context.Context, finder intentFinder, voider intentVoider, id uuid.UUID) (string, error) {
	intent, err := finder.FindByID(ctx, id)
	if err != nil {
		return "", fmt.Errorf("load intent %s: %w", id, err)
	}
	if intent.Status != enums.InvoiceIntentStatusVoidFailed {
		return "", fmt.Errorf("intent %s is %s; only void_failed intents can be voided", id, intent.Status)
	}
	if intent.StripeInvoiceID == nil || *intent.StripeInvoiceID == "" {
		return "", fmt.Errorf("intent %s has no provider invoice", id)
	}
	result, err := voider.Void(ctx, intent, approval.SourceOperator, nil)
	if err != nil {
		return result, fmt.Errorf("void %s: %w", *intent.StripeInvoiceID, err)
	}
	return result, nil
}

func intentFilters(status, order string) (invoices.IntentFilters, error) {
	var filters invoices.IntentFilters
	if s := strings.TrimSpace(status); s != "" {
		parsed, err := enums.ParseInvoiceIntentStatus(s)
		if err != nil {
			return filters, err
		}
		filters.Status = &parsed
	}
	if o := strings.TrimSpace(order); o != "" {
		id, err := uuid.Parse(o)
		if err != nil {
			return filters, fmt.Errorf("invalid order id %q", o)
		}
		filters.OrderID = &id
	}
	return filters, nil
}

func writeIntents(w io.Writer, list *invoices.IntentList) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tORDER\tATTEMPT\tSTATUS\tSTRIPE INVOICE\tTOTAL\tLAST ERROR")
	for _, intent := range list.Intents {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\t%s\n",
			intent.ID,
			intent.OrderID,
			intent.Attempt,
			intent.Status,
			valueOrDash(intent.StripeInvoiceID),
			formatCents(intent.TotalCents),
			valueOrDash(intent.LastError),
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if list.NextCursor != "" {
		fmt.Fprintf(w, "\nnext cursor: %s\n", list.NextCursor)
	}
	return nil
}

func valueOrDash(value *string) string {
	if value == nil || *value == "" {
		return "-"
	}
	return *value
}

func formatCents(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}
