package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/finishpro/admin-backend/pkg/db/models"
	"github.com/finishpro/admin-backend/pkg/enums"
	"github.com/finishpro/admin-backend/pkg/outbox"
)

var outboxCmd = &cobra.Command{
	Use:   "outbox",
	Short: "Inspect the domain event outbox",
}

var outboxDLQCmd = &cobra.Command{
	Use:   "dlq",
	Short: "Inspect and requeue dead-lettered events",
}

var outboxDLQListCmd = &cobra.Command{
	Use:     "list",
	Short:   "List dead-lettered events, most recent failure first",
	Example: `  opsctl outbox dlq list --reason max_attempts --limit 20`,
	Args:    cobra.NoArgs,
	RunE:    runOutboxDLQList,
}

var outboxDLQRequeueCmd = &cobra.Command{
	Use:   "requeue <event-id>",
	Short: "Hand a dead-lettered event back to the publisher",
	Long: `Deletes the DLQ entry and resets the outbox row so the publisher retries it
with a full attempt budget. The row is recreated from the DLQ copy when
retention already removed it.`,
	Args: cobra.ExactArgs(1),
	RunE: runOutboxDLQRequeue,
}

func init() {
	rootCmd.AddCommand(outboxCmd)
	outboxCmd.AddCommand(outboxDLQCmd)
	outboxDLQCmd.AddCommand(outboxDLQListCmd, outboxDLQRequeueCmd)

	outboxDLQListCmd.Flags().String("reason", "", "filter by error reason (max_attempts, non_retryable)")
	outboxDLQListCmd.Flags().Int("limit", 50, "maximum entries to show")
}

func runOutboxDLQList(cmd *cobra.Command, _ []string) error {
	reasonRaw, _ := cmd.Flags().GetString("reason")
	limit, _ := cmd.Flags().GetInt("limit")

	filter, err := dlqFilter(reasonRaw, limit)
	if err != nil {
		return err
	}

	rt, closeFn, err := bootstrap(cmd.Context())
	if err != nil {
		return err
	}
	defer closeFn()

	rows, err := outbox.NewDLQRepository(rt.db.DB()).List(cmd.Context(), filter)
	if err != nil {
		return fmt.Errorf("list dlq: %w", err)
	}
	return writeDLQ(cmd.OutOrStdout(), rows)
}

func runOutboxDLQRequeue(cmd *cobra.Command, args []string) error {
	eventID, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid event id %q", args[0])
	}

	rt, closeFn, err := bootstrap(cmd.Context())
	if err != nil {
		return err
	}
	defer closeFn()

	if err := requeueEvent(cmd.Context(), outbox.NewDLQRepository(rt.db.DB()), eventID); err != nil {
		return err
	}
	ctx := rt.logg.WithField(cmd.Context(), "event_id", eventID.String())
	rt.logg.Info(ctx, "dlq event requeued")
	fmt.Fprintf(cmd.OutOrStdout(), "event %s requeued\n", eventID)
	return nil
}

type dlqRequeuer interface {
	Requeue(ctx context.Context, eventID uuid.UUID) error
}

func requeueEvent(ctx context.Context, repo dlqRequeuer, eventID uuid.UUID) error {
	err := repo.Requeue(ctx, eventID)
	if errors.Is(err, outbox.ErrDLQEntryNotFound) {
		return fmt.Errorf("event %s is not in the dlq", eventID)
	}
	if err != nil {
		return fmt.Errorf("requeue %s: %w", eventID, err)
	}
	return nil
}

func dlqFilter(reason string, limit int) (outbox.DLQFilter, error) {
	filter := outbox.DLQFilter{Limit: limit}
	if r := strings.TrimSpace(reason); r != "" {
		parsed, err := enums.ParseOutboxDLQErrorReason(r)
		if err != nil {
			return filter, err
		}
		filter.Reason = &parsed
	}
	return filter, nil
}

func writeDLQ(w io.Writer, rows []models.OutboxDLQ) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "dlq is empty")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "EVENT\tTYPE\tAGGREGATE\tREASON\tATTEMPTS\tFAILED AT\tERROR")
	for _, row := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s:%s\t%s\t%d\t%s\t%s\n",
			row.EventID,
			row.EventType,
			row.AggregateType,
			row.AggregateID,
			row.ErrorReason,
			row.AttemptCount,
			row.FailedAt.UTC().Format("2006-01-02 15:04:05"),
			valueOrDash(row.ErrorMessage),
		)
	}
	return tw.Flush()
}
