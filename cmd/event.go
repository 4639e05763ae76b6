package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/frahmantamala/document-management/internal/core/events"
	"github.com/frahmantamala/document-management/pkg/logger"
	"github.com/spf13/cobra"
)

var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Event bus commands",
	Long:  `Publish document lifecycle events to a local bus for subscriber debugging`,
}

var publishEventCmd = &cobra.Command{
	Use:   "publish [approved|rejected|review-due]",
	Short: "Publish a document lifecycle event",
	Long:  `Construct a document lifecycle event and run it through the bus so handler wiring can be checked without a running server`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return publishLifecycleEvent(args[0])
	},
}

var (
	eventDocumentID int64
	eventActorID    int64
	eventReason     string
)

func publishLifecycleEvent(kind string) error {
	lg := logger.L()

	var event events.Event
	switch kind {
	case "approved":
		nextReview := time.Now().AddDate(0, 0, 365)
		event = events.NewDocumentApprovedEvent(eventDocumentID, eventActorID, &nextReview)
	case "rejected":
		event = events.NewDocumentRejectedEvent(eventDocumentID, eventActorID, eventReason)
	case "review-due":
		event = events.NewReviewDueEvent(eventDocumentID, eventActorID, time.Now())
	default:
		return fmt.Errorf("unknown event kind %q, want approved, rejected or review-due", kind)
	}

	eventBus := events.NewEventBus(lg)
	eventBus.Subscribe(event.EventType(), func(ctx context.Context, ev events.Event) error {
		lg.Info("subscriber received event",
			"event_id", ev.EventID(),
			"event_type", ev.EventType(),
			"payload", ev.Payload())
		return nil
	})

	lg.Info("publishing event", "event_type", event.EventType(), "event_id", event.EventID())
	if err := eventBus.Publish(context.Background(), event); err != nil {
		return err
	}
	eventBus.Drain()
	return nil
}

func init() {
	publishEventCmd.Flags().Int64Var(&eventDocumentID, "document-id", 1, "Document the event refers to")
	publishEventCmd.Flags().Int64Var(&eventActorID, "actor-id", 0, "Acting user id")
	publishEventCmd.Flags().StringVar(&eventReason, "reason", "needs revision", "Rejection reason")

	eventCmd.AddCommand(publishEventCmd)
	rootCmd.AddCommand(eventCmd)
}
