package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frahmantamala/document-management/internal/auth"
	"github.com/frahmantamala/document-management/internal/core/events"
	"github.com/frahmantamala/document-management/internal/document"
	"github.com/spf13/cobra"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start background workers",
	Long:  `Start and manage background workers, e.g. the periodic review scanner.`,
}

// Review worker command
var reviewWorkerCmd = &cobra.Command{
	Use:   "review",
	Short: "Start the periodic review scanner",
	Long:  `Scan for approved documents whose next review date has passed and move them into under_review`,
	Run: func(cmd *cobra.Command, args []string) {
		startReviewWorker()
	},
}

var (
	scanInterval time.Duration
	batchSize    int
)

// reviewSystemActor drives scheduled transitions. It is an admin-tier
// principal so the trigger_review gate passes without per-document grants.
var reviewSystemActor = &auth.User{
	ID:    0,
	Email: "system@document-management",
	Role:  auth.RoleAdmin,
}

func startReviewWorker() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}
	lg := deps.Logger

	interval := deps.Config.Review.ScanInterval
	if scanInterval > 0 {
		interval = scanInterval
	}
	limit := deps.Config.Review.BatchSize
	if batchSize > 0 {
		limit = batchSize
	}

	documentService := deps.DocumentService
	eventBus := deps.EventBus
	eventBus.Subscribe(events.EventTypeReviewDue, func(ctx context.Context, event events.Event) error {
		lg.Info("document due for review",
			"event_id", event.EventID(),
			"payload", event.Payload())
		return nil
	})

	lg.Info("review worker started", "scan_interval", interval, "batch_size", limit)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	scanOnce(ctx, documentService, eventBus, limit, lg)

	for {
		select {
		case <-ticker.C:
			scanOnce(ctx, documentService, eventBus, limit, lg)
		case sig := <-sigChan:
			lg.Info("received signal, shutting down review worker", "signal", sig)
			cancel()
			eventBus.Drain()
			deps.Cache.Close()
			deps.AuditWriter.Close()
			if err := deps.DB.Close(); err != nil {
				lg.Error("database close error", "error", err)
			}
			lg.Info("review worker shutdown complete")
			return
		}
	}
}

// scanOnce moves every due document into under_review. A document that a
// concurrent actor already transitioned is skipped quietly.
func scanOnce(ctx context.Context, svc *document.Service, bus *events.EventBus, limit int, lg *slog.Logger) {
	due, err := svc.ListDueForReview(ctx, time.Now(), limit)
	if err != nil {
		lg.Error("review scan failed", "error", err)
		return
	}
	if len(due) == 0 {
		return
	}

	lg.Info("review scan found due documents", "count", len(due))

	for _, doc := range due {
		_, err := svc.Transition(ctx, reviewSystemActor, doc.ID, document.TransitionDTO{
			Action: document.ActionTriggerReview,
		})
		if err != nil {
			lg.Warn("failed to trigger review", "document_id", doc.ID, "error", err)
			continue
		}
		if doc.NextReviewDate != nil {
			if err := bus.Publish(ctx, events.NewReviewDueEvent(doc.ID, doc.OwnerID, *doc.NextReviewDate)); err != nil {
				lg.Warn("failed to publish review event", "document_id", doc.ID, "error", err)
			}
		}
	}
}

func init() {
	reviewWorkerCmd.Flags().DurationVar(&scanInterval, "scan-interval", 0, "Scan interval (overrides config)")
	reviewWorkerCmd.Flags().IntVar(&batchSize, "batch-size", 0, "Max documents per scan (overrides config)")

	workerCmd.AddCommand(reviewWorkerCmd)

	rootCmd.AddCommand(workerCmd)
}
