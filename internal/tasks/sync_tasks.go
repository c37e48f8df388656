package tasks

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"kingsbalfx_app/internal/pricing"
)

const (
	// TaskSyncAllUsers re-applies tier limits to every profile with an
	// active subscription
	TaskSyncAllUsers = "sync_all_users"
	// TaskDeferredPaymentsReport mails ops the successful payments that
	// still have no matching profile
	TaskDeferredPaymentsReport = "deferred_payments_report"
)

// HandleSyncAllUsers runs the bulk pricing sync
func HandleSyncAllUsers(ctx context.Context, deps *Deps, args map[string]interface{}) (map[string]interface{}, error) {
	synced, err := deps.Sync.SyncAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("bulk sync failed: %w", err)
	}

	log.Info().Int("synced", synced).Msg("scheduled bulk sync completed")
	return map[string]interface{}{
		"status": "success",
		"synced": synced,
	}, nil
}

// HandleDeferredPaymentsReport lists payments whose entitlement was
// deferred because no profile matched, and emails the list to ops. The
// payments themselves are never retried automatically; an operator
// resolves each one by hand.
func HandleDeferredPaymentsReport(ctx context.Context, deps *Deps, args map[string]interface{}) (map[string]interface{}, error) {
	records, err := deps.Store.ListUnmatchedPayments(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list unmatched payments: %w", err)
	}

	if len(records) == 0 {
		return map[string]interface{}{"status": "success", "unmatched": 0}, nil
	}

	var body strings.Builder
	fmt.Fprintf(&body, "%d successful payment(s) have no matching profile:\n\n", len(records))
	for _, rec := range records {
		fmt.Fprintf(&body, "- reference=%s plan=%s amount=%s email=%s received=%s\n",
			rec.Reference, rec.Plan, pricing.FormatPrice(rec.AmountMinor/100),
			rec.CustomerEmail, rec.ReceivedAt.Format("2006-01-02 15:04"))
	}
	body.WriteString("\nEach needs manual attribution before the customer gets access.\n")

	if deps.Email != nil && deps.OpsEmail != "" {
		subject := fmt.Sprintf("Deferred payments report: %d unmatched", len(records))
		if err := deps.Email.SendEmail([]string{deps.OpsEmail}, subject, body.String()); err != nil {
			log.Error().Err(err).Msg("failed to send deferred payments report")
		}
	} else {
		log.Warn().Int("unmatched", len(records)).Msg("deferred payments found but ops email not configured")
	}

	return map[string]interface{}{
		"status":    "success",
		"unmatched": len(records),
	}, nil
}
