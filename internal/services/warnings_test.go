package services

import (
	"context"
	"sync"
	"testing"

	"github.com/epeers/reconcile/internal/models"
)

func TestWarningCollector_BasicUsage(t *testing.T) {
	ctx, wc := NewWarningContext(context.Background())

	AddWarning(ctx, models.Warning{
		Code:    models.WarnUnknownCustodianPrefix,
		Message: "test warning 1",
	})
	AddWarning(ctx, models.Warning{
		Code:    models.WarnShortPosition,
		Message: "test warning 2",
	})

	warnings := wc.GetWarnings()
	if len(warnings) != 2 {
		t.Fatalf("expected 2 warnings, got %d", len(warnings))
	}

	if warnings[0].Code != models.WarnUnknownCustodianPrefix {
		t.Errorf("expected code %s, got %s", models.WarnUnknownCustodianPrefix, warnings[0].Code)
	}
	if warnings[1].Code != models.WarnShortPosition {
		t.Errorf("expected code %s, got %s", models.WarnShortPosition, warnings[1].Code)
	}
}

func TestWarningCollector_NoCollectorNoPanic(t *testing.T) {
	// AddWarning with a plain context should not panic
	ctx := context.Background()
	AddWarning(ctx, models.Warning{
		Code:    models.WarnUnknownCustodianPrefix,
		Message: "this should be silently dropped",
	})
}

func TestWarningCollector_EmptyByDefault(t *testing.T) {
	_, wc := NewWarningContext(context.Background())
	warnings := wc.GetWarnings()
	if len(warnings) != 0 {
		t.Errorf("expected 0 warnings, got %d", len(warnings))
	}
}

func TestWarningCollector_ConcurrentSafe(t *testing.T) {
	ctx, wc := NewWarningContext(context.Background())

	var wg sync.WaitGroup
	n := 100
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			AddWarning(ctx, models.Warning{
				Code:    models.WarnShortPosition,
				Message: "concurrent warning",
			})
		}()
	}
	wg.Wait()

	warnings := wc.GetWarnings()
	if len(warnings) != n {
		t.Errorf("expected %d warnings, got %d", n, len(warnings))
	}
}

func TestWarningCollector_Messages(t *testing.T) {
	ctx, wc := NewWarningContext(context.Background())

	AddWarning(ctx, models.Warning{Code: models.WarnZeroValueAccount, Message: "first"})
	AddWarning(ctx, models.Warning{Code: models.WarnDuplicateReportedKey, Message: "second"})

	msgs := wc.Messages()
	if len(msgs) != 2 || msgs[0] != "first" || msgs[1] != "second" {
		t.Errorf("unexpected messages %v", msgs)
	}
}
