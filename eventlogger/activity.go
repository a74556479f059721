package eventlogger

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
)

// LedgerActivityTypes are the event types that make up a ledger's feed.
var LedgerActivityTypes = []string{
	TypeLedgerCreated,
	TypeMemberAdded,
	TypeExpenseAdded,
	TypeExpenseDeleted,
	TypePaymentDeclared,
}

// Reader reads stored events back.
type Reader interface {
	GetByType(ctx context.Context, eventType string) ([]Event, error)
}

// LedgerReader is a Reader that can select a ledger's events itself.
type LedgerReader interface {
	Reader
	GetByLedger(ctx context.Context, ledgerID string, types ...string) ([]Event, error)
}

// LedgerActivity returns the events of the given types whose data carries
// ledgerID, oldest first. Readers without GetByLedger are scanned type by type.
func LedgerActivity(ctx context.Context, r Reader, ledgerID string, types ...string) ([]Event, error) {
	if lr, ok := r.(LedgerReader); ok {
		activity, err := lr.GetByLedger(ctx, ledgerID, types...)
		if err != nil {
			return nil, fmt.Errorf("loading ledger %s events: %w", ledgerID, err)
		}
		if activity == nil {
			activity = make([]Event, 0)
		}
		return activity, nil
	}

	activity := make([]Event, 0)
	for _, eventType := range types {
		events, err := r.GetByType(ctx, eventType)
		if err != nil {
			return nil, fmt.Errorf("loading %s events: %w", eventType, err)
		}
		for _, e := range events {
			if ledgerOf(e.Data) == ledgerID {
				activity = append(activity, e)
			}
		}
	}

	slices.SortStableFunc(activity, func(a, b Event) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return activity, nil
}

func ledgerOf(data any) string {
	raw, ok := data.(json.RawMessage)
	if !ok {
		b, err := json.Marshal(data)
		if err != nil {
			return ""
		}
		raw = b
	}

	var ref struct {
		LedgerID string `json:"ledger_id"`
	}
	if err := json.Unmarshal(raw, &ref); err != nil {
		return ""
	}
	return ref.LedgerID
}
