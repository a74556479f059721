package payment

import "time"

type DeclaredEvent struct {
	PaymentID   string    `json:"payment_id"`
	LedgerID    string    `json:"ledger_id,omitempty"`
	Payer       string    `json:"payer"`
	Payee       string    `json:"payee"`
	AmountCents int64     `json:"amount_cents"`
	Note        string    `json:"note,omitempty"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// StatusChangedEvent records a payment leaving the pending state.
type StatusChangedEvent struct {
	PaymentID string `json:"payment_id"`
	Status    string `json:"status"`
	ChangedBy string `json:"changed_by"`
}

func (p Payment) DeclaredEvent() DeclaredEvent {
	evt := DeclaredEvent{
		PaymentID:   p.ID.String(),
		Payer:       p.Payer,
		Payee:       p.Payee,
		AmountCents: toCents(p.Amount),
		Note:        p.Note,
		CreatedBy:   p.CreatedBy,
		CreatedAt:   p.CreatedAt,
	}
	if p.LedgerID.Valid {
		evt.LedgerID = p.LedgerID.UUID.String()
	}
	return evt
}
