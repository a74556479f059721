package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/billbatista/zensplit/balance"
	"github.com/billbatista/zensplit/eventlogger"
	"github.com/billbatista/zensplit/ledger"
	"github.com/billbatista/zensplit/otp"
	"github.com/billbatista/zensplit/payment"
	"github.com/billbatista/zensplit/session"
	"github.com/billbatista/zensplit/user"
	chimiddleware "github.com/go-chi/chi/middleware"
	"github.com/google/uuid"
)

type Users interface {
	Register(ctx context.Context, reg user.Registration) (*user.User, error)
	GetByEmail(ctx context.Context, email string) (*user.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
	VerifyPassword(hashedPassword, password string) error
	UpdateProfile(ctx context.Context, userID uuid.UUID, name, upi string) error
}

type Sessions interface {
	Create(ctx context.Context, userID uuid.UUID) (*session.Session, error)
	GetByToken(ctx context.Context, token string) (*session.Session, error)
	Delete(ctx context.Context, token string) error
	DeleteByUserID(ctx context.Context, userID uuid.UUID) error
}

type OTP interface {
	Issue(email string) (string, error)
	Verify(email, code string) error
}

type Ledgers interface {
	CreateLedger(ctx context.Context, name, currency string, createdBy uuid.UUID) (ledger.Ledger, error)
	Ledgers(ctx context.Context, userID uuid.UUID) ([]ledger.Ledger, error)
	AddMember(ctx context.Context, ledgerID uuid.UUID, requester, email string) error
	Members(ctx context.Context, ledgerID uuid.UUID, viewer string) ([]string, error)
	Expenses(ctx context.Context, ledgerID uuid.UUID, viewer string) ([]ledger.Expense, error)
	AddExpense(ctx context.Context, in ledger.ExpenseInput) (*ledger.Expense, error)
	DeleteExpense(ctx context.Context, ledgerID, expenseID, requester uuid.UUID) error
	Balances(ctx context.Context, ledgerID uuid.UUID, viewer string) (balance.Result, error)
}

type Payments interface {
	Declare(ctx context.Context, in payment.DeclareInput) (*payment.Payment, error)
	List(ctx context.Context, email string, ledgerID uuid.NullUUID) ([]payment.Payment, error)
	Verify(ctx context.Context, id uuid.UUID, by string) (*payment.Payment, error)
	Cancel(ctx context.Context, id uuid.UUID, by string) (*payment.Payment, error)
	Delete(ctx context.Context, id uuid.UUID, by string) error
}

// Pinger reports whether the database is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type EventStats interface {
	Stats() eventlogger.Stats
}

type Dependencies struct {
	Logger        *slog.Logger
	DB            Pinger
	Users         Users
	Sessions      Sessions
	OTP           OTP
	OTPSender     otp.Sender
	Ledgers       Ledgers
	Payments      Payments
	Events        eventlogger.Publisher
	History       eventlogger.Reader
	EventStats    EventStats
	SecureCookies bool
}

type Handlers struct {
	logger        *slog.Logger
	db            Pinger
	users         Users
	sessions      Sessions
	otp           OTP
	sender        otp.Sender
	ledgers       Ledgers
	payments      Payments
	events        eventlogger.Publisher
	history       eventlogger.Reader
	eventStats    EventStats
	secureCookies bool
}

func NewHandlers(deps Dependencies) *Handlers {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	sender := deps.OTPSender
	if sender == nil {
		sender = otp.LogSender{Logger: logger}
	}
	return &Handlers{
		logger:        logger,
		db:            deps.DB,
		users:         deps.Users,
		sessions:      deps.Sessions,
		otp:           deps.OTP,
		sender:        sender,
		ledgers:       deps.Ledgers,
		payments:      deps.Payments,
		events:        deps.Events,
		history:       deps.History,
		eventStats:    deps.EventStats,
		secureCookies: deps.SecureCookies,
	}
}

func (h *Handlers) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status, code := "ok", http.StatusOK
	if h.db != nil {
		if err := h.db.PingContext(ctx); err != nil {
			h.logger.ErrorContext(ctx, "health check failed", "error", err)
			status, code = "degraded", http.StatusServiceUnavailable
		}
	}

	body := map[string]any{"status": status}
	if h.eventStats != nil {
		body["events"] = h.eventStats.Stats()
	}
	respondJSON(w, code, body)
}

// publish hands an event to the event log, tagged with the request ID.
func (h *Handlers) publish(r *http.Request, eventType string, data any) {
	if h.events == nil {
		return
	}
	h.events.Log(eventlogger.NewEvent(
		eventlogger.WithType(eventType),
		eventlogger.WithData(data),
		eventlogger.WithMetadata(map[string]string{
			"request_id": chimiddleware.GetReqID(r.Context()),
		}),
	))
}
