package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	sq "github.com/square/square-go-sdk"
	sqclient "github.com/square/square-go-sdk/client"
	sqoption "github.com/square/square-go-sdk/option"

	"github.com/sellaro-dev/sellaro-backend/pkg/config"
	pkgerrors "github.com/sellaro-dev/sellaro-backend/pkg/errors"
	"github.com/sellaro-dev/sellaro-backend/pkg/logger"
)

const (
	sandboxEnv    = "sandbox"
	productionEnv = "production"
)

var (
	errAccessTokenRequired = errors.New("square access token is required")
	errLocationRequired    = errors.New("square location id is required")
	errInvalidSquareEnv    = fmt.Errorf("square environment must be %q or %q", sandboxEnv, productionEnv)
	errLoggerRequired      = errors.New("square logger is required")
)

var baseURLs = map[string]string{
	sandboxEnv:    "https://connect.squareupsandbox.com",
	productionEnv: "https://connect.squareup.com",
}

// SquareGateway implements Gateway against the Square Payments API with
// centralized auth, logging, idempotency, and error mapping.
type SquareGateway struct {
	sdk         *sqclient.Client
	environment string
	locationID  string
	logger      *logger.Logger
}

// NewSquareGateway initializes the Square wrapper and validates the credentials.
func NewSquareGateway(ctx context.Context, cfg config.SquareConfig, logg *logger.Logger) (*SquareGateway, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	env, err := normalizeEnv(cfg.Environment())
	if err != nil {
		return nil, err
	}

	accessToken := strings.TrimSpace(cfg.AccessToken)
	if accessToken == "" {
		return nil, errAccessTokenRequired
	}
	locationID := strings.TrimSpace(cfg.LocationID)
	if locationID == "" {
		return nil, errLocationRequired
	}

	sdk := sqclient.NewClient(
		sqoption.WithBaseURL(baseURLs[env]),
		sqoption.WithToken(accessToken),
	)

	g := &SquareGateway{
		sdk:         sdk,
		environment: env,
		locationID:  locationID,
		logger:      logg,
	}

	logg.Info(ctx, "square gateway initialized")
	return g, nil
}

// Charge creates a Square payment for the sub-order amount.
func (g *SquareGateway) Charge(ctx context.Context, params ChargeParams) (*ChargeResult, error) {
	if params.AmountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "charge amount must be positive")
	}
	if strings.TrimSpace(params.SourceID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment source required")
	}

	reference := params.SubOrderID.String()
	req := &sq.CreatePaymentRequest{
		IdempotencyKey: newIdempotencyKey("payment.create"),
		LocationID:     ptrString(g.locationID),
		SourceID:       params.SourceID,
		AmountMoney:    moneyPtr(int64(params.AmountCents), "USD"),
		ReferenceID:    ptrString(reference),
	}

	g.log(ctx, "request", "create_payment", map[string]any{
		"sub_order_id": reference,
		"amount":       params.AmountCents,
	})

	resp, err := g.sdk.Payments.Create(ctx, req)
	if err != nil {
		g.log(ctx, "error", "create_payment", map[string]any{"error": err.Error()})
		return nil, pkgerrors.Wrap(pkgerrors.CodePaymentFailed, err, "create payment")
	}

	payment := resp.GetPayment()
	paymentID := stringValue(payment.GetID())
	g.log(ctx, "response", "create_payment", map[string]any{"payment_id": paymentID})
	return &ChargeResult{PaymentRef: paymentID}, nil
}

// Refund returns a previously captured payment.
func (g *SquareGateway) Refund(ctx context.Context, params RefundParams) error {
	if strings.TrimSpace(params.PaymentRef) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment reference required")
	}
	if params.AmountCents <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "refund amount must be positive")
	}

	req := &sq.RefundPaymentRequest{
		IdempotencyKey: newIdempotencyKey("payment.refund"),
		PaymentID:      ptrString(params.PaymentRef),
		AmountMoney:    moneyPtr(int64(params.AmountCents), "USD"),
	}

	g.log(ctx, "request", "refund_payment", map[string]any{
		"sub_order_id": params.SubOrderID.String(),
		"payment_id":   params.PaymentRef,
		"amount":       params.AmountCents,
	})

	if _, err := g.sdk.Refunds.RefundPayment(ctx, req); err != nil {
		g.log(ctx, "error", "refund_payment", map[string]any{"error": err.Error()})
		return pkgerrors.Wrap(pkgerrors.CodePaymentFailed, err, "refund payment")
	}
	return nil
}

// Environment reports the normalized Square environment.
func (g *SquareGateway) Environment() string {
	if g == nil {
		return ""
	}
	return g.environment
}

func (g *SquareGateway) log(ctx context.Context, phase, op string, fields map[string]any) {
	if g == nil || g.logger == nil {
		return
	}
	logFields := map[string]any{
		"operation": op,
		"phase":     phase,
	}
	for k, v := range fields {
		logFields[k] = redact(k, v)
	}
	ctx = g.logger.WithFields(ctx, logFields)
	switch phase {
	case "error":
		g.logger.Error(ctx, fmt.Sprintf("square %s", op), errors.New(fmt.Sprint(fields["error"])))
	default:
		g.logger.Info(ctx, fmt.Sprintf("square %s", phase))
	}
}

func redact(key string, value any) any {
	lower := strings.ToLower(key)
	for _, sensitive := range []string{"card", "nonce", "token", "cvv", "cvc", "secret"} {
		if strings.Contains(lower, sensitive) {
			return "[REDACTED]"
		}
	}
	return value
}

func normalizeEnv(value string) (string, error) {
	env := strings.TrimSpace(strings.ToLower(value))
	switch env {
	case sandboxEnv, productionEnv:
		return env, nil
	default:
		return "", errInvalidSquareEnv
	}
}

func newIdempotencyKey(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, uuid.NewString())
}

func ptrString(value string) *string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return &value
}

func int64Ptr(value int64) *int64 {
	return &value
}

func currencyPtr(code string) *sq.Currency {
	trimmed := strings.ToUpper(strings.TrimSpace(code))
	if trimmed == "" {
		trimmed = "USD"
	}
	c := sq.Currency(trimmed)
	return &c
}

func moneyPtr(amount int64, currency string) *sq.Money {
	if amount == 0 {
		return nil
	}
	return &sq.Money{
		Amount:   int64Ptr(amount),
		Currency: currencyPtr(currency),
	}
}

func stringValue(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
