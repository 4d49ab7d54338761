package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	checkoutsvc "github.com/sellaro-dev/sellaro-backend/internal/checkout"
	ordersvc "github.com/sellaro-dev/sellaro-backend/internal/orders"
	walletsvc "github.com/sellaro-dev/sellaro-backend/internal/wallet"
	"github.com/sellaro-dev/sellaro-backend/pkg/config"
	"github.com/sellaro-dev/sellaro-backend/pkg/db/models"
	"github.com/sellaro-dev/sellaro-backend/pkg/enums"
	"github.com/sellaro-dev/sellaro-backend/pkg/logger"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubCheckoutService struct {
	checkout func(ctx context.Context, input checkoutsvc.CheckoutInput) (*models.Order, error)
}

func (s stubCheckoutService) Checkout(ctx context.Context, input checkoutsvc.CheckoutInput) (*models.Order, error) {
	if s.checkout != nil {
		return s.checkout(ctx, input)
	}
	return &models.Order{ID: uuid.New(), BuyerID: input.BuyerID, Status: enums.OrderStatusAwaitingPayment, Currency: enums.CurrencyUSD}, nil
}

type stubOrdersService struct{}

func (stubOrdersService) GetOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	return &models.Order{ID: orderID}, nil
}

func (stubOrdersService) GetSubOrder(ctx context.Context, subOrderID uuid.UUID) (*models.SubOrder, error) {
	return &models.SubOrder{ID: subOrderID}, nil
}

func (stubOrdersService) ListBuyerOrders(ctx context.Context, buyerID uuid.UUID) ([]models.Order, error) {
	return nil, nil
}

func (stubOrdersService) ListVendorSubOrders(ctx context.Context, vendorStoreID uuid.UUID) ([]models.SubOrder, error) {
	return nil, nil
}

func (stubOrdersService) MarkPaid(ctx context.Context, input ordersvc.PayInput) (*models.SubOrder, error) {
	return &models.SubOrder{ID: input.SubOrderID, Status: enums.SubOrderStatusPaid}, nil
}

func (stubOrdersService) StartFulfillment(ctx context.Context, subOrderID uuid.UUID) (*models.SubOrder, error) {
	return &models.SubOrder{ID: subOrderID, Status: enums.SubOrderStatusFulfilling}, nil
}

func (stubOrdersService) Complete(ctx context.Context, subOrderID uuid.UUID) (*models.SubOrder, error) {
	return &models.SubOrder{ID: subOrderID, Status: enums.SubOrderStatusCompleted}, nil
}

func (stubOrdersService) Cancel(ctx context.Context, subOrderID uuid.UUID) (*models.SubOrder, error) {
	return &models.SubOrder{ID: subOrderID, Status: enums.SubOrderStatusCancelled}, nil
}

func (stubOrdersService) Refund(ctx context.Context, subOrderID uuid.UUID) (*models.SubOrder, error) {
	return &models.SubOrder{ID: subOrderID, Status: enums.SubOrderStatusRefunded}, nil
}

type stubWalletService struct{}

func (stubWalletService) Append(ctx context.Context, tx *gorm.DB, input walletsvc.AppendInput) (*models.WalletTransaction, error) {
	return nil, nil
}

func (stubWalletService) Balances(ctx context.Context, vendorStoreID uuid.UUID) (walletsvc.Balance, error) {
	return walletsvc.Balance{}, nil
}

func (stubWalletService) Statement(ctx context.Context, vendorStoreID uuid.UUID, from, to *time.Time) ([]models.WalletTransaction, error) {
	return nil, nil
}

func (stubWalletService) ListBySubOrder(ctx context.Context, subOrderID uuid.UUID) ([]models.WalletTransaction, error) {
	return nil, nil
}

type stubAdminService struct{}

func (stubAdminService) ListRecentOrders(ctx context.Context, limit int) ([]models.Order, error) {
	return nil, nil
}

func (stubAdminService) ListVendorWalletLog(ctx context.Context, vendorStoreID uuid.UUID, since *time.Time, limit int) ([]models.WalletTransaction, error) {
	return nil, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
	}
}

func newTestRouter() http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	return NewRouter(
		testConfig(),
		logg,
		stubPinger{},
		stubPinger{},
		stubCheckoutService{},
		stubOrdersService{},
		stubWalletService{},
		stubAdminService{},
	)
}

func TestHealthLiveNeedsNoIdentity(t *testing.T) {
	router := newTestRouter()
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for health check got %d", resp.Code)
	}
}

func TestBuyerGroupRejectsMissingIdentity(t *testing.T) {
	router := newTestRouter()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without buyer header got %d", resp.Code)
	}
}

func TestBuyerGroupAcceptsBuyerHeader(t *testing.T) {
	router := newTestRouter()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/", nil)
	req.Header.Set("X-Buyer-Id", uuid.NewString())
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 with buyer header got %d", resp.Code)
	}
}

func TestCheckoutRejectsMalformedBody(t *testing.T) {
	router := newTestRouter()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Buyer-Id", uuid.NewString())
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid payload got %d", resp.Code)
	}
}

func TestCheckoutCreatesOrderForBuyer(t *testing.T) {
	router := newTestRouter()
	body := `{"idempotency_key":"chk_20260828_001","lines":[{"product_id":"` + uuid.NewString() + `","qty":1}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Buyer-Id", uuid.NewString())
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 for checkout got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestVendorGroupRejectsBuyerIdentity(t *testing.T) {
	router := newTestRouter()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/vendor/wallet/balance", nil)
	req.Header.Set("X-Buyer-Id", uuid.NewString())
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for buyer on vendor route got %d", resp.Code)
	}

	vendor := httptest.NewRequest(http.MethodGet, "/api/v1/vendor/wallet/balance", nil)
	vendor.Header.Set("X-Vendor-Store-Id", uuid.NewString())
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, vendor)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for vendor balance got %d", resp.Code)
	}
}

func TestAdminGroupRequiresAdminIdentity(t *testing.T) {
	router := newTestRouter()
	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/orders", nil)
	req.Header.Set("X-Vendor-Store-Id", uuid.NewString())
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for vendor on admin route got %d", resp.Code)
	}

	admin := httptest.NewRequest(http.MethodGet, "/api/admin/v1/orders", nil)
	admin.Header.Set("X-Admin-Id", uuid.NewString())
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, admin)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin orders got %d", resp.Code)
	}
}
