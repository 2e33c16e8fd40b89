package routes

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/api/controllers"
	"github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/coupons"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	pkgAuth "github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/auth/session"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubSessionChecker struct{}

func (stubSessionChecker) HasSession(ctx context.Context, accessID string) (bool, error) {
	return true, nil
}

type stubOrdersService struct {
	paid      int
	delivered int
	listed    orders.ListParams
}

func (s *stubOrdersService) CreateCashOrder(ctx context.Context, userID, cartID uuid.UUID, address types.ShippingAddress) (*models.Order, error) {
	return &models.Order{ID: uuid.New(), UserID: userID, CartID: &cartID, ShippingAddress: address, PaymentMethod: enums.PaymentMethodCash}, nil
}

func (s *stubOrdersService) CreateCardOrder(ctx context.Context, input orders.CardOrderInput) (*models.Order, bool, error) {
	return &models.Order{ID: uuid.New()}, true, nil
}

func (s *stubOrdersService) MarkPaid(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	s.paid++
	return &models.Order{ID: orderID, IsPaid: true}, nil
}

func (s *stubOrdersService) MarkDelivered(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	s.delivered++
	return &models.Order{ID: orderID, IsDelivered: true}, nil
}

func (s *stubOrdersService) List(ctx context.Context, params orders.ListParams) (*orders.ListResult, error) {
	s.listed = params
	return &orders.ListResult{}, nil
}

func (s *stubOrdersService) Get(ctx context.Context, orderID, userID uuid.UUID, role enums.UserRole) (*models.Order, error) {
	return &models.Order{ID: orderID, UserID: userID}, nil
}

type stubCouponService struct{}

func (stubCouponService) FindActive(ctx context.Context, name string, now time.Time) (*models.Coupon, error) {
	return nil, nil
}

func (stubCouponService) Create(ctx context.Context, input coupons.CouponInput) (*models.Coupon, error) {
	return &models.Coupon{ID: uuid.New(), Name: input.Name, ExpiresAt: input.ExpiresAt, Discount: input.Discount}, nil
}

func (stubCouponService) Get(ctx context.Context, id uuid.UUID) (*models.Coupon, error) {
	return &models.Coupon{ID: id}, nil
}

func (stubCouponService) List(ctx context.Context) ([]models.Coupon, error) {
	return []models.Coupon{{ID: uuid.New(), Name: "SPRING", Discount: decimal.NewFromInt(10)}}, nil
}

func (stubCouponService) Update(ctx context.Context, id uuid.UUID, input coupons.CouponInput) (*models.Coupon, error) {
	return &models.Coupon{ID: id}, nil
}

func (stubCouponService) Delete(ctx context.Context, id uuid.UUID) error {
	return nil
}

type stubCheckoutService struct {
	calls int
}

func (s *stubCheckoutService) CreateSession(ctx context.Context, input checkout.CreateSessionInput) (*checkout.Session, error) {
	s.calls++
	return &checkout.Session{ID: "cs_test", URL: "https://checkout.stripe.test/cs_test", AmountTotal: 1000, Currency: "egp"}, nil
}

type testRouter struct {
	handler  http.Handler
	orders   *stubOrdersService
	checkout *stubCheckoutService
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0", PublicBaseURL: "http://localhost:8080"},
		JWT: config.JWTConfig{
			Secret:                 "secret",
			Issuer:                 "issuer",
			ExpirationMinutes:      60,
			RefreshTokenTTLMinutes: 120,
		},
		Stripe: config.StripeConfig{SuccessPath: "/api/v1/orders", CancelPath: "/api/v1/cart"},
	}
}

func newTestRouter(cfg *config.Config) testRouter {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	ordersSvc := &stubOrdersService{}
	checkoutSvc := &stubCheckoutService{}
	handler := NewRouter(
		cfg,
		logg,
		map[string]controllers.Pinger{"db": stubPinger{}},
		nil,
		stubSessionChecker{},
		nil,
		nil,
		nil,
		nil,
		stubCouponService{},
		ordersSvc,
		checkoutSvc,
		nil,
		nil,
		nil,
		nil,
		nil,
	)
	return testRouter{handler: handler, orders: ordersSvc, checkout: checkoutSvc}
}

func buildToken(t *testing.T, cfg *config.Config, role enums.UserRole) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID: uuid.New(),
		Role:   role,
		JTI:    session.NewAccessID(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func serve(router http.Handler, req *http.Request) *httptest.ResponseRecorder {
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestHealthAndMetricsArePublic(t *testing.T) {
	router := newTestRouter(testConfig())

	for _, path := range []string{"/health/live", "/health/ready", "/metrics", "/api/public/ping"} {
		resp := serve(router.handler, httptest.NewRequest(http.MethodGet, path, nil))
		if resp.Code != http.StatusOK {
			t.Fatalf("%s: expected 200 got %d", path, resp.Code)
		}
	}
}

func TestPrivateGroupRejectsMissingJWT(t *testing.T) {
	router := newTestRouter(testConfig())

	for _, path := range []string{"/api/v1/cart", "/api/v1/orders", "/api/v1/wishlist", "/api/v1/addresses", "/api/v1/ping"} {
		resp := serve(router.handler, httptest.NewRequest(http.MethodGet, path, nil))
		if resp.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401 without token got %d", path, resp.Code)
		}
	}
}

func TestOrderListPassesCallerRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleManager))
	resp := serve(router.handler, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", resp.Code, resp.Body.String())
	}
	if router.orders.listed.Role != enums.UserRoleManager {
		t.Fatalf("expected manager role forwarded, got %q", router.orders.listed.Role)
	}
}

func TestOrderTransitionsRequireStaff(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	orderID := uuid.NewString()

	for _, action := range []string{"pay", "deliver"} {
		req := httptest.NewRequest(http.MethodPut, "/api/v1/orders/"+orderID+"/"+action, nil)
		req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleUser))
		if resp := serve(router.handler, req); resp.Code != http.StatusForbidden {
			t.Fatalf("%s: expected 403 for shopper got %d", action, resp.Code)
		}

		req = httptest.NewRequest(http.MethodPut, "/api/v1/orders/"+orderID+"/"+action, nil)
		req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleAdmin))
		if resp := serve(router.handler, req); resp.Code != http.StatusOK {
			t.Fatalf("%s: expected 200 for admin got %d (%s)", action, resp.Code, resp.Body.String())
		}
	}
	if router.orders.paid != 1 || router.orders.delivered != 1 {
		t.Fatalf("unexpected transition calls paid=%d delivered=%d", router.orders.paid, router.orders.delivered)
	}
}

func TestCheckoutSessionRouteWinsOverOrderDetail(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/checkout-session/"+uuid.NewString(), nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleUser))
	resp := serve(router.handler, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", resp.Code, resp.Body.String())
	}
	if router.checkout.calls != 1 {
		t.Fatalf("expected checkout handler, calls=%d", router.checkout.calls)
	}
}

func TestCashOrderRoute(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	body := []byte(`{"shipping_address":{"details":"12 Elm St","city":"Cairo","phone":"0100"}}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/"+uuid.NewString(), bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleUser))
	resp := serve(router.handler, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d (%s)", resp.Code, resp.Body.String())
	}
}

func TestCouponsRequireStaff(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/coupons", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleUser))
	if resp := serve(router.handler, req); resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for shopper got %d", resp.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/coupons", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleManager))
	if resp := serve(router.handler, req); resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for manager got %d", resp.Code)
	}
}

func TestWebhookUnavailableWithoutStripe(t *testing.T) {
	router := newTestRouter(testConfig())

	req := httptest.NewRequest(http.MethodPost, "/webhook-checkout", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Stripe-Signature", "t=1,v1=abc")
	resp := serve(router.handler, req)
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 without stripe wiring got %d", resp.Code)
	}
}

func TestAddressRoutesAreMounted(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	token := buildToken(t, cfg, enums.UserRoleUser)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/v1/addresses"},
		{http.MethodDelete, "/api/v1/addresses/" + uuid.NewString()},
	} {
		req := httptest.NewRequest(tc.method, tc.path, nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp := serve(router.handler, req)
		if resp.Code != http.StatusInternalServerError {
			t.Fatalf("%s %s: expected 500 without address service got %d", tc.method, tc.path, resp.Code)
		}
	}
}

func TestUnknownRouteIs404(t *testing.T) {
	router := newTestRouter(testConfig())
	resp := serve(router.handler, httptest.NewRequest(http.MethodGet, "/api/v2/nothing", nil))
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}
