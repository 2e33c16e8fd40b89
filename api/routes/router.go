package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/storefront-backend/api/controllers"
	addresscontrollers "github.com/angelmondragon/storefront-backend/api/controllers/addresses"
	cartcontrollers "github.com/angelmondragon/storefront-backend/api/controllers/cart"
	couponcontrollers "github.com/angelmondragon/storefront-backend/api/controllers/coupons"
	ordercontrollers "github.com/angelmondragon/storefront-backend/api/controllers/orders"
	webhookcontrollers "github.com/angelmondragon/storefront-backend/api/controllers/webhooks"
	wishlistcontrollers "github.com/angelmondragon/storefront-backend/api/controllers/wishlist"
	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/internal/addresses"
	"github.com/angelmondragon/storefront-backend/internal/auth"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	checkoutsvc "github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/coupons"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	stripewebhook "github.com/angelmondragon/storefront-backend/internal/webhooks/stripe"
	"github.com/angelmondragon/storefront-backend/internal/wishlist"
	"github.com/angelmondragon/storefront-backend/pkg/auth/session"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/idempotency"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
	"github.com/angelmondragon/storefront-backend/pkg/stripe"
)

type requestStore interface {
	middleware.ReplayStore
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	readiness map[string]controllers.Pinger,
	redisClient *redis.Client,
	sessions session.AccessSessionChecker,
	httpMetrics *metrics.HTTPMetrics,
	commerceMetrics *metrics.CommerceMetrics,
	authService auth.Service,
	cartService cart.Service,
	couponService coupons.Service,
	orderService orders.Service,
	checkoutService checkoutsvc.Service,
	wishlistService wishlist.Service,
	addressService addresses.Service,
	stripeClient *stripe.Client,
	stripeWebhookService *stripewebhook.Service,
	stripeEvents *idempotency.Ledger,
) http.Handler {
	var store requestStore
	if redisClient != nil {
		store = redisClient
	}

	r := chi.NewRouter()
	r.Use(
		middleware.RequestID(logg),
		middleware.Recoverer(logg),
		middleware.Logging(logg),
		middleware.Metrics(httpMetrics),
		middleware.CORS(cfg.App.PublicBaseURL),
	)

	loginPolicy := middleware.AuthThrottle{
		Name:     "login",
		Window:   cfg.AuthRateLimit.LoginWindow,
		PerIP:    cfg.AuthRateLimit.LoginIPLimit,
		PerEmail: cfg.AuthRateLimit.LoginEmailLimit,
	}
	registerPolicy := middleware.AuthThrottle{
		Name:     "register",
		Window:   cfg.AuthRateLimit.RegisterWindow,
		PerIP:    cfg.AuthRateLimit.RegisterIPLimit,
		PerEmail: cfg.AuthRateLimit.RegisterEmailLimit,
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/api/public/ping", controllers.PublicPing())

	webhook := webhookcontrollers.StripeWebhook(nil, nil, nil, commerceMetrics, logg)
	if stripeClient != nil && stripeWebhookService != nil && stripeEvents != nil {
		webhook = webhookcontrollers.StripeWebhook(stripeWebhookService, stripeClient, stripeEvents, commerceMetrics, logg)
	}
	r.Post("/webhook-checkout", webhook)

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(middleware.Idempotency(store, logg))
		r.With(middleware.AuthRateLimit(loginPolicy, store, logg)).Post("/login", controllers.AuthLogin(authService, logg))
		r.With(middleware.AuthRateLimit(registerPolicy, store, logg)).Post("/register", controllers.AuthRegister(authService, logg))
		r.Post("/refresh", controllers.AuthRefresh(authService, cfg.JWT, logg))
		r.Post("/logout", controllers.AuthLogout(authService, cfg.JWT, logg))
	})

	redirects := ordercontrollers.NewRedirects(cfg.App.PublicBaseURL, cfg.Stripe.SuccessPath, cfg.Stripe.CancelPath)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessions, logg))
		r.Use(middleware.Idempotency(store, logg))

		r.Get("/ping", controllers.PrivatePing())

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartcontrollers.CartFetch(cartService, logg))
			r.Post("/", cartcontrollers.CartAddItem(cartService, logg))
			r.Delete("/", cartcontrollers.CartClear(cartService, logg))
			r.Put("/applyCoupon", cartcontrollers.CartApplyCoupon(cartService, logg))
			r.Put("/{itemId}", cartcontrollers.CartUpdateItem(cartService, logg))
			r.Delete("/{itemId}", cartcontrollers.CartRemoveItem(cartService, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", ordercontrollers.OrderList(orderService, logg))
			r.Get("/checkout-session/{cartId}", ordercontrollers.CheckoutSession(checkoutService, redirects, commerceMetrics, logg))
			r.Post("/{cartId}", ordercontrollers.OrderCreateCash(orderService, logg))
			r.Get("/{orderId}", ordercontrollers.OrderDetail(orderService, logg))
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireStaff(logg))
				r.Put("/{orderId}/pay", ordercontrollers.OrderMarkPaid(orderService, logg))
				r.Put("/{orderId}/deliver", ordercontrollers.OrderMarkDelivered(orderService, logg))
			})
		})

		r.Route("/coupons", func(r chi.Router) {
			r.Use(middleware.RequireStaff(logg))
			r.Get("/", couponcontrollers.CouponList(couponService, logg))
			r.Post("/", couponcontrollers.CouponCreate(couponService, logg))
			r.Get("/{couponId}", couponcontrollers.CouponGet(couponService, logg))
			r.Put("/{couponId}", couponcontrollers.CouponUpdate(couponService, logg))
			r.Delete("/{couponId}", couponcontrollers.CouponDelete(couponService, logg))
		})

		r.Route("/wishlist", func(r chi.Router) {
			r.Get("/", wishlistcontrollers.WishlistFetch(wishlistService, logg))
			r.Post("/", wishlistcontrollers.WishlistAdd(wishlistService, logg))
			r.Delete("/{productId}", wishlistcontrollers.WishlistRemove(wishlistService, logg))
		})

		r.Route("/addresses", func(r chi.Router) {
			r.Get("/", addresscontrollers.AddressList(addressService, logg))
			r.Post("/", addresscontrollers.AddressAdd(addressService, logg))
			r.Delete("/{addressId}", addresscontrollers.AddressRemove(addressService, logg))
		})
	})

	return r
}
