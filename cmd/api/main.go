package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/storefront-backend/api/controllers"
	"github.com/angelmondragon/storefront-backend/api/routes"
	"github.com/angelmondragon/storefront-backend/internal/addresses"
	"github.com/angelmondragon/storefront-backend/internal/auth"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/coupons"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/pricing"
	"github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/internal/users"
	stripewebhook "github.com/angelmondragon/storefront-backend/internal/webhooks/stripe"
	"github.com/angelmondragon/storefront-backend/internal/wishlist"
	"github.com/angelmondragon/storefront-backend/pkg/auth/session"
	"github.com/angelmondragon/storefront-backend/pkg/bootstrap"
	"github.com/angelmondragon/storefront-backend/pkg/idempotency"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	pkgstripe "github.com/angelmondragon/storefront-backend/pkg/stripe"
)

const (
	stripeEventTTL  = 72 * time.Hour
	shutdownTimeout = 15 * time.Second
)

func main() {
	proc := bootstrap.Start("api")
	defer proc.Close()
	cfg := proc.Config
	logg := proc.Log
	ctx := context.Background()

	dbClient := proc.Database(ctx)
	redisClient := proc.Redis(ctx)

	stripeClient, err := pkgstripe.NewClient(ctx, cfg.Stripe, logg)
	proc.Must("stripe", err)

	shipping, tax, err := cfg.Checkout.Charges()
	proc.Must("checkout charges", err)
	charges := pricing.Charges{Shipping: shipping, Tax: tax}

	sessions, err := session.NewManager(redisClient, cfg.JWT)
	proc.Must("session manager", err)

	commerceMetrics := metrics.NewCommerceMetrics(prometheus.DefaultRegisterer)
	httpMetrics := metrics.NewHTTPMetrics(prometheus.DefaultRegisterer)

	conn := dbClient.DB()
	userRepo := users.NewRepository(conn)
	productRepo := products.NewRepository(conn)
	cartRepo := cart.NewRepository(conn)

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		SessionManager: sessions,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
	})
	proc.Must("auth service", err)

	couponService, err := coupons.NewService(coupons.NewRepository(conn))
	proc.Must("coupon service", err)

	cartService, err := cart.NewService(cartRepo, dbClient, productRepo, couponService)
	proc.Must("cart service", err)

	orderService, err := orders.NewService(orders.ServiceParams{
		Repository: orders.NewRepository(conn),
		Carts:      cartRepo,
		Inventory:  productRepo,
		Users:      userRepo,
		Tx:         dbClient,
		Outbox:     outbox.NewService(outbox.NewRepository(conn), logg),
		Charges:    charges,
		Metrics:    commerceMetrics,
		Logger:     logg,
	})
	proc.Must("order service", err)

	checkoutService, err := checkout.NewService(checkout.ServiceParams{
		Carts:    cartRepo,
		Users:    userRepo,
		Sessions: checkout.NewStripeSessionCreator(stripeClient),
		Charges:  charges,
		Currency: stripeClient.Currency(),
		Logger:   logg,
	})
	proc.Must("checkout service", err)

	wishlistService, err := wishlist.NewService(wishlist.ServiceParams{
		WishlistRepo: wishlist.NewRepository(conn),
		ProductRepo:  productRepo,
	})
	proc.Must("wishlist service", err)

	addressService, err := addresses.NewService(addresses.NewRepository(conn))
	proc.Must("address service", err)

	webhookService, err := stripewebhook.NewService(stripewebhook.ServiceParams{Orders: orderService, Logger: logg})
	proc.Must("stripe webhook service", err)
	stripeEvents, err := idempotency.New(redisClient, "stripe-webhook", stripeEventTTL)
	proc.Must("stripe replay ledger", err)

	port := cfg.App.Port
	if p := os.Getenv("PORT"); p != "" {
		port = p
	}
	server := &http.Server{
		Addr: ":" + port,
		Handler: routes.NewRouter(
			cfg,
			logg,
			map[string]controllers.Pinger{"db": dbClient, "redis": redisClient},
			redisClient,
			sessions,
			httpMetrics,
			commerceMetrics,
			authService,
			cartService,
			couponService,
			orderService,
			checkoutService,
			wishlistService,
			addressService,
			stripeClient,
			webhookService,
			stripeEvents,
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	runCtx, stop := proc.Run(map[string]any{"addr": server.Addr, "stripe_env": stripeClient.Environment()})
	defer stop()

	served := make(chan error, 1)
	go func() {
		logg.Info(runCtx, "api server listening")
		served <- server.ListenAndServe()
	}()

	select {
	case err := <-served:
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		proc.Finish(runCtx, err)
		return
	case <-runCtx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(runCtx), shutdownTimeout)
	defer cancel()
	err = server.Shutdown(shutdownCtx)
	if errors.Is(err, context.DeadlineExceeded) {
		logg.Warn(shutdownCtx, "in-flight requests cut off at shutdown deadline")
		err = nil
	}
	proc.Finish(runCtx, err)
}
