package orders

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/checkout"
	ordersvc "github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

const maxAddressField = 256

type checkoutMetrics interface {
	IncCheckoutSession(result string)
}

// Redirects are the absolute URLs Stripe sends the shopper back to.
type Redirects struct {
	SuccessURL string
	CancelURL  string
}

// NewRedirects joins the public base URL with the configured success and cancel paths.
func NewRedirects(baseURL, successPath, cancelPath string) Redirects {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	return Redirects{
		SuccessURL: base + ensureLeadingSlash(successPath),
		CancelURL:  base + ensureLeadingSlash(cancelPath),
	}
}

func ensureLeadingSlash(path string) string {
	path = strings.TrimSpace(path)
	if path == "" || strings.HasPrefix(path, "/") {
		return path
	}
	return "/" + path
}

func orderCall(svc ordersvc.Service, logg *logger.Logger, status int, fn responses.Handler) http.HandlerFunc {
	return responses.Handle(logg, status, func(r *http.Request) (any, error) {
		if svc == nil {
			return nil, responses.Unavailable("order service")
		}
		return fn(r)
	})
}

// OrderCreateCash turns the caller's cart into a cash-on-delivery order.
func OrderCreateCash(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return orderCall(svc, logg, http.StatusCreated, func(r *http.Request) (any, error) {
		userID, _, err := middleware.Identity(r.Context())
		if err != nil {
			return nil, err
		}
		cartID, err := validators.PathUUID(r, "cartId")
		if err != nil {
			return nil, err
		}
		var body createCashOrderRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return nil, err
		}
		order, err := svc.CreateCashOrder(r.Context(), userID, cartID, body.ShippingAddress.toAddress())
		if err != nil {
			return nil, err
		}
		return newOrderDTO(order), nil
	})
}

// OrderList pages through the caller's orders, or every order for staff.
func OrderList(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return orderCall(svc, logg, http.StatusOK, func(r *http.Request) (any, error) {
		userID, role, err := middleware.Identity(r.Context())
		if err != nil {
			return nil, err
		}
		limit, err := validators.QueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			return nil, err
		}
		page, err := svc.List(r.Context(), ordersvc.ListParams{
			UserID: userID,
			Role:   role,
			Page:   pagination.Params{Limit: limit, Cursor: strings.TrimSpace(r.URL.Query().Get("cursor"))},
		})
		if err != nil {
			return nil, err
		}
		out := make([]OrderDTO, len(page.Orders))
		for i := range page.Orders {
			out[i] = newOrderDTO(&page.Orders[i])
		}
		return map[string]any{"results": len(out), "orders": out, "next_cursor": page.NextCursor}, nil
	})
}

// OrderDetail returns one order the caller may see.
func OrderDetail(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return orderCall(svc, logg, http.StatusOK, func(r *http.Request) (any, error) {
		userID, role, err := middleware.Identity(r.Context())
		if err != nil {
			return nil, err
		}
		orderID, err := validators.PathUUID(r, "orderId")
		if err != nil {
			return nil, err
		}
		order, err := svc.Get(r.Context(), orderID, userID, role)
		if err != nil {
			return nil, err
		}
		return newOrderDTO(order), nil
	})
}

func OrderMarkPaid(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return orderTransition(svc, logg, func(ctx context.Context, id uuid.UUID) (*models.Order, error) {
		return svc.MarkPaid(ctx, id)
	})
}

func OrderMarkDelivered(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return orderTransition(svc, logg, func(ctx context.Context, id uuid.UUID) (*models.Order, error) {
		return svc.MarkDelivered(ctx, id)
	})
}

// orderTransition sets a status flag on the order named in the path.
func orderTransition(svc ordersvc.Service, logg *logger.Logger, apply func(context.Context, uuid.UUID) (*models.Order, error)) http.HandlerFunc {
	return orderCall(svc, logg, http.StatusOK, func(r *http.Request) (any, error) {
		orderID, err := validators.PathUUID(r, "orderId")
		if err != nil {
			return nil, err
		}
		order, err := apply(r.Context(), orderID)
		if err != nil {
			return nil, err
		}
		return newOrderDTO(order), nil
	})
}

// CheckoutSession opens a Stripe hosted checkout for the caller's cart.
// The shipping address travels as optional query parameters.
func CheckoutSession(svc checkout.Service, redirects Redirects, counters checkoutMetrics, logg *logger.Logger) http.HandlerFunc {
	record := func(result string) {
		if counters != nil {
			counters.IncCheckoutSession(result)
		}
	}
	return responses.Handle(logg, http.StatusOK, func(r *http.Request) (any, error) {
		if svc == nil {
			return nil, responses.Unavailable("checkout service")
		}
		userID, _, err := middleware.Identity(r.Context())
		if err != nil {
			return nil, err
		}
		cartID, err := validators.PathUUID(r, "cartId")
		if err != nil {
			return nil, err
		}

		q := r.URL.Query()
		session, err := svc.CreateSession(r.Context(), checkout.CreateSessionInput{
			UserID: userID,
			CartID: cartID,
			ShippingAddress: types.ShippingAddress{
				Details:    validators.Clean(q.Get("details"), maxAddressField),
				City:       validators.Clean(q.Get("city"), maxAddressField),
				PostalCode: validators.Clean(q.Get("postal_code"), maxAddressField),
				Phone:      validators.Clean(q.Get("phone"), maxAddressField),
			},
			SuccessURL: redirects.SuccessURL,
			CancelURL:  redirects.CancelURL,
		})
		if err != nil {
			record(metrics.CheckoutFailed)
			return nil, err
		}
		record(metrics.CheckoutCreated)

		return map[string]any{
			"status": "success",
			"session": CheckoutSessionDTO{
				ID:          session.ID,
				URL:         session.URL,
				AmountTotal: session.AmountTotal,
				Currency:    session.Currency,
			},
		}, nil
	})
}
