package cart

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	cartsvc "github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const maxColorLength = 32

// cartOp runs against the caller's cart and returns its new state.
type cartOp func(r *http.Request, owner uuid.UUID) (*models.Cart, error)

func ownCart(svc cartsvc.Service, logg *logger.Logger, op cartOp) http.HandlerFunc {
	return responses.Handle(logg, http.StatusOK, func(r *http.Request) (any, error) {
		if svc == nil {
			return nil, responses.Unavailable("cart service")
		}
		owner, _, err := middleware.Identity(r.Context())
		if err != nil {
			return nil, err
		}
		record, err := op(r, owner)
		if err != nil {
			return nil, err
		}
		if record == nil {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
		}
		return newCartDTO(record), nil
	})
}

// CartAddItem adds a product variant, creating the cart on first use.
func CartAddItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return ownCart(svc, logg, func(r *http.Request, owner uuid.UUID) (*models.Cart, error) {
		var body addItemRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return nil, err
		}
		return svc.AddItem(r.Context(), owner, cartsvc.AddItemInput{
			ProductID: body.ProductID,
			Color:     validators.Clean(body.Color, maxColorLength),
		})
	})
}

func CartFetch(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return ownCart(svc, logg, func(r *http.Request, owner uuid.UUID) (*models.Cart, error) {
		return svc.GetCart(r.Context(), owner)
	})
}

func CartUpdateItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return ownCart(svc, logg, func(r *http.Request, owner uuid.UUID) (*models.Cart, error) {
		itemID, err := validators.PathUUID(r, "itemId")
		if err != nil {
			return nil, err
		}
		var body updateQuantityRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return nil, err
		}
		return svc.UpdateItemQuantity(r.Context(), owner, itemID, body.Quantity)
	})
}

func CartRemoveItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return ownCart(svc, logg, func(r *http.Request, owner uuid.UUID) (*models.Cart, error) {
		itemID, err := validators.PathUUID(r, "itemId")
		if err != nil {
			return nil, err
		}
		return svc.RemoveItem(r.Context(), owner, itemID)
	})
}

// CartApplyCoupon reprices the cart with a named coupon.
func CartApplyCoupon(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return ownCart(svc, logg, func(r *http.Request, owner uuid.UUID) (*models.Cart, error) {
		var body applyCouponRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return nil, err
		}
		return svc.ApplyCoupon(r.Context(), owner, body.Coupon)
	})
}

// CartClear deletes the caller's cart and answers 204.
func CartClear(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return responses.Handle(logg, http.StatusNoContent, func(r *http.Request) (any, error) {
		if svc == nil {
			return nil, responses.Unavailable("cart service")
		}
		owner, _, err := middleware.Identity(r.Context())
		if err != nil {
			return nil, err
		}
		return nil, svc.ClearCart(r.Context(), owner)
	})
}
