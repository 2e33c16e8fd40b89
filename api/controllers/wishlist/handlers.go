package wishlist

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	wishlistsvc "github.com/angelmondragon/storefront-backend/internal/wishlist"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type addItemRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
}

// ItemDTO is a saved product with its current price.
type ItemDTO struct {
	ProductID uuid.UUID       `json:"product_id"`
	Title     string          `json:"title"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	AddedAt   time.Time       `json:"added_at"`
}

type wishlistOp func(r *http.Request, owner uuid.UUID) ([]wishlistsvc.Item, error)

func ownWishlist(svc wishlistsvc.Service, logg *logger.Logger, op wishlistOp) http.HandlerFunc {
	return responses.Handle(logg, http.StatusOK, func(r *http.Request) (any, error) {
		if svc == nil {
			return nil, responses.Unavailable("wishlist service")
		}
		owner, _, err := middleware.Identity(r.Context())
		if err != nil {
			return nil, err
		}
		items, err := op(r, owner)
		if err != nil {
			return nil, err
		}
		out := make([]ItemDTO, len(items))
		for i, item := range items {
			out[i] = ItemDTO(item)
		}
		return map[string]any{"results": len(out), "wishlist": out}, nil
	})
}

func WishlistFetch(svc wishlistsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return ownWishlist(svc, logg, func(r *http.Request, owner uuid.UUID) ([]wishlistsvc.Item, error) {
		return svc.List(r.Context(), owner)
	})
}

// WishlistAdd likes a product. Liking it twice is a no-op.
func WishlistAdd(svc wishlistsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return ownWishlist(svc, logg, func(r *http.Request, owner uuid.UUID) ([]wishlistsvc.Item, error) {
		var body addItemRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return nil, err
		}
		return svc.AddItem(r.Context(), owner, body.ProductID)
	})
}

func WishlistRemove(svc wishlistsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return ownWishlist(svc, logg, func(r *http.Request, owner uuid.UUID) ([]wishlistsvc.Item, error) {
		productID, err := validators.PathUUID(r, "productId")
		if err != nil {
			return nil, err
		}
		return svc.RemoveItem(r.Context(), owner, productID)
	})
}
