package addresses

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	addresssvc "github.com/angelmondragon/storefront-backend/internal/addresses"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

type addAddressRequest struct {
	Alias      string `json:"alias" validate:"max=64"`
	Details    string `json:"details" validate:"required,max=256"`
	City       string `json:"city" validate:"required,max=128"`
	PostalCode string `json:"postal_code,omitempty" validate:"max=32"`
	Phone      string `json:"phone" validate:"required,max=32"`
}

// AddressDTO is one saved delivery address.
type AddressDTO struct {
	ID         uuid.UUID `json:"id"`
	Alias      string    `json:"alias"`
	Details    string    `json:"details"`
	City       string    `json:"city"`
	PostalCode string    `json:"postal_code,omitempty"`
	Phone      string    `json:"phone"`
	CreatedAt  time.Time `json:"created_at"`
}

func toDTO(row models.UserAddress) AddressDTO {
	return AddressDTO{
		ID:         row.ID,
		Alias:      row.Alias,
		Details:    row.Details,
		City:       row.City,
		PostalCode: row.PostalCode,
		Phone:      row.Phone,
		CreatedAt:  row.CreatedAt,
	}
}

type addressOp func(r *http.Request, owner uuid.UUID) ([]models.UserAddress, error)

func ownAddresses(svc addresssvc.Service, logg *logger.Logger, op addressOp) http.HandlerFunc {
	return responses.Handle(logg, http.StatusOK, func(r *http.Request) (any, error) {
		if svc == nil {
			return nil, responses.Unavailable("address service")
		}
		owner, _, err := middleware.Identity(r.Context())
		if err != nil {
			return nil, err
		}
		rows, err := op(r, owner)
		if err != nil {
			return nil, err
		}
		out := make([]AddressDTO, len(rows))
		for i, row := range rows {
			out[i] = toDTO(row)
		}
		return map[string]any{"results": len(out), "addresses": out}, nil
	})
}

func AddressList(svc addresssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return ownAddresses(svc, logg, func(r *http.Request, owner uuid.UUID) ([]models.UserAddress, error) {
		return svc.List(r.Context(), owner)
	})
}

// AddressAdd saves an address. An identical address is stored once.
func AddressAdd(svc addresssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return ownAddresses(svc, logg, func(r *http.Request, owner uuid.UUID) ([]models.UserAddress, error) {
		var body addAddressRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return nil, err
		}
		return svc.Add(r.Context(), owner, addresssvc.Input{
			Alias: body.Alias,
			Address: types.ShippingAddress{
				Details:    body.Details,
				City:       body.City,
				PostalCode: body.PostalCode,
				Phone:      body.Phone,
			},
		})
	})
}

func AddressRemove(svc addresssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return ownAddresses(svc, logg, func(r *http.Request, owner uuid.UUID) ([]models.UserAddress, error) {
		addressID, err := validators.PathUUID(r, "addressId")
		if err != nil {
			return nil, err
		}
		return svc.Remove(r.Context(), owner, addressID)
	})
}
