package coupons

import (
	"net/http"
	"time"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	couponsvc "github.com/angelmondragon/storefront-backend/internal/coupons"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

func couponCall(svc couponsvc.Service, logg *logger.Logger, status int, fn responses.Handler) http.HandlerFunc {
	return responses.Handle(logg, status, func(r *http.Request) (any, error) {
		if svc == nil {
			return nil, responses.Unavailable("coupon service")
		}
		return fn(r)
	})
}

func CouponCreate(svc couponsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return couponCall(svc, logg, http.StatusCreated, func(r *http.Request) (any, error) {
		var body couponRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return nil, err
		}
		coupon, err := svc.Create(r.Context(), body.toInput())
		if err != nil {
			return nil, err
		}
		return newCouponDTO(coupon, time.Now().UTC()), nil
	})
}

// CouponList returns every coupon, flagging the expired ones.
func CouponList(svc couponsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return couponCall(svc, logg, http.StatusOK, func(r *http.Request) (any, error) {
		list, err := svc.List(r.Context())
		if err != nil {
			return nil, err
		}
		now := time.Now().UTC()
		out := make([]CouponDTO, len(list))
		for i := range list {
			out[i] = newCouponDTO(&list[i], now)
		}
		return map[string]any{"results": len(out), "coupons": out}, nil
	})
}

func CouponGet(svc couponsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return couponCall(svc, logg, http.StatusOK, func(r *http.Request) (any, error) {
		id, err := validators.PathUUID(r, "couponId")
		if err != nil {
			return nil, err
		}
		coupon, err := svc.Get(r.Context(), id)
		if err != nil {
			return nil, err
		}
		return newCouponDTO(coupon, time.Now().UTC()), nil
	})
}

// CouponUpdate replaces the name, expiry and discount together.
func CouponUpdate(svc couponsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return couponCall(svc, logg, http.StatusOK, func(r *http.Request) (any, error) {
		id, err := validators.PathUUID(r, "couponId")
		if err != nil {
			return nil, err
		}
		var body couponRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return nil, err
		}
		coupon, err := svc.Update(r.Context(), id, body.toInput())
		if err != nil {
			return nil, err
		}
		return newCouponDTO(coupon, time.Now().UTC()), nil
	})
}

func CouponDelete(svc couponsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return couponCall(svc, logg, http.StatusNoContent, func(r *http.Request) (any, error) {
		id, err := validators.PathUUID(r, "couponId")
		if err != nil {
			return nil, err
		}
		return nil, svc.Delete(r.Context(), id)
	})
}
