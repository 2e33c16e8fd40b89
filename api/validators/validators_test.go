package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

type sampleBody struct {
	Name     string `json:"name" validate:"required,notblank,min=2"`
	Quantity int    `json:"quantity" validate:"min=1"`
	Internal string `json:"-"`
}

func post(body string) *http.Request {
	return httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
}

func detailsOf(t *testing.T, err error) map[string]string {
	t.Helper()
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
	details, ok := typed.Details().(map[string]string)
	require.True(t, ok, "details %T", typed.Details())
	return details
}

func TestDecodeJSONBodyReportsFieldErrors(t *testing.T) {
	var body sampleBody
	details := detailsOf(t, DecodeJSONBody(post(`{"name":"a","quantity":0}`), &body))
	require.Equal(t, "must be at least 2", details["name"])
	require.Equal(t, "must be at least 1", details["quantity"])

	details = detailsOf(t, DecodeJSONBody(post(`{"name":"   ","quantity":1}`), &body))
	require.Equal(t, "must not be blank", details["name"])
}

func TestDecodeJSONBodyRejectsMalformedInput(t *testing.T) {
	cases := map[string]string{
		"unknown field": `{"name":"ab","quantity":1,"extra":true}`,
		"empty":         ``,
		"two objects":   `{"name":"ab","quantity":1}{"name":"cd","quantity":1}`,
		"not json":      `name=ab`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			var body sampleBody
			err := DecodeJSONBody(post(raw), &body)
			require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
		})
	}
}

func TestDecodeJSONBodyAccepts(t *testing.T) {
	var body sampleBody
	require.NoError(t, DecodeJSONBody(post(`{"name":"lamp","quantity":3}`), &body))
	require.Equal(t, sampleBody{Name: "lamp", Quantity: 3}, body)
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	rc := chi.NewRouteContext()
	rc.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rc))
}

func TestPathUUID(t *testing.T) {
	id := uuid.New()
	got, err := PathUUID(withURLParam(httptest.NewRequest(http.MethodGet, "/", nil), "cartId", id.String()), "cartId")
	require.NoError(t, err)
	require.Equal(t, id, got)

	_, err = PathUUID(withURLParam(httptest.NewRequest(http.MethodGet, "/", nil), "cartId", "nope"), "cartId")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = PathUUID(httptest.NewRequest(http.MethodGet, "/", nil), "cartId")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestQueryInt(t *testing.T) {
	v, err := QueryInt(httptest.NewRequest(http.MethodGet, "/", nil), "limit", 20, 1, 100)
	require.NoError(t, err)
	require.Equal(t, 20, v)

	v, err = QueryInt(httptest.NewRequest(http.MethodGet, "/?limit=7", nil), "limit", 20, 1, 100)
	require.NoError(t, err)
	require.Equal(t, 7, v)

	for _, q := range []string{"/?limit=500", "/?limit=0", "/?limit=ten"} {
		_, err := QueryInt(httptest.NewRequest(http.MethodGet, q, nil), "limit", 20, 1, 100)
		require.Error(t, err, q)
	}
}

func TestClean(t *testing.T) {
	require.Equal(t, "Cairo", Clean("  Cairo \n", 0))
	require.Equal(t, "Alex", Clean("Alexandria", 4))
	require.Equal(t, "القاه", Clean("القاهرة", 5))
}
