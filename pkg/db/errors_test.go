package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

func TestIsUniqueViolation(t *testing.T) {
	pgxErr := &pgconn.PgError{Code: "23505", ConstraintName: "orders_cart_id_key"}
	pqErr := &pq.Error{Code: "23505", Constraint: "users_email_key"}
	sqliteErr := errors.New("UNIQUE constraint failed: orders.cart_id")

	cases := []struct {
		name       string
		err        error
		constraint string
		want       bool
	}{
		{"nil", nil, "", false},
		{"pgx any", fmt.Errorf("insert: %w", pgxErr), "", true},
		{"pgx matching constraint", pgxErr, "orders_cart_id_key", true},
		{"pgx other constraint", pgxErr, "users_email_key", false},
		{"pq matching", pqErr, "users_email_key", true},
		{"sqlite any", sqliteErr, "", true},
		{"sqlite matching", sqliteErr, "orders_cart_id_key", true},
		{"sqlite other", sqliteErr, "orders_checkout_session_id_key", false},
		{"unrelated", errors.New("boom"), "", false},
		{"pgx other code", &pgconn.PgError{Code: "23503"}, "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsUniqueViolation(tc.err, tc.constraint); got != tc.want {
				t.Fatalf("IsUniqueViolation = %v, want %v", got, tc.want)
			}
		})
	}
}
