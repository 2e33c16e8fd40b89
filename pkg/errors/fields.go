package errors

import (
	stderrors "errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// LogFields flattens err into structured log fields: the wrap chain, the code when
// present, and the Postgres diagnostics from either driver.
func LogFields(err error) map[string]any {
	if err == nil {
		return map[string]any{}
	}
	fields := map[string]any{"error": err.Error()}
	if typed := As(err); typed != nil {
		fields["error_code"] = typed.Code()
	}

	var chain []string
	for e := err; e != nil; e = stderrors.Unwrap(e) {
		chain = append(chain, fmt.Sprintf("%T", e))
	}
	fields["error_chain"] = chain

	var pgxErr *pgconn.PgError
	var pqErr *pq.Error
	switch {
	case stderrors.As(err, &pgxErr):
		addPG(fields, pgxErr.Code, pgxErr.ConstraintName, pgxErr.TableName, pgxErr.Detail)
	case stderrors.As(err, &pqErr):
		addPG(fields, string(pqErr.Code), pqErr.Constraint, pqErr.Table, pqErr.Detail)
	}
	return fields
}

func addPG(fields map[string]any, code, constraint, table, detail string) {
	for k, v := range map[string]string{
		"pg_code":       code,
		"pg_constraint": constraint,
		"pg_table":      table,
		"pg_detail":     detail,
	} {
		if v != "" {
			fields[k] = v
		}
	}
}
