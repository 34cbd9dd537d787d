package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrorDump flattens an error chain for structured logs. Postgres fields come
// from either driver; gRPC fields come from Pub/Sub and other Google clients.
type ErrorDump struct {
	TopMessage string   `json:"top_message"`
	Code       Code     `json:"code,omitempty"`
	Chain      []string `json:"chain,omitempty"`

	PG   *PGFields `json:"pg,omitempty"`
	GRPC string    `json:"grpc_code,omitempty"`
}

type PGFields struct {
	Code       string `json:"code"`
	Constraint string `json:"constraint,omitempty"`
	Table      string `json:"table,omitempty"`
	Detail     string `json:"detail,omitempty"`
	Message    string `json:"message,omitempty"`
}

func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}
	d := ErrorDump{TopMessage: err.Error(), PG: pgFields(err)}
	if te := As(err); te != nil {
		d.Code = te.Code()
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}
	if st, ok := status.FromError(err); ok && st != nil && st.Code() != codes.OK {
		d.GRPC = st.Code().String()
	}
	return d
}

func pgFields(err error) *PGFields {
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return &PGFields{Code: pgxErr.Code, Constraint: pgxErr.ConstraintName, Table: pgxErr.TableName, Detail: pgxErr.Detail, Message: pgxErr.Message}
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return &PGFields{Code: string(pqErr.Code), Constraint: pqErr.Constraint, Table: pqErr.Table, Detail: pqErr.Detail, Message: pqErr.Message}
	}
	return nil
}

// Fields renders the dump as logger fields.
func (d ErrorDump) Fields() map[string]any {
	fields := map[string]any{
		"error":       d.TopMessage,
		"error_code":  d.Code,
		"error_chain": d.Chain,
	}
	if d.PG != nil {
		fields["pg_code"] = d.PG.Code
		fields["pg_constraint"] = d.PG.Constraint
		fields["pg_table"] = d.PG.Table
		fields["pg_detail"] = d.PG.Detail
		fields["pg_message"] = d.PG.Message
	}
	if d.GRPC != "" {
		fields["grpc_code"] = d.GRPC
	}
	return fields
}
