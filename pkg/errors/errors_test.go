package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
)

func TestMetadataTable(t *testing.T) {
	tests := []struct {
		code   Code
		status int
		kind   Kind
		public string
		retry  bool
		detail bool
		expose bool
	}{
		{CodeValidation, http.StatusBadRequest, KindValidation, "validation failed", false, true, true},
		{CodeUnauthorized, http.StatusUnauthorized, KindForbidden, "authentication required", false, false, true},
		{CodeConflict, http.StatusConflict, KindConflict, "conflict detected", false, false, true},
		{CodeIdempotency, http.StatusConflict, KindConflict, "idempotency key reused", false, true, true},
		{CodeStateConflict, http.StatusUnprocessableEntity, KindConflict, "state transition disallowed", false, true, true},
		{CodeInternal, http.StatusInternalServerError, KindInternal, "internal server error", true, false, false},
		{CodeDependency, http.StatusServiceUnavailable, KindInternal, "dependency unavailable", true, true, false},
		{CodeEmptyCart, http.StatusBadRequest, KindConflict, "cart is empty", false, false, true},
		{CodeInvalidRating, http.StatusBadRequest, KindValidation, "rating must be between 1 and 5", false, true, true},
	}
	for _, tt := range tests {
		m := MetadataFor(tt.code)
		require.Equal(t, tt.status, m.HTTPStatus, tt.code)
		require.Equal(t, tt.kind, m.Kind, tt.code)
		require.Equal(t, tt.public, m.PublicMessage, tt.code)
		require.Equal(t, tt.retry, m.Retryable, tt.code)
		require.Equal(t, tt.detail, m.DetailsAllowed, tt.code)
		require.Equal(t, tt.expose, m.ExposeMessage, tt.code)
	}

	require.Equal(t, MetadataFor(CodeInternal), MetadataFor("SOMETHING_UNKNOWN"))
}

func TestEveryCodeHasMetadata(t *testing.T) {
	codes := []Code{
		CodeValidation, CodeUnauthorized, CodeForbidden, CodeNotFound, CodeConflict,
		CodeStateConflict, CodeIdempotency, CodeRateLimit, CodeInternal, CodeDependency,
		CodeEmptyCart, CodeProductUnavailable, CodeInsufficientStock, CodeDuplicateReview,
		CodeInvalidRating, CodeOrderNotCancelable,
	}
	for _, code := range codes {
		_, ok := metadataByCode[code]
		require.True(t, ok, code)
	}
}

func TestConstructorsAndWrapping(t *testing.T) {
	base := Newf(CodeValidation, "missing %s", "pincode")
	require.Equal(t, CodeValidation, base.Code())
	require.Equal(t, "missing pincode", base.Message())
	require.Nil(t, base.Details())
	require.NotNil(t, base.WithDetails(map[string]any{"field": "pincode"}).Details())

	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeConflict, cause, "ctx")
	require.ErrorIs(t, wrapped, cause)
	require.Equal(t, "CONFLICT: ctx: boom", wrapped.Error())

	var nilErr *Error
	require.Equal(t, CodeInternal, nilErr.Code())
	require.Nil(t, nilErr.WithDetails("x"))
}

func TestClassificationSeesThroughWrapping(t *testing.T) {
	require.Nil(t, As(nil))
	require.Equal(t, KindInternal, KindOf(stdErrors.New("plain")))

	wrapped := fmt.Errorf("outer: %w", New(CodeDuplicateReview, "dup"))
	require.Equal(t, KindConflict, KindOf(wrapped))
	require.True(t, IsCode(wrapped, CodeDuplicateReview))
	require.False(t, IsCode(wrapped, CodeConflict))
}

func TestLogFieldsCarriesPostgresDiagnostics(t *testing.T) {
	require.Nil(t, LogFields(nil))

	pgx := Wrap(CodeConflict, &pgconn.PgError{Code: "23505", ConstraintName: "reviews_user_product_key", TableName: "reviews"}, "insert review")
	fields := LogFields(fmt.Errorf("create: %w", pgx))
	require.Equal(t, "CONFLICT", fields["error_code"])
	require.Equal(t, "23505", fields["pg_code"])
	require.Equal(t, "reviews_user_product_key", fields["pg_constraint"])
	require.Equal(t, "reviews", fields["pg_table"])
	require.Len(t, fields["error_chain"], 3)

	fields = LogFields(&pq.Error{Code: "23503", Table: "orders"})
	require.Equal(t, "23503", fields["pg_code"])
	require.NotContains(t, fields, "pg_constraint")
	require.NotContains(t, fields, "error_code")
}
