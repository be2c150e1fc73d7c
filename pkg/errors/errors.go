// Package errors defines the sentinel errors shared by the criteria compiler
// and the service around it, plus an AppError type carrying a user-facing
// message and the HTTP status it maps to.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrUnmatchedOpen                = errors.New("unmatched open parenthesis")
	ErrUnmatchedClose               = errors.New("unmatched close parenthesis")
	ErrMixedOperator                = errors.New("mixed proximity and boolean operators")
	ErrFieldOperatorInSimpleContext = errors.New("field operator in simple search")
	ErrFieldOperatorInsideParens    = errors.New("field operator inside parentheses")
	ErrLeadingOr                    = errors.New("OR between field group and plain criteria")
	ErrUnknownField                 = errors.New("unknown field")
	ErrRangeWildcard                = errors.New("wildcard in range value")
	ErrInvalidInput                 = errors.New("invalid input")
	ErrInternal                     = errors.New("internal error")
	ErrTimeout                      = errors.New("operation timed out")
	ErrStoreUnavailable             = errors.New("field store unavailable")
)

// Messages shown to the end user. They are returned verbatim by the HTTP layer.
const (
	MsgMissingClose         = "Parênteses incompletos nos critérios de pesquisa - falta fechamento de parênteses."
	MsgExtraClose           = "Parênteses incompletos nos critérios de pesquisa - há fechamento excedente de parênteses."
	MsgFieldInSimpleSearch  = "campos_pesquisa: Não são aceitos operadores de campo em pesquisas simples."
	MsgFieldInsideParens    = "campos_pesquisa: Não são aceitos operadores de campo dentro de parênteses."
	MsgSubgroupParens       = "Não são aceitos operadores de campo dentro de parênteses."
	MsgLeadingOr            = "Não são aceitos operadores OU entre critérios de grupo e critérios simples."
	MsgMixedOperatorsFormat = "Operadores: foi encontrado um grupo com operadores simples e de proximidade juntos: %s"
	MsgUnknownFieldFormat   = "campos_pesquisa: o campo %s não está disponível para pesquisa, corrija a lista de campos disponíveis ou corrija o nome do campo."
	MsgRangeWildcardFormat  = "campos_pesquisa: não são aceitos curingas nos valores de intervalo - valor: %q valor2: %q"
	MsgMissingFieldValue    = "campos_pesquisa: é preciso informar o campo e o valor."
)

type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
	}
}

// Invalid builds a 400 AppError for a criteria validation failure.
func Invalid(sentinel error, message string) *AppError {
	return New(sentinel, http.StatusBadRequest, message)
}

// Invalidf is Invalid with a format string.
func Invalidf(sentinel error, format string, args ...any) *AppError {
	return Newf(sentinel, http.StatusBadRequest, format, args...)
}

// UserMessage returns the message meant for the end user: the AppError
// message when present, the error text otherwise.
func UserMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

// Kind returns a short, stable label for metrics and audit events.
func Kind(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrUnmatchedOpen):
		return "unmatched_open"
	case errors.Is(err, ErrUnmatchedClose):
		return "unmatched_close"
	case errors.Is(err, ErrMixedOperator):
		return "mixed_operator"
	case errors.Is(err, ErrFieldOperatorInSimpleContext):
		return "field_in_simple_context"
	case errors.Is(err, ErrFieldOperatorInsideParens):
		return "field_inside_parens"
	case errors.Is(err, ErrLeadingOr):
		return "leading_or"
	case errors.Is(err, ErrUnknownField):
		return "unknown_field"
	case errors.Is(err, ErrRangeWildcard):
		return "range_wildcard"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrStoreUnavailable):
		return "store_unavailable"
	default:
		return "internal"
	}
}

func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrUnmatchedOpen), errors.Is(err, ErrUnmatchedClose),
		errors.Is(err, ErrMixedOperator), errors.Is(err, ErrFieldOperatorInSimpleContext),
		errors.Is(err, ErrFieldOperatorInsideParens), errors.Is(err, ErrLeadingOr),
		errors.Is(err, ErrUnknownField), errors.Is(err, ErrRangeWildcard),
		errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
