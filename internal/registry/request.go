package registry

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/quadro/internal/shared"
)

const (
	// DefaultLimit applies when the limit parameter is absent or empty.
	DefaultLimit = 10000
	// DefaultOffset applies when the offset parameter is absent or empty.
	DefaultOffset = 0
)

// Client-facing validation messages.
const (
	MsgCompanyRequired   = "Please provide a company"
	MsgCompanyOrOperator = "Please provide a company or an operator"
	MsgNotBoth           = "Please provide a company or operator, not both"
	MsgLimitInteger      = "limit must be an integer"
	MsgOffsetInteger     = "offset must be an integer"
	MsgLimitNegative     = "limit must not be negative"
	MsgOffsetNegative    = "offset must not be negative"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// messages maps "<Field>.<tag>" validator failures to client messages.
var messages = map[string]string{
	"Company.required":          MsgCompanyRequired,
	"Operator.required_without": MsgCompanyOrOperator,
	"Operator.excluded_with":    MsgNotBoth,
	"Limit.min":                 MsgLimitNegative,
	"Offset.min":                MsgOffsetNegative,
}

// Page bounds a result set. A zero Limit is honored and yields no rows.
type Page struct {
	Limit  int `validate:"min=0"`
	Offset int `validate:"min=0"`
}

// DefaultPage returns the page used when no pagination parameters are given.
func DefaultPage() Page {
	return Page{Limit: DefaultLimit, Offset: DefaultOffset}
}

// OperatorsQuery asks for the operators of one company.
type OperatorsQuery struct {
	Company string `validate:"required"`
	Page
}

// Validate checks the query before any storage access.
func (q OperatorsQuery) Validate() error {
	return translate(validate.Struct(q))
}

// CompaniesQuery asks for the companies of an operator, or for the companies sharing an
// operator with a company. Exactly one of Operator and Company must be set.
type CompaniesQuery struct {
	Operator string `validate:"required_without=Company,excluded_with=Company"`
	Company  string
	Page
}

// Validate checks the query before any storage access.
func (q CompaniesQuery) Validate() error {
	return translate(validate.Struct(q))
}

// ParseOperatorsQuery builds and validates an OperatorsQuery from query-string values.
// A missing company is reported before malformed pagination.
func ParseOperatorsQuery(values url.Values) (OperatorsQuery, error) {
	page, pageErr := ParsePage(values)
	q := OperatorsQuery{Company: values.Get("company"), Page: page}
	if err := q.Validate(); err != nil {
		return q, err
	}
	return q, pageErr
}

// ParseCompaniesQuery builds and validates a CompaniesQuery from query-string values.
func ParseCompaniesQuery(values url.Values) (CompaniesQuery, error) {
	page, pageErr := ParsePage(values)
	q := CompaniesQuery{
		Operator: values.Get("operator"),
		Company:  values.Get("company"),
		Page:     page,
	}
	if err := q.Validate(); err != nil {
		return q, err
	}
	return q, pageErr
}

// ParsePage reads limit and offset. Absent or empty values take the defaults; anything
// that is not an integer is rejected rather than coerced. On error the default page is
// returned alongside the error.
func ParsePage(values url.Values) (Page, error) {
	page := DefaultPage()
	limit, err := parseInt(values.Get("limit"), DefaultLimit, MsgLimitInteger)
	if err != nil {
		return DefaultPage(), err
	}
	offset, err := parseInt(values.Get("offset"), DefaultOffset, MsgOffsetInteger)
	if err != nil {
		return DefaultPage(), err
	}
	page.Limit, page.Offset = limit, offset
	if err := translate(validate.Struct(page)); err != nil {
		return DefaultPage(), err
	}
	return page, nil
}

func parseInt(raw string, fallback int, msg string) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, shared.NewValidationError(msg)
	}
	return n, nil
}

func translate(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("registry: validate: %w", err)
	}
	fe := verrs[0]
	if msg, ok := messages[fe.Field()+"."+fe.Tag()]; ok {
		return shared.NewValidationError(msg)
	}
	return shared.NewValidationError(strings.ToLower(fe.Field()) + " is invalid")
}
