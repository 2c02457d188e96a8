// =============================================================================
// Bursar - Row Validation
// =============================================================================
//
// This module turns raw input rows into ledger.Transaction records. It is the
// only place that knows about the textual input format; the ledger engine
// receives nothing but well-formed records.
//
// COLUMNS (header names are matched case-insensitively):
//   type    (alias tx_type)    deposit | withdrawal | dispute | resolve | chargeback
//   client  (alias client_id)  unsigned 16-bit integer
//   tx      (alias tx_id)      unsigned 32-bit integer
//   amount                     decimal, required for deposit and withdrawal
//
// ERROR HANDLING:
//   - A missing type/client/tx column is fatal for the whole file
//   - Every problem found in a row is collected into a RowError; the caller
//     drops the row and keeps going
//
// =============================================================================

package validation

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ginjaninja78/bursar/internal/ledger"
	"github.com/shopspring/decimal"
)

// ErrMalformedRow is wrapped by every RowError.
var ErrMalformedRow = errors.New("malformed transaction row")

// ErrMissingColumn is returned by NewValidator when a required column is
// absent from the header.
var ErrMissingColumn = errors.New("required column missing")

// Canonical column names.
const (
	ColumnType   = "type"
	ColumnClient = "client"
	ColumnTx     = "tx"
	ColumnAmount = "amount"
)

// columnAliases lists the accepted header names for each canonical column.
var columnAliases = map[string][]string{
	ColumnType:   {"type", "tx_type"},
	ColumnClient: {"client", "client_id"},
	ColumnTx:     {"tx", "tx_id"},
	ColumnAmount: {"amount"},
}

var requiredColumns = []string{ColumnType, ColumnClient, ColumnTx}

// Amount limits. Amounts are plain decimal literals with at most
// MaxAmountIntegerDigits digits before the point and MaxAmountScale after it.
const (
	MaxAmountIntegerDigits = 28
	MaxAmountScale         = 28
)

// =============================================================================
// VALIDATION ERROR TYPES
// =============================================================================

// ValidationError describes one invalid field.
type ValidationError struct {
	// Field is the canonical column name.
	Field string

	// Value is the raw cell content.
	Value string

	// Rule names the violated rule: "required", "operation", "uint16",
	// "uint32" or "decimal".
	Rule string

	// Message is a human-readable explanation.
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("field '%s': %s (value: '%s')", e.Field, e.Message, e.Value)
}

// RowError collects every ValidationError found in one row.
type RowError struct {
	// RowNumber is the 1-indexed record number in the input file.
	RowNumber int

	// Raw is the row as read, keyed by canonical column name.
	Raw map[string]string

	Errors []*ValidationError
}

// Error implements the error interface.
func (e *RowError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, ve := range e.Errors {
		msgs[i] = ve.Error()
	}
	return fmt.Sprintf("row %d: %s", e.RowNumber, strings.Join(msgs, "; "))
}

// Unwrap lets callers match RowErrors with errors.Is(err, ErrMalformedRow).
func (e *RowError) Unwrap() error {
	return ErrMalformedRow
}

// =============================================================================
// VALIDATOR
// =============================================================================

// Validator decodes rows produced by a parser with a fixed header.
type Validator struct {
	// columns maps canonical column name -> header name used by the file.
	columns map[string]string
}

// NewValidator resolves the canonical columns against headers. It fails when
// type, client or tx cannot be found; a missing amount column is tolerated
// and reported per row for deposits and withdrawals.
func NewValidator(headers []string) (*Validator, error) {
	present := make(map[string]bool, len(headers))
	for _, h := range headers {
		present[strings.ToLower(strings.TrimSpace(h))] = true
	}

	columns := make(map[string]string, len(columnAliases))
	for canonical, aliases := range columnAliases {
		for _, alias := range aliases {
			if present[alias] {
				columns[canonical] = alias
				break
			}
		}
	}

	var missing []string
	for _, required := range requiredColumns {
		if _, ok := columns[required]; !ok {
			missing = append(missing, required)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}

	return &Validator{columns: columns}, nil
}

// Decode converts one row into a transaction. On failure the returned error
// is a *RowError listing every invalid field.
func (v *Validator) Decode(row map[string]string, rowNumber int) (ledger.Transaction, error) {
	raw := make(map[string]string, len(v.columns))
	for canonical, header := range v.columns {
		raw[canonical] = row[header]
	}

	var (
		tx   ledger.Transaction
		errs []*ValidationError
	)

	op, err := ledger.ParseOperation(raw[ColumnType])
	if err != nil {
		errs = append(errs, fieldError(ColumnType, raw[ColumnType], "operation", err.Error()))
	}
	tx.Type = op

	if clientID, ve := parseUint(ColumnClient, raw[ColumnClient], 16); ve != nil {
		errs = append(errs, ve)
	} else {
		tx.ClientID = uint16(clientID)
	}

	if txID, ve := parseUint(ColumnTx, raw[ColumnTx], 32); ve != nil {
		errs = append(errs, ve)
	} else {
		tx.TxID = uint32(txID)
	}

	amount, ve := parseAmount(raw[ColumnAmount])
	switch {
	case ve != nil:
		errs = append(errs, ve)
	case op.CarriesAmount() && !amount.Valid:
		errs = append(errs, fieldError(ColumnAmount, "", "required", fmt.Sprintf("amount is required for %s", op)))
	case op.CarriesAmount():
		tx.Amount = amount
	}

	if len(errs) > 0 {
		return ledger.Transaction{}, &RowError{RowNumber: rowNumber, Raw: raw, Errors: errs}
	}

	return tx, nil
}

// Columns returns the header name used for each canonical column.
func (v *Validator) Columns() map[string]string {
	columns := make(map[string]string, len(v.columns))
	for k, val := range v.columns {
		columns[k] = val
	}
	return columns
}

// =============================================================================
// FIELD PARSERS
// =============================================================================

func parseUint(field, value string, bits int) (uint64, *ValidationError) {
	if value == "" {
		return 0, fieldError(field, value, "required", "value is required")
	}

	n, err := strconv.ParseUint(value, 10, bits)
	if err != nil {
		return 0, fieldError(field, value, fmt.Sprintf("uint%d", bits),
			fmt.Sprintf("must be an unsigned %d-bit integer", bits))
	}
	return n, nil
}

// parseAmount parses an optional decimal. An empty value yields an invalid
// NullDecimal and no error. Exponent notation is refused before parsing: a
// short literal like 1e20000000 would otherwise expand to millions of digits.
func parseAmount(value string) (decimal.NullDecimal, *ValidationError) {
	if value == "" {
		return decimal.NullDecimal{}, nil
	}

	if strings.ContainsAny(value, "eE") {
		return decimal.NullDecimal{}, fieldError(ColumnAmount, value, "decimal", "exponent notation is not supported")
	}

	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.NullDecimal{}, fieldError(ColumnAmount, value, "decimal", "must be a decimal number")
	}

	if -d.Exponent() > MaxAmountScale {
		return decimal.NullDecimal{}, fieldError(ColumnAmount, value, "decimal",
			fmt.Sprintf("must have at most %d fractional digits", MaxAmountScale))
	}
	if len(d.Abs().Truncate(0).String()) > MaxAmountIntegerDigits {
		return decimal.NullDecimal{}, fieldError(ColumnAmount, value, "decimal",
			fmt.Sprintf("must have at most %d integer digits", MaxAmountIntegerDigits))
	}

	return decimal.NewNullDecimal(d), nil
}

func fieldError(field, value, rule, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Rule: rule, Message: message}
}

// =============================================================================
// REPORTING
// =============================================================================

// FormatErrors formats row errors for display or logging.
func FormatErrors(errs []*RowError) string {
	if len(errs) == 0 {
		return "No validation errors."
	}

	var builder strings.Builder

	fmt.Fprintf(&builder, "Validation completed with %d rejected row(s):\n\n", len(errs))

	for i, err := range errs {
		fmt.Fprintf(&builder, "%d. %s\n", i+1, err.Error())
	}

	return builder.String()
}
