package invoicing

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// NumberPrefix starts every invoice number.
const NumberPrefix = "FACT-"

// numberPattern matches well-formed numbers; shared by Go and the SQL seed query.
var numberPattern = "^" + regexp.QuoteMeta(NumberPrefix) + "[0-9]+$"

// FormatNumber renders a sequence value as FACT-NNNNNN.
func FormatNumber(n int64) string {
	return fmt.Sprintf("%s%06d", NumberPrefix, n)
}

// ParseNumber extracts the sequence value from an invoice number.
func ParseNumber(s string) (int64, error) {
	digits, ok := strings.CutPrefix(strings.TrimSpace(s), NumberPrefix)
	if !ok || digits == "" {
		return 0, fmt.Errorf("%w: %q", ErrMalformedNumber, s)
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrMalformedNumber, s)
	}
	return n, nil
}
