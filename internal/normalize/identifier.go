// Package normalize canonicalizes inconsistent conversation fields for
// display: client identifiers, channel labels, and UUID shortening.
package normalize

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strconv"

	"github.com/asolanog/conversia/internal/models"
)

// NoClient is the display sentinel substituted for missing client data.
const NoClient = "Sin cliente"

var (
	uuidRe   = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)
	digitsRe = regexp.MustCompile(`^[0-9]+$`)
)

// ParseError describes a client identifier that deviated from its expected
// shape. The accompanying identifier is still usable for display; the error
// records what was wrong with it.
type ParseError struct {
	Raw    any
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("client identifier: %s (raw %v)", e.Reason, e.Raw)
}

// ParseIdentifier coerces the heterogeneous client field into its canonical
// tagged form. The field arrives as a raw string, a JSON-encoded string, or
// an already-decoded object; historical rows contain all three shapes.
//
// A best-effort identifier is always returned. A non-nil *ParseError marks
// values that deviated from their declared shape (non-UUID ids, phones that
// could not be formatted, empty input); callers decide whether to surface or
// tolerate the anomaly.
func ParseIdentifier(raw any) (models.ClientIdentifier, error) {
	switch v := raw.(type) {
	case nil:
		return models.ClientIdentifier{Type: models.ClientTypeID, Value: NoClient},
			&ParseError{Raw: raw, Reason: "empty"}

	case string:
		if v == "" {
			return models.ClientIdentifier{Type: models.ClientTypeID, Value: NoClient},
				&ParseError{Raw: raw, Reason: "empty"}
		}
		// Historical rows sometimes hold a JSON-encoded identifier object.
		var decoded any
		if err := json.Unmarshal([]byte(v), &decoded); err == nil {
			if _, isString := decoded.(string); !isString {
				return ParseIdentifier(decoded)
			}
		}
		// Opaque string: treat as an id value.
		return checkShape(models.ClientIdentifier{Type: models.ClientTypeID, Value: v}, raw)

	case map[string]any:
		if len(v) == 0 {
			return models.ClientIdentifier{Type: models.ClientTypeID, Value: NoClient},
				&ParseError{Raw: raw, Reason: "empty object"}
		}
		if val, ok := v["value"]; ok {
			idType := models.ClientTypeID
			if t, ok := v["type"].(string); ok && models.ClientIdentifierType(t) == models.ClientTypePhone {
				idType = models.ClientTypePhone
			}
			return checkShape(models.ClientIdentifier{Type: idType, Value: stringify(val)}, raw)
		}
		// No value field: fall back to the first property. Map iteration
		// order is unspecified, so sort keys to stay deterministic.
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return checkShape(models.ClientIdentifier{Type: models.ClientTypeID, Value: stringify(v[keys[0]])}, raw)

	case models.ClientIdentifier:
		return checkShape(v, raw)

	default:
		return checkShape(models.ClientIdentifier{Type: models.ClientTypeID, Value: stringify(v)}, raw)
	}
}

// Normalize applies ParseIdentifier with the tolerant policy: anomalies are
// logged, never rejected. Bad client data degrades display quality only.
func Normalize(raw any) models.ClientIdentifier {
	ident, err := ParseIdentifier(raw)
	if err != nil {
		slog.Warn("client identifier anomaly", "error", err)
	}
	return ident
}

// checkShape validates and, for phones, formats the identifier value.
func checkShape(ident models.ClientIdentifier, raw any) (models.ClientIdentifier, error) {
	switch ident.Type {
	case models.ClientTypePhone:
		formatted, ok := FormatPhone(ident.Value)
		if !ok {
			return ident, &ParseError{Raw: raw, Reason: "unexpected phone format"}
		}
		ident.Value = formatted
		return ident, nil

	default:
		if !uuidRe.MatchString(ident.Value) {
			return ident, &ParseError{Raw: raw, Reason: "value is not a UUID"}
		}
		return ident, nil
	}
}

// FormatPhone re-groups a digits-only phone value as "+CC XXX XXX XXX",
// prepending the Spanish country code 34 to bare 9-digit national numbers.
// This is display formatting, not validation: values that do not fit the
// pattern are returned unchanged with ok=false.
func FormatPhone(value string) (string, bool) {
	if !digitsRe.MatchString(value) {
		return value, false
	}

	digits := value
	if len(digits) == 9 {
		digits = "34" + digits
	}
	if len(digits) != 11 {
		return value, false
	}

	cc, national := digits[:2], digits[2:]
	return fmt.Sprintf("+%s %s %s %s", cc, national[0:3], national[3:6], national[6:9]), true
}

// ShortenUUID abbreviates long identifiers for display as "first8...last4".
// Strings shorter than a canonical UUID pass through unchanged. Lossy; never
// use the result for equality or storage.
func ShortenUUID(s string) string {
	if len(s) < 36 {
		return s
	}
	return s[:8] + "..." + s[len(s)-4:]
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}
