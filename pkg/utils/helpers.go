package utils

import (
	"fmt"
	"math"
	"math/rand"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// colorPalette is the fixed 15-color palette used for store charts.
// Stores are assigned colors in first-seen order, wrapping around.
var colorPalette = []string{
	"#117733",
	"#44AA99",
	"#88CCEE",
	"#DDCC77",
	"#CC6677",
	"#AA4499",
	"#882255",
	"#E69F00",
	"#56B4E9",
	"#009E73",
	"#F0E442",
	"#0072B2",
	"#D55E00",
	"#CC79A7",
	"#000000",
}

// DeliveryColor is reserved for the synthetic home-delivery store and is
// never handed out from the palette.
const DeliveryColor = "#332288"

// ColorFor returns the palette color for an assignment index, wrapping
// around when the palette is exhausted.
func ColorFor(index int) string {
	return colorPalette[index%len(colorPalette)]
}

var (
	whitespaceRuns = regexp.MustCompile(`\s+`)
	nonSafeIDChars = regexp.MustCompile(`[^a-zA-Z0-9-]`)
)

// SanitizeName derives a stable identifier from a free-text product name:
// whitespace runs become a single hyphen and everything outside
// [A-Za-z0-9-] is stripped. Duplicate names collapse to the same ID.
func SanitizeName(name string) string {
	safe := whitespaceRuns.ReplaceAllString(name, "-")
	return nonSafeIDChars.ReplaceAllString(safe, "")
}

// MapPurchaseType maps raw purchase channel labels onto the canonical
// set. Unrecognised labels pass through unchanged.
func MapPurchaseType(raw string) string {
	switch strings.ToLower(raw) {
	case "in_store", "instore":
		return "In store"
	case "ghs":
		return "Delivery"
	default:
		return raw
	}
}

// FormatISODate renders a date as YYYY-MM-DD using its own calendar
// fields, without timezone conversion.
func FormatISODate(t time.Time) string {
	return t.Format("2006-01-02")
}

// FormatDisplayDate renders a date as dd/mm/yyyy.
func FormatDisplayDate(t time.Time) string {
	return t.Format("02/01/2006")
}

// FormatPrettyDate renders a date as e.g. "2 Jan 2024".
func FormatPrettyDate(t time.Time) string {
	return t.Format("2 Jan 2006")
}

// FormatGBP formats a monetary value as en-GB currency text, e.g.
// "£1,234.56". Negative values keep the sign ahead of the symbol.
func FormatGBP(value float64) string {
	sign := ""
	if value < 0 {
		sign = "-"
		value = -value
	}
	cents := int64(math.Round(value * 100))
	whole := cents / 100
	pence := cents % 100

	digits := strconv.FormatInt(whole, 10)
	var grouped strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			grouped.WriteByte(',')
		}
		grouped.WriteRune(d)
	}
	return fmt.Sprintf("%s£%s.%02d", sign, grouped.String(), pence)
}

// OffsetRange is the fixed perturbation range for anonymized monetary
// values. Not caller-configurable.
const OffsetRange = 0.2

// RandomOffset returns a uniform value in [-r/2, r/2) where r is the
// perturbation range. The pipeline always passes OffsetRange.
func RandomOffset(r float64) float64 {
	return rand.Float64()*r - r/2
}

// Perturb applies an offset to a monetary value and formats the result
// to two decimals. Exact zero stays "0.00" so a zero-activity week
// cannot be told apart from a near-zero one by its perturbed value.
func Perturb(value, offset float64) string {
	if math.Abs(value) < 1e-9 {
		return "0.00"
	}
	return strconv.FormatFloat(value+offset, 'f', 2, 64)
}

// FormatNumber renders a float the way the raw export does: shortest
// representation, no trailing zeros. Used when composing hash inputs.
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Numeric safely converts supported types to float64.
func Numeric(v interface{}) float64 {
	switch val := v.(type) {
	case int:
		return float64(val)
	case int64:
		return float64(val)
	case float64:
		return val
	case float32:
		return float64(val)
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return f
		}
		return 0
	default:
		if v == nil {
			return 0
		}
		rv := reflect.ValueOf(v)
		if rv.Kind() >= reflect.Int && rv.Kind() <= reflect.Float64 {
			return rv.Convert(reflect.TypeOf(float64(0))).Float()
		}
		return 0
	}
}

// Str renders any JSON-decoded value as a string. Floats that carry no
// fraction (JSON numbers decode as float64) drop the ".0" suffix so
// store IDs like 4425 round-trip cleanly.
func Str(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", val)
	}
}
