package assistant

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"tindahan/backend/internal/store"
)

// params reads model or client supplied parameters. Keys are matched in
// snake_case first, then camelCase.
type params map[string]any

func (p params) lookup(keys ...string) (any, bool) {
	for _, key := range keys {
		if v, ok := p[key]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func (p params) str(keys ...string) string {
	v, ok := p.lookup(keys...)
	if !ok {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

// dec parses a numeric parameter exactly. The boolean reports presence.
func (p params) dec(field string, keys ...string) (decimal.Decimal, bool, error) {
	v, ok := p.lookup(keys...)
	if !ok {
		return decimal.Zero, false, nil
	}
	var (
		d   decimal.Decimal
		err error
	)
	switch t := v.(type) {
	case json.Number:
		d, err = decimal.NewFromString(t.String())
	case string:
		if strings.TrimSpace(t) == "" {
			return decimal.Zero, false, nil
		}
		d, err = decimal.NewFromString(strings.TrimSpace(t))
	case float64:
		d = decimal.NewFromFloat(t)
	case int:
		d = decimal.NewFromInt(int64(t))
	case int64:
		d = decimal.NewFromInt(t)
	default:
		err = fmt.Errorf("unsupported type %T", v)
	}
	if err != nil {
		return decimal.Zero, true, store.Invalid(field, "must be a number")
	}
	return d, true, nil
}

func (p params) whole(field string, keys ...string) (int64, bool, error) {
	d, ok, err := p.dec(field, keys...)
	if err != nil || !ok {
		return 0, ok, err
	}
	if !d.IsInteger() {
		return 0, true, store.Invalid(field, "must be a whole number")
	}
	return d.IntPart(), true, nil
}
