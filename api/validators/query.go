package validators

import (
	"net/http"
	"strconv"
	"strings"

	pkgerrors "github.com/angelmondragon/easyshop-backend/pkg/errors"
)

// ParseQueryInt reads an optional integer query parameter bounded to [min, max].
// A missing or blank value yields def.
func ParseQueryInt(r *http.Request, key string, def, min, max int) (int, error) {
	raw, ok := queryValue(r, key)
	if !ok {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, queryError(key, "must be a whole number", nil)
	}
	if n < min || n > max {
		return 0, queryError(key, "is out of range", map[string]any{"min": min, "max": max})
	}
	return n, nil
}

// ParseQueryFilter reads an optional enum-like filter. Blank and "all" both
// mean no filter and return ok=false; parse converts anything else.
func ParseQueryFilter[T any](r *http.Request, key string, parse func(string) (T, error)) (value T, ok bool, err error) {
	raw, present := queryValue(r, key)
	if !present || strings.EqualFold(raw, "all") {
		return value, false, nil
	}
	value, err = parse(raw)
	if err != nil {
		return value, false, queryError(key, "is not a recognised value", map[string]any{"value": raw})
	}
	return value, true, nil
}

func queryValue(r *http.Request, key string) (string, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	return raw, raw != ""
}

func queryError(key, problem string, extra map[string]any) error {
	details := map[string]any{"field": key}
	for k, v := range extra {
		details[k] = v
	}
	return pkgerrors.Newf(pkgerrors.CodeValidation, "query parameter %s %s", key, problem).WithDetails(details)
}
