// Package handlers contains the HTTP handlers of the risk API.
//
// Handlers depend on small locally defined interfaces rather than concrete
// services so they can be tested with httptest and in-memory fakes.
package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"plotrisk/internal/types"
)

// Query parameter names. days_window also accepts the camel-case spelling
// used by older cron callers.
const (
	paramMode       = "mode"
	paramDaysWindow = "days_window"
	paramDaysCamel  = "daysWindow"
	paramLimit      = "limit"
	paramDistrict   = "district"
	paramMandal     = "mandal"
	paramWait       = "wait"
	paramDate       = "date"
)

const (
	defaultRiskLimit = 100
	maxRiskLimit     = 1000
	defaultHistory   = 30
	maxHistory       = 200
)

// queryMode returns the upper-cased mode parameter, or "" when absent.
func queryMode(r *http.Request) (types.Mode, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(paramMode))
	if raw == "" {
		return "", nil
	}
	return types.ParseMode(strings.ToUpper(raw))
}

// queryDays returns the days window parameter, or 0 when absent.
func queryDays(r *http.Request) (int, error) {
	q := r.URL.Query()
	raw := q.Get(paramDaysWindow)
	if raw == "" {
		raw = q.Get(paramDaysCamel)
	}
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, types.NewAppErrorWithDetails(types.ErrCodeValidationInvalidDaysWindow,
			"days_window must be an integer", err, map[string]any{"days_window": raw})
	}
	return n, nil
}

// queryInt parses an optional positive integer parameter, capped at max.
func queryInt(r *http.Request, name string, def, max int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, types.NewAppErrorWithDetails(types.ErrCodeValidationInvalidRequest,
			fmt.Sprintf("%s must be a positive integer", name), err, map[string]any{name: raw})
	}
	if n > max {
		n = max
	}
	return n, nil
}

func queryBool(r *http.Request, name string) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get(name))
	return err == nil && v
}

func queryFilter(r *http.Request) types.PlotFilter {
	q := r.URL.Query()
	return types.PlotFilter{
		District: strings.TrimSpace(q.Get(paramDistrict)),
		Mandal:   strings.TrimSpace(q.Get(paramMandal)),
	}
}
