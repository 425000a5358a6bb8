package httpapi

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Overland-East-Bay/fleet-console-api/internal/domain"
)

// listQuery is a parsed list request: the filter plus whether the cache may answer it.
type listQuery struct {
	Filter   domain.Filter
	UseCache bool
}

// parseListQuery reads filter parameters from a query string. Invalid values
// are collected into details keyed by parameter name.
func parseListQuery(q url.Values) (listQuery, map[string]any) {
	details := map[string]any{}
	opts := []domain.FilterOption{
		domain.WithSearch(q.Get("search")),
		domain.WithStatuses(splitList(q["status"])...),
		domain.WithPaymentStatuses(splitList(q["paymentStatus"])...),
		domain.WithCustomer(domain.CustomerID(q.Get("customerId"))),
		domain.WithVehicle(domain.VehicleID(q.Get("vehicleId"))),
	}

	from := parseDate(q, "from", details)
	to := parseDate(q, "to", details)
	if from != nil && to != nil && to.Before(*from) {
		details["to"] = "must not be before from"
	}
	opts = append(opts, domain.WithDateRange(from, to))

	asc := false
	switch strings.ToLower(q.Get("order")) {
	case "", "desc":
	case "asc":
		asc = true
	default:
		details["order"] = "must be asc or desc"
	}
	opts = append(opts, domain.WithSort(q.Get("sort"), asc))

	page := parseInt(q, "page", details)
	size := parseInt(q, "pageSize", details)
	if size > domain.MaxPageSize {
		details["pageSize"] = "must be <= " + strconv.Itoa(domain.MaxPageSize)
	}
	opts = append(opts, domain.WithPage(page, size))

	useCache := true
	if v := q.Get("fresh"); v != "" {
		fresh, err := strconv.ParseBool(v)
		if err != nil {
			details["fresh"] = "must be a boolean"
		}
		useCache = !fresh
	}

	if len(details) > 0 {
		return listQuery{}, details
	}
	return listQuery{Filter: domain.NewFilter(opts...), UseCache: useCache}, nil
}

func splitList(vs []string) []string {
	var out []string
	for _, v := range vs {
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

func parseDate(q url.Values, key string, details map[string]any) *time.Time {
	v := q.Get(key)
	if v == "" {
		return nil
	}
	t, err := time.Parse(time.DateOnly, v)
	if err != nil {
		details[key] = "must be YYYY-MM-DD"
		return nil
	}
	return &t
}

func parseInt(q url.Values, key string, details map[string]any) int {
	v := q.Get(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		details[key] = "must be a positive integer"
		return 0
	}
	return n
}
