package domain

import (
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Filter describes one query against a record family: free-text search, membership
// filters, related-record equality, a date range and the page window.
//
// Filter is a value: every method returns a copy. Two filters are the same query
// iff their Key values are byte-equal.
type Filter struct {
	Search          string
	Statuses        []string
	PaymentStatuses []string
	CustomerID      string
	VehicleID       string

	// From/To bound the family's date column (contract start date, customer created date).
	// Both are inclusive and carry date-only semantics.
	From *time.Time
	To   *time.Time

	// SortBy names an explicit column; empty means newest first by creation time.
	SortBy  string
	SortAsc bool

	Page     int
	PageSize int
}

// FilterOption sets one field of a Filter under construction.
type FilterOption func(*Filter)

// NewFilter builds a normalized filter. Option order does not affect the result.
func NewFilter(opts ...FilterOption) Filter {
	var f Filter
	for _, opt := range opts {
		opt(&f)
	}
	return f.Normalized()
}

func WithSearch(s string) FilterOption { return func(f *Filter) { f.Search = s } }

func WithStatuses(ss ...string) FilterOption {
	return func(f *Filter) { f.Statuses = append(f.Statuses, ss...) }
}

func WithPaymentStatuses(ss ...string) FilterOption {
	return func(f *Filter) { f.PaymentStatuses = append(f.PaymentStatuses, ss...) }
}

func WithCustomer(id CustomerID) FilterOption { return func(f *Filter) { f.CustomerID = string(id) } }
func WithVehicle(id VehicleID) FilterOption   { return func(f *Filter) { f.VehicleID = string(id) } }

func WithDateRange(from, to *time.Time) FilterOption {
	return func(f *Filter) {
		f.From = from
		f.To = to
	}
}

func WithSort(column string, asc bool) FilterOption {
	return func(f *Filter) {
		f.SortBy = column
		f.SortAsc = asc
	}
}

func WithPage(page, pageSize int) FilterOption {
	return func(f *Filter) {
		f.Page = page
		f.PageSize = pageSize
	}
}

// Normalized returns the canonical form of f: trimmed and lower-cased search text,
// sorted de-duplicated membership lists, UTC dates truncated to the day and a
// defaulted page window.
func (f Filter) Normalized() Filter {
	out := f
	out.Search = NormalizeSearch(f.Search)
	out.Statuses = normalizeSet(f.Statuses)
	out.PaymentStatuses = normalizeSet(f.PaymentStatuses)
	out.CustomerID = strings.TrimSpace(f.CustomerID)
	out.VehicleID = strings.TrimSpace(f.VehicleID)
	out.From = dayPtr(f.From)
	out.To = dayPtr(f.To)
	out.SortBy = strings.ToLower(strings.TrimSpace(f.SortBy))
	if out.SortBy == "" {
		out.SortAsc = false
	}
	if out.Page < 1 {
		out.Page = 1
	}
	if out.PageSize < 1 {
		out.PageSize = DefaultPageSize
	}
	if out.PageSize > MaxPageSize {
		out.PageSize = MaxPageSize
	}
	return out
}

// WithPageNumber returns a copy of f pointing at another page of the same query.
func (f Filter) WithPageNumber(page int) Filter {
	out := f.Normalized()
	if page < 1 {
		page = 1
	}
	out.Page = page
	return out
}

// WithoutPaging returns the predicate part of f, used for count queries.
func (f Filter) WithoutPaging() Filter {
	out := f.Normalized()
	out.Page = 0
	out.PageSize = 0
	return out
}

// Window is the offset/limit pair for the filter's page.
func (f Filter) Window() Window {
	n := f.Normalized()
	return Window{Offset: (n.Page - 1) * n.PageSize, Limit: n.PageSize}
}

// Key is the canonical serialization of f and the cache key for its page.
func (f Filter) Key() string {
	n := f.Normalized()
	v := url.Values{}
	if n.Search != "" {
		v.Set("q", n.Search)
	}
	if len(n.Statuses) > 0 {
		v.Set("status", strings.Join(n.Statuses, ","))
	}
	if len(n.PaymentStatuses) > 0 {
		v.Set("payment", strings.Join(n.PaymentStatuses, ","))
	}
	if n.CustomerID != "" {
		v.Set("customer", n.CustomerID)
	}
	if n.VehicleID != "" {
		v.Set("vehicle", n.VehicleID)
	}
	if n.From != nil {
		v.Set("from", n.From.Format(time.DateOnly))
	}
	if n.To != nil {
		v.Set("to", n.To.Format(time.DateOnly))
	}
	if n.SortBy != "" {
		dir := "desc"
		if n.SortAsc {
			dir = "asc"
		}
		v.Set("sort", n.SortBy+":"+dir)
	}
	v.Set("page", strconv.Itoa(n.Page))
	v.Set("size", strconv.Itoa(n.PageSize))
	// Encode sorts by key.
	return v.Encode()
}

// HasStatus reports whether s passes the membership filter (an empty filter passes everything).
func (f Filter) HasStatus(s string) bool {
	return len(f.Statuses) == 0 || slices.Contains(f.Statuses, strings.ToLower(s))
}

func (f Filter) HasPaymentStatus(s string) bool {
	return len(f.PaymentStatuses) == 0 || slices.Contains(f.PaymentStatuses, strings.ToLower(s))
}

// InRange reports whether the day of t falls inside [From, To].
func (f Filter) InRange(t time.Time) bool {
	d := Day(t)
	if f.From != nil && d.Before(*f.From) {
		return false
	}
	if f.To != nil && d.After(*f.To) {
		return false
	}
	return true
}

// Day truncates t to midnight UTC of its calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dayPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := Day(*t)
	return &d
}

func normalizeSet(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	slices.Sort(out)
	out = slices.Compact(out)
	if len(out) == 0 {
		return nil
	}
	return out
}
