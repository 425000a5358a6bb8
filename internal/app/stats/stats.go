// Package stats derives summary figures from a loaded collection of records.
//
// The Compute functions are pure: "this month" is decided by the now argument
// (its year, month and location), never by reading the wall clock.
package stats

import (
	"time"

	"github.com/Overland-East-Bay/fleet-console-api/internal/domain"
)

type ContractStats struct {
	Total           int
	ByStatus        map[domain.ContractStatus]int
	ByPaymentStatus map[domain.PaymentStatus]int
	Active          int

	TotalRevenue      domain.Money
	Collected         domain.Money
	Outstanding       domain.Money
	AdditionalCharges domain.Money
	AverageValue      domain.Money
	// CollectionRate is Collected as a percentage of TotalRevenue plus AdditionalCharges.
	CollectionRate float64

	ThisMonthCount   int
	ThisMonthRevenue domain.Money
}

func ComputeContracts(items []domain.Contract, now time.Time) ContractStats {
	s := ContractStats{
		Total:           len(items),
		ByStatus:        make(map[domain.ContractStatus]int, len(domain.ContractStatuses)),
		ByPaymentStatus: make(map[domain.PaymentStatus]int, 3),
	}
	for _, st := range domain.ContractStatuses {
		s.ByStatus[st] = 0
	}
	for _, ps := range []domain.PaymentStatus{domain.PaymentStatusPending, domain.PaymentStatusPartial, domain.PaymentStatusPaid} {
		s.ByPaymentStatus[ps] = 0
	}

	for _, c := range items {
		s.ByStatus[c.Status]++
		s.ByPaymentStatus[c.PaymentStatus]++
		s.TotalRevenue += c.TotalAmount
		s.Collected += c.PaidAmount
		s.Outstanding += c.RemainingAmount
		s.AdditionalCharges += c.AdditionalCharges
		if sameMonth(c.CreatedAt, now) {
			s.ThisMonthCount++
			s.ThisMonthRevenue += c.TotalAmount
		}
	}
	s.Active = s.ByStatus[domain.ContractStatusActive]

	if s.Total > 0 {
		s.AverageValue = s.TotalRevenue / domain.Money(s.Total)
	}
	s.CollectionRate = percent(int64(s.Collected), int64(s.TotalRevenue+s.AdditionalCharges))
	return s
}

type CustomerStats struct {
	Total        int
	ByStatus     map[domain.CustomerStatus]int
	Active       int
	Blacklisted  int
	NewThisMonth int
	// ContactRate is the percentage of customers with an email on file.
	ContactRate float64
}

func ComputeCustomers(items []domain.Customer, now time.Time) CustomerStats {
	s := CustomerStats{
		Total:    len(items),
		ByStatus: make(map[domain.CustomerStatus]int, len(domain.CustomerStatuses)),
	}
	for _, st := range domain.CustomerStatuses {
		s.ByStatus[st] = 0
	}

	withEmail := 0
	for _, c := range items {
		s.ByStatus[c.Status]++
		if c.Email != nil && *c.Email != "" {
			withEmail++
		}
		if sameMonth(c.CreatedAt, now) {
			s.NewThisMonth++
		}
	}
	s.Active = s.ByStatus[domain.CustomerStatusActive]
	s.Blacklisted = s.ByStatus[domain.CustomerStatusBlacklisted]
	s.ContactRate = percent(int64(withEmail), int64(s.Total))
	return s
}

// percent returns 100*part/whole rounded to two decimals, or 0 when whole is not positive.
func percent(part, whole int64) float64 {
	if whole <= 0 {
		return 0
	}
	v := float64(part) * 100 / float64(whole)
	return float64(int64(v*100+0.5)) / 100
}

func sameMonth(t, now time.Time) bool {
	if t.IsZero() {
		return false
	}
	t = t.In(now.Location())
	return t.Year() == now.Year() && t.Month() == now.Month()
}
