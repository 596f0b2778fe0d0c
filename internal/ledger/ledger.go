// Package ledger derives the overview screens from a list of invoices: the
// outstanding summary, grouped listings and the due-date calendar.
package ledger

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"invoicer/pkg/models"
)

// DefaultAgendaDays is the length of the due agenda.
const DefaultAgendaDays = 30

// Summary is the outstanding position at a point in time.
type Summary struct {
	OutstandingCount int
	OutstandingTotal decimal.Decimal
	Overdue          []models.Invoice
}

// Summarize counts and totals unpaid invoices and lists those past due.
func Summarize(invoices []models.Invoice, now time.Time) Summary {
	s := Summary{OutstandingTotal: decimal.Zero}
	for i := range invoices {
		inv := &invoices[i]
		if inv.IsPaid {
			continue
		}
		s.OutstandingCount++
		s.OutstandingTotal = s.OutstandingTotal.Add(inv.TotalAmount())
		if inv.IsOverdue(now) {
			s.Overdue = append(s.Overdue, *inv)
		}
	}
	return s
}

// Grouping selects how Group partitions invoices.
type Grouping string

const (
	GroupNone     Grouping = "none"
	GroupCustomer Grouping = "customer"
	GroupStatus   Grouping = "status"
)

// ParseGrouping accepts none, customer or status in any case.
func ParseGrouping(raw string) (Grouping, error) {
	switch g := Grouping(strings.ToLower(strings.TrimSpace(raw))); g {
	case "", GroupNone:
		return GroupNone, nil
	case GroupCustomer, GroupStatus:
		return g, nil
	default:
		return "", fmt.Errorf("unknown grouping %q (want none, customer or status)", raw)
	}
}

// InvoiceGroup is one section of a grouped listing.
type InvoiceGroup struct {
	Key      string
	Invoices []models.Invoice
}

// Group partitions invoices by customer name or status, sorted by key.
// Invoices keep their input order inside a group. GroupNone yields a single
// group with an empty key.
func Group(invoices []models.Invoice, grouping Grouping, hidePaid bool) []InvoiceGroup {
	var visible []models.Invoice
	for _, inv := range invoices {
		if hidePaid && inv.IsPaid {
			continue
		}
		visible = append(visible, inv)
	}

	var keyOf func(inv *models.Invoice) string
	switch grouping {
	case GroupCustomer:
		keyOf = func(inv *models.Invoice) string {
			if inv.Customer == nil {
				return models.NoCustomer
			}
			return inv.Customer.Name
		}
	case GroupStatus:
		keyOf = func(inv *models.Invoice) string { return inv.Status() }
	default:
		return []InvoiceGroup{{Key: "", Invoices: visible}}
	}

	index := map[string]int{}
	var groups []InvoiceGroup
	for i := range visible {
		key := keyOf(&visible[i])
		pos, ok := index[key]
		if !ok {
			pos = len(groups)
			index[key] = pos
			groups = append(groups, InvoiceGroup{Key: key})
		}
		groups[pos].Invoices = append(groups[pos].Invoices, visible[i])
	}
	sort.SliceStable(groups, func(a, b int) bool { return groups[a].Key < groups[b].Key })
	return groups
}

// DueOn returns the unpaid invoices due on the calendar day of day.
func DueOn(invoices []models.Invoice, day time.Time) []models.Invoice {
	var due []models.Invoice
	for _, inv := range invoices {
		if !inv.IsPaid && SameDay(inv.DueDate(), day) {
			due = append(due, inv)
		}
	}
	return due
}

// AgendaDay is one line of the due agenda.
type AgendaDay struct {
	Day time.Time
	Due []models.Invoice
}

// Agenda lists days consecutive days starting at the beginning of from's day
// with the invoices due on each. days <= 0 means DefaultAgendaDays.
func Agenda(invoices []models.Invoice, from time.Time, days int) []AgendaDay {
	if days <= 0 {
		days = DefaultAgendaDays
	}
	start := StartOfDay(from)
	agenda := make([]AgendaDay, 0, days)
	for i := 0; i < days; i++ {
		day := start.AddDate(0, 0, i)
		agenda = append(agenda, AgendaDay{Day: day, Due: DueOn(invoices, day)})
	}
	return agenda
}

// MonthGrid returns the cells of month's calendar page, week by week
// starting on firstWeekday. Cells outside the month are nil; the length is
// always a multiple of seven.
func MonthGrid(month time.Time, firstWeekday time.Weekday) []*time.Time {
	start := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, month.Location())
	daysInMonth := start.AddDate(0, 1, -1).Day()

	offset := (int(start.Weekday()) - int(firstWeekday) + 7) % 7
	total := offset + daysInMonth
	cells := make([]*time.Time, ((total+6)/7)*7)
	for d := 0; d < daysInMonth; d++ {
		day := start.AddDate(0, 0, d)
		cells[offset+d] = &day
	}
	return cells
}

// WeekdayLabels returns short weekday names starting at firstWeekday.
func WeekdayLabels(firstWeekday time.Weekday) []string {
	labels := make([]string, 7)
	for i := range labels {
		labels[i] = time.Weekday((int(firstWeekday) + i) % 7).String()[:3]
	}
	return labels
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// SameDay reports whether a and b fall on the same calendar day in b's
// location.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.In(b.Location()).Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
