// Package report derives statistics from attendance records. Every function
// is pure: records are already scoped and authorized by the caller, nothing
// here touches storage, and identical inputs always produce identical
// outputs.
package report

import (
	"math"
	"sort"

	"studentmanagement/internal/account"
	"studentmanagement/internal/ledger"
	"studentmanagement/internal/roster"
)

// Percentage returns round(100 * present / total) in 0..100, and 0 for an
// empty input rather than faulting on the division.
func Percentage(records []ledger.AttendanceRecord) int {
	if len(records) == 0 {
		return 0
	}
	present := 0
	for _, rec := range records {
		if rec.Present {
			present++
		}
	}
	return int(math.Round(100 * float64(present) / float64(len(records))))
}

// TrendPoint is one day's attendance percentage.
type TrendPoint struct {
	Date       ledger.Date `json:"date"`
	Percentage int         `json:"percentage"`
}

// DailyTrend groups records by date and computes the per-date percentage,
// sorted ascending by date. Dates absent from the input are omitted, not
// interpolated to zero.
func DailyTrend(records []ledger.AttendanceRecord) []TrendPoint {
	byDate := make(map[string][]ledger.AttendanceRecord)
	dates := make(map[string]ledger.Date)
	for _, rec := range records {
		key := rec.Date.String()
		byDate[key] = append(byDate[key], rec)
		dates[key] = rec.Date
	}

	keys := make([]string, 0, len(byDate))
	for key := range byDate {
		keys = append(keys, key)
	}
	sort.Strings(keys) // YYYY-MM-DD sorts chronologically

	points := make([]TrendPoint, 0, len(keys))
	for _, key := range keys {
		points = append(points, TrendPoint{Date: dates[key], Percentage: Percentage(byDate[key])})
	}
	return points
}

// ClassDistribution counts students per class name. Every class appears in
// the result, zero counts included, so chart axes stay complete.
func ClassDistribution(students []account.User, classes []roster.ClassSection) map[string]int {
	dist := make(map[string]int, len(classes))
	nameByID := make(map[string]string, len(classes))
	for _, cls := range classes {
		dist[cls.Name] = 0
		nameByID[cls.ID] = cls.Name
	}
	for _, stu := range students {
		if stu.ClassID == nil {
			continue
		}
		if name, ok := nameByID[*stu.ClassID]; ok {
			dist[name]++
		}
	}
	return dist
}

// Summary is the dashboard-facing rollup of a record sequence.
type Summary struct {
	Total      int `json:"total"`
	Present    int `json:"present"`
	Absent     int `json:"absent"`
	Percentage int `json:"percentage"`
}

// Summarize computes present/absent counts and the overall percentage.
func Summarize(records []ledger.AttendanceRecord) Summary {
	s := Summary{Total: len(records)}
	for _, rec := range records {
		if rec.Present {
			s.Present++
		}
	}
	s.Absent = s.Total - s.Present
	s.Percentage = Percentage(records)
	return s
}
