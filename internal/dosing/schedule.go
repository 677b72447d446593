package dosing

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/tao-dosing-engine/internal/domain"
)

// halfTabletPriority is the order in which 2.5 mg remainders are handed out. It spreads
// the heavier days across the week instead of clustering them.
var halfTabletPriority = [7]time.Weekday{
	time.Monday, time.Thursday, time.Saturday, time.Tuesday,
	time.Friday, time.Sunday, time.Wednesday,
}

// weekOrder is the presentation order of a schedule, Monday first.
var weekOrder = [7]time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
	time.Friday, time.Saturday, time.Sunday,
}

// SynthesizeWeeklySchedule spreads a weekly dose over seven days in half-tablet steps.
// The loading supplement is added to today only and is not part of the recurring total.
func SynthesizeWeeklySchedule(weeklyDose, loading float64, today time.Weekday) (*domain.WeeklyDoseSchedule, error) {
	if math.IsNaN(weeklyDose) || weeklyDose <= 0 {
		return nil, domain.NewValidationError("weekly_dose_mg", "weekly dose must be positive", weeklyDose)
	}
	if math.IsNaN(loading) || loading < 0 {
		return nil, domain.NewValidationError("loading_supplement_mg", "loading supplement cannot be negative", loading)
	}
	if today < time.Sunday || today > time.Saturday {
		return nil, domain.NewValidationError("today", "unknown weekday", int(today))
	}

	weekly := RoundToNearest(weeklyDose, HalfTablet)
	if weekly <= 0 {
		return nil, domain.NewValidationError("weekly_dose_mg", "weekly dose rounds to zero", weeklyDose)
	}
	rounded := RoundToNearest(loading, HalfTablet)
	if loading > 0 && rounded <= 0 {
		return nil, domain.NewValidationError("loading_supplement_mg", "loading supplement rounds to zero", loading)
	}
	loading = rounded

	// Work in half-tablet units so the sum is exact.
	halves := int(math.Round(weekly / HalfTablet))
	base := 2 * (halves / 14)
	perDay := make(map[time.Weekday]int, 7)
	for _, d := range weekOrder {
		perDay[d] = base
	}
	for i, rest := 0, halves-7*base; rest > 0; i, rest = i+1, rest-1 {
		perDay[halfTabletPriority[i%7]]++
	}

	s := &domain.WeeklyDoseSchedule{
		WeeklyDose:        weekly,
		LoadingSupplement: loading,
		ReportedTotal:     weekly + loading,
	}
	for i, d := range weekOrder {
		s.Days[i] = domain.DailyDose{
			Day:     d,
			Dose:    float64(perDay[d]) * HalfTablet,
			Tablets: describeTablets(perDay[d]),
		}
		if d == today {
			s.Days[i].Loading = loading
		}
	}
	s.Pattern = describePattern(s, today)
	return s, nil
}

// ScheduleFor renders the weekly plan of a recommendation. It returns nil when therapy
// is suspended.
func ScheduleFor(rec *domain.DoseRecommendation, today time.Weekday) (*domain.WeeklyDoseSchedule, error) {
	if rec == nil || rec.TherapySuspended {
		return nil, nil
	}
	s, err := SynthesizeWeeklySchedule(rec.SuggestedWeeklyDose, rec.LoadingSupplement, today)
	if err != nil {
		return nil, err
	}
	if rec.DoseSuspensions > 0 {
		s.Pattern = fmt.Sprintf("Hold the next %d dose(s), then: %s", rec.DoseSuspensions, s.Pattern)
	}
	return s, nil
}

// describeTablets renders a count of half tablets as 5 mg tablet fractions.
func describeTablets(halves int) string {
	whole, half := halves/2, halves%2
	switch {
	case halves == 0:
		return "none"
	case whole == 0:
		return "1/2 tablet"
	case half == 0 && whole == 1:
		return "1 tablet"
	case half == 0:
		return fmt.Sprintf("%d tablets", whole)
	default:
		return fmt.Sprintf("%d 1/2 tablets", whole)
	}
}

// describePattern groups weekdays by dose, heaviest first, e.g.
// "5 mg Mon, Tue, Thu, Fri, Sat; 2.5 mg Wed, Sun".
func describePattern(s *domain.WeeklyDoseSchedule, today time.Weekday) string {
	groups := make(map[float64][]string)
	for _, d := range s.Days {
		groups[d.Dose] = append(groups[d.Dose], d.Day.String()[:3])
	}
	doses := make([]float64, 0, len(groups))
	for dose := range groups {
		doses = append(doses, dose)
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(doses)))

	parts := make([]string, 0, len(doses))
	for _, dose := range doses {
		parts = append(parts, fmt.Sprintf("%s mg %s", formatMg(dose), strings.Join(groups[dose], ", ")))
	}
	pattern := strings.Join(parts, "; ")
	if s.LoadingSupplement > 0 {
		pattern += fmt.Sprintf(" (+%s mg loading today, %s)", formatMg(s.LoadingSupplement), today.String()[:3])
	}
	return pattern
}

func formatMg(v float64) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.1f", v)
}
