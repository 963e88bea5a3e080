package types

import (
	"math"
	"time"
)

// Missing marks an absent numeric reading on a WeatherDay.
var Missing = math.NaN()

// IsMissing reports whether v is absent or not a usable number.
func IsMissing(v float64) bool {
	return math.IsNaN(v) || math.IsInf(v, 0)
}

// WeatherDay is one calendar day of observed or forecast weather for a plot.
// Numeric fields hold Missing when the source had no reading.
type WeatherDay struct {
	Date time.Time

	TempMin  float64 // °C
	TempMax  float64 // °C
	TempMean float64 // °C

	RHMean    float64 // %
	RHMorning float64 // %, 06-09h local
	RHEvening float64 // %, 15-18h local

	Rain       float64 // mm
	RainChance float64 // %
	Wind       float64 // m/s

	SolarRad         float64 // MJ/m²
	SunshineHours    float64
	LeafWetnessHours float64
	VPD              float64 // kPa
	DewPoint         float64 // °C
	ET0              float64 // mm

	Fog bool
}

// NewWeatherDay returns a day with every reading marked missing.
func NewWeatherDay(date time.Time) WeatherDay {
	return WeatherDay{
		Date:             date,
		TempMin:          Missing,
		TempMax:          Missing,
		TempMean:         Missing,
		RHMean:           Missing,
		RHMorning:        Missing,
		RHEvening:        Missing,
		Rain:             Missing,
		RainChance:       Missing,
		Wind:             Missing,
		SolarRad:         Missing,
		SunshineHours:    Missing,
		LeafWetnessHours: Missing,
		VPD:              Missing,
		DewPoint:         Missing,
		ET0:              Missing,
	}
}

// WeatherWindow is a date-ordered slice of daily weather for one plot,
// together with the crop state the models need.
type WeatherWindow struct {
	PlotID     string
	Type       WindowType
	Start      time.Time
	End        time.Time
	Days       []WeatherDay
	Stage      CropStage
	Management ManagementContext
}

// Empty reports whether the window holds no days at all.
func (w *WeatherWindow) Empty() bool {
	return w == nil || len(w.Days) == 0
}

// Complete reports whether the window holds exactly one entry per calendar
// day from Start to End with strictly increasing dates. A short or gapped
// window is treated as insufficient data and never interpolated.
func (w *WeatherWindow) Complete() bool {
	if w.Empty() {
		return false
	}
	want := DaysBetween(w.Start, w.End) + 1
	if len(w.Days) != want {
		return false
	}
	for i, d := range w.Days {
		if !SameDay(d.Date, w.Start.AddDate(0, 0, i)) {
			return false
		}
	}
	return true
}

// MidpointDate returns the date halfway between the first and last day of
// the window, or the zero time when the window is empty.
func (w *WeatherWindow) MidpointDate() time.Time {
	if w.Empty() {
		return time.Time{}
	}
	first := w.Days[0].Date
	last := w.Days[len(w.Days)-1].Date
	return first.Add(last.Sub(first) / 2)
}

// LastDate returns the date of the final day in the window.
func (w *WeatherWindow) LastDate() time.Time {
	if w.Empty() {
		return time.Time{}
	}
	return w.Days[len(w.Days)-1].Date
}

// StartOfDay normalizes t to midnight in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	lt := t.In(loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, loc)
}

// CalendarDate returns midnight in loc of t's calendar date as read in t's
// own zone. DATE columns scan as UTC midnight; this keeps their day intact.
func CalendarDate(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// SameDay reports whether a and b fall on the same calendar date in a's zone.
func SameDay(a, b time.Time) bool {
	b = b.In(a.Location())
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

// DaysBetween returns the number of calendar days from a to b, each read as
// a date in its own zone.
func DaysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	ua := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	ub := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua).Hours() / 24)
}
