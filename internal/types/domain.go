package types

import (
	"time"
)

// GeoPoint is a WGS84 coordinate.
type GeoPoint struct {
	Lat float64 `json:"lat" db:"location_lat" validate:"latitude"`
	Lng float64 `json:"lng" db:"location_lng" validate:"longitude"`
}

// Plot is a farm plot registered by a farmer.
type Plot struct {
	ID       string `json:"id" db:"id"`
	FarmerID string `json:"farmer_id" db:"farmer_id"`
	Name     string `json:"name" db:"name"`

	// Administrative hierarchy used for filtering and reporting.
	District string `json:"district,omitempty" db:"district"`
	Mandal   string `json:"mandal,omitempty" db:"mandal"`
	Village  string `json:"village,omitempty" db:"village"`

	// Location is nil when the farmer has not pinned the plot yet. Weather
	// ingestion is impossible without it.
	Location *GeoPoint `json:"location,omitempty" db:"-"`

	Crop       Crop       `json:"crop" db:"crop"`
	Variety    string     `json:"variety,omitempty" db:"variety"`
	SowingDate *time.Time `json:"sowing_date,omitempty" db:"sowing_date"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// FieldObservation is a scout report for a plot. Only the latest one feeds
// the risk engine.
type FieldObservation struct {
	ID         string        `json:"id" db:"id"`
	PlotID     string        `json:"plot_id" db:"plot_id"`
	ObservedAt time.Time     `json:"observed_at" db:"observed_at"`
	CropStage  CropStage     `json:"crop_stage,omitempty" db:"crop_stage"`
	Nitrogen   NitrogenLevel `json:"nitrogen_level,omitempty" db:"nitrogen_level"`
	Water      WaterStatus   `json:"water_status,omitempty" db:"water_status"`
}

// ManagementContext carries agronomic practice signals for a plot. Each
// field has a named unreported state rather than being optional.
type ManagementContext struct {
	Nitrogen NitrogenLevel `json:"nitrogen_level,omitempty"`
	Water    WaterStatus   `json:"water_status,omitempty"`
}

// NitrogenReported reports whether a nitrogen level was observed.
func (m ManagementContext) NitrogenReported() bool {
	return m.Nitrogen != NitrogenUnreported
}

// WaterReported reports whether a water status was observed.
func (m ManagementContext) WaterReported() bool {
	return m.Water != WaterUnreported
}

// PlotContext is everything the evaluator needs to know about a plot.
type PlotContext struct {
	Plot              Plot
	LatestObservation *FieldObservation
}

// Management derives the management context from the latest observation.
func (pc PlotContext) Management() ManagementContext {
	if pc.LatestObservation == nil {
		return ManagementContext{}
	}
	return ManagementContext{
		Nitrogen: pc.LatestObservation.Nitrogen,
		Water:    pc.LatestObservation.Water,
	}
}

// ObservedStage returns the stage reported in the latest observation, if any.
func (pc PlotContext) ObservedStage() (CropStage, bool) {
	if pc.LatestObservation == nil || pc.LatestObservation.CropStage == "" {
		return "", false
	}
	return pc.LatestObservation.CropStage, true
}

// RiskEventKey is the uniqueness key of a RiskEvent.
type RiskEventKey struct {
	PlotID  string
	Disease Disease
	Date    time.Time
	Source  RiskSource
}

// RiskEvent is the persisted risk snapshot for one disease on one plot and day.
type RiskEvent struct {
	ID          string     `json:"id" db:"id"`
	PlotID      string     `json:"plot_id" db:"plot_id"`
	Disease     Disease    `json:"disease" db:"disease"`
	Date        time.Time  `json:"date" db:"date"`
	Severity    Severity   `json:"severity" db:"severity"`
	Score       int        `json:"score" db:"score"`
	HorizonDays int        `json:"horizon_days" db:"horizon_days"`
	Explanation string     `json:"explanation" db:"explanation"`
	Drivers     Drivers    `json:"drivers,omitempty" db:"drivers"`
	Mode        Mode       `json:"mode" db:"mode"`
	Source      RiskSource `json:"source" db:"source"`
	CreatedBy   CreatedBy  `json:"created_by" db:"created_by"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// Key returns the event's uniqueness key.
func (e RiskEvent) Key() RiskEventKey {
	return RiskEventKey{PlotID: e.PlotID, Disease: e.Disease, Date: e.Date, Source: e.Source}
}

// BatchRun is the summary row written after each batch recompute.
type BatchRun struct {
	ID           string    `json:"id" db:"id"`
	RunDate      time.Time `json:"run_date" db:"run_date"`
	Mode         Mode      `json:"mode" db:"mode"`
	DaysWindow   int       `json:"days_window" db:"days_window"`
	TotalPlots   int       `json:"total_plots" db:"total_plots"`
	UpdatedPlots int       `json:"updated_plots" db:"updated_plots"`
	Errors       int       `json:"errors" db:"errors"`
	StartedAt    time.Time `json:"started_at" db:"started_at"`
	FinishedAt   time.Time `json:"finished_at" db:"finished_at"`
}

// PlotFilter narrows plot listings by administrative area.
type PlotFilter struct {
	District string
	Mandal   string
}
