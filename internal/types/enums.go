package types

import "fmt"

// Crop identifies the crop grown on a plot.
type Crop string

const (
	CropRice      Crop = "RICE"
	CropChilli    Crop = "CHILLI"
	CropBlackgram Crop = "BLACKGRAM"
	CropMaize     Crop = "MAIZE"
)

// AllCrops returns every crop the platform knows about.
func AllCrops() []Crop {
	return []Crop{CropRice, CropChilli, CropBlackgram, CropMaize}
}

// Disease identifies a (crop, disease) pair that has a scoring model.
type Disease string

const (
	DiseasePaddyBlast        Disease = "PADDY_BLAST"
	DiseasePaddyBLB          Disease = "PADDY_BLB"
	DiseasePaddySheathBlight Disease = "PADDY_SHEATH_BLIGHT"
	DiseasePaddyBrownSpot    Disease = "PADDY_BROWN_SPOT"

	DiseaseChilliAnthracnose   Disease = "CHILLI_ANTHRACNOSE"
	DiseaseChilliPowderyMildew Disease = "CHILLI_POWDERY_MILDEW"
	DiseaseChilliThrips        Disease = "CHILLI_THRIPS"

	DiseaseBlackgramPowderyMildew Disease = "BLACKGRAM_POWDERY_MILDEW"
	DiseaseBlackgramLeafSpot      Disease = "BLACKGRAM_LEAF_SPOT"
	DiseaseBlackgramYMV           Disease = "BLACKGRAM_YMV"

	DiseaseMaizeFAW        Disease = "MAIZE_FAW"
	DiseaseMaizeLeafBlight Disease = "MAIZE_LEAF_BLIGHT"
)

// AllDiseases returns the full disease enumeration in canonical order.
// The dispatch registry is validated against this list at startup.
func AllDiseases() []Disease {
	return []Disease{
		DiseasePaddyBlast,
		DiseasePaddyBLB,
		DiseasePaddySheathBlight,
		DiseasePaddyBrownSpot,
		DiseaseChilliAnthracnose,
		DiseaseChilliPowderyMildew,
		DiseaseChilliThrips,
		DiseaseBlackgramPowderyMildew,
		DiseaseBlackgramLeafSpot,
		DiseaseBlackgramYMV,
		DiseaseMaizeFAW,
		DiseaseMaizeLeafBlight,
	}
}

// Severity is the categorical risk label persisted on a RiskEvent.
type Severity string

const (
	SeverityGreen  Severity = "GREEN"
	SeverityYellow Severity = "YELLOW"
	SeverityOrange Severity = "ORANGE"
	SeverityRed    Severity = "RED"

	// Legacy labels. Still readable from storage, never produced by the engine.
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Mode is the evaluation horizon strategy.
type Mode string

const (
	ModePast      Mode = "PAST"
	ModeForecast  Mode = "FORECAST"
	ModeProactive Mode = "PROACTIVE"
)

// ParseMode converts a caller-supplied string into a Mode.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModePast, ModeForecast, ModeProactive:
		return m, nil
	}
	return "", NewAppError(ErrCodeValidationInvalidMode, fmt.Sprintf("unknown mode %q", s), nil)
}

// Source returns the persisted source tag for the mode. The tag is part of
// the RiskEvent uniqueness key, so each mode owns its own row per day.
func (m Mode) Source() RiskSource {
	switch m {
	case ModePast:
		return SourceWeatherPast
	case ModeForecast:
		return SourceWeatherForecast
	case ModeProactive:
		return SourceWeatherProactive
	}
	return SourceWeatherLegacy
}

// WindowType tags a WeatherWindow as observed or predicted data.
type WindowType string

const (
	WindowPast     WindowType = "PAST"
	WindowForecast WindowType = "FORECAST"
)

// RiskSource is the discriminator stored on each RiskEvent.
type RiskSource string

const (
	SourceWeatherPast      RiskSource = "WEATHER_V2_PAST"
	SourceWeatherForecast  RiskSource = "WEATHER_V2_FORECAST"
	SourceWeatherProactive RiskSource = "WEATHER_V2_PROACTIVE"
	SourceWeatherLegacy    RiskSource = "WEATHER_V2"
	SourceModel            RiskSource = "MODEL"
	SourceManual           RiskSource = "MANUAL"
)

// CreatedBy records which origin produced a RiskEvent.
type CreatedBy string

const (
	CreatedByRuleEngine CreatedBy = "RULE_ENGINE"
	CreatedByModel      CreatedBy = "MODEL"
	CreatedByManual     CreatedBy = "MANUAL"
)

// CropStage is the growth stage of the crop on a plot.
type CropStage string

const (
	StageNursery     CropStage = "nursery"
	StageTillering   CropStage = "tillering"
	StagePanicleInit CropStage = "panicle-init"
	StageBooting     CropStage = "booting"
	StageHeading     CropStage = "heading"
	StageMaturity    CropStage = "maturity"
	StageUnknown     CropStage = "unknown"
)

// NitrogenLevel is the reported nitrogen application level. The zero value
// means nothing was reported for the plot.
type NitrogenLevel string

const (
	NitrogenUnreported NitrogenLevel = ""
	NitrogenLow        NitrogenLevel = "LOW"
	NitrogenMedium     NitrogenLevel = "MEDIUM"
	NitrogenHigh       NitrogenLevel = "HIGH"
)

// WaterStatus is the reported field water status. The zero value means
// nothing was reported for the plot.
type WaterStatus string

const (
	WaterUnreported WaterStatus = ""
	WaterFlooded    WaterStatus = "FLOODED"
	WaterNormal     WaterStatus = "NORMAL"
	WaterStressed   WaterStatus = "STRESSED"
)
