// Package model holds the shared domain types exchanged between the
// analysis pipeline, the reasoning service, and the HTTP API.
package model

import "github.com/rotisserie/eris"

// Severity classifies how far an anomaly departs from the regional
// background.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// Valid reports whether s is one of the known severity levels.
func (s Severity) Valid() bool {
	switch s {
	case SeverityHigh, SeverityMedium, SeverityLow:
		return true
	}
	return false
}

// Anomaly is one elevated-CO2 grid cell as presented to the reasoning
// service. CO2 and Deviation are in ppm; Date is the observation date in
// YYYY-MM-DD form.
type Anomaly struct {
	Lat       float64  `json:"lat"`
	Lon       float64  `json:"lon"`
	CO2       float64  `json:"co2"`
	Deviation float64  `json:"deviation"`
	Date      string   `json:"date"`
	Severity  Severity `json:"severity"`
	ZScore    float64  `json:"zscore"`
}

// Validate checks the fields a reasoning request depends on.
func (a Anomaly) Validate() error {
	if a.Lat < -90 || a.Lat > 90 {
		return eris.Errorf("model: latitude %f out of range", a.Lat)
	}
	if a.Lon < -180 || a.Lon > 180 {
		return eris.Errorf("model: longitude %f out of range", a.Lon)
	}
	if a.Date == "" {
		return eris.New("model: date is required")
	}
	if a.Severity != "" && !a.Severity.Valid() {
		return eris.Errorf("model: unknown severity %q", a.Severity)
	}
	return nil
}
