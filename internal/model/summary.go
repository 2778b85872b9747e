package model

import "time"

type SourceID string

type SummaryStatus string

const (
	StatusFresh       SummaryStatus = "fresh"
	StatusStale       SummaryStatus = "stale"
	StatusUnavailable SummaryStatus = "unavailable"
)

// Summary is the latest display-ready value for one data source. Value is
// nil only when Status is unavailable.
type Summary struct {
	Source    SourceID      `json:"source"`
	Status    SummaryStatus `json:"status"`
	Value     any           `json:"value,omitempty"`
	FreshAt   *time.Time    `json:"freshAt,omitempty"`
	CheckedAt time.Time     `json:"checkedAt"`
	Error     string        `json:"error,omitempty"`
	Failures  int           `json:"consecutiveFailures"`
}

type Count struct {
	Value   int    `json:"value"`
	Display string `json:"display"`
}

type Capacity struct {
	Count     int `json:"count"`
	Remaining int `json:"remaining"`
	Capacity  int `json:"capacity"`
}

type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

type PeriodAverage struct {
	Period  string  `json:"period"`
	Label   string  `json:"label"`
	Average float64 `json:"average"`
}

type Entry struct {
	Title  string `json:"title"`
	Detail string `json:"detail,omitempty"`
	Date   string `json:"date"`
	Text   string `json:"text"`
}

type RiskPoint struct {
	Date             string  `json:"date"`
	HeartDiseaseRisk float64 `json:"heartDiseaseRisk"`
	DiabetesRisk     float64 `json:"diabetesRisk"`
}

type PatientRow struct {
	FirstName     string `json:"firstName"`
	LastName      string `json:"lastName"`
	Gender        string `json:"gender"`
	DateOfBirth   string `json:"dateOfBirth"`
	CheckInStatus string `json:"checkInStatus,omitempty"`
}
