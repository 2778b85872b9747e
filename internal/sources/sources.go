package sources

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Jasani8259/Final-Capstone/internal/model"
)

const (
	ActivePatients    model.SourceID = "active_patients"
	AppointmentsToday model.SourceID = "appointments_today"
	AgeDemographics   model.SourceID = "age_demographics"
	MonthlyRiskTrends model.SourceID = "monthly_risk_trends"
	RecentLabReports  model.SourceID = "recent_lab_reports"
	LabReportCount    model.SourceID = "lab_report_count"
	LabReportsList    model.SourceID = "lab_reports_list"
	LabResults        model.SourceID = "lab_results"
	RiskScores        model.SourceID = "risk_scores"
	PatientTable      model.SourceID = "patient_table"
	PatientRecord     model.SourceID = "patient_record"
	AppointmentList   model.SourceID = "appointment_list"
)

// Transform turns a raw backend payload into a display-ready value. Any
// returned error marks the payload as malformed.
type Transform func(raw json.RawMessage) (any, error)

// Source is one pollable backend endpoint. A zero Interval means the poller
// default applies.
type Source struct {
	ID        model.SourceID
	Endpoint  string
	Interval  time.Duration
	Transform Transform
}

type Options struct {
	AppointmentCapacity int
	RecentLabLimit      int
	LabListLimit        int
}

func DefaultOptions() Options {
	return Options{AppointmentCapacity: 30, RecentLabLimit: 5, LabListLimit: 10}
}

type Registry struct {
	sources map[model.SourceID]Source
	order   []model.SourceID
}

func NewRegistry(opts Options) *Registry {
	defaults := DefaultOptions()
	if opts.AppointmentCapacity <= 0 {
		opts.AppointmentCapacity = defaults.AppointmentCapacity
	}
	if opts.RecentLabLimit <= 0 {
		opts.RecentLabLimit = defaults.RecentLabLimit
	}
	if opts.LabListLimit <= 0 {
		opts.LabListLimit = defaults.LabListLimit
	}

	r := &Registry{sources: make(map[model.SourceID]Source)}
	r.add(Source{ID: ActivePatients, Endpoint: "/active_patients", Transform: countRows})
	r.add(Source{ID: AppointmentsToday, Endpoint: "/appointments_today", Transform: capacityOf(opts.AppointmentCapacity)})
	r.add(Source{ID: AgeDemographics, Endpoint: "/age_demographics", Transform: ageGroups})
	r.add(Source{ID: MonthlyRiskTrends, Endpoint: "/monthly_risk_trends", Transform: monthlyRisk})
	r.add(Source{ID: RecentLabReports, Endpoint: "/recent_lab_reports", Transform: recentActivity(opts.RecentLabLimit)})
	r.add(Source{ID: LabReportCount, Endpoint: "/recent_lab_reports", Transform: countRows})
	r.add(Source{ID: LabReportsList, Endpoint: "/recent_lab_reports", Transform: labList(opts.LabListLimit)})
	r.add(Source{ID: LabResults, Endpoint: "/recent_lab_reports", Transform: labList(0)})
	r.add(Source{ID: RiskScores, Endpoint: "/risk_scores", Transform: riskHistory})
	r.add(Source{ID: PatientTable, Endpoint: "/active_patients", Transform: patientRows(0)})
	r.add(Source{ID: PatientRecord, Endpoint: "/active_patients", Transform: patientRows(1)})
	r.add(Source{ID: AppointmentList, Endpoint: "/appointments_today", Transform: appointmentEntries})
	return r
}

// Register adds a source outside the built-in table.
func (r *Registry) Register(source Source) error {
	if source.ID == "" || source.Endpoint == "" || source.Transform == nil {
		return fmt.Errorf("source %q is incomplete", source.ID)
	}
	if _, exists := r.sources[source.ID]; exists {
		return fmt.Errorf("source %q already registered", source.ID)
	}
	r.add(source)
	return nil
}

func (r *Registry) add(source Source) {
	r.sources[source.ID] = source
	r.order = append(r.order, source.ID)
}

func (r *Registry) Get(id model.SourceID) (Source, bool) {
	source, ok := r.sources[id]
	return source, ok
}

// Resolve looks up every id and fails on the first unknown one.
func (r *Registry) Resolve(ids []model.SourceID) ([]Source, error) {
	out := make([]Source, 0, len(ids))
	for _, id := range ids {
		source, ok := r.sources[id]
		if !ok {
			return nil, fmt.Errorf("unknown source %q", id)
		}
		out = append(out, source)
	}
	return out, nil
}

func (r *Registry) IDs() []model.SourceID {
	out := make([]model.SourceID, len(r.order))
	copy(out, r.order)
	return out
}
