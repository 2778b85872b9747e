package sources

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/Jasani8259/Final-Capstone/internal/backend"
	"github.com/Jasani8259/Final-Capstone/internal/model"
)

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006-01",
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", backend.ErrMalformed, fmt.Sprintf(format, args...))
}

func parseDate(value string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", value)
}

// decodeRows accepts only a JSON array; null and objects are malformed.
func decodeRows[T any](raw json.RawMessage) ([]T, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, malformed("expected a JSON array")
	}
	var rows []T
	if err := json.Unmarshal(trimmed, &rows); err != nil {
		return nil, malformed("decode rows: %v", err)
	}
	return rows, nil
}

func text(row int, field string, value *string) (string, error) {
	if value == nil {
		return "", malformed("row %d: missing %s", row, field)
	}
	return *value, nil
}

func number(row int, field string, value *float64) (float64, error) {
	if value == nil {
		return 0, malformed("row %d: missing %s", row, field)
	}
	return *value, nil
}

func date(row int, field string, value *string) (string, time.Time, error) {
	raw, err := text(row, field, value)
	if err != nil {
		return "", time.Time{}, err
	}
	t, err := parseDate(raw)
	if err != nil {
		return "", time.Time{}, malformed("row %d: %s: %v", row, field, err)
	}
	return raw, t, nil
}

func groupThousands(n int) string {
	return message.NewPrinter(language.English).Sprintf("%d", n)
}

func countRows(raw json.RawMessage) (any, error) {
	rows, err := decodeRows[json.RawMessage](raw)
	if err != nil {
		return nil, err
	}
	return model.Count{Value: len(rows), Display: groupThousands(len(rows))}, nil
}

func capacityOf(capacity int) Transform {
	return func(raw json.RawMessage) (any, error) {
		rows, err := decodeRows[json.RawMessage](raw)
		if err != nil {
			return nil, err
		}
		count := len(rows)
		return model.Capacity{Count: count, Remaining: max(0, capacity-count), Capacity: capacity}, nil
	}
}

type ageRow struct {
	AgeGroup *string  `json:"age_group"`
	Count    *float64 `json:"count"`
}

func ageGroups(raw json.RawMessage) (any, error) {
	rows, err := decodeRows[ageRow](raw)
	if err != nil {
		return nil, err
	}
	out := make([]model.CategoryCount, 0, len(rows))
	index := make(map[string]int)
	for i, row := range rows {
		group, err := text(i, "age_group", row.AgeGroup)
		if err != nil {
			return nil, err
		}
		count, err := number(i, "count", row.Count)
		if err != nil {
			return nil, err
		}
		if count < 0 {
			return nil, malformed("row %d: negative count", i)
		}
		if at, ok := index[group]; ok {
			out[at].Count += int(math.Round(count))
			continue
		}
		index[group] = len(out)
		out = append(out, model.CategoryCount{Category: group, Count: int(math.Round(count))})
	}
	return out, nil
}

type monthRow struct {
	Month        *string  `json:"month"`
	AvgHeartRisk *float64 `json:"avg_heart_risk"`
}

func monthlyRisk(raw json.RawMessage) (any, error) {
	rows, err := decodeRows[monthRow](raw)
	if err != nil {
		return nil, err
	}
	type bucket struct {
		start time.Time
		sum   float64
		n     int
	}
	buckets := make(map[string]*bucket)
	for i, row := range rows {
		_, t, err := date(i, "month", row.Month)
		if err != nil {
			return nil, err
		}
		risk, err := number(i, "avg_heart_risk", row.AvgHeartRisk)
		if err != nil {
			return nil, err
		}
		key := t.Format("2006-01")
		b, ok := buckets[key]
		if !ok {
			b = &bucket{start: time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)}
			buckets[key] = b
		}
		b.sum += risk
		b.n++
	}

	out := make([]model.PeriodAverage, 0, len(buckets))
	for key, b := range buckets {
		out = append(out, model.PeriodAverage{Period: key, Label: b.start.Format("Jan"), Average: b.sum / float64(b.n)})
	}
	slices.SortFunc(out, func(a, b model.PeriodAverage) int {
		switch {
		case a.Period < b.Period:
			return -1
		case a.Period > b.Period:
			return 1
		}
		return 0
	})
	return out, nil
}

type labRow struct {
	FirstName  *string `json:"first_name"`
	LastName   *string `json:"last_name"`
	ReportType *string `json:"report_type"`
	ReportDate *string `json:"report_date"`
	Result     *string `json:"result"`
}

type datedEntry struct {
	at    time.Time
	entry model.Entry
}

// newestFirst sorts by date descending, keeps payload order on ties and
// truncates to limit when limit is positive.
func newestFirst(entries []datedEntry, limit int) []model.Entry {
	slices.SortStableFunc(entries, func(a, b datedEntry) int {
		return b.at.Compare(a.at)
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	out := make([]model.Entry, len(entries))
	for i, e := range entries {
		out[i] = e.entry
	}
	return out
}

func recentActivity(limit int) Transform {
	return func(raw json.RawMessage) (any, error) {
		rows, err := decodeRows[labRow](raw)
		if err != nil {
			return nil, err
		}
		entries := make([]datedEntry, 0, len(rows))
		for i, row := range rows {
			first, err := text(i, "first_name", row.FirstName)
			if err != nil {
				return nil, err
			}
			last, err := text(i, "last_name", row.LastName)
			if err != nil {
				return nil, err
			}
			kind, err := text(i, "report_type", row.ReportType)
			if err != nil {
				return nil, err
			}
			when, at, err := date(i, "report_date", row.ReportDate)
			if err != nil {
				return nil, err
			}
			name := first + " " + last
			entries = append(entries, datedEntry{at: at, entry: model.Entry{
				Title:  name,
				Detail: kind,
				Date:   when,
				Text:   fmt.Sprintf("%s - %s on %s", name, kind, when),
			}})
		}
		return newestFirst(entries, limit), nil
	}
}

func labList(limit int) Transform {
	return func(raw json.RawMessage) (any, error) {
		rows, err := decodeRows[labRow](raw)
		if err != nil {
			return nil, err
		}
		entries := make([]datedEntry, 0, len(rows))
		for i, row := range rows {
			kind, err := text(i, "report_type", row.ReportType)
			if err != nil {
				return nil, err
			}
			result, err := text(i, "result", row.Result)
			if err != nil {
				return nil, err
			}
			when, at, err := date(i, "report_date", row.ReportDate)
			if err != nil {
				return nil, err
			}
			entries = append(entries, datedEntry{at: at, entry: model.Entry{
				Title:  kind,
				Detail: result,
				Date:   when,
				Text:   fmt.Sprintf("%s - %s (%s)", kind, result, when),
			}})
		}
		return newestFirst(entries, limit), nil
	}
}

type riskRow struct {
	ScoreDate        *string  `json:"score_date"`
	HeartDiseaseRisk *float64 `json:"heart_disease_risk"`
	DiabetesRisk     *float64 `json:"diabetes_risk"`
}

func riskHistory(raw json.RawMessage) (any, error) {
	rows, err := decodeRows[riskRow](raw)
	if err != nil {
		return nil, err
	}
	type point struct {
		at time.Time
		p  model.RiskPoint
	}
	points := make([]point, 0, len(rows))
	for i, row := range rows {
		when, at, err := date(i, "score_date", row.ScoreDate)
		if err != nil {
			return nil, err
		}
		heart, err := number(i, "heart_disease_risk", row.HeartDiseaseRisk)
		if err != nil {
			return nil, err
		}
		diabetes, err := number(i, "diabetes_risk", row.DiabetesRisk)
		if err != nil {
			return nil, err
		}
		points = append(points, point{at: at, p: model.RiskPoint{Date: when, HeartDiseaseRisk: heart, DiabetesRisk: diabetes}})
	}
	slices.SortStableFunc(points, func(a, b point) int { return a.at.Compare(b.at) })

	out := make([]model.RiskPoint, len(points))
	for i, p := range points {
		out[i] = p.p
	}
	return out, nil
}

type patientRow struct {
	FirstName     *string `json:"first_name"`
	LastName      *string `json:"last_name"`
	Gender        *string `json:"gender"`
	DateOfBirth   *string `json:"date_of_birth"`
	CheckInStatus *string `json:"check_in_status"`
}

// patientRows projects the patient list; a positive limit keeps only the
// leading rows.
func patientRows(limit int) Transform {
	return func(raw json.RawMessage) (any, error) {
		rows, err := decodeRows[patientRow](raw)
		if err != nil {
			return nil, err
		}
		if limit > 0 && len(rows) > limit {
			rows = rows[:limit]
		}
		out := make([]model.PatientRow, 0, len(rows))
		for i, row := range rows {
			first, err := text(i, "first_name", row.FirstName)
			if err != nil {
				return nil, err
			}
			last, err := text(i, "last_name", row.LastName)
			if err != nil {
				return nil, err
			}
			gender, err := text(i, "gender", row.Gender)
			if err != nil {
				return nil, err
			}
			dob, _, err := date(i, "date_of_birth", row.DateOfBirth)
			if err != nil {
				return nil, err
			}
			status := ""
			if row.CheckInStatus != nil {
				status = *row.CheckInStatus
			}
			out = append(out, model.PatientRow{FirstName: first, LastName: last, Gender: gender, DateOfBirth: dob, CheckInStatus: status})
		}
		return out, nil
	}
}

type appointmentRow struct {
	AppointmentDate *string `json:"appointment_date"`
	DoctorName      *string `json:"doctor_name"`
}

func appointmentEntries(raw json.RawMessage) (any, error) {
	rows, err := decodeRows[appointmentRow](raw)
	if err != nil {
		return nil, err
	}
	out := make([]model.Entry, 0, len(rows))
	for i, row := range rows {
		when, _, err := date(i, "appointment_date", row.AppointmentDate)
		if err != nil {
			return nil, err
		}
		doctor, err := text(i, "doctor_name", row.DoctorName)
		if err != nil {
			return nil, err
		}
		out = append(out, model.Entry{Title: doctor, Date: when, Text: when + " - " + doctor})
	}
	return out, nil
}
