package sources

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jasani8259/Final-Capstone/internal/backend"
	"github.com/Jasani8259/Final-Capstone/internal/model"
)

func transformOf(t *testing.T, id model.SourceID) Transform {
	t.Helper()
	source, ok := NewRegistry(DefaultOptions()).Get(id)
	require.True(t, ok, "source %s not registered", id)
	return source.Transform
}

func rows(n int, row string) json.RawMessage {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = row
	}
	return json.RawMessage("[" + strings.Join(parts, ",") + "]")
}

func TestActivePatientsCount(t *testing.T) {
	value, err := transformOf(t, ActivePatients)(rows(7, `{"first_name":"A"}`))
	require.NoError(t, err)
	assert.Equal(t, model.Count{Value: 7, Display: "7"}, value)

	value, err = transformOf(t, ActivePatients)(rows(1234, `{}`))
	require.NoError(t, err)
	assert.Equal(t, "1,234", value.(model.Count).Display)
}

func TestAppointmentsRemainingCapacity(t *testing.T) {
	transform := transformOf(t, AppointmentsToday)

	value, err := transform(rows(5, `{"appointment_date":"2024-03-01","doctor_name":"Dr. Doe"}`))
	require.NoError(t, err)
	assert.Equal(t, model.Capacity{Count: 5, Remaining: 25, Capacity: 30}, value)

	value, err = transform(rows(42, `{}`))
	require.NoError(t, err)
	assert.Equal(t, 0, value.(model.Capacity).Remaining)
}

func TestAgeDemographicsGroupsInFirstSeenOrder(t *testing.T) {
	raw := json.RawMessage(`[
		{"age_group":"18-30","count":4},
		{"age_group":"60+","count":2},
		{"age_group":"18-30","count":3}
	]`)
	value, err := transformOf(t, AgeDemographics)(raw)
	require.NoError(t, err)
	assert.Equal(t, []model.CategoryCount{{Category: "18-30", Count: 7}, {Category: "60+", Count: 2}}, value)
}

func TestMonthlyRiskTrendsAveragesChronologically(t *testing.T) {
	raw := json.RawMessage(`[
		{"month":"2024-03-01","avg_heart_risk":0.5},
		{"month":"2024-01","avg_heart_risk":0.2},
		{"month":"2024-03-15T00:00:00","avg_heart_risk":0.3}
	]`)
	value, err := transformOf(t, MonthlyRiskTrends)(raw)
	require.NoError(t, err)
	trend := value.([]model.PeriodAverage)
	require.Len(t, trend, 2)
	assert.Equal(t, "2024-01", trend[0].Period)
	assert.Equal(t, "Jan", trend[0].Label)
	assert.Equal(t, "Mar", trend[1].Label)
	assert.InDelta(t, 0.4, trend[1].Average, 1e-9)
}

const labPayload = `[
	{"first_name":"Ann","last_name":"Lee","report_type":"CBC","report_date":"2024-01-02","result":"Normal"},
	{"first_name":"Bo","last_name":"Kim","report_type":"Lipid","report_date":"2024-03-05","result":"High"},
	{"first_name":"Cy","last_name":"Ray","report_type":"A1C","report_date":"2024-02-10","result":"6.1"}
]`

func TestRecentLabReportsNewestFirst(t *testing.T) {
	value, err := transformOf(t, RecentLabReports)(json.RawMessage(labPayload))
	require.NoError(t, err)
	entries := value.([]model.Entry)
	require.Len(t, entries, 3)
	assert.Equal(t, "Bo Kim - Lipid on 2024-03-05", entries[0].Text)
	assert.Equal(t, "Ann Lee - CBC on 2024-01-02", entries[2].Text)
}

func TestLabListsApplyLimits(t *testing.T) {
	registry := NewRegistry(Options{LabListLimit: 2, RecentLabLimit: 1})

	source, _ := registry.Get(LabReportsList)
	value, err := source.Transform(json.RawMessage(labPayload))
	require.NoError(t, err)
	entries := value.([]model.Entry)
	require.Len(t, entries, 2)
	assert.Equal(t, "Lipid - High (2024-03-05)", entries[0].Text)
	assert.Equal(t, "A1C - 6.1 (2024-02-10)", entries[1].Text)

	source, _ = registry.Get(RecentLabReports)
	value, err = source.Transform(json.RawMessage(labPayload))
	require.NoError(t, err)
	assert.Len(t, value.([]model.Entry), 1)

	source, _ = registry.Get(LabResults)
	value, err = source.Transform(json.RawMessage(labPayload))
	require.NoError(t, err)
	assert.Len(t, value.([]model.Entry), 3)

	source, _ = registry.Get(LabReportCount)
	value, err = source.Transform(json.RawMessage(labPayload))
	require.NoError(t, err)
	assert.Equal(t, 3, value.(model.Count).Value)
}

func TestRiskScoresChronological(t *testing.T) {
	raw := json.RawMessage(`[
		{"score_date":"2024-02-01","heart_disease_risk":0.3,"diabetes_risk":0.1},
		{"score_date":"2024-01-01","heart_disease_risk":0.2,"diabetes_risk":0.4}
	]`)
	value, err := transformOf(t, RiskScores)(raw)
	require.NoError(t, err)
	assert.Equal(t, []model.RiskPoint{
		{Date: "2024-01-01", HeartDiseaseRisk: 0.2, DiabetesRisk: 0.4},
		{Date: "2024-02-01", HeartDiseaseRisk: 0.3, DiabetesRisk: 0.1},
	}, value)
}

func TestPatientProjections(t *testing.T) {
	raw := json.RawMessage(`[
		{"first_name":"Alice","last_name":"Smith","gender":"F","date_of_birth":"1990-05-01","check_in_status":"Checked In","extra":1},
		{"first_name":"Bob","last_name":"Jones","gender":"M","date_of_birth":"1985-02-11"}
	]`)
	value, err := transformOf(t, PatientTable)(raw)
	require.NoError(t, err)
	table := value.([]model.PatientRow)
	require.Len(t, table, 2)
	assert.Equal(t, "", table[1].CheckInStatus)

	value, err = transformOf(t, PatientRecord)(raw)
	require.NoError(t, err)
	assert.Equal(t, []model.PatientRow{{FirstName: "Alice", LastName: "Smith", Gender: "F", DateOfBirth: "1990-05-01", CheckInStatus: "Checked In"}}, value)
}

func TestAppointmentList(t *testing.T) {
	raw := json.RawMessage(`[{"appointment_date":"2024-03-01T09:00:00","doctor_name":"Dr. John Doe"}]`)
	value, err := transformOf(t, AppointmentList)(raw)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01T09:00:00 - Dr. John Doe", value.([]model.Entry)[0].Text)
}

func TestMalformedPayloads(t *testing.T) {
	cases := []struct {
		name string
		id   model.SourceID
		raw  string
	}{
		{"object instead of array", ActivePatients, `{"count":7}`},
		{"null", AppointmentsToday, `null`},
		{"missing field", AgeDemographics, `[{"age_group":"18-30"}]`},
		{"wrong type", AgeDemographics, `[{"age_group":"18-30","count":"many"}]`},
		{"bad month", MonthlyRiskTrends, `[{"month":"March","avg_heart_risk":0.1}]`},
		{"bad report date", RecentLabReports, `[{"first_name":"A","last_name":"B","report_type":"CBC","report_date":"yesterday"}]`},
		{"missing result", LabReportsList, `[{"report_type":"CBC","report_date":"2024-01-01"}]`},
		{"missing risk", RiskScores, `[{"score_date":"2024-01-01","heart_disease_risk":0.1}]`},
		{"missing doctor", AppointmentList, `[{"appointment_date":"2024-01-01"}]`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := transformOf(t, tc.id)(json.RawMessage(tc.raw))
			require.Error(t, err)
			assert.True(t, errors.Is(err, backend.ErrMalformed), "expected ErrMalformed, got %v", err)
		})
	}
}

func TestRegistryResolve(t *testing.T) {
	registry := NewRegistry(DefaultOptions())
	resolved, err := registry.Resolve([]model.SourceID{ActivePatients, RiskScores})
	require.NoError(t, err)
	assert.Equal(t, "/risk_scores", resolved[1].Endpoint)

	_, err = registry.Resolve([]model.SourceID{"nope"})
	assert.Error(t, err)
	assert.Len(t, registry.IDs(), 12)
}
