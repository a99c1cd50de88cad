package enrich

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/empresas-cli/internal/model"
	"github.com/sells-group/empresas-cli/internal/reference"
)

var fixedNow = time.Date(2026, 3, 14, 15, 9, 26, 0, time.Local)

func newTestEnricher(opts ...Option) *Enricher {
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	return New(reference.Default(), opts...)
}

func fullRecordTable() *model.Table {
	return model.NewTable(DefaultRelevantFields, []model.Row{{
		model.Str("Juan"), model.Str("Pérez"), model.Str("Ana"), model.Str("Ruiz"),
		model.Str("BOGOTÁ"), model.Str("11001000"), model.Str("3001234567"),
	}})
}

func TestCompleteness(t *testing.T) {
	tbl := model.NewTable(DefaultRelevantFields, []model.Row{
		{model.Str("Juan"), model.Str("Pérez"), model.Str("Ana"), model.Str("Ruiz"), model.Str("BOGOTÁ"), model.Str("11001000"), model.Str("3001234567")},
		{model.Str("Juan"), model.Str("  "), model.Null(), model.Str(""), model.Str("BOGOTÁ"), model.Null(), model.Str("3001234567")},
		make(model.Row, len(DefaultRelevantFields)),
	})
	assert.InDelta(t, 100.0, Completeness(tbl.Record(0), DefaultRelevantFields), 0.0001)
	assert.InDelta(t, 42.86, Completeness(tbl.Record(1), DefaultRelevantFields), 0.0001)
	assert.InDelta(t, 0.0, Completeness(tbl.Record(2), DefaultRelevantFields), 0.0001)
	assert.InDelta(t, 0.0, Completeness(tbl.Record(0), nil), 0.0001)
}

func TestCompleteness_MissingColumnCountsAsBlank(t *testing.T) {
	tbl := model.NewTable([]string{model.ColCity}, []model.Row{{model.Str("CALI")}})
	assert.InDelta(t, 14.29, Completeness(tbl.Record(0), DefaultRelevantFields), 0.0001)
}

func TestCompleteness_Monotonic(t *testing.T) {
	fields := DefaultRelevantFields
	row := make(model.Row, len(fields))
	prev := Completeness(model.NewTable(fields, []model.Row{row}).Record(0), fields)
	for i := range fields {
		row[i] = model.Str("x")
		got := Completeness(model.NewTable(fields, []model.Row{row}).Record(0), fields)
		assert.GreaterOrEqual(t, got, prev, "filling field %d", i)
		prev = got
	}
	assert.InDelta(t, 100.0, prev, 0.0001)
}

func TestRegion(t *testing.T) {
	e := newTestEnricher()
	tests := []struct {
		name string
		code model.Cell
		want model.Region
	}{
		{"bogota", model.Str("11001000"), "BOGOTÁ"},
		{"narino", model.Str("91001000"), "NARIÑO"},
		{"unmapped digit", model.Str("01001000"), model.RegionOther},
		{"absent", model.Null(), model.RegionUnknown},
		{"blank", model.Str(" "), model.RegionUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.Region(tt.code))
		})
	}
}

func TestSizeCategory(t *testing.T) {
	e := newTestEnricher()
	assert.Equal(t, model.SizeLarge, e.SizeCategory(model.Str("BOGOTÁ")))
	assert.Equal(t, model.SizeMedium, e.SizeCategory(model.Str("PEREIRA")))
	assert.Equal(t, model.SizeSmall, e.SizeCategory(model.Str("TUNJA")))
	assert.Equal(t, model.SizeSmall, e.SizeCategory(model.Null()))
}

func TestIDs(t *testing.T) {
	ids := IDs(fixedNow, 3)
	require.Len(t, ids, 3)
	re := regexp.MustCompile(`^EMP\d{8,9}$`)
	seen := map[string]bool{}
	for _, id := range ids {
		assert.Regexp(t, re, id)
		assert.False(t, seen[id])
		seen[id] = true
	}
	assert.Equal(t, ids, IDs(fixedNow, 3), "same clock yields same IDs")
}

func TestEnrich(t *testing.T) {
	e := newTestEnricher()
	in := fullRecordTable()
	ds := e.Enrich(in)

	require.Equal(t, 1, ds.Len())
	c := ds.Companies[0]
	assert.Equal(t, IDs(fixedNow, 1)[0], c.ID)
	assert.Equal(t, model.Region("BOGOTÁ"), c.Region)
	assert.Equal(t, model.SizeLarge, c.Size)
	assert.Equal(t, time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC), c.ProcessedAt)
	assert.InDelta(t, 100.0, c.Completeness, 0.0001)
	assert.Nil(t, c.Economic)
	assert.Empty(t, c.RiskLevel)

	ds.Table.Rows[0][0] = model.Str("changed")
	assert.Equal(t, "Juan", in.Rows[0][0].Value, "input table is not shared")
}

func TestEnrich_CustomRelevantFields(t *testing.T) {
	e := newTestEnricher(WithRelevantFields([]string{model.ColCity, "Missing"}))
	ds := e.Enrich(fullRecordTable())
	assert.InDelta(t, 50.0, ds.Companies[0].Completeness, 0.0001)
}

func TestJoinReference(t *testing.T) {
	e := newTestEnricher()
	tbl := model.NewTable([]string{model.ColCity, model.ColDANECode}, []model.Row{
		{model.Str("BOGOTÁ"), model.Str("11001000")},
		{model.Str("TUNJA"), model.Str("01001000")},
		{model.Str("LETICIA"), model.Null()},
	})
	ds := e.JoinReference(e.Enrich(tbl))
	require.Equal(t, 3, ds.Len())

	bog := ds.Companies[0]
	require.NotNil(t, bog.Economic)
	assert.InDelta(t, 25.6, bog.Economic.GDPPerCapita, 0.0001)
	require.NotNil(t, bog.Demographic)
	assert.Equal(t, 8180, bog.Demographic.Population)
	assert.Equal(t, "MUY FAVORABLE", bog.Climate)

	other := ds.Companies[1]
	require.NotNil(t, other.Economic, "OTHER has economic indicators")
	assert.InDelta(t, 12.0, other.Economic.GDPPerCapita, 0.0001)
	require.NotNil(t, other.Demographic)
	assert.Equal(t, 200, other.Demographic.Population)

	unknown := ds.Companies[2]
	assert.Equal(t, model.RegionUnknown, unknown.Region)
	assert.Nil(t, unknown.Economic)
	assert.Nil(t, unknown.Demographic)
	assert.Equal(t, "MODERADO", unknown.Climate)
}

func TestRiskScore(t *testing.T) {
	tests := []struct {
		name string
		in   Signals
		want int
	}{
		{"complete large", Signals{Completeness: 100, Region: "BOGOTÁ", Size: model.SizeLarge}, 5},
		{"boundary 80", Signals{Completeness: 80, Size: model.SizeLarge}, 5},
		{"below 80", Signals{Completeness: 79.99, Size: model.SizeLarge}, 6},
		{"boundary 60", Signals{Completeness: 60, Size: model.SizeLarge}, 6},
		{"below 60", Signals{Completeness: 59.99, Size: model.SizeLarge}, 7},
		{"other region", Signals{Completeness: 100, Region: model.RegionOther, Size: model.SizeLarge}, 6},
		{"high risk", Signals{Completeness: 100, Region: "CAUCA", HighRisk: true, Size: model.SizeLarge}, 7},
		{"small", Signals{Completeness: 100, Size: model.SizeSmall}, 6},
		{"worst case", Signals{Completeness: 0, Region: "NARIÑO", HighRisk: true, Size: model.SizeSmall}, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RiskScore(tt.in)
			assert.Equal(t, tt.want, got)
			assert.GreaterOrEqual(t, got, MinRiskScore)
			assert.LessOrEqual(t, got, MaxRiskScore)
		})
	}
}

func TestRiskLevelFor_Total(t *testing.T) {
	want := map[int]model.RiskLevel{
		0: model.RiskLow, 1: model.RiskLow, 2: model.RiskLow, 3: model.RiskLow,
		4: model.RiskMedium, 5: model.RiskMedium, 6: model.RiskMedium,
		7: model.RiskHigh, 8: model.RiskHigh, 9: model.RiskHigh,
		10: model.RiskCritical,
	}
	for score := MinRiskScore; score <= MaxRiskScore; score++ {
		assert.Equal(t, want[score], RiskLevelFor(score), "score %d", score)
	}
}

func TestScoreRisk(t *testing.T) {
	e := newTestEnricher()
	ds := e.ScoreRisk(e.JoinReference(e.Enrich(fullRecordTable())))
	c := ds.Companies[0]
	assert.Equal(t, 5, c.RiskScore)
	assert.Equal(t, model.RiskMedium, c.RiskLevel)
}

func TestScoreRisk_DoesNotMutateInput(t *testing.T) {
	e := newTestEnricher()
	in := e.Enrich(fullRecordTable())
	e.ScoreRisk(in)
	assert.Empty(t, in.Companies[0].RiskLevel)
}
