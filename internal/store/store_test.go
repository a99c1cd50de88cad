package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/empresas-cli/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

// summaryDataset has two Bogotá companies, one without city or DANE code
// and one in Popayán.
func summaryDataset() *model.Dataset {
	bogota := &model.EconomicIndicators{GDPPerCapita: 25.6, Unemployment: 10.2, Growth: 3.2}
	tbl := model.NewTable([]string{model.ColCity, model.ColDANECode}, []model.Row{
		{model.Str("BOGOTÁ"), model.Str("11001000")},
		{model.Str("BOGOTÁ"), model.Str("11001000")},
		{model.Null(), model.Null()},
		{model.Str("POPAYÁN"), model.Str("05001000")},
	})
	return &model.Dataset{
		Table: tbl,
		Companies: []model.Company{
			{ID: "EMP00000001", Region: "BOGOTÁ", Completeness: 100, Economic: bogota, RiskScore: 2, RiskLevel: model.RiskLow},
			{ID: "EMP00000002", Region: "BOGOTÁ", Completeness: 50, Economic: bogota, RiskScore: 5, RiskLevel: model.RiskMedium},
			{ID: "EMP00000003", Region: model.RegionUnknown, Completeness: 20, RiskScore: 7, RiskLevel: model.RiskHigh},
			{ID: "EMP00000004", Region: "CAUCA", Completeness: 80, Economic: &model.EconomicIndicators{GDPPerCapita: 11.5}, RiskScore: 5, RiskLevel: model.RiskMedium},
		},
	}
}

func TestSQLite_SaveAndListRuns(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	start := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)

	first := &model.Run{ID: "run-1", Source: "BD.xlsx", Status: model.RunStatusFailed, StartedAt: start, Error: "boom"}
	second := &model.Run{
		ID: "run-2", Source: "BD.xlsx", Status: model.RunStatusCleaning, StartedAt: start.Add(time.Hour),
		Phases: []model.PhaseResult{{Name: "clean", Status: model.PhaseStatusComplete, Duration: 12}},
	}
	require.NoError(t, st.SaveRun(ctx, first))
	require.NoError(t, st.SaveRun(ctx, second))

	// Saving again updates in place.
	second.Status = model.RunStatusComplete
	second.RowsIn, second.RowsOut = 10, 8
	second.CompletedAt = start.Add(2 * time.Hour)
	require.NoError(t, st.SaveRun(ctx, second))

	runs, err := st.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	assert.Equal(t, "run-2", runs[0].ID)
	assert.Equal(t, model.RunStatusComplete, runs[0].Status)
	assert.Equal(t, 10, runs[0].RowsIn)
	assert.Equal(t, 8, runs[0].RowsOut)
	assert.True(t, runs[0].CompletedAt.Equal(start.Add(2*time.Hour)))
	require.Len(t, runs[0].Phases, 1)
	assert.Equal(t, "clean", runs[0].Phases[0].Name)

	assert.Equal(t, "run-1", runs[1].ID)
	assert.Equal(t, "boom", runs[1].Error)
	assert.True(t, runs[1].CompletedAt.IsZero())

	limited, err := st.ListRuns(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestSQLite_ReplaceCompanies(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	ds := summaryDataset()

	n, err := st.ReplaceCompanies(ctx, ds.ToTable())
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	// Replacing again leaves only the new rows.
	ds.Table.Rows = ds.Table.Rows[:2]
	ds.Companies = ds.Companies[:2]
	n, err = st.ReplaceCompanies(ctx, ds.ToTable())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	var count int
	require.NoError(t, st.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM empresas`).Scan(&count))
	assert.Equal(t, 2, count)

	var (
		code  string
		score int64
		gdp   float64
		pop   sql.NullInt64
	)
	require.NoError(t, st.db.QueryRowContext(ctx,
		`SELECT "CodDANE", "Puntuacion_Riesgo", "PIB_Per_Capita", "Poblacion" FROM empresas WHERE "ID_Empresa" = ?`,
		"EMP00000002").Scan(&code, &score, &gdp, &pop))
	assert.Equal(t, "11001000", code)
	assert.Equal(t, int64(5), score)
	assert.InDelta(t, 25.6, gdp, 1e-9)
	assert.False(t, pop.Valid)
}

func TestSQLite_WriteSummaries(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.WriteSummaries(ctx, BuildSummaries(summaryDataset())))

	rows, err := st.db.QueryContext(ctx,
		`SELECT "Region", "Total_Empresas", "Puntuacion_Riesgo", "PIB_Per_Capita" FROM resumen_region ORDER BY "Region"`)
	require.NoError(t, err)
	defer rows.Close() //nolint:errcheck

	type regionRow struct {
		region string
		total  int
		risk   float64
		gdp    sql.NullFloat64
	}
	var got []regionRow
	for rows.Next() {
		var r regionRow
		require.NoError(t, rows.Scan(&r.region, &r.total, &r.risk, &r.gdp))
		got = append(got, r)
	}
	require.NoError(t, rows.Err())
	require.Len(t, got, 3)
	assert.Equal(t, "BOGOTÁ", got[0].region)
	assert.Equal(t, 2, got[0].total)
	assert.InDelta(t, 3.5, got[0].risk, 1e-9)
	assert.True(t, got[0].gdp.Valid)
	assert.Equal(t, "UNKNOWN", got[2].region)
	assert.False(t, got[2].gdp.Valid)

	var cities, levels int
	require.NoError(t, st.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM resumen_ciudad`).Scan(&cities))
	require.NoError(t, st.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM distribucion_riesgo`).Scan(&levels))
	assert.Equal(t, 2, cities)
	assert.Equal(t, 3, levels)

	var medium int
	require.NoError(t, st.db.QueryRowContext(ctx,
		`SELECT "Cantidad" FROM distribucion_riesgo WHERE "Nivel_Riesgo" = 'MEDIUM'`).Scan(&medium))
	assert.Equal(t, 2, medium)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, DriverNone, "")
	require.NoError(t, err)
	assert.Nil(t, s)

	path := filepath.Join(t.TempDir(), "nested", "dir", "empresas.db")
	s, err = Open(ctx, DriverSQLite, path)
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.FileExists(t, path)
	require.NoError(t, s.SaveRun(ctx, &model.Run{ID: "x", Source: "a", Status: model.RunStatusQueued, StartedAt: time.Now()}))
	require.NoError(t, s.Close())

	_, err = Open(ctx, "oracle", "")
	assert.ErrorContains(t, err, `unknown driver "oracle"`)
}
