package store

import (
	"context"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/empresas-cli/internal/db"
	"github.com/sells-group/empresas-cli/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS ejecuciones`).
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Migrate_Error(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS ejecuciones`).WillReturnError(fmt.Errorf("permission denied"))

	err := s.Migrate(context.Background())
	assert.ErrorContains(t, err, "postgres: migrate")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveRun_Upsert(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE "_tmp_upsert_ejecuciones"`).
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_ejecuciones"}, runsDef.ColumnNames()).WillReturnResult(1)
	mock.ExpectExec(regexp.QuoteMeta(`ON CONFLICT ("id") DO UPDATE`)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	err := s.SaveRun(context.Background(), &model.Run{
		ID: "run-1", Source: "BD.xlsx", Status: model.RunStatusComplete, StartedAt: time.Now(),
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ReplaceCompanies(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	tbl := summaryDataset().ToTable()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DROP TABLE IF EXISTS "empresas"`)).
		WillReturnResult(pgxmock.NewResult("DROP TABLE", 0))
	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE "empresas" ("Ciudad_Act" TEXT, "CodDANE" TEXT, "ID_Empresa" TEXT`)).
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"empresas"}, tbl.Columns).WillReturnResult(4)
	mock.ExpectCommit()

	n, err := s.ReplaceCompanies(context.Background(), tbl)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_WriteSummaries(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	for _, def := range []db.TableDef{regionSummaryDef, citySummaryDef, riskCountsDef} {
		mock.ExpectBegin()
		mock.ExpectExec(`DROP TABLE IF EXISTS "` + def.Name + `"`).WillReturnResult(pgxmock.NewResult("DROP TABLE", 0))
		mock.ExpectExec(`CREATE TABLE "` + def.Name + `"`).WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
		mock.ExpectCopyFrom(pgx.Identifier{def.Name}, def.ColumnNames()).WillReturnResult(1)
		mock.ExpectCommit()
	}

	require.NoError(t, s.WriteSummaries(context.Background(), BuildSummaries(summaryDataset())))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListRuns_Error(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, source, status`).WithArgs(100).WillReturnError(fmt.Errorf("connection reset"))

	_, err := s.ListRuns(context.Background(), 0)
	assert.ErrorContains(t, err, "postgres: list runs")
	assert.NoError(t, mock.ExpectationsWereMet())
}
