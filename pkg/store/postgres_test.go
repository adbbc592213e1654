package store

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahems/SportsLeague/pkg/clients/postgres"
	sserr "github.com/ahems/SportsLeague/pkg/errors"
	"github.com/ahems/SportsLeague/pkg/models"
)

func newPostgresStore(t *testing.T) (Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		mock.Close()
	})
	return NewPostgres(postgres.NewFromPool(mock, "sportsleague"), "documents"), mock
}

func sqlPrefix(s string) string { return "^" + regexp.QuoteMeta(s) }

func TestPostgres_Get(t *testing.T) {
	s, mock := newPostgresStore(t)
	mock.ExpectQuery(sqlPrefix("SELECT body FROM documents WHERE partition_key = $1 AND id = $2")).
		WithArgs(models.PartitionProduct, "p1").
		WillReturnRows(pgxmock.NewRows([]string{"body"}).
			AddRow([]byte(`{"id":"p1","ProductId":"P-1","Name":"Ball","UnitPrice":9.99}`)))

	var p models.Product
	require.NoError(t, s.Get(context.Background(), models.PartitionProduct, "p1", &p))
	assert.Equal(t, "Ball", p.Name)
	assert.InDelta(t, 9.99, p.UnitPrice, 1e-9)
}

func TestPostgres_Get_NotFound(t *testing.T) {
	s, mock := newPostgresStore(t)
	mock.ExpectQuery(sqlPrefix("SELECT body FROM documents")).
		WithArgs(models.PartitionCart, "missing").
		WillReturnError(pgx.ErrNoRows)

	var c models.Cart
	err := s.Get(context.Background(), models.PartitionCart, "missing", &c)
	assert.True(t, sserr.HasCode(err, sserr.CodeNotFoundResource), "got %v", err)
}

func TestPostgres_Get_Errors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want sserr.Code
	}{
		{"database failure", errors.New("connection reset"), sserr.CodeInternalDatabase},
		{"deadline", context.DeadlineExceeded, sserr.CodeTimeoutDatabase},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newPostgresStore(t)
			mock.ExpectQuery(sqlPrefix("SELECT body FROM documents")).
				WithArgs(models.PartitionCart, "c1").
				WillReturnError(tt.err)

			var c models.Cart
			err := s.Get(context.Background(), models.PartitionCart, "c1", &c)
			assert.Equal(t, tt.want, sserr.GetCode(err))
		})
	}
}

func TestPostgres_Query_SortsRows(t *testing.T) {
	s, mock := newPostgresStore(t)
	mock.ExpectQuery(sqlPrefix("SELECT body FROM documents WHERE partition_key = $1")).
		WithArgs(models.PartitionCategory).
		WillReturnRows(pgxmock.NewRows([]string{"body"}).
			AddRow([]byte(`{"id":"b","CategoryId":"2","Name":"Shoes"}`)).
			AddRow([]byte(`{"id":"a","CategoryId":"1","Name":"Balls"}`)))

	var cats []models.Category
	require.NoError(t, s.Query(context.Background(), models.PartitionCategory, Query{OrderBy: "CategoryId"}, &cats))
	require.Len(t, cats, 2)
	assert.Equal(t, "Balls", cats[0].Name)
	assert.Equal(t, "Shoes", cats[1].Name)
}

func TestPostgres_Query_Error(t *testing.T) {
	s, mock := newPostgresStore(t)
	mock.ExpectQuery(sqlPrefix("SELECT body FROM documents")).
		WithArgs(models.PartitionOrder).
		WillReturnError(errors.New("relation does not exist"))

	var orders []models.Order
	err := s.Query(context.Background(), models.PartitionOrder, Query{}, &orders)
	assert.Equal(t, sserr.CodeInternalDatabase, sserr.GetCode(err))
}

func TestPostgres_Upsert(t *testing.T) {
	s, mock := newPostgresStore(t)
	mock.ExpectExec(sqlPrefix("INSERT INTO documents (partition_key, id, body)")).
		WithArgs(models.PartitionCart, "c1", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.Upsert(context.Background(), models.PartitionCart, "c1", &models.Cart{ID: "c1"}))
}

func TestPostgres_Delete(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		wantCode sserr.Code
	}{
		{"removed", 1, ""},
		{"missing", 0, sserr.CodeNotFoundResource},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newPostgresStore(t)
			mock.ExpectExec(sqlPrefix("DELETE FROM documents WHERE partition_key = $1 AND id = $2")).
				WithArgs(models.PartitionOrder, "o1").
				WillReturnResult(pgxmock.NewResult("DELETE", tt.affected))

			err := s.Delete(context.Background(), models.PartitionOrder, "o1")
			if tt.wantCode == "" {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tt.wantCode, sserr.GetCode(err))
		})
	}
}

func TestPostgres_Health(t *testing.T) {
	s, mock := newPostgresStore(t)
	mock.ExpectPing().WillReturnError(errors.New("down"))

	err := s.Health(context.Background())
	assert.True(t, sserr.IsUnavailable(err), "got %v", err)
}

func TestEnsureSchema(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	mock.ExpectExec(sqlPrefix("CREATE TABLE IF NOT EXISTS league_docs")).
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))

	require.NoError(t, EnsureSchema(context.Background(), postgres.NewFromPool(mock, "sportsleague"), "league_docs"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassify(t *testing.T) {
	already := sserr.New(sserr.CodeTimeoutDatabase, "already classified")
	assert.Same(t, already, classify(already, "ignored"))
	assert.Equal(t, sserr.CodeTimeoutDatabase, sserr.GetCode(classify(context.Canceled, "x")))
	assert.Equal(t, sserr.CodeInternalDatabase, sserr.GetCode(classify(errors.New("boom"), "x")))
}
