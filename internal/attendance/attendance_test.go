package attendance

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studentrecords/internal/apperr"
	"studentrecords/internal/logging"
	"studentrecords/internal/store"
)

const (
	studentA = "5b1c9c3e-8f3a-4c59-9a55-3f3f0d1e2a10"
	studentB = "6c2d0d4f-9a4b-4d6a-8b66-404f1e2f3b21"
)

func TestParseDateFormats(t *testing.T) {
	iso, err := ParseDate("2024-03-15")
	require.NoError(t, err)
	legacy, err := ParseDate("15-03-2024")
	require.NoError(t, err)
	assert.Equal(t, iso, legacy)
	assert.Equal(t, "2024-03-15", legacy.String())

	for _, bad := range []string{"", "2024/03/15", "31-02-2024", "2024-13-01", "15-3-2024"} {
		_, err := ParseDate(bad)
		assert.Error(t, err, bad)
	}
}

func TestDateJSON(t *testing.T) {
	var e Entry
	require.NoError(t, json.Unmarshal([]byte(`{"student_id":"x","date":"16-03-2024","present":1}`), &e))
	assert.Equal(t, NewDate(2024, time.March, 16), e.Date)
	assert.True(t, bool(e.Present))

	require.NoError(t, json.Unmarshal([]byte(`{"date":"2024-03-18","present":false}`), &e))
	assert.False(t, bool(e.Present))

	assert.Error(t, json.Unmarshal([]byte(`{"present":2}`), &e))
	assert.Error(t, json.Unmarshal([]byte(`{"date":20240318}`), &e))

	out, err := json.Marshal(Record{Date: NewDate(2024, time.March, 16)})
	require.NoError(t, err)
	assert.Contains(t, string(out), `"date":"2024-03-16"`)
}

func TestWeekend(t *testing.T) {
	assert.True(t, NewDate(2024, time.March, 16).Weekend())  // Saturday
	assert.True(t, NewDate(2024, time.March, 17).Weekend())  // Sunday
	assert.False(t, NewDate(2024, time.March, 18).Weekend()) // Monday
	assert.Equal(t, NewDate(2024, time.January, 1), NewDate(2024, time.March, 18).StartOfYear())
}

type memStore struct {
	recs []Record
}

func (m *memStore) InsertMany(_ context.Context, entries []Entry) ([]Record, error) {
	var out []Record
	for _, e := range entries {
		out = append(out, Record{StudentID: e.StudentID, Date: e.Date, Present: bool(e.Present)})
	}
	m.recs = append(m.recs, out...)
	return out, nil
}

func (m *memStore) List(context.Context) ([]Record, error) { return m.recs, nil }

func (m *memStore) ByDate(_ context.Context, d Date) ([]Record, error) {
	var out []Record
	for _, r := range m.recs {
		if r.Date == d {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memStore) ByStudent(_ context.Context, id string) ([]Record, error) {
	var out []Record
	for _, r := range m.recs {
		if r.StudentID == id {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memStore) SetPresence(_ context.Context, d Date, id string, p Presence) (int64, error) {
	var n int64
	for i := range m.recs {
		if m.recs[i].Date == d && m.recs[i].StudentID == id {
			m.recs[i].Present = bool(p)
			n++
		}
	}
	if n == 0 {
		return 0, store.ErrNotFound
	}
	return n, nil
}

func TestRecordRejectsWeekendBatch(t *testing.T) {
	ms := &memStore{}
	svc := NewService(ms, logging.Discard())

	_, err := svc.Record(context.Background(), []Entry{
		{StudentID: studentA, Date: NewDate(2024, time.March, 15), Present: true},
		{StudentID: studentB, Date: NewDate(2024, time.March, 16), Present: true},
	})
	require.Error(t, err)
	ae := apperr.From(err)
	assert.Equal(t, apperr.KindValidation, ae.Kind)
	assert.Equal(t, "Entry not allowed on weekends.", ae.Message)
	assert.Empty(t, ms.recs)
}

func TestRecordValidatesEntries(t *testing.T) {
	ms := &memStore{}
	svc := NewService(ms, logging.Discard())
	ctx := context.Background()

	_, err := svc.Record(ctx, nil)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	_, err = svc.Record(ctx, []Entry{{StudentID: "nope", Date: NewDate(2024, time.March, 15)}})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	_, err = svc.Record(ctx, []Entry{{StudentID: studentA}})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
	assert.Empty(t, ms.recs)

	recs, err := svc.Record(ctx, []Entry{
		{StudentID: studentA, Date: NewDate(2024, time.March, 15), Present: true},
		{StudentID: studentB, Date: NewDate(2024, time.March, 15)},
	})
	require.NoError(t, err)
	assert.Len(t, recs, 2)

	byDate, err := svc.ByDate(ctx, NewDate(2024, time.March, 15))
	require.NoError(t, err)
	assert.Len(t, byDate, 2)

	require.NoError(t, svc.SetPresence(ctx, NewDate(2024, time.March, 15), studentB, true))
	byStudent, err := svc.ByStudent(ctx, studentB)
	require.NoError(t, err)
	require.Len(t, byStudent, 1)
	assert.True(t, byStudent[0].Present)

	err = svc.SetPresence(ctx, NewDate(2024, time.March, 14), studentB, true)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestInsertManyIsAllOrNothing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewRepository(db)
	day := NewDate(2024, time.March, 15)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO attendance").
		WithArgs(sqlmock.AnyArg(), studentA, day.Time(), 1).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))
	mock.ExpectQuery("INSERT INTO attendance").
		WithArgs(sqlmock.AnyArg(), studentB, day.Time(), 0).
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	_, err = repo.InsertMany(context.Background(), []Entry{
		{StudentID: studentA, Date: day, Present: true},
		{StudentID: studentB, Date: day},
	})
	assert.ErrorIs(t, err, assert.AnError)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestByDateScansDateColumn(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewRepository(db)
	day := NewDate(2024, time.March, 15)

	mock.ExpectQuery("FROM attendance WHERE date").WithArgs(day.Time()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "student_id", "date", "present", "created_at"}).
			AddRow("r1", studentA, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), 0, time.Now()))

	recs, err := repo.ByDate(context.Background(), day)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, day, recs[0].Date)
	assert.False(t, recs[0].Present)
	assert.NoError(t, mock.ExpectationsWereMet())
}
