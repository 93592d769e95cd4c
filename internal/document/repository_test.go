package document

import (
	"context"
	"regexp"
	"testing"
	"time"

	"collaborative-document-service/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var documentColumns = []string{
	"id", "title", "content", "owner_id", "shared_with", "is_deleted", "version", "created_at", "updated_at",
}

// Both conditional writes must keep their guards in the WHERE clause.
var (
	casUpdateSQL    = `UPDATE "documents" SET .* WHERE \(?id = \$\d+ AND version = \$\d+ AND is_deleted = \$\d+\)?`
	deleteUpdateSQL = `UPDATE "documents" SET .* WHERE \(?id = \$\d+ AND is_deleted = \$\d+\)?`
)

func newMockRepository(t *testing.T) (*DocumentRepositoryImpl, sqlmock.Sqlmock) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return NewRepository(db).(*DocumentRepositoryImpl), mock
}

func documentRow(id string, version int64, deleted bool) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows(documentColumns).
		AddRow(id, "Title", "Body", "U", []byte(`[{"userId":"V","permission":"read"}]`), deleted, version, now, now)
}

func TestRepository_Create(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "documents"`)).
		WillReturnResult(sqlmock.NewResult(1, 1))

	doc, err := repo.Create(context.Background(), domain.Document{Title: "Title", OwnerID: "U"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), doc.Version)
	_, err = uuid.Parse(doc.ID)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_CompareAndSwap_Success(t *testing.T) {
	repo, mock := newMockRepository(t)
	id := uuid.NewString()

	mock.ExpectQuery(casUpdateSQL).
		WithArgs("Body", sqlmock.AnyArg(), int64(3), id, int64(2), false).
		WillReturnRows(documentRow(id, 3, false))

	content := "Body"
	doc, err := repo.CompareAndSwap(context.Background(), id, 2, domain.Patch{Content: &content})
	require.NoError(t, err)
	assert.Equal(t, int64(3), doc.Version)
	assert.Equal(t, []domain.SharedEntry{{UserID: "V", Permission: domain.PermissionRead}}, doc.SharedWith)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_CompareAndSwap_Conflict(t *testing.T) {
	repo, mock := newMockRepository(t)
	id := uuid.NewString()

	mock.ExpectQuery(casUpdateSQL).
		WithArgs("late", sqlmock.AnyArg(), int64(3), id, int64(2), false).
		WillReturnRows(sqlmock.NewRows(documentColumns))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "documents" WHERE id = $1`)).
		WillReturnRows(documentRow(id, 5, false))

	title := "late"
	_, err := repo.CompareAndSwap(context.Background(), id, 2, domain.Patch{Title: &title})
	assert.ErrorIs(t, err, domain.ErrVersionConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_CompareAndSwap_Deleted(t *testing.T) {
	repo, mock := newMockRepository(t)
	id := uuid.NewString()

	mock.ExpectQuery(casUpdateSQL).
		WithArgs("late", sqlmock.AnyArg(), int64(3), id, int64(2), false).
		WillReturnRows(sqlmock.NewRows(documentColumns))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "documents" WHERE id = $1`)).
		WillReturnRows(documentRow(id, 2, true))

	title := "late"
	_, err := repo.CompareAndSwap(context.Background(), id, 2, domain.Patch{Title: &title})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_MalformedIDIsNotFound(t *testing.T) {
	repo, mock := newMockRepository(t)
	ctx := context.Background()

	_, err := repo.FindByID(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = repo.CompareAndSwap(ctx, "not-a-uuid", 1, domain.Patch{})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = repo.SoftDelete(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_FindByID_Missing(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "documents" WHERE id = $1`)).
		WillReturnRows(sqlmock.NewRows(documentColumns))

	_, err := repo.FindByID(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRepository_SoftDelete(t *testing.T) {
	repo, mock := newMockRepository(t)
	id := uuid.NewString()

	mock.ExpectQuery(deleteUpdateSQL).
		WithArgs(true, sqlmock.AnyArg(), id, false).
		WillReturnRows(documentRow(id, 4, true))

	doc, err := repo.SoftDelete(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, doc.IsDeleted)
	assert.Equal(t, int64(4), doc.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_SoftDelete_AlreadyDeleted(t *testing.T) {
	repo, mock := newMockRepository(t)
	id := uuid.NewString()

	mock.ExpectQuery(deleteUpdateSQL).
		WithArgs(true, sqlmock.AnyArg(), id, false).
		WillReturnRows(sqlmock.NewRows(documentColumns))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "documents" WHERE id = $1`)).
		WillReturnRows(documentRow(id, 4, true))

	doc, err := repo.SoftDelete(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, doc.IsDeleted)
	assert.Equal(t, int64(4), doc.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_ListByOwner(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "documents" WHERE owner_id = $1 AND is_deleted = $2 ORDER BY created_at DESC, id DESC`)).
		WillReturnRows(documentRow(uuid.NewString(), 1, false))

	docs, err := repo.ListByOwner(context.Background(), "U", 1, 10)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}
