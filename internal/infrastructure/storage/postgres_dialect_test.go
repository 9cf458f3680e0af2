package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	sq "github.com/Masterminds/squirrel"

	"PressWatch/internal/domain"
)

func newMockRepo(t *testing.T) (*SQLRepository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	repo := NewSQLRepository(db, sq.Dollar)
	repo.now = func() time.Time { return time.Date(2024, time.March, 2, 9, 0, 0, 0, time.UTC) }
	return repo, mock
}

func TestPostgresUpsertUsesDollarPlaceholders(t *testing.T) {
	t.Parallel()

	repo, mock := newMockRepo(t)
	item := knownItem("default", "https://example.com/a", time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC))

	mock.ExpectExec(`INSERT INTO items \(pk,sk,group_id,item_id,.*\) VALUES \(\$1,\$2,.*\$13\) ON CONFLICT \(group_id, item_id\) DO UPDATE`).
		WithArgs(
			"group:default",
			"published:2024-03-01T00:00:00.000Z:item:"+item.ItemID,
			"default", item.ItemID, "example-corp", "Example Corp.", item.Title, item.URL,
			"2024-03-01T00:00:00.000Z", "", "[]",
			"2024-03-02T09:00:00.000Z", "2024-03-02T09:00:00.000Z",
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Upsert(context.Background(), item); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresUpsertWrapsWriteFailure(t *testing.T) {
	t.Parallel()

	repo, mock := newMockRepo(t)
	mock.ExpectExec(`INSERT INTO items`).WillReturnError(errors.New("connection refused"))

	err := repo.Upsert(context.Background(), knownItem("g", "https://example.com/a", time.Time{}))
	if !errors.Is(err, domain.ErrStoreWriteFailed) {
		t.Fatalf("expected ErrStoreWriteFailed, got %v", err)
	}
}

func TestPostgresListByGroupQuery(t *testing.T) {
	t.Parallel()

	repo, mock := newMockRepo(t)
	rows := sqlmock.NewRows(itemColumns).
		AddRow("g", "id-1", "acme", "ACME", "Launch", "https://acme.example.com/1",
			"2024-03-01T00:00:00.000Z", "", "[]", "2024-03-01T01:00:00.000Z", "2024-03-01T01:00:00.000Z")

	mock.ExpectQuery(`SELECT group_id, item_id, .* FROM items WHERE pk = \$1 AND sk LIKE \$2 ORDER BY sk DESC LIMIT 5`).
		WithArgs("group:g", "published:%").
		WillReturnRows(rows)

	items, err := repo.ListByGroup(context.Background(), "g", 5)
	if err != nil {
		t.Fatalf("ListByGroup: %v", err)
	}
	if len(items) != 1 || items[0].Title != "Launch" {
		t.Fatalf("unexpected items: %+v", items)
	}
	if want := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC); !items[0].PublishedAt.Equal(want) {
		t.Fatalf("expected %v, got %v", want, items[0].PublishedAt)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresAdvanceWatermarkIsGuarded(t *testing.T) {
	t.Parallel()

	repo, mock := newMockRepo(t)
	mock.ExpectExec(`INSERT INTO group_watermarks .* ON CONFLICT \(group_id\) DO UPDATE .* WHERE group_watermarks.last_notified_at IS NULL`).
		WithArgs("g", "2024-03-01T00:00:00.000Z", "2024-03-02T09:00:00.000Z").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.AdvanceWatermark(context.Background(), "g", time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("AdvanceWatermark: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
