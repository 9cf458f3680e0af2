package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"PressWatch/internal/domain"
	"PressWatch/internal/ports"
)

const (
	itemsTable      = "items"
	watermarksTable = "group_watermarks"
)

var itemColumns = []string{
	"group_id", "item_id", "source_id", "source_name", "title", "url",
	"published_at", "summary_text", "glossary", "created_at", "updated_at",
}

// An empty incoming summary or an unknown publish date never erases what is already stored.
var upsertItemSuffix = `ON CONFLICT (group_id, item_id) DO UPDATE SET
	sk = CASE WHEN excluded.published_at = '` + domain.UnknownInstant + `' THEN items.sk ELSE excluded.sk END,
	published_at = CASE WHEN excluded.published_at = '` + domain.UnknownInstant + `' THEN items.published_at ELSE excluded.published_at END,
	source_id = excluded.source_id,
	source_name = excluded.source_name,
	title = excluded.title,
	url = excluded.url,
	summary_text = CASE WHEN excluded.summary_text = '' THEN items.summary_text ELSE excluded.summary_text END,
	glossary = CASE WHEN excluded.summary_text = '' THEN items.glossary ELSE excluded.glossary END,
	updated_at = excluded.updated_at`

const advanceWatermarkSuffix = `ON CONFLICT (group_id) DO UPDATE SET
	last_notified_at = excluded.last_notified_at,
	updated_at = excluded.updated_at
	WHERE group_watermarks.last_notified_at IS NULL
	   OR group_watermarks.last_notified_at < excluded.last_notified_at`

// SQLRepository persists items and watermarks in Postgres or SQLite.
type SQLRepository struct {
	db    *sql.DB
	build sq.StatementBuilderType
	now   func() time.Time
}

var (
	_ ports.ItemRepository      = (*SQLRepository)(nil)
	_ ports.WatermarkRepository = (*SQLRepository)(nil)
)

// NewSQLRepository wires a sql.DB with the placeholder dialect of its driver.
func NewSQLRepository(db *sql.DB, placeholder sq.PlaceholderFormat) *SQLRepository {
	return &SQLRepository{
		db:    db,
		build: sq.StatementBuilder.PlaceholderFormat(placeholder),
		now:   time.Now,
	}
}

// Upsert writes the record under its (group, item id) identity.
func (r *SQLRepository) Upsert(ctx context.Context, item domain.KnownItem) error {
	if r.db == nil {
		return fmt.Errorf("item store: %w", domain.ErrMisconfigured)
	}
	if item.ItemID == "" {
		item.ItemID = domain.ItemID(item.URL)
	}

	glossary, err := json.Marshal(nonNilGlossary(item.Glossary))
	if err != nil {
		return fmt.Errorf("%w: marshal glossary: %v", domain.ErrStoreWriteFailed, err)
	}

	now := domain.FormatInstant(r.now())
	created := now
	if !item.CreatedAt.IsZero() {
		created = domain.FormatInstant(item.CreatedAt)
	}

	query, args, err := r.build.Insert(itemsTable).
		Columns(append([]string{"pk", "sk"}, itemColumns...)...).
		Values(
			domain.PartitionKey(item.GroupID),
			domain.SortKey(item.PublishedAt, item.ItemID),
			item.GroupID,
			item.ItemID,
			item.SourceID,
			item.SourceName,
			item.Title,
			item.URL,
			domain.FormatInstant(item.PublishedAt),
			item.SummaryText,
			string(glossary),
			created,
			now,
		).
		Suffix(upsertItemSuffix).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: build upsert: %v", domain.ErrStoreWriteFailed, err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%w: upsert item %s: %v", domain.ErrStoreWriteFailed, item.ItemID, err)
	}
	return nil
}

// ListByGroup scans the group partition in descending sort-key order.
func (r *SQLRepository) ListByGroup(ctx context.Context, groupID string, limit int) ([]domain.KnownItem, error) {
	builder := r.build.Select(itemColumns...).
		From(itemsTable).
		Where(sq.Eq{"pk": domain.PartitionKey(groupID)}).
		Where(sq.Like{"sk": domain.SortKeyPrefix + "%"}).
		OrderBy("sk DESC")
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}

	var items []domain.KnownItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			_ = rows.Close()
			return nil, err
		}
		items = append(items, item)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("rows iteration: %w", rowsErr)
	}

	if closeErr := rows.Close(); closeErr != nil {
		return nil, fmt.Errorf("close rows: %w", closeErr)
	}

	return items, nil
}

// Get looks one item up by its identity.
func (r *SQLRepository) Get(ctx context.Context, groupID, itemID string) (domain.KnownItem, error) {
	query, args, err := r.build.Select(itemColumns...).
		From(itemsTable).
		Where(sq.Eq{"group_id": groupID, "item_id": itemID}).
		ToSql()
	if err != nil {
		return domain.KnownItem{}, fmt.Errorf("build get query: %w", err)
	}

	item, err := scanItem(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.KnownItem{}, fmt.Errorf("item %s in group %s: %w", itemID, groupID, domain.ErrNotFound)
	}
	return item, err
}

// KnownURLs resolves urls through their derived item ids instead of scanning the partition.
func (r *SQLRepository) KnownURLs(ctx context.Context, groupID string, urls []string) (map[string]struct{}, error) {
	known := map[string]struct{}{}
	if r.db == nil || len(urls) == 0 {
		return known, nil
	}

	ids := make([]string, 0, len(urls))
	for _, u := range urls {
		ids = append(ids, domain.ItemID(u))
	}

	query, args, err := r.build.Select("url").
		From(itemsTable).
		Where(sq.Eq{"group_id": groupID, "item_id": ids}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build known query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query known: %w", err)
	}

	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan url: %w", err)
		}
		known[u] = struct{}{}
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("rows iteration: %w", rowsErr)
	}

	if closeErr := rows.Close(); closeErr != nil {
		return nil, fmt.Errorf("close rows: %w", closeErr)
	}

	return known, nil
}

// GetWatermark returns an empty watermark when the group was never notified.
func (r *SQLRepository) GetWatermark(ctx context.Context, groupID string) (domain.Watermark, error) {
	wm := domain.Watermark{GroupID: groupID}

	query, args, err := r.build.Select("last_notified_at").
		From(watermarksTable).
		Where(sq.Eq{"group_id": groupID}).
		ToSql()
	if err != nil {
		return wm, fmt.Errorf("build watermark query: %w", err)
	}

	var raw sql.NullString
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&raw)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return wm, nil
	case err != nil:
		return wm, fmt.Errorf("query watermark: %w", err)
	}

	if raw.Valid && raw.String != "" {
		at, err := domain.ParseInstant(raw.String)
		if err != nil {
			return wm, fmt.Errorf("parse watermark %q: %w", raw.String, err)
		}
		wm.LastNotifiedAt = &at
	}
	return wm, nil
}

// AdvanceWatermark only ever moves the stored value forward.
func (r *SQLRepository) AdvanceWatermark(ctx context.Context, groupID string, at time.Time) error {
	if at.IsZero() {
		return fmt.Errorf("%w: zero watermark for group %s", domain.ErrStoreWriteFailed, groupID)
	}

	query, args, err := r.build.Insert(watermarksTable).
		Columns("group_id", "last_notified_at", "updated_at").
		Values(groupID, domain.FormatInstant(at), domain.FormatInstant(r.now())).
		Suffix(advanceWatermarkSuffix).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: build watermark upsert: %v", domain.ErrStoreWriteFailed, err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%w: advance watermark %s: %v", domain.ErrStoreWriteFailed, groupID, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (domain.KnownItem, error) {
	var (
		item                            domain.KnownItem
		publishedAt, createdAt, updated string
		glossary                        string
	)

	err := row.Scan(
		&item.GroupID, &item.ItemID, &item.SourceID, &item.SourceName, &item.Title, &item.URL,
		&publishedAt, &item.SummaryText, &glossary, &createdAt, &updated,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return item, err
		}
		return item, fmt.Errorf("scan item: %w", err)
	}

	if item.PublishedAt, err = domain.ParseInstant(publishedAt); err != nil {
		return item, fmt.Errorf("parse published_at %q: %w", publishedAt, err)
	}
	if item.CreatedAt, err = domain.ParseInstant(createdAt); err != nil {
		return item, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}
	if item.UpdatedAt, err = domain.ParseInstant(updated); err != nil {
		return item, fmt.Errorf("parse updated_at %q: %w", updated, err)
	}
	if glossary != "" {
		if err := json.Unmarshal([]byte(glossary), &item.Glossary); err != nil {
			return item, fmt.Errorf("decode glossary: %w", err)
		}
	}
	return item, nil
}

func nonNilGlossary(g []domain.GlossaryEntry) []domain.GlossaryEntry {
	if g == nil {
		return []domain.GlossaryEntry{}
	}
	return g
}
