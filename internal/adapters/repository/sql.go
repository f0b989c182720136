package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"           // postgres driver
	_ "github.com/mattn/go-sqlite3" // sqlite3 driver

	"github.com/okian/moodtune/internal/domain/emotion"
	"github.com/okian/moodtune/internal/domain/matching"
	"github.com/okian/moodtune/internal/domain/model"
	"github.com/okian/moodtune/pkg/logger"
	"github.com/okian/moodtune/pkg/metrics"
)

// Storage drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

const (
	defaultMaxOpenConns    = 10
	defaultConnMaxLifetime = 30 * time.Minute
)

// Open returns the store for driver. The memory driver ignores dsn.
func Open(ctx context.Context, driver, dsn string, opts ...Option) (Store, error) {
	switch driver {
	case DriverMemory, "":
		return NewMemoryStore(), nil
	case DriverSQLite, DriverPostgres:
		return NewSQLStore(ctx, driver, dsn, opts...)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
}

// SQLStore is a Store over sqlite3 or postgres. Timestamps are stored as unix
// milliseconds and list-valued columns as JSON text.
type SQLStore struct {
	db              *sqlx.DB
	driver          string
	maxOpenConns    int
	connMaxLifetime time.Duration
	logger          logger.Logger
}

var _ Store = (*SQLStore)(nil)

// NewSQLStore connects to dsn and creates the schema if needed.
func NewSQLStore(ctx context.Context, driver, dsn string, opts ...Option) (*SQLStore, error) {
	s := &SQLStore{
		driver:          driver,
		maxOpenConns:    defaultMaxOpenConns,
		connMaxLifetime: defaultConnMaxLifetime,
		logger:          logger.Get().Named("store"),
	}
	for _, opt := range opts {
		opt(s)
	}

	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", driver, err)
	}
	// Every connection to an in-memory sqlite database sees its own database.
	if driver == DriverSQLite && strings.Contains(dsn, ":memory:") {
		s.maxOpenConns = 1
		s.connMaxLifetime = 0
	}
	db.SetMaxOpenConns(s.maxOpenConns)
	db.SetConnMaxLifetime(s.connMaxLifetime)
	s.db = db

	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	s.logger.Info(ctx, "store ready", logger.String("driver", driver))
	return s, nil
}

func (s *SQLStore) migrate(ctx context.Context) error {
	seq := "seq INTEGER PRIMARY KEY AUTOINCREMENT"
	if s.driver == DriverPostgres {
		seq = "seq BIGSERIAL PRIMARY KEY"
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS catalog_items (
			` + seq + `,
			id TEXT NOT NULL UNIQUE,
			external_id TEXT NOT NULL DEFAULT '',
			title TEXT NOT NULL,
			artist TEXT NOT NULL DEFAULT '',
			labels TEXT NOT NULL DEFAULT '[]',
			label_scores TEXT NOT NULL DEFAULT '{}',
			play_count INTEGER NOT NULL DEFAULT 0,
			match_count INTEGER NOT NULL DEFAULT 0,
			average_rating DOUBLE PRECISION
		)`,
		`CREATE INDEX IF NOT EXISTS idx_catalog_external ON catalog_items (external_id)`,
		`CREATE TABLE IF NOT EXISTS analyses (
			id TEXT PRIMARY KEY,
			subject TEXT NOT NULL,
			text TEXT NOT NULL,
			verdict TEXT NOT NULL,
			created_at BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_analyses_subject ON analyses (subject, created_at)`,
		`CREATE TABLE IF NOT EXISTS matches (
			id TEXT PRIMARY KEY,
			subject TEXT NOT NULL,
			analysis_id TEXT NOT NULL DEFAULT '',
			item_id TEXT NOT NULL,
			primary_label TEXT NOT NULL,
			matched_labels TEXT NOT NULL DEFAULT '[]',
			match_score DOUBLE PRECISION NOT NULL,
			explanation TEXT NOT NULL DEFAULT '',
			reasons TEXT NOT NULL DEFAULT '[]',
			rating INTEGER,
			feedback_text TEXT NOT NULL DEFAULT '',
			played INTEGER NOT NULL DEFAULT 0,
			saved INTEGER NOT NULL DEFAULT 0,
			feedback_at BIGINT,
			created_at BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_matches_subject ON matches (subject, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_matches_item ON matches (item_id)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// Close implements Store.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// observe records latency and failures for one store operation.
func observe(op string, start time.Time, err error) {
	metrics.RecordStoreLatency(op, float64(time.Since(start).Milliseconds()))
	if err != nil && !errors.Is(err, ErrNotFound) {
		metrics.RecordStoreError(op)
	}
}

const itemColumns = `seq, id, external_id, title, artist, labels, label_scores, play_count, match_count, average_rating`

type itemRow struct {
	Seq           int64           `db:"seq"`
	ID            string          `db:"id"`
	ExternalID    string          `db:"external_id"`
	Title         string          `db:"title"`
	Artist        string          `db:"artist"`
	Labels        string          `db:"labels"`
	LabelScores   string          `db:"label_scores"`
	PlayCount     int             `db:"play_count"`
	MatchCount    int             `db:"match_count"`
	AverageRating sql.NullFloat64 `db:"average_rating"`
}

func (r *itemRow) toItem() (matching.CatalogItem, error) {
	item := matching.CatalogItem{
		ID:         r.ID,
		ExternalID: r.ExternalID,
		Title:      r.Title,
		Artist:     r.Artist,
		PlayCount:  r.PlayCount,
		MatchCount: r.MatchCount,
	}
	if err := json.Unmarshal([]byte(r.Labels), &item.Labels); err != nil {
		return item, fmt.Errorf("decode labels of %s: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(r.LabelScores), &item.LabelScores); err != nil {
		return item, fmt.Errorf("decode label scores of %s: %w", r.ID, err)
	}
	if r.AverageRating.Valid {
		avg := r.AverageRating.Float64
		item.AverageRating = &avg
	}
	return item, nil
}

func itemToRow(item matching.CatalogItem) (itemRow, error) {
	labels := item.Labels
	if labels == nil {
		labels = []string{}
	}
	lb, err := json.Marshal(labels)
	if err != nil {
		return itemRow{}, err
	}
	scores := item.LabelScores
	if scores == nil {
		scores = map[string]float64{}
	}
	sb, err := json.Marshal(scores)
	if err != nil {
		return itemRow{}, err
	}
	row := itemRow{
		ID:          item.ID,
		ExternalID:  item.ExternalID,
		Title:       item.Title,
		Artist:      item.Artist,
		Labels:      string(lb),
		LabelScores: string(sb),
		PlayCount:   item.PlayCount,
		MatchCount:  item.MatchCount,
	}
	if item.AverageRating != nil {
		row.AverageRating = sql.NullFloat64{Float64: *item.AverageRating, Valid: true}
	}
	return row, nil
}

// ListCatalogItems implements Store.
func (s *SQLStore) ListCatalogItems(ctx context.Context, f CatalogFilter) (page model.Page[matching.CatalogItem], err error) {
	defer func(start time.Time) { observe("list_catalog", start, err) }(time.Now())

	var rows []itemRow
	if err = s.db.SelectContext(ctx, &rows, `SELECT `+itemColumns+` FROM catalog_items ORDER BY seq`); err != nil {
		return page, fmt.Errorf("list catalog: %w", err)
	}
	items := make([]matching.CatalogItem, 0, len(rows))
	for i := range rows {
		it, derr := rows[i].toItem()
		if derr != nil {
			return page, derr
		}
		items = append(items, it)
	}
	return pageCatalog(items, f), nil
}

func (s *SQLStore) getItem(ctx context.Context, q sqlx.QueryerContext, id string) (itemRow, error) {
	var row itemRow
	err := sqlx.GetContext(ctx, q, &row, s.db.Rebind(`SELECT `+itemColumns+` FROM catalog_items WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		err = sqlx.GetContext(ctx, q, &row,
			s.db.Rebind(`SELECT `+itemColumns+` FROM catalog_items WHERE external_id = ? AND external_id <> '' ORDER BY seq LIMIT 1`), id)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return row, fmt.Errorf("catalog item %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return row, fmt.Errorf("get catalog item: %w", err)
	}
	return row, nil
}

// GetCatalogItem implements Store.
func (s *SQLStore) GetCatalogItem(ctx context.Context, id string) (item matching.CatalogItem, err error) {
	defer func(start time.Time) { observe("get_catalog_item", start, err) }(time.Now())
	row, err := s.getItem(ctx, s.db, id)
	if err != nil {
		return item, err
	}
	return row.toItem()
}

// UpsertCatalogItem implements Store.
func (s *SQLStore) UpsertCatalogItem(ctx context.Context, item matching.CatalogItem) (out matching.CatalogItem, err error) {
	defer func(start time.Time) { observe("upsert_catalog_item", start, err) }(time.Now())
	if !validItem(item) {
		return out, fmt.Errorf("%w: %q", ErrInvalidItem, item.Title)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return out, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	key := item.ID
	if key == "" {
		key = item.ExternalID
	}
	existing, gerr := s.getItem(ctx, tx, key)
	switch {
	case gerr == nil:
		item.ID = existing.ID
	case errors.Is(gerr, ErrNotFound):
		if item.ID == "" {
			item.ID = uuid.NewString()
		}
	default:
		return out, gerr
	}

	row, err := itemToRow(item)
	if err != nil {
		return out, fmt.Errorf("encode catalog item: %w", err)
	}
	query := `INSERT INTO catalog_items (id, external_id, title, artist, labels, label_scores, play_count, match_count, average_rating)
		VALUES (:id, :external_id, :title, :artist, :labels, :label_scores, :play_count, :match_count, :average_rating)`
	if gerr == nil {
		query = `UPDATE catalog_items SET external_id = :external_id, title = :title, artist = :artist, labels = :labels,
			label_scores = :label_scores, play_count = :play_count, match_count = :match_count, average_rating = :average_rating
			WHERE id = :id`
	}
	if _, err = tx.NamedExecContext(ctx, query, row); err != nil {
		return out, fmt.Errorf("save catalog item: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return out, fmt.Errorf("commit: %w", err)
	}
	return item, nil
}

type analysisRow struct {
	ID        string `db:"id"`
	Subject   string `db:"subject"`
	Text      string `db:"text"`
	Verdict   string `db:"verdict"`
	CreatedAt int64  `db:"created_at"`
}

func (r *analysisRow) toAnalysis() (model.Analysis, error) {
	a := model.Analysis{ID: r.ID, Subject: r.Subject, Text: r.Text, CreatedAt: time.UnixMilli(r.CreatedAt).UTC()}
	var v emotion.Verdict
	if err := json.Unmarshal([]byte(r.Verdict), &v); err != nil {
		return a, fmt.Errorf("decode verdict of %s: %w", r.ID, err)
	}
	a.Verdict = v
	return a, nil
}

// SaveAnalysis implements Store.
func (s *SQLStore) SaveAnalysis(ctx context.Context, a model.Analysis) (err error) {
	defer func(start time.Time) { observe("save_analysis", start, err) }(time.Now())
	vb, err := json.Marshal(a.Verdict)
	if err != nil {
		return fmt.Errorf("encode verdict: %w", err)
	}
	row := analysisRow{ID: a.ID, Subject: a.Subject, Text: a.Text, Verdict: string(vb), CreatedAt: a.CreatedAt.UnixMilli()}
	_, err = s.db.NamedExecContext(ctx,
		`INSERT INTO analyses (id, subject, text, verdict, created_at) VALUES (:id, :subject, :text, :verdict, :created_at)`, row)
	if err != nil {
		return fmt.Errorf("save analysis: %w", err)
	}
	return nil
}

const matchColumns = `id, subject, analysis_id, item_id, primary_label, matched_labels, match_score, explanation, reasons,
	rating, feedback_text, played, saved, feedback_at, created_at`

type matchRow struct {
	ID            string        `db:"id"`
	Subject       string        `db:"subject"`
	AnalysisID    string        `db:"analysis_id"`
	ItemID        string        `db:"item_id"`
	PrimaryLabel  string        `db:"primary_label"`
	MatchedLabels string        `db:"matched_labels"`
	MatchScore    float64       `db:"match_score"`
	Explanation   string        `db:"explanation"`
	Reasons       string        `db:"reasons"`
	Rating        sql.NullInt64 `db:"rating"`
	FeedbackText  string        `db:"feedback_text"`
	Played        int           `db:"played"`
	Saved         int           `db:"saved"`
	FeedbackAt    sql.NullInt64 `db:"feedback_at"`
	CreatedAt     int64         `db:"created_at"`
}

func (r *matchRow) toMatch() (model.Match, error) {
	m := model.Match{
		ID:           r.ID,
		Subject:      r.Subject,
		AnalysisID:   r.AnalysisID,
		ItemID:       r.ItemID,
		PrimaryLabel: r.PrimaryLabel,
		MatchScore:   r.MatchScore,
		Explanation:  r.Explanation,
		CreatedAt:    time.UnixMilli(r.CreatedAt).UTC(),
	}
	if err := json.Unmarshal([]byte(r.MatchedLabels), &m.MatchedLabels); err != nil {
		return m, fmt.Errorf("decode matched labels of %s: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(r.Reasons), &m.Reasons); err != nil {
		return m, fmt.Errorf("decode reasons of %s: %w", r.ID, err)
	}
	if r.Rating.Valid {
		m.Feedback = &model.Feedback{
			Rating: int(r.Rating.Int64),
			Text:   r.FeedbackText,
			Played: r.Played != 0,
			Saved:  r.Saved != 0,
		}
		if r.FeedbackAt.Valid {
			m.Feedback.At = time.UnixMilli(r.FeedbackAt.Int64).UTC()
		}
	}
	return m, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// RecordMatch implements Store.
func (s *SQLStore) RecordMatch(ctx context.Context, m model.Match) (err error) {
	defer func(start time.Time) { observe("record_match", start, err) }(time.Now())

	matched, err := json.Marshal(nonNil(m.MatchedLabels))
	if err != nil {
		return fmt.Errorf("encode matched labels: %w", err)
	}
	reasons, err := json.Marshal(nonNil(m.Reasons))
	if err != nil {
		return fmt.Errorf("encode reasons: %w", err)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE catalog_items SET match_count = match_count + 1 WHERE id = ?`), m.ItemID)
	if err != nil {
		return fmt.Errorf("count match: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("catalog item %q: %w", m.ItemID, ErrNotFound)
	}

	row := matchRow{
		ID:            m.ID,
		Subject:       m.Subject,
		AnalysisID:    m.AnalysisID,
		ItemID:        m.ItemID,
		PrimaryLabel:  m.PrimaryLabel,
		MatchedLabels: string(matched),
		MatchScore:    m.MatchScore,
		Explanation:   m.Explanation,
		Reasons:       string(reasons),
		CreatedAt:     m.CreatedAt.UnixMilli(),
	}
	_, err = tx.NamedExecContext(ctx, `INSERT INTO matches (id, subject, analysis_id, item_id, primary_label, matched_labels,
		match_score, explanation, reasons, created_at) VALUES (:id, :subject, :analysis_id, :item_id, :primary_label,
		:matched_labels, :match_score, :explanation, :reasons, :created_at)`, row)
	if err != nil {
		return fmt.Errorf("save match: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func nonNil(ss []string) []string {
	if ss == nil {
		return []string{}
	}
	return ss
}

// hydrate converts rows to matches and attaches their catalog items.
func (s *SQLStore) hydrate(ctx context.Context, rows []matchRow) ([]model.Match, error) {
	out := make([]model.Match, 0, len(rows))
	if len(rows) == 0 {
		return out, nil
	}
	ids := make([]string, 0, len(rows))
	seen := make(map[string]bool, len(rows))
	for i := range rows {
		if !seen[rows[i].ItemID] {
			seen[rows[i].ItemID] = true
			ids = append(ids, rows[i].ItemID)
		}
	}
	query, args, err := sqlx.In(`SELECT `+itemColumns+` FROM catalog_items WHERE id IN (?)`, ids)
	if err != nil {
		return nil, fmt.Errorf("build item query: %w", err)
	}
	var itemRows []itemRow
	if err := s.db.SelectContext(ctx, &itemRows, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("load match items: %w", err)
	}
	items := make(map[string]matching.CatalogItem, len(itemRows))
	for i := range itemRows {
		it, err := itemRows[i].toItem()
		if err != nil {
			return nil, err
		}
		items[it.ID] = it
	}

	for i := range rows {
		m, err := rows[i].toMatch()
		if err != nil {
			return nil, err
		}
		m.Item = items[m.ItemID]
		out = append(out, m)
	}
	return out, nil
}

// GetMatch implements Store.
func (s *SQLStore) GetMatch(ctx context.Context, subject, id string) (m model.Match, err error) {
	defer func(start time.Time) { observe("get_match", start, err) }(time.Now())
	var row matchRow
	err = s.db.GetContext(ctx, &row, s.db.Rebind(`SELECT `+matchColumns+` FROM matches WHERE id = ? AND subject = ?`), id, subject)
	if errors.Is(err, sql.ErrNoRows) {
		return m, fmt.Errorf("match %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return m, fmt.Errorf("get match: %w", err)
	}
	ms, err := s.hydrate(ctx, []matchRow{row})
	if err != nil {
		return m, err
	}
	return ms[0], nil
}

// RecordFeedback implements Store.
func (s *SQLStore) RecordFeedback(ctx context.Context, subject, id string, fb model.Feedback) (m model.Match, err error) {
	defer func(start time.Time) { observe("record_feedback", start, err) }(time.Now())

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return m, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var row matchRow
	err = tx.GetContext(ctx, &row, tx.Rebind(`SELECT `+matchColumns+` FROM matches WHERE id = ? AND subject = ?`), id, subject)
	if errors.Is(err, sql.ErrNoRows) {
		return m, fmt.Errorf("match %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return m, fmt.Errorf("get match: %w", err)
	}

	if _, err = tx.ExecContext(ctx,
		tx.Rebind(`UPDATE matches SET rating = ?, feedback_text = ?, played = ?, saved = ?, feedback_at = ? WHERE id = ?`),
		fb.Rating, fb.Text, boolInt(fb.Played), boolInt(fb.Saved), fb.At.UnixMilli(), id); err != nil {
		return m, fmt.Errorf("save feedback: %w", err)
	}
	if fb.Played && row.Played == 0 {
		if _, err = tx.ExecContext(ctx,
			tx.Rebind(`UPDATE catalog_items SET play_count = play_count + 1 WHERE id = ?`), row.ItemID); err != nil {
			return m, fmt.Errorf("count play: %w", err)
		}
	}
	if _, err = tx.ExecContext(ctx, tx.Rebind(`UPDATE catalog_items SET average_rating =
		(SELECT AVG(CAST(rating AS DOUBLE PRECISION)) FROM matches WHERE item_id = ? AND rating IS NOT NULL)
		WHERE id = ?`), row.ItemID, row.ItemID); err != nil {
		return m, fmt.Errorf("update average rating: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return m, fmt.Errorf("commit: %w", err)
	}
	return s.GetMatch(ctx, subject, id)
}

// QueryHistory implements Store.
func (s *SQLStore) QueryHistory(ctx context.Context, subject string, since time.Time) (h model.History, err error) {
	defer func(start time.Time) { observe("query_history", start, err) }(time.Now())
	h = model.History{Subject: subject, Since: since, Analyses: []model.Analysis{}, Matches: []model.Match{}}

	var arows []analysisRow
	if err = s.db.SelectContext(ctx, &arows, s.db.Rebind(
		`SELECT id, subject, text, verdict, created_at FROM analyses WHERE subject = ? AND created_at >= ? ORDER BY created_at, id`),
		subject, since.UnixMilli()); err != nil {
		return h, fmt.Errorf("query analyses: %w", err)
	}
	for i := range arows {
		a, derr := arows[i].toAnalysis()
		if derr != nil {
			return h, derr
		}
		h.Analyses = append(h.Analyses, a)
	}

	var mrows []matchRow
	if err = s.db.SelectContext(ctx, &mrows, s.db.Rebind(
		`SELECT `+matchColumns+` FROM matches WHERE subject = ? AND created_at >= ? ORDER BY created_at, id`),
		subject, since.UnixMilli()); err != nil {
		return h, fmt.Errorf("query matches: %w", err)
	}
	h.Matches, err = s.hydrate(ctx, mrows)
	return h, err
}

// ListMatches implements Store.
func (s *SQLStore) ListMatches(ctx context.Context, subject string, page, perPage int) (p model.Page[model.Match], err error) {
	defer func(start time.Time) { observe("list_matches", start, err) }(time.Now())

	var total int
	if err = s.db.GetContext(ctx, &total, s.db.Rebind(`SELECT COUNT(*) FROM matches WHERE subject = ?`), subject); err != nil {
		return p, fmt.Errorf("count matches: %w", err)
	}
	lo, hi := bounds(total, page, perPage)
	var rows []matchRow
	if hi > lo {
		if err = s.db.SelectContext(ctx, &rows, s.db.Rebind(
			`SELECT `+matchColumns+` FROM matches WHERE subject = ? ORDER BY created_at DESC, id LIMIT ? OFFSET ?`),
			subject, hi-lo, lo); err != nil {
			return p, fmt.Errorf("list matches: %w", err)
		}
	}
	items, err := s.hydrate(ctx, rows)
	if err != nil {
		return p, err
	}
	return model.NewPage(items, total, normalizePage(page), perPage), nil
}

// ClearHistory implements Store.
func (s *SQLStore) ClearHistory(ctx context.Context, subject string) (removed int, err error) {
	defer func(start time.Time) { observe("clear_history", start, err) }(time.Now())

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{"matches", "analyses"} {
		res, derr := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM `+table+` WHERE subject = ?`), subject)
		if derr != nil {
			return 0, fmt.Errorf("clear %s: %w", table, derr)
		}
		n, _ := res.RowsAffected()
		removed += int(n)
	}
	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return removed, nil
}
