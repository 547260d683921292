package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver registration.

	"theme_bot/internal/model"
	"theme_bot/migrations"
)

const timeLayout = "2006-01-02T15:04:05Z"

// SQLite implements Storage backed by a SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at dsn and runs pending migrations.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=OFF"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("disable foreign keys: %w", err)
	}

	if err := migrations.Run(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// CreateKeywords inserts the given words in one transaction. Words that
// already exist are left untouched; on any failure nothing is committed.
func (s *SQLite) CreateKeywords(ctx context.Context, words []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, w := range words {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO keywords (word) VALUES (?)`, w,
		); err != nil {
			return fmt.Errorf("insert keyword %q: %w", w, err)
		}
	}
	return tx.Commit()
}

// ListKeywords returns the full keyword vocabulary.
func (s *SQLite) ListKeywords(ctx context.Context) ([]model.Keyword, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, word FROM keywords ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query keywords: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var kws []model.Keyword
	for rows.Next() {
		var k model.Keyword
		if err := rows.Scan(&k.ID, &k.Word); err != nil {
			return nil, fmt.Errorf("scan keyword: %w", err)
		}
		kws = append(kws, k)
	}
	return kws, rows.Err()
}

// GetKeyword returns a single keyword by its word.
func (s *SQLite) GetKeyword(ctx context.Context, word string) (*model.Keyword, error) {
	var k model.Keyword
	err := s.db.QueryRowContext(ctx,
		`SELECT id, word FROM keywords WHERE word = ?`, word,
	).Scan(&k.ID, &k.Word)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("keyword %q: %w", word, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scan keyword: %w", err)
	}
	return &k, nil
}

// DeleteKeywords removes the given words and their theme memberships.
func (s *SQLite) DeleteKeywords(ctx context.Context, words []string) error {
	if len(words) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	args := stringArgs(words)
	ph := placeholders(len(words))
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM theme_keywords WHERE keyword_id IN
		 (SELECT id FROM keywords WHERE word IN (`+ph+`))`, args...,
	); err != nil {
		return fmt.Errorf("delete memberships: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM keywords WHERE word IN (`+ph+`)`, args...,
	); err != nil {
		return fmt.Errorf("delete keywords: %w", err)
	}
	return tx.Commit()
}

// RenameKeyword replaces from with to, keeping theme memberships intact.
// Fails with ErrNotFound if from is absent and ErrConflict if to exists.
func (s *SQLite) RenameKeyword(ctx context.Context, from, to string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var n int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM keywords WHERE word = ?`, to,
	).Scan(&n); err != nil {
		return fmt.Errorf("check target: %w", err)
	}
	if n > 0 {
		return fmt.Errorf("keyword %q: %w", to, ErrConflict)
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE keywords SET word = ? WHERE word = ?`, to, from,
	)
	if err != nil {
		return fmt.Errorf("rename keyword: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("keyword %q: %w", from, ErrNotFound)
	}
	return tx.Commit()
}

// CreateTheme inserts a new theme with its keyword memberships and
// populates its ID. Fails with ErrConflict on a duplicate name.
func (s *SQLite) CreateTheme(ctx context.Context, theme *model.Theme) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO themes (name, interval_seconds, is_following) VALUES (?, ?, ?)`,
		theme.Name, theme.IntervalSeconds, boolToInt(theme.IsFollowing),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("theme %q: %w", theme.Name, ErrConflict)
		}
		return fmt.Errorf("insert theme: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	theme.ID = id

	for _, kw := range theme.Keywords {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO theme_keywords (theme_id, keyword_id) VALUES (?, ?)`,
			id, kw.ID,
		); err != nil {
			return fmt.Errorf("attach keyword: %w", err)
		}
	}
	return tx.Commit()
}

// GetTheme returns a theme with its keyword set.
func (s *SQLite) GetTheme(ctx context.Context, name string) (*model.Theme, error) {
	var t model.Theme
	var following int
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, interval_seconds, is_following FROM themes WHERE name = ?`, name,
	).Scan(&t.ID, &t.Name, &t.IntervalSeconds, &following)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("theme %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scan theme: %w", err)
	}
	t.IsFollowing = following == 1

	kws, err := s.themeKeywords(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	t.Keywords = kws
	return &t, nil
}

// ListThemes returns all themes with their keyword sets.
func (s *SQLite) ListThemes(ctx context.Context) ([]model.Theme, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, interval_seconds, is_following FROM themes ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("query themes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var themes []model.Theme
	for rows.Next() {
		var t model.Theme
		var following int
		if err := rows.Scan(&t.ID, &t.Name, &t.IntervalSeconds, &following); err != nil {
			return nil, fmt.Errorf("scan theme: %w", err)
		}
		t.IsFollowing = following == 1
		themes = append(themes, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range themes {
		kws, err := s.themeKeywords(ctx, themes[i].ID)
		if err != nil {
			return nil, err
		}
		themes[i].Keywords = kws
	}
	return themes, nil
}

func (s *SQLite) themeKeywords(ctx context.Context, themeID int64) ([]model.Keyword, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT k.id, k.word FROM keywords k
		 JOIN theme_keywords tk ON tk.keyword_id = k.id
		 WHERE tk.theme_id = ? ORDER BY k.id`, themeID,
	)
	if err != nil {
		return nil, fmt.Errorf("query theme keywords: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var kws []model.Keyword
	for rows.Next() {
		var k model.Keyword
		if err := rows.Scan(&k.ID, &k.Word); err != nil {
			return nil, fmt.Errorf("scan theme keyword: %w", err)
		}
		kws = append(kws, k)
	}
	return kws, rows.Err()
}

// DeleteTheme removes a theme and its keyword memberships. The keywords
// themselves stay in the vocabulary.
func (s *SQLite) DeleteTheme(ctx context.Context, name string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM theme_keywords WHERE theme_id IN
		 (SELECT id FROM themes WHERE name = ?)`, name,
	); err != nil {
		return fmt.Errorf("delete memberships: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM themes WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("delete theme: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("theme %q: %w", name, ErrNotFound)
	}
	return tx.Commit()
}

// SetFollowing flips the follow flag for the given theme names in one
// statement.
func (s *SQLite) SetFollowing(ctx context.Context, names []string, following bool) error {
	if len(names) == 0 {
		return nil
	}
	args := append([]any{boolToInt(following)}, stringArgs(names)...)
	_, err := s.db.ExecContext(ctx,
		`UPDATE themes SET is_following = ? WHERE name IN (`+placeholders(len(names))+`)`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("set following: %w", err)
	}
	return nil
}

// UpdateThemeInterval stores a new digest interval for the theme.
func (s *SQLite) UpdateThemeInterval(ctx context.Context, name string, seconds int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE themes SET interval_seconds = ? WHERE name = ?`, seconds, name,
	)
	if err != nil {
		return fmt.Errorf("update interval: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("theme %q: %w", name, ErrNotFound)
	}
	return nil
}

// AddKeywordsToTheme attaches existing vocabulary words to a theme.
func (s *SQLite) AddKeywordsToTheme(ctx context.Context, name string, words []string) error {
	theme, err := s.GetTheme(ctx, name)
	if err != nil {
		return err
	}
	if len(words) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	args := append([]any{theme.ID}, stringArgs(words)...)
	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO theme_keywords (theme_id, keyword_id)
		 SELECT ?, id FROM keywords WHERE word IN (`+placeholders(len(words))+`)`,
		args...,
	); err != nil {
		return fmt.Errorf("attach keywords: %w", err)
	}
	return tx.Commit()
}

// RemoveKeywordsFromTheme detaches words from a theme without deleting
// them from the vocabulary.
func (s *SQLite) RemoveKeywordsFromTheme(ctx context.Context, name string, words []string) error {
	theme, err := s.GetTheme(ctx, name)
	if err != nil {
		return err
	}
	if len(words) == 0 {
		return nil
	}

	args := append([]any{theme.ID}, stringArgs(words)...)
	_, err = s.db.ExecContext(ctx,
		`DELETE FROM theme_keywords WHERE theme_id = ? AND keyword_id IN
		 (SELECT id FROM keywords WHERE word IN (`+placeholders(len(words))+`))`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("detach keywords: %w", err)
	}
	return nil
}

// CreateListeningChat registers a chat for ingestion. Fails with
// ErrConflict if the chat is already listened to.
func (s *SQLite) CreateListeningChat(ctx context.Context, chatID int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO listening_chats (chat_id) VALUES (?)`, chatID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("chat %d: %w", chatID, ErrConflict)
		}
		return fmt.Errorf("insert listening chat: %w", err)
	}
	return nil
}

// GetListeningChat returns a listened chat by its Telegram chat ID.
func (s *SQLite) GetListeningChat(ctx context.Context, chatID int64) (*model.ListeningChat, error) {
	var c model.ListeningChat
	err := s.db.QueryRowContext(ctx,
		`SELECT id, chat_id FROM listening_chats WHERE chat_id = ?`, chatID,
	).Scan(&c.ID, &c.ChatID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("chat %d: %w", chatID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scan listening chat: %w", err)
	}
	return &c, nil
}

// ListListeningChats returns all chats registered for ingestion.
func (s *SQLite) ListListeningChats(ctx context.Context) ([]model.ListeningChat, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, chat_id FROM listening_chats ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query listening chats: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var chats []model.ListeningChat
	for rows.Next() {
		var c model.ListeningChat
		if err := rows.Scan(&c.ID, &c.ChatID); err != nil {
			return nil, fmt.Errorf("scan listening chat: %w", err)
		}
		chats = append(chats, c)
	}
	return chats, rows.Err()
}

// DeleteListeningChat removes a chat from the listened set.
func (s *SQLite) DeleteListeningChat(ctx context.Context, chatID int64) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM listening_chats WHERE chat_id = ?`, chatID,
	)
	if err != nil {
		return fmt.Errorf("delete listening chat: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("chat %d: %w", chatID, ErrNotFound)
	}
	return nil
}

// CreateMessage stores a message. Re-ingesting the same
// (chat_id, message_id) pair is a no-op.
func (s *SQLite) CreateMessage(ctx context.Context, msg *model.Message) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO messages (chat_id, message_id, text, grouped_id, date, links)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		msg.ChatID, msg.MessageID, msg.Text, msg.GroupedID,
		msg.Date.UTC().Format(timeLayout), nullable(msg.Links),
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// ListMessagesSince returns all messages with date >= since, in a stable
// (date, chat, message) order.
func (s *SQLite) ListMessagesSince(ctx context.Context, since time.Time) ([]model.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT chat_id, message_id, text, grouped_id, date, links FROM messages
		 WHERE date >= ? ORDER BY date, chat_id, message_id`,
		since.UTC().Format(timeLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var msgs []model.Message
	for rows.Next() {
		var m model.Message
		var grouped sql.NullInt64
		var date string
		var links sql.NullString
		if err := rows.Scan(&m.ChatID, &m.MessageID, &m.Text, &grouped, &date, &links); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		if grouped.Valid {
			g := grouped.Int64
			m.GroupedID = &g
		}
		m.Date, _ = time.Parse(timeLayout, date)
		m.Links = links.String
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// CreateFile stores attachment metadata. Re-ingesting the same
// document_id is a no-op.
func (s *SQLite) CreateFile(ctx context.Context, f *model.File) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO files
		 (document_id, file_name, file_path, file_type, message_id, chat_id, original_filename)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		f.DocumentID, f.FileName, f.FilePath, string(f.FileType),
		f.MessageID, f.ChatID, nullable(f.OriginalFilename),
	)
	if err != nil {
		return fmt.Errorf("insert file: %w", err)
	}
	return nil
}

// ListFilesForMessages returns the files attached to any of the given
// messages of one chat.
func (s *SQLite) ListFilesForMessages(ctx context.Context, chatID int64, messageIDs []int64) ([]model.File, error) {
	if len(messageIDs) == 0 {
		return nil, nil
	}
	args := make([]any, 0, len(messageIDs)+1)
	args = append(args, chatID)
	for _, id := range messageIDs {
		args = append(args, id)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, document_id, file_name, file_path, file_type, message_id, chat_id, original_filename
		 FROM files WHERE chat_id = ? AND message_id IN (`+placeholders(len(messageIDs))+`)
		 ORDER BY message_id, id`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("query files: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var files []model.File
	for rows.Next() {
		var f model.File
		var kind string
		var orig sql.NullString
		if err := rows.Scan(&f.ID, &f.DocumentID, &f.FileName, &f.FilePath, &kind,
			&f.MessageID, &f.ChatID, &orig); err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		f.FileType = model.MediaKind(kind)
		f.OriginalFilename = orig.String
		files = append(files, f)
	}
	return files, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func stringArgs(ss []string) []any {
	args := make([]any, len(ss))
	for i, s := range ss {
		args[i] = s
	}
	return args
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
