package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/mohammad-safakhou/parley/config"
	"github.com/mohammad-safakhou/parley/internal/engine"
)

// Store persists users, interview sessions and answers in Postgres.
// Answer embeddings live in a pgvector column; an answer row is
// upserted per (session, question) so a probed resubmission replaces
// the thin first attempt.
type Store struct {
	DB *sql.DB
}

// New opens a store from config.
func New(ctx context.Context, cfg config.PostgresConfig) (*Store, error) {
	return NewWithDSN(ctx, cfg.DSN())
}

// NewWithDSN opens a store from an explicit Postgres DSN.
func NewWithDSN(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &Store{DB: db}, nil
}

// Close releases the underlying pool.
func (s *Store) Close() error {
	return s.DB.Close()
}

// User operations

func (s *Store) CreateUser(ctx context.Context, email, hash string) (string, error) {
	var id string
	err := s.DB.QueryRowContext(ctx,
		`INSERT INTO users (email, password_hash) VALUES ($1,$2) RETURNING id`,
		email, hash).Scan(&id)
	return id, err
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (id string, hash string, err error) {
	err = s.DB.QueryRowContext(ctx,
		`SELECT id, password_hash FROM users WHERE email=$1`, email).Scan(&id, &hash)
	return
}

// Session operations

func (s *Store) CreateSession(ctx context.Context, userID, role, difficulty string, totalQuestions int) (engine.Session, error) {
	var sess engine.Session
	err := s.DB.QueryRowContext(ctx, `
INSERT INTO interview_sessions (user_id, role, difficulty, total_questions, status)
VALUES ($1,$2,$3,$4,$5)
RETURNING id, user_id, role, difficulty, total_questions, status, created_at
`, userID, role, difficulty, totalQuestions, engine.StatusInProgress).
		Scan(&sess.ID, &sess.UserID, &sess.Role, &sess.Difficulty, &sess.TotalQuestions, &sess.Status, &sess.CreatedAt)
	return sess, err
}

func (s *Store) GetSession(ctx context.Context, id, userID string) (engine.Session, error) {
	var sess engine.Session
	err := s.DB.QueryRowContext(ctx, `
SELECT id, user_id, role, difficulty, total_questions, status, created_at
FROM interview_sessions
WHERE id=$1 AND user_id=$2
`, id, userID).
		Scan(&sess.ID, &sess.UserID, &sess.Role, &sess.Difficulty, &sess.TotalQuestions, &sess.Status, &sess.CreatedAt)
	return sess, err
}

func (s *Store) ListSessions(ctx context.Context, userID string) ([]engine.Session, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT id, user_id, role, difficulty, total_questions, status, created_at
FROM interview_sessions
WHERE user_id=$1
ORDER BY created_at DESC
`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []engine.Session
	for rows.Next() {
		var sess engine.Session
		if err := rows.Scan(&sess.ID, &sess.UserID, &sess.Role, &sess.Difficulty, &sess.TotalQuestions, &sess.Status, &sess.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

func (s *Store) UpdateSessionStatus(ctx context.Context, id, status string) error {
	res, err := s.DB.ExecContext(ctx,
		`UPDATE interview_sessions SET status=$2, updated_at=NOW() WHERE id=$1`, id, status)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// AbandonStaleSessions flips in-progress sessions with no activity for
// olderThan to abandoned. Returns how many sessions were flipped.
func (s *Store) AbandonStaleSessions(ctx context.Context, olderThan time.Duration) (int64, error) {
	interval := fmt.Sprintf("%d seconds", int64(olderThan.Seconds()))
	res, err := s.DB.ExecContext(ctx, `
UPDATE interview_sessions
SET status=$1, updated_at=NOW()
WHERE status=$2 AND updated_at < NOW() - $3::interval
`, engine.StatusAbandoned, engine.StatusInProgress, interval)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Answer operations

// SaveAnswer upserts the answer for (session, question) and touches the
// session's activity stamp. A missing embedding stores NULL.
func (s *Store) SaveAnswer(ctx context.Context, a engine.Answer) (string, error) {
	var embedding interface{}
	if len(a.Embedding) > 0 {
		lit, err := encodeVectorLiteral(a.Embedding)
		if err != nil {
			return "", err
		}
		embedding = lit
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	var id string
	err = tx.QueryRowContext(ctx, `
INSERT INTO answers (session_id, question_id, question_text, question_intent, answer_text, embedding, created_at)
VALUES ($1,$2,$3,$4,$5,$6::vector,NOW())
ON CONFLICT (session_id, question_id) DO UPDATE SET
  question_text   = EXCLUDED.question_text,
  question_intent = EXCLUDED.question_intent,
  answer_text     = EXCLUDED.answer_text,
  embedding       = EXCLUDED.embedding,
  created_at      = NOW()
RETURNING id
`, a.SessionID, a.QuestionID, a.QuestionText, string(a.QuestionIntent), a.Text, embedding).Scan(&id)
	if err != nil {
		return "", err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE interview_sessions SET updated_at=NOW() WHERE id=$1`, a.SessionID); err != nil {
		return "", err
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return id, nil
}

// Answers returns a session's answers in question order with embeddings
// decoded.
func (s *Store) Answers(ctx context.Context, sessionID string) ([]engine.Answer, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT id, session_id, question_id, question_text, question_intent, answer_text, COALESCE(embedding::text, ''), created_at
FROM answers
WHERE session_id=$1
ORDER BY question_id ASC
`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []engine.Answer
	for rows.Next() {
		var (
			a      engine.Answer
			intent string
			lit    string
		)
		if err := rows.Scan(&a.ID, &a.SessionID, &a.QuestionID, &a.QuestionText, &intent, &a.Text, &lit, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.QuestionIntent = engine.Intent(intent)
		if lit != "" {
			vec, err := decodeVectorLiteral(lit)
			if err != nil {
				return nil, fmt.Errorf("answer %s: %w", a.ID, err)
			}
			a.Embedding = vec
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func encodeVectorLiteral(vec []float32) (string, error) {
	if len(vec) == 0 {
		return "", fmt.Errorf("vector must not be empty")
	}
	var builder strings.Builder
	builder.WriteByte('[')
	for i, f := range vec {
		if i > 0 {
			builder.WriteByte(',')
		}
		builder.WriteString(strconv.FormatFloat(float64(f), 'f', -1, 32))
	}
	builder.WriteByte(']')
	return builder.String(), nil
}

func decodeVectorLiteral(lit string) ([]float32, error) {
	lit = strings.TrimSpace(lit)
	if lit == "" {
		return nil, fmt.Errorf("empty vector literal")
	}
	lit = strings.TrimPrefix(lit, "[")
	lit = strings.TrimSuffix(lit, "]")
	parts := strings.Split(lit, ",")
	vec := make([]float32, 0, len(parts))
	for _, part := range parts {
		value := strings.TrimSpace(part)
		if value == "" {
			continue
		}
		f, err := strconv.ParseFloat(value, 32)
		if err != nil {
			return nil, fmt.Errorf("parse vector value %q: %w", value, err)
		}
		vec = append(vec, float32(f))
	}
	return vec, nil
}
