// Package store persists the registry's append-only event journal,
// token/project snapshots for external indexing, and idempotency
// records. The in-memory engine stays authoritative within a process;
// rows here exist for indexers and restart replay.
package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oz-earth/smart-contracts/pkg/domain"
)

type Store struct{ DB *pgxpool.Pool }

func New(db *pgxpool.Pool) *Store { return &Store{DB: db} }

// EnsureSchema creates the journal tables if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.DB.Exec(ctx, `
CREATE TABLE IF NOT EXISTS ledger_events(
  seq        BIGSERIAL PRIMARY KEY,
  kind       TEXT NOT NULL,
  at         TIMESTAMPTZ NOT NULL,
  payload    JSONB NOT NULL
);
CREATE TABLE IF NOT EXISTS projects(
  project_id  BIGINT PRIMARY KEY,
  owner       TEXT NOT NULL,
  asset_class TEXT NOT NULL,
  created_at  TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS tokens(
  token_id      BIGINT PRIMARY KEY,
  minter        TEXT NOT NULL,
  project_id    BIGINT NOT NULL,
  ceiling       BIGINT NOT NULL,
  issued        BIGINT NOT NULL,
  burned        BIGINT NOT NULL,
  asset_class   TEXT NOT NULL,
  metadata_hash TEXT NOT NULL,
  locked        BOOLEAN NOT NULL,
  created_at    TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS idempotency_records(
  account         TEXT NOT NULL,
  idempotency_key TEXT NOT NULL,
  endpoint        TEXT NOT NULL,
  response_status INT NOT NULL,
  response_body   JSONB NOT NULL,
  created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
  PRIMARY KEY(account, idempotency_key, endpoint)
);
`)
	return err
}

// AppendEvent journals one notification-log entry.
func (s *Store) AppendEvent(ctx context.Context, ev domain.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = s.DB.Exec(ctx, `INSERT INTO ledger_events(kind,at,payload) VALUES($1,$2,$3::jsonb)`,
		string(ev.Kind), ev.At, string(payload))
	return err
}

// ListEvents returns journal entries after seq, oldest first.
func (s *Store) ListEvents(ctx context.Context, afterSeq int64, limit int) ([]int64, []domain.Event, error) {
	rows, err := s.DB.Query(ctx, `SELECT seq,payload FROM ledger_events WHERE seq>$1 ORDER BY seq ASC LIMIT $2`,
		afterSeq, limit)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()
	var seqs []int64
	var events []domain.Event
	for rows.Next() {
		var seq int64
		var payload []byte
		if err := rows.Scan(&seq, &payload); err != nil {
			return nil, nil, err
		}
		var ev domain.Event
		if err := json.Unmarshal(payload, &ev); err != nil {
			return nil, nil, err
		}
		seqs = append(seqs, seq)
		events = append(events, ev)
	}
	return seqs, events, rows.Err()
}

func (s *Store) UpsertProject(ctx context.Context, p domain.Project) error {
	_, err := s.DB.Exec(ctx, `
INSERT INTO projects(project_id,owner,asset_class,created_at)
VALUES($1,$2,$3,$4)
ON CONFLICT (project_id) DO NOTHING
`, int64(p.ID), string(p.Owner), string(p.Class), p.CreatedAt)
	return err
}

func (s *Store) UpsertToken(ctx context.Context, t domain.Token) error {
	_, err := s.DB.Exec(ctx, `
INSERT INTO tokens(token_id,minter,project_id,ceiling,issued,burned,asset_class,metadata_hash,locked,created_at)
VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (token_id) DO UPDATE SET
  ceiling=EXCLUDED.ceiling,
  issued=EXCLUDED.issued,
  burned=EXCLUDED.burned,
  locked=EXCLUDED.locked
`, int64(t.ID), string(t.Minter), int64(t.ProjectID), int64(t.Ceiling), int64(t.Issued), int64(t.Burned),
		string(t.Class), t.Metadata.String(), t.Locked, t.CreatedAt)
	return err
}

func (s *Store) GetIdempotencyRecord(ctx context.Context, account, key, endpoint string) (int, map[string]any, bool, error) {
	var status int
	var body []byte
	err := s.DB.QueryRow(ctx, `
SELECT response_status,response_body FROM idempotency_records
WHERE account=$1 AND idempotency_key=$2 AND endpoint=$3
`, account, key, endpoint).Scan(&status, &body)
	if err == pgx.ErrNoRows {
		return 0, nil, false, nil
	}
	if err != nil {
		return 0, nil, false, err
	}
	var out map[string]any
	if err := json.Unmarshal(body, &out); err != nil {
		return 0, nil, false, err
	}
	return status, out, true, nil
}

func (s *Store) SaveIdempotencyRecord(ctx context.Context, account, key, endpoint string, status int, body map[string]any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	_, err = s.DB.Exec(ctx, `
INSERT INTO idempotency_records(account,idempotency_key,endpoint,response_status,response_body,created_at)
VALUES($1,$2,$3,$4,$5::jsonb,$6)
ON CONFLICT (account,idempotency_key,endpoint) DO NOTHING
`, account, key, endpoint, status, string(b), time.Now().UTC())
	return err
}
