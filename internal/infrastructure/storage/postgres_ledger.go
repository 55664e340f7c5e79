package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/cockroachdb/errors"
	"github.com/lib/pq"

	"ContentIngestor/internal/domain"
	"ContentIngestor/internal/ports"
)

const (
	runsTable          = "job_runs"
	uniqueViolationErr = "23505"
)

const schema = `CREATE TABLE IF NOT EXISTS job_runs (
    job_name     TEXT        NOT NULL,
    run_id       BIGINT      NOT NULL,
    execution_id TEXT        NOT NULL,
    base_date    TEXT        NOT NULL,
    params       TEXT        NOT NULL DEFAULT '{}',
    status       TEXT        NOT NULL,
    started_at   TIMESTAMPTZ NOT NULL,
    finished_at  TIMESTAMPTZ,
    PRIMARY KEY (job_name, run_id)
)`

// PostgresLedger stores run identities in Postgres.
type PostgresLedger struct {
	db  *sql.DB
	now func() time.Time
	sb  sq.StatementBuilderType
}

var _ ports.RunLedger = (*PostgresLedger)(nil)

// NewPostgresLedger wires a sql.DB implementation.
func NewPostgresLedger(db *sql.DB) *PostgresLedger {
	return &PostgresLedger{
		db:  db,
		now: time.Now,
		sb:  sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// Open connects to Postgres through lib/pq and verifies the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open postgres")
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "ping postgres")
	}
	return db, nil
}

// EnsureSchema creates the runs table if it is missing.
func (r *PostgresLedger) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return errors.Wrap(err, "create job_runs")
	}
	return nil
}

// LastRunID returns the highest recorded run id of a job, or zero.
func (r *PostgresLedger) LastRunID(ctx context.Context, jobName string) (int64, error) {
	query, args, err := r.sb.
		Select("COALESCE(MAX(run_id), 0)").
		From(runsTable).
		Where(sq.Eq{"job_name": jobName}).
		ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "build last run query")
	}

	var last int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&last); err != nil {
		return 0, errors.Wrap(err, "query last run id")
	}
	return last, nil
}

// Start records a new run in STARTED state.
func (r *PostgresLedger) Start(ctx context.Context, identity domain.JobRunIdentity) error {
	params, err := json.Marshal(identity.Params)
	if err != nil {
		return errors.Wrap(err, "encode params")
	}

	query, args, err := r.sb.
		Insert(runsTable).
		Columns("job_name", "run_id", "execution_id", "base_date", "params", "status", "started_at").
		Values(identity.JobName, identity.RunID, identity.ExecutionID, identity.BaseDate, string(params), string(domain.RunStarted), r.now()).
		ToSql()
	if err != nil {
		return errors.Wrap(err, "build insert run")
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolationErr {
			return errors.Wrapf(ErrRunExists, "%s run %d", identity.JobName, identity.RunID)
		}
		return errors.Wrap(err, "insert run")
	}
	return nil
}

// Finish stores the terminal status of a run.
func (r *PostgresLedger) Finish(ctx context.Context, identity domain.JobRunIdentity, status domain.RunStatus) error {
	query, args, err := r.sb.
		Update(runsTable).
		Set("status", string(status)).
		Set("finished_at", r.now()).
		Where(sq.Eq{"job_name": identity.JobName, "run_id": identity.RunID}).
		ToSql()
	if err != nil {
		return errors.Wrap(err, "build finish run")
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return errors.Wrap(err, "update run")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "rows affected")
	}
	if affected == 0 {
		return errors.Wrapf(ErrRunNotFound, "%s run %d", identity.JobName, identity.RunID)
	}
	return nil
}
