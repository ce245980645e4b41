package store

import (
	"database/sql"
	"time"
)

// CronJob is a scheduled, cron-triggered session flow: on each schedule
// match, the owning agent runs Message as if it arrived on Channel from
// ChatID, optionally delivering the reply back out.
type CronJob struct {
	ID       string
	Name     string
	AgentID  string
	UserID   string
	Schedule string // standard 5-field cron expression, matched with adhocore/gronx

	Enabled bool

	Channel string // outbound channel to deliver to, e.g. "telegram"
	ChatID  string // outbound chat/peer ID within Channel
	Message string // prompt sent to the agent on each trigger
	Deliver bool   // publish the result to Channel/ChatID when true

	CreatedAt time.Time
	UpdatedAt time.Time

	LastRunAt     *time.Time
	LastRunStatus string // "ok" | "error" | ""
	LastRunError  string
}

// CronJobResult carries the outcome of one job run back to the caller for
// bookkeeping (token accounting, delivery).
type CronJobResult struct {
	Content      string
	InputTokens  int64
	OutputTokens int64
}

// CronStore manages scheduled session flows.
type CronStore interface {
	Create(job *CronJob) error
	Get(id string) (*CronJob, bool, error)
	List() ([]*CronJob, error)
	Delete(id string) error
	SetEnabled(id string, enabled bool) error

	// RecordRun updates bookkeeping for the most recent trigger of id.
	RecordRun(id string, runAt time.Time, status, errMsg string) error
}

type sqliteCronStore struct {
	db *sql.DB
}

func newCronStore(db *sql.DB) *sqliteCronStore {
	return &sqliteCronStore{db: db}
}

func (s *sqliteCronStore) Create(job *CronJob) error {
	now := time.Now()
	job.CreatedAt = now
	job.UpdatedAt = now
	_, err := s.db.Exec(`
		INSERT INTO cron_jobs (id, name, agent_id, user_id, schedule, enabled, channel, chat_id, message, deliver, created_at, updated_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		job.ID, job.Name, job.AgentID, job.UserID, job.Schedule, boolToInt(job.Enabled),
		job.Channel, job.ChatID, job.Message, boolToInt(job.Deliver),
		now.UnixMilli(), now.UnixMilli())
	return err
}

func (s *sqliteCronStore) Get(id string) (*CronJob, bool, error) {
	row := s.db.QueryRow(`
		SELECT id, name, agent_id, user_id, schedule, enabled, channel, chat_id, message, deliver,
		       created_at, updated_at, last_run_at, last_run_status, last_run_error
		FROM cron_jobs WHERE id = ?`, id)
	job, err := scanCronJob(row)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return job, true, nil
}

func (s *sqliteCronStore) List() ([]*CronJob, error) {
	rows, err := s.db.Query(`
		SELECT id, name, agent_id, user_id, schedule, enabled, channel, chat_id, message, deliver,
		       created_at, updated_at, last_run_at, last_run_status, last_run_error
		FROM cron_jobs ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*CronJob
	for rows.Next() {
		job, err := scanCronJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func (s *sqliteCronStore) Delete(id string) error {
	_, err := s.db.Exec(`DELETE FROM cron_jobs WHERE id = ?`, id)
	return err
}

func (s *sqliteCronStore) SetEnabled(id string, enabled bool) error {
	_, err := s.db.Exec(`UPDATE cron_jobs SET enabled = ?, updated_at = ? WHERE id = ?`,
		boolToInt(enabled), time.Now().UnixMilli(), id)
	return err
}

func (s *sqliteCronStore) RecordRun(id string, runAt time.Time, status, errMsg string) error {
	_, err := s.db.Exec(`
		UPDATE cron_jobs SET last_run_at = ?, last_run_status = ?, last_run_error = ?, updated_at = ?
		WHERE id = ?`, runAt.UnixMilli(), status, errMsg, time.Now().UnixMilli(), id)
	return err
}

// rowScanner abstracts *sql.Row and *sql.Rows for scanCronJob.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanCronJob(row rowScanner) (*CronJob, error) {
	var job CronJob
	var enabled, deliver int
	var createdAt, updatedAt int64
	var lastRunAt sql.NullInt64
	var lastRunStatus, lastRunError sql.NullString
	var agentID, userID, channel, chatID sql.NullString

	err := row.Scan(&job.ID, &job.Name, &agentID, &userID, &job.Schedule, &enabled,
		&channel, &chatID, &job.Message, &deliver,
		&createdAt, &updatedAt, &lastRunAt, &lastRunStatus, &lastRunError)
	if err != nil {
		return nil, err
	}

	job.AgentID = agentID.String
	job.UserID = userID.String
	job.Channel = channel.String
	job.ChatID = chatID.String
	job.Enabled = enabled != 0
	job.Deliver = deliver != 0
	job.CreatedAt = time.UnixMilli(createdAt)
	job.UpdatedAt = time.UnixMilli(updatedAt)
	if lastRunAt.Valid {
		t := time.UnixMilli(lastRunAt.Int64)
		job.LastRunAt = &t
	}
	job.LastRunStatus = lastRunStatus.String
	job.LastRunError = lastRunError.String
	return &job, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
