package visit

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"

	_ "embed"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var Schema string

// DBConfig selects where a record snapshot is kept, a remote libSQL database
// when Url is set, otherwise a local sqlite file.
type DBConfig struct {
	File      string `json:"file"`
	Url       string `json:"url"`
	AuthToken string `json:"auth_token"`
}

func (config DBConfig) Enabled() bool {
	return config.File != "" || config.Url != ""
}

func (config DBConfig) OpenDB() (*sql.DB, error) {
	if config.Url != "" {
		values := url.Values{}
		if config.AuthToken != "" {
			values.Add("authToken", config.AuthToken)
		}
		return sql.Open("libsql", config.Url+"?"+values.Encode())
	}

	if config.File == "" {
		return nil, fmt.Errorf("neither a db file nor url was specified")
	}

	_, statErr := os.Stat(config.File)
	if os.IsNotExist(statErr) {
		f, err := os.Create(config.File)
		if err != nil {
			return nil, err
		}
		f.Close()
	}

	db, err := sql.Open("sqlite", config.File)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	_, err = db.Exec("PRAGMA journal_mode=WAL")
	if err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// SQLStore keeps a single snapshot of the record table in a database, rows
// are keyed by their position in the table so the extraction order survives
// a round trip.
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore creates the schema if needed and returns a store over db.
func NewSQLStore(ctx context.Context, db *sql.DB) (SQLStore, error) {
	_, err := db.ExecContext(ctx, Schema)
	if err != nil {
		return SQLStore{}, fmt.Errorf("create visit_record schema: %w", err)
	}
	return SQLStore{db: db}, nil
}

const insertRecord = `insert into visit_record (
	row_idx, sample_id, work_id, date, session, result_code, record_url,
	view_url, logs_url, interviewer_no, interviewer_name,
	contact_method, contact_answered_at, t16_answer,
	sampling, sampling_q, interview_record, has_fill
) values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// Save replaces the stored snapshot with records.
func (s SQLStore) Save(ctx context.Context, records []Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, "delete from visit_record")
	if err != nil {
		return fmt.Errorf("clear snapshot: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, insertRecord)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, r := range records {
		args := []any{i}
		for _, v := range r.Values() {
			args = append(args, v)
		}
		_, err = stmt.ExecContext(ctx, args...)
		if err != nil {
			return fmt.Errorf("insert record %d (work %s): %w", i, r.WorkID, err)
		}
	}

	return tx.Commit()
}

// Load returns the stored snapshot in its original order.
func (s SQLStore) Load(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `select
		sample_id, work_id, date, session, result_code, record_url,
		view_url, logs_url, interviewer_no, interviewer_name,
		contact_method, contact_answered_at, t16_answer,
		sampling, sampling_q, interview_record, has_fill
	from visit_record order by row_idx`)
	if err != nil {
		return nil, fmt.Errorf("query snapshot: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		err := rows.Scan(
			&r.SampleID, &r.WorkID, &r.Date, &r.Session, &r.ResultCode, &r.RecordURL,
			&r.ViewURL, &r.LogsURL, &r.InterviewerNo, &r.InterviewerName,
			&r.ContactMethod, &r.ContactAnsweredAt, &r.T16Answer,
			&r.Sampling, &r.SamplingQ, &r.InterviewRecord, &r.HasFill,
		)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
