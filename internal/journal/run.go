package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/multiio/internal/engine"
)

// Run is one journaled pipeline run.
type Run struct {
	ID       string
	Seq      int64
	Config   string
	Policy   string
	Async    bool
	Status   string
	Error    string
	Started  time.Time
	Finished time.Time
	Items    []Item
}

// Item is the outcome of one input or output within a run.
type Item struct {
	Direction string
	Position  int
	ID        string
	Format    string
	Status    string
	Stage     string
	Error     string
}

// FromReport converts an engine run report into a journal entry.
// configPath identifies the pipeline config and may be empty.
func FromReport(configPath string, r *engine.RunReport) Run {
	run := Run{
		Seq:      r.Seq,
		Config:   configPath,
		Policy:   r.Policy.String(),
		Async:    r.Async,
		Status:   "ok",
		Started:  r.Started,
		Finished: r.Finished,
	}
	if r.Err != nil {
		run.Status = "failed"
		run.Error = r.Err.Error()
	}
	for _, o := range r.Outcomes {
		item := Item{
			Direction: o.Direction,
			Position:  o.Position,
			ID:        o.ID,
			Format:    o.Format,
			Status:    string(o.Status),
		}
		if o.Err != nil {
			item.Stage = string(o.Err.Stage)
			item.Error = fmt.Sprint(o.Err.Err)
		}
		run.Items = append(run.Items, item)
	}
	return run
}

// Record stores run and its items in one transaction and returns the run
// id, generating one if run.ID is empty.
func (j *Journal) Record(ctx context.Context, run Run) (string, error) {
	if run.ID == "" {
		run.ID = j.ids.Generate()
	}

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("record run: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, seq, config, policy, async, status, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		run.Seq,
		run.Config,
		run.Policy,
		run.Async,
		run.Status,
		run.Error,
		formatTime(run.Started),
		formatTime(run.Finished),
	)
	if err != nil {
		return "", fmt.Errorf("record run: %w", err)
	}

	for _, item := range run.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO run_items
			(run_id, direction, position, item_id, format, status, stage, error)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`,
			run.ID,
			item.Direction,
			item.Position,
			item.ID,
			item.Format,
			item.Status,
			item.Stage,
			item.Error,
		)
		if err != nil {
			return "", fmt.Errorf("record run item %s[%d]: %w", item.Direction, item.Position, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("record run: %w", err)
	}
	return run.ID, nil
}

const runColumns = `id, seq, config, policy, async, status, error, started_at, finished_at`

// List returns up to limit runs, most recent sequence first, with their
// items. limit <= 0 returns every run.
func (j *Journal) List(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY seq DESC, id COLLATE BINARY ASC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("list runs: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("list runs: %w", err)
	}
	rows.Close()

	// Items are loaded after the run cursor is closed: the pool has one
	// connection.
	for i := range runs {
		items, err := j.items(ctx, runs[i].ID)
		if err != nil {
			return nil, err
		}
		runs[i].Items = items
	}
	return runs, nil
}

// Get returns the run with the given id, or ErrNotFound.
func (j *Journal) Get(ctx context.Context, id string) (Run, error) {
	row := j.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Run{}, fmt.Errorf("get run: %w", err)
	}
	run.Items, err = j.items(ctx, id)
	if err != nil {
		return Run{}, err
	}
	return run, nil
}

// LastSeq returns the highest recorded sequence number, or 0 for an empty
// journal. Engines resume their clock from it.
func (j *Journal) LastSeq(ctx context.Context) (int64, error) {
	var seq int64
	err := j.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM runs`).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("last seq: %w", err)
	}
	return seq, nil
}

func (j *Journal) items(ctx context.Context, runID string) ([]Item, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT direction, position, item_id, format, status, stage, error
		FROM run_items
		WHERE run_id = ?
		ORDER BY CASE direction WHEN 'input' THEN 0 ELSE 1 END, position ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("load run items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.Direction, &it.Position, &it.ID, &it.Format, &it.Status, &it.Stage, &it.Error); err != nil {
			return nil, fmt.Errorf("scan run item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (Run, error) {
	var (
		run               Run
		started, finished string
	)
	err := s.Scan(&run.ID, &run.Seq, &run.Config, &run.Policy, &run.Async, &run.Status, &run.Error, &started, &finished)
	if err != nil {
		return Run{}, err
	}
	if run.Started, err = parseTime(started); err != nil {
		return Run{}, fmt.Errorf("parse started_at: %w", err)
	}
	if run.Finished, err = parseTime(finished); err != nil {
		return Run{}, fmt.Errorf("parse finished_at: %w", err)
	}
	return run, nil
}
