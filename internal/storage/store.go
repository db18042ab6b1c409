// Package storage persists analysis runs and their motion tables in SQLite.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/kikiluvv/motionbeat/internal/export"
	"github.com/kikiluvv/motionbeat/internal/motion"
	"github.com/kikiluvv/motionbeat/internal/video"
	"github.com/kikiluvv/motionbeat/pkg/util"
)

var (
	// ErrRunNotFound is returned when no run matches an ID or prefix.
	ErrRunNotFound = errors.New("run not found")
	// ErrAmbiguousRun is returned when an ID prefix matches several runs.
	ErrAmbiguousRun = errors.New("run id prefix is ambiguous")
)

// Run is the summary row of one analysis.
type Run struct {
	ID          string
	Input       string
	CreatedAt   time.Time
	Info        video.Info
	Diagnostics motion.Diagnostics
	Peaks       int
	Settings    motion.Config
}

// Store is a SQLite-backed run store.
type Store struct {
	db     *sql.DB
	logger zerolog.Logger
}

// Open opens (creating if needed) the database at path and migrates it.
// ":memory:" opens a private in-memory database.
func Open(logger zerolog.Logger, path string) (*Store, error) {
	dsn := path
	if path != ":memory:" {
		if err := util.EnsureDir(filepath.Dir(path)); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		dsn = "file:" + path
	}
	dsn += "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// One connection keeps :memory: databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, logger: logger}
	if err := s.Migrate(); err != nil {
		db.Close()
		return nil, err
	}
	logger.Debug().Str("path", path).Msg("opened run store")
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun stores run and every record of table in one transaction. An empty
// run.ID is replaced by a new UUID; CreatedAt defaults to now. Returns the
// run ID.
func (s *Store) SaveRun(ctx context.Context, run Run, table *motion.Table) (string, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	run.Diagnostics = table.Diagnostics()
	run.Peaks = len(table.Peaks())

	settings, err := json.Marshal(run.Settings)
	if err != nil {
		return "", fmt.Errorf("failed to encode settings: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	d := run.Diagnostics
	_, err = tx.ExecContext(ctx, `
		INSERT INTO motion_runs (
			run_id, input, created_at, width, height, fps, declared_frames,
			decoded_frames, truncated, cause, degenerate, beats_supplied, peaks, settings_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Input, run.CreatedAt.UTC().Format(time.RFC3339Nano),
		run.Info.Width, run.Info.Height, run.Info.FPS, run.Info.DeclaredFrames,
		d.DecodedFrames, d.Truncated, d.Cause, d.Degenerate, d.BeatsSupplied,
		run.Peaks, string(settings),
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO motion_records (
			run_id, frame_index, timestamp, position_x, position_y, velocity_x, velocity_y,
			speed, acceleration_x, acceleration_y, acceleration, motion_intensity,
			dopamine_hit_score, is_peak_moment, aligned_beat, beat_alignment_score,
			optical_flow_x, optical_flow_y, optical_flow_magnitude, time_degenerate, region_count
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", err
	}
	defer stmt.Close()

	for r := range table.All() {
		f := export.FrameOf(r)
		_, err := stmt.ExecContext(ctx,
			run.ID, f.FrameIndex, f.Timestamp, f.PositionX, f.PositionY, f.VelocityX, f.VelocityY,
			f.Speed, f.AccelerationX, f.AccelerationY, f.Acceleration, f.MotionIntensity,
			f.DopamineHitScore, f.IsPeakMoment, f.AlignedBeat, f.BeatAlignmentScore,
			f.OpticalFlowX, f.OpticalFlowY, f.OpticalFlowMagnitude, f.TimeDegenerate, f.RegionCount,
		)
		if err != nil {
			return "", fmt.Errorf("failed to insert frame %d: %w", f.FrameIndex, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	s.logger.Info().
		Str("run_id", run.ID).
		Int("records", table.Len()).
		Int("peaks", run.Peaks).
		Msg("saved run")
	return run.ID, nil
}

const runColumns = `run_id, input, created_at, width, height, fps, declared_frames,
	decoded_frames, truncated, cause, degenerate, beats_supplied, peaks, settings_json`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var (
		run      Run
		created  string
		settings string
	)
	err := row.Scan(
		&run.ID, &run.Input, &created,
		&run.Info.Width, &run.Info.Height, &run.Info.FPS, &run.Info.DeclaredFrames,
		&run.Diagnostics.DecodedFrames, &run.Diagnostics.Truncated, &run.Diagnostics.Cause,
		&run.Diagnostics.Degenerate, &run.Diagnostics.BeatsSupplied, &run.Peaks, &settings,
	)
	if err != nil {
		return Run{}, err
	}
	run.Diagnostics.DeclaredFrames = run.Info.DeclaredFrames
	if run.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return Run{}, fmt.Errorf("run %s: bad created_at %q: %w", run.ID, created, err)
	}
	if err := json.Unmarshal([]byte(settings), &run.Settings); err != nil {
		return Run{}, fmt.Errorf("run %s: bad settings: %w", run.ID, err)
	}
	return run, nil
}

// ResolveID expands a unique ID prefix to the full run ID.
func (s *Store) ResolveID(ctx context.Context, prefix string) (string, error) {
	if prefix == "" {
		return "", ErrRunNotFound
	}
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(prefix)
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id FROM motion_runs WHERE run_id LIKE ? ESCAPE '\' LIMIT 2`, escaped+"%")
	if err != nil {
		return "", err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	switch len(ids) {
	case 0:
		return "", fmt.Errorf("%w: %s", ErrRunNotFound, prefix)
	case 1:
		return ids[0], nil
	default:
		return "", fmt.Errorf("%w: %s", ErrAmbiguousRun, prefix)
	}
}

// GetRun returns the summary row of a run.
func (s *Store) GetRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM motion_runs WHERE run_id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return run, err
}

// LoadRun returns a run and its frozen motion table.
func (s *Store) LoadRun(ctx context.Context, id string) (Run, *motion.Table, error) {
	run, err := s.GetRun(ctx, id)
	if err != nil {
		return Run{}, nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT frame_index, timestamp, position_x, position_y, velocity_x, velocity_y,
			speed, acceleration_x, acceleration_y, acceleration, motion_intensity,
			dopamine_hit_score, is_peak_moment, aligned_beat, beat_alignment_score,
			optical_flow_x, optical_flow_y, optical_flow_magnitude, time_degenerate, region_count
		FROM motion_records WHERE run_id = ? ORDER BY frame_index`, id)
	if err != nil {
		return Run{}, nil, err
	}
	defer rows.Close()

	table := motion.NewTable()
	for rows.Next() {
		var (
			f    export.Frame
			beat sql.NullFloat64
		)
		err := rows.Scan(
			&f.FrameIndex, &f.Timestamp, &f.PositionX, &f.PositionY, &f.VelocityX, &f.VelocityY,
			&f.Speed, &f.AccelerationX, &f.AccelerationY, &f.Acceleration, &f.MotionIntensity,
			&f.DopamineHitScore, &f.IsPeakMoment, &beat, &f.BeatAlignmentScore,
			&f.OpticalFlowX, &f.OpticalFlowY, &f.OpticalFlowMagnitude, &f.TimeDegenerate, &f.RegionCount,
		)
		if err != nil {
			return Run{}, nil, err
		}
		if beat.Valid {
			f.AlignedBeat = &beat.Float64
		}
		if err := table.Append(f.Record()); err != nil {
			return Run{}, nil, fmt.Errorf("run %s: %w", id, err)
		}
	}
	if err := rows.Err(); err != nil {
		return Run{}, nil, err
	}

	if err := table.Freeze(run.Diagnostics); err != nil {
		return Run{}, nil, err
	}
	return run, table, nil
}

// ListRuns returns run summaries, newest first. limit <= 0 returns all.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM motion_runs ORDER BY created_at DESC, run_id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// DeleteRun removes a run and its records.
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM motion_runs WHERE run_id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	s.logger.Info().Str("run_id", id).Msg("deleted run")
	return nil
}
