package db

import (
	"context"
	"fmt"
	"time"

	"github.com/qashinka/PoseLockTool/internal/hostsim"
	"github.com/qashinka/PoseLockTool/internal/monitoring"
	"github.com/qashinka/PoseLockTool/internal/timeutil"
)

const (
	defaultBatchSize     = 256
	defaultFlushInterval = 250 * time.Millisecond
)

// Recorder drains pose submissions from a host subscription into the
// database. Inserts are batched so the tracker update loops never wait on
// disk writes.
type Recorder struct {
	db         *DB
	session    Session
	batchSize  int
	flushEvery time.Duration
	clock      timeutil.Clock
	logf       func(format string, v ...interface{})
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithBatchSize sets how many samples are buffered before a write.
func WithBatchSize(n int) RecorderOption {
	return func(r *Recorder) { r.batchSize = n }
}

// WithFlushInterval sets how long a partial batch may sit before a write.
func WithFlushInterval(d time.Duration) RecorderOption {
	return func(r *Recorder) { r.flushEvery = d }
}

// WithRecorderClock substitutes the clock used for flush ticks.
func WithRecorderClock(c timeutil.Clock) RecorderOption {
	return func(r *Recorder) { r.clock = c }
}

// NewRecorder creates a session named name and returns a recorder bound to it.
func NewRecorder(database *DB, name string, opts ...RecorderOption) (*Recorder, error) {
	session, err := database.CreateSession(name)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	r := &Recorder{
		db:         database,
		session:    session,
		batchSize:  defaultBatchSize,
		flushEvery: defaultFlushInterval,
		clock:      timeutil.RealClock{},
		logf:       monitoring.Prefixed("recorder"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Session returns the session this recorder writes into.
func (r *Recorder) Session() Session { return r.session }

// Run consumes submissions until the channel closes or ctx is cancelled,
// then flushes the remaining batch and closes out the session.
func (r *Recorder) Run(ctx context.Context, subs <-chan hostsim.Submission) error {
	r.logf("recording session %s (%s)", r.session.ID, r.session.Name)

	ticker := r.clock.NewTicker(r.flushEvery)
	defer ticker.Stop()

	batch := make([]PoseSample, 0, r.batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := r.db.InsertPoseSamples(batch); err != nil {
			return fmt.Errorf("insert %d samples: %w", len(batch), err)
		}
		batch = batch[:0]
		return nil
	}

	var runErr error
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-ticker.C():
			if err := flush(); err != nil {
				runErr = err
				break loop
			}
		case sub, ok := <-subs:
			if !ok {
				break loop
			}
			batch = append(batch, r.sample(sub))
			if len(batch) >= r.batchSize {
				if err := flush(); err != nil {
					runErr = err
					break loop
				}
			}
		}
	}

	if err := flush(); err != nil && runErr == nil {
		runErr = err
	}
	if err := r.db.EndSession(r.session.ID); err != nil && runErr == nil {
		runErr = err
	}
	r.logf("session %s closed", r.session.ID)
	return runErr
}

func (r *Recorder) sample(sub hostsim.Submission) PoseSample {
	return PoseSample{
		SessionID:   r.session.ID,
		Serial:      sub.Serial,
		Index:       sub.Index,
		RecordedAt:  sub.At,
		Valid:       sub.Pose.Valid,
		Result:      sub.Pose.Result,
		Position:    sub.Pose.Position,
		Orientation: sub.Pose.Orientation,
	}
}
