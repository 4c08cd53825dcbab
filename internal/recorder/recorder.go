package recorder

import (
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/tracklab/runlog/internal/experiment"
	"github.com/tracklab/runlog/internal/metricsfile"
	logpkg "github.com/tracklab/runlog/pkg/log"
)

// ErrHyperparamsUnsupported is returned by every LogHyperparams call. This
// recorder persists metrics only; the hyperparameter channel must fail fast
// rather than silently drop data.
var ErrHyperparamsUnsupported = errors.New("hyperparameter logging is not supported")

// StepAuto asks LogMetrics to substitute the recorder's own step counter.
// Any negative step is treated the same way.
const StepAuto = -1

// Scalar is implemented by boxed values (tensor-like wrappers) that reduce
// to a single float64. Anything else reaching LogMetrics must already be a
// plain number, bool or string.
type Scalar interface {
	Scalar() float64
}

// Options configures a Recorder.
type Options struct {
	// RootDir is the base directory for all experiments. Required.
	RootDir string
	// Name is the experiment name; empty collapses the path segment.
	Name string
	// Version selects the run directory; the zero value auto-assigns the
	// next integer version.
	Version experiment.Version
	// FlushEveryNSteps auto-flushes after every Nth LogMetrics call.
	// Zero or negative means never auto-flush; only explicit Save/Finalize
	// calls persist the buffer.
	FlushEveryNSteps int
	// Logger receives structured progress output. Defaults to a no-op.
	Logger logpkg.Logger
}

// Recorder buffers metric records for one run and flushes them to the run's
// metrics file on a fixed call cadence. Operations run synchronously on the
// caller's goroutine; a single mutex guards the recorder's own counters, and
// at most one recorder may own a log directory at a time.
type Recorder struct {
	version experiment.Version
	logDir  string
	meta    experiment.Meta
	writer  *metricsfile.Writer
	logger  logpkg.Logger

	flushEvery int

	mu          sync.Mutex
	stepCounter int  // increments per LogMetrics call, fills missing steps
	callCount   int  // drives the flush cadence
	flushing    bool // transient while a save is in flight
}

// New resolves the run's version and log directory, ensures the directory
// and its run metadata exist, and opens the metrics file (resuming its
// column set when the file already exists).
func New(opts Options) (*Recorder, error) {
	version, logDir, err := experiment.Resolve(opts.RootDir, opts.Name, opts.Version)
	if err != nil {
		return nil, err
	}
	if err := experiment.EnsureDir(logDir); err != nil {
		return nil, err
	}
	meta, err := experiment.EnsureMeta(logDir, opts.Name, version)
	if err != nil {
		return nil, err
	}
	writer, err := metricsfile.Open(logDir)
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = logpkg.NewNop()
	}
	logger = logger.With(logpkg.Component("recorder"), logpkg.Str("version", version.DirName()))
	logger.Debug("recorder opened",
		logpkg.Str("dir", logDir),
		logpkg.Str("run_id", meta.RunID),
		logpkg.Int("flush_every", opts.FlushEveryNSteps))
	return &Recorder{
		version:    version,
		logDir:     logDir,
		meta:       meta,
		writer:     writer,
		logger:     logger,
		flushEvery: opts.FlushEveryNSteps,
	}, nil
}

// Version returns the resolved, immutable version for this run.
func (r *Recorder) Version() experiment.Version { return r.version }

// LogDir returns the run's log directory.
func (r *Recorder) LogDir() string { return r.logDir }

// MetricsPath returns the path of the run's metrics file.
func (r *Recorder) MetricsPath() string { return r.writer.Path() }

// RunID returns the run's persistent identifier from run.json.
func (r *Recorder) RunID() string { return r.meta.RunID }

// Buffered returns the number of records not yet flushed.
func (r *Recorder) Buffered() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writer.Buffered()
}

// LogMetrics buffers one record. A negative step is replaced with the
// recorder's internal step counter; the counter itself advances on every
// call regardless. When the call count reaches a multiple of
// FlushEveryNSteps the buffer is flushed automatically.
func (r *Recorder) LogMetrics(metrics map[string]any, step int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec := make(metricsfile.Record, len(metrics)+1)
	for k, v := range metrics {
		s, err := coerce(v)
		if err != nil {
			return fmt.Errorf("metric %q: %w", k, err)
		}
		rec[k] = s
	}

	if step < 0 {
		step = r.stepCounter
	}
	r.stepCounter++
	rec[metricsfile.StepColumn] = strconv.Itoa(step)

	r.writer.Log(rec)
	r.callCount++
	if r.flushEvery > 0 && r.callCount%r.flushEvery == 0 {
		return r.save()
	}
	return nil
}

// Save flushes buffered records to disk immediately.
func (r *Recorder) Save() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.save()
}

// Finalize flushes whatever is still buffered. Idempotent; safe to call on
// an already-flushed recorder.
func (r *Recorder) Finalize() error {
	return r.Save()
}

// LogHyperparams always fails: hyperparameter persistence is not implemented
// by this recorder and must never be a silent no-op.
func (r *Recorder) LogHyperparams(params map[string]any) error {
	return ErrHyperparamsUnsupported
}

// save runs under r.mu.
func (r *Recorder) save() error {
	rows := r.writer.Buffered()
	r.flushing = true
	defer func() { r.flushing = false }()
	if err := r.writer.Save(); err != nil {
		r.logger.Error("flush failed", logpkg.Err(err), logpkg.Int("rows", rows))
		return err
	}
	if rows > 0 {
		r.logger.Debug("metrics flushed", logpkg.Int("rows", rows))
	}
	return nil
}

// coerce reduces a metric value to its on-disk string form. Plain numbers,
// bools and strings pass through; boxed scalars are unwrapped via Scalar.
// Any other type violates the adapter boundary and is rejected.
func coerce(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case bool:
		return strconv.FormatBool(x), nil
	case int:
		return strconv.Itoa(x), nil
	case int8:
		return strconv.FormatInt(int64(x), 10), nil
	case int16:
		return strconv.FormatInt(int64(x), 10), nil
	case int32:
		return strconv.FormatInt(int64(x), 10), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case uint:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint8:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint16:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint32:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint64:
		return strconv.FormatUint(x, 10), nil
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32), nil
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64), nil
	case Scalar:
		return strconv.FormatFloat(x.Scalar(), 'g', -1, 64), nil
	default:
		return "", fmt.Errorf("unsupported metric value type %T", v)
	}
}
