// Package nativelog builds the process logger: a console core on stdout teed
// with a daily rotating log file.
package nativelog

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	EnvLogDir          = "SLIDEHUB_LOG_DIR"
	filePrefix         = "ai-service_"
	defaultLogFilePerm = 0o644
	defaultLogDirPerm  = 0o755
)

// Options configures NewZapLogger.
type Options struct {
	// Dir is the log directory. SLIDEHUB_LOG_DIR overrides it.
	Dir string
	// Debug lowers the level to debug and colors console levels.
	Debug bool
}

// ResolveDir picks the log directory from the environment, then dir, then
// ./logs.
func ResolveDir(dir string) string {
	if env := strings.TrimSpace(os.Getenv(EnvLogDir)); env != "" {
		return env
	}
	if dir = strings.TrimSpace(dir); dir != "" {
		return dir
	}
	return filepath.Join(".", "logs")
}

// TodayFilename returns the daily log filename.
func TodayFilename(now time.Time) string {
	return filePrefix + now.Format("2006-01-02") + ".log"
}

// Writer appends to the log file of the current day.
type Writer struct {
	mu  sync.Mutex
	dir string
	now func() time.Time

	day  string
	file *os.File
}

// NewWriter creates dir if needed and returns a daily file writer.
func NewWriter(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, defaultLogDirPerm); err != nil {
		return nil, err
	}
	return &Writer{dir: dir, now: time.Now}, nil
}

func (w *Writer) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	name := TodayFilename(w.now())
	if w.file == nil || name != w.day {
		if w.file != nil {
			_ = w.file.Close()
			w.file = nil
		}
		file, err := os.OpenFile(filepath.Join(w.dir, name), os.O_APPEND|os.O_CREATE|os.O_WRONLY, defaultLogFilePerm)
		if err != nil {
			return 0, err
		}
		w.file = file
		w.day = name
	}
	return w.file.Write(p)
}

func (w *Writer) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	return w.file.Sync()
}

// Close closes the current file. Later writes reopen it.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}

// NewZapLogger creates a zap logger writing to stdout and the daily log file.
func NewZapLogger(opts Options) (*zap.Logger, error) {
	writer, err := NewWriter(ResolveDir(opts.Dir))
	if err != nil {
		return nil, err
	}

	level := zap.NewAtomicLevelAt(zap.InfoLevel)
	if opts.Debug {
		level.SetLevel(zap.DebugLevel)
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.000")
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	fileEncoder := zapcore.NewConsoleEncoder(encoderConfig)

	if opts.Debug {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	consoleEncoder := zapcore.NewConsoleEncoder(encoderConfig)

	core := zapcore.NewTee(
		zapcore.NewCore(consoleEncoder, zapcore.Lock(os.Stdout), level),
		zapcore.NewCore(fileEncoder, writer, level),
	)

	logger := zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	_ = zap.RedirectStdLog(logger)
	return logger, nil
}
