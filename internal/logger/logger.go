package logger

import (
	"io"
	"os"
	"sync"

	"github.com/olekukonko/tablewriter"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/researchartifacts/aestats/internal/printer"
)

// Options controls the global logger. The zero value logs at info level
// to stdout with color enabled.
type Options struct {
	Level string    // "debug","info","warn","error"
	JSON  bool      // JSON output (scheduled / CI runs)
	Color bool      // colorize console output
	Out   io.Writer // default os.Stdout
}

var (
	mu   sync.RWMutex
	zlog *zap.SugaredLogger
	pr   *printer.ColorPrinter
	out  io.Writer = os.Stdout
)

// Configure replaces the global logger. Later calls win, so tests and
// flag parsing may reconfigure at any point.
func Configure(opts Options) {
	w := opts.Out
	if w == nil {
		w = os.Stdout
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = ""
	encCfg.LevelKey = ""
	encCfg.CallerKey = ""
	encCfg.MessageKey = "msg"

	var enc zapcore.Encoder
	if opts.JSON {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		enc = zapcore.NewConsoleEncoder(zapcore.EncoderConfig{MessageKey: "msg"})
	}

	core := zapcore.NewCore(enc, zapcore.AddSync(w), parseLevel(opts.Level))

	cp := printer.NewPlainPrinter()
	if opts.Color && !opts.JSON {
		cp = printer.NewColorPrinter()
	}

	mu.Lock()
	defer mu.Unlock()
	out = w
	zlog = zap.New(core).Sugar()
	pr = cp
}

// UseTestMode silences everything below error level during tests.
func UseTestMode() {
	Configure(Options{
		Level: "error",
		Out:   io.Discard,
	})
}

// ---- Public logging API ----

func Info(msg string, args ...interface{}) {
	l, cp := active()
	l.Info(cp.Info("✨ "+msg, args...))
}

func Success(msg string, args ...interface{}) {
	l, cp := active()
	l.Info(cp.Success("✅ "+msg, args...))
}

func LogError(msg string, args ...interface{}) {
	l, cp := active()
	l.Error(cp.Error("❌ "+msg, args...))
}

func Warn(msg string, args ...interface{}) {
	l, cp := active()
	l.Warn(cp.Warning("⚠️ "+msg, args...))
}

func Debug(msg string, args ...interface{}) {
	l, cp := active()
	l.Debug(cp.Debug("🛠️ "+msg, args...))
}

// ---- Tables ----

func CreateTable(headers []string) *tablewriter.Table {
	mu.RLock()
	w := out
	mu.RUnlock()
	t := tablewriter.NewTable(w)
	t.Header(headers)
	return t
}

// ---- internals ----

// active returns the current logger and printer, installing the
// defaults on first use so logging works without explicit setup.
func active() (*zap.SugaredLogger, *printer.ColorPrinter) {
	mu.RLock()
	l, cp := zlog, pr
	mu.RUnlock()
	if l != nil {
		return l, cp
	}
	Configure(Options{Color: true})
	mu.RLock()
	defer mu.RUnlock()
	return zlog, pr
}

func parseLevel(s string) zapcore.Level {
	switch s {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
