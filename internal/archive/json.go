package archive

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"time"

	"riskcalc/internal/risk"

	"gopkg.in/natefinch/lumberjack.v2"
)

// recordHandler is a slog handler that writes each record as one JSON object
// per line: the record time plus its attributes at the top level. Level and
// message are omitted.
type recordHandler struct {
	out   io.Writer
	mu    *sync.Mutex
	attrs []slog.Attr
}

func newRecordHandler(out io.Writer) *recordHandler {
	return &recordHandler{out: out, mu: &sync.Mutex{}}
}

func (h *recordHandler) Handle(_ context.Context, r slog.Record) error {
	fields := make(map[string]any, r.NumAttrs()+len(h.attrs)+1)
	fields["time"] = r.Time.UTC().Format(time.RFC3339Nano)

	add := func(a slog.Attr) bool {
		if a.Key != "" && a.Value.Any() != nil {
			fields[a.Key] = a.Value.Any()
		}
		return true
	}
	for _, a := range h.attrs {
		add(a)
	}
	r.Attrs(add)

	data, err := json.Marshal(fields)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err = h.out.Write(append(data, '\n'))
	return err
}

func (h *recordHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &next
}

// WithGroup is a no-op; archive records are flat.
func (h *recordHandler) WithGroup(string) slog.Handler {
	return h
}

func (h *recordHandler) Enabled(context.Context, slog.Level) bool {
	return true
}

// JsonArchive appends assessments as JSON lines to a file that lumberjack
// rotates and compresses by size.
type JsonArchive struct {
	lumberjack *lumberjack.Logger
	handler    slog.Handler
}

// NewJsonArchive writes to file, rotating at maxSize megabytes and keeping
// maxBackups compressed files.
func NewJsonArchive(file string, maxSize, maxBackups int) *JsonArchive {
	a := JsonArchive{
		lumberjack: &lumberjack.Logger{
			Filename:   file,
			MaxSize:    maxSize,
			MaxBackups: maxBackups,
			Compress:   true,
		},
	}
	a.handler = newRecordHandler(a.lumberjack)
	return &a
}

// Append writes one {model, input_hash, input, result} line. Write failures
// are reported through the default logger only.
func (a *JsonArchive) Append(model risk.ModelID, in *risk.RiskInput, res risk.RiskResult) {
	err := a.handler.Handle(context.Background(), a.record(model, in, res))
	if err != nil {
		slog.Warn("Unable to archive assessment", "error", err, "id", res.ID)
	}
}

func (a *JsonArchive) record(model risk.ModelID, in *risk.RiskInput, res risk.RiskResult) slog.Record {
	r := slog.NewRecord(time.Now(), slog.LevelInfo, "", 0)
	r.AddAttrs(
		slog.String("model", string(model)),
		slog.String("input_hash", res.Metadata.InputHash),
		slog.Any("input", in),
		slog.Any("result", res),
	)
	return r
}

// Close flushes and closes the current file.
func (a *JsonArchive) Close() error {
	return a.lumberjack.Close()
}
