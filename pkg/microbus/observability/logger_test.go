package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testHandler captures log records as JSON lines.
type testHandler struct {
	buf   *bytes.Buffer
	attrs []slog.Attr
}

func newTestHandler() *testHandler {
	return &testHandler{buf: &bytes.Buffer{}}
}

func (h *testHandler) Enabled(_ context.Context, _ slog.Level) bool {
	return true
}

func (h *testHandler) Handle(_ context.Context, r slog.Record) error {
	data := map[string]any{
		"level": r.Level.String(),
		"msg":   r.Message,
	}
	for _, attr := range h.attrs {
		data[attr.Key] = attr.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		data[a.Key] = a.Value.Any()
		return true
	})
	return json.NewEncoder(h.buf).Encode(data)
}

func (h *testHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newH := &testHandler{
		buf:   h.buf,
		attrs: make([]slog.Attr, 0, len(h.attrs)+len(attrs)),
	}
	newH.attrs = append(newH.attrs, h.attrs...)
	newH.attrs = append(newH.attrs, attrs...)
	return newH
}

func (h *testHandler) WithGroup(_ string) slog.Handler {
	return h
}

func (h *testHandler) lastRecord() map[string]any {
	lines := bytes.Split(h.buf.Bytes(), []byte("\n"))
	for i := len(lines) - 1; i >= 0; i-- {
		if len(lines[i]) == 0 {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal(lines[i], &m); err == nil {
			return m
		}
	}
	return nil
}

func TestEnrichLogger(t *testing.T) {
	t.Run("adds service and service_id", func(t *testing.T) {
		h := newTestHandler()
		enriched := EnrichLogger(slog.New(h), "camera-1", "abc")
		enriched.Info("hello")

		record := h.lastRecord()
		require.NotNil(t, record)
		assert.Equal(t, "camera-1", record["service"])
		assert.Equal(t, "abc", record["service_id"])
		assert.Equal(t, "hello", record["msg"])
	})

	t.Run("nil logger returns nil", func(t *testing.T) {
		assert.Nil(t, EnrichLogger(nil, "svc", "id"))
	})
}

func TestLogHelpers(t *testing.T) {
	tests := []struct {
		name  string
		log   func(*slog.Logger)
		level string
		msg   string
		check func(t *testing.T, record map[string]any)
	}{
		{
			name:  "service start",
			log:   func(l *slog.Logger) { LogServiceStart(l, 3) },
			level: "DEBUG",
			msg:   "service started",
			check: func(t *testing.T, r map[string]any) {
				assert.Equal(t, float64(3), r["handlers"])
			},
		},
		{
			name:  "service stop",
			log:   func(l *slog.Logger) { LogServiceStop(l, 12, "terminated") },
			level: "DEBUG",
			msg:   "service stopped",
			check: func(t *testing.T, r map[string]any) {
				assert.Equal(t, float64(12), r["messages_handled"])
				assert.Equal(t, "terminated", r["reason"])
			},
		},
		{
			name:  "service crashed",
			log:   func(l *slog.Logger) { LogServiceCrashed(l, "*main.Job", errors.New("boom")) },
			level: "ERROR",
			msg:   "service crashed",
			check: func(t *testing.T, r map[string]any) {
				assert.Equal(t, "*main.Job", r["message_type"])
				assert.Equal(t, "boom", r["error"])
			},
		},
		{
			name:  "unhandled",
			log:   func(l *slog.Logger) { LogUnhandled(l, "*main.Job") },
			level: "WARN",
			msg:   "no handler for message",
		},
		{
			name:  "event unrouted",
			log:   func(l *slog.Logger) { LogEventUnrouted(l, "sender", "*main.Job") },
			level: "DEBUG",
			msg:   "event not routed",
			check: func(t *testing.T, r map[string]any) {
				assert.Equal(t, "sender", r["sender"])
			},
		},
		{
			name:  "events abandoned",
			log:   func(l *slog.Logger) { LogEventsAbandoned(l, "worker", 2) },
			level: "DEBUG",
			msg:   "pending events abandoned",
			check: func(t *testing.T, r map[string]any) {
				assert.Equal(t, float64(2), r["count"])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler()
			tt.log(slog.New(h))

			record := h.lastRecord()
			require.NotNil(t, record)
			assert.Equal(t, tt.level, record["level"])
			assert.Equal(t, tt.msg, record["msg"])
			if tt.check != nil {
				tt.check(t, record)
			}
		})
	}
}

func TestLogHelpers_NilLogger(t *testing.T) {
	assert.NotPanics(t, func() {
		LogServiceStart(nil, 1)
		LogServiceStop(nil, 1, "done")
		LogServiceCrashed(nil, "t", errors.New("x"))
		LogUnhandled(nil, "t")
		LogEventUnrouted(nil, "s", "t")
		LogEventsAbandoned(nil, "s", 1)
	})
}

func TestLogEventsAbandoned_ZeroCountIsQuiet(t *testing.T) {
	h := newTestHandler()
	LogEventsAbandoned(slog.New(h), "worker", 0)
	assert.Nil(t, h.lastRecord())
}

func TestTimedOperation(t *testing.T) {
	done := TimedOperation()
	time.Sleep(5 * time.Millisecond)
	assert.GreaterOrEqual(t, done(), 5*time.Millisecond)
}
