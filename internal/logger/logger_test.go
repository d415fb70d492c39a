package logger

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNew(t *testing.T) {
	log := New()
	if log.GetLevel() == zerolog.Disabled {
		t.Error("Expected logger to be enabled")
	}
}

func TestNewWithWriter(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewWithWriter(buf)

	log.Info().Msg("test message")

	if !strings.Contains(buf.String(), "test message") {
		t.Errorf("Expected output to contain 'test message', got: %s", buf.String())
	}
}

func TestSetup(t *testing.T) {
	tests := []struct {
		name      string
		level     string
		format    string
		wantLevel zerolog.Level
		wantJSON  bool
		wantErr   bool
	}{
		{name: "defaults", wantLevel: zerolog.InfoLevel},
		{name: "json debug", level: "DEBUG", format: "json", wantLevel: zerolog.DebugLevel, wantJSON: true},
		{name: "console warn", level: "warn", format: "console", wantLevel: zerolog.WarnLevel},
		{name: "bad level", level: "loud", wantErr: true},
		{name: "bad format", format: "xml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			log, err := Setup(buf, tt.level, tt.format)
			if tt.wantErr {
				if err == nil {
					t.Fatal("Expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if log.GetLevel() != tt.wantLevel {
				t.Errorf("Expected level %s, got %s", tt.wantLevel, log.GetLevel())
			}

			log.WithLevel(tt.wantLevel).Msg("hello")
			out := buf.String()
			if !strings.Contains(out, "hello") {
				t.Errorf("Expected output to contain 'hello', got: %s", out)
			}
			if got := strings.HasPrefix(out, "{"); got != tt.wantJSON {
				t.Errorf("Expected JSON output %v, got: %s", tt.wantJSON, out)
			}
		})
	}
}

func TestWithContext(t *testing.T) {
	log := New()
	ctx := context.Background()

	ctxWithLogger := WithContext(ctx, log)

	if ctxWithLogger.Value(LoggerKey) == nil {
		t.Error("Expected logger in context, got nil")
	}
}

func TestFromContext(t *testing.T) {
	buf := &bytes.Buffer{}
	testLog := NewWithWriter(buf)
	ctx := WithContext(context.Background(), testLog)

	retrievedLog := FromContext(ctx)
	retrievedLog.Info().Msg("test")

	if buf.Len() == 0 {
		t.Error("Expected log output from retrieved logger")
	}
}

func TestFromContext_DefaultLogger(t *testing.T) {
	ctx := context.Background()

	// Should return a default logger when none is in context
	log := FromContext(ctx)

	if log.GetLevel() == zerolog.Disabled {
		t.Error("Expected default logger to be enabled")
	}
}

func TestFromContextOr(t *testing.T) {
	fallbackBuf := &bytes.Buffer{}
	fallback := NewWithWriter(fallbackBuf)

	fallbackLog := FromContextOr(context.Background(), fallback)
	fallbackLog.Info().Msg("from fallback")
	if !strings.Contains(fallbackBuf.String(), "from fallback") {
		t.Errorf("Expected fallback logger to be used, got: %s", fallbackBuf.String())
	}

	ctxBuf := &bytes.Buffer{}
	ctx := WithContext(context.Background(), NewWithWriter(ctxBuf))
	ctxLog := FromContextOr(ctx, fallback)
	ctxLog.Info().Msg("from context")
	if !strings.Contains(ctxBuf.String(), "from context") {
		t.Errorf("Expected context logger to be used, got: %s", ctxBuf.String())
	}
	if strings.Contains(fallbackBuf.String(), "from context") {
		t.Error("Fallback logger should not receive context output")
	}
}

func TestWithFields(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewWithWriter(buf)

	fields := map[string]interface{}{
		"sender":  "6281111",
		"command": "/summary",
	}

	logWithFields := WithFields(log, fields)
	logWithFields.Info().Msg("test message")

	output := buf.String()
	if !strings.Contains(output, "sender") || !strings.Contains(output, "6281111") {
		t.Errorf("Expected output to contain sender field, got: %s", output)
	}
	if !strings.Contains(output, "command") || !strings.Contains(output, "/summary") {
		t.Errorf("Expected output to contain command field, got: %s", output)
	}
}
