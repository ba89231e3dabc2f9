package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry), buf.String())
	return entry
}

func TestErrorCarriesContextFieldsAndStack(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "api", Level: zerolog.DebugLevel, Format: "json", Output: buf})

	ctx := log.WithRequestID(context.Background(), "req-123")
	ctx = log.WithFields(ctx, map[string]any{"order_number": "ORD20260301AB12CD34"})
	log.Error(ctx, "order.create_failed", errors.New("stock gone"))

	entry := decodeLine(t, buf)
	require.Equal(t, "api", entry["service"])
	require.Equal(t, "req-123", entry["request_id"])
	require.Equal(t, "ORD20260301AB12CD34", entry["order_number"])
	require.Equal(t, "stock gone", entry["error"])
	require.NotEmpty(t, entry["stack"])
}

func TestFieldsDoNotLeakBetweenContexts(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "api", Format: "json", Output: buf})

	base := context.Background()
	_ = log.WithUserID(base, "u-1")
	log.Info(base, "plain")

	require.NotContains(t, decodeLine(t, buf), "user_id")
}

func TestWarnStackToggle(t *testing.T) {
	buf := &bytes.Buffer{}
	New(Options{ServiceName: "api", Format: "json", Output: buf, WarnStack: true}).Warn(context.Background(), "slow")
	require.Contains(t, decodeLine(t, buf), "stack")

	buf.Reset()
	New(Options{ServiceName: "api", Format: "json", Output: buf}).Warn(context.Background(), "slow")
	require.NotContains(t, decodeLine(t, buf), "stack")
}

func TestDebugRespectsLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "api", Level: zerolog.InfoLevel, Format: "json", Output: buf})
	log.Debug(context.Background(), "hidden")
	require.Zero(t, buf.Len())
}

func TestNilAndNopLoggersAreSilent(t *testing.T) {
	var log *Logger
	ctx := log.WithField(context.Background(), "k", "v")
	log.Info(ctx, "dropped")
	log.Warn(ctx, "dropped")
	log.Error(ctx, "dropped", errors.New("x"))
	Nop().Error(context.Background(), "dropped", nil)
}

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"":         zerolog.InfoLevel,
		"invalid":  zerolog.InfoLevel,
		" WARN ":   zerolog.WarnLevel,
		"debug":    zerolog.DebugLevel,
		"disabled": zerolog.Disabled,
	}
	for in, want := range cases {
		require.Equal(t, want, ParseLevel(in), in)
	}
}
