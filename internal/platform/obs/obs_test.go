package obs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
)

func TestTimeLogsFailure(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "test", slog.LevelDebug)
	ctx := WithRequestID(context.Background(), "abc")

	err := errors.New("boom")
	Time(ctx, logger, "oracle.Optimize")(&err)

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log line is not json: %v (%s)", err, buf.String())
	}
	if line["op"] != "oracle.Optimize" || line["req_id"] != "abc" || line["err"] != "boom" {
		t.Fatalf("unexpected log line: %v", line)
	}
	if line["service"] != "test" {
		t.Errorf("service = %v, want test", line["service"])
	}
	if _, ok := line["timestamp"]; !ok {
		t.Errorf("timestamp key missing: %v", line)
	}
}

func TestTimeSuccessIsDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "test", slog.LevelInfo)

	var err error
	Time(context.Background(), logger, "noop")(&err)

	if buf.Len() != 0 {
		t.Fatalf("success should log at debug only, got %s", buf.String())
	}
}
