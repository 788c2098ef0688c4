package pubsub

import (
	"context"
	"errors"
	"route-tracking-service/internal/domain"
	"route-tracking-service/internal/platform/obs"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
)

func TestDecodeAttendance(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    domain.AttendanceEvent
		wantErr bool
	}{
		{
			name: "absent with date",
			in:   `{"route_id":"r1","student_id":"u1","status":"Absent","date":"2026-03-02"}`,
			want: domain.AttendanceEvent{
				RouteID: "r1",
				RiderID: "u1",
				Status:  domain.AttendanceAbsent,
				Date:    time.Date(2026, 3, 2, 0, 0, 0, 0, time.Local),
			},
		},
		{
			name: "missing status is pending",
			in:   `{"route_id":"r1","student_id":"u1"}`,
			want: domain.AttendanceEvent{RouteID: "r1", RiderID: "u1", Status: domain.AttendancePending},
		},
		{name: "unknown status", in: `{"route_id":"r1","student_id":"u1","status":"late"}`, wantErr: true},
		{name: "missing rider", in: `{"route_id":"r1","status":"present"}`, wantErr: true},
		{name: "bad date", in: `{"route_id":"r1","student_id":"u1","date":"02/03/2026"}`, wantErr: true},
		{name: "not json", in: `present`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeAttendance([]byte(tt.in))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected an error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeAttendance: %v", err)
			}
			if got.RouteID != tt.want.RouteID || got.RiderID != tt.want.RiderID || got.Status != tt.want.Status || !got.Date.Equal(tt.want.Date) {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

type fakeReader struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	if len(f.msgs) == 0 {
		if f.err != nil {
			return kafka.Message{}, f.err
		}
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	m := f.msgs[0]
	f.msgs = f.msgs[1:]
	return m, nil
}

func (f *fakeReader) Close() error {
	f.closed = true
	return nil
}

func TestAttendanceConsumerRun(t *testing.T) {
	reader := &fakeReader{msgs: []kafka.Message{
		{Value: []byte(`{"route_id":"r1","student_id":"u1","status":"absent"}`)},
		{Value: []byte(`garbage`)},
		{Value: []byte(`{"route_id":"r1","student_id":"ghost","status":"present"}`)},
		{Value: []byte(`{"route_id":"r1","student_id":"u2","status":"present"}`)},
	}}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var got []domain.AttendanceEvent
	handle := func(_ context.Context, ev domain.AttendanceEvent) error {
		got = append(got, ev)
		if ev.RiderID == "ghost" {
			return domain.ErrUnknownStop
		}
		if len(got) == 3 {
			cancel()
		}
		return nil
	}

	if err := newAttendanceConsumer(reader, obs.Discard()).Run(ctx, handle); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(got) != 3 || got[0].Status != domain.AttendanceAbsent || got[2].RiderID != "u2" {
		t.Fatalf("handled %+v", got)
	}
	if !reader.closed {
		t.Fatalf("reader not closed")
	}
}

func TestAttendanceConsumerReaderFailure(t *testing.T) {
	boom := errors.New("broker gone")
	reader := &fakeReader{err: boom}

	err := newAttendanceConsumer(reader, obs.Discard()).Run(context.Background(), func(context.Context, domain.AttendanceEvent) error {
		return nil
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
}
