package selftest

import (
	"errors"
	"strings"
	"testing"

	"github.com/danmuck/uorlink/internal/protocol/uorocketry"
	"github.com/danmuck/uorlink/internal/testutil/testlog"
)

func TestRunSamples(t *testing.T) {
	testlog.Start(t)

	report := Run(Samples())
	if err := report.Err(); err != nil {
		for _, f := range report.Failures {
			t.Log(f)
		}
		t.Fatalf("selftest failed: %v", err)
	}
	if report.Checks == 0 || report.Passed() != report.Checks {
		t.Fatalf("unexpected report: %+v", report)
	}
}

func TestSamplesCoverDialect(t *testing.T) {
	samples := Samples()
	msgs := uorocketry.Dialect().Messages()
	if len(samples) != len(msgs) {
		t.Fatalf("samples=%d dialect=%d", len(samples), len(msgs))
	}
	for i, m := range msgs {
		if samples[i].MessageID() != m.ID {
			t.Fatalf("sample %d id=%d want=%d", i, samples[i].MessageID(), m.ID)
		}
	}
}

type unknownMessage struct{}

func (unknownMessage) MessageID() uint32         { return 12 }
func (unknownMessage) MarshalPayload() []byte    { return []byte{1} }
func (unknownMessage) UnmarshalPayload(p []byte) {}

func TestRunReportsUnknownMessage(t *testing.T) {
	testlog.Start(t)

	report := Run([]uorocketry.Message{unknownMessage{}})
	if !errors.Is(report.Err(), ErrFailed) {
		t.Fatalf("expected ErrFailed, got %v", report.Err())
	}
	if len(report.Failures) != 1 || !strings.Contains(report.Failures[0].String(), "id(12)/lookup") {
		t.Fatalf("unexpected failures: %v", report.Failures)
	}
}
