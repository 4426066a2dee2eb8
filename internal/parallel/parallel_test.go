package parallel

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestRun_Success(t *testing.T) {
	tasks := []Task{
		{Name: "task1", Fn: func(context.Context) (string, error) { return "", nil }},
		{Name: "task2", Fn: func(context.Context) (string, error) { return "", nil }},
		{Name: "task3", Fn: func(context.Context) (string, error) { return "", nil }},
	}

	results := Run(context.Background(), tasks, 4, nil)
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for _, r := range results {
		if !r.OK {
			t.Errorf("task %s should be OK", r.Name)
		}
		if r.Err != nil {
			t.Errorf("task %s should have no error", r.Name)
		}
	}
}

func TestRun_WithErrors(t *testing.T) {
	tasks := []Task{
		{Name: "ok-task", Fn: func(context.Context) (string, error) { return "", nil }},
		{Name: "fail-task", Fn: func(context.Context) (string, error) { return "some output", fmt.Errorf("simulated failure") }},
	}

	results := Run(context.Background(), tasks, 4, nil)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}

	// Results should be in order
	if !results[0].OK {
		t.Error("first task should be OK")
	}
	if results[1].OK {
		t.Error("second task should have failed")
	}
	if results[1].Err == nil {
		t.Error("second task should have error")
	}
	if results[1].Output != "some output" {
		t.Errorf("expected output %q, got %q", "some output", results[1].Output)
	}
}

func TestRun_Concurrency(t *testing.T) {
	var maxConcurrent int64
	var current int64

	tasks := make([]Task, 10)
	for i := range tasks {
		tasks[i] = Task{
			Name: fmt.Sprintf("task-%d", i),
			Fn: func(context.Context) (string, error) {
				c := atomic.AddInt64(&current, 1)
				// Track max concurrent
				for {
					old := atomic.LoadInt64(&maxConcurrent)
					if c <= old || atomic.CompareAndSwapInt64(&maxConcurrent, old, c) {
						break
					}
				}
				time.Sleep(50 * time.Millisecond)
				atomic.AddInt64(&current, -1)
				return "", nil
			},
		}
	}

	results := Run(context.Background(), tasks, 2, nil) // Limit to 2 concurrent

	if len(results) != 10 {
		t.Fatalf("expected 10 results, got %d", len(results))
	}

	if maxConcurrent > 2 {
		t.Errorf("max concurrent should be <= 2, got %d", maxConcurrent)
	}
}

func TestRun_DefaultConcurrency(t *testing.T) {
	tasks := []Task{
		{Name: "test", Fn: func(context.Context) (string, error) { return "", nil }},
	}

	// Should not panic with 0 concurrency (defaults to 4)
	results := Run(context.Background(), tasks, 0, nil)
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
}

func TestRun_TimingTracked(t *testing.T) {
	tasks := []Task{
		{Name: "slow", Fn: func(context.Context) (string, error) {
			time.Sleep(50 * time.Millisecond)
			return "", nil
		}},
	}

	results := Run(context.Background(), tasks, 1, nil)
	if results[0].Elapsed < 50*time.Millisecond {
		t.Errorf("expected elapsed >= 50ms, got %v", results[0].Elapsed)
	}
}

func TestRun_OutputCaptured(t *testing.T) {
	tasks := []Task{
		{Name: "with-output", Fn: func(context.Context) (string, error) { return "hello world", nil }},
	}

	results := Run(context.Background(), tasks, 1, nil)
	if results[0].Output != "hello world" {
		t.Errorf("expected output %q, got %q", "hello world", results[0].Output)
	}
}

func TestRun_ProgressWritten(t *testing.T) {
	var buf bytes.Buffer
	tasks := []Task{
		{Name: "report.pdf", Fn: func(context.Context) (string, error) { return "", nil }},
		{Name: "broken.pdf", Fn: func(context.Context) (string, error) { return "line1\nline2", fmt.Errorf("HTTP 500") }},
	}

	results := Run(context.Background(), tasks, 1, &buf)
	if Failed(results) != 1 {
		t.Errorf("expected 1 failure, got %d", Failed(results))
	}
	out := buf.String()
	for _, want := range []string{"report.pdf", "broken.pdf", "HTTP 500", "line2"} {
		if !strings.Contains(out, want) {
			t.Errorf("progress output missing %q:\n%s", want, out)
		}
	}
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var ran atomic.Int32
	tasks := []Task{
		{Name: "a", Fn: func(context.Context) (string, error) { ran.Add(1); return "", nil }},
		{Name: "b", Fn: func(context.Context) (string, error) { ran.Add(1); return "", nil }},
	}
	results := Run(ctx, tasks, 1, nil)
	if ran.Load() != 0 {
		t.Errorf("expected no task to run, %d ran", ran.Load())
	}
	if Failed(results) != 2 {
		t.Errorf("expected both tasks failed, got %d", Failed(results))
	}
}

func TestTruncateLines(t *testing.T) {
	lines := truncateLines("1\n2\n3\n4", 2)
	if len(lines) != 3 || lines[2] != "... (2 more lines)" {
		t.Errorf("got %v", lines)
	}
}
