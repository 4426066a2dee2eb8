package parallel

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/msalah0e/kgx/internal/ui"
)

// Result holds the outcome of a parallel task.
type Result struct {
	Name    string
	OK      bool
	Err     error
	Output  string
	Elapsed time.Duration
}

// Task is a function that runs in parallel.
type Task struct {
	Name string
	Fn   func(ctx context.Context) (string, error)
}

// Run executes tasks in parallel with the given concurrency limit, printing
// progress to w when it is non-nil. Returns results in the order tasks were
// submitted. A failed task does not stop the others; ctx cancellation does.
func Run(ctx context.Context, tasks []Task, concurrency int, w io.Writer) []Result {
	if concurrency < 1 {
		concurrency = 4
	}

	results := make([]Result, len(tasks))
	var mu sync.Mutex
	printf := func(format string, args ...any) {
		if w != nil {
			fmt.Fprintf(w, format, args...)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, task := range tasks {
		i, task := i, task
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i] = Result{Name: task.Name, Err: err}
				return nil
			}
			start := time.Now()

			mu.Lock()
			printf("  %s %s...\n", ui.Subtle.Sprint("⟳"), task.Name)
			mu.Unlock()

			output, err := task.Fn(gctx)
			elapsed := time.Since(start)

			mu.Lock()
			if err != nil {
				results[i] = Result{Name: task.Name, OK: false, Err: err, Output: output, Elapsed: elapsed}
				printf("  %s %s %s\n", ui.StatusIcon(false), task.Name, ui.Bad.Sprintf("(%v)", err))
				if output = strings.TrimSpace(output); output != "" {
					for _, line := range truncateLines(output, 5) {
						printf("      %s\n", ui.Subtle.Sprint(line))
					}
				}
			} else {
				results[i] = Result{Name: task.Name, OK: true, Output: output, Elapsed: elapsed}
				printf("  %s %s %s\n", ui.StatusIcon(true), task.Name, ui.Subtle.Sprintf("%.1fs", elapsed.Seconds()))
			}
			mu.Unlock()

			return nil // collect results instead of failing the group
		})
	}

	_ = g.Wait()
	return results
}

// Failed counts results that did not succeed.
func Failed(results []Result) int {
	n := 0
	for _, r := range results {
		if !r.OK {
			n++
		}
	}
	return n
}

// truncateLines splits text into lines and returns at most n lines.
func truncateLines(s string, n int) []string {
	lines := strings.Split(s, "\n")
	if len(lines) <= n {
		return lines
	}
	out := lines[:n]
	out = append(out, fmt.Sprintf("... (%d more lines)", len(lines)-n))
	return out
}
