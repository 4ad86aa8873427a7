package classify

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/weiliang-ho/dealerdocs/constants"
	"github.com/weiliang-ho/dealerdocs/internal/entity"
)

// fakeItemClassifier labels every file after its own name so tests can check
// index alignment. Optionally tracks concurrency and panics on demand.
type fakeItemClassifier struct {
	delay    time.Duration
	panicOn  string
	networks bool

	active  atomic.Int64
	maxSeen atomic.Int64
}

func (f *fakeItemClassifier) Classify(ctx context.Context, fd entity.FileDescriptor) entity.ClassificationResult {
	cur := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		prev := f.maxSeen.Load()
		if cur <= prev || f.maxSeen.CompareAndSwap(prev, cur) {
			break
		}
	}

	if fd.Name == f.panicOn {
		panic("injected failure for " + fd.Name)
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return entity.ClassificationResult{
		DocumentType: constants.Other,
		Summary:      fd.Name,
		Source:       entity.SourceAI,
	}
}

func (f *fakeItemClassifier) NeedsNetwork(fd entity.FileDescriptor) bool {
	return f.networks
}

func descriptors(n int) []entity.FileDescriptor {
	files := make([]entity.FileDescriptor, n)
	for i := range files {
		files[i] = entity.NewFileDescriptor(fmt.Sprintf("file_%02d.jpg", i), []byte("x"))
	}
	return files
}

func TestBatchResultsAreIndexAligned(t *testing.T) {
	for _, policy := range []Policy{PolicySequential, PolicyBounded} {
		t.Run(string(policy), func(t *testing.T) {
			fake := &fakeItemClassifier{delay: time.Millisecond}
			s := NewScheduler(fake, SchedulerConfig{
				Policy:          policy,
				SequentialDelay: time.Millisecond,
				Concurrency:     3,
				ChunkDelay:      time.Millisecond,
			}, nil)

			files := descriptors(10)
			results := s.ClassifyBatch(context.Background(), files, nil)

			if len(results) != len(files) {
				t.Fatalf("got %d results for %d files", len(results), len(files))
			}
			for i, res := range results {
				if res.Summary != files[i].Name {
					t.Errorf("results[%d] belongs to %q, want %q", i, res.Summary, files[i].Name)
				}
			}
		})
	}
}

func TestBoundedRespectsConcurrencyCeiling(t *testing.T) {
	fake := &fakeItemClassifier{delay: 10 * time.Millisecond}
	s := NewScheduler(fake, SchedulerConfig{
		Policy:      PolicyBounded,
		Concurrency: 3,
		ChunkDelay:  time.Millisecond,
	}, nil)

	s.ClassifyBatch(context.Background(), descriptors(11), nil)

	if max := fake.maxSeen.Load(); max > 3 {
		t.Errorf("observed %d concurrent classifications, ceiling is 3", max)
	}
	if s.InFlight() != 0 {
		t.Errorf("in-flight gauge = %d after batch, want 0", s.InFlight())
	}
}

func TestProgressIsMonotonicAndComplete(t *testing.T) {
	for _, policy := range []Policy{PolicySequential, PolicyBounded} {
		t.Run(string(policy), func(t *testing.T) {
			fake := &fakeItemClassifier{delay: time.Millisecond}
			s := NewScheduler(fake, SchedulerConfig{
				Policy:          policy,
				SequentialDelay: time.Millisecond,
				Concurrency:     4,
				ChunkDelay:      time.Millisecond,
			}, nil)

			var mu sync.Mutex
			var seen []int
			files := descriptors(9)
			s.ClassifyBatch(context.Background(), files, func(p entity.BatchProgress) {
				mu.Lock()
				defer mu.Unlock()
				seen = append(seen, p.Completed)
				if p.Total != len(files) {
					t.Errorf("progress total = %d, want %d", p.Total, len(files))
				}
				if p.Result == nil {
					t.Error("progress carried no result")
				}
			})

			if len(seen) != len(files) {
				t.Fatalf("got %d progress events for %d files", len(seen), len(files))
			}
			for i, c := range seen {
				if c != i+1 {
					t.Errorf("progress event %d reported Completed=%d, want %d", i, c, i+1)
				}
			}
		})
	}
}

func TestBatchSurvivesPanickingItem(t *testing.T) {
	fake := &fakeItemClassifier{panicOn: "file_02.jpg"}
	s := NewScheduler(fake, SchedulerConfig{
		Policy:          PolicySequential,
		SequentialDelay: time.Millisecond,
	}, nil)

	files := descriptors(5)
	results := s.ClassifyBatch(context.Background(), files, nil)

	if len(results) != 5 {
		t.Fatalf("got %d results, want 5", len(results))
	}
	bad := results[2]
	if bad.DocumentType != constants.Other || bad.Confidence != 0 {
		t.Errorf("panicked item = %s/%d, want other/0", bad.DocumentType, bad.Confidence)
	}
	for i, res := range results {
		if i == 2 {
			continue
		}
		if res.Summary != files[i].Name {
			t.Errorf("item %d was disturbed by the panic: %q", i, res.Summary)
		}
	}
}

func TestSequentialSkipsThrottleForLocalItems(t *testing.T) {
	// 10 local-only items with a long delay configured: the batch must not
	// take 10x the delay, because no item consumes a throttle token.
	fake := &fakeItemClassifier{networks: false}
	s := NewScheduler(fake, SchedulerConfig{
		Policy:          PolicySequential,
		SequentialDelay: 300 * time.Millisecond,
	}, nil)

	start := time.Now()
	s.ClassifyBatch(context.Background(), descriptors(10), nil)
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("local-only batch took %s, throttle should not apply", elapsed)
	}
}

func TestEmptyBatch(t *testing.T) {
	s := NewScheduler(&fakeItemClassifier{}, SchedulerConfig{}, nil)
	results := s.ClassifyBatch(context.Background(), nil, func(entity.BatchProgress) {
		t.Error("progress fired for empty batch")
	})
	if len(results) != 0 {
		t.Errorf("got %d results for empty batch", len(results))
	}
}
