package engine

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"strings"
	"testing"

	"gotest.tools/v3/assert"

	"github.com/go-linesort/linesort/internal/config"
	"github.com/go-linesort/linesort/internal/tempfile"
	"github.com/go-linesort/linesort/internal/xerrors"
)

func scanLines(t *testing.T, b *bytes.Buffer) []string {
	t.Helper()
	var out []string
	sc := bufio.NewScanner(b)
	sc.Buffer(make([]byte, 1<<20), 1<<20)
	for sc.Scan() {
		out = append(out, sc.Text())
	}
	assert.NilError(t, sc.Err())
	return out
}

func newDir(t *testing.T) *tempfile.Dir {
	t.Helper()
	dir, err := tempfile.New(t.TempDir())
	assert.NilError(t, err)
	t.Cleanup(func() { _ = dir.Close() })
	return dir
}

// TestExternalSortSmallInput checks that input smaller than one chunk
// sorts correctly from a single initial run.
func TestExternalSortSmallInput(t *testing.T) {
	cfg := config.Default()
	input := strings.NewReader("banana\napple\ncherry\n")
	var output bytes.Buffer

	stats, err := ExternalSort(context.Background(), input, &output, newDir(t), cfg)
	assert.NilError(t, err)
	assert.Equal(t, stats.InitialRuns, 1)

	got := scanLines(t, &output)
	assert.DeepEqual(t, got, []string{"apple", "banana", "cherry"})
}

// TestExternalSortEmptyInput checks that an empty input is not an error
// and produces empty output.
func TestExternalSortEmptyInput(t *testing.T) {
	cfg := config.Default()
	input := strings.NewReader("")
	var output bytes.Buffer

	stats, err := ExternalSort(context.Background(), input, &output, newDir(t), cfg)
	assert.NilError(t, err)
	assert.Equal(t, stats.InitialRuns, 0)
	assert.Equal(t, output.Len(), 0)
}

// TestExternalSortSpillsAcrossMultipleRuns checks that input larger than
// one worker's chunk budget spills multiple runs that must be merged
// back together.
func TestExternalSortSpillsAcrossMultipleRuns(t *testing.T) {
	cfg := config.Default()
	cfg.Workers = 8
	cfg.Budget = config.MinBudget // small per-worker chunk forces several spills
	cfg.FanIn = 3

	rng := rand.New(rand.NewSource(42))
	n := 50000
	want := make([]string, n)
	var sb strings.Builder
	for i := 0; i < n; i++ {
		want[i] = fmt.Sprintf("%08d-line", rng.Intn(1_000_000))
		sb.WriteString(want[i])
		sb.WriteByte('\n')
	}
	sort.Strings(want)

	var output bytes.Buffer
	stats, err := ExternalSort(context.Background(), strings.NewReader(sb.String()), &output, newDir(t), cfg)
	assert.NilError(t, err)
	assert.Assert(t, stats.InitialRuns > 1)

	got := scanLines(t, &output)
	assert.DeepEqual(t, got, want)
}

// TestExternalSortCascadedMergePasses checks that a run count exceeding
// the fan-in forces an intermediate merge pass before the final merge.
// MergePasses counts the final merge too, so it must exceed 1.
func TestExternalSortCascadedMergePasses(t *testing.T) {
	cfg := config.Default()
	cfg.Workers = 8
	cfg.Budget = config.MinBudget
	cfg.FanIn = 2

	rng := rand.New(rand.NewSource(7))
	n := 50000
	want := make([]string, n)
	var sb strings.Builder
	for i := 0; i < n; i++ {
		want[i] = fmt.Sprintf("%08d", rng.Intn(1_000_000))
		sb.WriteString(want[i])
		sb.WriteByte('\n')
	}
	sort.Strings(want)

	var output bytes.Buffer
	stats, err := ExternalSort(context.Background(), strings.NewReader(sb.String()), &output, newDir(t), cfg)
	assert.NilError(t, err)
	assert.Assert(t, stats.MergePasses > 1)

	got := scanLines(t, &output)
	assert.DeepEqual(t, got, want)
}

// TestExternalSortDuplicatesPreserved checks that sorting never
// deduplicates equal lines.
func TestExternalSortDuplicatesPreserved(t *testing.T) {
	cfg := config.Default()
	input := strings.NewReader("x\ny\nx\n")
	var output bytes.Buffer

	_, err := ExternalSort(context.Background(), input, &output, newDir(t), cfg)
	assert.NilError(t, err)
	assert.DeepEqual(t, scanLines(t, &output), []string{"x", "x", "y"})
}

// TestExternalSortFieldKey checks sorting by a non-whole-line field.
func TestExternalSortFieldKey(t *testing.T) {
	cfg := &config.Config{Workers: 1, Budget: config.MinBudget, FanIn: 4, Delimiter: ',', Field: 1}
	input := strings.NewReader("1,zebra\n2,apple\n3,mango\n")
	var output bytes.Buffer

	_, err := ExternalSort(context.Background(), input, &output, newDir(t), cfg)
	assert.NilError(t, err)
	assert.DeepEqual(t, scanLines(t, &output), []string{"2,apple", "3,mango", "1,zebra"})
}

// TestExternalSortLineTooLarge checks that a single line longer than the
// per-worker buffer is reported as LineTooLarge, not silently truncated
// or split.
func TestExternalSortLineTooLarge(t *testing.T) {
	cfg := &config.Config{Workers: 1, Budget: config.MinBudget, FanIn: 4}
	huge := strings.Repeat("a", int(config.MinBudget)+100)
	input := strings.NewReader(huge + "\n")
	var output bytes.Buffer

	dir := newDir(t)
	_, err := ExternalSort(context.Background(), input, &output, dir, cfg)
	assert.Assert(t, err != nil)
	assert.Assert(t, xerrors.IsLineTooLarge(err))
	assert.Equal(t, output.Len(), 0)

	entries, readErr := os.ReadDir(dir.Path())
	assert.NilError(t, readErr)
	assert.Equal(t, len(entries), 0)
}

// TestExternalSortIdempotent checks that sorting an already-sorted
// input yields byte-identical output.
func TestExternalSortIdempotent(t *testing.T) {
	cfg := config.Default()
	sorted := "alpha\nbeta\ndelta\ngamma\n"

	var output bytes.Buffer
	_, err := ExternalSort(context.Background(), strings.NewReader(sorted), &output, newDir(t), cfg)
	assert.NilError(t, err)
	assert.Equal(t, output.String(), sorted)
}

// TestExternalSortBufferSizeIndependent checks that any two memory
// budgets that both admit the longest line produce byte-identical
// output, even though they spill different run sets.
func TestExternalSortBufferSizeIndependent(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	var sb strings.Builder
	for i := 0; i < 20000; i++ {
		fmt.Fprintf(&sb, "%06d\n", rng.Intn(100_000))
	}
	input := sb.String()

	sortWith := func(budget int64, workers int) string {
		cfg := config.Default()
		cfg.Budget = budget
		cfg.Workers = workers
		var output bytes.Buffer
		_, err := ExternalSort(context.Background(), strings.NewReader(input), &output, newDir(t), cfg)
		assert.NilError(t, err)
		return output.String()
	}

	small := sortWith(config.MinBudget, 8)
	large := sortWith(64<<20, 2)
	assert.Equal(t, small, large)
}

// TestExternalSortNoTrailingNewlineOnFinalLine checks that a final line
// without a trailing newline is treated as a complete line, and the
// sorted output always newline-terminates every line.
func TestExternalSortNoTrailingNewlineOnFinalLine(t *testing.T) {
	cfg := config.Default()
	input := strings.NewReader("b\na")
	var output bytes.Buffer

	_, err := ExternalSort(context.Background(), input, &output, newDir(t), cfg)
	assert.NilError(t, err)
	assert.Equal(t, output.String(), "a\nb\n")
}
