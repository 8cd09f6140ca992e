package activity

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestAppendFormatsLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	at := time.Date(2024, 3, 1, 12, 30, 0, 0, time.FixedZone("X", 2*3600))
	l := New(path, WithClock(fixedClock(at)))

	require.NoError(t, l.Append("Cluster acme created"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01T10:30:00Z Cluster acme created\n", string(data))
}

func TestAppendKeepsOrder(t *testing.T) {
	l := New(filepath.Join(t.TempDir(), FileName))

	for _, msg := range []string{"one", "two", "three"} {
		require.NoError(t, l.Append(msg))
	}

	records, err := l.Read()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "one", records[0].Message)
	assert.Equal(t, "two", records[1].Message)
	assert.Equal(t, "three", records[2].Message)
	assert.False(t, records[0].Time.IsZero())
}

func TestAppendFlattensNewlines(t *testing.T) {
	l := New(filepath.Join(t.TempDir(), FileName))
	require.NoError(t, l.Append("terraform apply failed:\nError: quota\r\nexceeded"))

	lines, err := l.Lines()
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.True(t, strings.HasSuffix(lines[0], " terraform apply failed: Error: quota exceeded"))
}

func TestReadMissingFile(t *testing.T) {
	l := New(filepath.Join(t.TempDir(), "nope", FileName))

	records, err := l.Read()
	require.NoError(t, err)
	assert.Empty(t, records)

	lines, err := l.Lines()
	require.NoError(t, err)
	assert.NotNil(t, lines)
}

func TestAppendMissingDirFails(t *testing.T) {
	l := New(filepath.Join(t.TempDir(), "nope", FileName))
	assert.Error(t, l.Append("x"))
}

func TestConcurrentAppendsFromSeparateLogs(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, New(path).Appendf("entry %d", i))
		}(i)
	}
	wg.Wait()

	records, err := New(path).Read()
	require.NoError(t, err)
	require.Len(t, records, 20)
	for _, r := range records {
		assert.False(t, r.Time.IsZero())
		assert.True(t, strings.HasPrefix(r.Message, "entry "), r.Message)
	}
}

func TestParseLine(t *testing.T) {
	rec := ParseLine("2024-01-02T03:04:05Z hello world")
	assert.Equal(t, "hello world", rec.Message)
	assert.True(t, rec.Time.Equal(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)))

	rec = ParseLine("not a timestamp")
	assert.Equal(t, "not a timestamp", rec.Message)
	assert.True(t, rec.Time.IsZero())
}
