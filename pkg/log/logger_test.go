package log

import (
	"bytes"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/xerrors"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()

	var entries []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		entry := map[string]interface{}{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		entries = append(entries, entry)
	}

	return entries
}

func TestLogger_JSONFields(t *testing.T) {
	buf := new(bytes.Buffer)
	l := NewLogger(WithFormat(JSONFormat), WithOutput(buf), WithLevel(DebugLevel))

	l.With(Component("engine"), Str("log", "orders")).
		Info("opened", Uint64("transactions", 3), Duration("took", time.Second))

	entries := decodeLines(t, buf)
	require.Len(t, entries, 1)
	require.Equal(t, "info", entries[0]["level"])
	require.Equal(t, "opened", entries[0]["message"])
	require.Equal(t, "engine", entries[0]["component"])
	require.Equal(t, "orders", entries[0]["log"])
	require.Equal(t, float64(3), entries[0]["transactions"])
}

func TestLogger_LevelFilter(t *testing.T) {
	buf := new(bytes.Buffer)
	l := NewLogger(WithFormat(JSONFormat), WithOutput(buf), WithLevel(WarnLevel))

	l.Debug("hidden")
	l.Info("hidden")
	l.Warn("shown")
	require.Len(t, decodeLines(t, buf), 1)

	child := l.WithComponent("child")
	l.SetLevel(DebugLevel)
	child.Debug("now shown")
	require.Len(t, decodeLines(t, buf), 2)
	require.Equal(t, DebugLevel, child.GetLevel())
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) lines() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.Count(b.buf.String(), "\n")
}

func TestLogger_ConcurrentSetLevel(t *testing.T) {
	out := &lockedBuffer{}
	l := NewLogger(WithFormat(JSONFormat), WithOutput(out), WithLevel(InfoLevel))

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		child := l.WithComponent("writer")
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				child.Debug("tick")
				child.Warn("tock")
				_ = child.GetLevel()
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for j := 0; j < 200; j++ {
			if j%2 == 0 {
				l.SetLevel(DebugLevel)
			} else {
				l.SetLevel(WarnLevel)
			}
		}
	}()
	wg.Wait()

	// Every tock passes both levels.
	require.GreaterOrEqual(t, out.lines(), 4*200)

	l.SetLevel(ErrorLevel)
	child := l.WithComponent("writer")
	require.Equal(t, ErrorLevel, child.GetLevel())

	before := out.lines()
	child.Warn("hidden")
	require.Equal(t, before, out.lines())
	child.Error("shown")
	require.Equal(t, before+1, out.lines())
}

func TestLogger_WithError(t *testing.T) {
	buf := new(bytes.Buffer)
	l := NewLogger(WithFormat(JSONFormat), WithOutput(buf))

	l.WithError(xerrors.New("oops")).Error("failed")
	l.Error("failed again", Err(xerrors.New("boom")))

	entries := decodeLines(t, buf)
	require.Len(t, entries, 2)
	require.Equal(t, "oops", entries[0]["error"])
	require.Equal(t, "boom", entries[1]["error"])
}

func TestLogger_TextFormat(t *testing.T) {
	buf := new(bytes.Buffer)
	l := NewLogger(WithOutput(buf))

	l.Info("hello", Str("k", "v"))
	require.Contains(t, buf.String(), "hello")
	require.Contains(t, buf.String(), "k=v")
}

func TestNopLogger(t *testing.T) {
	l := NewNopLogger()
	l.Error("nothing")
	l.With(Str("a", "b")).Warn("nothing")
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("DEBUG")
	require.NoError(t, err)
	require.Equal(t, DebugLevel, lvl)

	lvl, err = ParseLevel("")
	require.NoError(t, err)
	require.Equal(t, InfoLevel, lvl)

	_, err = ParseLevel("loud")
	require.EqualError(t, err, "unknown log level 'loud'")

	require.Equal(t, "WARN", WarnLevel.String())
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("json")
	require.NoError(t, err)
	require.Equal(t, JSONFormat, f)

	_, err = ParseFormat("xml")
	require.EqualError(t, err, "unknown log format 'xml'")
}
