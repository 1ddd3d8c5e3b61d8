package build

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/btcsuite/btclog/v2"
	"github.com/stretchr/testify/require"
)

// mockLeveledLogger records the level changes requested through the
// LeveledSubLogger interface.
type mockLeveledLogger struct {
	subsystems map[string]string
	global     string
}

func newMockLeveledLogger(subsystems ...string) *mockLeveledLogger {
	m := &mockLeveledLogger{subsystems: make(map[string]string)}
	for _, s := range subsystems {
		m.subsystems[s] = ""
	}

	return m
}

func (m *mockLeveledLogger) SubLoggers() SubLoggers {
	loggers := make(SubLoggers, len(m.subsystems))
	for s := range m.subsystems {
		loggers[s] = btclog.Disabled
	}

	return loggers
}

func (m *mockLeveledLogger) SupportedSubsystems() []string {
	var subsystems []string
	for s := range m.subsystems {
		subsystems = append(subsystems, s)
	}

	return subsystems
}

func (m *mockLeveledLogger) SetLogLevel(subsystemID string, level string) {
	m.subsystems[subsystemID] = level
}

func (m *mockLeveledLogger) SetLogLevels(level string) {
	m.global = level
	for s := range m.subsystems {
		m.subsystems[s] = level
	}
}

// TestParseAndSetDebugLevels checks that global and per subsystem debug level
// specifications are applied and that malformed ones are rejected.
func TestParseAndSetDebugLevels(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		level    string
		expErr   bool
		expLevel map[string]string
	}{
		{
			name:  "global level",
			level: "debug",
			expLevel: map[string]string{
				"BMOD": "debug",
				"PIXL": "debug",
			},
		},
		{
			name:  "global then subsystem",
			level: "info,BMOD=trace",
			expLevel: map[string]string{
				"BMOD": "trace",
				"PIXL": "info",
			},
		},
		{
			name:  "subsystem only",
			level: "PIXL=error",
			expLevel: map[string]string{
				"BMOD": "",
				"PIXL": "error",
			},
		},
		{
			name:   "invalid global level",
			level:  "loud",
			expErr: true,
		},
		{
			name:   "unknown subsystem",
			level:  "info,NOPE=debug",
			expErr: true,
		},
		{
			name:   "invalid subsystem level",
			level:  "BMOD=loud",
			expErr: true,
		},
		{
			name:   "malformed pair",
			level:  "info,BMOD=debug=trace",
			expErr: true,
		},
		{
			name:   "missing separator",
			level:  "info,BMOD",
			expErr: true,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			logger := newMockLeveledLogger("BMOD", "PIXL")
			err := ParseAndSetDebugLevels(tc.level, logger)
			if tc.expErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			require.Equal(t, tc.expLevel, logger.subsystems)
		})
	}
}

// TestSubLoggerManager checks that loggers generated by the manager share the
// root handler and that their levels can be tuned individually.
func TestSubLoggerManager(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	handler := btclog.NewDefaultHandler(&buf, btclog.WithNoTimestamp())
	manager := NewSubLoggerManager(handler)

	testLog := manager.GenSubLogger("TEST")
	otherLog := manager.GenSubLogger("OTHR")

	require.Equal(
		t, []string{"OTHR", "TEST"}, manager.SupportedSubsystems(),
	)
	require.Len(t, manager.SubLoggers(), 2)

	manager.SetLogLevels("info")
	require.Equal(t, btclog.LevelInfo, testLog.Level())
	require.Equal(t, btclog.LevelInfo, otherLog.Level())

	testLog.Debugf("hidden line")
	require.NotContains(t, buf.String(), "hidden line")

	manager.SetLogLevel("TEST", "debug")
	require.Equal(t, btclog.LevelDebug, testLog.Level())
	require.Equal(t, btclog.LevelInfo, otherLog.Level())

	testLog.Debugf("visible line")
	require.Contains(t, buf.String(), "visible line")
	require.Contains(t, buf.String(), "TEST")

	// Unknown subsystems are ignored.
	manager.SetLogLevel("NOPE", "trace")
	require.Len(t, manager.SubLoggers(), 2)
}

// TestLogWriterFanOut checks that the default log writer copies every line to
// both configured outputs.
func TestLogWriterFanOut(t *testing.T) {
	t.Parallel()

	var console, file bytes.Buffer
	cfg := DefaultLogConfig()
	handler := newLogHandler(cfg, &console, &file)

	logger := btclog.NewSLogger(handler).SubSystem("TEST")
	logger.Infof("encrypted %d blocks", 4)

	require.Contains(t, console.String(), "encrypted 4 blocks")
	require.Contains(t, file.String(), "encrypted 4 blocks")

	// With the console disabled only the file receives output.
	console.Reset()
	file.Reset()
	cfg.Console.Disable = true
	handler = newLogHandler(cfg, &console, &file)

	logger = btclog.NewSLogger(handler).SubSystem("TEST")
	logger.Infof("file only")

	require.Empty(t, console.String())
	require.Contains(t, file.String(), "file only")
}

// TestStyledConsole checks that a styled console colors the level tag.
func TestStyledConsole(t *testing.T) {
	t.Parallel()

	var console bytes.Buffer
	cfg := DefaultLogConfig()
	cfg.Console.Style = true
	handler := newLogHandler(cfg, &console, nil)

	logger := btclog.NewSLogger(handler).SubSystem("TEST")
	logger.Warnf("low disk")

	require.Contains(t, console.String(), ansiYellow+"[WRN]"+ansiReset)
	require.Contains(t, console.String(), "low disk")
}

// TestLogConfigValidate checks that unknown compressors and call-site options
// are rejected.
func TestLogConfigValidate(t *testing.T) {
	t.Parallel()

	cfg := DefaultLogConfig()
	require.NoError(t, cfg.Validate())

	cfg.File.Compressor = Zstd
	require.NoError(t, cfg.Validate())

	cfg.File.Compressor = "lz4"
	require.Error(t, cfg.Validate())

	cfg = DefaultLogConfig()
	cfg.File.CallSite = "middle"
	require.Error(t, cfg.Validate())
}

// TestRotatingLogWriter checks that the rotator can be set up with each
// supported compressor and that unknown ones are rejected.
func TestRotatingLogWriter(t *testing.T) {
	t.Parallel()

	for _, compressor := range []string{Gzip, Zstd} {
		compressor := compressor
		t.Run(compressor, func(t *testing.T) {
			t.Parallel()

			cfg := DefaultLogConfig().File
			cfg.Compressor = compressor

			logFile := filepath.Join(t.TempDir(), "logs", "test.log")
			writer := NewRotatingLogWriter()
			require.NoError(t, writer.InitLogRotator(cfg, logFile))

			line := []byte("a log line\n")
			n, err := writer.Write(line)
			require.NoError(t, err)
			require.Equal(t, len(line), n)
			require.NoError(t, writer.Close())

			_, err = os.Stat(filepath.Dir(logFile))
			require.NoError(t, err)
		})
	}

	cfg := DefaultLogConfig().File
	cfg.Compressor = "lz4"
	writer := NewRotatingLogWriter()
	err := writer.InitLogRotator(
		cfg, filepath.Join(t.TempDir(), "test.log"),
	)
	require.ErrorContains(t, err, "unknown log compressor")

	// A writer that was never initialized swallows writes.
	n, err := writer.Write([]byte("dropped"))
	require.NoError(t, err)
	require.Equal(t, 7, n)
	require.NoError(t, writer.Close())
}

// TestLogClosures checks the lazily evaluated log helpers.
func TestLogClosures(t *testing.T) {
	t.Parallel()

	calls := 0
	closure := NewLogClosure(func() string {
		calls++
		return "expensive"
	})
	require.Zero(t, calls)
	require.Equal(t, "expensive", closure.String())
	require.Equal(t, 1, calls)

	require.Equal(t, "0102", HexLogClosure([]byte{1, 2}, 4).String())
	require.Equal(
		t, "0102...", HexLogClosure([]byte{1, 2, 3}, 2).String(),
	)

	require.Contains(t, SpewLogClosure([]byte{0xab}).String(), "ab")
}

// TestVersion checks the version string format.
func TestVersion(t *testing.T) {
	t.Parallel()

	require.Equal(t, "0.2.0-beta", Version())
}

// TestShutdownLogger checks that critical logs request a shutdown and other
// levels do not.
func TestShutdownLogger(t *testing.T) {
	t.Parallel()

	var requests int
	logger := NewShutdownLogger(btclog.Disabled, func() {
		requests++
	})

	logger.Infof("no shutdown")
	logger.Errorf("still no shutdown")
	require.Zero(t, requests)

	logger.Criticalf("disk %s", "full")
	logger.Critical("disk full")
	require.Equal(t, 2, requests)
}
