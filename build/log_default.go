//go:build !stdlog && !nolog
// +build !stdlog,!nolog

package build

// LoggingType is a log type that writes to both stdout and the log rotator, if
// present.
const LoggingType = LogTypeDefault

// Write writes the byte slice to both the console and the rotator, whichever
// of the two are set.
func (w *LogWriter) Write(b []byte) (int, error) {
	if w.Console != nil {
		_, _ = w.Console.Write(b)
	}
	if w.Rotator != nil {
		_, _ = w.Rotator.Write(b)
	}

	return len(b), nil
}
