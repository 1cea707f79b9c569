package log

import "fmt"

// libraryLoggerAdapter lets a *Logger satisfy LibraryLogger, so library-ish
// packages (e.g. supervisor's best-effort setup steps) can report
// diagnostics through the same run-level debug log as everything else,
// without depending on Logger's file-per-outcome layout directly.
type libraryLoggerAdapter struct {
	l *Logger
}

// AsLibraryLogger adapts l to LibraryLogger.
func (l *Logger) AsLibraryLogger() LibraryLogger {
	return libraryLoggerAdapter{l: l}
}

func (a libraryLoggerAdapter) Info(format string, args ...any) {
	a.l.Info(fmt.Sprintf(format, args...))
}

func (a libraryLoggerAdapter) Debug(format string, args ...any) {
	a.l.Debug(fmt.Sprintf(format, args...))
}

func (a libraryLoggerAdapter) Warn(format string, args ...any) {
	a.l.Debug("WARN: " + fmt.Sprintf(format, args...))
}

func (a libraryLoggerAdapter) Error(format string, args ...any) {
	a.l.Error(fmt.Sprintf(format, args...))
}
