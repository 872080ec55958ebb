package logger

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap/zapcore"
)

// OperationLog appends one "<date> - <message>" line per registry mutation.
// The file is opened and closed on every write; nothing ever reads it back.
type OperationLog struct {
	core zapcore.Core
	now  func() time.Time
}

// NewOperationLog returns an operation log appending to path.
func NewOperationLog(path string) *OperationLog {
	encoder := zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		TimeKey:          "date",
		MessageKey:       "message",
		LineEnding:       zapcore.DefaultLineEnding,
		EncodeTime:       zapcore.TimeEncoderOfLayout("2006-01-02"),
		EncodeDuration:   zapcore.StringDurationEncoder,
		ConsoleSeparator: " - ",
	})
	core := zapcore.NewCore(encoder, appendFile(path), zapcore.DebugLevel)
	return &OperationLog{core: core, now: time.Now}
}

// Record writes message to the log. Write failures are returned to the caller.
func (l *OperationLog) Record(message string) error {
	if l == nil {
		return nil
	}
	entry := zapcore.Entry{Level: zapcore.InfoLevel, Time: l.now(), Message: message}
	if err := l.core.Write(entry, nil); err != nil {
		return fmt.Errorf("write operation log: %w", err)
	}
	return nil
}

// appendFile is a WriteSyncer that holds no handle between writes.
type appendFile string

func (p appendFile) Write(b []byte) (int, error) {
	f, err := os.OpenFile(string(p), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, err
	}
	n, err := f.Write(b)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return n, err
}

func (p appendFile) Sync() error { return nil }
