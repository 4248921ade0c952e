package report

import (
	"bufio"
	"fmt"
	"os"
	"time"
)

// LogMessage is one device log line.
type LogMessage struct {
	Time    time.Time
	PID     int
	TID     int
	Level   string
	Tag     string
	Message string
}

func (m LogMessage) String() string {
	return fmt.Sprintf("%s %5d %5d %s %s: %s",
		m.Time.Format("01-02 15:04:05.000"), m.PID, m.TID, m.Level, m.Tag, m.Message)
}

// RawLogWriter writes device logs of one test as plain text.
type RawLogWriter struct {
	file *TestCaseFile
}

func NewRawLogWriter(file *TestCaseFile) *RawLogWriter {
	return &RawLogWriter{file: file}
}

// WriteLogs writes one newline terminated line per message.
func (w *RawLogWriter) WriteLogs(messages []LogMessage) error {
	path, err := w.file.Create()
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	for _, m := range messages {
		if _, err := bw.WriteString(m.String()); err != nil {
			return fmt.Errorf("failed to write log file: %w", err)
		}
		if err := bw.WriteByte('\n'); err != nil {
			return fmt.Errorf("failed to write log file: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write log file: %w", err)
	}
	return f.Close()
}

// ReportData returns the written log as a file backed attachment.
func (w *RawLogWriter) ReportData(title string) *MonoText {
	return NewFileMonoText(title, MonoTextOther, w.file)
}
