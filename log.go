package main

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	terminal "golang.org/x/term"
)

func init() {
	log.SetFormatter(&customFormatter{
		isTerminal: terminal.IsTerminal(int(os.Stderr.Fd())),
	})
}

// customFormatter writes one line per entry: timestamp, bracketed level, and
// message. Levels are colored only when STDERR is a terminal.
type customFormatter struct {
	isTerminal bool
}

var levelColors = map[log.Level]string{
	log.DebugLevel: "\x1b[36;1m", // bright cyan
	log.InfoLevel:  "\x1b[32;1m", // bright green
	log.WarnLevel:  "\x1b[33;1m", // bright yellow
	log.ErrorLevel: "\x1b[31;1m", // bright red
	log.FatalLevel: "\x1b[31;1m",
	log.PanicLevel: "\x1b[31;1m",
}

func (f *customFormatter) Format(entry *log.Entry) ([]byte, error) {
	b := entry.Buffer
	if b == nil {
		b = &bytes.Buffer{}
	}

	levelName := strings.ToUpper(entry.Level.String())
	if levelName == "WARNING" {
		levelName = "WARN"
	}
	padding := strings.Repeat(" ", 5-len(levelName))
	if color, ok := levelColors[entry.Level]; ok && f.isTerminal {
		levelName = color + levelName + "\x1b[0m"
	}
	fmt.Fprintf(b, "%s [%s]%s %s\n", entry.Time.Format("2006-01-02 15:04:05"), levelName, padding, entry.Message)
	return b.Bytes(), nil
}
