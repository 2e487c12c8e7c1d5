// Package joblog gives each job its own rotated stdout/stderr log files on
// disk, independent of the bounded in-memory capture the store keeps per
// run.
package joblog

import (
	"fmt"
	"io"
	"path/filepath"

	lj "gopkg.in/natefinch/lumberjack.v2"
)

const (
	defaultMaxSizeMB  = 10
	defaultMaxBackups = 5
	defaultMaxAgeDays = 14
)

// Config describes where rotated per-job log files live.
type Config struct {
	Dir        string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Writers returns rotating writers for a job's stdout and stderr. Callers
// must Close both once the run finishes.
func (c Config) Writers(jobName string) (io.WriteCloser, io.WriteCloser) {
	stdout := &lj.Logger{
		Filename:   filepath.Join(c.Dir, fmt.Sprintf("%s.stdout.log", jobName)),
		MaxSize:    valOr(c.MaxSizeMB, defaultMaxSizeMB),
		MaxBackups: valOr(c.MaxBackups, defaultMaxBackups),
		MaxAge:     valOr(c.MaxAgeDays, defaultMaxAgeDays),
	}
	stderr := &lj.Logger{
		Filename:   filepath.Join(c.Dir, fmt.Sprintf("%s.stderr.log", jobName)),
		MaxSize:    valOr(c.MaxSizeMB, defaultMaxSizeMB),
		MaxBackups: valOr(c.MaxBackups, defaultMaxBackups),
		MaxAge:     valOr(c.MaxAgeDays, defaultMaxAgeDays),
	}
	return stdout, stderr
}

func valOr(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
