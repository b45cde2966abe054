// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package audit appends action/user/description lines to an append-only
// log file.
package audit

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/pdiddy/sop-engine/pkg/types"
)

// now is the clock for log entries. Tests override it.
var now = time.Now

// Log is an append-only audit trail of data access and mutation.
type Log struct {
	path string

	mu sync.Mutex
}

// New returns a Log appending to the file at cfg.Path ("audit.log" when
// unset). The file is created on first write.
func New(cfg types.AuditConfig) *Log {
	path := cfg.Path
	if path == "" {
		path = "audit.log"
	}
	return &Log{path: path}
}

// Record appends one entry. Failures are surfaced to the caller, never
// swallowed.
func (l *Log) Record(action, user, description string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("%w: opening audit log %s: %v", types.ErrStorage, l.path, err)
	}
	defer f.Close()

	line := fmt.Sprintf("%s - User %s performed %s on %s\n",
		now().Format(time.RFC3339), user, action, description)
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("%w: appending audit log: %v", types.ErrStorage, err)
	}
	return nil
}
