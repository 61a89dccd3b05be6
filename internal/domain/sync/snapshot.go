package sync

import (
	"time"

	"github.com/jbctechsolutions/daybook/internal/domain/entry"
)

// OutboundSnapshot is a full point-in-time serialization of local
// domain state, assembled by the local store on request and pushed to
// the backend as an opaque unit. Each push is a complete snapshot, not
// a delta, so ordering between pushes does not matter.
type OutboundSnapshot struct {
	DeviceID     string              `json:"device_id"`
	TakenAt      time.Time           `json:"taken_at"`
	Tasks        []entry.Task        `json:"tasks"`
	Projects     []entry.Project     `json:"projects"`
	ProgressLogs []entry.ProgressLog `json:"progress_logs"`
	Transactions []entry.Transaction `json:"transactions"`
}

// Empty reports whether the snapshot carries no domain state at all.
func (s *OutboundSnapshot) Empty() bool {
	if s == nil {
		return true
	}
	return len(s.Tasks) == 0 && len(s.Projects) == 0 &&
		len(s.ProgressLogs) == 0 && len(s.Transactions) == 0
}
