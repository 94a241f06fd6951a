package emergency

import (
	"context"
	"fmt"
	"time"
)

// Recorder appends access log entries. Writes are synchronous and callers
// must treat a failed write as a failed disclosure.
type Recorder struct {
	logs AccessLogRepository
	ids  *LogIDs
	now  func() time.Time
}

func NewRecorder(logs AccessLogRepository) *Recorder {
	return &Recorder{logs: logs, ids: NewLogIDs(), now: time.Now}
}

func (r *Recorder) Record(ctx context.Context, l *AccessLog) error {
	if !validMethod(l.Method) {
		return fmt.Errorf("%w: %q", ErrInvalidMethod, l.Method)
	}
	if l.AccessedAt.IsZero() {
		l.AccessedAt = r.now().UTC()
	}
	if l.ID == "" {
		id, err := r.ids.New(l.AccessedAt)
		if err != nil {
			return fmt.Errorf("mint access log id: %w", err)
		}
		l.ID = id
	}
	if l.DataReturned == nil {
		l.DataReturned = []string{}
	}
	return r.logs.Append(ctx, l)
}

func (r *Recorder) List(ctx context.Context, limit, offset int) ([]*AccessLog, int, error) {
	items, total, err := r.logs.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	if items == nil {
		items = []*AccessLog{}
	}
	return items, total, nil
}
