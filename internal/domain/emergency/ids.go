package emergency

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// LogIDs hands out time-sortable ULIDs for access log entries. Entropy is
// monotonic so ids minted in the same millisecond still sort in call order.
type LogIDs struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

func NewLogIDs() *LogIDs {
	return &LogIDs{entropy: ulid.Monotonic(rand.Reader, 0)}
}

func (g *LogIDs) New(at time.Time) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	id, err := ulid.New(ulid.Timestamp(at), g.entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
