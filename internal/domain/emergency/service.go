package emergency

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/swasthya/healthcard/internal/platform/db"
)

// Service is the emergency access core: the public resolver, share token
// issuance and redemption. Every disclosure goes through the Recorder.
type Service struct {
	tokens   ShareTokenRepository
	recorder *Recorder
	profiles ProfileSource
	users    UserSource
	records  RecordSource
	tx       db.Transactor
	observer Observer
	logger   zerolog.Logger
	now      func() time.Time
	newToken func() (string, error)
}

type Deps struct {
	Tokens   ShareTokenRepository
	Recorder *Recorder
	Profiles ProfileSource
	Users    UserSource
	Records  RecordSource
	Tx       db.Transactor
	Logger   zerolog.Logger
}

func NewService(d Deps) *Service {
	return &Service{
		tokens:   d.Tokens,
		recorder: d.Recorder,
		profiles: d.Profiles,
		users:    d.Users,
		records:  d.Records,
		tx:       d.Tx,
		observer: nopObserver{},
		logger:   d.Logger,
		now:      time.Now,
		newToken: newShareToken,
	}
}

// SetObserver attaches an outcome observer, typically the metrics registry.
func (s *Service) SetObserver(o Observer) {
	if o == nil {
		o = nopObserver{}
	}
	s.observer = o
}
