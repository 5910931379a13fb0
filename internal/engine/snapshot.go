package engine

import (
	"time"

	"github.com/rs/zerolog/log"
)

// NewSnapshot indexes records by identity. Duplicate identities are an
// anomaly this design cannot tell apart; the first record wins and the
// collision is logged and counted, never merged silently.
func NewSnapshot(takenAt time.Time, records []Record) (*Snapshot, error) {
	if len(records) == 0 {
		return nil, ErrEmptySnapshot
	}
	s := &Snapshot{
		TakenAt: takenAt,
		Records: make(map[Identity]Record, len(records)),
	}
	for _, r := range records {
		id := Hash(r)
		if _, ok := s.Records[id]; ok {
			s.Collisions++
			log.Warn().
				Str("identity", string(id)).
				Str("provider_id", r.ProviderID).
				Str("campaign_id", r.CampaignID).
				Msg("identity collision, keeping first record")
			continue
		}
		s.Records[id] = r
	}
	return s, nil
}

// Len returns the number of distinct identities in the snapshot.
func (s *Snapshot) Len() int { return len(s.Records) }
