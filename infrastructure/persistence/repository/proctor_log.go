package repository

import (
	"time"

	"github.com/devscore/integrity/domain/model"
	"github.com/google/uuid"
)

// prepareLog assigns the id and normalises timestamps before an entry is
// written by any engine. Ids are UUIDv7 so they sort in arrival order.
func prepareLog(log *model.ProctorLog) error {
	if log.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		log.ID = id.String()
	}

	now := time.Now().UTC()
	if log.Timestamp.IsZero() {
		log.Timestamp = now
	}
	log.Timestamp = log.Timestamp.UTC().Truncate(time.Microsecond)
	if log.CreatedAt.IsZero() {
		log.CreatedAt = now
	}
	return nil
}
