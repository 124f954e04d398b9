package storage

import (
	"errors"

	"dexEngine/internal/model"
)

// EventStorage defines a sink for engine event records.
type EventStorage interface {
	PutEventBatch(records []model.EventRecord) error
}

// ErrorStorage defines a sink for rejected requests.
type ErrorStorage interface {
	PutRequestErrors(errs []model.RequestError) error
}

// Multi fans a batch out to every sink and joins their errors.
type Multi []EventStorage

func (m Multi) PutEventBatch(records []model.EventRecord) error {
	var errs []error
	for _, sink := range m {
		if sink == nil {
			continue
		}
		if err := sink.PutEventBatch(records); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
