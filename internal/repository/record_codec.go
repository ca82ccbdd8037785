package repository

import (
	"encoding/json"
	"errors"
	"fmt"
)

// recordSchemaVersion is written into every collection envelope.
const recordSchemaVersion = 1

// ErrUnsupportedSchema marks a blob written by a newer schema than this build understands.
var ErrUnsupportedSchema = errors.New("record store: unsupported schema version")

type recordEnvelope[T any] struct {
	SchemaVersion int `json:"schema_version"`
	Records       []T `json:"records"`
}

func decodeRecords[T any](c Collection, payload []byte) ([]T, error) {
	if len(payload) == 0 {
		return nil, nil
	}

	var env recordEnvelope[T]
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("decode %s: %w", c, err)
	}
	if env.SchemaVersion > recordSchemaVersion {
		return nil, fmt.Errorf("%w: %s has version %d", ErrUnsupportedSchema, c, env.SchemaVersion)
	}
	return env.Records, nil
}

func encodeRecords[T any](c Collection, records []T) ([]byte, error) {
	if records == nil {
		records = []T{}
	}
	payload, err := json.Marshal(recordEnvelope[T]{SchemaVersion: recordSchemaVersion, Records: records})
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", c, err)
	}
	return payload, nil
}
