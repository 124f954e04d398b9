package model

import "encoding/json"

// EventRecord is an engine event enriched with ordering metadata for storage.
type EventRecord struct {
	Seq       uint64   `json:"seq"`
	Index     uint32   `json:"index"`
	Timestamp uint64   `json:"timestamp"`
	EventName string   `json:"event_name"`
	PoolMeta  PoolMeta `json:"pool_meta"`
	Decoded   Event    `json:"decoded"`
}

// StoredEventRecord is the JSON representation read back for aggregation.
type StoredEventRecord struct {
	Seq       uint64          `json:"seq"`
	Index     uint32          `json:"index"`
	Timestamp uint64          `json:"timestamp"`
	EventName string          `json:"event_name"`
	PoolMeta  PoolMeta        `json:"pool_meta"`
	Decoded   json.RawMessage `json:"decoded"`
}
