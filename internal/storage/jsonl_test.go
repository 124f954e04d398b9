package storage

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"dexEngine/internal/model"
)

func TestJsonlStorageAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "events.jsonl")
	s := NewJsonlStorage(path)

	first := []model.EventRecord{{
		Seq:       1,
		Timestamp: 100,
		EventName: model.EventPriceChanged,
		PoolMeta:  model.PoolMeta{Asset0: 1, Asset1: 2, PoolToken: 4294967295},
		Decoded:   model.PriceChangedData{Asset0: 1, Asset1: 2, Price: "200"},
	}}
	second := []model.EventRecord{{Seq: 2, Index: 1, EventName: model.EventSwapped, Decoded: model.SwappedData{AmountIn: "5"}}}

	if err := s.PutEventBatch(first); err != nil {
		t.Fatalf("put first: %v", err)
	}
	if err := s.PutEventBatch(second); err != nil {
		t.Fatalf("put second: %v", err)
	}
	if err := s.PutEventBatch(nil); err != nil {
		t.Fatalf("put empty: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer file.Close()

	var got []model.StoredEventRecord
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var rec model.StoredEventRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		got = append(got, rec)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(got))
	}
	if got[0].PoolMeta.PoolToken != 4294967295 || got[1].Seq != 2 {
		t.Fatalf("unexpected records: %+v", got)
	}

	var price model.PriceChangedData
	if err := json.Unmarshal(got[0].Decoded, &price); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if price.Price != "200" {
		t.Fatalf("unexpected price %q", price.Price)
	}
}

type failingSink struct{}

func (failingSink) PutEventBatch([]model.EventRecord) error { return errors.New("down") }

func TestMulti(t *testing.T) {
	mem := NewMemoryStorage()
	multi := Multi{mem, nil, failingSink{}}

	err := multi.PutEventBatch([]model.EventRecord{{Seq: 1}})
	if err == nil {
		t.Fatalf("expected joined error")
	}
	if len(mem.Events()) != 1 {
		t.Fatalf("memory sink missed the batch")
	}
}
