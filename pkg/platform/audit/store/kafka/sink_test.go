package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "apeguard/pkg/platform/audit"
)

type fakeProducer struct {
	records []*kgo.Record
	err     error
}

func (p *fakeProducer) ProduceSync(_ context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	results := make(kgo.ProduceResults, 0, len(rs))
	for _, r := range rs {
		if p.err == nil {
			p.records = append(p.records, r)
		}
		results = append(results, kgo.ProduceResult{Record: r, Err: p.err})
	}
	return results
}

func TestSink_Append(t *testing.T) {
	p := &fakeProducer{}
	sink := NewSink(p, "apeguard.audit")
	event := audit.Event{
		ID:        uuid.New(),
		Category:  audit.CategoryOperations,
		Timestamp: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Action:    string(audit.EventLinked),
		Target:    "protocols-addresses",
		Key:       "0xabc",
		Outcome:   audit.OutcomeCommitted,
	}

	require.NoError(t, sink.Append(context.Background(), event))
	require.Len(t, p.records, 1)
	rec := p.records[0]
	assert.Equal(t, "apeguard.audit", rec.Topic)
	assert.Equal(t, "protocols-addresses", string(rec.Key))

	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Value, &got))
	assert.Equal(t, event.ID.String(), got["id"])
	assert.Equal(t, "linked", got["action"])
	assert.Equal(t, "2026-01-02T03:04:05Z", got["timestamp"])
	assert.NotContains(t, got, "counterpart")
}

func TestSink_AppendError(t *testing.T) {
	sink := NewSink(&fakeProducer{err: errors.New("broker down")}, "t")
	err := sink.Append(context.Background(), audit.Event{ID: uuid.New()})
	assert.ErrorContains(t, err, "broker down")
}
