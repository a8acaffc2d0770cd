package mongodb

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/warp/textile-ops/allocation"
)

func TestReportDocument_BSONRoundTrip(t *testing.T) {
	generated := time.Date(2025, 4, 30, 20, 0, 0, 0, time.UTC)
	in := allocation.ArchivedReport{
		ID:          "3f1c",
		GeneratedAt: generated,
		Period:      allocation.Period{Start: "2025-04-01", End: "2025-04-30"},
		Trigger:     "schedule",
		Payload:     []byte(`{"summary":{"total_cost":"12.50"}}`),
	}

	raw, err := bson.Marshal(toDocument(in))
	require.NoError(t, err)

	var fields bson.M
	require.NoError(t, bson.Unmarshal(raw, &fields))
	assert.Equal(t, "3f1c", fields["_id"])
	assert.Equal(t, "schedule", fields["trigger"])

	var doc reportDocument
	require.NoError(t, bson.Unmarshal(raw, &doc))
	out := doc.report()

	assert.Equal(t, in.ID, out.ID)
	assert.True(t, in.GeneratedAt.Equal(out.GeneratedAt))
	assert.Equal(t, in.Period, out.Period)
	assert.JSONEq(t, string(in.Payload), string(out.Payload))
}

func TestReportDocument_OpenPeriodOmitted(t *testing.T) {
	raw, err := bson.Marshal(toDocument(allocation.ArchivedReport{ID: "r", Trigger: "api", Payload: []byte(`{}`)}))
	require.NoError(t, err)

	var fields bson.M
	require.NoError(t, bson.Unmarshal(raw, &fields))
	assert.NotContains(t, fields, "period_start")
	assert.NotContains(t, fields, "period_end")
}
