package dto

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkReadRequest_MixedIDs(t *testing.T) {
	var req MarkReadRequest
	require.NoError(t, json.Unmarshal([]byte(`{"ids":[3,"7","event-2"]}`), &req))
	assert.Equal(t, []FeedID{"3", "7", "event-2"}, req.IDs)
}

func TestMarkReadRequest_Empty(t *testing.T) {
	var req MarkReadRequest
	require.NoError(t, json.Unmarshal([]byte(`{}`), &req))
	assert.Empty(t, req.IDs)

	assert.Error(t, json.Unmarshal([]byte(`{"ids":[true]}`), &req))
}
