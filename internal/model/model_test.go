package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisplay_UnmarshalVariants(t *testing.T) {
	testCases := []struct {
		name         string
		raw          string
		expectedType DisplayType
		embedded     int
	}{
		{
			name:         "camelCase type and displayQueue",
			raw:          `{"id":7,"display":"Kitchen","displayType":"products","company":"/people/3","displayQueue":[{"id":1,"queue":{"id":55}}]}`,
			expectedType: DisplayProducts,
			embedded:     1,
		},
		{
			name:         "legacy snake_case fields",
			raw:          `{"id":"8","display":"Bar","display_type":"orders","display_queues":[{"id":1},{"id":2}]}`,
			expectedType: DisplayOrders,
			embedded:     2,
		},
		{
			name:         "single embedded object",
			raw:          `{"@id":"/displays/9","display":"TV","displayType":"tv","displayQueues":{"id":3,"queue":{"id":4}}}`,
			expectedType: DisplayTV,
			embedded:     1,
		},
		{
			name:         "no relation",
			raw:          `{"id":10,"display":"Pass","displayType":"products x orders"}`,
			expectedType: DisplayProductsOrders,
			embedded:     0,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var d Display
			require.NoError(t, json.Unmarshal([]byte(tc.raw), &d))
			assert.Equal(t, tc.expectedType, d.DisplayType)
			assert.Len(t, d.Embedded, tc.embedded)
			_, ok := d.Reference().ID()
			assert.True(t, ok)
		})
	}
}

func TestQueue_UnmarshalStatusShapes(t *testing.T) {
	raw := `{"id":55,"queue":"Grill","company":"/people/3",
		"status_in":"/statuses/1",
		"status_working":{"@id":"/statuses/2","status":"Preparing","realStatus":"working","color":"#f00"}}`

	var q Queue
	require.NoError(t, json.Unmarshal([]byte(raw), &q))
	assert.Equal(t, "Grill", q.Queue)
	require.NotNil(t, q.StatusIn)
	assert.Equal(t, "/statuses/1", q.StatusIn.Path())
	require.NotNil(t, q.StatusWorking)
	assert.Equal(t, "Preparing", q.StatusWorking.Status)
	assert.Nil(t, q.StatusOut)

	id, ok := q.Reference().ID()
	assert.True(t, ok)
	assert.Equal(t, int64(55), id)
}

func TestQueue_Merge(t *testing.T) {
	var partial, full Queue
	require.NoError(t, json.Unmarshal([]byte(`{"@id":"/queues/55"}`), &partial))
	require.NoError(t, json.Unmarshal([]byte(`{"id":55,"queue":"Grill"}`), &full))

	merged := partial.Merge(full)
	assert.Equal(t, "Grill", merged.Queue)
	assert.Equal(t, "/queues/55", merged.IRI)
}

func TestLink_LocalID(t *testing.T) {
	assert.Equal(t, "local-7-55", LocalLinkID(7, 55))

	var l Link
	require.NoError(t, json.Unmarshal([]byte(`{"id":"local-7-55","queue":{"id":55}}`), &l))
	assert.True(t, l.IsLocal())
	_, ok := l.Reference().ID()
	assert.False(t, ok)
}
