package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kds-display-backend/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, pageSize int) *Client {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(config.RemoteConfig{
		BaseURL:  server.URL,
		PageSize: pageSize,
		Headers:  map[string]string{"Authorization": "Bearer test"},
	})
}

func TestClient_ListQueuesPaginates(t *testing.T) {
	var pages []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/queues", r.URL.Path)
		assert.Equal(t, "/people/3", r.URL.Query().Get("company"))
		assert.Equal(t, "Bearer test", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))

		page := r.URL.Query().Get("page")
		pages = append(pages, page)
		n, _ := strconv.Atoi(page)
		members := []map[string]any{
			{"id": n*2 - 1, "queue": fmt.Sprintf("Q%d", n*2-1)},
			{"id": n * 2, "queue": fmt.Sprintf("Q%d", n*2)},
		}
		if n == 3 {
			members = members[:1]
		}
		json.NewEncoder(w).Encode(map[string]any{"member": members, "totalItems": 5})
	}, 2)

	queues, err := client.ListQueues(context.Background(), url.Values{"company": {"/people/3"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3"}, pages)
	require.Len(t, queues, 5)
	assert.Equal(t, "Q5", queues[4].Queue)
	id, ok := queues[4].Reference().ID()
	assert.True(t, ok)
	assert.Equal(t, int64(5), id)
}

func TestClient_ListAcceptsBareArraysAndHydraKeys(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.URL.Path == "/statuses" {
			w.Write([]byte(`[{"id":1,"status":"Open","realStatus":"open"}]`))
			return
		}
		w.Write([]byte(`{"hydra:member":[{"id":3,"display":"/displays/7","queue":{"id":55}}],"hydra:totalItems":1}`))
	}, 10)

	statuses, err := client.ListStatuses(context.Background(), url.Values{"context": {"display"}})
	require.NoError(t, err)
	require.Len(t, statuses, 1)
	assert.Equal(t, "open", statuses[0].RealStatus)

	rows, err := client.ListDisplayQueues(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Equal(t, 2, calls)
}

func TestClient_CreateDisplayQueuePayload(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"display":"/displays/7","queue":"/queues/55"}`, string(body))
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":300,"display":"/displays/7","queue":{"id":55,"queue":"Grill"}}`))
	}, 10)

	row, err := client.CreateDisplayQueue(context.Background(), LinkInput{Display: "/displays/7", Queue: "/queues/55"})
	require.NoError(t, err)
	m, ok := row.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, json.Number("300"), m["id"])
}

func TestClient_ErrorBodies(t *testing.T) {
	testCases := []struct {
		name        string
		status      int
		body        string
		expectedMsg string
		notFound    bool
	}{
		{name: "detail wins", status: 422, body: `{"detail":"queue: must not be blank","title":"Validation"}`, expectedMsg: "queue: must not be blank"},
		{name: "message", status: 400, body: `{"message":"Bad company"}`, expectedMsg: "Bad company"},
		{name: "hydra title", status: 500, body: `{"hydra:title":"An error occurred"}`, expectedMsg: "An error occurred"},
		{name: "not found without body", status: 404, body: ``, expectedMsg: "remote API returned 404: Not Found", notFound: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			}, 10)

			err := client.DeleteDisplayQueue(context.Background(), 9)
			require.Error(t, err)

			var remoteErr *Error
			require.True(t, errors.As(err, &remoteErr))
			assert.Equal(t, tc.status, remoteErr.StatusCode)
			assert.Equal(t, tc.notFound, IsNotFound(err))
			assert.Equal(t, tc.expectedMsg, Message(err, DefaultMessage))
		})
	}
}

func TestMessage_Fallbacks(t *testing.T) {
	assert.Equal(t, DefaultMessage, Message(nil, DefaultMessage))
	assert.Equal(t, "dial tcp: refused", Message(errors.New("dial tcp: refused"), DefaultMessage))
	assert.Equal(t, DefaultMessage, Message(errors.New("  "), DefaultMessage))
	wrapped := fmt.Errorf("link failed: %w", &Error{StatusCode: 409, Title: "Conflict"})
	assert.Equal(t, "Conflict", Message(wrapped, DefaultMessage))
}

func TestClient_SaveDisplayMethods(t *testing.T) {
	var seen []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Method+" "+r.URL.Path)
		w.Write([]byte(`{"id":12,"display":"Grill","displayType":"products","company":"/people/3"}`))
	}, 10)

	d, err := client.SaveDisplay(context.Background(), DisplayInput{Display: "Grill", DisplayType: "products", Company: "/people/3"})
	require.NoError(t, err)
	assert.Equal(t, "Grill", d.Display)

	_, err = client.SaveDisplay(context.Background(), DisplayInput{ID: 12, Display: "Grill", DisplayType: "products", Company: "/people/3"})
	require.NoError(t, err)

	assert.Equal(t, []string{"POST /displays", "PUT /displays/12"}, seen)
}

func TestClient_SetProductQueue(t *testing.T) {
	var bodies []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/products/4", r.URL.Path)
		b, _ := io.ReadAll(r.Body)
		bodies = append(bodies, string(b))
	}, 10)

	q := "/queues/55"
	require.NoError(t, client.SetProductQueue(context.Background(), 4, &q))
	require.NoError(t, client.SetProductQueue(context.Background(), 4, nil))
	require.Len(t, bodies, 2)
	assert.JSONEq(t, `{"queue":"/queues/55"}`, bodies[0])
	assert.JSONEq(t, `{"queue":null}`, bodies[1])
}
