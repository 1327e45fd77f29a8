package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientStartAndGetJob(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))

		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/sync/jobs":
			w.WriteHeader(http.StatusAccepted)
			_ = json.NewEncoder(w).Encode(Job{ID: "ab12cd34", Status: "pending"})
		case r.Method == http.MethodGet && r.URL.Path == "/sync/jobs/ab12cd34":
			_ = json.NewEncoder(w).Encode(Job{ID: "ab12cd34", Status: "completed", Succeeded: 3})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := New(srv.URL, "tok-1")

	job, err := c.StartSync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ab12cd34", job.ID)
	assert.False(t, job.Done())

	job, err = c.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.True(t, job.Done())
	assert.Equal(t, 3, job.Succeeded)
}

func TestClientServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "insufficient role"})
	}))
	defer srv.Close()

	c := New(srv.URL, "")

	_, err := c.StartSync(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insufficient role")
}

func TestClientWatchJob(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/ws/sync/ab12cd34", r.URL.Path)

		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		updates := []Job{
			{ID: "ab12cd34", Status: "running", Progress: 1, Total: 2},
			{ID: "ab12cd34", Status: "running", Progress: 2, Total: 2},
			{ID: "ab12cd34", Status: "completed", Progress: 2, Total: 2, Succeeded: 2},
		}
		for _, u := range updates {
			require.NoError(t, conn.WriteJSON(u))
		}
	}))
	defer srv.Close()

	c := New(srv.URL, "tok-1")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var seen []Job
	final, err := c.WatchJob(ctx, "ab12cd34", func(j Job) error {
		seen = append(seen, j)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "completed", final.Status)
	assert.Equal(t, 2, final.Succeeded)
	assert.Len(t, seen, 3)
}
