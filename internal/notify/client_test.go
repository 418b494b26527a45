package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dorm-electricity/internal/model"
)

func TestSendDispatchesOnKind(t *testing.T) {
	type call struct {
		path    string
		payload map[string]any
	}
	var calls []call

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		calls = append(calls, call{path: r.URL.Path, payload: payload})
	}))
	defer srv.Close()

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	c := NewClient(srv.URL, log)

	c.Send(context.Background(), model.UserIdentity("101"), "hello user")
	c.Send(context.Background(), model.GroupIdentity("202"), "hello group")

	require.Len(t, calls, 2)
	assert.Equal(t, "/send_private_msg", calls[0].path)
	assert.Equal(t, "101", calls[0].payload["user_id"])
	assert.Equal(t, "hello user", calls[0].payload["message"])
	assert.Equal(t, "/send_group_msg", calls[1].path)
	assert.Equal(t, "202", calls[1].payload["group_id"])
}

func TestSendToUserGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	c := NewClient(srv.URL, log)

	err := c.SendToUser(context.Background(), "101", "hello")
	assert.Error(t, err)
}
