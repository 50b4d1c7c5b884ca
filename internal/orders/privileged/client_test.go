package privileged_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medstock/medstock/internal/orders"
	"github.com/medstock/medstock/internal/orders/privileged"
)

func TestClientMapsFunctionStatuses(t *testing.T) {
	cases := []struct {
		code int
		want error
	}{
		{http.StatusBadRequest, orders.ErrValidation},
		{http.StatusUnauthorized, orders.ErrForbidden},
		{http.StatusForbidden, orders.ErrForbidden},
		{http.StatusNotFound, orders.ErrNotFound},
		{http.StatusConflict, orders.ErrIllegalTransition},
		{http.StatusServiceUnavailable, orders.ErrTransient},
		{http.StatusGatewayTimeout, orders.ErrTransient},
	}
	for _, tc := range cases {
		t.Run(http.StatusText(tc.code), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tc.code)
				_, _ = w.Write([]byte(`{"error":"nope"}`))
			}))
			defer srv.Close()

			client := privileged.NewClient(srv.URL, srv.Client())
			_, err := client.UpdateStatus(context.Background(), "tok", uuid.New(), orders.StatusApproved)
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.want)
			assert.Contains(t, err.Error(), "nope")
		})
	}
}

func TestClientSendsBearerAndBody(t *testing.T) {
	id := uuid.New()
	var gotAuth, gotPath string
	var gotBody privileged.UpdateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		require.NoError(t, jsonDecode(r, &gotBody))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"` + id.String() + `","status":"cancelled","request_date":"2024-05-01","items":[]}`))
	}))
	defer srv.Close()

	client := privileged.NewClient(srv.URL+"/functions/v1/", srv.Client())
	order, err := client.UpdateStatus(context.Background(), "tok-1", id, orders.StatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-1", gotAuth)
	assert.Equal(t, "/functions/v1"+privileged.Route, gotPath)
	assert.Equal(t, privileged.UpdateRequest{OrderID: id.String(), TargetStatus: "cancelled"}, gotBody)
	assert.Equal(t, id, order.ID)
	assert.Equal(t, orders.StatusCancelled, order.Status)
}

func TestClientNetworkFailureIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	client := privileged.NewClient(url, &http.Client{Timeout: time.Second})
	_, err := client.UpdateStatus(context.Background(), "tok", uuid.New(), orders.StatusApproved)
	assert.ErrorIs(t, err, orders.ErrTransient)

	_, err = client.UpdateStatus(context.Background(), "", uuid.New(), orders.StatusApproved)
	assert.ErrorIs(t, err, orders.ErrValidation)
}

func jsonDecode(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}
