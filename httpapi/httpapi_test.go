// (c) Copyright 2021 Hewlett Packard Enterprise Development LP

package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpe-storage/iscsid/collab/fake"
	"github.com/hpe-storage/iscsid/discovery"
	"github.com/hpe-storage/iscsid/model"
	"github.com/hpe-storage/iscsid/store/memstore"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	coord, err := discovery.Init(discovery.Config{
		Store:             memstore.New(),
		SessionManager:    fake.NewSessionManager(),
		SendTargetsClient: fake.NewSendTargetsClient(),
		IsnsClient:        fake.NewIsnsClient(),
	}, false)
	require.NoError(t, err)
	t.Cleanup(coord.Fini)
	srv := httptest.NewServer(NewRouter(coord))
	t.Cleanup(srv.Close)
	return srv
}

func TestEnableThenGetProps(t *testing.T) {
	srv := newTestServer(t)

	body, _ := json.Marshal(map[string]interface{}{"methods": model.Static})
	resp, err := http.Post(srv.URL+"/api/v1/discovery/enable", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/api/v1/discovery/props")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var out Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Empty(t, out.Err)
}

func TestGetPropsRedactsChapSecret(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/v1/discovery/props")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Data struct {
			Initiator model.Initiator `json:"initiator"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.NotEmpty(t, out.Data.Initiator.ChapSecret)
	assert.Equal(t, "**********", out.Data.Initiator.ChapSecret)
}

func TestParamOverrideRejectsUnknownKey(t *testing.T) {
	srv := newTestServer(t)

	body, _ := json.Marshal(model.ParamOverride{Key: "NotARealParam", Value: "1"})
	resp, err := http.Post(srv.URL+"/api/v1/discovery/targets/iqn.example/params", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
