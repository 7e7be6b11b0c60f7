package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MartinAltmayer/pokerserver-sub000/internal/auth"
	"github.com/MartinAltmayer/pokerserver-sub000/internal/config"
	"github.com/MartinAltmayer/pokerserver-sub000/internal/lobby"
	"github.com/MartinAltmayer/pokerserver-sub000/internal/store"
	"github.com/MartinAltmayer/pokerserver-sub000/poker"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	dir := t.TempDir()

	storeService, err := store.NewSQLiteService(filepath.Join(dir, "store.db"))
	require.NoError(t, err)
	t.Cleanup(func() { storeService.Close() })
	authService, err := auth.NewSQLiteService(filepath.Join(dir, "auth.db"))
	require.NoError(t, err)
	t.Cleanup(func() { authService.Close() })

	cfg := config.Config{
		FreeTables: 1,
		Seed:       42,
		Table: poker.TableConfig{
			MinPlayerCount: 2,
			MaxPlayerCount: 10,
			SmallBlind:     1,
			BigBlind:       2,
			StartBalance:   100,
		},
	}
	lby := lobby.New(store.Stores(storeService), cfg)
	require.NoError(t, lby.Setup(context.Background()))

	mux := http.NewServeMux()
	New(lby, authService).RegisterRoutes(mux)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func postJSON(t *testing.T, url string, payload any) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func registerPlayer(t *testing.T, server *httptest.Server, name string) string {
	t.Helper()
	resp := postJSON(t, server.URL+"/uuid", map[string]string{
		"player_name": name,
		"password":    "secret",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.NotEmpty(t, body["uuid"])
	return body["uuid"]
}

func TestRegisterLoginAndJoin(t *testing.T) {
	server := newTestServer(t)
	token := registerPlayer(t, server, "alice")

	resp := postJSON(t, server.URL+"/login", map[string]string{
		"player_name": "alice",
		"password":    "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = postJSON(t, server.URL+"/login", map[string]string{
		"player_name": "alice",
		"password":    "secret",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// The registration token was rotated by the login.
	url := fmt.Sprintf("%s/table/Table1/actions/join?uuid=%s", server.URL, token)
	resp = postJSON(t, url, map[string]int{"position": 1})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestJoinAndConflict(t *testing.T) {
	server := newTestServer(t)
	alice := registerPlayer(t, server, "alice")
	bob := registerPlayer(t, server, "bob")

	url := fmt.Sprintf("%s/table/Table1/actions/join?uuid=%s", server.URL, alice)
	resp := postJSON(t, url, map[string]int{"position": 1})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	url = fmt.Sprintf("%s/table/Table1/actions/join?uuid=%s", server.URL, bob)
	resp = postJSON(t, url, map[string]int{"position": 1})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = postJSON(t, server.URL+"/table/Table1/actions/join", map[string]int{"position": 2})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	url = fmt.Sprintf("%s/table/Table1/actions/launch?uuid=%s", server.URL, alice)
	resp = postJSON(t, url, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestTableViewHidesOtherPlayersCards(t *testing.T) {
	server := newTestServer(t)
	alice := registerPlayer(t, server, "alice")
	bob := registerPlayer(t, server, "bob")

	for token, position := range map[string]int{alice: 1, bob: 2} {
		url := fmt.Sprintf("%s/table/Table1/actions/join?uuid=%s", server.URL, token)
		resp := postJSON(t, url, map[string]int{"position": position})
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	resp, err := http.Get(fmt.Sprintf("%s/table/Table1?uuid=%s", server.URL, alice))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var view poker.TableView
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&view))
	require.Len(t, view.Players, 2)
	assert.False(t, view.CanJoin)
	for _, player := range view.Players {
		if player.Name == "alice" {
			assert.Len(t, player.Cards, 2)
		} else {
			assert.Empty(t, player.Cards)
		}
	}
}

func TestTablesAndStatistics(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Get(server.URL + "/tables")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var tables struct {
		Tables []poker.TableInfoView `json:"tables"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&tables))
	require.Len(t, tables.Tables, 1)
	assert.Equal(t, "Table1", tables.Tables[0].Name)

	resp, err = http.Get(server.URL + "/statistics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(server.URL + "/table/Nowhere")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
