package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAPI(t *testing.T) (*httprouter.Router, *store, *tokenIssuer) {
	t.Helper()

	cfg := &Config{port: 8080}
	st := testStore(t)
	issuer := newTokenIssuer("secret", "songquiz", time.Hour)

	mux := httprouter.New()
	mux.POST("/api/register", handleRegister(cfg, st))
	mux.POST("/api/login", handleLogin(cfg, st, issuer))
	mux.POST("/api/games", handleCreateGame(cfg, st, issuer))
	mux.GET("/api/games", handleListGames(cfg, st, issuer))
	mux.GET("/api/games/:id", handleGetGame(cfg, st, issuer))
	mux.DELETE("/api/games/:id", handleDeleteGame(cfg, st, issuer))

	return mux, st, issuer
}

func doJSON(t *testing.T, mux *httprouter.Router, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestRegisterLoginFlow(t *testing.T) {
	mux, _, _ := testAPI(t)

	rec := doJSON(t, mux, http.MethodPost, "/api/register", "", credentials{Username: "alice", Password: "hunter2hunter2"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, mux, http.MethodPost, "/api/register", "", credentials{Username: "alice", Password: "hunter2hunter2"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, mux, http.MethodPost, "/api/login", "", credentials{Username: "alice", Password: "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, mux, http.MethodPost, "/api/login", "", credentials{Username: "alice", Password: "hunter2hunter2"})
	require.Equal(t, http.StatusOK, rec.Code)

	var out map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.NotEmpty(t, out["token"])
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	mux, _, _ := testAPI(t)

	rec := doJSON(t, mux, http.MethodPost, "/api/register", "", credentials{Username: "alice", Password: "short"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGameCRUDRequiresAuth(t *testing.T) {
	mux, _, _ := testAPI(t)

	rec := doJSON(t, mux, http.MethodPost, "/api/games", "", GameDefinition{Title: "x"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, mux, http.MethodGet, "/api/games", "garbage-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGameCRUDFlow(t *testing.T) {
	mux, _, issuer := testAPI(t)

	alice, err := issuer.issue("alice")
	require.NoError(t, err)
	bob, err := issuer.issue("bob")
	require.NoError(t, err)

	def := GameDefinition{
		Title: "Nineties Hits",
		Songs: []Song{
			{Title: "One", CorrectAnswer: "Test Song", AudioLocator: "https://cdn.example/previews/1.mp3"},
		},
	}

	rec := doJSON(t, mux, http.MethodPost, "/api/games", alice, def)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created map[string]int64
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotZero(t, created["id"])

	rec = doJSON(t, mux, http.MethodGet, "/api/games/1", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got GameDefinition
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "alice", got.OwnerID)
	assert.Equal(t, def.Songs, got.Songs)

	// Definitions are owner-scoped.
	rec = doJSON(t, mux, http.MethodGet, "/api/games/1", bob, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, mux, http.MethodDelete, "/api/games/1", bob, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, mux, http.MethodDelete, "/api/games/1", alice, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, mux, http.MethodGet, "/api/games", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String())
}

func TestCreateGameValidatesSongs(t *testing.T) {
	mux, _, issuer := testAPI(t)

	token, err := issuer.issue("alice")
	require.NoError(t, err)

	rec := doJSON(t, mux, http.MethodPost, "/api/games", token, GameDefinition{Title: "Empty"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, mux, http.MethodPost, "/api/games", token, GameDefinition{
		Title: "Bad Song",
		Songs: []Song{{CorrectAnswer: "", AudioLocator: "x"}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
