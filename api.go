package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

// The account and game-definition CRUD surface. Session play never
// goes through here; this exists so hosts can own definitions for the
// coordinator to consume.

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeAPIError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": reasonCode(err)})
}

// requireUser verifies the bearer token on an API request and returns
// the authenticated username.
func requireUser(issuer *tokenIssuer, w http.ResponseWriter, r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	token := strings.TrimPrefix(header, "Bearer ")
	if token == "" || token == header {
		writeAPIError(w, http.StatusUnauthorized, errUnauthorized)
		return "", false
	}

	username, err := issuer.verify(token)
	if err != nil {
		writeAPIError(w, http.StatusUnauthorized, errUnauthorized)
		return "", false
	}
	return username, true
}

func handleRegister(cfg *Config, st *store) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		securityHeaders(cfg, w)

		var creds credentials
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
			writeAPIError(w, http.StatusBadRequest, errInvalidState)
			return
		}

		creds.Username = strings.TrimSpace(creds.Username)
		if creds.Username == "" || len(creds.Password) < 8 {
			writeAPIError(w, http.StatusBadRequest, errInvalidState)
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(creds.Password), bcrypt.DefaultCost)
		if err != nil {
			writeAPIError(w, http.StatusInternalServerError, err)
			return
		}

		if err := st.CreateUser(r.Context(), creds.Username, hash); err != nil {
			if errors.Is(err, errUsernameTaken) {
				writeAPIError(w, http.StatusConflict, err)
				return
			}
			log.Error().Err(err).Msg("register failed")
			writeAPIError(w, http.StatusInternalServerError, err)
			return
		}

		log.Info().Str("username", creds.Username).Msg("account registered")
		writeJSON(w, http.StatusCreated, map[string]string{"username": creds.Username})
	}
}

func handleLogin(cfg *Config, st *store, issuer *tokenIssuer) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		securityHeaders(cfg, w)

		var creds credentials
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
			writeAPIError(w, http.StatusBadRequest, errInvalidState)
			return
		}

		hash, err := st.PasswordHash(r.Context(), creds.Username)
		if err != nil {
			writeAPIError(w, http.StatusUnauthorized, errUnauthorized)
			return
		}
		if bcrypt.CompareHashAndPassword(hash, []byte(creds.Password)) != nil {
			writeAPIError(w, http.StatusUnauthorized, errUnauthorized)
			return
		}

		token, err := issuer.issue(creds.Username)
		if err != nil {
			log.Error().Err(err).Msg("token issue failed")
			writeAPIError(w, http.StatusInternalServerError, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"token": token})
	}
}

func handleCreateGame(cfg *Config, st *store, issuer *tokenIssuer) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		securityHeaders(cfg, w)

		username, ok := requireUser(issuer, w, r)
		if !ok {
			return
		}

		var def GameDefinition
		if err := json.NewDecoder(r.Body).Decode(&def); err != nil {
			writeAPIError(w, http.StatusBadRequest, errInvalidState)
			return
		}

		def.Title = strings.TrimSpace(def.Title)
		if def.Title == "" || len(def.Songs) == 0 {
			writeAPIError(w, http.StatusBadRequest, errInvalidState)
			return
		}
		for _, song := range def.Songs {
			if strings.TrimSpace(song.CorrectAnswer) == "" || song.AudioLocator == "" {
				writeAPIError(w, http.StatusBadRequest, errInvalidState)
				return
			}
		}

		def.OwnerID = username
		id, err := st.CreateDefinition(r.Context(), def)
		if err != nil {
			log.Error().Err(err).Msg("create definition failed")
			writeAPIError(w, http.StatusInternalServerError, err)
			return
		}

		log.Info().Int64("game", id).Str("owner", username).Int("songs", len(def.Songs)).Msg("definition created")
		writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
	}
}

func handleListGames(cfg *Config, st *store, issuer *tokenIssuer) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		securityHeaders(cfg, w)

		username, ok := requireUser(issuer, w, r)
		if !ok {
			return
		}

		defs, err := st.DefinitionsByOwner(r.Context(), username)
		if err != nil {
			log.Error().Err(err).Msg("list definitions failed")
			writeAPIError(w, http.StatusInternalServerError, err)
			return
		}
		if defs == nil {
			defs = []GameDefinition{}
		}

		writeJSON(w, http.StatusOK, defs)
	}
}

func handleGetGame(cfg *Config, st *store, issuer *tokenIssuer) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		securityHeaders(cfg, w)

		username, ok := requireUser(issuer, w, r)
		if !ok {
			return
		}

		id, err := strconv.ParseInt(p.ByName("id"), 10, 64)
		if err != nil {
			writeAPIError(w, http.StatusBadRequest, errInvalidState)
			return
		}

		def, err := st.GameDefinition(r.Context(), id)
		if err != nil || def.OwnerID != username {
			writeAPIError(w, http.StatusNotFound, errGameNotFound)
			return
		}

		writeJSON(w, http.StatusOK, def)
	}
}

func handleDeleteGame(cfg *Config, st *store, issuer *tokenIssuer) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		securityHeaders(cfg, w)

		username, ok := requireUser(issuer, w, r)
		if !ok {
			return
		}

		id, err := strconv.ParseInt(p.ByName("id"), 10, 64)
		if err != nil {
			writeAPIError(w, http.StatusBadRequest, errInvalidState)
			return
		}

		if err := st.DeleteDefinition(r.Context(), id, username); err != nil {
			writeAPIError(w, http.StatusNotFound, errGameNotFound)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
