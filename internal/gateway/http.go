// Package gateway exposes the lobby over HTTP and pushes table views to
// WebSocket subscribers.
package gateway

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/MartinAltmayer/pokerserver-sub000/internal/auth"
	"github.com/MartinAltmayer/pokerserver-sub000/internal/lobby"
	"github.com/MartinAltmayer/pokerserver-sub000/poker"
)

type Gateway struct {
	lobby *lobby.Lobby
	auth  auth.Service
	hub   *hub
}

func New(lby *lobby.Lobby, authService auth.Service) *Gateway {
	g := &Gateway{
		lobby: lby,
		auth:  authService,
	}
	g.hub = newHub(lby, authService.Resolve)
	lby.SetNotify(g.hub.notifyTable)
	return g
}

func (g *Gateway) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /uuid", g.handleRegister)
	mux.HandleFunc("POST /login", g.handleLogin)
	mux.HandleFunc("GET /tables", g.handleTables)
	mux.HandleFunc("GET /table/{name}", g.handleTable)
	mux.HandleFunc("POST /table/{name}/actions/{action}", g.handleAction)
	mux.HandleFunc("GET /statistics", g.handleStatistics)
	mux.HandleFunc("GET /ws", g.hub.handleWebSocket)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
}

type credentialsRequest struct {
	PlayerName string `json:"player_name"`
	Password   string `json:"password"`
}

func (g *Gateway) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	token, err := g.auth.Register(req.PlayerName, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrNameTaken),
			errors.Is(err, auth.ErrInvalidName),
			errors.Is(err, auth.ErrInvalidPassword):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeInternalError(w, err)
		}
		return
	}
	writeJSON(w, map[string]string{"uuid": token})
}

func (g *Gateway) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	token, err := g.auth.Login(req.PlayerName, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		writeInternalError(w, err)
		return
	}
	writeJSON(w, map[string]string{"uuid": token})
}

func (g *Gateway) handleTables(w http.ResponseWriter, r *http.Request) {
	tables, err := g.lobby.Tables(r.Context())
	if err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, map[string]any{"tables": tables})
}

func (g *Gateway) handleTable(w http.ResponseWriter, r *http.Request) {
	viewerName, _ := g.playerName(r)
	view, err := g.lobby.TableView(r.Context(), r.PathValue("name"), viewerName)
	if err != nil {
		writeMatchError(w, err)
		return
	}
	writeJSON(w, view)
}

func (g *Gateway) handleAction(w http.ResponseWriter, r *http.Request) {
	playerName, ok := g.playerName(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unknown or missing uuid")
		return
	}
	tableName := r.PathValue("name")

	var body struct {
		Position int `json:"position"`
		Amount   int `json:"amount"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	var err error
	switch r.PathValue("action") {
	case "join":
		err = g.lobby.Join(r.Context(), tableName, playerName, body.Position)
	case "fold":
		err = g.lobby.Fold(r.Context(), tableName, playerName)
	case "call":
		err = g.lobby.Call(r.Context(), tableName, playerName)
	case "check":
		err = g.lobby.Check(r.Context(), tableName, playerName)
	case "raise":
		err = g.lobby.RaiseBet(r.Context(), tableName, playerName, body.Amount)
	default:
		writeError(w, http.StatusNotFound, "unknown action")
		return
	}
	if err != nil {
		writeMatchError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (g *Gateway) handleStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := g.lobby.Statistics(r.Context())
	if err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, map[string]any{"statistics": stats})
}

// playerName resolves the requesting player from the uuid query
// parameter or a bearer token.
func (g *Gateway) playerName(r *http.Request) (string, bool) {
	token := strings.TrimSpace(r.URL.Query().Get("uuid"))
	if token == "" {
		header := r.Header.Get("Authorization")
		if strings.HasPrefix(header, "Bearer ") {
			token = strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		}
	}
	if token == "" {
		return "", false
	}
	return g.auth.Resolve(token)
}

func writeMatchError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, poker.ErrPositionOccupied):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, poker.ErrTableNotFound), errors.Is(err, poker.ErrPlayerNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, poker.ErrTableClosed),
		errors.Is(err, poker.ErrNotYourTurn),
		errors.Is(err, poker.ErrInvalidTurn),
		errors.Is(err, poker.ErrInvalidBet),
		errors.Is(err, poker.ErrInsufficientBalance),
		errors.Is(err, poker.ErrAlreadyJoined),
		errors.Is(err, poker.ErrInvalidPosition):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeInternalError(w, err)
	}
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("[Gateway] write response failed: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func writeInternalError(w http.ResponseWriter, err error) {
	log.Printf("[Gateway] internal error: %v", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}
