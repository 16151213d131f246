package server

import (
	"encoding/json"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"

	"github.com/tankarena/arena/internal/audit"
	"github.com/tankarena/arena/internal/leaderboard"
	"github.com/tankarena/arena/internal/room"
)

// ErrorResponse is returned for all error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

type HealthResponse map[string]struct {
	Status string `json:"status"`
}

type usernamePath struct {
	Username string `path:"username"`
}

type roomPath struct {
	Room string `path:"room"`
}

type roomSocketPath struct {
	Room   string `path:"room"`
	Player string `path:"player"`
}

type formatPath struct {
	Format string `path:"format" enum:"csv,json"`
}

type eventsQuery struct {
	Limit int `query:"limit" minimum:"1" maximum:"200"`
}

type dashboardQuery struct {
	Range string `query:"range" enum:"all,today,week"`
}

type auditsQuery struct {
	Skip  int `query:"skip" minimum:"0"`
	Limit int `query:"limit" minimum:"1" maximum:"1000"`
}

type submitScoreInput struct {
	usernamePath
	SubmitScoreRequest
}

type operation struct {
	method      string
	path        string
	summary     string
	description string
	req         any
	resps       []response
}

type response struct {
	body        any
	status      int
	contentType string
}

func respOK(body any) response { return response{body: body, status: http.StatusOK} }

func respCreated(body any) response { return response{body: body, status: http.StatusCreated} }

func respError(code int) response { return response{body: ErrorResponse{}, status: code} }

func respRaw(contentType string, code int) response {
	return response{status: code, contentType: contentType}
}

func apiOperations() []operation {
	return []operation{
		{http.MethodGet, "/healthz", "Health check", "Returns the health status of backend dependencies.",
			nil, []response{respOK(HealthResponse{}), {body: HealthResponse{}, status: http.StatusServiceUnavailable}}},
		{http.MethodGet, "/ws/game/{room}/{player}", "Join a room",
			"Upgrades to a WebSocket. The server replays every other player's last state, then relays movement and system messages. Send PlayerState JSON frames.",
			roomSocketPath{}, []response{respRaw("text/plain", http.StatusSwitchingProtocols)}},
		{http.MethodGet, "/api/rooms", "Room statistics", "Counts of live rooms and connections.",
			nil, []response{respOK(room.Stats{})}},
		{http.MethodGet, "/api/rooms/{room}", "Room snapshot", "Members and cached player states of one room.",
			roomPath{}, []response{respOK(room.Snapshot{}), respError(http.StatusNotFound)}},
		{http.MethodPost, "/api/users/register", "Register", "Creates a player account.",
			CredentialsRequest{}, []response{respCreated(UserResponse{}), respError(http.StatusBadRequest), respError(http.StatusConflict)}},
		{http.MethodPost, "/api/users/login", "Login", "Verifies a player's credentials.",
			LoginRequest{}, []response{respOK(LoginResponse{}), respError(http.StatusBadRequest), respError(http.StatusUnauthorized)}},
		{http.MethodGet, "/api/users/{username}", "Player profile", "Best score, total matches and the five most recent matches.",
			usernamePath{}, []response{respOK(ProfileResponse{}), respError(http.StatusNotFound)}},
		{http.MethodPost, "/api/users/{username}/start-game", "Start a match",
			"Issues a match-session token valid for submitting one player's scores until it expires.",
			usernamePath{}, []response{respOK(StartGameResponse{}), respError(http.StatusNotFound)}},
		{http.MethodPost, "/api/users/{username}/submit-score", "Submit a match result",
			"Validates the session token, computes the match score and reconciles the personal best.",
			submitScoreInput{}, []response{respOK(SubmitScoreResponse{}), respError(http.StatusBadRequest), respError(http.StatusForbidden), respError(http.StatusNotFound)}},
		{http.MethodGet, "/api/ranking/top", "Top matches", "The ten highest single-match scores.",
			nil, []response{respOK([]ScoreItem{})}},
		{http.MethodGet, "/api/ranking/players", "Top players", "The ten highest personal bests.",
			nil, []response{respOK([]leaderboard.Entry{})}},
		{http.MethodPost, "/api/events", "Record telemetry", "Stores a gameplay event. Requires a live match-session token.",
			CreateEventRequest{}, []response{respCreated(CreateEventResponse{}), respError(http.StatusBadRequest), respError(http.StatusForbidden)}},
		{http.MethodGet, "/api/events/recent", "Recent telemetry", "Most recent gameplay events.",
			eventsQuery{}, []response{respOK([]Event{}), respError(http.StatusBadRequest)}},
		{http.MethodGet, "/api/dashboard", "Dashboard", "Aggregate statistics for a time range.",
			dashboardQuery{}, []response{respOK(DashboardResponse{}), respError(http.StatusBadRequest)}},
		{http.MethodGet, "/api/dashboard/user/{username}", "Player statistics", "Totals and match history for one player.",
			usernamePath{}, []response{respOK(UserStatsResponse{}), respError(http.StatusNotFound)}},
		{http.MethodGet, "/api/audits", "List audits", "Audit trail, newest first.",
			auditsQuery{}, []response{respOK([]audit.Entry{}), respError(http.StatusBadRequest)}},
		{http.MethodPost, "/api/audits", "Create audit", "Writes an audit entry directly.",
			CreateAuditRequest{}, []response{respCreated(audit.Entry{}), respError(http.StatusBadRequest)}},
		{http.MethodGet, "/api/audits/export/{format}", "Export audits", "Downloads the full audit trail as CSV or JSON.",
			formatPath{}, []response{respRaw("text/csv", http.StatusOK), respError(http.StatusBadRequest)}},
		{http.MethodPost, "/api/audits/import/{format}", "Import audits", "Appends audit entries from a CSV or JSON request body.",
			formatPath{}, []response{respOK(ImportAuditsResponse{}), respError(http.StatusBadRequest), respError(http.StatusRequestEntityTooLarge)}},
	}
}

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "Tank Arena API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Realtime rooms, match sessions and scoring for Tank Arena.")

	for _, op := range apiOperations() {
		oc, err := r.NewOperationContext(op.method, op.path)
		if err != nil {
			continue
		}
		oc.SetSummary(op.summary)
		oc.SetDescription(op.description)
		if op.req != nil {
			oc.AddReqStructure(op.req)
		}
		for _, resp := range op.resps {
			opts := []openapi.ContentOption{openapi.WithHTTPStatus(resp.status)}
			if resp.contentType != "" {
				opts = append(opts, openapi.WithContentType(resp.contentType))
			}
			oc.AddRespStructure(resp.body, opts...)
		}
		_ = r.AddOperation(oc)
	}

	return r.Spec
}

func handleOpenAPI() http.HandlerFunc {
	spec := newOpenAPISpec()
	data, _ := json.MarshalIndent(spec, "", "  ")

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
