// Copyright 2025 DataQE Suite Authors
// SPDX-License-Identifier: Apache-2.0

package dataqe

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"time"
)

// TokenTTL is how long issued bearer tokens stay valid.
const TokenTTL = 12 * time.Hour

// HTTPHandlers provides the JSON API over the service.
type HTTPHandlers struct {
	service  *Service
	executor *Executor
	sched    *Scheduler
	jwtAuth  *JWTAuth
	logger   *slog.Logger
}

// NewHTTPHandlers creates a new instance of API handlers. sched may be nil
// when no scheduler is running; schedule writes then only persist.
func NewHTTPHandlers(service *Service, executor *Executor, sched *Scheduler, jwtAuth *JWTAuth, logger *slog.Logger) *HTTPHandlers {
	return &HTTPHandlers{
		service:  service,
		executor: executor,
		sched:    sched,
		jwtAuth:  jwtAuth,
		logger:   logger,
	}
}

// Routes registers every endpoint on mux. Authenticated routes run behind
// the JWT middleware; admin routes additionally behind AdminOnly.
func (h *HTTPHandlers) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/login", h.HandleLogin)

	authed := func(fn http.HandlerFunc) http.Handler {
		return h.jwtAuth.Middleware(fn)
	}
	admin := func(fn http.HandlerFunc) http.Handler {
		return h.jwtAuth.Middleware(AdminOnly(fn))
	}

	mux.Handle("GET /api/me", authed(h.HandleMe))

	mux.Handle("GET /api/teams", authed(h.HandleListTeams))
	mux.Handle("GET /api/teams/{id}", authed(h.HandleGetTeam))
	mux.Handle("POST /api/teams", admin(h.HandleCreateTeam))
	mux.Handle("PUT /api/teams/{id}", admin(h.HandleUpdateTeam))
	mux.Handle("DELETE /api/teams/{id}", admin(h.HandleDeleteTeam))

	mux.Handle("GET /api/users", admin(h.HandleListUsers))
	mux.Handle("POST /api/users", admin(h.HandleCreateUser))
	mux.Handle("PUT /api/users/{id}", admin(h.HandleUpdateUser))
	mux.Handle("DELETE /api/users/{id}", admin(h.HandleDeleteUser))

	mux.Handle("GET /api/projects", authed(h.HandleListProjects))
	mux.Handle("POST /api/projects", admin(h.HandleCreateProject))
	mux.Handle("GET /api/projects/{id}", authed(h.HandleGetProject))
	mux.Handle("PUT /api/projects/{id}", admin(h.HandleUpdateProject))
	mux.Handle("DELETE /api/projects/{id}", admin(h.HandleDeleteProject))

	mux.Handle("GET /api/projects/{id}/members", authed(h.HandleListProjectMembers))
	mux.Handle("POST /api/projects/{id}/members", admin(h.HandleAddProjectMember))
	mux.Handle("DELETE /api/projects/{id}/members/{uid}", admin(h.HandleRemoveProjectMember))

	mux.Handle("GET /api/projects/{id}/connections", authed(h.HandleListConnections))
	mux.Handle("POST /api/connections", authed(h.HandleCreateConnection))
	mux.Handle("GET /api/connections/{id}", authed(h.HandleGetConnection))
	mux.Handle("PUT /api/connections/{id}", authed(h.HandleUpdateConnection))
	mux.Handle("DELETE /api/connections/{id}", authed(h.HandleDeleteConnection))

	mux.Handle("GET /api/projects/{id}/testcases", authed(h.HandleListTestCases))
	mux.Handle("POST /api/testcases", authed(h.HandleCreateTestCase))
	mux.Handle("GET /api/testcases/{id}", authed(h.HandleGetTestCase))
	mux.Handle("PUT /api/testcases/{id}", authed(h.HandleUpdateTestCase))
	mux.Handle("DELETE /api/testcases/{id}", authed(h.HandleDeleteTestCase))
	mux.Handle("POST /api/testcases/{id}/files", authed(h.HandleUploadTestCaseFile))
	mux.Handle("GET /api/testcases/{id}/files/{name}", authed(h.HandleDownloadTestCaseFile))
	mux.Handle("POST /api/testcases/{id}/run", authed(h.HandleRunTestCase))
	mux.Handle("POST /api/execute/{id}", authed(h.HandleRunTestCase))

	mux.Handle("GET /api/executions", authed(h.HandleListExecutions))
	mux.Handle("GET /api/executions/{id}", authed(h.HandleGetExecution))
	mux.Handle("GET /api/executions/{id}/mismatches", authed(h.HandleListMismatches))
	mux.Handle("GET /api/executions/{id}/report", authed(h.HandleDownloadReport))
	mux.Handle("GET /api/dashboard", authed(h.HandleDashboard))

	mux.Handle("GET /api/testcases/{id}/schedules", authed(h.HandleListSchedules))
	mux.Handle("POST /api/schedules", authed(h.HandleCreateSchedule))
	mux.Handle("PUT /api/schedules/{id}", authed(h.HandleUpdateSchedule))
	mux.Handle("DELETE /api/schedules/{id}", authed(h.HandleDeleteSchedule))
}

// HandleLogin verifies credentials and issues a bearer token.
func (h *HTTPHandlers) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Failed to parse login request")
		return
	}
	user, err := h.service.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		h.writeError(w, http.StatusUnauthorized, "authentication_failed", "Invalid username or password")
		return
	}
	token, err := h.jwtAuth.GenerateToken(user, TokenTTL)
	if err != nil {
		h.logger.Error("Failed to generate token", "error", err, "username", req.Username)
		h.writeError(w, http.StatusInternalServerError, "token_error", "Failed to generate token")
		return
	}
	h.writeJSON(w, LoginResponse{Token: token, User: userResponse(user)})
}

// HandleMe returns the authenticated user's profile.
func (h *HTTPHandlers) HandleMe(w http.ResponseWriter, r *http.Request) {
	scope, ok := ScopeFromContext(r)
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "authentication_failed", "Missing auth context")
		return
	}
	user, err := h.service.GetUser(r.Context(), scope.UserID)
	if err != nil {
		h.writeServiceError(w, err, "Failed to load profile")
		return
	}
	h.writeJSON(w, userResponse(user))
}

// --- Teams ---

func (h *HTTPHandlers) HandleListTeams(w http.ResponseWriter, r *http.Request) {
	teams, err := h.service.ListTeams(r.Context())
	if err != nil {
		h.writeServiceError(w, err, "Failed to list teams")
		return
	}
	out := make([]TeamResponse, 0, len(teams))
	for i := range teams {
		out = append(out, teamResponse(&teams[i]))
	}
	h.writeJSON(w, out)
}

func (h *HTTPHandlers) HandleGetTeam(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	team, err := h.service.GetTeam(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err, "Failed to load team")
		return
	}
	h.writeJSON(w, teamResponse(team))
}

func (h *HTTPHandlers) HandleCreateTeam(w http.ResponseWriter, r *http.Request) {
	var req TeamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Failed to parse team request")
		return
	}
	team, err := h.service.CreateTeam(r.Context(), &req)
	if err != nil {
		h.writeServiceError(w, err, "Failed to create team")
		return
	}
	h.writeJSONStatus(w, http.StatusCreated, teamResponse(team))
}

func (h *HTTPHandlers) HandleUpdateTeam(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req TeamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Failed to parse team request")
		return
	}
	team, err := h.service.UpdateTeam(r.Context(), id, &req)
	if err != nil {
		h.writeServiceError(w, err, "Failed to update team")
		return
	}
	h.writeJSON(w, teamResponse(team))
}

func (h *HTTPHandlers) HandleDeleteTeam(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteTeam(r.Context(), id); err != nil {
		h.writeServiceError(w, err, "Failed to delete team")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Users ---

func (h *HTTPHandlers) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		h.writeServiceError(w, err, "Failed to list users")
		return
	}
	out := make([]UserResponse, 0, len(users))
	for i := range users {
		out = append(out, userResponse(&users[i]))
	}
	h.writeJSON(w, out)
}

func (h *HTTPHandlers) HandleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req UserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Failed to parse user request")
		return
	}
	user, err := h.service.CreateUser(r.Context(), &req)
	if err != nil {
		h.writeServiceError(w, err, "Failed to create user")
		return
	}
	h.writeJSONStatus(w, http.StatusCreated, userResponse(user))
}

func (h *HTTPHandlers) HandleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req UserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Failed to parse user request")
		return
	}
	user, err := h.service.UpdateUser(r.Context(), id, &req)
	if err != nil {
		h.writeServiceError(w, err, "Failed to update user")
		return
	}
	h.writeJSON(w, userResponse(user))
}

func (h *HTTPHandlers) HandleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteUser(r.Context(), id); err != nil {
		h.writeServiceError(w, err, "Failed to delete user")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Projects ---

func (h *HTTPHandlers) HandleListProjects(w http.ResponseWriter, r *http.Request) {
	scope, ok := ScopeFromContext(r)
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "authentication_failed", "Missing auth context")
		return
	}
	projects, err := h.service.ListProjects(r.Context(), scope)
	if err != nil {
		h.writeServiceError(w, err, "Failed to list projects")
		return
	}
	out := make([]ProjectResponse, 0, len(projects))
	for i := range projects {
		out = append(out, projectResponse(&projects[i]))
	}
	h.writeJSON(w, out)
}

func (h *HTTPHandlers) HandleCreateProject(w http.ResponseWriter, r *http.Request) {
	var req ProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Failed to parse project request")
		return
	}
	project, err := h.service.CreateProject(r.Context(), &req)
	if err != nil {
		h.writeServiceError(w, err, "Failed to create project")
		return
	}
	h.writeJSONStatus(w, http.StatusCreated, projectResponse(project))
}

func (h *HTTPHandlers) HandleGetProject(w http.ResponseWriter, r *http.Request) {
	scope, id, ok := h.scopeAndID(w, r)
	if !ok {
		return
	}
	project, err := h.service.authorizeProject(r.Context(), scope, id)
	if err != nil {
		h.writeServiceError(w, err, "Failed to load project")
		return
	}
	h.writeJSON(w, projectResponse(project))
}

func (h *HTTPHandlers) HandleUpdateProject(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req ProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Failed to parse project request")
		return
	}
	project, err := h.service.UpdateProject(r.Context(), id, &req)
	if err != nil {
		h.writeServiceError(w, err, "Failed to update project")
		return
	}
	h.writeJSON(w, projectResponse(project))
}

func (h *HTTPHandlers) HandleDeleteProject(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteProject(r.Context(), id); err != nil {
		h.writeServiceError(w, err, "Failed to delete project")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleListProjectMembers returns the users on the project's owning team.
func (h *HTTPHandlers) HandleListProjectMembers(w http.ResponseWriter, r *http.Request) {
	scope, id, ok := h.scopeAndID(w, r)
	if !ok {
		return
	}
	if _, err := h.service.authorizeProject(r.Context(), scope, id); err != nil {
		h.writeServiceError(w, err, "Failed to load project")
		return
	}
	users, err := h.service.ListProjectMembers(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err, "Failed to list project members")
		return
	}
	out := make([]UserResponse, 0, len(users))
	for i := range users {
		out = append(out, userResponse(&users[i]))
	}
	h.writeJSON(w, out)
}

// HandleAddProjectMember puts a user on the project's owning team.
func (h *HTTPHandlers) HandleAddProjectMember(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req ProjectMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Failed to parse member request")
		return
	}
	if req.UserID <= 0 {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "user_id is required")
		return
	}
	user, err := h.service.AddProjectMember(r.Context(), id, req.UserID)
	if err != nil {
		h.writeServiceError(w, err, "Failed to add project member")
		return
	}
	h.writeJSONStatus(w, http.StatusCreated, userResponse(user))
}

// HandleRemoveProjectMember takes a user off the project's owning team.
func (h *HTTPHandlers) HandleRemoveProjectMember(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	uid, err := strconv.ParseInt(r.PathValue("uid"), 10, 64)
	if err != nil || uid <= 0 {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid user id in path")
		return
	}
	if err := h.service.RemoveProjectMember(r.Context(), id, uid); err != nil {
		h.writeServiceError(w, err, "Failed to remove project member")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Connections ---

func (h *HTTPHandlers) HandleListConnections(w http.ResponseWriter, r *http.Request) {
	scope, projectID, ok := h.scopeAndID(w, r)
	if !ok {
		return
	}
	if _, err := h.service.authorizeProject(r.Context(), scope, projectID); err != nil {
		h.writeServiceError(w, err, "Failed to load project")
		return
	}
	conns, err := h.service.ListConnections(r.Context(), projectID)
	if err != nil {
		h.writeServiceError(w, err, "Failed to list connections")
		return
	}
	out := make([]ConnectionResponse, 0, len(conns))
	for i := range conns {
		out = append(out, connectionResponse(&conns[i]))
	}
	h.writeJSON(w, out)
}

func (h *HTTPHandlers) HandleCreateConnection(w http.ResponseWriter, r *http.Request) {
	scope, ok := ScopeFromContext(r)
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "authentication_failed", "Missing auth context")
		return
	}
	var req ConnectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Failed to parse connection request")
		return
	}
	if _, err := h.service.authorizeProject(r.Context(), scope, req.ProjectID); err != nil {
		h.writeServiceError(w, err, "Failed to load project")
		return
	}
	conn, err := h.service.CreateConnection(r.Context(), &req)
	if err != nil {
		h.writeServiceError(w, err, "Failed to create connection")
		return
	}
	h.writeJSONStatus(w, http.StatusCreated, connectionResponse(conn))
}

func (h *HTTPHandlers) HandleGetConnection(w http.ResponseWriter, r *http.Request) {
	scope, id, ok := h.scopeAndID(w, r)
	if !ok {
		return
	}
	conn, err := h.authorizeConnection(r, scope, id)
	if err != nil {
		h.writeServiceError(w, err, "Failed to load connection")
		return
	}
	h.writeJSON(w, connectionResponse(conn))
}

func (h *HTTPHandlers) HandleUpdateConnection(w http.ResponseWriter, r *http.Request) {
	scope, id, ok := h.scopeAndID(w, r)
	if !ok {
		return
	}
	if _, err := h.authorizeConnection(r, scope, id); err != nil {
		h.writeServiceError(w, err, "Failed to load connection")
		return
	}
	var req ConnectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Failed to parse connection request")
		return
	}
	conn, err := h.service.UpdateConnection(r.Context(), id, &req)
	if err != nil {
		h.writeServiceError(w, err, "Failed to update connection")
		return
	}
	h.writeJSON(w, connectionResponse(conn))
}

func (h *HTTPHandlers) HandleDeleteConnection(w http.ResponseWriter, r *http.Request) {
	scope, id, ok := h.scopeAndID(w, r)
	if !ok {
		return
	}
	if _, err := h.authorizeConnection(r, scope, id); err != nil {
		h.writeServiceError(w, err, "Failed to load connection")
		return
	}
	if err := h.service.DeleteConnection(r.Context(), id); err != nil {
		h.writeServiceError(w, err, "Failed to delete connection")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Test cases ---

func (h *HTTPHandlers) HandleListTestCases(w http.ResponseWriter, r *http.Request) {
	scope, projectID, ok := h.scopeAndID(w, r)
	if !ok {
		return
	}
	if _, err := h.service.authorizeProject(r.Context(), scope, projectID); err != nil {
		h.writeServiceError(w, err, "Failed to load project")
		return
	}
	cases, err := h.service.ListTestCases(r.Context(), projectID)
	if err != nil {
		h.writeServiceError(w, err, "Failed to list test cases")
		return
	}
	out := make([]TestCaseResponse, 0, len(cases))
	for i := range cases {
		out = append(out, testCaseResponse(&cases[i]))
	}
	h.writeJSON(w, out)
}

func (h *HTTPHandlers) HandleCreateTestCase(w http.ResponseWriter, r *http.Request) {
	scope, ok := ScopeFromContext(r)
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "authentication_failed", "Missing auth context")
		return
	}
	var req TestCaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Failed to parse test case request")
		return
	}
	if _, err := h.service.authorizeProject(r.Context(), scope, req.ProjectID); err != nil {
		h.writeServiceError(w, err, "Failed to load project")
		return
	}
	tc, err := h.service.CreateTestCase(r.Context(), &req)
	if err != nil {
		h.writeServiceError(w, err, "Failed to create test case")
		return
	}
	h.writeJSONStatus(w, http.StatusCreated, testCaseResponse(tc))
}

func (h *HTTPHandlers) HandleGetTestCase(w http.ResponseWriter, r *http.Request) {
	scope, id, ok := h.scopeAndID(w, r)
	if !ok {
		return
	}
	tc, _, err := h.service.authorizeTestCase(r.Context(), scope, id)
	if err != nil {
		h.writeServiceError(w, err, "Failed to load test case")
		return
	}
	h.writeJSON(w, testCaseResponse(tc))
}

func (h *HTTPHandlers) HandleUpdateTestCase(w http.ResponseWriter, r *http.Request) {
	scope, id, ok := h.scopeAndID(w, r)
	if !ok {
		return
	}
	if _, _, err := h.service.authorizeTestCase(r.Context(), scope, id); err != nil {
		h.writeServiceError(w, err, "Failed to load test case")
		return
	}
	var req TestCaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Failed to parse test case request")
		return
	}
	if _, err := h.service.authorizeProject(r.Context(), scope, req.ProjectID); err != nil {
		h.writeServiceError(w, err, "Failed to load project")
		return
	}
	tc, err := h.service.UpdateTestCase(r.Context(), id, &req)
	if err != nil {
		h.writeServiceError(w, err, "Failed to update test case")
		return
	}
	h.writeJSON(w, testCaseResponse(tc))
}

func (h *HTTPHandlers) HandleDeleteTestCase(w http.ResponseWriter, r *http.Request) {
	scope, id, ok := h.scopeAndID(w, r)
	if !ok {
		return
	}
	if _, _, err := h.service.authorizeTestCase(r.Context(), scope, id); err != nil {
		h.writeServiceError(w, err, "Failed to load test case")
		return
	}
	if err := h.service.DeleteTestCase(r.Context(), id); err != nil {
		h.writeServiceError(w, err, "Failed to delete test case")
		return
	}
	// The delete cascades schedule rows away; drop their cron entries too.
	if h.sched != nil {
		h.sched.UnregisterTestCase(id)
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleUploadTestCaseFile stores one multipart input file for a test case.
func (h *HTTPHandlers) HandleUploadTestCaseFile(w http.ResponseWriter, r *http.Request) {
	scope, id, ok := h.scopeAndID(w, r)
	if !ok {
		return
	}
	tc, _, err := h.service.authorizeTestCase(r.Context(), scope, id)
	if err != nil {
		h.writeServiceError(w, err, "Failed to load test case")
		return
	}
	// 64 MB in-memory cap; larger parts spill to temp files.
	if err := r.ParseMultipartForm(64 << 20); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Failed to parse multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Missing file field")
		return
	}
	defer file.Close()

	path, err := h.service.SaveTestCaseFile(tc, header.Filename, file)
	if err != nil {
		h.writeServiceError(w, err, "Failed to store file")
		return
	}
	h.writeJSONStatus(w, http.StatusCreated, FileUploadResponse{FileName: filepath.Base(path)})
}

// HandleDownloadTestCaseFile streams a stored input file back to the caller.
func (h *HTTPHandlers) HandleDownloadTestCaseFile(w http.ResponseWriter, r *http.Request) {
	scope, id, ok := h.scopeAndID(w, r)
	if !ok {
		return
	}
	tc, _, err := h.service.authorizeTestCase(r.Context(), scope, id)
	if err != nil {
		h.writeServiceError(w, err, "Failed to load test case")
		return
	}
	f, name, err := h.service.OpenTestCaseFile(tc, r.PathValue("name"))
	if err != nil {
		h.writeServiceError(w, err, "Failed to open file")
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	if _, err := io.Copy(w, f); err != nil {
		h.logger.Error("Failed to stream test case file", "test_case_id", id, "error", err)
	}
}

// HandleRunTestCase executes a test case synchronously and returns the
// finished execution.
func (h *HTTPHandlers) HandleRunTestCase(w http.ResponseWriter, r *http.Request) {
	scope, id, ok := h.scopeAndID(w, r)
	if !ok {
		return
	}
	exec, err := h.executor.ExecuteTestCase(r.Context(), scope, id)
	if err != nil {
		h.writeServiceError(w, err, "Failed to run test case")
		return
	}
	resp, err := h.service.GetExecutionResponse(r.Context(), exec.ID)
	if err != nil {
		h.writeServiceError(w, err, "Failed to load execution")
		return
	}
	h.writeJSON(w, resp)
}

// --- Executions ---

func (h *HTTPHandlers) HandleListExecutions(w http.ResponseWriter, r *http.Request) {
	scope, ok := ScopeFromContext(r)
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "authentication_failed", "Missing auth context")
		return
	}
	page := 1
	if ps := r.URL.Query().Get("page"); ps != "" {
		parsed, err := strconv.Atoi(ps)
		if err != nil || parsed < 1 {
			h.writeError(w, http.StatusBadRequest, "invalid_request", "page must be a positive integer")
			return
		}
		page = parsed
	}
	var testCaseID int64
	if ts := r.URL.Query().Get("test_case_id"); ts != "" {
		parsed, err := strconv.ParseInt(ts, 10, 64)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid_request", "test_case_id must be an integer")
			return
		}
		testCaseID = parsed
	}

	result, err := h.service.ListExecutions(r.Context(), scope, testCaseID, page)
	if err != nil {
		h.writeServiceError(w, err, "Failed to list executions")
		return
	}
	h.writeJSON(w, result)
}

func (h *HTTPHandlers) HandleGetExecution(w http.ResponseWriter, r *http.Request) {
	scope, id, ok := h.scopeAndID(w, r)
	if !ok {
		return
	}
	if _, err := h.authorizeExecution(r, scope, id); err != nil {
		h.writeServiceError(w, err, "Failed to load execution")
		return
	}
	resp, err := h.service.GetExecutionResponse(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err, "Failed to load execution")
		return
	}
	h.writeJSON(w, resp)
}

func (h *HTTPHandlers) HandleListMismatches(w http.ResponseWriter, r *http.Request) {
	scope, id, ok := h.scopeAndID(w, r)
	if !ok {
		return
	}
	if _, err := h.authorizeExecution(r, scope, id); err != nil {
		h.writeServiceError(w, err, "Failed to load execution")
		return
	}
	mismatches, err := h.service.ListMismatches(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err, "Failed to list mismatches")
		return
	}
	out := make([]MismatchResponse, 0, len(mismatches))
	for _, m := range mismatches {
		out = append(out, MismatchResponse{
			ID:          m.ID,
			ExecutionID: m.ExecutionID,
			Type:        m.Type,
			Key:         m.KeyValue,
			Column:      m.ColumnName,
			SourceValue: m.SourceValue,
			TargetValue: m.TargetValue,
		})
	}
	h.writeJSON(w, out)
}

// HandleDownloadReport streams the xlsx report of an execution.
func (h *HTTPHandlers) HandleDownloadReport(w http.ResponseWriter, r *http.Request) {
	scope, id, ok := h.scopeAndID(w, r)
	if !ok {
		return
	}
	exec, err := h.authorizeExecution(r, scope, id)
	if err != nil {
		h.writeServiceError(w, err, "Failed to load execution")
		return
	}
	f, name, err := h.service.OpenReport(exec)
	if err != nil {
		h.writeServiceError(w, err, "Failed to open report")
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	if _, err := io.Copy(w, f); err != nil {
		h.logger.Error("Failed to stream report", "execution_id", id, "error", err)
	}
}

func (h *HTTPHandlers) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	scope, ok := ScopeFromContext(r)
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "authentication_failed", "Missing auth context")
		return
	}
	dash, err := h.service.Dashboard(r.Context(), scope)
	if err != nil {
		h.writeServiceError(w, err, "Failed to build dashboard")
		return
	}
	h.writeJSON(w, dash)
}

// --- Schedules ---

func (h *HTTPHandlers) HandleListSchedules(w http.ResponseWriter, r *http.Request) {
	scope, id, ok := h.scopeAndID(w, r)
	if !ok {
		return
	}
	if _, _, err := h.service.authorizeTestCase(r.Context(), scope, id); err != nil {
		h.writeServiceError(w, err, "Failed to load test case")
		return
	}
	schedules, err := h.service.ListSchedules(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err, "Failed to list schedules")
		return
	}
	out := make([]ScheduleResponse, 0, len(schedules))
	for i := range schedules {
		out = append(out, scheduleResponse(&schedules[i]))
	}
	h.writeJSON(w, out)
}

func (h *HTTPHandlers) HandleCreateSchedule(w http.ResponseWriter, r *http.Request) {
	scope, ok := ScopeFromContext(r)
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "authentication_failed", "Missing auth context")
		return
	}
	var req ScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Failed to parse schedule request")
		return
	}
	if _, _, err := h.service.authorizeTestCase(r.Context(), scope, req.TestCaseID); err != nil {
		h.writeServiceError(w, err, "Failed to load test case")
		return
	}
	schedule, err := h.service.CreateSchedule(r.Context(), &req)
	if err != nil {
		h.writeServiceError(w, err, "Failed to create schedule")
		return
	}
	h.registerSchedule(schedule)
	h.writeJSONStatus(w, http.StatusCreated, scheduleResponse(schedule))
}

func (h *HTTPHandlers) HandleUpdateSchedule(w http.ResponseWriter, r *http.Request) {
	scope, id, ok := h.scopeAndID(w, r)
	if !ok {
		return
	}
	current, err := h.service.GetSchedule(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err, "Failed to load schedule")
		return
	}
	if _, _, err := h.service.authorizeTestCase(r.Context(), scope, current.TestCaseID); err != nil {
		h.writeServiceError(w, err, "Failed to load test case")
		return
	}
	var req ScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Failed to parse schedule request")
		return
	}
	schedule, err := h.service.UpdateSchedule(r.Context(), id, &req)
	if err != nil {
		h.writeServiceError(w, err, "Failed to update schedule")
		return
	}
	h.registerSchedule(schedule)
	h.writeJSON(w, scheduleResponse(schedule))
}

func (h *HTTPHandlers) HandleDeleteSchedule(w http.ResponseWriter, r *http.Request) {
	scope, id, ok := h.scopeAndID(w, r)
	if !ok {
		return
	}
	current, err := h.service.GetSchedule(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err, "Failed to load schedule")
		return
	}
	if _, _, err := h.service.authorizeTestCase(r.Context(), scope, current.TestCaseID); err != nil {
		h.writeServiceError(w, err, "Failed to load test case")
		return
	}
	if err := h.service.DeleteSchedule(r.Context(), id); err != nil {
		h.writeServiceError(w, err, "Failed to delete schedule")
		return
	}
	if h.sched != nil {
		h.sched.Unregister(id)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandlers) registerSchedule(schedule *ScheduleEntity) {
	if h.sched == nil {
		return
	}
	if err := h.sched.Register(schedule); err != nil {
		h.logger.Error("Failed to register schedule", "schedule_id", schedule.ID, "error", err)
	}
}

// --- helpers ---

// authorizeConnection checks team access through the connection's project.
func (h *HTTPHandlers) authorizeConnection(r *http.Request, scope Scope, id int64) (*ConnectionEntity, error) {
	conn, err := h.service.GetConnection(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if _, err := h.service.authorizeProject(r.Context(), scope, conn.ProjectID); err != nil {
		return nil, err
	}
	return conn, nil
}

// authorizeExecution checks team access through the execution's test case.
func (h *HTTPHandlers) authorizeExecution(r *http.Request, scope Scope, id int64) (*ExecutionEntity, error) {
	exec, err := h.service.GetExecution(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if _, _, err := h.service.authorizeTestCase(r.Context(), scope, exec.TestCaseID); err != nil {
		return nil, err
	}
	return exec, nil
}

// pathID parses the {id} path segment.
func (h *HTTPHandlers) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "id must be a positive integer")
		return 0, false
	}
	return id, true
}

func (h *HTTPHandlers) scopeAndID(w http.ResponseWriter, r *http.Request) (Scope, int64, bool) {
	scope, ok := ScopeFromContext(r)
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "authentication_failed", "Missing auth context")
		return Scope{}, 0, false
	}
	id, ok := h.pathID(w, r)
	if !ok {
		return Scope{}, 0, false
	}
	return scope, id, true
}

func (h *HTTPHandlers) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("Failed to encode response", "error", err)
	}
}

func (h *HTTPHandlers) writeJSONStatus(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("Failed to encode response", "error", err)
	}
}

// writeServiceError maps sentinel errors to HTTP statuses.
func (h *HTTPHandlers) writeServiceError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, ErrNotFound):
		h.writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, ErrBadRequest):
		h.writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, ErrForbidden):
		h.writeError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, ErrUnauthorized):
		h.writeError(w, http.StatusUnauthorized, "authentication_failed", err.Error())
	case errors.Is(err, ErrConflict):
		h.writeError(w, http.StatusConflict, "conflict", err.Error())
	default:
		h.logger.Error("Internal error", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal_error", fallback)
	}
}

// writeError writes a standardized error response
func (h *HTTPHandlers) writeError(w http.ResponseWriter, statusCode int, errorCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	errorResponse := ErrorResponse{
		Error:   errorCode,
		Message: message,
	}
	json.NewEncoder(w).Encode(errorResponse)

	h.logger.Debug("HTTP error response",
		"status_code", statusCode,
		"error_code", errorCode,
		"message", message)
}
