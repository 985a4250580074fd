package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/galadima-cyber/eRecord/config"
	"github.com/galadima-cyber/eRecord/internal/api/middleware"
	"github.com/galadima-cyber/eRecord/internal/dto"
	"github.com/galadima-cyber/eRecord/internal/service"
	"github.com/galadima-cyber/eRecord/pkg/jwt"
	"github.com/galadima-cyber/eRecord/pkg/response"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ═══════════════════════════════════════════════════════════
// Mock Services
// ═══════════════════════════════════════════════════════════

// ── Mock AuthService ──

type mockAuthService struct {
	loginResult   *dto.TokenResponse
	loginErr      error
	refreshResult *dto.TokenResponse
	refreshErr    error
	logoutErr     error
	logoutClaims  *jwt.Claims
	meResult      *dto.UserResponse
	meErr         error
}

func (m *mockAuthService) Login(_ context.Context, _ *dto.LoginRequest) (*dto.TokenResponse, error) {
	return m.loginResult, m.loginErr
}
func (m *mockAuthService) Refresh(_ context.Context, _ *dto.RefreshTokenRequest) (*dto.TokenResponse, error) {
	return m.refreshResult, m.refreshErr
}
func (m *mockAuthService) Logout(_ context.Context, claims *jwt.Claims) error {
	m.logoutClaims = claims
	return m.logoutErr
}
func (m *mockAuthService) Me(_ context.Context, _ string) (*dto.UserResponse, error) {
	return m.meResult, m.meErr
}

// ── Mock CheckInService ──

type mockCheckInService struct {
	result    *service.CheckInResult
	err       error
	called    bool
	studentID string
	input     *service.CheckInInput
}

func (m *mockCheckInService) CheckIn(_ context.Context, studentID string, in *service.CheckInInput) (*service.CheckInResult, error) {
	m.called = true
	m.studentID = studentID
	m.input = in
	return m.result, m.err
}

// ── Mock LocationVerifyService ──

type mockVerifyService struct {
	result *dto.VerifyLocationResponse
	err    error
	ip     string
}

func (m *mockVerifyService) Verify(_ context.Context, _ string, _, _ *float64, clientIP string) (*dto.VerifyLocationResponse, error) {
	m.ip = clientIP
	return m.result, m.err
}

// ── Mock LocationService ──

type mockLocationService struct {
	result *dto.LocationResponse
	list   []dto.LocationResponse
	err    error
	caller service.Caller
}

func (m *mockLocationService) Create(_ context.Context, _ *dto.CreateLocationRequest, caller service.Caller) (*dto.LocationResponse, error) {
	m.caller = caller
	return m.result, m.err
}
func (m *mockLocationService) GetByID(_ context.Context, _ string, _ service.Caller) (*dto.LocationResponse, error) {
	return m.result, m.err
}
func (m *mockLocationService) List(_ context.Context, _ *dto.LocationListRequest, _ service.Caller) ([]dto.LocationResponse, error) {
	return m.list, m.err
}
func (m *mockLocationService) Update(_ context.Context, _ string, _ *dto.UpdateLocationRequest, _ service.Caller) (*dto.LocationResponse, error) {
	return m.result, m.err
}
func (m *mockLocationService) Delete(_ context.Context, _ string, _ service.Caller) error {
	return m.err
}

// ── Mock SessionService / AttendanceRuleService ──

type mockSessionService struct {
	result *dto.SessionResponse
	list   []dto.SessionResponse
	total  int64
	err    error
}

func (m *mockSessionService) Create(_ context.Context, _ *dto.CreateSessionRequest, _ service.Caller) (*dto.SessionResponse, error) {
	return m.result, m.err
}
func (m *mockSessionService) GetByID(_ context.Context, _ string) (*dto.SessionResponse, error) {
	return m.result, m.err
}
func (m *mockSessionService) List(_ context.Context, _ *dto.SessionListRequest, _ service.Caller) ([]dto.SessionResponse, int64, error) {
	return m.list, m.total, m.err
}
func (m *mockSessionService) ListActive(_ context.Context, _ *dto.SessionListRequest) ([]dto.SessionResponse, int64, error) {
	return m.list, m.total, m.err
}
func (m *mockSessionService) End(_ context.Context, _ string, _ service.Caller) (*dto.SessionResponse, error) {
	return m.result, m.err
}

type mockRuleService struct {
	result *dto.RuleResponse
	err    error
}

func (m *mockRuleService) Get(_ context.Context, _ string, _ service.Caller) (*dto.RuleResponse, error) {
	return m.result, m.err
}
func (m *mockRuleService) Upsert(_ context.Context, _ string, _ *dto.UpsertRuleRequest, _ service.Caller) (*dto.RuleResponse, error) {
	return m.result, m.err
}

// ── Mock AttendanceService / ExportService ──

type mockAttendanceService struct {
	entries []dto.AttendanceEntryResponse
	mine    []dto.MyAttendanceResponse
	total   int64
	err     error
}

func (m *mockAttendanceService) ListBySession(_ context.Context, _ string, _ service.Caller) ([]dto.AttendanceEntryResponse, error) {
	return m.entries, m.err
}
func (m *mockAttendanceService) ListMine(_ context.Context, _ *dto.PaginationRequest, _ service.Caller) ([]dto.MyAttendanceResponse, int64, error) {
	return m.mine, m.total, m.err
}

type mockExportService struct {
	buf      *bytes.Buffer
	filename string
	err      error
}

func (m *mockExportService) ExportSessionAttendance(_ context.Context, _ string, _ service.Caller) (*bytes.Buffer, string, error) {
	return m.buf, m.filename, m.err
}

// ── Mock EnrollmentService ──

type mockEnrollmentService struct {
	rows      []service.ImportEnrollmentRow
	parseErr  error
	result    *dto.ImportEnrollmentResponse
	importErr error
	list      []dto.EnrollmentResponse
}

func (m *mockEnrollmentService) ParseImportFile(_ io.Reader) ([]service.ImportEnrollmentRow, error) {
	return m.rows, m.parseErr
}
func (m *mockEnrollmentService) Import(_ context.Context, _ []service.ImportEnrollmentRow, _ service.Caller) (*dto.ImportEnrollmentResponse, error) {
	return m.result, m.importErr
}
func (m *mockEnrollmentService) ListByCourse(_ context.Context, _ string) ([]dto.EnrollmentResponse, error) {
	return m.list, nil
}

// ═══════════════════════════════════════════════════════════
// Test Helpers
// ═══════════════════════════════════════════════════════════

func withAuth(userID, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextUserID, userID)
		c.Set(middleware.ContextRole, role)
		c.Next()
	}
}

func jsonBody(v interface{}) io.Reader {
	b, _ := json.Marshal(v)
	return bytes.NewReader(b)
}

func doJSON(r *gin.Engine, method, path string, body io.Reader, header ...string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	r.ServeHTTP(w, req)
	return w
}

func parseResponse(w *httptest.ResponseRecorder) response.Response {
	var resp response.Response
	json.Unmarshal(w.Body.Bytes(), &resp)
	return resp
}

func parseCheckIn(w *httptest.ResponseRecorder) dto.CheckInResponse {
	var resp dto.CheckInResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	return resp
}

func checkInRouter(svc service.CheckInService) *gin.Engine {
	h := NewCheckInHandler(svc, &mockVerifyService{})
	r := gin.New()
	r.POST("/checkin", withAuth("student-1", "student"), h.CheckIn)
	return r
}

// ═══════════════════════════════════════════════════════════
// CheckInHandler Tests
// ═══════════════════════════════════════════════════════════

func TestCheckInHandler_Success(t *testing.T) {
	at := time.Date(2026, 3, 2, 9, 3, 0, 0, time.UTC)
	mock := &mockCheckInService{result: &service.CheckInResult{
		AttendanceID: "att-1",
		SessionID:    "sess-1",
		CourseCode:   "CSC401",
		Distance:     0,
		CheckedInAt:  at,
	}}
	r := checkInRouter(mock)

	w := doJSON(r, "POST", "/checkin", jsonBody(map[string]interface{}{
		"sessionId":  "sess-1",
		"latitude":   6.5244,
		"longitude":  3.3792,
		"deviceInfo": map[string]string{"os": "android"},
	}))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	resp := parseCheckIn(w)
	if !resp.Success || resp.Message != "Successfully checked in to CSC401!" {
		t.Errorf("unexpected body: %+v", resp)
	}
	if resp.Data == nil || resp.Data.AttendanceID != "att-1" || resp.Data.CheckedInAt != "2026-03-02T09:03:00Z" {
		t.Errorf("unexpected data: %+v", resp.Data)
	}
	if mock.studentID != "student-1" {
		t.Errorf("学生身份应来自 JWT，实际: %s", mock.studentID)
	}
	if !strings.Contains(string(mock.input.DeviceInfo), "android") {
		t.Errorf("deviceInfo 应透传，实际: %s", mock.input.DeviceInfo)
	}
}

func TestCheckInHandler_ZeroCoordinatesAccepted(t *testing.T) {
	mock := &mockCheckInService{result: &service.CheckInResult{AttendanceID: "a", CourseCode: "X", CheckedInAt: time.Now()}}
	r := checkInRouter(mock)

	w := doJSON(r, "POST", "/checkin", strings.NewReader(`{"sessionId":"s","latitude":0,"longitude":0}`))

	if w.Code != http.StatusOK {
		t.Fatalf("(0,0) 是合法坐标，expected 200, got %d", w.Code)
	}
	if mock.input.Latitude != 0 || mock.input.Longitude != 0 {
		t.Errorf("unexpected input: %+v", mock.input)
	}
}

func TestCheckInHandler_MissingFields(t *testing.T) {
	bodies := []string{
		`{"latitude":1,"longitude":1}`,
		`{"sessionId":"s","longitude":1}`,
		`{"sessionId":"s","latitude":1}`,
		`not json`,
	}
	for _, body := range bodies {
		mock := &mockCheckInService{}
		r := checkInRouter(mock)

		w := doJSON(r, "POST", "/checkin", strings.NewReader(body))

		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", body, w.Code)
		}
		resp := parseCheckIn(w)
		if resp.Success || resp.Message != "Missing required fields" ||
			resp.Error != "sessionId, latitude, and longitude are required" {
			t.Errorf("%s: unexpected body: %+v", body, resp)
		}
		if mock.called {
			t.Errorf("%s: 参数缺失时不应调用服务", body)
		}
	}
}

func TestCheckInHandler_Unauthenticated(t *testing.T) {
	mgr := jwt.NewManager(&config.AuthConfig{JWTSecret: "test-secret-key-for-unit-testing-2026", AccessTokenTTL: time.Minute})
	h := NewCheckInHandler(&mockCheckInService{}, &mockVerifyService{})
	r := gin.New()
	r.POST("/checkin", middleware.JWTAuth(mgr, nil, zap.NewNop(), CheckInUnauthorized), h.CheckIn)

	w := doJSON(r, "POST", "/checkin", jsonBody(map[string]interface{}{"sessionId": "s", "latitude": 1, "longitude": 1}))

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	resp := parseCheckIn(w)
	if resp.Success || resp.Message != "Authentication required" || resp.Error != "User not authenticated" {
		t.Errorf("unexpected body: %+v", resp)
	}
}

func TestCheckInHandler_RateLimitedUsesCheckInBody(t *testing.T) {
	svc := &mockCheckInService{result: &service.CheckInResult{CourseCode: "CSC401", CheckedInAt: time.Now()}}
	h := NewCheckInHandler(svc, &mockVerifyService{})
	r := gin.New()
	r.POST("/checkin", withAuth("student-1", "student"),
		middleware.RateLimit(nil, "checkin", 1, time.Minute, zap.NewNop(), CheckInRateLimited), h.CheckIn)

	body := map[string]interface{}{"sessionId": "s", "latitude": 6.5244, "longitude": 3.3792}
	if w := doJSON(r, "POST", "/checkin", jsonBody(body)); w.Code != http.StatusOK {
		t.Fatalf("first attempt: expected 200, got %d", w.Code)
	}

	w := doJSON(r, "POST", "/checkin", jsonBody(body))
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
	resp := parseCheckIn(w)
	if resp.Success || resp.Message != "Too many requests" || resp.Error == "" {
		t.Errorf("unexpected body: %s", w.Body.String())
	}
	if strings.Contains(w.Body.String(), `"code"`) {
		t.Errorf("check-in 429 should not use the generic envelope: %s", w.Body.String())
	}
}

func TestCheckInHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantMessage string
	}{
		{"SessionNotFound", &service.IneligibleError{Reason: service.ReasonSessionNotFound}, 404, "Session not found"},
		{"Expired", &service.IneligibleError{Reason: service.ReasonSessionExpired}, 400, "Session has expired"},
		{"Already", &service.IneligibleError{Reason: service.ReasonAlreadyCheckedIn}, 400, "Already checked in"},
		{"InvalidCoords", &service.IneligibleError{Reason: service.ReasonCoordinatesOutOfRange}, 400, "Invalid coordinates"},
		{"TooFar", &service.IneligibleError{Reason: service.ReasonLocationTooFar, Distance: 1346.2, RadiusMeters: 50}, 400,
			"You are 1346m away from the class location. Please move closer (within 50m)"},
		{"Unavailable", service.ErrCheckInUnavailable, 500, "Failed to record attendance"},
		{"Unknown", errors.New("boom"), 500, "Failed to record attendance"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := checkInRouter(&mockCheckInService{err: tt.err})

			w := doJSON(r, "POST", "/checkin", strings.NewReader(`{"sessionId":"s","latitude":1,"longitude":1}`))

			if w.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, w.Code)
			}
			resp := parseCheckIn(w)
			if resp.Success || resp.Message != tt.wantMessage {
				t.Errorf("expected message %q, got %+v", tt.wantMessage, resp)
			}
			if tt.wantStatus == 500 && resp.Error != "Database error during check-in" {
				t.Errorf("unexpected error text: %q", resp.Error)
			}
		})
	}
}

func TestCheckInHandler_VerifyLocation(t *testing.T) {
	dist := 12
	verify := &mockVerifyService{result: &dto.VerifyLocationResponse{Verified: true, Method: "gps", Distance: &dist}}
	h := NewCheckInHandler(&mockCheckInService{}, verify)
	r := gin.New()
	r.POST("/verify-location", withAuth("student-1", "student"), h.VerifyLocation)

	w := doJSON(r, "POST", "/verify-location", strings.NewReader(`{"sessionId":"s","latitude":1,"longitude":1}`))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp dto.VerifyLocationResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	if !resp.Verified || resp.Method != "gps" || resp.Distance == nil || *resp.Distance != 12 {
		t.Errorf("unexpected body: %+v", resp)
	}
	if verify.ip == "" {
		t.Error("应传入客户端 IP")
	}

	w = doJSON(r, "POST", "/verify-location", strings.NewReader(`{}`))
	if w.Code != http.StatusBadRequest {
		t.Errorf("缺少 sessionId expected 400, got %d", w.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// AuthHandler Tests
// ═══════════════════════════════════════════════════════════

func TestAuthHandler_Login(t *testing.T) {
	mock := &mockAuthService{loginResult: &dto.TokenResponse{AccessToken: "a", RefreshToken: "r", ExpiresIn: 900}}
	h := NewAuthHandler(mock)
	r := gin.New()
	r.POST("/auth/login", h.Login)

	w := doJSON(r, "POST", "/auth/login", jsonBody(dto.LoginRequest{MatricNo: "CSC/2021/001", Password: "Passw0rd!"}))
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 0 {
		t.Errorf("expected code 0, got %d", resp.Code)
	}

	w = doJSON(r, "POST", "/auth/login", strings.NewReader("invalid json"))
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}

	mock.loginErr = service.ErrInvalidCredentials
	w = doJSON(r, "POST", "/auth/login", jsonBody(dto.LoginRequest{MatricNo: "x", Password: "wrong"}))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != response.CodeUnauthorized {
		t.Errorf("expected code %d, got %d", response.CodeUnauthorized, resp.Code)
	}
}

func TestAuthHandler_Refresh(t *testing.T) {
	mock := &mockAuthService{refreshErr: service.ErrInvalidRefresh}
	h := NewAuthHandler(mock)
	r := gin.New()
	r.POST("/auth/refresh", h.Refresh)

	w := doJSON(r, "POST", "/auth/refresh", jsonBody(dto.RefreshTokenRequest{RefreshToken: "old"}))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}

	w = doJSON(r, "POST", "/auth/refresh", strings.NewReader(`{}`))
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestAuthHandler_LogoutAndMe(t *testing.T) {
	mgr := jwt.NewManager(&config.AuthConfig{JWTSecret: "test-secret-key-for-unit-testing-2026", AccessTokenTTL: time.Minute})
	token, _ := mgr.GenerateAccessToken("user-1", "student")

	mock := &mockAuthService{meResult: &dto.UserResponse{ID: "user-1", Role: "student"}}
	h := NewAuthHandler(mock)
	r := gin.New()
	authed := r.Group("", middleware.JWTAuth(mgr, nil, zap.NewNop()))
	authed.POST("/auth/logout", h.Logout)
	authed.GET("/auth/me", h.Me)

	w := doJSON(r, "GET", "/auth/me", nil, "Authorization", "Bearer "+token)
	if w.Code != http.StatusOK {
		t.Errorf("me expected 200, got %d", w.Code)
	}

	w = doJSON(r, "POST", "/auth/logout", nil, "Authorization", "Bearer "+token)
	if w.Code != http.StatusOK {
		t.Errorf("logout expected 200, got %d", w.Code)
	}
	if mock.logoutClaims == nil || mock.logoutClaims.UserID != "user-1" {
		t.Errorf("登出应传入当前 Token 的声明，实际: %+v", mock.logoutClaims)
	}

	w = doJSON(r, "GET", "/auth/me", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("无 Token expected 401, got %d", w.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// LocationHandler / SessionHandler Tests
// ═══════════════════════════════════════════════════════════

func TestLocationHandler_Create(t *testing.T) {
	mock := &mockLocationService{result: &dto.LocationResponse{ID: "loc-1"}}
	h := NewLocationHandler(mock)
	r := gin.New()
	r.POST("/locations", withAuth("lecturer-1", "lecturer"), h.CreateLocation)

	w := doJSON(r, "POST", "/locations", strings.NewReader(`{"name":"LT1","latitude":6.5244,"longitude":3.3792}`))
	if w.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", w.Code)
	}
	if mock.caller.UserID != "lecturer-1" || mock.caller.Role != "lecturer" {
		t.Errorf("unexpected caller: %+v", mock.caller)
	}

	w = doJSON(r, "POST", "/locations", strings.NewReader(`{"name":"LT1","latitude":6.5}`))
	if w.Code != http.StatusBadRequest {
		t.Errorf("缺少经度 expected 400, got %d", w.Code)
	}
}

func TestLocationHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   int
	}{
		{"NotFound", service.ErrLocationNotFound, 404, response.CodeNotFound},
		{"Forbidden", service.ErrPermissionDenied, 403, response.CodeForbidden},
		{"InvalidCoord", service.ErrLocationInvalidCoord, 400, response.CodeValidation},
		{"InvalidRadius", service.ErrLocationInvalidRange, 400, response.CodeValidation},
		{"InternalError", errors.New("unknown"), 500, response.CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewLocationHandler(&mockLocationService{err: tt.err})
			r := gin.New()
			r.GET("/locations/:id", withAuth("lecturer-1", "lecturer"), h.GetLocation)

			w := doJSON(r, "GET", "/locations/loc-1", nil)

			if w.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, w.Code)
			}
			if resp := parseResponse(w); resp.Code != tt.wantCode {
				t.Errorf("expected code %d, got %d", tt.wantCode, resp.Code)
			}
		})
	}
}

func TestLocationHandler_ListRequiresBothCoordinates(t *testing.T) {
	h := NewLocationHandler(&mockLocationService{})
	r := gin.New()
	r.GET("/locations", withAuth("lecturer-1", "lecturer"), h.ListLocations)

	w := doJSON(r, "GET", "/locations?lat=6.5", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}

	w = doJSON(r, "GET", "/locations?lat=6.5&lon=3.3", nil)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestSessionHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"NotFound", service.ErrSessionNotFound, 404},
		{"Forbidden", service.ErrPermissionDenied, 403},
		{"BadWindow", service.ErrSessionInvalidWindow, 400},
		{"BadLocation", service.ErrSessionLocation, 400},
		{"Internal", errors.New("unknown"), 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewSessionHandler(&mockSessionService{err: tt.err}, &mockRuleService{})
			r := gin.New()
			r.POST("/sessions", withAuth("lecturer-1", "lecturer"), h.CreateSession)

			w := doJSON(r, "POST", "/sessions", strings.NewReader(`{"course_code":"CSC401","location_id":"loc-1"}`))

			if w.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, w.Code)
			}
		})
	}
}

func TestSessionHandler_ListActivePaged(t *testing.T) {
	mock := &mockSessionService{list: []dto.SessionResponse{{ID: "s1"}, {ID: "s2"}}, total: 2}
	h := NewSessionHandler(mock, &mockRuleService{})
	r := gin.New()
	r.GET("/sessions/active", withAuth("student-1", "student"), h.ListActiveSessions)

	w := doJSON(r, "GET", "/sessions/active?page=1&page_size=10", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body struct {
		Data response.PageData `json:"data"`
	}
	json.Unmarshal(w.Body.Bytes(), &body)
	if body.Data.Pagination.Total != 2 || body.Data.Pagination.PageSize != 10 {
		t.Errorf("unexpected pagination: %+v", body.Data.Pagination)
	}
}

func TestSessionHandler_RuleValidation(t *testing.T) {
	h := NewSessionHandler(&mockSessionService{}, &mockRuleService{err: service.ErrRuleInvalidRadius})
	r := gin.New()
	r.PUT("/sessions/:id/rules", withAuth("lecturer-1", "lecturer"), h.UpsertRule)

	w := doJSON(r, "PUT", "/sessions/s1/rules", strings.NewReader(`{"location_radius_meters":0}`))
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// AttendanceHandler / EnrollmentHandler Tests
// ═══════════════════════════════════════════════════════════

func TestAttendanceHandler_Export(t *testing.T) {
	mock := &mockExportService{buf: bytes.NewBufferString("excel content"), filename: "attendance_CSC401_20260302_0900.xlsx"}
	h := NewAttendanceHandler(&mockAttendanceService{}, mock)
	r := gin.New()
	r.GET("/sessions/:id/attendance/export", withAuth("lecturer-1", "lecturer"), h.ExportSessionAttendance)

	w := doJSON(r, "GET", "/sessions/s1/attendance/export", nil)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != xlsxContentType {
		t.Errorf("unexpected content type: %s", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "attendance_CSC401") {
		t.Errorf("unexpected Content-Disposition: %s", cd)
	}
}

func TestAttendanceHandler_ExportForbidden(t *testing.T) {
	h := NewAttendanceHandler(&mockAttendanceService{}, &mockExportService{err: service.ErrPermissionDenied})
	r := gin.New()
	r.GET("/sessions/:id/attendance/export", withAuth("lecturer-2", "lecturer"), h.ExportSessionAttendance)

	w := doJSON(r, "GET", "/sessions/s1/attendance/export", nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", w.Code)
	}
}

func TestAttendanceHandler_ListSession(t *testing.T) {
	mock := &mockAttendanceService{entries: []dto.AttendanceEntryResponse{{ID: "a1"}}}
	h := NewAttendanceHandler(mock, &mockExportService{})
	r := gin.New()
	r.GET("/sessions/:id/attendance", withAuth("lecturer-1", "lecturer"), h.ListSessionAttendance)

	w := doJSON(r, "GET", "/sessions/s1/attendance", nil)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}

	mock.err = service.ErrSessionNotFound
	w = doJSON(r, "GET", "/sessions/missing/attendance", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func multipartUpload(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if field != "" {
		fw, err := mw.CreateFormFile(field, filename)
		if err != nil {
			t.Fatalf("创建表单文件失败: %v", err)
		}
		fw.Write(content)
	}
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func TestEnrollmentHandler_Import(t *testing.T) {
	mock := &mockEnrollmentService{
		rows:   []service.ImportEnrollmentRow{{Row: 2, MatricNo: "CSC/2021/001", CourseCode: "CSC401"}},
		result: &dto.ImportEnrollmentResponse{Total: 1, Created: 1},
	}
	h := NewEnrollmentHandler(mock)
	r := gin.New()
	r.POST("/enrollments/import", withAuth("lecturer-1", "lecturer"), h.ImportEnrollments)

	cases := []struct {
		name       string
		field      string
		filename   string
		parseErr   error
		wantStatus int
	}{
		{"ok", "file", "roster.xlsx", nil, 200},
		{"missing file", "", "", nil, 400},
		{"wrong extension", "file", "roster.csv", nil, 400},
		{"bad header", "file", "roster.xlsx", service.ErrImportBadHeader, 400},
		{"bad workbook", "file", "roster.xlsx", service.ErrImportBadFile, 400},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mock.parseErr = tc.parseErr
			body, contentType := multipartUpload(t, tc.field, tc.filename, []byte("xlsx bytes"))

			w := httptest.NewRecorder()
			req := httptest.NewRequest("POST", "/enrollments/import", body)
			req.Header.Set("Content-Type", contentType)
			r.ServeHTTP(w, req)

			if w.Code != tc.wantStatus {
				t.Errorf("expected %d, got %d", tc.wantStatus, w.Code)
			}
		})
	}
}

func TestEnrollmentHandler_ListRequiresCourse(t *testing.T) {
	h := NewEnrollmentHandler(&mockEnrollmentService{})
	r := gin.New()
	r.GET("/enrollments", withAuth("lecturer-1", "lecturer"), h.ListEnrollments)

	if w := doJSON(r, "GET", "/enrollments", nil); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	if w := doJSON(r, "GET", "/enrollments?course_code=CSC401", nil); w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}
