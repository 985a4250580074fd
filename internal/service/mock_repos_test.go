package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/galadima-cyber/eRecord/config"
	"github.com/galadima-cyber/eRecord/internal/model"
	"github.com/galadima-cyber/eRecord/internal/repository"
	pkgerrors "github.com/galadima-cyber/eRecord/pkg/errors"
)

// ── 测试环境 ──

// testNow 所有服务测试共用的固定时刻
var testNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type testEnv struct {
	repo        *repository.Repository
	users       *mockUserRepo
	locations   *mockLocationRepo
	sessions    *mockSessionRepo
	attendance  *mockAttendanceRepo
	rules       *mockAttendanceRuleRepo
	enrollments *mockEnrollmentRepo
	calls       *atomic.Int64 // 所有存储调用计数
	cfg         *config.AttendanceConfig
	logger      *zap.Logger
}

func newTestEnv() *testEnv {
	calls := new(atomic.Int64)
	users := &mockUserRepo{users: make(map[string]*model.User), calls: calls}
	sessions := &mockSessionRepo{sessions: make(map[string]*model.LectureSession), calls: calls}
	env := &testEnv{
		users:       users,
		locations:   &mockLocationRepo{locations: make(map[string]*model.Location), calls: calls},
		sessions:    sessions,
		attendance:  &mockAttendanceRepo{records: make(map[string]*model.AttendanceRecord), users: users, sessions: sessions, calls: calls},
		rules:       &mockAttendanceRuleRepo{rules: make(map[string]*model.AttendanceRule), calls: calls},
		enrollments: &mockEnrollmentRepo{items: make(map[string]*model.Enrollment), users: users, calls: calls},
		calls:       calls,
		cfg: &config.AttendanceConfig{
			DefaultRadiusMeters:    50,
			FixedWindow:            15 * time.Minute,
			DefaultWindowMode:      config.WindowModeFixed,
			DefaultLatenessMinutes: 15,
		},
		logger: zap.NewNop(),
	}
	env.repo = &repository.Repository{
		User:           env.users,
		Location:       env.locations,
		Session:        env.sessions,
		Attendance:     env.attendance,
		AttendanceRule: env.rules,
		Enrollment:     env.enrollments,
	}
	return env
}

// ── 测试数据 ──

func (e *testEnv) addUser(id, matricNo, role string) *model.User {
	u := &model.User{UserID: id, Name: "用户-" + matricNo, MatricNo: matricNo, Email: matricNo + "@unilag.edu.ng", Role: role}
	e.users.users[id] = u
	return u
}

func (e *testEnv) addLocation(id, ownerID string, lat, lon float64, radius int) *model.Location {
	l := &model.Location{LocationID: id, OwnerID: ownerID, Name: "地点-" + id, Latitude: lat, Longitude: lon, RadiusMeters: radius}
	e.locations.locations[id] = l
	return l
}

// addSession 创建一个 [startsAt, expiresAt] 的 active 会话
func (e *testEnv) addSession(id, ownerID, locationID string, startsAt, expiresAt time.Time) *model.LectureSession {
	s := &model.LectureSession{
		SessionID:  id,
		OwnerID:    ownerID,
		CourseCode: "CSC401",
		WindowMode: config.WindowModeFixed,
		StartsAt:   startsAt,
		ExpiresAt:  expiresAt,
		Status:     model.SessionStatusActive,
	}
	if locationID != "" {
		loc := locationID
		s.LocationID = &loc
	}
	e.sessions.sessions[id] = s
	return s
}

// ── Mock UserRepository ──

type mockUserRepo struct {
	mu    sync.RWMutex
	users map[string]*model.User
	calls *atomic.Int64
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	m.calls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.MatricNo == user.MatricNo {
			return pkgerrors.ErrDuplicateKey
		}
	}
	if user.UserID == "" {
		user.UserID = "user-" + user.MatricNo
	}
	m.users[user.UserID] = user
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	m.calls.Add(1)
	m.mu.RLock()
	defer m.mu.RUnlock()
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByMatricNo(_ context.Context, matricNo string) (*model.User, error) {
	m.calls.Add(1)
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.MatricNo == matricNo {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) ListByMatricNos(_ context.Context, matricNos []string) ([]model.User, error) {
	m.calls.Add(1)
	m.mu.RLock()
	defer m.mu.RUnlock()
	want := make(map[string]bool, len(matricNos))
	for _, n := range matricNos {
		want[n] = true
	}
	var result []model.User
	for _, u := range m.users {
		if want[u.MatricNo] {
			result = append(result, *u)
		}
	}
	return result, nil
}

func (m *mockUserRepo) CreateBatch(_ context.Context, users []model.User) error {
	m.calls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	taken := make(map[string]bool, len(m.users))
	for _, u := range m.users {
		taken[u.MatricNo] = true
	}
	for _, u := range users {
		if taken[u.MatricNo] {
			return pkgerrors.ErrDuplicateKey
		}
		taken[u.MatricNo] = true
	}
	for i := range users {
		u := users[i]
		if u.UserID == "" {
			u.UserID = "user-" + u.MatricNo
		}
		m.users[u.UserID] = &u
	}
	return nil
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	m.calls.Add(1)
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) List(_ context.Context, filter repository.UserListFilter, offset, limit int) ([]model.User, int64, error) {
	m.calls.Add(1)
	m.mu.RLock()
	defer m.mu.RUnlock()
	kw := strings.ToLower(filter.Keyword)
	var all []model.User
	for _, u := range m.users {
		if filter.Role != "" && u.Role != filter.Role {
			continue
		}
		if kw != "" && !strings.Contains(strings.ToLower(u.Name+" "+u.MatricNo+" "+u.Email), kw) {
			continue
		}
		all = append(all, *u)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].MatricNo < all[j].MatricNo })

	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (m *mockUserRepo) UpdatePassword(_ context.Context, id, passwordHash, _ string) error {
	m.calls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

// ── Mock LocationRepository ──

type mockLocationRepo struct {
	mu        sync.RWMutex
	locations map[string]*model.Location
	calls     *atomic.Int64
	seq       int
}

func (m *mockLocationRepo) Create(_ context.Context, loc *model.Location) error {
	m.calls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if loc.LocationID == "" {
		m.seq++
		loc.LocationID = fmt.Sprintf("loc-%d", m.seq)
	}
	m.locations[loc.LocationID] = loc
	return nil
}

func (m *mockLocationRepo) GetByID(_ context.Context, id string) (*model.Location, error) {
	m.calls.Add(1)
	m.mu.RLock()
	defer m.mu.RUnlock()
	if l, ok := m.locations[id]; ok {
		cp := *l
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockLocationRepo) List(_ context.Context, filter repository.LocationFilter) ([]model.Location, error) {
	m.calls.Add(1)
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []model.Location
	for _, l := range m.locations {
		if filter.OwnerID != "" && l.OwnerID != filter.OwnerID {
			continue
		}
		if filter.GeohashPrefix != "" && !strings.HasPrefix(l.Geohash, filter.GeohashPrefix) {
			continue
		}
		result = append(result, *l)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (m *mockLocationRepo) Update(_ context.Context, loc *model.Location) error {
	m.calls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locations[loc.LocationID] = loc
	return nil
}

// Delete 软删除后对查询不可见，直接移出 map
func (m *mockLocationRepo) Delete(_ context.Context, id string, _ string) error {
	m.calls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.locations[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.locations, id)
	return nil
}

// ── Mock SessionRepository ──

type mockSessionRepo struct {
	mu       sync.RWMutex
	sessions map[string]*model.LectureSession
	calls    *atomic.Int64
	getErr   error
	seq      int
}

func (m *mockSessionRepo) Create(_ context.Context, s *model.LectureSession) error {
	m.calls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.SessionID == "" {
		m.seq++
		s.SessionID = fmt.Sprintf("sess-%d", m.seq)
	}
	m.sessions[s.SessionID] = s
	return nil
}

func (m *mockSessionRepo) GetByID(_ context.Context, id string) (*model.LectureSession, error) {
	m.calls.Add(1)
	if m.getErr != nil {
		return nil, m.getErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.sessions[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSessionRepo) List(_ context.Context, filter repository.SessionFilter, offset, limit int) ([]model.LectureSession, int64, error) {
	m.calls.Add(1)
	m.mu.RLock()
	defer m.mu.RUnlock()
	var all []model.LectureSession
	for _, s := range m.sessions {
		if filter.OwnerID != "" && s.OwnerID != filter.OwnerID {
			continue
		}
		if filter.CourseCode != "" && s.CourseCode != filter.CourseCode {
			continue
		}
		if filter.OpenAt != nil {
			at := *filter.OpenAt
			if s.Status != model.SessionStatusActive || s.StartsAt.After(at) || s.ExpiresAt.Before(at) {
				continue
			}
		}
		all = append(all, *s)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].StartsAt.After(all[j].StartsAt) })

	total := int64(len(all))
	if limit <= 0 {
		return all, total, nil
	}
	if offset >= len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (m *mockSessionRepo) End(_ context.Context, id string, endedAt time.Time, _ string) (bool, error) {
	m.calls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok || s.Status != model.SessionStatusActive {
		return false, nil
	}
	s.Status = model.SessionStatusEnded
	s.EndedAt = &endedAt
	return true, nil
}

// ── Mock AttendanceRepository ──

// mockAttendanceRepo 以 (session_id, student_id) 为唯一键，行为与数据库唯一约束一致
type mockAttendanceRepo struct {
	mu       sync.Mutex
	records  map[string]*model.AttendanceRecord
	users    *mockUserRepo
	sessions *mockSessionRepo
	calls    *atomic.Int64
	seq      int

	createErr   error // 非空时 Create 直接返回该错误
	staleExists bool  // Exists 恒返回 false，模拟检查与写入之间的竞态
}

func attendanceKey(sessionID, studentID string) string { return sessionID + "|" + studentID }

func (m *mockAttendanceRepo) Create(_ context.Context, rec *model.AttendanceRecord) error {
	m.calls.Add(1)
	if m.createErr != nil {
		return m.createErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := attendanceKey(rec.SessionID, rec.StudentID)
	if _, ok := m.records[key]; ok {
		return pkgerrors.ErrDuplicateKey
	}
	m.seq++
	rec.AttendanceID = fmt.Sprintf("att-%d", m.seq)
	cp := *rec
	m.records[key] = &cp
	return nil
}

func (m *mockAttendanceRepo) Exists(_ context.Context, sessionID, studentID string) (bool, error) {
	m.calls.Add(1)
	if m.staleExists {
		return false, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.records[attendanceKey(sessionID, studentID)]
	return ok, nil
}

func (m *mockAttendanceRepo) ListBySession(_ context.Context, sessionID string) ([]model.AttendanceEntry, error) {
	m.calls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.AttendanceEntry
	for _, r := range m.records {
		if r.SessionID != sessionID {
			continue
		}
		entry := model.AttendanceEntry{AttendanceRecord: *r}
		if u, ok := m.users.users[r.StudentID]; ok {
			entry.StudentName = u.Name
			entry.MatricNo = u.MatricNo
		}
		result = append(result, entry)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CheckedInAt.Before(result[j].CheckedInAt) })
	return result, nil
}

func (m *mockAttendanceRepo) ListByStudent(_ context.Context, studentID string, offset, limit int) ([]model.StudentAttendance, int64, error) {
	m.calls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []model.StudentAttendance
	for _, r := range m.records {
		if r.StudentID != studentID {
			continue
		}
		item := model.StudentAttendance{AttendanceRecord: *r}
		if s, ok := m.sessions.sessions[r.SessionID]; ok {
			item.CourseCode = s.CourseCode
			item.CourseName = s.CourseName
		}
		all = append(all, item)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CheckedInAt.After(all[j].CheckedInAt) })

	total := int64(len(all))
	if limit <= 0 {
		return all, total, nil
	}
	if offset >= len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (m *mockAttendanceRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// ── Mock AttendanceRuleRepository ──

type mockAttendanceRuleRepo struct {
	mu    sync.RWMutex
	rules map[string]*model.AttendanceRule
	calls *atomic.Int64
}

func (m *mockAttendanceRuleRepo) GetBySessionID(_ context.Context, sessionID string) (*model.AttendanceRule, error) {
	m.calls.Add(1)
	m.mu.RLock()
	defer m.mu.RUnlock()
	if r, ok := m.rules[sessionID]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAttendanceRuleRepo) ListBySessionIDs(_ context.Context, sessionIDs []string) ([]model.AttendanceRule, error) {
	m.calls.Add(1)
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []model.AttendanceRule
	for _, id := range sessionIDs {
		if r, ok := m.rules[id]; ok {
			result = append(result, *r)
		}
	}
	return result, nil
}

func (m *mockAttendanceRuleRepo) Upsert(_ context.Context, rule *model.AttendanceRule) error {
	m.calls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *rule
	m.rules[rule.SessionID] = &cp
	return nil
}

// ── Mock EnrollmentRepository ──

type mockEnrollmentRepo struct {
	mu    sync.Mutex
	items map[string]*model.Enrollment
	users *mockUserRepo
	calls *atomic.Int64
}

func (m *mockEnrollmentRepo) BulkCreate(_ context.Context, items []model.Enrollment) (int64, error) {
	m.calls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	var created int64
	for i := range items {
		key := items[i].CourseCode + "|" + items[i].StudentID
		if _, ok := m.items[key]; ok {
			continue
		}
		cp := items[i]
		cp.EnrollmentID = fmt.Sprintf("enr-%d", len(m.items)+1)
		m.items[key] = &cp
		created++
	}
	return created, nil
}

func (m *mockEnrollmentRepo) Exists(_ context.Context, courseCode, studentID string) (bool, error) {
	m.calls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.items[courseCode+"|"+studentID]
	return ok, nil
}

func (m *mockEnrollmentRepo) ListByCourse(_ context.Context, courseCode string) ([]model.EnrollmentEntry, error) {
	m.calls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.EnrollmentEntry
	for _, e := range m.items {
		if e.CourseCode != courseCode {
			continue
		}
		entry := model.EnrollmentEntry{Enrollment: *e}
		if u, ok := m.users.users[e.StudentID]; ok {
			entry.StudentName = u.Name
			entry.MatricNo = u.MatricNo
		}
		result = append(result, entry)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].MatricNo < result[j].MatricNo })
	return result, nil
}
