package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"esp32_supervisor/internal/models"
	"esp32_supervisor/internal/service"
	"esp32_supervisor/internal/store"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockAuth struct {
	signUpID      int
	signUpErr     error
	genTokenToken string
	genTokenErr   error
	parseID       int
	parseErr      error

	lastSignUpUsername string
	lastSignUpPassword string
	lastGenUsername    string
	lastGenPassword    string
	lastParseToken     string
}

func (m *mockAuth) SignUp(ctx context.Context, username, password string) (int, error) {
	m.lastSignUpUsername = username
	m.lastSignUpPassword = password
	return m.signUpID, m.signUpErr
}
func (m *mockAuth) GenerateToken(ctx context.Context, username, password string) (string, error) {
	m.lastGenUsername = username
	m.lastGenPassword = password
	return m.genTokenToken, m.genTokenErr
}
func (m *mockAuth) ParseToken(token string) (int, error) {
	m.lastParseToken = token
	return m.parseID, m.parseErr
}

type mockMonitoring struct {
	mu        sync.Mutex
	state     models.SupervisorState
	err       error
	listeners []func()
	closed    int
}

func (m *mockMonitoring) GetState(ctx context.Context) (models.SupervisorState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state, m.err
}

func (m *mockMonitoring) Subscribe(fn func()) store.Subscription {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
	return mockSub(func() error {
		m.mu.Lock()
		m.closed++
		m.mu.Unlock()
		return nil
	})
}

// setState replaces the state and signals every listener.
func (m *mockMonitoring) setState(st models.SupervisorState) {
	m.mu.Lock()
	m.state = st
	fns := append([]func(){}, m.listeners...)
	m.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (m *mockMonitoring) listenerCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.listeners)
}

func (m *mockMonitoring) closedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

type mockSub func() error

func (f mockSub) Close() error { return f() }

type mockRelay struct {
	on      bool
	err     error
	toggles int
}

func (m *mockRelay) Toggle(ctx context.Context) (bool, error) {
	m.toggles++
	if m.err != nil {
		return m.on, m.err
	}
	m.on = !m.on
	return m.on, nil
}

type mockSetpoint struct {
	value    int
	gesture  service.GestureState
	setErr   error
	startErr error
	moveErr  error
	endErr   error

	lastHeight float64
	lastDelta  float64
	calls      []string
}

func (m *mockSetpoint) Value() int { return m.value }
func (m *mockSetpoint) Set(temp int) error {
	m.calls = append(m.calls, "set")
	if m.setErr != nil {
		return m.setErr
	}
	m.value = temp
	return nil
}
func (m *mockSetpoint) SetTrackHeight(px float64) {
	m.calls = append(m.calls, "track")
	m.lastHeight = px
	m.gesture.TrackHeightPx = px
}
func (m *mockSetpoint) Start() error {
	m.calls = append(m.calls, "start")
	if m.startErr != nil {
		return m.startErr
	}
	m.gesture.Dragging = true
	return nil
}
func (m *mockSetpoint) Move(deltaPx float64) (int, error) {
	m.calls = append(m.calls, "move")
	m.lastDelta = deltaPx
	return m.value, m.moveErr
}
func (m *mockSetpoint) End() error {
	m.calls = append(m.calls, "end")
	if m.endErr != nil {
		return m.endErr
	}
	m.gesture.Dragging = false
	return nil
}
func (m *mockSetpoint) Gesture() service.GestureState {
	g := m.gesture
	g.Setpoint = m.value
	return g
}

type mockEventLog struct {
	resp       []models.RelayEvent
	err        error
	lastFrom   time.Time
	lastTo     time.Time
	lastType   string
	lastWriter string
	calls      int
}

func (m *mockEventLog) List(ctx context.Context, f service.LogFilter) ([]models.RelayEvent, error) {
	m.calls++
	m.lastFrom = f.From
	m.lastTo = f.To
	m.lastType = f.Type
	m.lastWriter = f.Writer
	return m.resp, m.err
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	h := NewHandler(s, nil)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}

// authedRequest builds a request carrying a bearer token accepted by mockAuth.
func authedRequest(method, target string, body string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vv := range authHeader("valid") {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	return req
}
