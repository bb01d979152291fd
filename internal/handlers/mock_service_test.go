package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"digital_microscope/internal/models"
	"digital_microscope/internal/service"
	"digital_microscope/internal/shell"

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
	operators     int

	lastSignUpUsername string
	lastSignUpPassword string
	lastGenUsername    string
	lastGenPassword    string
	lastParseToken     string
}

func (m *mockAuth) SignUp(_ context.Context, username, password string) (int, error) {
	m.lastSignUpUsername = username
	m.lastSignUpPassword = password
	return m.signUpID, m.signUpErr
}
func (m *mockAuth) GenerateToken(_ context.Context, username, password string) (string, error) {
	m.lastGenUsername = username
	m.lastGenPassword = password
	return m.genTokenToken, m.genTokenErr
}
func (m *mockAuth) ParseToken(token string) (int, error) {
	m.lastParseToken = token
	return m.parseID, m.parseErr
}
func (m *mockAuth) Operators(context.Context) (int, error) {
	return m.operators, nil
}

type mockConsole struct {
	mu       sync.Mutex
	result   shell.Result
	err      error
	lines    []string
	sources  []string
	commands []string
}

func (m *mockConsole) Exec(_ context.Context, source, line string) (shell.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lines = append(m.lines, line)
	m.sources = append(m.sources, source)
	return m.result, m.err
}
func (m *mockConsole) Restore(context.Context) (bool, error) { return false, nil }
func (m *mockConsole) Commands() []string { return m.commands }

func (m *mockConsole) calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.lines...)
}

type mockMonitoring struct {
	state models.DeviceSnapshot
	err   error
}

func (m *mockMonitoring) GetState(ctx context.Context) (models.DeviceSnapshot, error) {
	return m.state, m.err
}

type mockEventLog struct {
	resp     []models.CommandEvent
	err      error
	lastFrom time.Time
	lastTo   time.Time
	lastKind string
}

func (m *mockEventLog) List(ctx context.Context, f service.LogFilter) ([]models.CommandEvent, error) {
	m.lastFrom = f.From
	m.lastTo = f.To
	m.lastKind = f.Kind
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
