package telemetry

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"digital_microscope/internal/device"
	"digital_microscope/internal/models"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(body)
}

func TestMetrics_ObserveCommand(t *testing.T) {
	m := NewMetrics()
	m.ObserveCommand("objective change", models.EventCommand)
	m.ObserveCommand("objective change", models.EventCommand)
	m.ObserveCommand("objective change", models.EventDenied)
	m.ObserveCommand("", models.EventInvalid)

	body := scrape(t, m)
	for _, want := range []string{
		`microscope_commands_total{command="objective change",result="COMMAND"} 2`,
		`microscope_commands_total{command="objective change",result="DENIED"} 1`,
		`microscope_commands_total{command="unresolved",result="INVALID"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("missing %q in exposition:\n%s", want, body)
		}
	}
}

func TestMetrics_ObserveState(t *testing.T) {
	m := NewMetrics()
	s := device.DefaultState()
	s.TubeHeight = 8
	s.Objective = 3
	s.IlluminationConfigured = 70
	s.Illumination = device.IlluminationOn
	m.ObserveState(models.NewDeviceSnapshot(s, time.Now()))

	body := scrape(t, m)
	for _, want := range []string{
		"microscope_tube_height 8",
		"microscope_objective 3",
		"microscope_illumination_configured 70",
		"microscope_illumination_on 1",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("missing %q in exposition:\n%s", want, body)
		}
	}
}

func TestMetrics_SeparateRegistries(t *testing.T) {
	// two instances must not collide on registration
	a, b := NewMetrics(), NewMetrics()
	a.ObserveCommand("help", models.EventCommand)
	if strings.Contains(scrape(t, b), `command="help"`) {
		t.Fatalf("metrics leaked between registries")
	}
}
