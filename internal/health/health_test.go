package health

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func TestTracker_Statuses(t *testing.T) {
	c := &clock{t: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)}
	tr := NewTracker("llm_client")
	tr.now = c.now

	h := tr.HealthCheck()
	assert.Equal(t, "unknown", h.Status)
	assert.Equal(t, "llm_client", h.Name)

	tr.Record(nil)
	assert.Equal(t, "ok", tr.HealthCheck().Status)

	c.t = c.t.Add(time.Second)
	tr.Record(errors.New("HTTP 429"))
	h = tr.HealthCheck()
	assert.Equal(t, "error", h.Status)
	assert.Equal(t, "HTTP 429", h.Message)

	c.t = c.t.Add(time.Second)
	tr.Record(nil)
	h = tr.HealthCheck()
	assert.Equal(t, "degraded", h.Status)
	assert.Equal(t, "recent error: HTTP 429", h.Message)

	c.t = c.t.Add(10 * time.Minute)
	assert.Equal(t, "ok", tr.HealthCheck().Status)

	ok, failed := tr.Counts()
	assert.Equal(t, int64(2), ok)
	assert.Equal(t, int64(1), failed)
}

func TestTracker_NilRecord(t *testing.T) {
	var tr *Tracker
	assert.NotPanics(t, func() { tr.Record(errors.New("x")) })
}

func fixed(status string) Checker {
	return CheckerFunc(func() ComponentHealth { return ComponentHealth{Status: status} })
}

func TestRegistry_Check(t *testing.T) {
	tests := []struct {
		name     string
		statuses map[string]string
		want     string
	}{
		{"empty", nil, "ok"},
		{"all ok", map[string]string{"a": "ok", "b": "ok"}, "ok"},
		{"unknown is not a failure", map[string]string{"a": "ok", "b": "unknown"}, "ok"},
		{"degraded", map[string]string{"a": "ok", "b": "degraded"}, "degraded"},
		{"error wins", map[string]string{"a": "degraded", "b": "error", "c": "ok"}, "error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry()
			for name, s := range tt.statuses {
				r.Register(name, fixed(s))
			}
			rep := r.Check()
			assert.Equal(t, tt.want, rep.Status)
			assert.Len(t, rep.Components, len(tt.statuses))
			assert.False(t, rep.Timestamp.IsZero())
		})
	}
}

func TestRegistry_Names(t *testing.T) {
	r := NewRegistry()
	r.Register("llm_client", fixed("ok"))
	r.Register("database", fixed("ok"))
	r.Register("cloudinary", fixed("ok"))
	assert.Equal(t, []string{"cloudinary", "database", "llm_client"}, r.Names())
}
