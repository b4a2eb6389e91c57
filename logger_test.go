package rq

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/gogpu/rq/material"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	orig := Logger()
	t.Cleanup(func() { SetLogger(orig) })

	var buf bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	return &buf
}

func TestSetLoggerRoutesSubpackages(t *testing.T) {
	buf := captureLogs(t)

	caps := Capabilities{Indirect: true, MultithreadedCompile: true}
	q := newTestQueue(t, caps, func(c *Config) { c.Workers = 2 })
	q.add(0, arrayDrawable(1, indexedVAO(1)), 1)

	ctx, cancel := context.WithDeadline(context.Background(), time.Now())
	defer cancel()
	q.render(t, ctx, false)

	out := buf.String()
	for _, want := range []string{
		"material: pass prepared",
		"compile: pipelines incomplete",
		"rq: rendered",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}

func TestSetLoggerNilSilencesSubpackages(t *testing.T) {
	buf := captureLogs(t)
	SetLogger(nil)

	if Logger().Enabled(context.Background(), slog.LevelError) {
		t.Error("SetLogger(nil) left rq logging enabled")
	}
	s, err := material.NewStandard(material.Unlit, material.StandardOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.PreparePass(material.PassInfo{Name: "silent"}, false, false); err != nil {
		t.Fatal(err)
	}
	if buf.Len() != 0 {
		t.Errorf("material logged after SetLogger(nil): %q", buf.String())
	}
}
