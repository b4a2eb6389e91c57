package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/spf13/viper"

	"github.com/gogpu/rq"
	"github.com/gogpu/rq/backend"
)

func TestParseBuckets(t *testing.T) {
	got, err := parseBuckets([]string{"0:10:particle", "20:30:v1-legacy"})
	if err != nil {
		t.Fatalf("parseBuckets() error = %v", err)
	}
	want := []rq.BucketRange{{First: 0, Last: 10, Mode: "particle"}, {First: 20, Last: 30, Mode: "v1-legacy"}}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("parseBuckets() = %v, want %v", got, want)
	}

	for _, bad := range []string{"1:2", "a:2:fast", "1:b:fast"} {
		if _, err := parseBuckets([]string{bad}); err == nil {
			t.Errorf("parseBuckets(%q) error = nil", bad)
		}
	}
}

func TestBuildSceneDeterministic(t *testing.T) {
	a := buildScene(500, 7)
	b := buildScene(500, 7)
	if a.arrays != b.arrays || a.legacy != b.legacy || a.particles != b.particles {
		t.Errorf("same seed gave different scenes: %+v vs %+v", a, b)
	}
	if a.arrays+a.legacy+a.particles != 500 {
		t.Errorf("kinds sum to %d, want 500", a.arrays+a.legacy+a.particles)
	}
	if a.legacy == 0 || a.particles == 0 {
		t.Errorf("scene lacks variety: %d legacy, %d particles", a.legacy, a.particles)
	}
}

func TestQueueConfigOverrides(t *testing.T) {
	v := viper.New()
	v.Set("workers", 3)
	v.Set("buckets", []string{"40:50:v1-legacy"})

	cfg, err := queueConfig(v, &options{})
	if err != nil {
		t.Fatalf("queueConfig() error = %v", err)
	}
	if cfg.Workers != 3 {
		t.Errorf("Workers = %d, want 3", cfg.Workers)
	}
	last := cfg.Buckets[len(cfg.Buckets)-1]
	if last.First != 40 || last.Mode != "v1-legacy" {
		t.Errorf("last bucket range = %+v", last)
	}

	v.Set("buckets", []string{"0:300:fast"})
	if _, err := queueConfig(v, &options{}); err == nil {
		t.Error("queueConfig() accepted an out-of-range bucket")
	}
}

func TestBackendsCommand(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"backends"})
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("backends error = %v", err)
	}
	for _, name := range []string{backend.BackendRecord, backend.BackendWGPU} {
		if !strings.Contains(out.String(), name) {
			t.Errorf("output %q lacks %q", out.String(), name)
		}
	}
}
