package rq

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// NumBuckets is the number of render queue buckets.
const NumBuckets = 256

// BucketRange assigns Mode to the buckets in [First, Last).
type BucketRange struct {
	First int    `yaml:"first"`
	Last  int    `yaml:"last"`
	Mode  string `yaml:"mode"`
}

// Config holds the render queue settings.
type Config struct {
	// Workers is the number of collection threads and compile workers.
	// Zero means GOMAXPROCS.
	Workers int `yaml:"workers"`

	// PipelineTimeout bounds deferred pipeline compilation in non-caster
	// passes. Zero means no limit.
	PipelineTimeout time.Duration `yaml:"pipeline_timeout"`

	// Buckets overrides the default ModeFast for ranges of buckets.
	Buckets []BucketRange `yaml:"buckets"`

	// ParticleBucket is put in ModeParticle. -1 leaves every bucket to
	// Buckets.
	ParticleBucket int `yaml:"particle_bucket"`

	// InstancedStereo draws every instance twice, once per eye.
	InstancedStereo bool `yaml:"instanced_stereo"`

	// IndirectLabel is the debug label of pooled indirect buffers.
	IndirectLabel string `yaml:"indirect_label"`

	// ShaderCacheSize bounds the compiled shader variants per material
	// system.
	ShaderCacheSize int `yaml:"shader_cache_size"`

	// PipelineCacheSize bounds the render pipelines kept by a backend.
	PipelineCacheSize int `yaml:"pipeline_cache_size"`
}

// DefaultConfig returns the default settings: buckets [100,200) and
// [225,256) in ModeV1Fast, bucket 15 in ModeParticle, everything else in
// ModeFast.
func DefaultConfig() Config {
	return Config{
		Buckets: []BucketRange{
			{First: 100, Last: 200, Mode: ModeV1Fast.String()},
			{First: 225, Last: 256, Mode: ModeV1Fast.String()},
		},
		ParticleBucket:    15,
		IndirectLabel:     "rq-indirect",
		ShaderCacheSize:   64,
		PipelineCacheSize: 512,
	}
}

// LoadConfig reads a YAML config file. Missing keys keep their defaults.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("rq: read config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes YAML over DefaultConfig and validates the result.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("rq: parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every field. Errors wrap ErrInvalidConfig.
func (c *Config) Validate() error {
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers %d", ErrInvalidConfig, c.Workers)
	}
	if c.PipelineTimeout < 0 {
		return fmt.Errorf("%w: pipeline_timeout %v", ErrInvalidConfig, c.PipelineTimeout)
	}
	for i, r := range c.Buckets {
		if r.First < 0 || r.Last > NumBuckets || r.First >= r.Last {
			return fmt.Errorf("%w: buckets[%d]: range [%d,%d)", ErrInvalidConfig, i, r.First, r.Last)
		}
		if _, err := ParseMode(r.Mode); err != nil {
			return fmt.Errorf("%w: buckets[%d]: %w", ErrInvalidConfig, i, err)
		}
	}
	if c.ParticleBucket < -1 || c.ParticleBucket >= NumBuckets {
		return fmt.Errorf("%w: particle_bucket %d", ErrInvalidConfig, c.ParticleBucket)
	}
	if c.ShaderCacheSize <= 0 {
		return fmt.Errorf("%w: shader_cache_size %d", ErrInvalidConfig, c.ShaderCacheSize)
	}
	if c.PipelineCacheSize <= 0 {
		return fmt.Errorf("%w: pipeline_cache_size %d", ErrInvalidConfig, c.PipelineCacheSize)
	}
	return nil
}

// modes returns the initial mode of every bucket.
func (c *Config) modes() [NumBuckets]Mode {
	var m [NumBuckets]Mode
	for i := range m {
		m[i] = ModeFast
	}
	for _, r := range c.Buckets {
		mode, _ := ParseMode(r.Mode)
		for id := r.First; id < r.Last; id++ {
			m[id] = mode
		}
	}
	if c.ParticleBucket >= 0 {
		m[c.ParticleBucket] = ModeParticle
	}
	return m
}
