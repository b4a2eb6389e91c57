// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/rq/pso"
	"github.com/gogpu/wgpu/hal"
)

// ErrNoShader is returned when a state carries no SPIR-V.
var ErrNoShader = errors.New("wgpu: state has no shader")

// PipelineFactory builds render pipelines from pso states. It implements
// pso.Factory.
//
// Every pipeline shares one layout, created from the bind group layouts
// the material system binds. PipelineFactory is safe for concurrent use;
// the HAL device serializes creation internally.
type PipelineFactory struct {
	device hal.Device
	layout hal.PipelineLayout

	mu      sync.Mutex
	created int
}

var _ pso.Factory = (*PipelineFactory)(nil)

// NewPipelineFactory creates the shared pipeline layout.
func NewPipelineFactory(device hal.Device, groups []hal.BindGroupLayout) (*PipelineFactory, error) {
	if device == nil {
		return nil, fmt.Errorf("wgpu: pipeline factory: %w", errNilDevice)
	}
	layout, err := device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "rq_pipeline_layout",
		BindGroupLayouts: groups,
	})
	if err != nil {
		return nil, fmt.Errorf("create rq pipeline layout: %w", err)
	}
	return &PipelineFactory{device: device, layout: layout}, nil
}

var errNilDevice = errors.New("nil hal device")

// CreatePipeline implements pso.Factory.
func (f *PipelineFactory) CreatePipeline(s *pso.State) (hal.RenderPipeline, error) {
	if s == nil {
		return nil, pso.ErrNilState
	}
	if len(s.SPIRV) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNoShader, s.Label)
	}

	module, err := f.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  s.Label,
		Source: hal.ShaderSource{SPIRV: s.SPIRV},
	})
	if err != nil {
		return nil, fmt.Errorf("compile %q shader: %w", s.Label, err)
	}
	// The pipeline keeps what it needs from the module.
	defer f.device.DestroyShaderModule(module)

	desc := &hal.RenderPipelineDescriptor{
		Label:  s.Label,
		Layout: f.layout,
		Vertex: hal.VertexState{
			Module:     module,
			EntryPoint: s.VertexEntry(),
			Buffers:    s.VertexLayouts,
		},
		Primitive: gputypes.PrimitiveState{
			Topology:  s.Topology,
			FrontFace: s.FrontFace,
			CullMode:  s.CullMode,
		},
		Multisample: gputypes.MultisampleState{
			Count: max(s.SampleCount, 1),
			Mask:  0xFFFFFFFF,
		},
	}
	if s.DepthFormat != gputypes.TextureFormatUndefined {
		desc.DepthStencil = &hal.DepthStencilState{
			Format:            s.DepthFormat,
			DepthWriteEnabled: s.DepthWrite,
			DepthCompare:      s.DepthCompare,
			StencilFront:      keepStencil,
			StencilBack:       keepStencil,
		}
	}
	if !s.DepthOnly {
		desc.Fragment = &hal.FragmentState{
			Module:     module,
			EntryPoint: s.FragmentEntry(),
			Targets: []gputypes.ColorTargetState{
				{
					Format:    s.ColorFormat,
					Blend:     s.Blend,
					WriteMask: gputypes.ColorWriteMaskAll,
				},
			},
		}
	}

	pipeline, err := f.device.CreateRenderPipeline(desc)
	if err != nil {
		return nil, fmt.Errorf("create %q pipeline: %w", s.Label, err)
	}
	f.mu.Lock()
	f.created++
	f.mu.Unlock()
	return pipeline, nil
}

var keepStencil = hal.StencilFaceState{
	Compare:     gputypes.CompareFunctionAlways,
	FailOp:      hal.StencilOperationKeep,
	DepthFailOp: hal.StencilOperationKeep,
	PassOp:      hal.StencilOperationKeep,
}

// DestroyPipeline implements pso.Factory.
func (f *PipelineFactory) DestroyPipeline(p hal.RenderPipeline) {
	f.device.DestroyRenderPipeline(p)
}

// Created returns the number of pipelines built.
func (f *PipelineFactory) Created() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.created
}

// Close destroys the shared layout. Pipelines must be destroyed first,
// typically with pso.Cache.DestroyAll.
func (f *PipelineFactory) Close() {
	if f.layout != nil {
		f.device.DestroyPipelineLayout(f.layout)
		f.layout = nil
	}
}
