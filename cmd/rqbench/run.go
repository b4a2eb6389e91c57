package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gogpu/rq"
	"github.com/gogpu/rq/backend"
	"github.com/gogpu/rq/backend/record"
	rqwgpu "github.com/gogpu/rq/backend/wgpu"
	"github.com/gogpu/rq/indirect"
	"github.com/gogpu/rq/material"
	"github.com/gogpu/rq/pso"
)

// bench is a queue wired to a backend and the standard material system.
type bench struct {
	b         backend.RenderBackend
	q         *rq.RenderQueue
	std       *material.Standard
	scene     *scene
	pipelines *pso.Cache
	factory   *rqwgpu.PipelineFactory
}

func newBench(v *viper.Viper, opts *options) (*bench, error) {
	cfg, err := queueConfig(v, opts)
	if err != nil {
		return nil, err
	}

	b := backend.Get(opts.backend)
	if b == nil {
		return nil, fmt.Errorf("%w: %q", backend.ErrBackendNotAvailable, opts.backend)
	}
	if err := b.Init(); err != nil {
		return nil, fmt.Errorf("init %s backend: %w", opts.backend, err)
	}
	rq.Logger().Info("rqbench: backend selected", "name", b.Name())

	dev := b.Device()
	stdOpts := material.StandardOptions{ShaderCacheSize: cfg.ShaderCacheSize}
	if up, ok := dev.(indirect.Uploader); ok {
		stdOpts.Uploader = up
	}
	bn := &bench{b: b}
	if hd, ok := dev.(*rqwgpu.Device); ok {
		// Real pipelines are only built on a GPU device.
		bn.factory, err = rqwgpu.NewPipelineFactory(hd.HalDevice(), nil)
		if err != nil {
			b.Close()
			return nil, err
		}
		bn.pipelines, err = pso.NewCache(bn.factory, cfg.PipelineCacheSize)
		if err != nil {
			bn.close()
			return nil, err
		}
		stdOpts.Pipelines = bn.pipelines
	}
	std, err := material.NewStandard(material.Unlit, stdOpts)
	if err != nil {
		bn.close()
		return nil, err
	}
	mgr, err := material.NewManager(std)
	if err != nil {
		bn.close()
		return nil, err
	}
	bn.q, err = rq.New(dev, mgr, cfg)
	if err != nil {
		bn.close()
		return nil, err
	}
	bn.std = std
	bn.scene = buildScene(opts.objects, opts.seed)
	return bn, nil
}

func (bn *bench) close() {
	if bn.q != nil {
		bn.q.Close()
	}
	if bn.pipelines != nil {
		bn.pipelines.DestroyAll()
	}
	if bn.factory != nil {
		bn.factory.Close()
	}
	bn.b.Close()
}

// recorder returns the record device, or nil on other backends.
func (bn *bench) recorder() *record.Device {
	if rb, ok := bn.b.(*record.Backend); ok {
		return rb.Recorder()
	}
	return nil
}

// frame renders the scene once and returns its report.
func (bn *bench) frame(ctx context.Context, n int, caster bool) (frameReport, error) {
	rep := frameReport{Frame: n}
	rec := bn.recorder()
	if rec != nil {
		rec.Reset()
	}

	start := time.Now()
	bn.scene.submit(bn.q, caster)
	rep.Collect = time.Since(start)

	start = time.Now()
	if err := bn.q.Prepare(passInfo(), caster, false); err != nil {
		return rep, err
	}
	if err := bn.q.Render(ctx, 0, rq.NumBuckets, caster, false); err != nil {
		return rep, err
	}
	rep.Render = time.Since(start)
	rep.Pool = bn.q.Pool().Stats()

	bn.q.Clear()
	bn.q.FrameEnded()

	if rec != nil {
		snap := rec.Snapshot()
		rep.Metrics = snap.Metrics
		rep.Incomplete = snap.Incomplete
		rep.Calls = len(snap.Calls)
		rep.Draws = len(snap.Draws())
	}
	return rep, nil
}

func newRunCmd(v *viper.Viper, opts *options) *cobra.Command {
	var frames int
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Render the synthetic scene for a number of frames",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if frames <= 0 {
				return fmt.Errorf("frames must be positive, got %d", frames)
			}
			bn, err := newBench(v, opts)
			if err != nil {
				return err
			}
			defer bn.close()

			s := bn.scene
			printInfo(fmt.Sprintf("%d objects: %d arrays, %d legacy, %d particles on %s",
				len(s.items), s.arrays, s.legacy, s.particles, bn.b.Name()))

			out := cmd.OutOrStdout()
			start := time.Now()
			var total rq.Metrics
			for f := range frames {
				rep, err := bn.frame(cmd.Context(), f, opts.caster)
				if err != nil {
					return fmt.Errorf("frame %d: %w", f, err)
				}
				total.Add(rep.Metrics)
				rep.print(out)
			}
			printTotals(out, frames, total, bn.std.Compiled(), since(start))
			return nil
		},
	}
	cmd.Flags().IntVarP(&frames, "frames", "n", 10, "frames to render")
	return cmd
}

func newWarmupCmd(v *viper.Viper, opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "warmup",
		Short: "Compile the scene's pipelines ahead of rendering",
		RunE: func(cmd *cobra.Command, _ []string) error {
			bn, err := newBench(v, opts)
			if err != nil {
				return err
			}
			defer bn.close()

			start := time.Now()
			bn.scene.submit(bn.q, opts.caster)
			if err := bn.q.Prepare(passInfo(), opts.caster, false); err != nil {
				return err
			}
			if err := bn.q.WarmUpCollect(0, rq.NumBuckets, opts.caster); err != nil {
				return err
			}
			if err := bn.q.WarmUpTrigger(cmd.Context()); err != nil {
				return err
			}
			bn.q.Clear()
			bn.q.FrameEnded()

			printInfo(fmt.Sprintf("warm-up compiled %d pipeline states in %s", bn.std.Compiled(), since(start)))
			return nil
		},
	}
}
