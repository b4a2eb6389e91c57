package rq

import "errors"

// Errors returned by the render queue.
var (
	// ErrNoDevice is returned by New when the device is nil.
	ErrNoDevice = errors.New("rq: device is nil")

	// ErrNoMaterials is returned by New when the material manager is nil.
	ErrNoMaterials = errors.New("rq: material manager is nil")

	// ErrInvalidConfig wraps every Config validation failure.
	ErrInvalidConfig = errors.New("rq: invalid configuration")

	// ErrNotPrepared is returned when rendering or warming up without a
	// prepared pass.
	ErrNotPrepared = errors.New("rq: no pass prepared")

	// ErrMidRender is the panic value of FrameEnded while a pass is open.
	ErrMidRender = errors.New("rq: frame ended while rendering")

	// ErrBucketSorted is the panic value of adding to a sorted bucket.
	ErrBucketSorted = errors.New("rq: bucket already sorted")

	// ErrBucketMismatch is the panic value of adding an object to a bucket
	// other than its own.
	ErrBucketMismatch = errors.New("rq: object belongs to another bucket")
)
