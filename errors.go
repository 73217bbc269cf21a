package fsr

import "errors"

// Resource-creation errors. These are returned from Registry lifecycle
// methods and are not expected to succeed on retry.
var (
	// ErrNilDevice is returned when a registry is built without a HAL device.
	ErrNilDevice = errors.New("fsr: HAL device is nil")

	// ErrLayoutCreation is returned when the shared binding layout cannot be created.
	ErrLayoutCreation = errors.New("fsr: binding layout creation failed")

	// ErrKernelCreation is returned when a kernel variant fails to compile or link.
	ErrKernelCreation = errors.New("fsr: kernel creation failed")

	// ErrNotInitialized is returned when pipelines are created before Initialize.
	ErrNotInitialized = errors.New("fsr: registry not initialized")

	// ErrAlreadyInitialized is returned when Initialize is called twice
	// without an intervening Destroy.
	ErrAlreadyInitialized = errors.New("fsr: registry already initialized")

	// ErrPipelinesExist is returned when CreatePipelines is called while
	// pipelines from a previous call are still alive.
	ErrPipelinesExist = errors.New("fsr: pipelines already created, destroy them first")
)

// Submission errors. These are returned per frame; the caller is expected
// to fail the whole frame.
var (
	// ErrPipelinesNotCreated is returned when a frame is dispatched without pipelines.
	ErrPipelinesNotCreated = errors.New("fsr: pipelines not created")

	// ErrNilEncoder is returned when a frame carries no command encoder.
	ErrNilEncoder = errors.New("fsr: command encoder is nil")

	// ErrNilBindGroup is returned when a frame is missing a constants or texture bind group.
	ErrNilBindGroup = errors.New("fsr: bind group is nil")

	// ErrNilImage is returned when the image a stage writes or presents is nil.
	ErrNilImage = errors.New("fsr: output image is nil")

	// ErrInvalidResolution is returned for zero-sized or inconsistent resolutions.
	ErrInvalidResolution = errors.New("fsr: invalid resolution")

	// ErrNoBlitter is returned by FinalBlit when the stage has no blitter.
	ErrNoBlitter = errors.New("fsr: no blitter configured")
)
