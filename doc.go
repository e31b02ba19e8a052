// Package pingpong is a GPU ping-pong counter.
//
// # Overview
//
// A small vector of floats lives on the GPU. Every tick a compute pass
// reads the vector from one buffer and writes (v + 1) mod M into the other,
// the new values are copied into an RGBA32Float state texture, and a
// present pass plots one red point per scalar whose intensity is the value
// divided by a normalization maximum. The texture and the rendered points
// are read back to host memory for inspection. The two buffers then swap
// roles, so no pass ever reads and writes the same buffer.
//
// # Quick Start
//
//	import (
//	    "github.com/gogpu/pingpong"
//	    _ "github.com/gogpu/pingpong/gpu" // registers the GPU device
//	)
//
//	cfg, _ := pingpong.NewConfig(pingpong.WithVectorLength(8))
//	dev, err := pingpong.OpenDevice(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer dev.Close()
//
//	s, _ := pingpong.NewScheduler(dev, pingpong.WithSink(pingpong.NewTextSink(os.Stdout)))
//	frame, _ := s.Tick(ctx) // Pixel Buffer Object Data: 1, 2, 3, 4, 5, 6, 7, 8
//
// # Tick Protocol
//
// A tick walks the state machine
//
//	Idle -> ComputeIssued -> FeedbackCaptured -> TextureSynced -> Rendered -> ReadBack -> Idle
//
// and commits by swapping the buffer roles. A failed step abandons the
// tick without swapping; the next tick recomputes from the same state.
//
// # Backends
//
// Without the gpu package imported, or when no adapter is found, OpenDevice
// uses SoftwareDevice, which performs the same arithmetic in host memory.
package pingpong

// Version information
const (
	// Version is the current version of the library
	Version = "0.1.0"

	// VersionMajor is the major version
	VersionMajor = 0

	// VersionMinor is the minor version
	VersionMinor = 1

	// VersionPatch is the patch version
	VersionPatch = 0
)
