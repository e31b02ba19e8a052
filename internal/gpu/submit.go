//go:build !nogpu

package gpu

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gogpu/wgpu/hal"
)

const (
	// defaultWaitTimeout bounds one wait for a submission.
	defaultWaitTimeout = 5 * time.Second

	// pollInterval is the sleep between completion polls.
	pollInterval = 100 * time.Microsecond
)

type pendingCommands struct {
	index uint64
	enc   hal.CommandEncoder
	cmds  hal.CommandBuffer
}

func (p pendingCommands) free(device hal.Device) {
	p.enc.ResetAll([]hal.CommandBuffer{p.cmds})
	device.FreeCommandBuffer(p.cmds)
	p.enc.Destroy()
}

// submitter records command buffers, submits them, and waits for their
// completion. Command buffers are freed once the queue reports their
// submission complete.
type submitter struct {
	device  hal.Device
	queue   hal.Queue
	timeout time.Duration

	mu      sync.Mutex
	pending []pendingCommands
	last    uint64
}

func newSubmitter(device hal.Device, queue hal.Queue) *submitter {
	return &submitter{device: device, queue: queue, timeout: defaultWaitTimeout}
}

// submit records one command buffer with record and submits it.
// It returns the submission index to wait on.
func (s *submitter) submit(label string, record func(enc hal.CommandEncoder) error) (uint64, error) {
	enc, err := s.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: label})
	if err != nil {
		return 0, fmt.Errorf("gpu: create %s encoder: %w", label, err)
	}
	if err := enc.BeginEncoding(label); err != nil {
		enc.Destroy()
		return 0, fmt.Errorf("gpu: begin %s encoding: %w", label, err)
	}
	if err := record(enc); err != nil {
		enc.DiscardEncoding()
		enc.Destroy()
		return 0, err
	}
	cmds, err := enc.EndEncoding()
	if err != nil {
		enc.Destroy()
		return 0, fmt.Errorf("gpu: end %s encoding: %w", label, err)
	}

	p := pendingCommands{enc: enc, cmds: cmds}
	p.index, err = s.queue.Submit([]hal.CommandBuffer{cmds})
	if err != nil {
		p.free(s.device)
		return 0, fmt.Errorf("gpu: submit %s: %w", label, err)
	}
	index := p.index

	s.mu.Lock()
	s.pending = append(s.pending, p)
	s.last = index
	s.mu.Unlock()

	slogger().Debug("gpu: submitted", "label", label, "index", index)
	return index, nil
}

// completed reports whether the submission index has finished.
func (s *submitter) completed(index uint64) bool {
	return s.queue.PollCompleted() >= index
}

// wait blocks until the submission index has completed, ctx is done, or
// the wait timeout passes.
func (s *submitter) wait(ctx context.Context, index uint64) error {
	if s.completed(index) {
		s.reclaim()
		return nil
	}

	deadline := time.NewTimer(s.timeout)
	defer deadline.Stop()
	poll := time.NewTicker(pollInterval)
	defer poll.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return fmt.Errorf("gpu: submission %d not complete after %v", index, s.timeout)
		case <-poll.C:
			if s.completed(index) {
				s.reclaim()
				return nil
			}
		}
	}
}

// waitLast waits for the most recent submission.
func (s *submitter) waitLast(ctx context.Context) error {
	s.mu.Lock()
	last := s.last
	s.mu.Unlock()
	return s.wait(ctx, last)
}

// reclaim frees command buffers whose submissions have completed.
func (s *submitter) reclaim() {
	done := s.queue.PollCompleted()

	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.pending[:0]
	for _, p := range s.pending {
		if p.index <= done {
			p.free(s.device)
			continue
		}
		kept = append(kept, p)
	}
	s.pending = kept
}

// release waits for the last submission and for the device to go idle,
// then frees every pending command buffer.
func (s *submitter) release() {
	if err := s.waitLast(context.Background()); err != nil {
		slogger().Warn("gpu: last submission did not complete", "err", err)
	}
	if err := s.device.WaitIdle(); err != nil {
		slogger().Warn("gpu: wait idle failed", "err", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.pending {
		p.free(s.device)
	}
	s.pending = nil
}
