package batch

import (
	"errors"
	"fmt"
	"sync"

	"vr-hmd-renderer/internal/session"
)

// Pipeline is a session backend that writes every Every-th frame to
// frames/<index>-<mode>.<format> under the output directory.
type Pipeline struct {
	cfg   Config
	Every uint64

	mu      sync.Mutex
	results []Result
}

func NewPipeline(cfg Config, every uint64) *Pipeline {
	return &Pipeline{cfg: cfg, Every: max(every, 1)}
}

// Draw implements session.Backend. A frame that cannot be written ends the
// session.
func (p *Pipeline) Draw(in session.FrameInput) error {
	if in.Index%p.Every != 0 {
		return nil
	}
	name := fmt.Sprintf("frames/%06d-%s", in.Index, in.Mode)
	res := Process(p.cfg, in, name)

	p.mu.Lock()
	p.results = append(p.results, res)
	p.mu.Unlock()

	if !res.Success {
		return errors.New(res.Error)
	}
	return nil
}

// Results returns the frames written so far.
func (p *Pipeline) Results() []Result {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Result(nil), p.results...)
}
