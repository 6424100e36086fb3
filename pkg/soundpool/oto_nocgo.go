//go:build nocgo
// +build nocgo

package soundpool

import "errors"

// Stub for builds without an audio device backend.

// OtoPool stub for nocgo builds.
type OtoPool struct {
	*basePool
	backend string
}

// NewOtoPool always fails in nocgo builds.
func NewOtoPool(opts Options) (*OtoPool, error) {
	return nil, errors.New("audio not available in nocgo build")
}

func (p *OtoPool) Backend() string { return p.backend }

func (p *OtoPool) Suspend() error { return nil }

func (p *OtoPool) ResumeDevice() error { return nil }
