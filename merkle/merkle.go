// Package merkle implements the Merkle driver (spec.md §4.7, §8): it
// recursively composes any number of leaf artifacts into a single K8P2
// blob, and inverts that composition given only the leaf count. The core
// fit/reconstruct round trip is left entirely to internal/timemap; this
// package merely knows how to fold many children down to one target and
// back, per spec.md's "it merely composes the core recursively" framing.
package merkle

import (
	"errors"
	"fmt"

	"github.com/y3llowvests/k8dnz/internal/container"
	"github.com/y3llowvests/k8dnz/internal/k8err"
	"github.com/y3llowvests/k8dnz/internal/timemap"
)

var (
	ErrNoLeaves    = errors.New("merkle: no leaves to pack")
	ErrEmptyLeaf   = errors.New("merkle: leaf data is empty")
	ErrPackValidation = errors.New("merkle: validation failed")
)

// Packer assembles leaf blobs into one composed K8P2 root, the same
// "accumulate then assemble" shape as mux.Muxer: leaves are added one at a
// time and Pack() performs the recursive K8P2 composition once all of them
// are known.
type Packer struct {
	leaves [][]byte
}

// NewPacker creates a new Packer.
func NewPacker() *Packer {
	return &Packer{}
}

// AddLeaf appends a leaf blob.
func (p *Packer) AddLeaf(data []byte) error {
	if len(data) == 0 {
		return ErrEmptyLeaf
	}
	p.leaves = append(p.leaves, data)
	return nil
}

// NumLeaves returns the number of leaves added so far.
func (p *Packer) NumLeaves() int {
	return len(p.leaves)
}

// Pack composes all added leaves into a single root blob. A single leaf is
// returned unpacked, matching Decompose's n==1 base case.
func (p *Packer) Pack() ([]byte, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	return Compose(p.leaves)
}

func (p *Packer) validate() error {
	if len(p.leaves) == 0 {
		return ErrNoLeaves
	}
	for i, l := range p.leaves {
		if len(l) == 0 {
			return fmt.Errorf("%w: leaf %d is empty", ErrPackValidation, i)
		}
	}
	return nil
}

// Unpacker inverts a Packer's composition, given the root blob and the
// original leaf count (the count fully determines the split tree shape, so
// no extra framing is carried in the root blob itself).
type Unpacker struct {
	root      []byte
	leafCount int
}

// NewUnpacker creates a new Unpacker for root, expecting leafCount leaves.
func NewUnpacker(root []byte, leafCount int) *Unpacker {
	return &Unpacker{root: root, leafCount: leafCount}
}

// Leaves recovers the original leaf blobs.
func (u *Unpacker) Leaves() ([][]byte, error) {
	return Decompose(u.root, u.leafCount)
}

// Compose recursively packs leaves into one root blob via K8P2, splitting
// each range at splitIndex so Decompose can invert it knowing only the
// original leaf count.
func Compose(leaves [][]byte) ([]byte, error) {
	if len(leaves) == 0 {
		return nil, k8err.New(k8err.ParamMismatch, "merkle: no leaves to compose")
	}
	return composeRange(leaves), nil
}

func composeRange(leaves [][]byte) []byte {
	if len(leaves) == 1 {
		return leaves[0]
	}
	k := splitIndex(len(leaves))
	left := composeRange(leaves[:k])
	right := composeRange(leaves[k:])
	return container.K8P2{A: left, B: right}.Pack()
}

// splitIndex returns the largest power of two strictly less than n (for
// n > 1), the RFC 6962-style Merkle split point: the left child always
// gets a power-of-two-sized prefix, which makes the split recoverable from
// n alone without storing the tree shape anywhere.
func splitIndex(n int) int {
	k := 1
	for k*2 < n {
		k *= 2
	}
	return k
}

// Decompose inverts Compose given the original leaf count.
func Decompose(root []byte, leafCount int) ([][]byte, error) {
	if leafCount <= 0 {
		return nil, k8err.New(k8err.ParamMismatch, "merkle: leaf_count must be positive")
	}
	leaves := make([][]byte, 0, leafCount)
	if err := decomposeRange(root, leafCount, &leaves); err != nil {
		return nil, err
	}
	return leaves, nil
}

func decomposeRange(blob []byte, n int, out *[][]byte) error {
	if n == 1 {
		*out = append(*out, blob)
		return nil
	}
	k := splitIndex(n)
	p, err := container.UnpackK8P2(blob)
	if err != nil {
		return err
	}
	if err := decomposeRange(p.A, k, out); err != nil {
		return err
	}
	return decomposeRange(p.B, n-k, out)
}

// Fit composes leaves into a root blob and fits it against cfg's generator
// stream as a single opaque target, per spec.md §8's K8P2 Merkle
// acceptance test: the composed blob is just another byte target as far as
// the fitter is concerned.
func Fit(cfg timemap.FitConfig, leaves [][]byte) (timemap.FitResult, error) {
	root, err := Compose(leaves)
	if err != nil {
		return timemap.FitResult{}, err
	}
	return timemap.FitWindow(cfg, root)
}

// Reconstruct inverts Fit: it reconstructs the composed root blob and then
// decomposes it back into the original leaves.
func Reconstruct(cfg timemap.ReconstructConfig, tm1 container.TM1, residualSymbols []byte, leafCount int) ([][]byte, error) {
	root, err := timemap.Reconstruct(cfg, tm1, residualSymbols)
	if err != nil {
		return nil, err
	}
	return Decompose(root, leafCount)
}
