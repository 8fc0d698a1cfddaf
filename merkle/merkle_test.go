package merkle

import (
	"bytes"
	"testing"

	"github.com/y3llowvests/k8dnz"
	"github.com/y3llowvests/k8dnz/internal/bitmap"
	"github.com/y3llowvests/k8dnz/internal/container"
	"github.com/y3llowvests/k8dnz/internal/timemap"
)

func mustRecipe(t *testing.T) k8dnz.Recipe {
	t.Helper()
	r, err := k8dnz.New(k8dnz.TunedProfile())
	if err != nil {
		t.Fatalf("New(TunedProfile()): %v", err)
	}
	return r
}

func TestComposeDecomposeRoundTripsTwoLeaves(t *testing.T) {
	a := bytes.Repeat([]byte{0xAA}, 2343)
	b := bytes.Repeat([]byte{0xBB}, 2344)

	root, err := Compose([][]byte{a, b})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	want := container.K8P2{A: a, B: b}.Pack()
	if !bytes.Equal(root, want) {
		t.Fatalf("two-leaf Compose must equal a direct K8P2 pack")
	}

	leaves, err := Decompose(root, 2)
	if err != nil {
		t.Fatalf("Decompose: %v", err)
	}
	if !bytes.Equal(leaves[0], a) || !bytes.Equal(leaves[1], b) {
		t.Fatalf("Decompose did not recover the original leaves")
	}
}

func TestComposeDecomposeRoundTripsOddLeafCount(t *testing.T) {
	leaves := [][]byte{
		[]byte("leaf-zero"),
		[]byte("leaf-one-longer"),
		[]byte("leaf-two"),
		[]byte("leaf-three-also-longer-still"),
		[]byte("leaf-four"),
	}
	root, err := Compose(leaves)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	got, err := Decompose(root, len(leaves))
	if err != nil {
		t.Fatalf("Decompose: %v", err)
	}
	if len(got) != len(leaves) {
		t.Fatalf("got %d leaves, want %d", len(got), len(leaves))
	}
	for i := range leaves {
		if !bytes.Equal(got[i], leaves[i]) {
			t.Fatalf("leaf %d mismatch: got %q want %q", i, got[i], leaves[i])
		}
	}
}

func TestComposeSingleLeafIsUnwrapped(t *testing.T) {
	leaf := []byte("only one leaf")
	root, err := Compose([][]byte{leaf})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if !bytes.Equal(root, leaf) {
		t.Fatalf("single-leaf Compose must return the leaf unmodified")
	}
}

func TestComposeRejectsNoLeaves(t *testing.T) {
	if _, err := Compose(nil); err == nil {
		t.Fatalf("expected error composing zero leaves")
	}
}

func TestPackerUnpackerRoundTrip(t *testing.T) {
	p := NewPacker()
	leaves := [][]byte{[]byte("alpha"), []byte("beta"), []byte("gamma")}
	for _, l := range leaves {
		if err := p.AddLeaf(l); err != nil {
			t.Fatalf("AddLeaf: %v", err)
		}
	}
	root, err := p.Pack()
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}
	u := NewUnpacker(root, p.NumLeaves())
	got, err := u.Leaves()
	if err != nil {
		t.Fatalf("Leaves: %v", err)
	}
	for i := range leaves {
		if !bytes.Equal(got[i], leaves[i]) {
			t.Fatalf("leaf %d mismatch: got %q want %q", i, got[i], leaves[i])
		}
	}
}

func TestPackerRejectsEmptyLeaf(t *testing.T) {
	p := NewPacker()
	if err := p.AddLeaf(nil); err == nil {
		t.Fatalf("expected error adding an empty leaf")
	}
}

func TestPackerRejectsPackWithNoLeaves(t *testing.T) {
	p := NewPacker()
	if _, err := p.Pack(); err == nil {
		t.Fatalf("expected error packing with no leaves added")
	}
}

// TestFitReconstructRoundTrip mirrors spec.md §8's K8P2 Merkle acceptance
// test: two leaves, composed, fit against the generator stream, then
// reconstructed and decomposed back into the original leaves.
func TestFitReconstructRoundTrip(t *testing.T) {
	recipe := mustRecipe(t)
	mapping := bitmap.Mapping{Kind: bitmap.Identity}

	root, err := Compose([][]byte{[]byte("leaf-A-contents"), []byte("leaf-B-contents-longer")})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}

	fitCfg := timemap.FitConfig{
		Recipe:          recipe,
		Mapping:         mapping,
		BitsPerEmission: 8,
		ResidualMode:    container.ResidualXOR,
		Objective:       timemap.ObjectiveMatches,
		SearchEmissions: 4096,
		Lookahead:       256,
	}
	result, err := Fit(fitCfg, [][]byte{[]byte("leaf-A-contents"), []byte("leaf-B-contents-longer")})
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}

	rc := timemap.ReconstructConfig{
		Recipe:          recipe,
		Mapping:         mapping,
		BitsPerEmission: 8,
		ResidualMode:    container.ResidualXOR,
		MaxTicks:        recipe.MaxTicksCap,
	}
	leaves, err := Reconstruct(rc, result.TM1, result.ResidualSymbols, 2)
	if err != nil {
		t.Fatalf("Reconstruct: %v", err)
	}
	if !bytes.Equal(leaves[0], []byte("leaf-A-contents")) {
		t.Fatalf("leaf 0 mismatch: %q", leaves[0])
	}
	if !bytes.Equal(leaves[1], []byte("leaf-B-contents-longer")) {
		t.Fatalf("leaf 1 mismatch: %q", leaves[1])
	}

	// The reconstructed root blob must equal the composed root bit-exactly,
	// independent of the leaf round trip above.
	rebuiltRoot, err := timemap.Reconstruct(rc, result.TM1, result.ResidualSymbols)
	if err != nil {
		t.Fatalf("timemap.Reconstruct: %v", err)
	}
	if !bytes.Equal(rebuiltRoot, root) {
		t.Fatalf("reconstructed root does not match the composed root bit-exactly")
	}
}
