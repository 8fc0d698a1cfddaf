package timemap

import (
	"testing"

	"github.com/y3llowvests/k8dnz"
	"github.com/y3llowvests/k8dnz/internal/bitmap"
	"github.com/y3llowvests/k8dnz/internal/container"
)

func mustRecipe(t *testing.T) k8dnz.Recipe {
	t.Helper()
	r, err := k8dnz.New(k8dnz.TunedProfile())
	if err != nil {
		t.Fatalf("New(TunedProfile()): %v", err)
	}
	return r
}

func TestFitWindowThenReconstructRoundTrips(t *testing.T) {
	recipe := mustRecipe(t)
	mapping := bitmap.Mapping{Kind: bitmap.Identity}

	// Build a target directly from the generator stream itself (a "perfect
	// match exists" scenario) so the fit is exact and the round trip must
	// reproduce it exactly.
	src, _, err := symbolSource(recipe, mapping, 8, 600)
	if err != nil {
		t.Fatalf("symbolSource: %v", err)
	}
	target := append([]byte(nil), src[200:232]...)

	cfg := FitConfig{
		Recipe:          recipe,
		Mapping:         mapping,
		BitsPerEmission: 8,
		ResidualMode:    container.ResidualXOR,
		Objective:       ObjectiveMatches,
		SearchEmissions: 600,
		Lookahead:       64,
	}
	result, err := FitWindow(cfg, target)
	if err != nil {
		t.Fatalf("FitWindow: %v", err)
	}
	if !result.Improved {
		t.Fatalf("expected an improved fit against a verbatim substring of the stream")
	}
	if result.Score != int64(len(target)) {
		t.Fatalf("expected a perfect match score %d, got %d", len(target), result.Score)
	}

	rc := ReconstructConfig{
		Recipe:          recipe,
		Mapping:         mapping,
		BitsPerEmission: 8,
		ResidualMode:    container.ResidualXOR,
		MaxTicks:        recipe.MaxTicksCap,
	}
	got, err := Reconstruct(rc, result.TM1, result.ResidualSymbols)
	if err != nil {
		t.Fatalf("Reconstruct: %v", err)
	}
	if len(got) != len(target) {
		t.Fatalf("length mismatch: %d vs %d", len(got), len(target))
	}
	for i := range target {
		if got[i] != target[i] {
			t.Fatalf("byte %d: got %#x want %#x", i, got[i], target[i])
		}
	}
}

func TestFitWindowChunkedNarrowsLookahead(t *testing.T) {
	recipe := mustRecipe(t)
	mapping := bitmap.Mapping{Kind: bitmap.Identity}
	src, _, err := symbolSource(recipe, mapping, 8, 1000)
	if err != nil {
		t.Fatalf("symbolSource: %v", err)
	}
	target := append([]byte(nil), src[300:340]...)

	cfg := FitConfig{
		Recipe:          recipe,
		Mapping:         mapping,
		BitsPerEmission: 8,
		ResidualMode:    container.ResidualXOR,
		Objective:       ObjectiveMatches,
		Chunked:         true,
		ChunkSize:       10,
		SearchEmissions: 900,
		Lookahead:       16,
	}
	result, err := FitWindow(cfg, target)
	if err != nil {
		t.Fatalf("FitWindow: %v", err)
	}
	indices := result.TM1.Indices()
	if len(indices) != len(target) {
		t.Fatalf("expected %d indices, got %d", len(target), len(indices))
	}
	for i, idx := range indices {
		if idx != 300+uint64(i) {
			t.Fatalf("index %d = %d, want %d", i, idx, 300+uint64(i))
		}
	}
}

func TestFitWindowEmptyTargetProducesEmptyResult(t *testing.T) {
	recipe := mustRecipe(t)
	cfg := FitConfig{Recipe: recipe, Mapping: bitmap.Mapping{Kind: bitmap.Identity}, BitsPerEmission: 8, SearchEmissions: 10}
	result, err := FitWindow(cfg, nil)
	if err != nil {
		t.Fatalf("FitWindow(empty target): %v", err)
	}
	if result.TM1.Count() != 0 {
		t.Fatalf("TM1.Count() = %d, want 0", result.TM1.Count())
	}
	if len(result.ResidualPayload()) != 0 {
		t.Fatalf("ResidualPayload() length = %d, want 0", len(result.ResidualPayload()))
	}
}

func TestGenLawClosedFormIsDeterministic(t *testing.T) {
	cfg := GenLawConfig{
		Law: LawClosedForm, RecipeID: 0xABCD, N: 16, Window: 1 << 20,
		ClosedFormA: 0x9E3779B97F4A7C15, Mode: k8dnz.ModePair, BitsPerEmission: 8, MaxTicksCap: 1000,
	}
	a, err := GenLaw(cfg)
	if err != nil {
		t.Fatalf("GenLaw: %v", err)
	}
	b, err := GenLaw(cfg)
	if err != nil {
		t.Fatalf("GenLaw: %v", err)
	}
	ai, bi := a.Indices(), b.Indices()
	for i := range ai {
		if ai[i] != bi[i] {
			t.Fatalf("gen-law not deterministic at %d", i)
		}
	}
}

func TestGenLawProducesContiguousIndices(t *testing.T) {
	cfg := GenLawConfig{
		Law: LawJumpWalk, N: 10, Window: 1 << 16,
		JumpWalkM: 6364136223846793005, JumpWalkC: 1442695040888963407,
		Mode: k8dnz.ModePair, BitsPerEmission: 8, MaxTicksCap: 1000,
	}
	tm1, err := GenLaw(cfg)
	if err != nil {
		t.Fatalf("GenLaw: %v", err)
	}
	idx := tm1.Indices()
	for i := 1; i < len(idx); i++ {
		if idx[i] != idx[i-1]+1 {
			t.Fatalf("gen-law indices not contiguous at %d: %d -> %d", i, idx[i-1], idx[i])
		}
	}
}

func TestReconstructRejectsShortMaxTicks(t *testing.T) {
	recipe := mustRecipe(t)
	mapping := bitmap.Mapping{Kind: bitmap.Identity}
	tm1 := container.NewTM1FromIndices(uint8(k8dnz.ModePair), 8, 5000, []uint64{0, 1, 2})
	rc := ReconstructConfig{Recipe: recipe, Mapping: mapping, BitsPerEmission: 8, ResidualMode: container.ResidualXOR, MaxTicks: 100}
	if _, err := Reconstruct(rc, tm1, []byte{1, 2, 3}); err == nil {
		t.Fatalf("expected ReconstructShort for max_ticks below fit-time max_ticks")
	}
}

func TestBitfieldRoundTripThroughFitAndReconstruct(t *testing.T) {
	recipe := mustRecipe(t)
	mapping := bitmap.Mapping{Kind: bitmap.Bitfield, Sub: bitmap.Geom, BitsPerEmission: 2}

	src, modulus, err := symbolSource(recipe, mapping, 2, 500)
	if err != nil {
		t.Fatalf("symbolSource: %v", err)
	}
	if modulus != 4 {
		t.Fatalf("modulus = %d, want 4", modulus)
	}
	target := append([]byte(nil), src[50:70]...)

	cfg := FitConfig{
		Recipe: recipe, Mapping: mapping, BitsPerEmission: 2,
		ResidualMode: container.ResidualXOR, Objective: ObjectiveMatches,
		SearchEmissions: 400, Lookahead: 32,
	}
	result, err := FitWindow(cfg, target)
	if err != nil {
		t.Fatalf("FitWindow: %v", err)
	}
	rc := ReconstructConfig{
		Recipe: recipe, Mapping: mapping, BitsPerEmission: 2,
		ResidualMode: container.ResidualXOR, MaxTicks: recipe.MaxTicksCap,
	}
	got, err := Reconstruct(rc, result.TM1, result.ResidualSymbols)
	if err != nil {
		t.Fatalf("Reconstruct: %v", err)
	}
	for i := range target {
		if got[i] != target[i] {
			t.Fatalf("byte %d: got %d want %d", i, got[i], target[i])
		}
	}
}
