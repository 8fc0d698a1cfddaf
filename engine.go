package k8dnz

import "github.com/y3llowvests/k8dnz/internal/k8err"

// Emission is one paired-token output event, indexed by EmissionIndex.
type Emission struct {
	EmissionIndex uint64
	Ticks         uint64
	Pair          PairToken
	RGB           RGBPair
}

// EngineState is the full mutable state of a CadenceEngine, per spec.md §3.
// It is exclusively owned by its Engine; Recipe itself is immutable and may
// be shared by reference across workers (spec.md §5).
type EngineState struct {
	ticks         uint64
	a             OrbitState
	c             OrbitState
	inLockstep    bool
	lockPhase     Turn
	axial         Turn
	emissionIndex uint64
}

// Engine is a pure function of (Recipe, tick): the deterministic cadence
// generator described in spec.md §4.2. Construct with NewEngine; advance
// with Step, AdvanceTo, or EmitStream.
type Engine struct {
	recipe Recipe
	EngineState
}

// NewEngine constructs an Engine from r, ticks=0, both orbits at their
// recipe-declared initial phase, not in lockstep.
func NewEngine(r Recipe) *Engine {
	return &Engine{
		recipe: r,
		EngineState: EngineState{
			a: r.OrbitA,
			c: r.OrbitC,
		},
	}
}

// Recipe returns the engine's immutable configuration.
func (e *Engine) Recipe() Recipe { return e.recipe }

// State returns a copy of the engine's current state, for inspection or
// for RewindTo.
func (e *Engine) State() EngineState { return e.EngineState }

// Step advances the engine by exactly one tick, per the spec.md §4.2
// algorithm:
//
//  1. advance both phases by their omega;
//  2. if not in lockstep, test near(A.phase+C.phase_mirror, target, eps)
//     and enter lockstep on success;
//  3. if in lockstep, advance axial and lock_phase; on axial >= 1 (rim
//     reached) sample the field, quantize, and emit.
//
// Tie-break: if both the lockstep-entry and rim conditions would trigger on
// the same tick, the rim (emission) wins — which falls out naturally here
// because a tick that is already in lockstep never re-evaluates the
// lockstep-entry test.
//
// ok is false when no emission was produced this tick (including the tick
// that enters lockstep) or when the engine's tick budget is exhausted.
func (e *Engine) Step() (Emission, bool) {
	if e.ticks >= e.recipe.MaxTicksCap {
		return Emission{}, false
	}
	e.a.Phase = e.a.Phase.Add(e.a.Omega)
	e.c.Phase = e.c.Phase.Add(e.c.Omega)
	e.ticks++

	if !e.inLockstep {
		target := e.lockstepTarget()
		mirror := e.c.Phase.Mirror()
		if Near(e.a.Phase.Add(mirror), target, e.recipe.Epsilon) {
			e.inLockstep = true
			e.lockPhase = e.a.Phase
			e.axial = 0
		}
		return Emission{}, false
	}

	prevAxial := e.axial
	e.axial = e.axial.Add(e.recipe.AxialStep)
	e.lockPhase = e.lockPhase.Add(e.recipe.LockstepOmega)
	if !rimReached(prevAxial, e.axial, e.recipe.AxialStep) {
		return Emission{}, false
	}

	pair, rgb := sampleEmission(e.recipe, e.lockPhase, e.axial, e.ticks)
	em := Emission{
		EmissionIndex: e.emissionIndex,
		Ticks:         e.ticks,
		Pair:          pair,
		RGB:           rgb,
	}
	e.emissionIndex++
	e.inLockstep = false
	e.axial = 0
	return em, true
}

// laneMix is the odd multiplier used to fold a lane index into the
// sampleIntensity ticks argument, so each of the six emission lanes samples
// an independent point of the field while the underlying (phase, axial,
// ticks) coordinates stay exactly as spec.md §4.2 step 3 defines them.
const laneMix = 0x9E3779B97F4A7C15

// sampleEmission samples all six lanes of one emission ([rA,gA,bA,rC,gC,bC]
// per spec.md §3) and derives both the PairToken and RGBPair views from
// them, so byte_stream[emission*6+lane] always equals
// rgbpair(emission).Bytes()[lane] regardless of which view the recipe's
// Mode selects (spec.md §8 indexing invariant).
func sampleEmission(r Recipe, lockPhase, axial Turn, ticks uint64) (PairToken, RGBPair) {
	var lane [6]uint32
	for i := 0; i < 6; i++ {
		phiL, phiPair := lockPhase, lockPhase.Add(r.Delta)
		if i >= 3 {
			phiL, phiPair = phiPair, phiL
		}
		ticksForLane := ticks ^ (uint64(i) * laneMix)
		lane[i] = sampleSymbol(r, phiL, phiPair, axial, ticksForLane)
	}
	pair := PairToken{A: uint8(lane[0] & 0xF), B: uint8(lane[3] & 0xF)}
	rgb := RGBPair{
		RA: uint8(lane[0]), GA: uint8(lane[1]), BA: uint8(lane[2]),
		RC: uint8(lane[3]), GC: uint8(lane[4]), BC: uint8(lane[5]),
	}
	return pair, rgb
}

// lockstepTarget is the fixed point the mirrored phase sum must near to
// trigger lockstep entry. spec.md leaves the exact target recipe-declared;
// K8DNZ fixes it at zero turns (the natural "phases exactly opposed"
// target implied by phase_mirror = 1 - C.phase), which is what makes
// Near(A+mirror(C), 0, eps) mean "A and C are within eps of being mirror
// images of one another".
func (e *Engine) lockstepTarget() Turn { return 0 }

// rimReached reports whether advancing axial by step crossed 1.0 turn (the
// frustum rim). Turn wraps modulo 1, so a crossing is detected the same way
// an unsigned counter overflow is: the new value is smaller than the
// previous one even though a positive step was added. A zero step never
// reaches the rim on its own (axial stays put).
func rimReached(before, after, step Turn) bool {
	if step == 0 {
		return false
	}
	return after < before
}

// AdvanceTo steps the engine forward until its tick counter reaches
// tickTarget (a no-op if already there or beyond), discarding any
// emissions produced along the way.
func (e *Engine) AdvanceTo(tickTarget uint64) {
	for e.ticks < tickTarget && e.ticks < e.recipe.MaxTicksCap {
		e.Step()
	}
}

// EmitStream collects up to capEmissions emissions, returning
// StreamExhausted if the tick budget runs out first.
func (e *Engine) EmitStream(capEmissions uint64) ([]Emission, error) {
	out := make([]Emission, 0, capEmissions)
	for uint64(len(out)) < capEmissions {
		em, ok := e.Step()
		if !ok {
			if e.ticks >= e.recipe.MaxTicksCap {
				return out, k8err.New(k8err.StreamExhausted, "engine: max_ticks_cap reached before requested emissions")
			}
			continue
		}
		out = append(out, em)
	}
	return out, nil
}

// RewindTo reconstructs engine state at (tick, emissionIndex) by replaying
// from tick 0. This is only correct because Engine is a pure function of
// (Recipe, tick) with no state beyond what NewEngine establishes — replay
// is the entire implementation, matching spec.md §4.2's note that rewind is
// "supported only if the engine is pure-functional in Recipe — it is".
func RewindTo(r Recipe, tick, emissionIndex uint64) (*Engine, error) {
	e := NewEngine(r)
	for e.ticks < tick {
		if _, ok := e.Step(); !ok && e.ticks >= r.MaxTicksCap {
			return nil, k8err.New(k8err.StreamExhausted, "engine: max_ticks_cap reached before requested rewind point")
		}
	}
	if e.emissionIndex != emissionIndex {
		return nil, k8err.New(k8err.ParamMismatch, "engine: tick and emission_index disagree")
	}
	return e, nil
}

// ByteStream flattens cap emissions into the byte-stream view selected by
// r.Mode: 1 byte/emission for ModePair, 6 bytes/emission for ModeRGBPair.
func ByteStream(r Recipe, capEmissions uint64) ([]byte, error) {
	e := NewEngine(r)
	ems, err := e.EmitStream(capEmissions)
	switch r.Mode {
	case ModePair:
		out := make([]byte, len(ems))
		for i, em := range ems {
			out[i] = em.Pair.PackByte()
		}
		return out, err
	case ModeRGBPair:
		out := make([]byte, 0, len(ems)*6)
		for _, em := range ems {
			b := em.RGB.Bytes()
			out = append(out, b[:]...)
		}
		return out, err
	default:
		return nil, k8err.New(k8err.ParamMismatch, "engine: unknown mode")
	}
}

// isDegenerate implements both of spec.md's degeneracy tests against a
// bounded probe budget of max(1024, max_ticks_cap/1000) ticks (§4.2's
// DegenerateRecipe failure window): the probe must produce at least one
// emission, and the first 4096 bytes of the probe's regenerated byte stream
// (in the recipe's own Mode, §4.3) must not collapse to a single repeated
// value.
func isDegenerate(r Recipe) bool {
	const window = 4096
	probeTicks := r.MaxTicksCap / 1000
	if probeTicks < 1024 {
		probeTicks = 1024
	}
	probe := r
	probe.MaxTicksCap = probeTicks

	capEmissions := uint64(window)
	if probe.Mode == ModeRGBPair {
		capEmissions = (window + 5) / 6
	}
	stream, _ := ByteStream(probe, capEmissions)
	if len(stream) == 0 {
		return true
	}
	n := len(stream)
	if n > window {
		n = window
	}
	first := stream[0]
	for i := 1; i < n; i++ {
		if stream[i] != first {
			return false
		}
	}
	return true
}
