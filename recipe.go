package k8dnz

import (
	"encoding/binary"

	"github.com/y3llowvests/k8dnz/internal/container"
	"github.com/y3llowvests/k8dnz/internal/k8err"
)

// Mode selects the token stream view a Recipe generates.
type Mode uint8

const (
	ModePair    Mode = Mode(container.ModePair)
	ModeRGBPair Mode = Mode(container.ModeRGBPair)
)

// BytesPerEmission returns the flattened byte-stream width of one emission
// under this Mode: 1 for PairToken, 6 for RGBPair (§3).
func (m Mode) BytesPerEmission() int {
	if m == ModeRGBPair {
		return 6
	}
	return 1
}

// OrbitState is one of the two orbiting phases (A or C) that a Recipe
// configures. Phase is the current position on the unit circle; Omega is
// the per-tick modular delta applied to it.
type OrbitState struct {
	Phase Turn
	Omega Turn
}

// Clamp bounds the raw intensity sample before quantization.
type Clamp struct {
	Lo, Hi int32
}

// Quant configures the bucketing of a clamped intensity sample into a
// token symbol.
type Quant struct {
	Bins  uint32
	Shift uint64
}

// Recipe is the immutable configuration that fully determines a
// CadenceEngine's generated stream, per spec.md §3. Construct with New,
// never by assembling the struct literal directly, so the invariants below
// and the degeneracy check are always enforced:
//
//   - OrbitA.Omega + OrbitC.Omega != 0 (opposed speeds)
//   - Epsilon < 1/2 turn
//   - Quant.Bins divides the clamp range evenly
//   - Checksum covers every preceding field
type Recipe struct {
	Version      uint8
	OrbitA       OrbitState
	OrbitC       OrbitState
	Epsilon      Turn
	Delta        Turn // pairing delta; spec default 0.5 turn
	AxialStep    Turn // per-tick axial advance during lockstep (Open Question, recipe-declared)
	LockstepOmega Turn // lock_phase advance per tick during lockstep (Open Question, recipe-declared)
	FieldSeed    uint64
	Clamp        Clamp
	Quant        Quant
	Mode         Mode
	MaxTicksCap  uint64
	Checksum     uint32
	// Unknown holds K8R TLV records with field IDs this version doesn't
	// recognize, captured by UnmarshalRecipe and re-emitted verbatim by
	// MarshalK8R (spec.md §4.7: "unknown records are forwards-preserved
	// but ignored on read").
	Unknown []container.TLVRecord
}

// HalfTurn is the fixed-point representation of exactly 0.5 turns.
const HalfTurn Turn = 1 << 63

// DefaultDelta is the spec-mandated default pairing delta (0.5 turn).
const DefaultDelta Turn = HalfTurn

// RecipeSpec is the mutable, CLI-facing builder for a Recipe: every field a
// command-line flag can set, validated and lowered into an immutable
// Recipe by New. This mirrors how cmd/gwebp's runEnc/runDec populate a
// local options struct before calling into the pure webp package API.
type RecipeSpec struct {
	OrbitA        OrbitState
	OrbitC        OrbitState
	Epsilon       Turn
	Delta         Turn
	AxialStep     Turn
	LockstepOmega Turn
	FieldSeed     uint64
	Clamp         Clamp
	Quant         Quant
	Mode          Mode
	MaxTicksCap   uint64
}

// TunedProfile and BaselineProfile are the two --profile presets the CLI
// exposes (spec.md §6). They differ in the field seed, the clamp window and
// the two orbit omegas (baseline uses 1/59 and 1/71 turn); both share the
// same orbit phases and epsilon/axial/lockstep constants.
// Orbit and lockstep constants below were chosen (not derived from any
// upstream source — spec.md §9 leaves the axial-step law and lockstep omega
// unpinned, treating them as recipe-declared) so that lockstep reliably
// fires many times within the engine's own degeneracy probe window
// (max(1024, max_ticks_cap/1000) ticks, spec.md §4.2): omega_A=1/61 turn and
// omega_C=1/67 turn give a beat period around 680 ticks, short enough that
// the default 5,000,000-tick cap produces thousands of emissions rather
// than a handful.
func TunedProfile() RecipeSpec {
	return RecipeSpec{
		OrbitA:        OrbitState{Phase: 0, Omega: FromFraction(1, 61)},
		OrbitC:        OrbitState{Phase: FromFraction(1, 3), Omega: FromFraction(1, 67)},
		Epsilon:       FromFraction(1, 1<<10),
		Delta:         DefaultDelta,
		AxialStep:     FromFraction(1, 13),
		LockstepOmega: FromFraction(1, 251),
		FieldSeed:     0x9E3779B97F4A7C15,
		Clamp:         Clamp{Lo: -32768, Hi: 32767},
		Quant:         Quant{Bins: 256, Shift: 0},
		Mode:          ModePair,
		MaxTicksCap:   5_000_000,
	}
}

func BaselineProfile() RecipeSpec {
	s := TunedProfile()
	s.FieldSeed = 0xD1B54A32D192ED03
	s.Clamp = Clamp{Lo: -16384, Hi: 16383}
	s.OrbitA.Omega = FromFraction(1, 59)
	s.OrbitC.Omega = FromFraction(1, 71)
	return s
}

// New validates spec, runs the degeneracy test, computes the checksum, and
// returns an immutable Recipe. It is the only way to obtain a Recipe.
func New(spec RecipeSpec) (Recipe, error) {
	if spec.OrbitA.Omega+spec.OrbitC.Omega == 0 {
		return Recipe{}, k8err.New(k8err.ParamMismatch, "recipe: omega_A + omega_C must not be zero (opposed speeds required)")
	}
	if uint64(spec.Epsilon) >= uint64(HalfTurn) {
		return Recipe{}, k8err.New(k8err.ParamMismatch, "recipe: epsilon must be < 1/2 turn")
	}
	rng := uint64(spec.Clamp.Hi) - uint64(int64(spec.Clamp.Lo)) + 1
	if spec.Quant.Bins == 0 || rng%uint64(spec.Quant.Bins) != 0 {
		return Recipe{}, k8err.New(k8err.ParamMismatch, "recipe: quant.bins must evenly divide the clamp range")
	}
	if spec.Delta == 0 {
		spec.Delta = DefaultDelta
	}
	if spec.MaxTicksCap == 0 {
		return Recipe{}, k8err.New(k8err.ParamMismatch, "recipe: max_ticks_cap must be nonzero")
	}

	r := Recipe{
		Version:       1,
		OrbitA:        spec.OrbitA,
		OrbitC:        spec.OrbitC,
		Epsilon:       spec.Epsilon,
		Delta:         spec.Delta,
		AxialStep:     spec.AxialStep,
		LockstepOmega: spec.LockstepOmega,
		FieldSeed:     spec.FieldSeed,
		Clamp:         spec.Clamp,
		Quant:         spec.Quant,
		Mode:          spec.Mode,
		MaxTicksCap:   spec.MaxTicksCap,
	}
	r.Checksum = r.computeChecksum()

	if isDegenerate(r) {
		return Recipe{}, k8err.New(k8err.DegenerateRecipe, "recipe: first 4096 regenerated bytes collapse to a single value")
	}
	return r, nil
}

// K8R field IDs, stable across versions. Unknown IDs encountered on decode
// are forward-preserved (re-emitted verbatim) but not interpreted.
const (
	fieldVersion       uint16 = 1
	fieldOrbitA        uint16 = 2
	fieldOrbitC        uint16 = 3
	fieldEpsilon       uint16 = 4
	fieldDelta         uint16 = 5
	fieldAxialStep     uint16 = 6
	fieldLockstepOmega uint16 = 7
	fieldFieldSeed     uint16 = 8
	fieldClamp         uint16 = 9
	fieldQuant         uint16 = 10
	fieldMode          uint16 = 11
	fieldMaxTicksCap   uint16 = 12
	fieldChecksum      uint16 = 13
)

func putOrbit(o OrbitState) []byte {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint64(buf[0:8], uint64(o.Phase))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(o.Omega))
	return buf
}

func getOrbit(b []byte) OrbitState {
	return OrbitState{Phase: Turn(binary.LittleEndian.Uint64(b[0:8])), Omega: Turn(binary.LittleEndian.Uint64(b[8:16]))}
}

func putU64Field(v uint64) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, v)
	return buf
}

// checksumFields returns the TLV records whose bytes the checksum covers,
// i.e. every field except Checksum itself.
func (r Recipe) checksumFields() []container.TLVRecord {
	clampBuf := make([]byte, 8)
	binary.LittleEndian.PutUint32(clampBuf[0:4], uint32(r.Clamp.Lo))
	binary.LittleEndian.PutUint32(clampBuf[4:8], uint32(r.Clamp.Hi))

	quantBuf := make([]byte, 12)
	binary.LittleEndian.PutUint32(quantBuf[0:4], r.Quant.Bins)
	binary.LittleEndian.PutUint64(quantBuf[4:12], r.Quant.Shift)

	return []container.TLVRecord{
		{ID: fieldVersion, Value: []byte{r.Version}},
		{ID: fieldOrbitA, Value: putOrbit(r.OrbitA)},
		{ID: fieldOrbitC, Value: putOrbit(r.OrbitC)},
		{ID: fieldEpsilon, Value: putU64Field(uint64(r.Epsilon))},
		{ID: fieldDelta, Value: putU64Field(uint64(r.Delta))},
		{ID: fieldAxialStep, Value: putU64Field(uint64(r.AxialStep))},
		{ID: fieldLockstepOmega, Value: putU64Field(uint64(r.LockstepOmega))},
		{ID: fieldFieldSeed, Value: putU64Field(r.FieldSeed)},
		{ID: fieldClamp, Value: clampBuf},
		{ID: fieldQuant, Value: quantBuf},
		{ID: fieldMode, Value: []byte{uint8(r.Mode)}},
		{ID: fieldMaxTicksCap, Value: putU64Field(r.MaxTicksCap)},
	}
}

func (r Recipe) computeChecksum() uint32 {
	blob := container.EncodeK8R(r.Version, r.checksumFields())
	// Checksum covers the field payload, not the K8R frame's own CRC trailer;
	// strip the trailing 4-byte CRC container.EncodeK8R appended.
	return container.CRC(blob[:len(blob)-4])
}

// MarshalK8R serializes r to the K8R wire format. The recipe-level
// Checksum field (covering every known field before it) is appended after
// those fields, followed by any forward-preserved Unknown records; the K8R
// frame's own CRC32 then covers the whole blob.
func (r Recipe) MarshalK8R() []byte {
	records := append(r.checksumFields(), container.TLVRecord{ID: fieldChecksum, Value: putU32Field(r.Checksum)})
	records = append(records, r.Unknown...)
	return container.EncodeK8R(r.Version, records)
}

func putU32Field(v uint32) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, v)
	return buf
}

// UnmarshalRecipe parses a K8R blob back into a Recipe, verifying the K8R
// frame CRC and the recipe-level checksum, and re-running the invariant and
// degeneracy checks New performs.
func UnmarshalRecipe(data []byte) (Recipe, error) {
	version, records, err := container.DecodeK8R(data)
	if err != nil {
		return Recipe{}, err
	}
	var r Recipe
	r.Version = version
	for _, rec := range records {
		switch rec.ID {
		case fieldOrbitA:
			r.OrbitA = getOrbit(rec.Value)
		case fieldOrbitC:
			r.OrbitC = getOrbit(rec.Value)
		case fieldEpsilon:
			r.Epsilon = Turn(binary.LittleEndian.Uint64(rec.Value))
		case fieldDelta:
			r.Delta = Turn(binary.LittleEndian.Uint64(rec.Value))
		case fieldAxialStep:
			r.AxialStep = Turn(binary.LittleEndian.Uint64(rec.Value))
		case fieldLockstepOmega:
			r.LockstepOmega = Turn(binary.LittleEndian.Uint64(rec.Value))
		case fieldFieldSeed:
			r.FieldSeed = binary.LittleEndian.Uint64(rec.Value)
		case fieldClamp:
			r.Clamp = Clamp{
				Lo: int32(binary.LittleEndian.Uint32(rec.Value[0:4])),
				Hi: int32(binary.LittleEndian.Uint32(rec.Value[4:8])),
			}
		case fieldQuant:
			r.Quant = Quant{
				Bins:  binary.LittleEndian.Uint32(rec.Value[0:4]),
				Shift: binary.LittleEndian.Uint64(rec.Value[4:12]),
			}
		case fieldMode:
			r.Mode = Mode(rec.Value[0])
		case fieldMaxTicksCap:
			r.MaxTicksCap = binary.LittleEndian.Uint64(rec.Value)
		case fieldChecksum:
			r.Checksum = binary.LittleEndian.Uint32(rec.Value)
		case fieldVersion:
			// r.Version is already set from the K8R frame header.
		default:
			// Unrecognized field ID: forward-preserve, ignore on read (§4.7).
			r.Unknown = append(r.Unknown, rec)
		}
	}
	if want := r.computeChecksum(); r.Checksum != want {
		return Recipe{}, k8err.New(k8err.BadFormat, "k8r: recipe checksum mismatch")
	}
	rng := uint64(r.Clamp.Hi) - uint64(int64(r.Clamp.Lo)) + 1
	if r.OrbitA.Omega+r.OrbitC.Omega == 0 || uint64(r.Epsilon) >= uint64(HalfTurn) ||
		r.Quant.Bins == 0 || rng%uint64(r.Quant.Bins) != 0 || r.MaxTicksCap == 0 {
		return Recipe{}, k8err.New(k8err.BadFormat, "k8r: decoded recipe violates a recipe invariant")
	}
	if isDegenerate(r) {
		return Recipe{}, k8err.New(k8err.DegenerateRecipe, "recipe: decoded recipe is degenerate")
	}
	return r, nil
}
