package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/y3llowvests/k8dnz"
	"github.com/y3llowvests/k8dnz/internal/bitmap"
	"github.com/y3llowvests/k8dnz/internal/container"
	"github.com/y3llowvests/k8dnz/internal/timemap"
)

var timemapCmd = &cobra.Command{
	Use:   "timemap",
	Short: "Fit and reconstruct residuals against the generator stream",
}

func init() {
	timemapCmd.AddCommand(fitXORCmd, fitXORChunkedCmd, genLawCmd, reconstructCmd, bfLanesCmd)
}

// mappingFlags is the --map/--bit-mapping/--bits-per-emission/--bit-tau/
// --bit-smooth-shift/--map-seed/--map-seed-hex flag group shared by every
// timemap subcommand that touches a BitMapping.
type mappingFlags struct {
	mapKind         string
	bitMapping      string
	bitsPerEmission uint8
	seed            uint64
	seedHex         string
	tau             int32
	smoothShift     uint
}

func addMappingFlags(fs cobraFlagSet, f *mappingFlags) {
	fs.StringVar(&f.mapKind, "map", "identity", "bit mapping: identity/splitmix64/text40-field/bitfield")
	fs.StringVar(&f.bitMapping, "bit-mapping", "geom", "bitfield sub-mode: geom/hash/lowpass-thresh")
	fs.Uint8Var(&f.bitsPerEmission, "bits-per-emission", 8, "bits per emission (1, 2, or 8; forced to 8 for non-bitfield maps)")
	fs.Uint64Var(&f.seed, "map-seed", 0, "mapping seed (splitmix64/text40-field/bitfield-hash)")
	fs.StringVar(&f.seedHex, "map-seed-hex", "", "mapping seed as a hex string, overrides --map-seed")
	fs.Int32Var(&f.tau, "bit-tau", 0, "lowpass-thresh threshold")
	fs.UintVar(&f.smoothShift, "bit-smooth-shift", 3, "lowpass-thresh moving-average shift")
}

func (f mappingFlags) build() (bitmap.Mapping, uint8, error) {
	bpe := f.bitsPerEmission
	if f.mapKind != "bitfield" {
		bpe = 8
	}
	seed := f.seed
	if f.seedHex != "" {
		v, err := strconv.ParseUint(f.seedHex, 16, 64)
		if err != nil {
			return bitmap.Mapping{}, 0, fmt.Errorf("invalid --map-seed-hex %q: %w", f.seedHex, err)
		}
		seed = v
	}
	m, err := parseBitMapping(f.mapKind, seed, f.bitMapping, bpe, f.tau, f.smoothShift)
	return m, bpe, err
}

// cobraFlagSet is the minimal *pflag.FlagSet surface addMappingFlags needs;
// declared as an interface so every subcommand's init() can share it
// without importing pflag directly.
type cobraFlagSet = interface {
	StringVar(p *string, name string, value string, usage string)
	Uint8Var(p *uint8, name string, value uint8, usage string)
	Uint64Var(p *uint64, name string, value uint64, usage string)
	Int32Var(p *int32, name string, value int32, usage string)
	UintVar(p *uint, name string, value uint, usage string)
}

var fitFlags struct {
	recipe       recipeFlags
	mapping      mappingFlags
	residualMode string
	objective    string
	chunkSize    uint64
	start        uint64
	search       uint64
	lookahead    uint64
	scanStep     uint64
	transPenalty int64
	refineTopK   uint64
	zstdLevel    int
	targetFile   string
	tm1Out       string
	residualOut  string
}

func addFitFlags(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&fitFlags.recipe.profile, "recipe", "tuned", "recipe profile: tuned/baseline")
	fs.StringVar(&fitFlags.recipe.mode, "mode", "pair", "token view: pair/rgbpair")
	fs.Uint64Var(&fitFlags.recipe.maxTicksCap, "max-ticks", 0, "override the profile's max_ticks_cap (0 = use profile default)")
	addMappingFlags(fs, &fitFlags.mapping)
	fs.StringVar(&fitFlags.residualMode, "residual", "xor", "residual combine mode: xor/sub")
	fs.StringVar(&fitFlags.objective, "objective", "matches", "fit objective: matches/zstd/matches-minus-transition-penalty")
	fs.Uint64Var(&fitFlags.chunkSize, "chunk-size", 0, "chunk size for fit-xor-chunked (0 = target length)")
	fs.Uint64Var(&fitFlags.start, "start-emission", 0, "first candidate start position to search")
	fs.Uint64Var(&fitFlags.search, "search-emissions", 1 << 20, "width of the search window past start-emission")
	fs.Uint64Var(&fitFlags.lookahead, "lookahead", 4096, "chunked search: range to re-search around the previous chunk's match")
	fs.Uint64Var(&fitFlags.scanStep, "scan-step", 1, "candidate start stride")
	fs.Int64Var(&fitFlags.transPenalty, "trans-penalty", 1, "per-transition penalty for matches-minus-transition-penalty")
	fs.Uint64Var(&fitFlags.refineTopK, "refine-topk", 0, "rank candidates by match count and re-score only the top K with --objective (0 = score every candidate)")
	fs.IntVar(&fitFlags.zstdLevel, "zstd-level", 3, "zstd objective compression effort")
	fs.StringVar(&fitFlags.targetFile, "target", "", "path to the target byte stream to fit against (required)")
	fs.StringVar(&fitFlags.tm1Out, "out-timemap", "", "output TM1 path (default: <target>.tm1)")
	fs.StringVar(&fitFlags.residualOut, "out-residual", "", "output BFn residual path (default: <target>.bf)")
}

var fitXORCmd = &cobra.Command{
	Use:   "fit-xor",
	Short: "Fit a single window against the generator stream",
	RunE:  func(cmd *cobra.Command, args []string) error { return runFit(cmd, false) },
}

var fitXORChunkedCmd = &cobra.Command{
	Use:   "fit-xor-chunked",
	Short: "Fit a target in chunks, narrowing each subsequent search by --lookahead",
	RunE:  func(cmd *cobra.Command, args []string) error { return runFit(cmd, true) },
}

func init() {
	addFitFlags(fitXORCmd)
	addFitFlags(fitXORChunkedCmd)
}

func runFit(cmd *cobra.Command, chunked bool) error {
	if fitFlags.targetFile == "" {
		return fmt.Errorf("timemap %s: --target is required", cmd.Name())
	}
	recipe, err := buildRecipe(fitFlags.recipe)
	if err != nil {
		return err
	}
	mapping, bpe, err := fitFlags.mapping.build()
	if err != nil {
		return err
	}
	residualMode, err := parseResidualMode(fitFlags.residualMode)
	if err != nil {
		return err
	}
	objective, err := parseObjective(fitFlags.objective)
	if err != nil {
		return err
	}
	target, err := readFile(fitFlags.targetFile)
	if err != nil {
		return err
	}

	cfg := timemap.FitConfig{
		Recipe:          recipe,
		Mapping:         mapping,
		BitsPerEmission: bpe,
		ResidualMode:    residualMode,
		Objective:       objective,
		Chunked:         chunked,
		ChunkSize:       fitFlags.chunkSize,
		StartEmission:   fitFlags.start,
		SearchEmissions: fitFlags.search,
		Lookahead:       fitFlags.lookahead,
		ScanStep:        fitFlags.scanStep,
		TransPenalty:    fitFlags.transPenalty,
		RefineTopK:      fitFlags.refineTopK,
		ZstdLevel:       fitFlags.zstdLevel,
	}
	result, err := timemap.FitWindow(cfg, target)
	if err != nil {
		return err
	}

	tm1Out := fitFlags.tm1Out
	if tm1Out == "" {
		tm1Out = defaultOutputPath(fitFlags.targetFile, ".tm1")
	}
	if err := writeFileAtomic(tm1Out, result.TM1.Encode()); err != nil {
		return err
	}

	bf := container.BF{
		Version:         1,
		BitsPerEmission: bpe,
		TotalSymbols:    uint32(len(result.ResidualSymbols)),
		Mode:            residualMode,
		Payload:         result.ResidualPayload(),
	}
	bfBlob, err := bf.Encode()
	if err != nil {
		return err
	}
	residualOut := fitFlags.residualOut
	if residualOut == "" {
		residualOut = defaultOutputPath(fitFlags.targetFile, ".bf")
	}
	if err := writeFileAtomic(residualOut, bfBlob); err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "wrote %s, %s\n", tm1Out, residualOut)
	fmt.Fprintf(w, "score:     %d\n", result.Score)
	fmt.Fprintf(w, "improved:  %v\n", result.Improved)
	return nil
}

func parseObjective(name string) (timemap.Objective, error) {
	switch name {
	case "", "matches":
		return timemap.ObjectiveMatches, nil
	case "zstd":
		return timemap.ObjectiveZstd, nil
	case "matches-minus-transition-penalty":
		return timemap.ObjectivePenalized, nil
	default:
		return 0, fmt.Errorf("unknown --objective %q", name)
	}
}

var genLawFlags struct {
	law             string
	recipeID        uint64
	n               uint64
	window          uint64
	closedFormA     uint64
	jumpWalkM       uint64
	jumpWalkC       uint64
	mode            string
	bitsPerEmission uint8
	maxTicksCap     uint64
	tm1Out          string
}

var genLawCmd = &cobra.Command{
	Use:   "gen-law",
	Short: "Derive a TM1 index map from a closed-form or jump-walk law, without searching",
	RunE:  runGenLaw,
}

func init() {
	fs := genLawCmd.Flags()
	fs.StringVar(&genLawFlags.law, "law-type", "closed-form", "index law: closed-form/jump-walk")
	fs.Uint64Var(&genLawFlags.recipeID, "recipe-id", 0, "closed-form: recipe identifier mixed into the hash")
	fs.Uint64Var(&genLawFlags.n, "n", 0, "number of indices to generate")
	fs.Uint64Var(&genLawFlags.window, "window", 1<<20, "modulus window the law's start position is reduced into")
	fs.Uint64Var(&genLawFlags.closedFormA, "closed-form-a", 0x9E3779B97F4A7C15, "closed-form: multiplier applied to the FNV-1a64 hash")
	fs.Uint64Var(&genLawFlags.jumpWalkM, "jump-walk-m", 6364136223846793005, "jump-walk: LCG multiplier")
	fs.Uint64Var(&genLawFlags.jumpWalkC, "jump-walk-c", 1442695040888963407, "jump-walk: LCG increment")
	fs.StringVar(&genLawFlags.mode, "mode", "pair", "token view recorded in the TM1 header: pair/rgbpair")
	fs.Uint8Var(&genLawFlags.bitsPerEmission, "bits-per-emission", 8, "bits per emission recorded in the TM1 header")
	fs.Uint64Var(&genLawFlags.maxTicksCap, "max-ticks", 5_000_000, "max_ticks_cap recorded in the TM1 header")
	fs.StringVar(&genLawFlags.tm1Out, "out-timemap", "out.tm1", "output TM1 path")
}

func runGenLaw(cmd *cobra.Command, args []string) error {
	var law timemap.Law
	switch genLawFlags.law {
	case "", "closed-form":
		law = timemap.LawClosedForm
	case "jump-walk":
		law = timemap.LawJumpWalk
	default:
		return fmt.Errorf("unknown --law-type %q", genLawFlags.law)
	}
	var mode k8dnz.Mode
	switch genLawFlags.mode {
	case "", "pair":
		mode = k8dnz.ModePair
	case "rgbpair":
		mode = k8dnz.ModeRGBPair
	default:
		return fmt.Errorf("unknown --mode %q", genLawFlags.mode)
	}
	cfg := timemap.GenLawConfig{
		Law:             law,
		RecipeID:        genLawFlags.recipeID,
		N:               genLawFlags.n,
		Window:          genLawFlags.window,
		ClosedFormA:     genLawFlags.closedFormA,
		JumpWalkM:       genLawFlags.jumpWalkM,
		JumpWalkC:       genLawFlags.jumpWalkC,
		Mode:            mode,
		BitsPerEmission: genLawFlags.bitsPerEmission,
		MaxTicksCap:     genLawFlags.maxTicksCap,
	}
	tm1, err := timemap.GenLaw(cfg)
	if err != nil {
		return err
	}
	if err := writeFileAtomic(genLawFlags.tm1Out, tm1.Encode()); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d indices)\n", genLawFlags.tm1Out, tm1.Count())
	return nil
}

var reconstructFlags struct {
	recipe      recipeFlags
	mapping     mappingFlags
	residualMode string
	maxTicks    uint64
	tm1In       string
	residualIn  string
	output      string
}

var reconstructCmd = &cobra.Command{
	Use:   "reconstruct",
	Short: "Reconstruct a target byte stream from a TM1 index map and a residual",
	RunE:  runReconstruct,
}

func init() {
	fs := reconstructCmd.Flags()
	fs.StringVar(&reconstructFlags.recipe.profile, "recipe", "tuned", "recipe profile: tuned/baseline")
	fs.StringVar(&reconstructFlags.recipe.mode, "mode", "pair", "token view: pair/rgbpair")
	addMappingFlags(fs, &reconstructFlags.mapping)
	fs.StringVar(&reconstructFlags.residualMode, "residual-mode", "xor", "residual combine mode: xor/sub")
	fs.Uint64Var(&reconstructFlags.maxTicks, "max-ticks", 0, "reconstruct-time max_ticks (0 = use the recipe's max_ticks_cap)")
	fs.StringVar(&reconstructFlags.tm1In, "timemap", "", "input TM1 path (required)")
	fs.StringVar(&reconstructFlags.residualIn, "residual", "", "input BFn residual path (required)")
	fs.StringVarP(&reconstructFlags.output, "out", "o", "", "output path (default: <timemap>.out)")
}

func runReconstruct(cmd *cobra.Command, args []string) error {
	if reconstructFlags.tm1In == "" || reconstructFlags.residualIn == "" {
		return fmt.Errorf("timemap reconstruct: --timemap and --residual are required")
	}
	recipe, err := buildRecipe(reconstructFlags.recipe)
	if err != nil {
		return err
	}
	mapping, bpe, err := reconstructFlags.mapping.build()
	if err != nil {
		return err
	}
	residualMode, err := parseResidualMode(reconstructFlags.residualMode)
	if err != nil {
		return err
	}
	maxTicks := reconstructFlags.maxTicks
	if maxTicks == 0 {
		maxTicks = recipe.MaxTicksCap
	}

	tm1Blob, err := readFile(reconstructFlags.tm1In)
	if err != nil {
		return err
	}
	tm1, err := container.DecodeTM1(tm1Blob)
	if err != nil {
		return err
	}
	bfBlob, err := readFile(reconstructFlags.residualIn)
	if err != nil {
		return err
	}
	bf, err := container.DecodeBF(bfBlob)
	if err != nil {
		return err
	}

	residualSymbols := bf.Payload
	if bpe != 8 {
		residualSymbols = unpackResidualSymbols(bf.Payload, tm1.Count(), bpe)
	}

	rc := timemap.ReconstructConfig{
		Recipe:          recipe,
		Mapping:         mapping,
		BitsPerEmission: bpe,
		ResidualMode:    residualMode,
		MaxTicks:        maxTicks,
	}
	out, err := timemap.Reconstruct(rc, tm1, residualSymbols)
	if err != nil {
		return err
	}

	output := reconstructFlags.output
	if output == "" {
		output = defaultOutputPath(reconstructFlags.tm1In, ".out")
	}
	if err := writeFileAtomic(output, out); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", output, len(out))
	return nil
}

// unpackResidualSymbols mirrors internal/timemap's unexported bit-unpacking
// so the CLI can turn a packed BFn payload back into the one-symbol-per-byte
// form Reconstruct expects, without internal/timemap needing to export it.
func unpackResidualSymbols(packed []byte, count int, bitsPerEmission uint8) []byte {
	out := make([]byte, count)
	for i := 0; i < count; i++ {
		var v byte
		for b := uint8(0); b < bitsPerEmission; b++ {
			bitIdx := i*int(bitsPerEmission) + int(b)
			v |= byte(container.GetBit(packed, bitIdx)) << b
		}
		out[i] = v
	}
	return out
}

var bfLanesFlags struct {
	input     string
	zstdLevel int
}

// bfLanes is another of spec.md §3's "external collaborator" reporters: it
// prints a BFn payload's unpacked per-symbol lane values for inspection,
// with no bearing on fit/reconstruct correctness itself. --zstd-level
// reports what the payload would compress to under the fitter's zstd
// objective, without re-running a fit.
var bfLanesCmd = &cobra.Command{
	Use:   "bf-lanes",
	Short: "Print the unpacked per-symbol values of a BFn residual payload",
	RunE:  runBFLanes,
}

func init() {
	fs := bfLanesCmd.Flags()
	fs.StringVar(&bfLanesFlags.input, "in", "", "input BFn residual path (required)")
	fs.IntVar(&bfLanesFlags.zstdLevel, "zstd-level", 3, "report the payload's compressed size at this zstd effort level")
}

func runBFLanes(cmd *cobra.Command, args []string) error {
	if bfLanesFlags.input == "" {
		return fmt.Errorf("timemap bf-lanes: --in is required")
	}
	blob, err := readFile(bfLanesFlags.input)
	if err != nil {
		return err
	}
	bf, err := container.DecodeBF(blob)
	if err != nil {
		return err
	}
	symbols := bf.Payload
	if bf.BitsPerEmission != 8 {
		symbols = unpackResidualSymbols(bf.Payload, int(bf.TotalSymbols), bf.BitsPerEmission)
	}
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "bits_per_emission: %d\n", bf.BitsPerEmission)
	fmt.Fprintf(w, "total_symbols:     %d\n", bf.TotalSymbols)
	fmt.Fprintf(w, "zstd_size:         %d\n", timemap.ZstdSize(bf.Payload, bfLanesFlags.zstdLevel))
	for i, s := range symbols {
		fmt.Fprintf(w, "%d: %d\n", i, s)
	}
	return nil
}
