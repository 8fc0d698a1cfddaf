package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/y3llowvests/k8dnz/orbband"
)

// orbexp groups the diagnostic OrbBandsplit commands. Spec.md §4.8 treats
// these as non-reconstructible, external-collaborator territory: they
// observe the engine's phase, they never feed a fit/reconstruct round trip.
var orbexpCmd = &cobra.Command{
	Use:   "orbexp",
	Short: "Orbital banding diagnostics (non-reconstructible)",
}

func init() {
	orbexpCmd.AddCommand(blockscanCmd, bandsplitCmd)
}

var bandsplitFlags struct {
	recipe      recipeFlags
	input       string
	blockBytes  int
	mod         uint64
	bucketShift uint
	bucketMod   uint64
	maxTicks    uint64
	tagBits     uint8
	dataOut     string
	tagsOut     string
}

var bandsplitCmd = &cobra.Command{
	Use:   "bandsplit",
	Short: "Bucket a byte stream's fixed-width blocks into lanes by first phase match",
	RunE:  runBandsplit,
}

func init() {
	fs := bandsplitCmd.Flags()
	fs.StringVar(&bandsplitFlags.recipe.profile, "recipe", "tuned", "recipe profile: tuned/baseline")
	fs.StringVar(&bandsplitFlags.recipe.mode, "mode", "pair", "token view: pair/rgbpair")
	fs.Uint64Var(&bandsplitFlags.recipe.maxTicksCap, "recipe-max-ticks", 0, "override the profile's max_ticks_cap (0 = use profile default)")
	fs.StringVar(&bandsplitFlags.input, "input", "", "input byte stream path (required)")
	fs.IntVar(&bandsplitFlags.blockBytes, "block-bytes", 4, "block width in bytes, 1-4")
	fs.Uint64Var(&bandsplitFlags.mod, "mod", orbband.DefaultMod, "phase/encoding comparison modulus (default 2^32-1; 2^32 degenerates to one lane for most recipes)")
	fs.UintVar(&bandsplitFlags.bucketShift, "bucket-shift", 0, "right-shift applied to tfirst before bucketing")
	fs.Uint64Var(&bandsplitFlags.bucketMod, "bucket-mod", 16, "number of lanes")
	fs.Uint64Var(&bandsplitFlags.maxTicks, "max-ticks", 1_000_000, "per-block tfirst search budget")
	fs.Uint8Var(&bandsplitFlags.tagBits, "tag-bits", 0, "0 for one raw byte per tag, else 1-8 for packed TG1 tags")
	fs.StringVar(&bandsplitFlags.dataOut, "data-out", "", "output .data.bin path (default: <input>.data.bin)")
	fs.StringVar(&bandsplitFlags.tagsOut, "tags-out", "", "output .tags.bin path (default: <input>.tags.bin)")
}

func runBandsplit(cmd *cobra.Command, args []string) error {
	if bandsplitFlags.input == "" {
		return fmt.Errorf("orbexp bandsplit: --input is required")
	}
	recipe, err := buildRecipe(bandsplitFlags.recipe)
	if err != nil {
		return err
	}
	input, err := readFile(bandsplitFlags.input)
	if err != nil {
		return err
	}

	cfg := orbband.Config{
		BlockBytes:  bandsplitFlags.blockBytes,
		Mod:         bandsplitFlags.mod,
		BucketShift: bandsplitFlags.bucketShift,
		BucketMod:   bandsplitFlags.bucketMod,
		MaxTicks:    bandsplitFlags.maxTicks,
		TagBits:     bandsplitFlags.tagBits,
	}
	result, err := orbband.Run(recipe, cfg, input)
	if err != nil {
		return err
	}

	dataOut := bandsplitFlags.dataOut
	if dataOut == "" {
		dataOut = bandsplitFlags.input + ".data.bin"
	}
	if err := writeFileAtomic(dataOut, result.Data); err != nil {
		return err
	}

	tagsOut := bandsplitFlags.tagsOut
	if tagsOut == "" {
		tagsOut = bandsplitFlags.input + ".tags.bin"
	}
	tagsBlob := result.Tags
	if result.Packed {
		tagsBlob = result.TG1.Encode()
	}
	if err := writeFileAtomic(tagsOut, tagsBlob); err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "wrote %s (%d bytes), %s (%d blocks, packed=%v)\n",
		dataOut, len(result.Data), tagsOut, len(result.Data)/bandsplitFlags.blockBytes, result.Packed)
	return nil
}

var blockscanFlags struct {
	input      string
	blockBytes int
}

// blockscan is orbexp's plain companion to bandsplit: it prints each
// block's raw little-endian-decoded value without touching the engine at
// all, useful for sanity-checking --input before a bandsplit run.
var blockscanCmd = &cobra.Command{
	Use:   "blockscan",
	Short: "Print a byte stream's fixed-width block values without computing lanes",
	RunE:  runBlockscan,
}

func init() {
	fs := blockscanCmd.Flags()
	fs.StringVar(&blockscanFlags.input, "input", "", "input byte stream path (required)")
	fs.IntVar(&blockscanFlags.blockBytes, "block-bytes", 4, "block width in bytes, 1-4")
}

func runBlockscan(cmd *cobra.Command, args []string) error {
	if blockscanFlags.input == "" {
		return fmt.Errorf("orbexp blockscan: --input is required")
	}
	if blockscanFlags.blockBytes < 1 || blockscanFlags.blockBytes > 4 {
		return fmt.Errorf("orbexp blockscan: --block-bytes must be in [1,4]")
	}
	input, err := readFile(blockscanFlags.input)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	n := blockscanFlags.blockBytes
	for i := 0; i < len(input); i += n {
		end := i + n
		if end > len(input) {
			end = len(input)
		}
		var v uint32
		for j, b := range input[i:end] {
			v |= uint32(b) << (8 * uint(j))
		}
		fmt.Fprintf(w, "%d: %#x\n", i/n, v)
	}
	return nil
}
