package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/y3llowvests/k8dnz"
	"github.com/y3llowvests/k8dnz/internal/container"
)

var decodeFlags struct {
	input    string
	output   string
	maxTicks uint64
}

var decodeCmd = &cobra.Command{
	Use:   "decode",
	Short: "Unpack an .ark container and recover its plaintext by re-XORing the generator stream",
	RunE:  runDecode,
}

func init() {
	fs := decodeCmd.Flags()
	fs.StringVar(&decodeFlags.input, "in", "", "input .ark path (required)")
	fs.StringVarP(&decodeFlags.output, "out", "o", "", "output data path (default: <in>.bin)")
	fs.Uint64Var(&decodeFlags.maxTicks, "max-ticks", 0, "override the recipe's max_ticks_cap (0 = use the value stored in the .ark)")
}

func runDecode(cmd *cobra.Command, args []string) error {
	if decodeFlags.input == "" {
		return fmt.Errorf("decode: --in is required")
	}
	blob, err := readFile(decodeFlags.input)
	if err != nil {
		return err
	}
	ark, err := container.DecodeArk(blob)
	if err != nil {
		return err
	}
	recipe, err := k8dnz.UnmarshalRecipe(ark.RecipeBytes)
	if err != nil {
		return err
	}
	if decodeFlags.maxTicks != 0 {
		recipe.MaxTicksCap = decodeFlags.maxTicks
	}
	keystream, err := keystreamFor(recipe, len(ark.Data))
	if err != nil {
		return err
	}
	plaintext := xorBytes(ark.Data, keystream)

	out := decodeFlags.output
	if out == "" {
		out = defaultOutputPath(decodeFlags.input, ".bin")
	}
	if err := writeFileAtomic(out, plaintext); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", out, len(plaintext))
	return nil
}
