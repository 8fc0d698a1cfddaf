package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/y3llowvests/k8dnz/internal/container"
)

var encodeFlags struct {
	recipe        recipeFlags
	input         string
	output        string
	maxTicks      uint64
	dumpKeystream bool
}

var encodeCmd = &cobra.Command{
	Use:   "encode",
	Short: "XOR an input file against the generator stream and write an .ark container",
	RunE:  runEncode,
}

func init() {
	fs := encodeCmd.Flags()
	fs.StringVar(&encodeFlags.recipe.profile, "profile", "tuned", "recipe profile: tuned/baseline")
	fs.StringVar(&encodeFlags.recipe.mode, "mode", "pair", "token view: pair/rgbpair")
	fs.Uint64Var(&encodeFlags.maxTicks, "max-ticks", 0, "override the profile's max_ticks_cap (0 = use profile default)")
	fs.StringVar(&encodeFlags.input, "in", "", "input plaintext path (required)")
	fs.StringVarP(&encodeFlags.output, "out", "o", "", "output .ark path (default: <in>.ark)")
	fs.BoolVar(&encodeFlags.dumpKeystream, "dump-keystream", false, "write the raw generator keystream instead of the XORed ciphertext")
}

func runEncode(cmd *cobra.Command, args []string) error {
	if encodeFlags.input == "" {
		return fmt.Errorf("encode: --in is required")
	}
	encodeFlags.recipe.maxTicksCap = encodeFlags.maxTicks
	recipe, err := buildRecipe(encodeFlags.recipe)
	if err != nil {
		return err
	}
	plaintext, err := readFile(encodeFlags.input)
	if err != nil {
		return err
	}
	keystream, err := keystreamFor(recipe, len(plaintext))
	if err != nil {
		return err
	}

	data := keystream
	if !encodeFlags.dumpKeystream {
		data = xorBytes(plaintext, keystream)
	}

	ark := container.Ark{RecipeBytes: recipe.MarshalK8R(), Data: data}
	out := encodeFlags.output
	if out == "" {
		out = defaultOutputPath(encodeFlags.input, ".ark")
	}
	if err := writeFileAtomic(out, ark.Encode()); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", out, len(data))
	return nil
}
