package main

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/y3llowvests/k8dnz"
	"github.com/y3llowvests/k8dnz/internal/container"
)

var arkInspectFlags struct {
	input          string
	dumpCiphertext bool
}

var arkInspectCmd = &cobra.Command{
	Use:   "ark-inspect",
	Short: "Print an .ark container's recipe fields and data length",
	RunE:  runArkInspect,
}

func init() {
	fs := arkInspectCmd.Flags()
	fs.StringVar(&arkInspectFlags.input, "in", "", "input .ark path (required)")
	fs.BoolVar(&arkInspectFlags.dumpCiphertext, "dump-ciphertext", false, "hex-dump the container's data bytes")
}

func runArkInspect(cmd *cobra.Command, args []string) error {
	if arkInspectFlags.input == "" {
		return fmt.Errorf("ark-inspect: --in is required")
	}
	blob, err := readFile(arkInspectFlags.input)
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
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "version:         %d\n", recipe.Version)
	fmt.Fprintf(w, "mode:            %d\n", recipe.Mode)
	fmt.Fprintf(w, "orbit_a:         phase=%#016x omega=%#016x\n", uint64(recipe.OrbitA.Phase), uint64(recipe.OrbitA.Omega))
	fmt.Fprintf(w, "orbit_c:         phase=%#016x omega=%#016x\n", uint64(recipe.OrbitC.Phase), uint64(recipe.OrbitC.Omega))
	fmt.Fprintf(w, "epsilon:         %#016x\n", uint64(recipe.Epsilon))
	fmt.Fprintf(w, "delta:           %#016x\n", uint64(recipe.Delta))
	fmt.Fprintf(w, "axial_step:      %#016x\n", uint64(recipe.AxialStep))
	fmt.Fprintf(w, "lockstep_omega:  %#016x\n", uint64(recipe.LockstepOmega))
	fmt.Fprintf(w, "field_seed:      %#016x\n", recipe.FieldSeed)
	fmt.Fprintf(w, "clamp:           [%d, %d]\n", recipe.Clamp.Lo, recipe.Clamp.Hi)
	fmt.Fprintf(w, "quant:           bins=%d shift=%d\n", recipe.Quant.Bins, recipe.Quant.Shift)
	fmt.Fprintf(w, "max_ticks_cap:   %d\n", recipe.MaxTicksCap)
	fmt.Fprintf(w, "checksum:        %#08x\n", recipe.Checksum)
	fmt.Fprintf(w, "unknown_fields:  %d\n", len(recipe.Unknown))
	fmt.Fprintf(w, "data_len:        %d bytes\n", len(ark.Data))
	if arkInspectFlags.dumpCiphertext {
		fmt.Fprintf(w, "data:            %s\n", hex.EncodeToString(ark.Data))
	}
	return nil
}
