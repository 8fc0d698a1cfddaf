package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/y3llowvests/k8dnz"
)

var simFlags struct {
	mode      string
	emissions uint64
	format    string
}

var simCmd = &cobra.Command{
	Use:   "sim",
	Short: "Run the cadence engine and report emitted tokens",
	RunE:  runSim,
}

func init() {
	fs := simCmd.Flags()
	fs.Uint64Var(&simFlags.emissions, "emissions", 10000, "number of emissions to generate")
	fs.StringVar(&simFlags.mode, "mode", "pair", "token view: pair/rgbpair")
	fs.StringVar(&simFlags.format, "fmt", "jsonl", "output format: jsonl/bin")
}

// simEmission is one sim --fmt jsonl output line: the token view named by
// --mode, omitting the other.
type simEmission struct {
	Index uint64  `json:"index"`
	Ticks uint64  `json:"ticks"`
	Pair  *[2]int `json:"pair,omitempty"`
	RGB   *[6]int `json:"rgb,omitempty"`
}

func runSim(cmd *cobra.Command, args []string) error {
	spec := k8dnz.TunedProfile()
	switch simFlags.mode {
	case "", "pair":
		spec.Mode = k8dnz.ModePair
	case "rgbpair":
		spec.Mode = k8dnz.ModeRGBPair
	default:
		return fmt.Errorf("unknown --mode %q", simFlags.mode)
	}
	recipe, err := k8dnz.New(spec)
	if err != nil {
		return err
	}

	e := k8dnz.NewEngine(recipe)
	ems, err := e.EmitStream(simFlags.emissions)
	if err != nil {
		return err
	}

	switch simFlags.format {
	case "", "jsonl":
		enc := json.NewEncoder(cmd.OutOrStdout())
		for _, em := range ems {
			line := simEmission{Index: em.EmissionIndex, Ticks: em.Ticks}
			if recipe.Mode == k8dnz.ModeRGBPair {
				line.RGB = &[6]int{int(em.RGB.RA), int(em.RGB.GA), int(em.RGB.BA), int(em.RGB.RC), int(em.RGB.GC), int(em.RGB.BC)}
			} else {
				line.Pair = &[2]int{int(em.Pair.A), int(em.Pair.B)}
			}
			if err := enc.Encode(line); err != nil {
				return err
			}
		}
	case "bin":
		w := cmd.OutOrStdout()
		for _, em := range ems {
			if recipe.Mode == k8dnz.ModeRGBPair {
				b := em.RGB.Bytes()
				if _, err := w.Write(b[:]); err != nil {
					return err
				}
			} else {
				if _, err := w.Write([]byte{em.Pair.PackByte()}); err != nil {
					return err
				}
			}
		}
	default:
		return fmt.Errorf("unknown --fmt %q", simFlags.format)
	}
	return nil
}
