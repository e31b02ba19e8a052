package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gogpu/pingpong/internal/gpu"
)

var shadersCmd = &cobra.Command{
	Use:   "shaders",
	Short: "Compile the embedded WGSL shaders and report the result",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		failed := 0
		for _, s := range gpu.Shaders() {
			words, err := gpu.CompileSPIRV(s.WGSL)
			if err != nil {
				failed++
				fmt.Fprintf(cmd.OutOrStdout(), "%-8s FAIL %v\n", s.Label, err)
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%-8s ok   %d SPIR-V words\n", s.Label, len(words))
		}
		if failed > 0 {
			return fmt.Errorf("%d shader(s) failed to compile", failed)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(shadersCmd)
}
