package main

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/codecachelabs/dbtcore/decode"
	"github.com/codecachelabs/dbtcore/internal/logging"
	"github.com/codecachelabs/dbtcore/ir"
)

// newDecodeCmd disassembles a hex byte string one instruction at a time,
// stopping at the first undecodable byte, the thin CLI surface SPEC_FULL.md
// §B.5 asks for: no translation-policy logic, just a pass-through to the
// public decode package.
func newDecodeCmd() *cobra.Command {
	var isaName string
	var pc uint64

	cmd := &cobra.Command{
		Use:   "decode <hex-bytes>",
		Short: "Disassemble a hex-encoded byte string for one ISA",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := archByName(isaName)
			if err != nil {
				return err
			}
			b, err := hex.DecodeString(strings.ReplaceAll(args[0], " ", ""))
			if err != nil {
				return fmt.Errorf("dbtcore: decoding hex input: %w", err)
			}
			namer, _ := a.(opcodeNamer)

			log := logging.Nop()
			consumed := 0
			for consumed < len(b) {
				in, n, err := decode.Decode(a, log, pc+uint64(consumed), ir.ModeDefault, b[consumed:])
				if err != nil {
					return fmt.Errorf("dbtcore: decode at offset %d: %w", consumed, err)
				}
				name := "unknown"
				if namer != nil {
					name = namer.OpcodeName(in.Opcode)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%#08x: %-10s %s\n",
					pc+uint64(consumed), name, hex.EncodeToString(b[consumed:consumed+n]))
				consumed += n
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&isaName, "isa", "arm64", "target ISA: arm64, x86-64, or riscv64")
	cmd.Flags().Uint64Var(&pc, "pc", 0, "address the first byte is loaded at")
	return cmd
}
