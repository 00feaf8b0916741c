package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/codecachelabs/dbtcore/ir"
	"github.com/codecachelabs/dbtcore/isa"
	"github.com/codecachelabs/dbtcore/isa/arm64"
	"github.com/codecachelabs/dbtcore/isa/riscv64"
	"github.com/codecachelabs/dbtcore/isa/x86"
)

// opcodeNamer is implemented by every isa.Arch port's own OpcodeName
// method. isa.Arch itself does not declare it (a port is free to ship no
// readable mnemonic table at all); decode asserts for it rather than
// requiring it.
type opcodeNamer interface {
	OpcodeName(op ir.Opcode) string
}

// archByName resolves the --isa flag both subcommands share.
func archByName(name string) (isa.Arch, error) {
	switch name {
	case "arm64":
		return arm64.New(), nil
	case "x86-64", "x86":
		return x86.New(), nil
	case "riscv64":
		return riscv64.New(), nil
	default:
		return nil, fmt.Errorf("dbtcore: unknown isa %q (want arm64, x86-64, or riscv64)", name)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "dbtcore",
		Short:         "Decode, encode, and exercise the dbtcore DBT core from the command line",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	cmd.AddCommand(newDecodeCmd())
	cmd.AddCommand(newDemoCmd())
	return cmd
}
