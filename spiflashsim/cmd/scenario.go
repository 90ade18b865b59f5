package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sarchlab/spiflash"
	"github.com/sarchlab/spiflash/spi"
	"github.com/sarchlab/spiflash/spi/flash"
	"github.com/sarchlab/spiflash/spi/mmap"
)

// Quad fast-read scenario: two sequential reads, the second continuing the
// burst of the first.
const (
	scenarioFirstWord = 0x001234
	scenarioGap       = 5
	scenarioImageSize = 1 << 16
)

func newScenarioCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scenario",
		Short: "Run the quad fast-read burst scenario.",
		Long: `scenario reads word 0x001234 and then word 0x001235 with a ` +
			`quad 0xEB fast read at divisor 1 and 24 dummy bits. The second ` +
			`read must continue the burst with only a data phase.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runScenario(cmd)
		},
	}
}

func scenarioSpec() spiflash.Spec {
	spec := spiflash.DefaultSpec()
	spec.Width = spi.Quad
	spec.Divisor = 1
	spec.Opcode = 0xEB
	spec.DummyBits = 24
	spec.DummyPattern = 0xFF0000
	spec.SizeBytes = scenarioImageSize
	spec.ByteOrder = mmap.LittleEndian

	return spec
}

func runScenario(cmd *cobra.Command) error {
	spec := scenarioSpec()

	img, err := flash.PatternImage(spec.SizeBytes)
	if err != nil {
		return err
	}

	b, err := spiflash.NewBridge(spec, img)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	var lastPhases uint64

	for i, wordAddr := range []uint32{scenarioFirstWord, scenarioFirstWord + 1} {
		if i > 0 {
			b.Idle(scenarioGap)
		}

		data, cycles, err := b.Read(cmd.Context(), wordAddr)
		if err != nil {
			return err
		}

		stats := b.Stats()
		phases := stats.Phases - lastPhases
		lastPhases = stats.Phases

		fmt.Fprintf(out, "read 0x%06X  data 0x%08X  cycles %4d  phases %d\n",
			wordAddr, data, cycles, phases)

		if want := img.Word(wordAddr); data != want {
			return fmt.Errorf("scenario: word 0x%06X read 0x%08X, want 0x%08X",
				wordAddr, data, want)
		}

		wantPhases := uint64(4)
		if i > 0 {
			wantPhases = 1
		}

		if phases != wantPhases {
			return fmt.Errorf("scenario: word 0x%06X took %d phases, want %d",
				wordAddr, phases, wantPhases)
		}
	}

	fmt.Fprintf(out, "burst continued, %d flash command issued\n",
		b.Stats().FlashCommands)

	return nil
}
