package cmd

import (
	"context"
	"fmt"
	"math/bits"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sarchlab/spiflash"
	"github.com/sarchlab/spiflash/spi"
	"github.com/sarchlab/spiflash/spi/flash"
	"github.com/sarchlab/spiflash/spi/mmap"
)

var sweepWidths = []spi.Width{spi.Single, spi.Dual, spi.Quad, spi.Octal}

func newSweepCmd() *cobra.Command {
	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "Read the same sequence at every width and divisor.",
		Long: `sweep reads a run of sequential words at widths 1, 2, 4 and 8 ` +
			`and each given divisor, and prints the cycles of the first ` +
			`read and of the burst continuations.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSweep(cmd)
		},
	}

	f := sweepCmd.Flags()
	f.UintSlice("divisors", []uint{0, 1, 3}, "serial clock divisors to sweep")
	f.Int("words", 16, "sequential words read per configuration")
	f.Uint32("address", 0x100, "first word address")

	return sweepCmd
}

type sweepRow struct {
	width        spi.Width
	divisor      uint32
	first        uint64
	continuation float64
	dataXfer     uint64
	total        uint64
}

func runSweep(cmd *cobra.Command) error {
	base, img, err := specFromFlags(cmd.Flags())
	if err != nil {
		return err
	}

	divisors, _ := cmd.Flags().GetUintSlice("divisors")
	words, _ := cmd.Flags().GetInt("words")
	addr, _ := cmd.Flags().GetUint32("address")

	if words < 2 {
		return fmt.Errorf("sweep: need at least 2 words, got %d", words)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "width\tdivisor\tfirst\tcontinue\tdata xfer\ttotal\t")

	for _, d := range divisors {
		for _, width := range sweepWidths {
			spec := base
			spec.Width = width
			spec.Divisor = uint32(d)

			row, err := sweepOne(cmd.Context(), spec, img, addr, words)
			if err != nil {
				return fmt.Errorf("width %d divisor %d: %w", width, d, err)
			}

			fmt.Fprintf(w, "x%d\t%d\t%d\t%.1f\t%d\t%d\t\n",
				row.width, row.divisor, row.first, row.continuation,
				row.dataXfer, row.total)
		}
	}

	return w.Flush()
}

func sweepOne(
	ctx context.Context,
	spec spiflash.Spec,
	img flash.Image,
	addr uint32,
	words int,
) (sweepRow, error) {
	row := sweepRow{width: spec.Width, divisor: spec.Divisor}

	b, err := spiflash.NewBridge(spec, img)
	if err != nil {
		return row, err
	}

	var continued uint64

	for i := 0; i < words; i++ {
		wordAddr := addr + uint32(i)
		xferBefore := b.Stats().XferCycles

		data, cycles, err := b.Read(ctx, wordAddr)
		if err != nil {
			return row, err
		}

		want := expectedWord(img, wordAddr, spec.ByteOrder)
		if data != want {
			return row, fmt.Errorf("word 0x%X: read 0x%08X, image holds 0x%08X",
				wordAddr, data, want)
		}

		if i == 0 {
			row.first = cycles
			continue
		}

		continued += cycles
		row.dataXfer = b.Stats().XferCycles - xferBefore
	}

	row.continuation = float64(continued) / float64(words-1)
	row.total = b.Now()

	return row, nil
}

// expectedWord is the bus word a read of wordAddr must return.
func expectedWord(img flash.Image, wordAddr uint32, order mmap.ByteOrder) uint32 {
	word := img.Word(wordAddr)
	if order == mmap.BigEndian {
		return bits.ReverseBytes32(word)
	}

	return word
}
