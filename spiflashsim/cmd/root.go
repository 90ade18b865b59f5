// Package cmd provides the command-line interface of spiflashsim.
package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/spiflash"
	"github.com/sarchlab/spiflash/spi"
	"github.com/sarchlab/spiflash/spi/flash"
	"github.com/sarchlab/spiflash/spi/mmap"
	"github.com/sarchlab/spiflash/timing"
)

// envPrefix is prepended to the upper-cased flag name, with dashes turned into
// underscores, to find its environment default.
const envPrefix = "SPIFLASH_"

// NewRootCmd creates the command tree.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "spiflashsim",
		Short: "Simulate a memory-mapped serial-flash read bridge.",
		Long: `spiflashsim simulates, cycle by cycle, a bridge that serves ` +
			`bus reads from a serial NOR flash using burst reads. Flags ` +
			`default to SPIFLASH_* variables, which may be set in a .env file.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return applyEnv(cmd.Flags())
		},
	}

	f := rootCmd.PersistentFlags()
	f.Int("width", int(spi.Quad), "data lines used after the command: 1, 2, 4 or 8")
	f.Uint32("divisor", 0, "serial clock divisor, SCK = host / (2 * (divisor + 1))")
	f.Uint32("hold-timeout", mmap.DefaultHoldTimeout, "idle cycles a burst stays open")
	f.Uint8("dummy-bits", 24, "dummy bits between address and data")
	f.Uint32("dummy-pattern", 0xFF0000, "value shifted out during the dummy phase")
	f.Uint8("opcode", 0xEB, "fast-read opcode")
	f.Uint32("cs-delay", 0, "cycles chip select is held before the first phase")
	f.String("byte-order", "little", "bus word byte order: little or big")
	f.String("image", "", "flash image file; a generated pattern is used if empty")
	f.Int("size", 1<<20, "flash size in bytes, a power of two")
	f.Uint64("freq-mhz", 100, "host clock in MHz")
	f.Bool("register-master", false, "add the register-mode master and crossbar")

	rootCmd.AddCommand(newRunCmd(), newSweepCmd(), newScenarioCmd())

	return rootCmd
}

// Execute loads .env, runs the command line, and exits.
func Execute() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Error loading .env: %v\n", err)
		atexit.Exit(1)
	}

	if err := NewRootCmd().Execute(); err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}

// applyEnv fills every flag not given on the command line from its
// SPIFLASH_* variable.
func applyEnv(flags *pflag.FlagSet) error {
	var err error

	flags.VisitAll(func(f *pflag.Flag) {
		if err != nil || f.Changed {
			return
		}

		name := envPrefix + strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_"))

		v, ok := os.LookupEnv(name)
		if !ok {
			return
		}

		if setErr := flags.Set(f.Name, v); setErr != nil {
			err = fmt.Errorf("%s: %w", name, setErr)
		}
	})

	return err
}

// specFromFlags builds the bridge configuration and the flash content.
func specFromFlags(flags *pflag.FlagSet) (spiflash.Spec, flash.Image, error) {
	spec := spiflash.DefaultSpec()

	width, _ := flags.GetInt("width")
	spec.Width = spi.Width(width)
	spec.Divisor, _ = flags.GetUint32("divisor")
	spec.HoldTimeout, _ = flags.GetUint32("hold-timeout")
	spec.DummyBits, _ = flags.GetUint8("dummy-bits")
	spec.DummyPattern, _ = flags.GetUint32("dummy-pattern")
	spec.Opcode, _ = flags.GetUint8("opcode")
	spec.CSDelay, _ = flags.GetUint32("cs-delay")
	spec.RegisterMaster, _ = flags.GetBool("register-master")
	spec.SizeBytes, _ = flags.GetInt("size")

	freqMHz, _ := flags.GetUint64("freq-mhz")
	spec.Freq = timing.FreqInHz(freqMHz) * timing.MHz

	order, _ := flags.GetString("byte-order")

	var err error

	spec.ByteOrder, err = mmap.ParseByteOrder(order)
	if err != nil {
		return spec, nil, err
	}

	if err := spec.Validate(); err != nil {
		return spec, nil, err
	}

	var img flash.Image

	path, _ := flags.GetString("image")
	if path == "" {
		img, err = flash.PatternImage(spec.SizeBytes)
	} else {
		img, err = flash.LoadImage(path, spec.SizeBytes)
	}

	if err != nil {
		return spec, nil, err
	}

	return spec, img, nil
}
