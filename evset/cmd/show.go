package cmd

import (
	"fmt"
	"io"
	"sort"

	"github.com/sarchlab/evset/dump"
	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show <dump>",
	Short: "Print an eviction set dump.",
	Long: "`show` parses a dump written by `run`, prints its parameters and " +
		"addresses, and checks that every address maps to the same set.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := dump.ReadFile(args[0])
		if err != nil {
			return err
		}

		printDump(cmd.OutOrStdout(), d)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
}

func printDump(w io.Writer, d *dump.Dump) {
	fmt.Fprintf(w, "seed:            %d\n", d.Seed)
	fmt.Fprintf(w, "cache:           %d bytes, %d ways, %d byte lines\n",
		d.CacheSize, d.Associativity, d.CacheLine)
	fmt.Fprintf(w, "page size:       %d\n", d.PageSize)
	fmt.Fprintf(w, "stride:          0x%x\n", d.Stride)
	fmt.Fprintf(w, "candidate pool:  %d addresses in %d bytes\n",
		d.CandidatePoolSize, d.PoolSize)

	keys := make([]string, 0, len(d.Extra))
	for k := range d.Extra {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	for _, k := range keys {
		fmt.Fprintf(w, "%-16s %s\n", k+":", d.Extra[k])
	}

	fmt.Fprintf(w, "%d addresses:\n", d.MinimalCount())

	for _, e := range d.Entries {
		if e.HasOffset {
			fmt.Fprintf(w, "  0x%x  (pool offset 0x%x)\n", e.Address, e.Offset)
		} else {
			fmt.Fprintf(w, "  0x%x\n", e.Address)
		}
	}

	switch {
	case d.Stride == 0 || len(d.Entries) == 0:
	case congruent(d):
		fmt.Fprintln(w, "all addresses map to the same cache set")
	default:
		fmt.Fprintln(w, "warning: the addresses do not map to the same cache set")
	}

	if d.Associativity != 0 && uint64(d.MinimalCount()) != d.Associativity {
		fmt.Fprintf(w, "warning: %d addresses for a %d-way cache\n",
			d.MinimalCount(), d.Associativity)
	}
}

func congruent(d *dump.Dump) bool {
	first := d.Entries[0].Address % d.Stride

	for _, e := range d.Entries[1:] {
		if e.Address%d.Stride != first {
			return false
		}
	}

	return true
}
