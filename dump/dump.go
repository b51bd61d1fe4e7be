// Package dump reads and writes the plain text listing of a minimal eviction
// set.
//
// A dump starts with "# key=value" header lines followed by one line per
// address: "0x<offset>  0x<address>" when the base of the candidate pool is
// known, "0x<address>" otherwise.
package dump

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/dchest/safefile"
)

// ErrMalformed is returned when a dump cannot be parsed.
var ErrMalformed = errors.New("malformed eviction set dump")

// Header keys written by Write.
const (
	KeySeed              = "seed"
	KeyCacheSize         = "l2_size"
	KeyAssociativity     = "associativity"
	KeyCacheLine         = "cache_line"
	KeyPageSize          = "page_size"
	KeyStride            = "stride"
	KeyCandidatePoolSize = "candidate_pool_size"
	KeyPoolSize          = "pool_size"
	KeyMinimalCount      = "minimal_count"
)

var headerOrder = []string{
	KeySeed,
	KeyCacheSize,
	KeyAssociativity,
	KeyCacheLine,
	KeyPageSize,
	KeyStride,
	KeyCandidatePoolSize,
	KeyPoolSize,
	KeyMinimalCount,
}

const columnsComment = "# offsets (hex)  then virtual addresses"

// An Entry is one address of the set, with its offset into the pool when the
// pool base is known.
type Entry struct {
	Offset    uint64
	HasOffset bool
	Address   uint64
}

// A Dump is the content of a dump file.
type Dump struct {
	Seed              int64
	CacheSize         uint64
	Associativity     uint64
	CacheLine         uint64
	PageSize          uint64
	Stride            uint64
	CandidatePoolSize uint64
	PoolSize          uint64

	// Extra holds header keys that are not known to this package.
	Extra map[string]string

	Entries []Entry
}

// MinimalCount returns the number of addresses in the dump.
func (d *Dump) MinimalCount() int {
	return len(d.Entries)
}

// AddAddresses appends addrs. When base is not zero, offsets relative to
// base are recorded too.
func (d *Dump) AddAddresses(base uintptr, addrs []uintptr) {
	for _, a := range addrs {
		e := Entry{Address: uint64(a)}
		if base != 0 {
			e.Offset = uint64(a - base)
			e.HasOffset = true
		}

		d.Entries = append(d.Entries, e)
	}
}

func (d *Dump) headerValue(key string) string {
	switch key {
	case KeySeed:
		return strconv.FormatInt(d.Seed, 10)
	case KeyCacheSize:
		return strconv.FormatUint(d.CacheSize, 10)
	case KeyAssociativity:
		return strconv.FormatUint(d.Associativity, 10)
	case KeyCacheLine:
		return strconv.FormatUint(d.CacheLine, 10)
	case KeyPageSize:
		return strconv.FormatUint(d.PageSize, 10)
	case KeyStride:
		return strconv.FormatUint(d.Stride, 10)
	case KeyCandidatePoolSize:
		return strconv.FormatUint(d.CandidatePoolSize, 10)
	case KeyPoolSize:
		return strconv.FormatUint(d.PoolSize, 10)
	case KeyMinimalCount:
		return strconv.Itoa(d.MinimalCount())
	}

	return d.Extra[key]
}

// Write writes d to w.
func Write(w io.Writer, d *Dump) error {
	bw := bufio.NewWriter(w)

	for _, key := range headerOrder {
		fmt.Fprintf(bw, "# %s=%s\n", key, d.headerValue(key))
	}

	for _, key := range d.extraKeys() {
		fmt.Fprintf(bw, "# %s=%s\n", key, d.Extra[key])
	}

	fmt.Fprintln(bw, columnsComment)

	for _, e := range d.Entries {
		if e.HasOffset {
			fmt.Fprintf(bw, "0x%x  0x%x\n", e.Offset, e.Address)
		} else {
			fmt.Fprintf(bw, "0x%x\n", e.Address)
		}
	}

	return bw.Flush()
}

// extraKeys returns the sorted keys of Extra that do not shadow a header.
func (d *Dump) extraKeys() []string {
	keys := make([]string, 0, len(d.Extra))

	for key := range d.Extra {
		if !slices.Contains(headerOrder, key) {
			keys = append(keys, key)
		}
	}

	sort.Strings(keys)

	return keys
}

// WriteFile replaces the file at path with d. Readers never observe a
// partially written dump.
func WriteFile(path string, d *Dump) error {
	var buf bytes.Buffer

	if err := Write(&buf, d); err != nil {
		return err
	}

	return safefile.WriteFile(path, buf.Bytes(), 0o644)
}

// Read parses a dump.
func Read(r io.Reader) (*Dump, error) {
	d := &Dump{}
	minimalCount := -1
	lineNo := 0

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())

		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "#") {
			count, err := d.parseHeader(strings.TrimSpace(line[1:]))
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrMalformed, lineNo, err)
			}

			if count >= 0 {
				minimalCount = count
			}

			continue
		}

		e, err := parseEntry(line)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformed, lineNo, err)
		}

		d.Entries = append(d.Entries, e)
	}

	if err := sc.Err(); err != nil {
		return nil, err
	}

	if minimalCount >= 0 && minimalCount != len(d.Entries) {
		return nil, fmt.Errorf("%w: header announces %d addresses, found %d",
			ErrMalformed, minimalCount, len(d.Entries))
	}

	return d, nil
}

// ReadFile parses the dump file at path.
func ReadFile(path string) (*Dump, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Read(f)
}

// parseHeader stores one header line. It returns the announced minimal
// count, or -1 for other lines.
func (d *Dump) parseHeader(line string) (int, error) {
	key, value, ok := strings.Cut(line, "=")
	if !ok {
		return -1, nil
	}

	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)

	var err error

	switch key {
	case KeySeed:
		d.Seed, err = strconv.ParseInt(value, 10, 64)
	case KeyCacheSize:
		d.CacheSize, err = strconv.ParseUint(value, 10, 64)
	case KeyAssociativity:
		d.Associativity, err = strconv.ParseUint(value, 10, 64)
	case KeyCacheLine:
		d.CacheLine, err = strconv.ParseUint(value, 10, 64)
	case KeyPageSize:
		d.PageSize, err = strconv.ParseUint(value, 10, 64)
	case KeyStride:
		d.Stride, err = strconv.ParseUint(value, 10, 64)
	case KeyCandidatePoolSize:
		d.CandidatePoolSize, err = strconv.ParseUint(value, 10, 64)
	case KeyPoolSize:
		d.PoolSize, err = strconv.ParseUint(value, 10, 64)
	case KeyMinimalCount:
		count, err := strconv.Atoi(value)
		if err != nil {
			return -1, fmt.Errorf("%s: %v", key, err)
		}

		return count, nil
	default:
		if d.Extra == nil {
			d.Extra = make(map[string]string)
		}

		d.Extra[key] = value
	}

	if err != nil {
		return -1, fmt.Errorf("%s: %v", key, err)
	}

	return -1, nil
}

func parseEntry(line string) (Entry, error) {
	fields := strings.Fields(line)

	switch len(fields) {
	case 1:
		addr, err := parseHex(fields[0])
		return Entry{Address: addr}, err
	case 2:
		offset, err := parseHex(fields[0])
		if err != nil {
			return Entry{}, err
		}

		addr, err := parseHex(fields[1])

		return Entry{Offset: offset, HasOffset: true, Address: addr}, err
	default:
		return Entry{}, fmt.Errorf("expected 1 or 2 columns, got %d", len(fields))
	}
}

func parseHex(s string) (uint64, error) {
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return 0, fmt.Errorf("%q is not a hexadecimal number", s)
	}

	return strconv.ParseUint(s[2:], 16, 64)
}
