package kvengine

// OpenMode selects one of the three open modes of §6.4.
type OpenMode int

const (
	// ReadWrite creates missing stores, registers the merge operator, and
	// is the mode the server runs in during steady state.
	ReadWrite OpenMode = iota
	// ReadOnly opens without a writable handle; no writes, no timer. The
	// merge operator is still registered so already-written operands are
	// presented as merged views on read.
	ReadOnly
	// Bulk disables automatic compaction for the duration of a load; the
	// caller is expected to call Compact explicitly afterwards.
	Bulk
)

// Options configures Open.
type Options struct {
	DocsPath    string
	IndexesPath string
	Mode        OpenMode
	// CacheBytes sizes the shared block cache; zero uses pebble's default.
	CacheBytes int64
	// BloomFilterBitsPerKey sizes the per-table bloom filter; zero disables it.
	BloomFilterBitsPerKey int
}
