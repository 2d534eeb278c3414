package datrie

import "github.com/pkg/errors"

// Integer forms of the two lookup-miss sentinels. No function in this
// package returns them; sentinelToErr maps each to its error value below.
const (
	noValue int = -1
	noPath  int = -2
)

// NO_VALUE and NO_PATH per spec §6.2, exported as plain integers. The query
// API, including the Begin/Next cursor, reports misses as ErrNoValue and
// ErrNoPath instead.
const (
	NoValue = noValue
	NoPath  = noPath
)

// Public sentinel errors for the query API. The engine itself (followPath,
// ExactMatch, Begin/Next, Erase) returns these error values directly; they
// stand in for the original C++ engine's int-sentinel convention (see
// SPEC_FULL.md §C.3).
var (
	// ErrNoPath means the key's path broke before it was fully consumed:
	// no edge exists for some prefix of the key.
	ErrNoPath = errors.New("datrie: no path")

	// ErrNoValue means the key traced a complete, valid path but no
	// terminal value was ever stored at its leaf.
	ErrNoValue = errors.New("datrie: no value")

	// ErrAbsentKey is not returned by Erase, which reports an absent key as
	// ErrNoPath or ErrNoValue; accstore.MemStore.Get returns it for a
	// missing name.
	ErrAbsentKey = errors.New("datrie: key not found")

	// ErrEmptyKey and ErrNulByte are not returned by this package: per
	// §4.2, an empty key or a key containing the reserved NUL byte is a
	// contract violation on the allocation-free hot path, and Update
	// panics directly at the call site instead. They are kept as
	// sentinels for host programs that want a typed value to recover()
	// into rather than matching on panic message text.
	ErrEmptyKey = errors.New("datrie: empty key")
	ErrNulByte  = errors.New("datrie: key contains reserved NUL byte")
)

func sentinelToErr(v int) error {
	switch v {
	case noPath:
		return ErrNoPath
	case noValue:
		return ErrNoValue
	default:
		return nil
	}
}

// wrapIOErr annotates a boundary I/O or decode failure with context,
// per SPEC_FULL.md §A.2. Hot-path mutation errors are never wrapped here;
// they panic directly at their call site.
func wrapIOErr(err error, context string) error {
	if err == nil {
		return nil
	}
	return errors.Wrapf(err, "datrie: %s", context)
}
