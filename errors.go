package hfstol

import "errors"

// Sentinel errors for the failure taxonomy. Callers distinguish them with
// errors.Is; everything returned by this package wraps one of these.
var (
	// ErrLexiconNotFound reports that the .hfstol file does not exist or
	// cannot be read at handle-construction time.
	ErrLexiconNotFound = errors.New("lexicon not found")

	// ErrWeightedNotSupported reports that the lexicon is a weighted
	// transducer, which this package cannot evaluate.
	ErrWeightedNotSupported = errors.New("weighted hfstol is not supported")

	// ErrLookupNotInstalled reports that the hfst-optimized-lookup
	// executable is absent from the host. Callers may fall back to the
	// slow path, which needs the same binary, or install the HFST suite.
	ErrLookupNotInstalled = errors.New("hfst-optimized-lookup is not installed")

	// ErrEngineFailure reports that a lookup subprocess failed to start,
	// crashed, or produced malformed output mid-call. The in-flight call
	// is lost; the handle remains usable for new calls.
	ErrEngineFailure = errors.New("lookup engine failure")
)
