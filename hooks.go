package cacheaside

// Hooks lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking.
// The service calls them on hot paths.
type Hooks interface {
	// A lookup failed with a transport error; the producer serves the call.
	// op ∈ {"get", "hgetall"}
	BackendFallback(op, key string, err error)

	// The write-back after a get-or-fetch failed and was discarded.
	WriteBackDropped(key string, err error)

	// A get-or-fetch ran its producer.
	// reason ∈ {ReasonMiss, ReasonFallback}
	ProducerInvoked(key, reason string)

	// Stored data did not decode to the requested shape.
	DecodeFailed(key string, err error)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) BackendFallback(string, string, error) {}
func (NopHooks) WriteBackDropped(string, error)        {}
func (NopHooks) ProducerInvoked(string, string)        {}
func (NopHooks) DecodeFailed(string, error)            {}
