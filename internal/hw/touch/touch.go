package touch

// Source produces pointer events from its own goroutine. Implementations
// only ever call Queue.Append; they never touch the display.
type Source interface {
	// Start launches the reader goroutine.
	Start()
	// Close stops the reader and releases the device handle.
	Close() error
}
