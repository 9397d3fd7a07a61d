package gpio

import "errors"

// FakeReader is a test double that returns scripted readings.
type FakeReader struct {
	// Samples are returned in order; the last one repeats.
	Samples []Contacts

	index int

	// Closed tracks if Close was called.
	Closed bool

	// ReadError, if set, is returned by Read.
	ReadError error

	// Reads counts Read calls.
	Reads int
}

// NewFakeReader creates a FakeReader with the given samples.
func NewFakeReader(samples ...Contacts) *FakeReader {
	return &FakeReader{Samples: samples}
}

// Read returns the next scripted sample.
func (f *FakeReader) Read() (Contacts, error) {
	f.Reads++
	if f.ReadError != nil {
		return Contacts{}, f.ReadError
	}
	if len(f.Samples) == 0 {
		return Contacts{}, errors.New("no samples configured")
	}

	sample := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}
	return sample, nil
}

// Close marks the reader as closed.
func (f *FakeReader) Close() error {
	f.Closed = true
	return nil
}
