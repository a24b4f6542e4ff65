package ctmeter

// TestReader is a fixed-value reader for tests.
type TestReader struct {
	Amps float64
	Err  error
}

func (r TestReader) Open() error {
	return nil
}

func (r TestReader) Close() error {
	return nil
}

func (r TestReader) Current() (float64, error) {
	return r.Amps, r.Err
}

// ensure interface compliance
var _ Reader = TestReader{}
