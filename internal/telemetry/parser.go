package telemetry

// Parser turns one raw unit of producer output into a record.
//
// A nil record with a nil error means the input is not telemetry. Errors
// belong to the parser; callers decide whether they are fatal.
type Parser interface {
	Parse(raw string) (*Telemetry, error)
}

// ParserFunc adapts an ordinary function to the Parser interface.
type ParserFunc func(raw string) (*Telemetry, error)

func (f ParserFunc) Parse(raw string) (*Telemetry, error) {
	return f(raw)
}
