package redact

// Token wraps a secret string so it cannot leak through fmt, %#v, text or
// JSON encoding.
//
//	tok := redact.NewToken("eyJhbGciOi...")
//	fmt.Println(tok)        // [REDACTED]
//	tok.Display()           // eyJhbG...sw5c
//	tok.Value()             // the raw secret
type Token struct {
	value string
}

// NewToken creates a Token wrapping value.
func NewToken(value string) Token {
	return Token{value: value}
}

// Value returns the raw secret. Only pass it to the wire, never to a logger.
func (t Token) Value() string {
	return t.value
}

// Display returns the truncated form used when a token is shown on its own.
func (t Token) Display() string {
	return TruncateToken(t.value)
}

// IsEmpty reports whether the wrapped value is empty.
func (t Token) IsEmpty() bool {
	return t.value == ""
}

// String implements fmt.Stringer.
func (t Token) String() string {
	return Placeholder
}

// GoString implements fmt.GoStringer for %#v.
func (t Token) GoString() string {
	return "redact.Token{" + Placeholder + "}"
}

// MarshalText implements encoding.TextMarshaler.
func (t Token) MarshalText() ([]byte, error) {
	return []byte(Placeholder), nil
}

// MarshalJSON implements json.Marshaler.
func (t Token) MarshalJSON() ([]byte, error) {
	return []byte(`"` + Placeholder + `"`), nil
}
