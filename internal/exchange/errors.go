package exchange

import "fmt"

// InvalidSymbolError reports a native symbol value that is not a string.
// It means the upstream payload is malformed; the value is never coerced.
type InvalidSymbolError struct {
    Exchange string
    Value    any
}

func (e *InvalidSymbolError) Error() string {
    return fmt.Sprintf("%s: invalid symbol type %T (%v)", e.Exchange, e.Value, e.Value)
}
