package gdbstub

const hexChars = "0123456789abcdef"

// hexDigit converts one ASCII hex digit, ok is false for anything else.
func hexDigit(ch byte) (byte, bool) {
	switch {
	case ch >= 'a' && ch <= 'f':
		return ch - 'a' + 10, true
	case ch >= '0' && ch <= '9':
		return ch - '0', true
	case ch >= 'A' && ch <= 'F':
		return ch - 'A' + 10, true
	}
	return 0, false
}

// hexToInt builds an integer from the hex digits at the start of *cursor and
// advances the cursor past them. It stops at the first non-hex byte, at a NUL
// or at the end of the slice. n is the number of digits consumed, so n == 0
// means no integer was present.
func hexToInt(cursor *[]byte) (value uint64, n int) {
	if cursor == nil {
		return 0, 0
	}

	for _, ch := range *cursor {
		if ch == 0 {
			break
		}
		v, ok := hexDigit(ch)
		if !ok {
			break
		}
		value = value<<4 | uint64(v)
		n++
	}

	*cursor = (*cursor)[n:]
	return value, n
}
