// Package strength classifies candidate PINs before they are ever hashed.
package strength

// Reason is the outcome of classifying a candidate PIN.
type Reason int

const (
	// OK means the candidate passed every check.
	OK Reason = iota
	// Missing means the candidate is empty.
	Missing
	// TooShort means the candidate is shorter than the policy minimum.
	TooShort
	// NotNumeric means the candidate contains non-digit characters. This is a
	// structural rejection, distinct from Weak: such input should have been
	// filtered by the caller's own validation.
	NotNumeric
	// Weak means the candidate is an easily guessed digit pattern.
	Weak
)

// Accepted reports whether the classification allows the PIN to be enrolled.
func (r Reason) Accepted() bool { return r == OK }

func (r Reason) String() string {
	switch r {
	case OK:
		return "ok"
	case Missing:
		return "missing"
	case TooShort:
		return "too short"
	case NotNumeric:
		return "not numeric"
	case Weak:
		return "weak"
	default:
		return "unknown"
	}
}

// denylist holds well-known 4-digit patterns rejected outright. All-same-digit
// codes are listed explicitly even though the repetition test also catches them.
var denylist = map[string]struct{}{
	"0000": {}, "1111": {}, "2222": {}, "3333": {}, "4444": {},
	"5555": {}, "6666": {}, "7777": {}, "8888": {}, "9999": {},
	"1234": {}, "4321": {}, "0123": {}, "9876": {},
}

// Classify checks a candidate PIN against the strength rules. Checks are
// ordered so the first failing rule wins: Missing, TooShort, NotNumeric, Weak.
// It is pure and never panics, whatever the input.
func Classify(candidate string, minLength int) Reason {
	if candidate == "" {
		return Missing
	}
	if len(candidate) < minLength {
		return TooShort
	}
	if !allDigits(candidate) {
		return NotNumeric
	}
	if _, banned := denylist[candidate]; banned {
		return Weak
	}
	if monotonicRun(candidate) {
		return Weak
	}
	// Repetition ratio: a PIN is weak when at most half of its positions carry
	// distinct digits. Real-number division, so a 4-digit PIN needs at least
	// 3 distinct digits and a 5-digit PIN gets away with 3.
	if 2*distinctDigits(candidate) <= len(candidate) {
		return Weak
	}
	return OK
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// monotonicRun reports whether every adjacent digit pair steps by exactly +1
// or every pair steps by exactly -1 ("2345", "6543").
func monotonicRun(s string) bool {
	if len(s) < 2 {
		return false
	}
	asc, desc := true, true
	for i := 1; i < len(s); i++ {
		d := int(s[i]) - int(s[i-1])
		if d != 1 {
			asc = false
		}
		if d != -1 {
			desc = false
		}
	}
	return asc || desc
}

func distinctDigits(s string) int {
	var seen [10]bool
	n := 0
	for i := 0; i < len(s); i++ {
		d := s[i] - '0'
		if !seen[d] {
			seen[d] = true
			n++
		}
	}
	return n
}
