// Package gnu orders version strings the way dpkg and GNU sort -V do.
package gnu

// Compare returns -1, 0 or 1 as a sorts before, equal to or after b.
// Non-digit runs compare by character, with letters before other
// characters and '~' before everything (so "1.0~rc1" < "1.0"). Digit runs
// compare by numeric value, ignoring leading zeros.
func Compare(a, b string) int {
	i, j := 0, 0
	for i < len(a) || j < len(b) {
		for (i < len(a) && !isDigit(a[i])) || (j < len(b) && !isDigit(b[j])) {
			ca, cb := order(at(a, i)), order(at(b, j))
			if ca != cb {
				return sign(ca - cb)
			}
			i++
			j++
		}
		for i < len(a) && a[i] == '0' {
			i++
		}
		for j < len(b) && b[j] == '0' {
			j++
		}
		diff := 0
		for i < len(a) && j < len(b) && isDigit(a[i]) && isDigit(b[j]) {
			if diff == 0 {
				diff = int(a[i]) - int(b[j])
			}
			i++
			j++
		}
		switch {
		case i < len(a) && isDigit(a[i]):
			return 1
		case j < len(b) && isDigit(b[j]):
			return -1
		case diff != 0:
			return sign(diff)
		}
	}
	return 0
}

// Latest returns the greatest of versions, or "" if there are none.
func Latest(versions []string) string {
	var best string
	for i, v := range versions {
		if i == 0 || Compare(v, best) > 0 {
			best = v
		}
	}
	return best
}

func at(s string, i int) byte {
	if i < len(s) {
		return s[i]
	}
	return 0
}

func order(c byte) int {
	switch {
	case isDigit(c), c == 0:
		return 0
	case isAlpha(c):
		return int(c)
	case c == '~':
		return -1
	}
	return int(c) + 256
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	}
	return 0
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isAlpha(c byte) bool { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }
