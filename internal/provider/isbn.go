// file: internal/provider/isbn.go
// version: 1.0.0
// guid: 0b6e2d94-7f38-4a15-b2c9-e8d41f7a3c60

package provider

import "strings"

// NormalizeISBN strips separators and returns the ISBN if it is a valid
// ISBN-10 or ISBN-13, or "" otherwise.
func NormalizeISBN(raw string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(raw) {
		switch {
		case r >= '0' && r <= '9', r == 'X':
			b.WriteRune(r)
		case r == '-' || r == ' ':
		default:
			return ""
		}
	}
	isbn := b.String()
	switch len(isbn) {
	case 10:
		if validISBN10(isbn) {
			return isbn
		}
	case 13:
		if validISBN13(isbn) {
			return isbn
		}
	}
	return ""
}

func validISBN10(isbn string) bool {
	sum := 0
	for i, r := range isbn {
		var d int
		switch {
		case r == 'X' && i == 9:
			d = 10
		case r >= '0' && r <= '9':
			d = int(r - '0')
		default:
			return false
		}
		sum += d * (10 - i)
	}
	return sum%11 == 0
}

func validISBN13(isbn string) bool {
	sum := 0
	for i, r := range isbn {
		if r < '0' || r > '9' {
			return false
		}
		d := int(r - '0')
		if i%2 == 1 {
			d *= 3
		}
		sum += d
	}
	return sum%10 == 0
}

// ISBN10To13 converts a valid ISBN-10 to its 978-prefixed ISBN-13. Other
// input is returned unchanged.
func ISBN10To13(isbn string) string {
	isbn = NormalizeISBN(isbn)
	if len(isbn) != 10 {
		return isbn
	}
	core := "978" + isbn[:9]
	sum := 0
	for i, r := range core {
		d := int(r - '0')
		if i%2 == 1 {
			d *= 3
		}
		sum += d
	}
	check := (10 - sum%10) % 10
	return core + string(rune('0'+check))
}
