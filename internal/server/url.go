package server

// urlDecode converts percent-encoded sequences like %2f into their byte
// values. Unlike net/url it never fails on stray percent signs, which show
// up in doubly-encoded targets pasted into the form.
func urlDecode(url string) string {
	b := make([]byte, 0, len(url))
	for i := 0; i < len(url); i++ {
		c := url[i]
		if c == '%' && i+2 < len(url) {
			hi := fromHex(url[i+1])
			lo := fromHex(url[i+2])
			b = append(b, hi<<4|lo)
			i += 2
		} else {
			b = append(b, c)
		}
	}
	return string(b)
}

func fromHex(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	}
	return 0
}
