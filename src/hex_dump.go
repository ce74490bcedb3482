package picaprs

import (
	"fmt"
	"strings"
)

// hexDump formats p the way frames are shown in debug output:
// offset, 16 bytes in hex, then the printable characters.
func hexDump(p []byte) string {
	var sb strings.Builder
	var offset = 0

	for len(p) > 0 {
		var n = min(len(p), 16)

		fmt.Fprintf(&sb, "  %03x: ", offset)

		for i := range n {
			fmt.Fprintf(&sb, " %02x", p[i])
		}

		for range 16 - n {
			sb.WriteString("   ")
		}

		sb.WriteString("  ")

		for i := range n {
			if p[i] >= 0x20 && p[i] <= 0x7E {
				sb.WriteByte(p[i])
			} else {
				sb.WriteByte('.')
			}
		}

		sb.WriteByte('\n')

		p = p[n:]
		offset += n
	}

	return sb.String()
}
