package picaprs

import "github.com/sigurn/crc16"

var fcsTable = crc16.MakeTable(crc16.CRC16_X_25)

/*------------------------------------------------------------------
 *
 * Name:	FCSCalc
 *
 * Purpose:	Compute the AX.25 frame check sequence.
 *
 * Inputs:	data	- Frame bytes from the first address octet up to
 *			  and including the end of the information field.
 *
 * Returns:	The FCS, already complemented, ready for AppendFCS.
 *
 * Description:	CRC-16/X-25.  Reflected polynomial 0x8408, register
 *		preset to 0xFFFF, result inverted.  Bits are taken
 *		LSB first, which is also the order they go out on
 *		the air.
 *
 *----------------------------------------------------------------*/

func FCSCalc(data []byte) uint16 {
	return crc16.Checksum(data, fcsTable)
}

// AppendFCS appends fcs low byte first, as AX.25 transmits it.
func AppendFCS(dst []byte, fcs uint16) []byte {
	return append(dst, byte(fcs), byte(fcs>>8))
}

// CheckFCS reports whether the last two bytes of frame are a valid FCS for the rest.
func CheckFCS(frame []byte) bool {
	if len(frame) < 2 {
		return false
	}

	var n = len(frame) - 2
	var fcs = FCSCalc(frame[:n])

	return frame[n] == byte(fcs) && frame[n+1] == byte(fcs>>8)
}
