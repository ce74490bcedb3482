// Generate a calibration tone.
package main

import (
	picaprs "github.com/doismellburning/picaprs/src"
)

func main() {
	picaprs.GenToneMain()
}
