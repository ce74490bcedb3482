// Main program for the APRS tracker.
package main

import (
	picaprs "github.com/doismellburning/picaprs/src"
)

func main() {
	picaprs.TrackerMain()
}
