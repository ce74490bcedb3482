// Show GPS fixes as the tracker sees them.
package main

import (
	picaprs "github.com/doismellburning/picaprs/src"
)

func main() {
	picaprs.GPSMonitorMain()
}
