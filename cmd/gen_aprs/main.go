// Generate audio for tracker frames.
package main

import (
	picaprs "github.com/doismellburning/picaprs/src"
)

func main() {
	picaprs.GenPacketsMain()
}
