// Command fosse catalogs a video library whose directories carry YAML
// notebooks, and serves the catalog over HTTP.
package main

import "os"

func main() {
	os.Exit(Execute())
}
