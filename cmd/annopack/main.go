// Command annopack archives serialized annotation packs and queries their
// indexes.
package main

import "github.com/mesh-intelligence/annopack/internal/cli"

func main() {
	cli.Execute()
}
