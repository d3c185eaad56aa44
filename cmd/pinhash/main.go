// Command pinhash prints the bcrypt hash of a terminal PIN for use in
// POS_STAFF_PIN_HASH or POS_OWNER_PIN_HASH.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/iliyamo/seat-pos/internal/utils"
)

func main() {
	cost := flag.Int("cost", 10, "bcrypt cost")
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: pinhash [-cost N] PIN")
		os.Exit(2)
	}
	hash, err := utils.HashPIN(flag.Arg(0), *cost)
	if err != nil {
		fmt.Fprintln(os.Stderr, "hash failed:", err)
		os.Exit(1)
	}
	fmt.Println(hash)
}
