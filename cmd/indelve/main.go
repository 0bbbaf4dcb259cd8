// Command indelve searches every configured provider with one query.
package main

import (
	"os"

	"github.com/indelve/indelve/cmd/indelve/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
