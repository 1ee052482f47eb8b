// spreadctl is a small CLI over the brokerage client: quotes, option
// chains, reconstructed put credit spreads, and the JSON dashboard.
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
