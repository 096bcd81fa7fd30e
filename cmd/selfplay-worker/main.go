// Command selfplay-worker runs the self-play worker loop directly
// against stdin/stdout, for operators who want to deploy worker
// processes independently of whichever binary owns the orchestrator
// (rather than relying on MultiprocessSelfPlayEngine's os.Executable()
// re-exec of the orchestrator's own binary).
package main

import (
	"log"
	"os"

	"github.com/alphatak/tak-az/selfplay"
)

func main() {
	log.SetFlags(log.Ltime)
	if err := selfplay.RunWorkerFromStdio(os.Stdin, os.Stdout); err != nil {
		log.Fatalf("selfplay-worker: %v", err)
	}
}
