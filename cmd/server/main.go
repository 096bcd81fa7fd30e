// Command server runs a standalone oracle.Server: it loads a network
// checkpoint and serves /evaluate over HTTP for self-play workers or a
// human-play frontend to call against. Grounded on the teacher's
// cmd/infer/main.go flag layout, adapted from a one-shot inference
// loop to a long-running HTTP daemon per spec.md §6.2.
package main

import (
	"flag"
	"log"
	"net/http"

	"github.com/alphatak/tak-az/oracle"
	"github.com/alphatak/tak-az/train"
)

var (
	checkpointDir = flag.String("model_path", "", "checkpoint directory (config.yaml + model.gob)")
	addr          = flag.String("addr", "127.0.0.1:5001", "listen address")
)

func main() {
	flag.Parse()
	log.SetFlags(log.Ltime)

	if *checkpointDir == "" {
		log.Fatal("server: -model_path is required")
	}

	net, _, _, err := train.LoadCheckpoint(*checkpointDir)
	if err != nil {
		log.Fatalf("server: load checkpoint: %v", err)
	}
	defer net.Close()

	srv := oracle.NewServer(net)
	defer srv.Close()

	log.Printf("server: listening on %s", *addr)
	if err := http.ListenAndServe(*addr, srv.Router()); err != nil {
		log.Fatalf("server: %v", err)
	}
}
