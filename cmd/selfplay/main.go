// Command selfplay drives a MultiprocessSelfPlayEngine against an
// already-running oracle server, writing each finished game's
// transcript as a JSON line to -write-games (or stdout). Grounded on
// the teacher's cmd/train/main.go flag layout.
//
// MultiprocessSelfPlayEngine re-execs os.Executable() — this binary's
// own path — so this main() checks for selfplay.WorkerFlag before
// flag.Parse runs and, if present, dispatches into the same worker loop
// cmd/selfplay-worker exposes as a standalone binary, rather than
// relying on a second compiled program existing on disk.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/alphatak/tak-az/selfplay"
)

var (
	boardSize   = flag.Int("size", 5, "board size")
	host        = flag.String("host", "127.0.0.1", "oracle server host")
	port        = flag.Int("port", 5001, "oracle server port")
	numWorkers  = flag.Int("threads", 4, "number of self-play worker processes")
	numGames    = flag.Int("games", 100, "total number of games to play")
	simsPerMove = flag.Int("simulations", 100, "MCTS simulations per move")
	resign      = flag.Float64("resign-threshold", 0.95, "resign when the root value is this decisive (0 disables)")
	noiseAlpha  = flag.Float64("noise-alpha", 1.0, "Dirichlet root-noise concentration (0 disables)")
	noiseWeight = flag.Float64("noise-weight", 0.25, "root-noise mixing weight")
	searchC     = flag.Float64("C", 4, "search exploration constant")
	plyLimit    = flag.Int("ply-limit", 200, "declare a draw past this many plies")
	writeGames  = flag.String("write-games", "", "path to write JSON transcripts to (default stdout)")
)

func main() {
	log.SetFlags(log.Ltime)

	if len(os.Args) > 1 && os.Args[1] == selfplay.WorkerFlag {
		if err := selfplay.RunWorkerFromStdio(os.Stdin, os.Stdout); err != nil {
			log.Fatalf("selfplay: %v", err)
		}
		return
	}

	flag.Parse()

	cfg := selfplay.WorkerConfig{
		BoardSize:          *boardSize,
		OracleAddr:         fmt.Sprintf("http://%s:%d", *host, *port),
		SearchC:            float32(*searchC),
		DirichletAlpha:     *noiseAlpha,
		DirichletWeight:    *noiseWeight,
		SimulationsPerMove: *simsPerMove,
		MaxPlies:           *plyLimit,
		ResignThreshold:    float32(*resign),
	}
	engine, err := selfplay.NewMultiprocessSelfPlayEngine(cfg, *numWorkers)
	if err != nil {
		log.Fatalf("selfplay: spawn workers: %v", err)
	}
	defer engine.Stop()

	transcripts, err := engine.PlayMany(*numGames)
	if err != nil {
		log.Fatalf("selfplay: %v", err)
	}

	var out io.Writer = os.Stdout
	if *writeGames != "" {
		f, err := os.Create(*writeGames)
		if err != nil {
			log.Fatalf("selfplay: create %s: %v", *writeGames, err)
		}
		defer f.Close()
		out = f
	}
	if err := selfplay.WriteTranscripts(out, transcripts); err != nil {
		log.Fatalf("selfplay: %v", err)
	}
}
