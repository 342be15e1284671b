// evocell CLI - runs the cell evolution simulation
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/Gordon-from-Blumberg/evo-cell/config"
	"github.com/Gordon-from-Blumberg/evo-cell/server"
	"github.com/Gordon-from-Blumberg/evo-cell/snapshot"
	"github.com/Gordon-from-Blumberg/evo-cell/store"
	"github.com/Gordon-from-Blumberg/evo-cell/world"
)

var log = commonlog.GetLogger("evocell")

func main() {
	configPath := flag.String("config", "", "Configuration file (default: evocell.toml found from the working directory up)")
	turns := flag.Int("turns", 1000, "Number of turns to run")
	seed := flag.Int64("seed", 0, "Random seed, overrides the configured one")
	verbose := flag.Bool("v", false, "Verbose output")
	statsEvery := flag.Int("stats", 100, "Print the statistic every N turns, 0 for only the last one")
	loadPath := flag.String("load", "", "Restore the population from a snapshot file")
	savePath := flag.String("save", "", "Write the final population to a snapshot file")
	describeID := flag.Int64("describe", 0, "Print the decoded program of a bot after the run")
	noStore := flag.Bool("no-store", false, "Do not record statistics in the database")
	serveMode := flag.Bool("serve", false, "Start the inspection server instead of running turns")
	servePort := flag.Int("port", 0, "Inspection server port (default: the configured address)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: evocell [options]\n\n")
		fmt.Fprintf(os.Stderr, "Runs a world of bots whose behavior is encoded in their DNA.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  evocell -turns 5000 -seed 7          # Run 5000 turns of a fresh world\n")
		fmt.Fprintf(os.Stderr, "  evocell -turns 100 -save pop.cbor    # Run and keep the population\n")
		fmt.Fprintf(os.Stderr, "  evocell -load pop.cbor -describe 12  # Continue and show bot 12\n")
		fmt.Fprintf(os.Stderr, "  evocell -serve -port 8642            # Serve the inspection API\n")
	}
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	verbosity := cfg.Log.Verbosity
	if *verbose {
		verbosity = max(verbosity, 2)
	}
	commonlog.Configure(verbosity, cfg.LogPath())

	var pop *snapshot.Population
	if *loadPath != "" {
		if pop, err = snapshot.Load(*loadPath); err != nil {
			log.Criticalf("%v", err)
			os.Exit(1)
		}
		if *seed == 0 {
			*seed = pop.Seed
		}
	}

	w, err := newWorld(cfg, *seed, pop)
	if err != nil {
		log.Criticalf("%v", err)
		os.Exit(1)
	}

	var st *store.Store
	if path := cfg.StorePath(); path != "" && !*noStore {
		if st, err = store.Open(path); err != nil {
			log.Criticalf("%v", err)
			os.Exit(1)
		}
		defer st.Close()
	}

	if *serveMode {
		addr := cfg.Server.Addr
		if *servePort != 0 {
			addr = fmt.Sprintf(":%d", *servePort)
		}
		var opts []server.ServerOption
		if st != nil {
			opts = append(opts, server.WithRecorder(st))
		}
		srv := server.New(w, opts...)
		defer srv.Stop()
		if err := srv.ListenAndServe(addr); err != nil {
			log.Criticalf("server error: %v", err)
			os.Exit(1)
		}
		return
	}

	last, err := run(w, st, cfg.Store.ArchiveEvery, *turns, *statsEvery)
	if err != nil {
		log.Criticalf("%v", err)
		os.Exit(1)
	}
	printStatistic(last)

	if *describeID != 0 {
		text, err := w.Describe(*describeID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Print(text)
	}

	if *savePath != "" {
		if err := snapshot.Save(*savePath, snapshot.Capture(w)); err != nil {
			log.Criticalf("%v", err)
			os.Exit(1)
		}
		log.Infof("population saved to %s", *savePath)
	}
}

// loadConfig reads the named file, or the nearest evocell.toml, or falls
// back to the defaults.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	cfg, err := config.FindAndLoad(".")
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = config.Default()
	}
	return cfg, nil
}

// newWorld creates the world and fills it, either from a snapshot or with
// the configured number of random bots.
func newWorld(cfg *config.Config, seed int64, pop *snapshot.Population) (*world.World, error) {
	opts, err := cfg.WorldOptions(seed)
	if err != nil {
		return nil, err
	}
	w, err := world.New(opts)
	if err != nil {
		return nil, err
	}
	if pop != nil {
		if err := snapshot.Restore(w, pop); err != nil {
			return nil, err
		}
		log.Infof("restored %d bots at turn %d", len(pop.Bots), pop.Turn)
		return w, nil
	}
	if err := w.Populate(cfg.World.Population); err != nil {
		return nil, err
	}
	return w, nil
}

// run advances the world, recording every turn in st when it is set. It
// stops early when the population dies out.
func run(w *world.World, st *store.Store, archiveEvery, turns, statsEvery int) (world.Statistic, error) {
	last := w.Statistic()
	for i := 0; i < turns; i++ {
		last = w.Step()
		if st != nil {
			if err := st.RecordStatistic(w.Seed(), last); err != nil {
				return last, err
			}
			if archiveEvery > 0 && last.Turn%archiveEvery == 0 {
				if err := st.ArchiveGenomes(w.Seed(), last.Turn, botStates(w)); err != nil {
					return last, err
				}
			}
		}
		if statsEvery > 0 && last.Turn%statsEvery == 0 {
			printStatistic(last)
		}
		if last.Alive == 0 {
			log.Noticef("population died out at turn %d", last.Turn)
			break
		}
	}
	return last, nil
}

func botStates(w *world.World) []world.BotState {
	bots := w.Bots()
	states := make([]world.BotState, len(bots))
	for i, b := range bots {
		states[i] = b.State()
	}
	return states
}

func printStatistic(s world.Statistic) {
	fmt.Printf("turn %6d  alive %5d  born %4d  died %4d  energy %7.1f  genes %5.2f  actions %6d\n",
		s.Turn, s.Alive, s.Born, s.Died, s.AvgEnergy, s.AvgGenes, s.Actions)
}
