// Command zonestat runs a synthetic parser workload against a zone and
// reports how its segments grow and shrink across phases.
package main

import (
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/prometheus/common/version"
	"gopkg.in/alecthomas/kingpin.v2"
	"gopkg.in/yaml.v3"

	"github.com/pavanmanishd/zone"
)

// fileConfig is the layout of the --config.file YAML document.
type fileConfig struct {
	Zone   zone.Config `yaml:"zone"`
	Phases int         `yaml:"phases"`
	Nodes  int         `yaml:"nodes"`
	Seed   uint64      `yaml:"seed"`
}

func defaultFileConfig() fileConfig {
	return fileConfig{
		Zone:   zone.DefaultConfig(),
		Phases: 3,
		Nodes:  1000,
		Seed:   1,
	}
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "zonestat: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	app := kingpin.New(filepath.Base(os.Args[0]), "Run a synthetic parse workload in a zone and report segment usage.").
		UsageWriter(stdout).
		ErrorWriter(stderr)
	app.Version(version.Print("zonestat"))
	app.HelpFlag.Short('h')

	configFile := app.Flag("config.file", "YAML file to load the configuration from.").String()
	phases := app.Flag("phases", "Number of parse phases to run.").Int()
	nodes := app.Flag("nodes", "Number of tree nodes built per phase.").Int()
	seed := app.Flag("seed", "Seed for the synthetic tree shape.").Uint64()
	excessLimit := app.Flag("zone.excess-limit", "Segment bytes above which the zone reports excess allocation, e.g. 256MiB.").String()
	segmentAllocator := app.Flag("zone.segment-allocator", "Where zone segments come from.").Enum(zone.SegmentAllocatorHeap, zone.SegmentAllocatorMmap)
	logLevel := app.Flag("log.level", "Only log messages with the given severity or above.").Default("info").Enum("debug", "info", "warn", "error")
	printMetrics := app.Flag("metrics", "Print the zone metrics in the Prometheus text format when done.").Bool()

	if _, err := app.Parse(args); err != nil {
		return err
	}

	cfg := defaultFileConfig()
	if *configFile != "" {
		if err := loadConfig(*configFile, &cfg); err != nil {
			return err
		}
	}
	// Flags given on the command line win over the config file.
	if *phases != 0 {
		cfg.Phases = *phases
	}
	if *nodes != 0 {
		cfg.Nodes = *nodes
	}
	if *seed != 0 {
		cfg.Seed = *seed
	}
	if *excessLimit != "" {
		if err := cfg.Zone.ExcessLimit.Set(*excessLimit); err != nil {
			return errors.Wrap(err, "invalid --zone.excess-limit")
		}
	}
	if *segmentAllocator != "" {
		cfg.Zone.SegmentAllocator = *segmentAllocator
	}
	if cfg.Phases < 1 || cfg.Nodes < 1 {
		return errors.Errorf("phases and nodes must be positive, got %d and %d", cfg.Phases, cfg.Nodes)
	}

	logger := log.NewLogfmtLogger(log.NewSyncWriter(stderr))
	logger = level.NewFilter(logger, levelFilter(*logLevel))
	logger = log.With(logger, "ts", log.DefaultTimestampUTC)

	reg := prometheus.NewRegistry()
	owner, err := zone.NewOwner(cfg.Zone, logger, reg, zone.WithName("zonestat"))
	if err != nil {
		return err
	}

	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed))
	for i := 1; i <= cfg.Phases; i++ {
		st, err := runPhase(owner, cfg.Nodes, rng)
		if err != nil {
			return errors.Wrapf(err, "phase %d", i)
		}
		level.Info(logger).Log(
			"msg", "phase done",
			"phase", i,
			"nodes", st.nodes,
			"depth", st.depth,
			"segments", st.segments,
			"segment_bytes", humanize.IBytes(uint64(st.segmentBytes)),
		)
		fmt.Fprintf(stdout, "phase %d: %d nodes, depth %d, weight %d, median %d, %d segments, %s in segments, excess %v\n",
			i, st.nodes, st.depth, st.weight, st.median, st.segments, humanize.IBytes(uint64(st.segmentBytes)), st.excess)

		m := owner.Zone().Metrics()
		fmt.Fprintf(stdout, "after phase %d: %d segments kept, %s in segments\n",
			i, m.NumSegments, humanize.IBytes(uint64(m.SegmentBytes)))
	}
	fmt.Fprintf(stdout, "total allocated: %s\n", humanize.IBytes(zone.AllocationSize()))

	if err := owner.Close(); err != nil {
		return err
	}
	if *printMetrics {
		return writeMetrics(stdout, reg)
	}
	return nil
}

func loadConfig(path string, cfg *fileConfig) error {
	buf, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "read config file")
	}
	if err := yaml.Unmarshal(buf, cfg); err != nil {
		return errors.Wrapf(err, "parse config file %s", path)
	}
	return nil
}

func levelFilter(l string) level.Option {
	switch l {
	case "debug":
		return level.AllowDebug()
	case "warn":
		return level.AllowWarn()
	case "error":
		return level.AllowError()
	default:
		return level.AllowInfo()
	}
}

func writeMetrics(w io.Writer, g prometheus.Gatherer) error {
	mfs, err := g.Gather()
	if err != nil {
		return err
	}
	for _, mf := range mfs {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}
