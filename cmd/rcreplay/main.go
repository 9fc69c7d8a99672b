// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Command rcreplay replays a TOML render scenario through a rendercache
// context on a recording device and reports how many device calls the
// cache let through.
//
// Usage:
//
//	rcreplay -scenario scene.toml [-calls] [-v]
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/gogpu/rendercache"
)

func main() {
	var (
		path    = flag.String("scenario", "", "scenario TOML file")
		verbose = flag.Bool("v", false, "log cache decisions at debug level")
		calls   = flag.Bool("calls", false, "print the device calls of every frame")
	)
	flag.Parse()

	if *path == "" {
		flag.Usage()
		os.Exit(2)
	}
	if *verbose {
		rendercache.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	s, err := loadScenario(*path)
	if err != nil {
		log.Fatalf("rcreplay: %v", err)
	}

	r := newReplayer(s)
	reports, err := r.run(s)
	writeReports(os.Stdout, reports, *calls)
	if err != nil {
		log.Fatalf("rcreplay: %v", err)
	}

	tot := r.rc.Totals()
	log.Printf("replayed %d frames: %d state changes, %d binds, %d cache hits",
		len(reports), tot.StateChanges,
		tot.ProgramSwitches+tot.BufferSwitches+tot.TextureSwitches,
		tot.ProgramHits+tot.BufferHits+tot.TextureHits)
}

func writeReports(w io.Writer, reports []frameReport, withCalls bool) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "frame\tstate\tprogram\tbuffer\ttexture\thits\treclaimed\tevicted\tunits")
	for _, rep := range reports {
		s := rep.Stats
		fmt.Fprintf(tw, "%d\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%v\n",
			rep.Index, s.StateChanges,
			s.ProgramSwitches, s.BufferSwitches, s.TextureSwitches,
			s.ProgramHits+s.BufferHits+s.TextureHits,
			s.DeadReclaims, s.Evictions, rep.Units)
	}
	tw.Flush()

	if !withCalls {
		return
	}
	for _, rep := range reports {
		fmt.Fprintf(w, "\nframe %d:\n", rep.Index)
		for _, c := range rep.Calls {
			fmt.Fprintf(w, "  %s\n", c)
		}
	}
}
