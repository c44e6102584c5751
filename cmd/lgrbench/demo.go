package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/abyssdigger/flarelog"
	"github.com/abyssdigger/flarelog/internal/sink"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Sweep every level through console and JSON sinks, then stop cleanly",
	RunE:  runDemo,
}

func runDemo(cmd *cobra.Command, args []string) error {
	if err := lgr.BackendStart(lgr.BackendConfig{
		FallbackReport: func(line string) { fmt.Fprintln(os.Stderr, "lgrbench:", line) },
	}); err != nil {
		return err
	}
	defer lgr.BackendStop()

	logger := lgr.CreateOrGetLogger("demo", []sink.Sink{
		sink.NewConsoleSink(os.Stdout, lgr.LevelTrace),
		sink.NewJSONSink(os.Stdout, lgr.LevelTrace),
	}, lgr.DefaultPattern)
	logger.SetMinLevel(lgr.LevelTrace)

	loc := lgr.NewSourceLoc("cmd/lgrbench/demo.go", 0)
	for lvl := lgr.LevelTrace; lvl <= lgr.LevelUnmaskable; lvl++ {
		if err := logger.Log(lvl, loc, "sweep", lgr.String("level", lvl.String())); err != nil {
			fmt.Fprintln(os.Stderr, "log error:", err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	if err := logger.LogWarn(loc, "disk usage high", lgr.Int64("free_bytes", 4096)); err != nil {
		return err
	}
	if err := logger.Flush(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}

	fmt.Println("\033[1m", "bold", "\033[0m", "\033[9m", "strike", "\033[0m", "\033[3m", "italic", "\033[0m")
	return nil
}
