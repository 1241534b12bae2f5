package main

import (
	"fmt"
	"os"
	"time"

	"eternal-dungeon/internal/infrastructure/storage"
)

func main() {
	if len(os.Args) < 2 {
		printHelp()
		return
	}

	svc := &storage.TraceService{}
	for _, path := range os.Args[1:] {
		trace, err := svc.Load(path)
		if err != nil {
			fmt.Printf("%s: %v\n", path, err)
			os.Exit(1)
		}

		fmt.Printf("%s\n", path)
		fmt.Printf("  dungeon:  %d\n", trace.DungeonID)
		fmt.Printf("  seed:     %d\n", trace.Seed)
		fmt.Printf("  recorded: %s\n", time.Unix(trace.Timestamp, 0).Format(time.RFC3339))
		fmt.Printf("  samples:  %d\n", len(trace.Samples))
		for _, s := range trace.Samples {
			fmt.Printf("  tick %6d  (%.1f, %.1f, %.1f)\n", s.Tick, s.Position.X, s.Position.Y, s.Position.Z)
		}
	}
}

func printHelp() {
	fmt.Println("Usage: tracedump <trace.bin> [more.bin ...]")
	fmt.Println("Prints the header and samples of dungeon trace files.")
}
