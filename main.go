package main

import (
	"fmt"
	"math/rand"
	"os"
)

func main() {
	if len(os.Args) > 1 {
		cmd := os.Args[1]
		switch cmd {
		case "train":
			if err := RunTrainCommand(os.Args[2:]); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			return
		case "help", "-h", "--help":
			printUsage()
			return
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
			printUsage()
			os.Exit(1)
		}
	}

	// Default: show help
	printUsage()
}

// newModelRNG returns the rng used for parameter initialization.
// One source per run keeps the whole model reproducible from one seed.
func newModelRNG(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

func printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  go run . [command] [options]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  train   Train a feed-forward classifier (MNIST or synthetic data)")
	fmt.Println("  help    Show this help message")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  go run . train")
	fmt.Println("  go run . train -data=./mnist -epochs=5 -batch=64 -lr=0.1")
	fmt.Println("  go run . train -hidden=256,128 -seed=7")
	fmt.Println()
}
