package main

import (
	"fmt"

	"github.com/utnfrba-so/go-nachos-vm/internal/replace"
)

// Config is the JSON configuration file this harness loads, generalized
// from the teacher's per-module MemoryConfig (cmd/memoria/config.go) down
// to the constants spec.md §6 names plus the one choice the teacher
// didn't have to make: which replacement policy runs.
type Config struct {
	LogLevel         string `json:"LOG_LEVEL"`
	PageSize         int    `json:"PAGE_SIZE"`
	NumPhysPages     int    `json:"NUM_PHYS_PAGES"`
	MaxFramesPerProc int    `json:"MAX_FRAMES_PER_PROC"`
	UserStackSize    int    `json:"USER_STACK_SIZE"`
	Policy           string `json:"REPLACEMENT_POLICY"`
	RecordRefString  bool   `json:"RECORD_REFSTRING"`
	RandomSeed       int64  `json:"RANDOM_SEED"`
	DiagAddr         string `json:"DIAG_ADDR"`
}

func parsePolicy(name string) (replace.Kind, error) {
	switch name {
	case "FIFO":
		return replace.FIFO, nil
	case "2ND":
		return replace.SecondChance, nil
	case "E2ND":
		return replace.EnhancedSecondChance, nil
	case "LRU":
		return replace.LRU, nil
	case "OPT":
		return replace.OPT, nil
	case "RAND":
		return replace.Random, nil
	default:
		return 0, fmt.Errorf("unknown REPLACEMENT_POLICY %q (want FIFO, 2ND, E2ND, LRU, OPT or RAND)", name)
	}
}
