package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// access is one line of a replayed memory-reference trace: a virtual
// address and whether the reference is a write. Trace syntax is "r
// <hex-addr>" / "w <hex-addr>", one per line, "#" comments ignored —
// grounded on the input format wechicken456-Go-Page-Replacement's
// convertVirtualAddr/main loop parses.
type access struct {
	vaddr   int
	isWrite bool
}

func readTrace(r io.Reader) ([]access, error) {
	var accesses []access
	scanner := bufio.NewScanner(r)
	for lineNo := 1; scanner.Scan(); lineNo++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, fmt.Errorf("trace line %d: expected \"r|w <hex-addr>\", got %q", lineNo, line)
		}
		var isWrite bool
		switch fields[0] {
		case "r":
			isWrite = false
		case "w":
			isWrite = true
		default:
			return nil, fmt.Errorf("trace line %d: unknown access kind %q", lineNo, fields[0])
		}
		addr, err := strconv.ParseInt(fields[1], 16, 64)
		if err != nil {
			return nil, fmt.Errorf("trace line %d: bad hex address %q: %w", lineNo, fields[1], err)
		}
		accesses = append(accesses, access{vaddr: int(addr), isWrite: isWrite})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading trace: %w", err)
	}
	return accesses, nil
}
