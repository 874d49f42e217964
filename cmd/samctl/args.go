package main

import (
	"fmt"
	"strconv"

	"github.com/joshuapare/samkit/pkg/sam"
)

func parsePartition(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid partition %q: want an index of at least 1", s)
	}
	return n, nil
}

// parseRID accepts decimal or 0x-prefixed hex.
func parseRID(s string) (sam.RID, error) {
	n, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid rid %q", s)
	}
	return sam.RID(n), nil
}
