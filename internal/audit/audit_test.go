// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package audit

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogSplitsLines(t *testing.T) {
	l := New(nil)
	fmt.Fprintf(l, "search: %d results\n", 8)
	fmt.Fprint(l, "fetch: ")
	fmt.Fprint(l, "4 ok\nselect: 6 kept\n\n")

	assert.Equal(t, []string{"search: 8 results", "fetch: 4 ok", "select: 6 kept"}, l.Entries())
}

func TestStringFlushesFragment(t *testing.T) {
	l := New(nil)
	fmt.Fprint(l, "first\nsecond")
	assert.Equal(t, "first\nsecond", l.String())
	assert.Len(t, l.Entries(), 2)
}

func TestConcurrentWriters(t *testing.T) {
	l := New(nil)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			fmt.Fprintf(l, "worker %d done\n", i)
		}(i)
	}
	wg.Wait()
	assert.Len(t, l.Entries(), 20)
}
