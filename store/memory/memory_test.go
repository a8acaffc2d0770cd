package memory_test

import (
	"testing"

	"github.com/warp/textile-ops/store/memory"
	"github.com/warp/textile-ops/store/storetest"
)

func TestMemoryStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) storetest.Backend {
		return memory.New()
	})
}
