package cache

import (
	"github.com/dgraph-io/ristretto"
	"github.com/eko/gocache/lib/v4/store"
	ristrettoCache "github.com/eko/gocache/store/ristretto/v4"
	"github.com/spf13/viper"
)

var (
	S store.StoreInterface
	R *ristretto.Cache
)

func NewStore() error {
	numCounters := viper.GetInt64("cache.num_counters")
	if numCounters <= 0 {
		numCounters = 1e7
	}
	maxCost := viper.GetInt64("cache.max_cost")
	if maxCost <= 0 {
		maxCost = 1 << 27
	}

	ris, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: numCounters,
		MaxCost:     maxCost,
		BufferItems: 64,
		// Entries are counted, not sized.
		IgnoreInternalCost: true,
	})
	if err != nil {
		return err
	}

	R = ris
	S = ristrettoCache.NewRistretto(ris)

	return nil
}

// Wait blocks until every buffered write reached the underlying cache.
func Wait() {
	if R != nil {
		R.Wait()
	}
}
