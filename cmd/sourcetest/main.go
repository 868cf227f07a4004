// sourcetest probes every pool provider for a single symbol and prints
// what comes back. Useful for checking provider availability and pool
// quality before pointing the monitor at a new token.
// Usage: go run ./cmd/sourcetest -symbol ETH
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/dexwatch/dexwatch/internal/source"
)

func main() {
	symbol := flag.String("symbol", "ETH", "token symbol to probe")
	timeout := flag.Duration("timeout", 15*time.Second, "per-provider fetch timeout")
	maxShow := flag.Int("show", 5, "max pools to print per provider")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
	slog.SetDefault(logger)

	sources := []source.Source{
		source.NewGeckoTerminal(),
		source.NewDexScreener(),
	}

	sym := strings.ToUpper(*symbol)
	fmt.Printf("probing %d providers for %s\n\n", len(sources), sym)

	failures := 0
	for _, src := range sources {
		ctx, cancel := context.WithTimeout(context.Background(), *timeout)
		pools, err := src.FetchPools(ctx, sym)
		cancel()

		if err != nil {
			failures++
			fmt.Printf("%-14s FAIL (%s): %v\n", src.Name(), source.KindOf(err), err)
			continue
		}

		fmt.Printf("%-14s OK, %d pools\n", src.Name(), len(pools))
		for i, p := range pools {
			if i >= *maxShow {
				fmt.Printf("    ... %d more\n", len(pools)-*maxShow)
				break
			}
			fmt.Printf("    $%-12.4f %-12s %-10s lp=$%.0f vol24h=$%.0f %s\n",
				p.PriceUSD, p.Dex, p.Chain, p.LiquidityUSD, p.Volume24hUSD, p.PoolAddress)
		}
	}

	if failures == len(sources) {
		os.Exit(1)
	}
}
