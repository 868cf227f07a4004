package cexfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// FetchKRWMarkets returns every KRW-quoted symbol Upbit lists. Used at
// startup when no explicit symbol list is configured.
func FetchKRWMarkets(ctx context.Context, restURL string) ([]string, error) {
	endpoint := strings.TrimSuffix(restURL, "/") + "/v1/market/all"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch markets: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch markets: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var markets []struct {
		Market string `json:"market"`
	}
	if err := json.Unmarshal(body, &markets); err != nil {
		return nil, fmt.Errorf("parse markets: %w", err)
	}

	symbols := make([]string, 0, len(markets))
	for _, m := range markets {
		if sym, ok := strings.CutPrefix(m.Market, "KRW-"); ok {
			symbols = append(symbols, sym)
		}
	}
	return symbols, nil
}
