package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dexwatch/dexwatch/internal/model"
)

// GeckoTerminal fetches pools from the GeckoTerminal search API.
// Search results span all supported chains, so Chain is reported as "multi".
type GeckoTerminal struct {
	baseURL    string
	httpClient *http.Client
}

// NewGeckoTerminal creates a GeckoTerminal source.
func NewGeckoTerminal() *GeckoTerminal {
	return &GeckoTerminal{
		baseURL:    "https://api.geckoterminal.com/api/v2",
		httpClient: newHTTPClient(5 * time.Second),
	}
}

// NewGeckoTerminalWithURL creates a source against a custom base URL (tests).
func NewGeckoTerminalWithURL(baseURL string) *GeckoTerminal {
	g := NewGeckoTerminal()
	g.baseURL = baseURL
	return g
}

// Name identifies the provider.
func (g *GeckoTerminal) Name() string { return "geckoterminal" }

type geckoResponse struct {
	Data []geckoPool `json:"data"`
}

type geckoPool struct {
	ID            string             `json:"id"`
	Attributes    geckoAttributes    `json:"attributes"`
	Relationships *geckoRelationship `json:"relationships"`
}

type geckoAttributes struct {
	Name              string       `json:"name"`
	Address           string       `json:"address"`
	BaseTokenPriceUSD *string      `json:"base_token_price_usd"`
	ReserveInUSD      *string      `json:"reserve_in_usd"`
	VolumeUSD         *geckoVolume `json:"volume_usd"`
}

type geckoVolume struct {
	H24 *string `json:"h24"`
}

type geckoRelationship struct {
	Dex *struct {
		Data *struct {
			ID string `json:"id"`
		} `json:"data"`
	} `json:"dex"`
}

// FetchPools searches GeckoTerminal pools for the symbol.
func (g *GeckoTerminal) FetchPools(ctx context.Context, symbol string) ([]model.PoolRecord, error) {
	symbol = strings.ToUpper(symbol)
	endpoint := fmt.Sprintf("%s/search/pools?query=%s", g.baseURL, url.QueryEscape(symbol))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, NetworkError(err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, NetworkError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, RateLimitError()
	}
	if resp.StatusCode != http.StatusOK {
		// Provider quirks (e.g. 404 for obscure symbols) are "no data".
		io.Copy(io.Discard, resp.Body)
		return nil, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NetworkError(err)
	}

	var parsed geckoResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, ParseError(err)
	}

	now := time.Now().Unix()
	records := make([]model.PoolRecord, 0, len(parsed.Data))
	for _, p := range parsed.Data {
		price, ok := parseFloatPtr(p.Attributes.BaseTokenPriceUSD)
		if !ok {
			// No usable price means no usable record.
			continue
		}

		liquidity, _ := parseFloatPtr(p.Attributes.ReserveInUSD)
		var volume float64
		if p.Attributes.VolumeUSD != nil {
			volume, _ = parseFloatPtr(p.Attributes.VolumeUSD.H24)
		}

		dex := "unknown"
		if p.Relationships != nil && p.Relationships.Dex != nil && p.Relationships.Dex.Data != nil {
			dex = p.Relationships.Dex.Data.ID
		}

		records = append(records, model.PoolRecord{
			Symbol:       symbol,
			Chain:        "multi",
			Dex:          dex,
			PoolAddress:  p.Attributes.Address,
			Pair:         p.Attributes.Name,
			PriceUSD:     price,
			LiquidityUSD: liquidity,
			Volume24hUSD: volume,
			Source:       g.Name(),
			ObservedAt:   now,
		})
	}

	return records, nil
}

// parseFloatPtr parses GeckoTerminal's string-typed numerics.
func parseFloatPtr(s *string) (float64, bool) {
	if s == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(*s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
