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

// L1 tokens whose DEX listings trade as wrapped versions (WBTC, WETH, ...).
var l1Tokens = map[string]struct{}{
	"BTC": {}, "ETH": {}, "SOL": {}, "ADA": {}, "XRP": {}, "DOGE": {},
	"DOT": {}, "AVAX": {}, "ATOM": {}, "NEAR": {}, "ALGO": {}, "FIL": {},
	"HBAR": {}, "VET": {}, "FLOW": {}, "XLM": {}, "THETA": {}, "EGLD": {},
	"NEO": {}, "QTUM": {}, "WAVES": {}, "IOTA": {}, "CKB": {}, "KAVA": {},
	"ARK": {}, "LSK": {}, "ASTR": {}, "BCH": {}, "ETC": {}, "TRX": {},
	"SUI": {}, "APT": {}, "SEI": {}, "CELO": {}, "CRO": {}, "RVN": {},
	"TT": {}, "OM": {}, "AKT": {}, "G": {},
}

// SearchVariants returns the ticker plus its W-prefixed form for L1 tokens.
func SearchVariants(symbol string) []string {
	upper := strings.ToUpper(symbol)
	if _, ok := l1Tokens[upper]; ok {
		return []string{upper, "W" + upper}
	}
	return []string{upper}
}

// DexScreener fetches pairs from the DexScreener search API.
type DexScreener struct {
	baseURL    string
	httpClient *http.Client

	// maxPairsPerVariant caps how many search hits become records.
	maxPairsPerVariant int
}

// NewDexScreener creates a DexScreener source.
func NewDexScreener() *DexScreener {
	return &DexScreener{
		baseURL:            "https://api.dexscreener.com",
		httpClient:         newHTTPClient(10 * time.Second),
		maxPairsPerVariant: 10,
	}
}

// NewDexScreenerWithURL creates a source against a custom base URL (tests).
func NewDexScreenerWithURL(baseURL string) *DexScreener {
	d := NewDexScreener()
	d.baseURL = baseURL
	return d
}

// Name identifies the provider.
func (d *DexScreener) Name() string { return "dexscreener" }

type dexScreenerResponse struct {
	Pairs []dexScreenerPair `json:"pairs"`
}

type dexScreenerPair struct {
	ChainID     string  `json:"chainId"`
	DexID       string  `json:"dexId"`
	PairAddress string  `json:"pairAddress"`
	BaseToken   *struct {
		Symbol string `json:"symbol"`
	} `json:"baseToken"`
	PriceUSD  *string `json:"priceUsd"`
	Liquidity *struct {
		USD float64 `json:"usd"`
	} `json:"liquidity"`
	Volume *struct {
		H24 float64 `json:"h24"`
	} `json:"volume"`
}

// FetchPools searches DexScreener for the symbol and its wrapped variant.
func (d *DexScreener) FetchPools(ctx context.Context, symbol string) ([]model.PoolRecord, error) {
	var records []model.PoolRecord
	now := time.Now().Unix()

	for _, variant := range SearchVariants(symbol) {
		pairs, err := d.search(ctx, variant)
		if err != nil {
			return nil, err
		}

		count := 0
		for _, pair := range pairs {
			if count >= d.maxPairsPerVariant {
				break
			}
			if pair.PairAddress == "" || pair.PriceUSD == nil {
				continue
			}
			price, err := strconv.ParseFloat(*pair.PriceUSD, 64)
			if err != nil || price <= 0 {
				continue
			}

			tokenSymbol := variant
			if pair.BaseToken != nil && pair.BaseToken.Symbol != "" {
				tokenSymbol = strings.ToUpper(pair.BaseToken.Symbol)
			}
			chain := pair.ChainID
			if chain == "" {
				chain = "unknown"
			}
			dex := pair.DexID
			if dex == "" {
				dex = "unknown"
			}

			var liquidity, volume float64
			if pair.Liquidity != nil {
				liquidity = pair.Liquidity.USD
			}
			if pair.Volume != nil {
				volume = pair.Volume.H24
			}

			records = append(records, model.PoolRecord{
				Symbol:       tokenSymbol,
				Chain:        chain,
				Dex:          dex,
				PoolAddress:  pair.PairAddress,
				Pair:         fmt.Sprintf("%s/USD", variant),
				PriceUSD:     price,
				LiquidityUSD: liquidity,
				Volume24hUSD: volume,
				Source:       d.Name(),
				ObservedAt:   now,
			})
			count++
		}
	}

	return records, nil
}

func (d *DexScreener) search(ctx context.Context, query string) ([]dexScreenerPair, error) {
	endpoint := fmt.Sprintf("%s/latest/dex/search?q=%s", d.baseURL, url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, NetworkError(err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, NetworkError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, RateLimitError()
	}
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NetworkError(err)
	}

	var parsed dexScreenerResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, ParseError(err)
	}

	return parsed.Pairs, nil
}
