package marketdata

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"EquityPulse/internal/domain/models"
	"EquityPulse/pkg/config"
	xhttp "EquityPulse/pkg/http"
	"EquityPulse/pkg/logger"
)

const (
	defaultRESTTimeout   = 10 * time.Second
	defaultHeadlineLimit = 50

	dateLayout = "2006-01-02"
)

// RESTClient reaches the vendor's REST API for the slow surfaces that do
// not stream: fundamentals, news, insider filings, and bar history.
type RESTClient struct {
	baseURL string
	apiKey  string
	client  *xhttp.Client
	log     *logger.Logger
}

func NewRESTClient(cfg *config.Config, log *logger.Logger) *RESTClient {
	timeout := cfg.MarketData.Timeout
	if timeout <= 0 {
		timeout = defaultRESTTimeout
	}
	return &RESTClient{
		baseURL: cfg.MarketData.BaseURL,
		apiKey:  cfg.MarketData.APIKey,
		client:  xhttp.NewClient(xhttp.WithTimeout(timeout)),
		log:     log,
	}
}

func (c *RESTClient) get(ctx context.Context, path string, query map[string][]string, dest interface{}) error {
	return c.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:      xhttp.MethodGet,
		URL:         c.baseURL + path,
		Headers:     map[string]string{"X-Api-Key": c.apiKey},
		QueryParams: query,
	}, dest)
}

type fundamentalsResponse struct {
	Symbol                 string   `json:"symbol"`
	Sector                 string   `json:"sector"`
	PEGRatio               *float64 `json:"peg_ratio"`
	FCFYield               *float64 `json:"fcf_yield"`
	ROE                    *float64 `json:"roe"`
	NetMargin              *float64 `json:"net_margin"`
	DebtToEBITDA           *float64 `json:"debt_to_ebitda"`
	RevenueGrowth          *float64 `json:"revenue_growth"`
	InterestCoverage       *float64 `json:"interest_coverage"`
	InstitutionalOwnership *float64 `json:"institutional_ownership"`
}

// Fundamentals returns the vendor's ratio set and sector classification.
// Absent ratios stay nil so downstream scoring can flag them.
func (c *RESTClient) Fundamentals(ctx context.Context, symbol string) (*models.Fundamentals, string, error) {
	var fr fundamentalsResponse
	if err := c.get(ctx, "/v1/fundamentals", map[string][]string{"symbol": {symbol}}, &fr); err != nil {
		return nil, "", fmt.Errorf("fundamentals %s: %w", symbol, err)
	}
	f := &models.Fundamentals{
		PEGRatio:               fr.PEGRatio,
		FCFYield:               fr.FCFYield,
		ROE:                    fr.ROE,
		NetMargin:              fr.NetMargin,
		DebtToEBITDA:           fr.DebtToEBITDA,
		RevenueGrowth:          fr.RevenueGrowth,
		InterestCoverage:       fr.InterestCoverage,
		InstitutionalOwnership: fr.InstitutionalOwnership,
	}
	return f, fr.Sector, nil
}

type newsResponse struct {
	Symbol    string `json:"symbol"`
	Headlines []struct {
		Title       string    `json:"title"`
		Source      string    `json:"source"`
		URL         string    `json:"url"`
		PublishedAt time.Time `json:"published_at"`
	} `json:"headlines"`
}

// Headlines returns recent news for the symbol, newest first.
func (c *RESTClient) Headlines(ctx context.Context, symbol string, limit int) ([]models.Headline, error) {
	if limit <= 0 {
		limit = defaultHeadlineLimit
	}
	var nr newsResponse
	err := c.get(ctx, "/v1/news", map[string][]string{
		"symbol": {symbol},
		"limit":  {strconv.Itoa(limit)},
	}, &nr)
	if err != nil {
		return nil, fmt.Errorf("news %s: %w", symbol, err)
	}
	out := make([]models.Headline, 0, len(nr.Headlines))
	for _, h := range nr.Headlines {
		out = append(out, models.Headline{
			Title:       h.Title,
			Source:      h.Source,
			URL:         h.URL,
			PublishedAt: h.PublishedAt,
		})
	}
	return out, nil
}

type insiderResponse struct {
	Symbol string `json:"symbol"`
	Trades []struct {
		ExecutiveID   string  `json:"executive_id"`
		TradeDate     string  `json:"trade_date"`
		Direction     string  `json:"direction"`
		Discretionary bool    `json:"discretionary"`
		Shares        float64 `json:"shares"`
	} `json:"trades"`
}

// InsiderTrades returns executive filings reported in the trailing
// lookback window. Rows with an unparseable date are dropped.
func (c *RESTClient) InsiderTrades(ctx context.Context, symbol string, lookbackDays int) ([]models.InsiderTrade, error) {
	var ir insiderResponse
	err := c.get(ctx, "/v1/insider-trades", map[string][]string{
		"symbol": {symbol},
		"days":   {strconv.Itoa(lookbackDays)},
	}, &ir)
	if err != nil {
		return nil, fmt.Errorf("insider trades %s: %w", symbol, err)
	}
	out := make([]models.InsiderTrade, 0, len(ir.Trades))
	for _, t := range ir.Trades {
		day, err := time.Parse(dateLayout, t.TradeDate)
		if err != nil {
			c.log.Warn("marketdata: bad insider trade date",
				logger.String("symbol", symbol), logger.String("date", t.TradeDate))
			continue
		}
		out = append(out, models.InsiderTrade{
			ExecutiveID:     t.ExecutiveID,
			TradeDate:       day,
			Direction:       models.TradeDirection(t.Direction),
			IsDiscretionary: t.Discretionary,
			ShareCount:      t.Shares,
		})
	}
	return out, nil
}

type barsResponse struct {
	Symbol string `json:"symbol"`
	Bars   []struct {
		Day    string  `json:"day"`
		Open   float64 `json:"open"`
		High   float64 `json:"high"`
		Low    float64 `json:"low"`
		Close  float64 `json:"close"`
		Volume float64 `json:"volume"`
	} `json:"bars"`
}

// DailyBars returns up to days of daily OHLCV history, oldest first.
func (c *RESTClient) DailyBars(ctx context.Context, symbol string, days int) ([]models.Bar, error) {
	var br barsResponse
	err := c.get(ctx, "/v1/daily-bars", map[string][]string{
		"symbol": {symbol},
		"days":   {strconv.Itoa(days)},
	}, &br)
	if err != nil {
		return nil, fmt.Errorf("daily bars %s: %w", symbol, err)
	}
	out := make([]models.Bar, 0, len(br.Bars))
	for _, b := range br.Bars {
		day, err := time.Parse(dateLayout, b.Day)
		if err != nil {
			c.log.Warn("marketdata: bad bar date",
				logger.String("symbol", symbol), logger.String("date", b.Day))
			continue
		}
		out = append(out, models.Bar{
			Day:    day,
			Symbol: symbol,
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: b.Volume,
		})
	}
	return out, nil
}
