package etherscan

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"crypto-taint-tracer/internal/domain/entity"
	"crypto-taint-tracer/internal/domain/service"
	"crypto-taint-tracer/internal/infrastructure/config"
	"crypto-taint-tracer/internal/infrastructure/logger"

	"go.uber.org/zap"
)

// Client implements service.LedgerClient against the Etherscan V2 API.
// It returns only outgoing transfers, in ascending chronological order, and
// classifies failures into transient (rate limit, timeout, 5xx) and
// permanent (invalid address, upstream NOTOK) kinds for the retry policy.
type Client struct {
	cfg        *config.EtherscanConfig
	httpClient *http.Client
	logger     *logger.Logger
}

// NewClient creates a new Etherscan ledger client.
func NewClient(cfg *config.EtherscanConfig, logger *logger.Logger) *Client {
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		logger: logger.WithComponent("etherscan-client"),
	}
}

// txListResponse mirrors the Etherscan account txlist envelope.
type txListResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

// rawTransaction mirrors one entry of the txlist result array.
type rawTransaction struct {
	Hash        string `json:"hash"`
	From        string `json:"from"`
	To          string `json:"to"`
	Value       string `json:"value"`
	BlockNumber string `json:"blockNumber"`
	TimeStamp   string `json:"timeStamp"`
}

// GetOutgoingTransfers fetches the address's transaction list and keeps the
// transfers sent by the address itself, capped at the configured maximum.
func (c *Client) GetOutgoingTransfers(ctx context.Context, address entity.Address) ([]entity.Transaction, error) {
	params := url.Values{}
	params.Set("chainid", c.cfg.ChainID)
	params.Set("module", "account")
	params.Set("action", "txlist")
	params.Set("address", address.String())
	params.Set("startblock", "0")
	params.Set("endblock", "99999999")
	params.Set("sort", "asc")
	params.Set("apikey", c.cfg.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, service.NewPermanentFetchError(address, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, service.NewTransientFetchError(address, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
		return nil, service.NewTransientFetchError(address, fmt.Errorf("upstream returned HTTP %d", resp.StatusCode))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, service.NewPermanentFetchError(address, fmt.Errorf("upstream returned HTTP %d", resp.StatusCode))
	}

	var envelope txListResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, service.NewTransientFetchError(address, fmt.Errorf("decode response: %w", err))
	}

	if envelope.Message != "OK" {
		// "No transactions found" is success with an empty result.
		if strings.Contains(envelope.Message, "No transactions found") {
			return []entity.Transaction{}, nil
		}
		return nil, c.classifyAPIError(address, &envelope)
	}

	var rawTxs []rawTransaction
	if err := json.Unmarshal(envelope.Result, &rawTxs); err != nil {
		return nil, service.NewTransientFetchError(address, fmt.Errorf("decode result: %w", err))
	}

	transfers := make([]entity.Transaction, 0, len(rawTxs))
	for _, raw := range rawTxs {
		if c.cfg.MaxTransfers > 0 && len(transfers) >= c.cfg.MaxTransfers {
			break
		}

		tx, err := c.convert(&raw)
		if err != nil {
			c.logger.Warn("Skipping malformed transaction",
				zap.String("hash", raw.Hash),
				zap.Error(err))
			continue
		}
		// Only the address's own outflows matter for taint propagation.
		if tx.From != address {
			continue
		}
		transfers = append(transfers, tx)
	}

	c.logger.Debug("Fetched outgoing transfers",
		zap.String("address", address.Short()),
		zap.Int("count", len(transfers)))

	return transfers, nil
}

// classifyAPIError maps Etherscan's NOTOK envelope to a fetch error kind.
func (c *Client) classifyAPIError(address entity.Address, envelope *txListResponse) error {
	detail := strings.Trim(string(envelope.Result), `"`)
	apiErr := fmt.Errorf("api error %q: %s", envelope.Message, detail)

	if strings.Contains(strings.ToLower(detail), "rate limit") ||
		strings.Contains(strings.ToLower(envelope.Message), "rate limit") {
		return service.NewTransientFetchError(address, apiErr)
	}
	return service.NewPermanentFetchError(address, apiErr)
}

// convert parses one raw entry into a domain transaction.
func (c *Client) convert(raw *rawTransaction) (entity.Transaction, error) {
	from, err := entity.NormalizeAddress(raw.From)
	if err != nil {
		return entity.Transaction{}, fmt.Errorf("from address: %w", err)
	}
	to, err := entity.NormalizeAddress(raw.To)
	if err != nil {
		return entity.Transaction{}, fmt.Errorf("to address: %w", err)
	}

	value, ok := new(big.Int).SetString(raw.Value, 10)
	if !ok {
		return entity.Transaction{}, fmt.Errorf("value %q is not a decimal", raw.Value)
	}

	unix, err := strconv.ParseInt(raw.TimeStamp, 10, 64)
	if err != nil {
		return entity.Transaction{}, fmt.Errorf("timestamp %q: %w", raw.TimeStamp, err)
	}

	return entity.Transaction{
		Hash:        raw.Hash,
		From:        from,
		To:          to,
		Value:       value,
		BlockNumber: raw.BlockNumber,
		Timestamp:   time.Unix(unix, 0).UTC(),
	}, nil
}
