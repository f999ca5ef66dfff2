package etherscan

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crypto-taint-tracer/internal/domain/entity"
	"crypto-taint-tracer/internal/domain/service"
	"crypto-taint-tracer/internal/infrastructure/config"
	"crypto-taint-tracer/internal/infrastructure/logger"
)

const (
	targetRaw = "0x1000000000000000000000000000000000000001"
	otherRaw  = "0x1000000000000000000000000000000000000002"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewClient(&config.EtherscanConfig{
		BaseURL:        server.URL,
		APIKey:         "test-key",
		ChainID:        "1",
		RequestTimeout: 2 * time.Second,
		MaxTransfers:   50,
	}, logger.NewNop())
}

func txListBody(entries string) string {
	return fmt.Sprintf(`{"status":"1","message":"OK","result":[%s]}`, entries)
}

func txEntry(hash, from, to, value, timestamp string) string {
	return fmt.Sprintf(`{"hash":%q,"from":%q,"to":%q,"value":%q,"blockNumber":"100","timeStamp":%q}`,
		hash, from, to, value, timestamp)
}

func TestGetOutgoingTransfers(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "account", q.Get("module"))
		assert.Equal(t, "txlist", q.Get("action"))
		assert.Equal(t, "asc", q.Get("sort"))
		assert.Equal(t, "test-key", q.Get("apikey"))
		assert.Equal(t, targetRaw, q.Get("address"))

		entries := txEntry("0xaaa", targetRaw, otherRaw, "5000000000000000000", "1700000000") + "," +
			// Inbound transfer, must be filtered out.
			txEntry("0xbbb", otherRaw, targetRaw, "1000000000000000000", "1700000100") + "," +
			txEntry("0xccc", targetRaw, otherRaw, "42", "1700000200")
		fmt.Fprint(w, txListBody(entries))
	})

	transfers, err := client.GetOutgoingTransfers(context.Background(), entity.MustAddress(targetRaw))
	require.NoError(t, err)

	require.Len(t, transfers, 2, "only outgoing transfers are kept")
	assert.Equal(t, "0xaaa", transfers[0].Hash)
	assert.Equal(t, entity.MustAddress(otherRaw), transfers[0].To)
	assert.Zero(t, transfers[0].Value.Cmp(big.NewInt(5_000_000_000_000_000_000)))
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), transfers[0].Timestamp)
	assert.Equal(t, "0xccc", transfers[1].Hash)
	assert.True(t, transfers[0].Timestamp.Before(transfers[1].Timestamp), "ascending order preserved")
}

func TestNoTransactionsFoundIsEmptyNotError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"0","message":"No transactions found","result":[]}`)
	})

	transfers, err := client.GetOutgoingTransfers(context.Background(), entity.MustAddress(targetRaw))
	require.NoError(t, err)
	assert.Empty(t, transfers)
}

func TestRateLimitIsTransient(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"0","message":"NOTOK","result":"Max rate limit reached"}`)
	})

	_, err := client.GetOutgoingTransfers(context.Background(), entity.MustAddress(targetRaw))
	require.Error(t, err)

	var fetchErr *service.FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, service.FetchErrorTransient, fetchErr.Kind)
	assert.True(t, service.IsRetryableFetchError(err))
}

func TestServerErrorIsTransient(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.GetOutgoingTransfers(context.Background(), entity.MustAddress(targetRaw))
	require.Error(t, err)
	assert.True(t, service.IsRetryableFetchError(err))
}

func TestInvalidAddressIsPermanent(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"0","message":"NOTOK","result":"Error! Invalid address format"}`)
	})

	_, err := client.GetOutgoingTransfers(context.Background(), entity.MustAddress(targetRaw))
	require.Error(t, err)

	var fetchErr *service.FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, service.FetchErrorPermanent, fetchErr.Kind)
	assert.False(t, service.IsRetryableFetchError(err))
}

func TestMaxTransfersCap(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		entries := ""
		for i := 0; i < 5; i++ {
			if entries != "" {
				entries += ","
			}
			entries += txEntry(fmt.Sprintf("0x%03d", i), targetRaw, otherRaw, "1", fmt.Sprintf("%d", 1700000000+i))
		}
		fmt.Fprint(w, txListBody(entries))
	})
	client.cfg.MaxTransfers = 3

	transfers, err := client.GetOutgoingTransfers(context.Background(), entity.MustAddress(targetRaw))
	require.NoError(t, err)
	assert.Len(t, transfers, 3)
}

func TestMalformedEntriesAreSkipped(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		entries := txEntry("0xbad", targetRaw, otherRaw, "not-a-number", "1700000000") + "," +
			txEntry("0xok", targetRaw, otherRaw, "1000", "1700000100")
		fmt.Fprint(w, txListBody(entries))
	})

	transfers, err := client.GetOutgoingTransfers(context.Background(), entity.MustAddress(targetRaw))
	require.NoError(t, err)
	require.Len(t, transfers, 1)
	assert.Equal(t, "0xok", transfers[0].Hash)
}
