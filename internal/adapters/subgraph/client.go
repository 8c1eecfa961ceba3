// Package subgraph fetches holder debt positions from a GraphQL indexer.
package subgraph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/okian/debtshare/internal/domain/fixedpoint"
	"github.com/okian/debtshare/internal/domain/model"
	"github.com/okian/debtshare/pkg/logger"
	"github.com/okian/debtshare/pkg/metrics"
	"github.com/tidwall/gjson"
)

const (
	defaultPageSize    = 1000
	maxErrorBodyLength = 512
)

// HolderSource returns the holder records of one chain as of a block.
type HolderSource interface {
	FetchHolders(ctx context.Context, tag model.BlockTag, filter []common.Address) ([]model.HolderRecord, error)
}

// Client queries the snxholders entity of a subgraph endpoint.
type Client struct {
	endpoint string
	chain    model.Chain
	http     *http.Client
	pageSize int
	logger   logger.Logger
}

// NewClient creates a client for the indexer serving chain at endpoint.
func NewClient(endpoint string, chain model.Chain, opts ...Option) *Client {
	c := &Client{
		endpoint: endpoint,
		chain:    chain,
		http:     http.DefaultClient,
		pageSize: defaultPageSize,
		logger:   logger.Get().Named("subgraph"),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

type graphRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

// FetchHolders returns every holder matching filter at tag, following id
// cursors until a short page. An empty filter fetches all holders.
func (c *Client) FetchHolders(ctx context.Context, tag model.BlockTag, filter []common.Address) ([]model.HolderRecord, error) {
	start := time.Now()
	defer func() {
		metrics.RecordIndexerLatency(string(c.chain), float64(time.Since(start).Milliseconds()))
	}()

	query := buildQuery(tag, len(filter) > 0)
	ids := make([]string, len(filter))
	for i, addr := range filter {
		ids[i] = strings.ToLower(addr.Hex())
	}

	var (
		holders []model.HolderRecord
		lastID  string
	)
	for {
		vars := map[string]any{
			"first":  c.pageSize,
			"lastID": lastID,
		}
		if len(ids) > 0 {
			vars["ids"] = ids
		}
		if !tag.IsLatest() {
			vars["block"] = tag.Uint64()
		}

		page, err := c.do(ctx, graphRequest{Query: query, Variables: vars})
		if err != nil {
			metrics.RecordErrorByComponent("subgraph", "query")
			return nil, err
		}
		holders = append(holders, page...)
		if len(page) < c.pageSize {
			break
		}
		lastID = strings.ToLower(page[len(page)-1].Address.Hex())
	}

	metrics.AddHoldersFetched(string(c.chain), len(holders))
	c.logger.Debug(ctx, "fetched holders",
		logger.String("chain", string(c.chain)),
		logger.String("block", tag.String()),
		logger.Int("holders", len(holders)),
	)
	return holders, nil
}

func buildQuery(tag model.BlockTag, filtered bool) string {
	params := []string{"$first: Int!", "$lastID: String!"}
	where := []string{"id_gt: $lastID"}
	args := []string{"first: $first", "orderBy: id", "orderDirection: asc"}
	if filtered {
		params = append(params, "$ids: [String!]!")
		where = append(where, "id_in: $ids")
	}
	if !tag.IsLatest() {
		params = append(params, "$block: Int!")
		args = append(args, "block: {number: $block}")
	}
	args = append(args, "where: {"+strings.Join(where, ", ")+"}")

	return fmt.Sprintf(
		"query holders(%s) { snxholders(%s) { id initialDebtOwnership debtEntryAtIndex } }",
		strings.Join(params, ", "), strings.Join(args, ", "),
	)
}

func (c *Client) do(ctx context.Context, req graphRequest) ([]model.HolderRecord, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrQuery, c.chain, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrDecode, err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		if len(raw) > maxErrorBodyLength {
			raw = raw[:maxErrorBodyLength]
		}
		return nil, fmt.Errorf("%w: %s: %d %s", ErrStatus, c.chain, resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return parseHolders(raw)
}

func parseHolders(raw []byte) ([]model.HolderRecord, error) {
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("%w: invalid json", ErrDecode)
	}
	parsed := gjson.ParseBytes(raw)
	if errs := parsed.Get("errors"); errs.IsArray() && len(errs.Array()) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrQuery, errs.Get("0.message").String())
	}
	list := parsed.Get("data.snxholders")
	if !list.Exists() || list.Type == gjson.Null {
		return nil, nil
	}
	if !list.IsArray() {
		return nil, fmt.Errorf("%w: snxholders is not a list", ErrDecode)
	}

	items := list.Array()
	holders := make([]model.HolderRecord, 0, len(items))
	for _, item := range items {
		h, err := parseHolder(item)
		if err != nil {
			return nil, err
		}
		holders = append(holders, h)
	}
	return holders, nil
}

func parseHolder(item gjson.Result) (model.HolderRecord, error) {
	id := item.Get("id").String()
	if !common.IsHexAddress(id) {
		return model.HolderRecord{}, fmt.Errorf("%w: holder id %q", ErrDecode, id)
	}
	ownership, err := fixedpoint.Parse(item.Get("initialDebtOwnership").String())
	if err != nil {
		return model.HolderRecord{}, fmt.Errorf("%w: %s initialDebtOwnership: %w", ErrDecode, id, err)
	}
	entry, err := fixedpoint.Parse(item.Get("debtEntryAtIndex").String())
	if err != nil {
		return model.HolderRecord{}, fmt.Errorf("%w: %s debtEntryAtIndex: %w", ErrDecode, id, err)
	}
	return model.HolderRecord{
		Address:              common.HexToAddress(id),
		InitialDebtOwnership: ownership,
		DebtEntryAtIndex:     entry,
	}, nil
}
