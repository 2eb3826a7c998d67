package ckbrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/nervoshalving/countdown-service/business/domain/halving"
	"github.com/nervoshalving/countdown-service/entities"
	"github.com/pkg/errors"
)

const (
	MethodTipHeader      = "get_tip_header"
	MethodBlockchainInfo = "get_blockchain_info"

	requestID       = 42
	maxResponseSize = 1 << 20
)

type Client struct {
	url        string
	method     string
	httpClient *http.Client
}

type request struct {
	ID      int      `json:"id"`
	JSONRPC string   `json:"jsonrpc"`
	Method  string   `json:"method"`
	Params  []string `json:"params"`
}

type response struct {
	ID      int             `json:"id"`
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// result fields shared by get_tip_header and get_blockchain_info. Only the header carries a block number.
type chainResult struct {
	Epoch  *string `json:"epoch"`
	Number *string `json:"number"`
}

func NewClient(url, method string, timeout time.Duration) (*Client, error) {
	if url == "" {
		return nil, errors.New("invalid argument: missing node url")
	}
	if method != MethodTipHeader && method != MethodBlockchainInfo {
		return nil, errors.Errorf("invalid argument: unsupported method [%s]", method)
	}
	return &Client{
		url:    url,
		method: method,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// GetChainSnapshot polls the node once and decodes the current epoch.
func (c *Client) GetChainSnapshot(ctx context.Context) (*entities.ChainSnapshot, error) {
	result, err := c.call(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "calling [%s]", c.method)
	}
	snapshot, err := convertResult(result, c.method == MethodTipHeader)
	if err != nil {
		return nil, errors.Wrapf(err, "converting [%s] result", c.method)
	}
	return snapshot, nil
}

func (c *Client) call(ctx context.Context) (json.RawMessage, error) {
	body, err := json.Marshal(request{
		ID:      requestID,
		JSONRPC: "2.0",
		Method:  c.method,
		Params:  []string{},
	})
	if err != nil {
		return nil, errors.Wrap(err, "encoding request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "creating request")
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "sending request")
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, errors.Wrapf(entities.ErrRPCResponse, "unexpected status code [%d]", res.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(res.Body, maxResponseSize))
	if err != nil {
		return nil, errors.Wrap(err, "reading response")
	}

	var rpcResponse response
	err = json.Unmarshal(data, &rpcResponse)
	if err != nil {
		return nil, errors.Wrapf(entities.ErrRPCResponse, "decoding response: %v", err)
	}
	if rpcResponse.Error != nil {
		return nil, errors.Wrapf(entities.ErrRPCResponse, "node error [%d]: %s", rpcResponse.Error.Code, rpcResponse.Error.Message)
	}
	if len(rpcResponse.Result) == 0 || string(rpcResponse.Result) == "null" {
		return nil, errors.Wrap(entities.ErrRPCResponse, "missing result")
	}
	return rpcResponse.Result, nil
}

func convertResult(raw json.RawMessage, withBlockNumber bool) (*entities.ChainSnapshot, error) {
	var result chainResult
	err := json.Unmarshal(raw, &result)
	if err != nil {
		return nil, errors.Wrapf(entities.ErrRPCResponse, "decoding result: %v", err)
	}

	if result.Epoch == nil {
		return nil, errors.Wrap(entities.ErrMissingField, "epoch")
	}
	packed, err := parseQuantity(*result.Epoch)
	if err != nil {
		return nil, errors.Wrap(err, "parsing epoch")
	}
	epoch := halving.Decode(packed)
	if err = epoch.Validate(); err != nil {
		return nil, errors.Wrapf(err, "epoch [%s]", *result.Epoch)
	}

	snapshot := entities.ChainSnapshot{Epoch: epoch}
	if withBlockNumber {
		if result.Number == nil {
			return nil, errors.Wrap(entities.ErrMissingField, "number")
		}
		snapshot.BlockNumber, err = parseQuantity(*result.Number)
		if err != nil {
			return nil, errors.Wrap(err, "parsing block number")
		}
	}
	return &snapshot, nil
}

// parseQuantity accepts the node's hex encoding ("0x1a") as well as plain decimal strings.
func parseQuantity(s string) (uint64, error) {
	var value uint64
	var err error
	if hex, ok := strings.CutPrefix(s, "0x"); ok {
		value, err = strconv.ParseUint(hex, 16, 64)
	} else {
		value, err = strconv.ParseUint(s, 10, 64)
	}
	if err != nil {
		return 0, errors.Wrapf(entities.ErrRPCResponse, "invalid quantity [%s]: %v", s, err)
	}
	return value, nil
}

func (c *Client) String() string {
	return fmt.Sprintf("%s@%s", c.method, c.url)
}
