package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Lorent-Bloom/lorentbloom/backend/config"
	"github.com/Lorent-Bloom/lorentbloom/backend/pkg/apperr"
	"github.com/Lorent-Bloom/lorentbloom/backend/pkg/logger"
)

// categoryAuthorization is the error category the commerce backend reports
// for missing or expired customer tokens.
const categoryAuthorization = "graphql-authorization"

// CommerceClient talks to the GraphQL commerce backend.
type CommerceClient struct {
	endpoint   string
	storeCode  string
	httpClient *http.Client
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLError struct {
	Message    string `json:"message"`
	Extensions struct {
		Category string `json:"category"`
	} `json:"extensions"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors"`
}

func NewCommerceClient(cfg *config.CommerceConfig, timeout time.Duration) *CommerceClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &CommerceClient{
		endpoint:  cfg.GraphQLURL,
		storeCode: cfg.StoreCode,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Do executes query with variables and decodes the data member into out.
// Remote errors are reported under failCode unless they are authorization
// or transport failures.
func (c *CommerceClient) Do(ctx context.Context, token, query string, vars map[string]any, out any, failCode string) error {
	jsonData, err := json.Marshal(graphQLRequest{Query: query, Variables: vars})
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, failCode, fmt.Errorf("failed to marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, failCode, fmt.Errorf("failed to create request: %w", err))
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.storeCode != "" {
		req.Header.Set("Store", c.storeCode)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperr.Unavailable(fmt.Errorf("failed to send request: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperr.Unavailable(fmt.Errorf("failed to read response: %w", err))
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return apperr.SessionExpired("session expired, please sign in again")
	case resp.StatusCode >= http.StatusInternalServerError:
		return apperr.Unavailable(fmt.Errorf("commerce backend returned %d", resp.StatusCode))
	}

	var result graphQLResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return apperr.Wrap(apperr.KindFailed, failCode, fmt.Errorf("failed to parse response: %w", err))
	}

	if len(result.Errors) > 0 {
		for _, e := range result.Errors {
			if e.Extensions.Category == categoryAuthorization {
				return apperr.SessionExpired(e.Message)
			}
		}
		logger.Debug(ctx, "graphql error", "code", failCode, "message", result.Errors[0].Message)
		return apperr.Failed(failCode, result.Errors[0].Message)
	}

	if out == nil {
		return nil
	}
	if len(result.Data) == 0 || string(result.Data) == "null" {
		return apperr.Failed(failCode, "empty response")
	}
	if err := json.Unmarshal(result.Data, out); err != nil {
		return apperr.Wrap(apperr.KindFailed, failCode, fmt.Errorf("failed to decode data: %w", err))
	}
	return nil
}

