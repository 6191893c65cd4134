package devbackend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// SignIn asks a dev backend at baseURL for a token pair.
func SignIn(ctx context.Context, hc *http.Client, baseURL string, req TokenRequest) (*TokenResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("devbackend.SignIn marshal: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(baseURL, "/")+RouteToken, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("devbackend.SignIn request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := hc.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("devbackend.SignIn: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("devbackend.SignIn: status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var out TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("devbackend.SignIn decode: %w", err)
	}
	return &out, nil
}
