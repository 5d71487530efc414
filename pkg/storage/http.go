package storage

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tech-monarch/ArtMintNFT/pkg/version"
)

const uploadTimeout = 120 * time.Second

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: uploadTimeout}
}

type errorResponse struct {
	Message string          `json:"message"`
	Error   json.RawMessage `json:"error"`
}

// extractErrorMessage pulls a human message out of a provider error body.
// NFT.storage nests it as {"error": {"message": ...}}, Pinata uses {"error": "..."}.
func extractErrorMessage(body []byte) string {
	var errResp errorResponse
	if json.Unmarshal(body, &errResp) != nil {
		return ""
	}
	if errResp.Message != "" {
		return errResp.Message
	}
	if len(errResp.Error) == 0 {
		return ""
	}

	var s string
	if json.Unmarshal(errResp.Error, &s) == nil {
		return s
	}
	var nested struct {
		Message string `json:"message"`
		Reason  string `json:"reason"`
	}
	if json.Unmarshal(errResp.Error, &nested) == nil {
		if nested.Message != "" {
			return nested.Message
		}
		return nested.Reason
	}
	return ""
}

// do sends req and returns the body of a 2xx response
func do(client *http.Client, req *http.Request, provider string) ([]byte, error) {
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach %s: %w", provider, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", provider, err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		if msg := extractErrorMessage(body); msg != "" {
			return nil, fmt.Errorf("%s rejected credential: %s", provider, msg)
		}
		return nil, fmt.Errorf("%s rejected credential", provider)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if msg := extractErrorMessage(body); msg != "" {
			return nil, fmt.Errorf("%s upload failed: %s", provider, msg)
		}
		return nil, fmt.Errorf("%s upload failed with status %d: %s", provider, resp.StatusCode, string(body))
	}

	return body, nil
}
