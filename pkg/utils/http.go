package utils

import (
	"encoding/json"
	"fmt"

	"github.com/go-resty/resty/v2"
)

const maxErrorBody = 256

// HandleJSONResponse handles JSON HTTP responses
func HandleJSONResponse(resp *resty.Response, target interface{}, errorMsg string) error {
	if !resp.IsSuccess() {
		return fmt.Errorf("%s: unexpected status %d: %s", errorMsg, resp.StatusCode(), truncate(resp.String(), maxErrorBody))
	}
	if err := json.Unmarshal(resp.Body(), target); err != nil {
		return fmt.Errorf("%s: invalid response: %w", errorMsg, err)
	}
	return nil
}

// WrapError wraps an error with a consistent message format
func WrapError(err error, operation string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("unable to %s: %w", operation, err)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
