package cmd

import (
	"bytes"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/BeckhamLabsLLC/linglide/config"
)

// apiClient is a minimal HTTPS client for the CLI's local management
// commands (pair, devices) to talk to an already-running server over
// its own REST API, rather than duplicating the server's state handling in
// the CLI process. The server's certificate is self-signed, so verification
// is skipped here the same way a freshly paired mobile client would skip it
// until it has pinned the fingerprint reported at pairing time.
type apiClient struct {
	baseURL string
	http    *http.Client
}

func newAPIClient(port int) *apiClient {
	if port <= 0 {
		port = config.GetPort()
	}
	return &apiClient{
		baseURL: fmt.Sprintf("https://localhost:%d", port),
		http: &http.Client{
			Timeout: 5 * time.Second,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			},
		},
	}
}

func (c *apiClient) postJSON(path string, body, out interface{}) error {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	resp, err := c.http.Post(c.baseURL+path, "application/json", reader)
	if err != nil {
		return fmt.Errorf("server unreachable at %s (is it running?): %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("server returned %s", resp.Status)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *apiClient) getJSON(path string, out interface{}) error {
	resp, err := c.http.Get(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("server unreachable at %s (is it running?): %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("server returned %s", resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *apiClient) delete(path string) error {
	req, err := http.NewRequest(http.MethodDelete, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("server unreachable at %s (is it running?): %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("server returned %s", resp.Status)
	}
	return nil
}
