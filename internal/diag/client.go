package diag

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client is a small read-only HTTP client for a diagnostics Server,
// generalized from the teacher's HTTPClient (utils/http_client.go) down
// to the three data endpoints of this package's Server (/spaces and the
// per-space metrics and pagetable views); /health has no client method.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a Client against the diagnostics server at baseURL
// (e.g. "http://127.0.0.1:9090").
func NewClient(baseURL string) *Client {
	return &Client{baseURL: baseURL, http: &http.Client{Timeout: 5 * time.Second}}
}

func (c *Client) getJSON(path string, out interface{}) error {
	resp, err := c.http.Get(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("diag: GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("diag: GET %s: status %d: %s", path, resp.StatusCode, string(body))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Spaces lists the address-space ids currently registered.
func (c *Client) Spaces() ([]int, error) {
	var out struct {
		Spaces []int `json:"spaces"`
	}
	if err := c.getJSON("/spaces", &out); err != nil {
		return nil, err
	}
	return out.Spaces, nil
}

// Metrics fetches the page-fault/page-write counters for spaceID.
func (c *Client) Metrics(spaceID int) (pageFaults, pageWrites int, err error) {
	var out struct {
		PageFaults int `json:"page_faults"`
		PageWrites int `json:"page_writes"`
	}
	if err := c.getJSON(fmt.Sprintf("/spaces/%d/metrics", spaceID), &out); err != nil {
		return 0, 0, err
	}
	return out.PageFaults, out.PageWrites, nil
}

// PageTable fetches the raw page-table dump for spaceID as a slice of
// generic maps — the caller's vm.TranslationEntry fields, JSON-decoded
// without importing the vm package from here.
func (c *Client) PageTable(spaceID int) ([]map[string]interface{}, error) {
	var out []map[string]interface{}
	if err := c.getJSON(fmt.Sprintf("/spaces/%d/pagetable", spaceID), &out); err != nil {
		return nil, err
	}
	return out, nil
}
