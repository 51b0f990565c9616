package reference

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	defaultRecordLimit = 10000
	defaultMaxBody     = 16 << 20
)

// Client reads reference records from a ServiceNow-style Table API.
type Client struct {
	baseURL  string
	user     string
	password string
	limit    int
	maxBody  int64
	http     *http.Client
}

func NewClient(baseURL, user, password string, timeout time.Duration) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("reference base url is empty")
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		user:     user,
		password: password,
		limit:    defaultRecordLimit,
		maxBody:  defaultMaxBody,
		http:     &http.Client{Timeout: timeout},
	}, nil
}

type tableResponse struct {
	Result []struct {
		Name string `json:"name"`
	} `json:"result"`
}

// Names returns the name field of every record in table.
func (c *Client) Names(ctx context.Context, table string) ([]string, error) {
	table = strings.TrimSpace(table)
	if table == "" {
		return nil, errors.New("reference table is empty")
	}
	params := url.Values{}
	params.Set("sysparm_fields", "name")
	params.Set("sysparm_limit", strconv.Itoa(c.limit))
	endpoint := c.baseURL + "/api/now/table/" + url.PathEscape(table) + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if c.user != "" {
		req.SetBasicAuth(c.user, c.password)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("unable to read reference response: %w", err)
	}
	if int64(len(body)) > c.maxBody {
		return nil, fmt.Errorf("reference response for %s exceeds %d bytes", table, c.maxBody)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("reference api error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed tableResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(parsed.Result))
	for _, r := range parsed.Result {
		if name := strings.TrimSpace(r.Name); name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}
