package dropbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

const (
	RawMediaFolder       = "Media Inbox"
	CompletedMediaFolder = "Completed Media"
)

// Credentials are the app keys and long-lived refresh token of one account.
type Credentials struct {
	AppKey       string
	AppSecret    string
	RefreshToken string
}

// FolderRequest names the job folder /<Root>/<Project>/<Category>/<Summary>.
type FolderRequest struct {
	Project  string
	Category string
	Summary  string
}

// FolderLink is a created folder and its shared link.
type FolderLink struct {
	PathDisplay string
	Link        string
}

type Client struct {
	apiURL string
	root   string
	creds  Credentials

	mu    sync.Mutex
	httpc *http.Client
}

// New builds a client for the API at apiURL; the token endpoint is apiURL/oauth2/token.
func New(apiURL, root string, creds Credentials) *Client {
	if apiURL == "" {
		apiURL = "https://api.dropboxapi.com"
	}
	return &Client{
		apiURL: strings.TrimRight(apiURL, "/"),
		root:   root,
		creds:  creds,
	}
}

// Init exchanges the refresh token for an access token and keeps an HTTP
// client that refreshes it on expiry.
func (c *Client) Init(ctx context.Context) error {
	cfg := &oauth2.Config{
		ClientID:     c.creds.AppKey,
		ClientSecret: c.creds.AppSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  c.apiURL + "/oauth2/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
	base := &http.Client{Timeout: 30 * time.Second}
	tctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	ts := cfg.TokenSource(tctx, &oauth2.Token{RefreshToken: c.creds.RefreshToken})
	if _, err := ts.Token(); err != nil {
		return errors.Wrap(err, "dropbox token")
	}

	hc := oauth2.NewClient(tctx, ts)
	hc.Timeout = 30 * time.Second

	c.mu.Lock()
	c.httpc = hc
	c.mu.Unlock()
	return nil
}

func (c *Client) client(ctx context.Context) (*http.Client, error) {
	c.mu.Lock()
	hc := c.httpc
	c.mu.Unlock()
	if hc != nil {
		return hc, nil
	}
	if err := c.Init(ctx); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.httpc, nil
}

// APIError is a non-2xx answer; Summary is the API's error_summary.
type APIError struct {
	StatusCode int
	Summary    string
	Body       []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("dropbox http %d: %s", e.StatusCode, e.Summary)
}

func (c *Client) rpc(ctx context.Context, endpoint string, in, out any) error {
	hc, err := c.client(ctx)
	if err != nil {
		return err
	}
	b, err := json.Marshal(in)
	if err != nil {
		return errors.Wrap(err, "marshal")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/2/"+endpoint, bytes.NewReader(b))
	if err != nil {
		return errors.Wrap(err, "new request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := hc.Do(req)
	if err != nil {
		return errors.Wrapf(err, "do request %s", endpoint)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "read response")
	}
	if resp.StatusCode/100 != 2 {
		var e struct {
			ErrorSummary string `json:"error_summary"`
		}
		_ = json.Unmarshal(raw, &e)
		return &APIError{StatusCode: resp.StatusCode, Summary: e.ErrorSummary, Body: raw}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return errors.Wrap(err, "decode")
	}
	return nil
}

func isConflict(err error, summaryPrefix string) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusConflict && strings.HasPrefix(apiErr.Summary, summaryPrefix) {
		return apiErr, true
	}
	return nil, false
}

// CreateFolders creates the raw-media and completed-media folders of a job
// and returns a shared link for each. Existing folders and links are reused.
func (c *Client) CreateFolders(ctx context.Context, r FolderRequest) ([]FolderLink, error) {
	base := path.Join("/", c.root, clean(r.Project), clean(r.Category), clean(r.Summary))
	out := make([]FolderLink, 0, 2)
	for _, name := range []string{RawMediaFolder, CompletedMediaFolder} {
		p, err := c.createFolder(ctx, path.Join(base, name))
		if err != nil {
			return nil, err
		}
		link, err := c.sharedLink(ctx, p)
		if err != nil {
			return nil, err
		}
		out = append(out, FolderLink{PathDisplay: p, Link: link})
	}
	return out, nil
}

func (c *Client) createFolder(ctx context.Context, p string) (string, error) {
	var res struct {
		Metadata struct {
			PathDisplay string `json:"path_display"`
		} `json:"metadata"`
	}
	err := c.rpc(ctx, "files/create_folder_v2", map[string]any{"path": p, "autorename": false}, &res)
	if _, ok := isConflict(err, "path/conflict"); ok {
		return p, nil
	}
	if err != nil {
		return "", errors.Wrapf(err, "create folder %s", p)
	}
	if res.Metadata.PathDisplay == "" {
		return p, nil
	}
	return res.Metadata.PathDisplay, nil
}

func (c *Client) sharedLink(ctx context.Context, p string) (string, error) {
	var res struct {
		URL string `json:"url"`
	}
	err := c.rpc(ctx, "sharing/create_shared_link_with_settings", map[string]any{"path": p}, &res)
	if apiErr, ok := isConflict(err, "shared_link_already_exists"); ok {
		var existing struct {
			Error struct {
				SharedLinkAlreadyExists struct {
					Metadata struct {
						URL string `json:"url"`
					} `json:"metadata"`
				} `json:"shared_link_already_exists"`
			} `json:"error"`
		}
		if json.Unmarshal(apiErr.Body, &existing) == nil && existing.Error.SharedLinkAlreadyExists.Metadata.URL != "" {
			return existing.Error.SharedLinkAlreadyExists.Metadata.URL, nil
		}
	}
	if err != nil {
		return "", errors.Wrapf(err, "share %s", p)
	}
	return res.URL, nil
}

type entry struct {
	Tag       string `json:".tag"`
	Name      string `json:"name"`
	PathLower string `json:"path_lower"`
}

// FetchFilesFromURL resolves a shared folder link and returns a temporary
// download link for every file directly inside it.
func (c *Client) FetchFilesFromURL(ctx context.Context, link string) ([]string, error) {
	var meta struct {
		PathLower string `json:"path_lower"`
	}
	if err := c.rpc(ctx, "sharing/get_shared_link_metadata", map[string]any{"url": link}, &meta); err != nil {
		return nil, errors.Wrap(err, "shared link metadata")
	}
	if meta.PathLower == "" {
		return nil, errors.Errorf("shared link %s is not in this account", link)
	}

	var files []entry
	var page struct {
		Entries []entry `json:"entries"`
		Cursor  string  `json:"cursor"`
		HasMore bool    `json:"has_more"`
	}
	if err := c.rpc(ctx, "files/list_folder", map[string]any{"path": meta.PathLower}, &page); err != nil {
		return nil, errors.Wrap(err, "list folder")
	}
	for {
		for _, e := range page.Entries {
			if e.Tag == "file" {
				files = append(files, e)
			}
		}
		if !page.HasMore {
			break
		}
		cursor := page.Cursor
		page.Entries, page.HasMore = nil, false
		if err := c.rpc(ctx, "files/list_folder/continue", map[string]any{"cursor": cursor}, &page); err != nil {
			return nil, errors.Wrap(err, "list folder continue")
		}
	}

	links := make([]string, 0, len(files))
	for _, f := range files {
		var tmp struct {
			Link string `json:"link"`
		}
		if err := c.rpc(ctx, "files/get_temporary_link", map[string]any{"path": f.PathLower}, &tmp); err != nil {
			return nil, errors.Wrapf(err, "temporary link %s", f.Name)
		}
		links = append(links, tmp.Link)
	}
	return links, nil
}

// clean keeps a path segment from introducing extra levels.
func clean(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "/", "-"))
}
