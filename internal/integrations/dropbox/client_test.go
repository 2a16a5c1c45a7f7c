package dropbox

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	t *testing.T

	mu       sync.Mutex
	folders  []string
	tokens   int
	existing map[string]bool
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if r.URL.Path == "/oauth2/token" {
		require.NoError(f.t, r.ParseForm())
		require.Equal(f.t, "refresh_token", r.PostForm.Get("grant_type"))
		require.Equal(f.t, "rt", r.PostForm.Get("refresh_token"))
		require.Equal(f.t, "key", r.PostForm.Get("client_id"))
		f.tokens++
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at","token_type":"bearer","expires_in":14400}`))
		return
	}

	require.Equal(f.t, "Bearer at", r.Header.Get("Authorization"))
	var in map[string]any
	_ = json.NewDecoder(r.Body).Decode(&in)
	w.Header().Set("Content-Type", "application/json")

	switch r.URL.Path {
	case "/2/files/create_folder_v2":
		p := in["path"].(string)
		f.folders = append(f.folders, p)
		if f.existing[p] {
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(`{"error_summary":"path/conflict/folder/..","error":{".tag":"path"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"metadata": map[string]any{"path_display": p}})
	case "/2/sharing/create_shared_link_with_settings":
		p := in["path"].(string)
		if f.existing[p] {
			w.WriteHeader(http.StatusConflict)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"error_summary": "shared_link_already_exists/..",
				"error": map[string]any{
					"shared_link_already_exists": map[string]any{"metadata": map[string]any{"url": "https://db.example/old" + p}},
				},
			})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"url": "https://db.example/s" + p})
	case "/2/sharing/get_shared_link_metadata":
		require.Equal(f.t, "https://db.example/s/done", in["url"])
		_, _ = w.Write([]byte(`{"path_lower":"/jobs/done"}`))
	case "/2/files/list_folder":
		require.Equal(f.t, "/jobs/done", in["path"])
		_, _ = w.Write([]byte(`{"entries":[{".tag":"file","name":"a.jpg","path_lower":"/jobs/done/a.jpg"},{".tag":"folder","name":"raw","path_lower":"/jobs/done/raw"}],"cursor":"c1","has_more":true}`))
	case "/2/files/list_folder/continue":
		require.Equal(f.t, "c1", in["cursor"])
		_, _ = w.Write([]byte(`{"entries":[{".tag":"file","name":"b.jpg","path_lower":"/jobs/done/b.jpg"}],"cursor":"c2","has_more":false}`))
	case "/2/files/get_temporary_link":
		_ = json.NewEncoder(w).Encode(map[string]any{"link": "https://dl.example" + in["path"].(string)})
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newTestClient(t *testing.T, api *fakeAPI) *Client {
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	c := New(srv.URL, "NDP", Credentials{AppKey: "key", AppSecret: "secret", RefreshToken: "rt"})
	require.NoError(t, c.Init(context.Background()))
	return c
}

func TestClient_CreateFolders(t *testing.T) {
	api := &fakeAPI{t: t}
	c := newTestClient(t, api)

	links, err := c.CreateFolders(context.Background(), FolderRequest{
		Project: "Main Board", Category: "Floor Plans", Summary: "240501 02.30 PM Doe 12 Main/St Floor Plan",
	})
	require.NoError(t, err)
	require.Len(t, links, 2)

	base := "/NDP/Main Board/Floor Plans/240501 02.30 PM Doe 12 Main-St Floor Plan"
	require.Equal(t, []string{base + "/Media Inbox", base + "/Completed Media"}, api.folders)
	require.Equal(t, base+"/Media Inbox", links[0].PathDisplay)
	require.Equal(t, "https://db.example/s"+base+"/Completed Media", links[1].Link)
	require.Equal(t, 1, api.tokens)
}

func TestClient_CreateFolders_ReusesExisting(t *testing.T) {
	base := "/NDP/P/Photos/S"
	api := &fakeAPI{t: t, existing: map[string]bool{base + "/Media Inbox": true}}
	c := newTestClient(t, api)

	links, err := c.CreateFolders(context.Background(), FolderRequest{Project: "P", Category: "Photos", Summary: "S"})
	require.NoError(t, err)
	require.Equal(t, "https://db.example/old"+base+"/Media Inbox", links[0].Link)
}

func TestClient_FetchFilesFromURL(t *testing.T) {
	api := &fakeAPI{t: t}
	c := newTestClient(t, api)

	links, err := c.FetchFilesFromURL(context.Background(), "https://db.example/s/done")
	require.NoError(t, err)
	require.Equal(t, []string{"https://dl.example/jobs/done/a.jpg", "https://dl.example/jobs/done/b.jpg"}, links)
}

func TestClient_Init_BadToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	defer srv.Close()

	err := New(srv.URL, "", Credentials{RefreshToken: "bad"}).Init(context.Background())
	require.Error(t, err)
}
