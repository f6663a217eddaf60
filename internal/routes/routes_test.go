package routes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tasknest/tasknest/internal/app"
	"github.com/tasknest/tasknest/internal/config"
)

var pngBytes = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	cfg := &config.Config{
		AppName:       "Tasknest",
		AppEnv:        "development",
		DBDriver:      "sqlite",
		DBConnection:  filepath.Join(t.TempDir(), "test.db"),
		JWTSecret:     "test-secret",
		JWTExpiry:     time.Hour,
		MaxUploadSize: 5 << 20,
	}

	application, err := app.New(cfg)
	if err != nil {
		t.Fatalf("init app: %v", err)
	}
	t.Cleanup(func() { _ = application.Close() })

	server := httptest.NewServer(SetupRoutes(application))
	t.Cleanup(server.Close)
	return server
}

type filePart struct {
	field    string
	filename string
	content  []byte
}

func multipartBody(t *testing.T, fields map[string]string, file *filePart) (*bytes.Buffer, string) {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for key, value := range fields {
		err := writer.WriteField(key, value)
		if err != nil {
			t.Fatalf("write field %s: %v", key, err)
		}
	}
	if file != nil {
		part, err := writer.CreateFormFile(file.field, file.filename)
		if err != nil {
			t.Fatalf("create file part: %v", err)
		}
		_, err = part.Write(file.content)
		if err != nil {
			t.Fatalf("write file part: %v", err)
		}
	}
	err := writer.Close()
	if err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &body, writer.FormDataContentType()
}

func do(t *testing.T, method, url, token string, body io.Reader, contentType string) (*http.Response, map[string]any) {
	t.Helper()

	req, err := http.NewRequest(method, url, body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })

	var decoded map[string]any
	if strings.Contains(resp.Header.Get("Content-Type"), "application/json") {
		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			t.Fatalf("read body: %v", err)
		}
		// Lists decode to nil map; callers re-decode when they need arrays
		_ = json.Unmarshal(raw, &decoded)
		resp.Body = io.NopCloser(bytes.NewReader(raw))
	}
	return resp, decoded
}

func signup(t *testing.T, server *httptest.Server, name, email, password string, image []byte) string {
	t.Helper()

	var file *filePart
	if image != nil {
		file = &filePart{field: "image", filename: "me.png", content: image}
	}
	body, contentType := multipartBody(t, map[string]string{
		"name": name, "email": email, "password": password,
	}, file)

	resp, decoded := do(t, "POST", server.URL+"/auth/signup", "", body, contentType)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("signup status = %d, body %v", resp.StatusCode, decoded)
	}
	userID, _ := decoded["userId"].(string)
	if userID == "" {
		t.Fatal("signup returned no user id")
	}
	return userID
}

func login(t *testing.T, server *httptest.Server, email, password string) string {
	t.Helper()

	payload, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		t.Fatalf("marshal login: %v", err)
	}

	resp, decoded := do(t, "POST", server.URL+"/auth/login", "", bytes.NewReader(payload), "application/json")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d, body %v", resp.StatusCode, decoded)
	}
	token, _ := decoded["token"].(string)
	if token == "" {
		t.Fatal("login returned no token")
	}
	return token
}

func decodeList(t *testing.T, resp *http.Response) []map[string]any {
	t.Helper()

	var list []map[string]any
	err := json.NewDecoder(resp.Body).Decode(&list)
	if err != nil {
		t.Fatalf("decode list: %v", err)
	}
	return list
}

func TestTaskLifecycle(t *testing.T) {
	server := newTestServer(t)

	signup(t, server, "Ann", "ann@x.com", "pw1", pngBytes)
	token := login(t, server, "ann@x.com", "pw1")

	// Create
	body, contentType := multipartBody(t, map[string]string{"title": "Buy milk"}, nil)
	resp, task := do(t, "POST", server.URL+"/tasks", token, body, contentType)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d, body %v", resp.StatusCode, task)
	}
	if task["status"] != "pending" {
		t.Errorf("status = %v, want pending", task["status"])
	}
	taskID, _ := task["id"].(string)

	// Partial update: only status
	body, contentType = multipartBody(t, map[string]string{"status": "done"}, nil)
	resp, updated := do(t, "PUT", server.URL+"/tasks/"+taskID, token, body, contentType)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update status = %d, body %v", resp.StatusCode, updated)
	}
	if updated["status"] != "done" {
		t.Errorf("status = %v, want done", updated["status"])
	}
	if updated["title"] != "Buy milk" {
		t.Errorf("title = %v, want unchanged", updated["title"])
	}

	// List
	resp, _ = do(t, "GET", server.URL+"/tasks", token, nil, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status = %d", resp.StatusCode)
	}
	tasks := decodeList(t, resp)
	if len(tasks) != 1 {
		t.Fatalf("tasks = %d, want 1", len(tasks))
	}

	// Delete, then attachments report not found
	resp, deleted := do(t, "DELETE", server.URL+"/tasks/"+taskID, token, nil, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete status = %d, body %v", resp.StatusCode, deleted)
	}
	if deleted["taskId"] != taskID {
		t.Errorf("deleted id = %v, want %s", deleted["taskId"], taskID)
	}

	resp, _ = do(t, "GET", server.URL+"/tasks/"+taskID+"/attachments", token, nil, "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("attachments after delete status = %d, want 404", resp.StatusCode)
	}
}

func TestTaskAttachmentFlow(t *testing.T) {
	server := newTestServer(t)

	signup(t, server, "Ann", "ann@x.com", "pw1", nil)
	token := login(t, server, "ann@x.com", "pw1")

	body, contentType := multipartBody(t, map[string]string{
		"title":           "Buy milk",
		"attachmentTitle": "receipt",
	}, &filePart{field: "attachment", filename: "receipt.png", content: pngBytes})
	resp, task := do(t, "POST", server.URL+"/tasks", token, body, contentType)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d, body %v", resp.StatusCode, task)
	}
	taskID, _ := task["id"].(string)

	resp, _ = do(t, "GET", server.URL+"/tasks/"+taskID+"/attachments", token, nil, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("attachments status = %d", resp.StatusCode)
	}
	attachments := decodeList(t, resp)
	if len(attachments) != 1 {
		t.Fatalf("attachments = %d, want 1", len(attachments))
	}
	if attachments[0]["title"] != "receipt" {
		t.Errorf("attachment title = %v", attachments[0]["title"])
	}
	attachmentID, _ := attachments[0]["id"].(string)

	resp, _ = do(t, "GET", server.URL+"/tasks/attachment/"+attachmentID, token, nil, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("fetch bytes status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Errorf("content type = %q, want image/png", ct)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read bytes: %v", err)
	}
	if !bytes.Equal(raw, pngBytes) {
		t.Error("payload bytes differ from upload")
	}

	// Replace in place
	body, contentType = multipartBody(t, map[string]string{
		"attachmentId": attachmentID,
	}, &filePart{field: "attachment", filename: "scan.pdf", content: []byte("%PDF-1.4\n")})
	resp, _ = do(t, "PUT", server.URL+"/tasks/"+taskID, token, body, contentType)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("replace status = %d", resp.StatusCode)
	}

	resp, _ = do(t, "GET", server.URL+"/tasks/attachment/"+attachmentID, token, nil, "")
	if ct := resp.Header.Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("content type after replace = %q, want application/pdf", ct)
	}

	// Title survived the replacement
	resp, _ = do(t, "GET", server.URL+"/tasks/"+taskID+"/attachments", token, nil, "")
	attachments = decodeList(t, resp)
	if attachments[0]["title"] != "receipt" {
		t.Errorf("attachment title after replace = %v, want retained", attachments[0]["title"])
	}
}

func TestAttachmentOwnershipIsolation(t *testing.T) {
	server := newTestServer(t)

	signup(t, server, "Ann", "ann@x.com", "pw1", nil)
	signup(t, server, "Bob", "bob@x.com", "pw2", nil)
	annToken := login(t, server, "ann@x.com", "pw1")
	bobToken := login(t, server, "bob@x.com", "pw2")

	body, contentType := multipartBody(t, map[string]string{"title": "private"},
		&filePart{field: "attachment", filename: "secret.png", content: pngBytes})
	resp, task := do(t, "POST", server.URL+"/tasks", annToken, body, contentType)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d", resp.StatusCode)
	}
	taskID, _ := task["id"].(string)

	resp, _ = do(t, "GET", server.URL+"/tasks/"+taskID+"/attachments", annToken, nil, "")
	attachments := decodeList(t, resp)
	attachmentID, _ := attachments[0]["id"].(string)

	// Bob guesses the id correctly and still gets a 404
	resp, _ = do(t, "GET", server.URL+"/tasks/attachment/"+attachmentID, bobToken, nil, "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("cross-user fetch status = %d, want 404", resp.StatusCode)
	}

	// Bob cannot see Ann's task list either
	resp, _ = do(t, "GET", server.URL+"/tasks", bobToken, nil, "")
	if tasks := decodeList(t, resp); len(tasks) != 0 {
		t.Errorf("bob sees %d foreign tasks", len(tasks))
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	server := newTestServer(t)

	signup(t, server, "Ann", "ann@x.com", "pw1", nil)

	wrongPassword, err := json.Marshal(map[string]string{"email": "ann@x.com", "password": "nope"})
	if err != nil {
		t.Fatal(err)
	}
	unknownEmail, err := json.Marshal(map[string]string{"email": "ghost@x.com", "password": "pw1"})
	if err != nil {
		t.Fatal(err)
	}

	resp1, body1 := do(t, "POST", server.URL+"/auth/login", "", bytes.NewReader(wrongPassword), "application/json")
	resp2, body2 := do(t, "POST", server.URL+"/auth/login", "", bytes.NewReader(unknownEmail), "application/json")

	if resp1.StatusCode != http.StatusBadRequest || resp2.StatusCode != http.StatusBadRequest {
		t.Fatalf("statuses = %d/%d, want 400/400", resp1.StatusCode, resp2.StatusCode)
	}
	if fmt.Sprint(body1) != fmt.Sprint(body2) {
		t.Errorf("bodies differ: %v vs %v", body1, body2)
	}
}

func TestRequiresAuthentication(t *testing.T) {
	server := newTestServer(t)

	resp, body := do(t, "GET", server.URL+"/tasks", "", nil, "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
	if body["message"] != "No token provided" {
		t.Errorf("message = %v", body["message"])
	}
}

func TestCreateTaskRequiresTitle(t *testing.T) {
	server := newTestServer(t)

	signup(t, server, "Ann", "ann@x.com", "pw1", nil)
	token := login(t, server, "ann@x.com", "pw1")

	body, contentType := multipartBody(t, map[string]string{"description": "no title"}, nil)
	resp, decoded := do(t, "POST", server.URL+"/tasks", token, body, contentType)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if decoded["message"] != "Title required" {
		t.Errorf("message = %v", decoded["message"])
	}
}

func TestRejectedUploadLeavesNoRecord(t *testing.T) {
	server := newTestServer(t)

	signup(t, server, "Ann", "ann@x.com", "pw1", nil)
	token := login(t, server, "ann@x.com", "pw1")

	body, contentType := multipartBody(t, map[string]string{"title": "sneaky"},
		&filePart{field: "attachment", filename: "notes.txt", content: []byte("plain text")})
	resp, _ := do(t, "POST", server.URL+"/tasks", token, body, contentType)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}

	// The rejected upload created nothing, not even the task
	resp, _ = do(t, "GET", server.URL+"/tasks", token, nil, "")
	if tasks := decodeList(t, resp); len(tasks) != 0 {
		t.Errorf("tasks after rejected upload = %d, want 0", len(tasks))
	}
}

func TestProfileAndImages(t *testing.T) {
	server := newTestServer(t)

	userID := signup(t, server, "Ann", "ann@x.com", "pw1", pngBytes)
	token := login(t, server, "ann@x.com", "pw1")

	resp, profile := do(t, "GET", server.URL+"/auth/profile", token, nil, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("profile status = %d", resp.StatusCode)
	}
	if profile["name"] != "Ann" || profile["email"] != "ann@x.com" {
		t.Errorf("profile = %v", profile)
	}
	images, _ := profile["images"].([]any)
	if len(images) != 1 {
		t.Fatalf("profile images = %d, want 1", len(images))
	}
	image, _ := images[0].(map[string]any)
	url, _ := image["url"].(string)

	// Image URL is publicly fetchable
	resp, _ = do(t, "GET", server.URL+url, "", nil, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("image fetch status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Errorf("image content type = %q", ct)
	}

	// Profile image by user id, also public
	resp, _ = do(t, "GET", server.URL+"/auth/user/image/"+userID, "", nil, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("user image status = %d", resp.StatusCode)
	}
}

func TestImageLibrary(t *testing.T) {
	server := newTestServer(t)

	signup(t, server, "Ann", "ann@x.com", "pw1", nil)
	token := login(t, server, "ann@x.com", "pw1")

	body, contentType := multipartBody(t, map[string]string{"title": "vacation"},
		&filePart{field: "image", filename: "beach.png", content: pngBytes})
	resp, uploaded := do(t, "POST", server.URL+"/auth/uploads", token, body, contentType)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("upload status = %d, body %v", resp.StatusCode, uploaded)
	}
	if uploaded["imageId"] == "" {
		t.Fatal("upload returned no image id")
	}

	resp, listBody := do(t, "GET", server.URL+"/auth/images", token, nil, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("images status = %d", resp.StatusCode)
	}
	images, _ := listBody["images"].([]any)
	if len(images) != 1 {
		t.Fatalf("images = %d, want 1", len(images))
	}
}

func TestSignupDuplicate(t *testing.T) {
	server := newTestServer(t)

	signup(t, server, "Ann", "ann@x.com", "pw1", nil)

	body, contentType := multipartBody(t, map[string]string{
		"name": "Other Ann", "email": "ann@x.com", "password": "pw2",
	}, nil)
	resp, decoded := do(t, "POST", server.URL+"/auth/signup", "", body, contentType)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if decoded["message"] != "User already exists" {
		t.Errorf("message = %v", decoded["message"])
	}
}

func TestAttachmentPathDispatch(t *testing.T) {
	server := newTestServer(t)

	signup(t, server, "Ann", "ann@x.com", "pw1", nil)
	token := login(t, server, "ann@x.com", "pw1")

	body, contentType := multipartBody(t, map[string]string{"title": "with file"},
		&filePart{field: "attachment", filename: "pic.png", content: pngBytes})
	resp, task := do(t, "POST", server.URL+"/tasks", token, body, contentType)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d", resp.StatusCode)
	}
	taskID, _ := task["id"].(string)

	// Both path shapes resolve through the shared pattern
	resp, _ = do(t, "GET", server.URL+"/tasks/"+taskID+"/attachments", token, nil, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status = %d, want 200", resp.StatusCode)
	}
	attachments := decodeList(t, resp)
	attachmentID, _ := attachments[0]["id"].(string)

	resp, _ = do(t, "GET", server.URL+"/tasks/attachment/"+attachmentID, token, nil, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("payload status = %d, want 200", resp.StatusCode)
	}

	// The one request both shapes would claim: treated as a payload fetch
	// for a nonexistent id
	resp, _ = do(t, "GET", server.URL+"/tasks/attachment/attachments", token, nil, "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("ambiguous path status = %d, want 404", resp.StatusCode)
	}

	// Neither shape: unknown subresource
	resp, _ = do(t, "GET", server.URL+"/tasks/"+taskID+"/bogus", token, nil, "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown subresource status = %d, want 404", resp.StatusCode)
	}
}
