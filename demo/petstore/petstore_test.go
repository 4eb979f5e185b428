package petstore

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/celsowm/adorn-api/api/contract"
	"github.com/celsowm/adorn-api/api/contract/serve"
)

// sourceControllers mirrors what the source scanner extracts from the
// Controller literal in store.go. Keeping them in sync by hand lets the
// test run the whole pipeline without invoking the build tool.
func sourceControllers() []contract.SourceController {
	optionalString := contract.OptionalExpr(contract.NullableExpr(contract.StringExpr))

	petType := &contract.TypeExpr{
		Kind: contract.TypeObject,
		Name: "petstore.Pet",
		Fields: []contract.TypeField{
			{Name: "id", Type: contract.UUIDExpr},
			{Name: "name", Type: contract.StringExpr},
			{Name: "tag", Type: optionalString, Optional: true},
			{Name: "createdAt", Type: contract.TimeExpr},
		},
	}
	newPetType := &contract.TypeExpr{
		Kind: contract.TypeObject,
		Name: "petstore.NewPet",
		Fields: []contract.TypeField{
			{Name: "name", Type: contract.StringExpr},
			{Name: "tag", Type: optionalString, Optional: true},
		},
	}
	filterType := &contract.TypeExpr{
		Kind: contract.TypeObject,
		Name: "petstore.ListFilter",
		Fields: []contract.TypeField{
			{Name: "tag", Type: optionalString, Optional: true},
			{Name: "limit", Type: contract.OptionalExpr(contract.NullableExpr(contract.IntExpr)), Optional: true},
		},
	}

	return []contract.SourceController{{
		ControllerID: "pets",
		BasePath:     "/pets",
		Ops: []contract.SourceOperation{
			{
				Controller: "pets", Method: "List", HTTPMethod: "GET", Path: "",
				Params: []contract.RawParam{{Name: "filter", Type: filterType}},
				Result: contract.ArrayOf(petType),
			},
			{
				Controller: "pets", Method: "Get", HTTPMethod: "GET", Path: "/{id}",
				Params: []contract.RawParam{{Name: "id", Type: contract.UUIDExpr}},
				Result: petType,
				Replies: []contract.ReplyVariant{
					{Status: 200, Type: petType},
					{Status: 404},
				},
			},
			{
				Controller: "pets", Method: "Create", HTTPMethod: "POST", Path: "",
				Params: []contract.RawParam{{Name: "in", Type: newPetType}},
				Result: petType,
			},
			{
				Controller: "pets", Method: "Update", HTTPMethod: "PUT", Path: "/{id}",
				Params: []contract.RawParam{
					{Name: "id", Type: contract.UUIDExpr},
					{Name: "in", Type: newPetType},
				},
				Result: petType,
			},
			{
				Controller: "pets", Method: "Delete", HTTPMethod: "DELETE", Path: "/{id}",
				Params: []contract.RawParam{
					{Name: "ctx", Type: contract.CtxExpr},
					{Name: "id", Type: contract.UUIDExpr},
				},
				Auth: "bearer",
			},
		},
	}}
}

var testSecret = []byte("petstore-test-secret")

// newTestServer runs the whole pipeline: manifest build, validator
// compilation, route binding, and mux assembly.
func newTestServer(t *testing.T) (*httptest.Server, *Store) {
	t.Helper()

	reg := contract.NewRegistry()
	m, err := contract.BuildManifest(sourceControllers(), reg, contract.BuildOptions{
		ValidationMode: "jsonschema-runtime",
	})
	if err != nil {
		t.Fatalf("BuildManifest failed: %v", err)
	}

	set := contract.EmitValidators(m, reg, contract.NativeProvider{}, nil)

	store := NewStore()
	cr := contract.NewControllerRegistry()
	store.Register(cr)

	routes, err := contract.BindRoutes(cr, m)
	if err != nil {
		t.Fatalf("BindRoutes failed: %v", err)
	}

	mux, err := serve.NewMux(routes, serve.Options{Validators: set, BearerSecret: testSecret})
	if err != nil {
		t.Fatalf("NewMux failed: %v", err)
	}

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, store
}

func createPet(t *testing.T, srv *httptest.Server, body string) Pet {
	t.Helper()
	resp, err := http.Post(srv.URL+"/pets", "application/json", bytes.NewBufferString(body))
	if err != nil {
		t.Fatalf("POST /pets failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var p Pet
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		t.Fatalf("failed to decode pet: %v", err)
	}
	return p
}

func decodeError(t *testing.T, resp *http.Response) serve.ErrorResponse {
	t.Helper()
	var envelope serve.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("failed to decode error envelope: %v", err)
	}
	return envelope
}

func TestCreateAndGet(t *testing.T) {
	srv, _ := newTestServer(t)

	created := createPet(t, srv, `{"name":"rex","tag":"dog"}`)
	if created.ID == uuid.Nil {
		t.Error("created pet has no id")
	}
	if created.Name != "rex" {
		t.Errorf("expected name 'rex', got %q", created.Name)
	}
	if created.Tag == nil || *created.Tag != "dog" {
		t.Errorf("expected tag 'dog', got %v", created.Tag)
	}

	resp, err := http.Get(srv.URL + "/pets/" + created.ID.String())
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var got Pet
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode pet: %v", err)
	}
	if got.ID != created.ID {
		t.Errorf("expected id %s, got %s", created.ID, got.ID)
	}
}

func TestCreateValidation(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Post(srv.URL+"/pets", "application/json", bytes.NewBufferString(`{}`))
	if err != nil {
		t.Fatalf("POST failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	envelope := decodeError(t, resp)
	if envelope.Error.Code != "validation_failed" {
		t.Errorf("expected code validation_failed, got %q", envelope.Error.Code)
	}
	if len(envelope.Error.Fields) == 0 {
		t.Error("expected field errors in the envelope")
	}
}

func TestList(t *testing.T) {
	srv, _ := newTestServer(t)

	createPet(t, srv, `{"name":"rex","tag":"dog"}`)
	createPet(t, srv, `{"name":"whiskers","tag":"cat"}`)
	createPet(t, srv, `{"name":"rover","tag":"dog"}`)

	tests := []struct {
		name  string
		query string
		want  int
	}{
		{"all pets", "", 3},
		{"filter by tag", "?tag=dog", 2},
		{"limit", "?limit=1", 1},
		{"tag and limit", "?tag=dog&limit=1", 1},
		{"no match", "?tag=bird", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Get(srv.URL + "/pets" + tt.query)
			if err != nil {
				t.Fatalf("GET failed: %v", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("expected 200, got %d", resp.StatusCode)
			}
			var pets []Pet
			if err := json.NewDecoder(resp.Body).Decode(&pets); err != nil {
				t.Fatalf("failed to decode list: %v", err)
			}
			if len(pets) != tt.want {
				t.Errorf("expected %d pets, got %d", tt.want, len(pets))
			}
		})
	}
}

func TestListEmptyIsArray(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/pets")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatalf("failed to read body: %v", err)
	}
	if got := string(bytes.TrimSpace(buf.Bytes())); got != "[]" {
		t.Errorf("expected empty list to render as [], got %q", got)
	}
}

func TestGetNotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/pets/" + uuid.NewString())
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	envelope := decodeError(t, resp)
	if envelope.Error.Code != "not_found" {
		t.Errorf("expected code not_found, got %q", envelope.Error.Code)
	}
}

func TestGetInvalidID(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/pets/not-a-uuid")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	envelope := decodeError(t, resp)
	if envelope.Error.Code != "bad_request" {
		t.Errorf("expected code bad_request, got %q", envelope.Error.Code)
	}
}

func TestUpdate(t *testing.T) {
	srv, _ := newTestServer(t)
	created := createPet(t, srv, `{"name":"rex"}`)

	req, err := http.NewRequest(http.MethodPut, srv.URL+"/pets/"+created.ID.String(),
		bytes.NewBufferString(`{"name":"rex ii","tag":"dog"}`))
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("PUT failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var updated Pet
	if err := json.NewDecoder(resp.Body).Decode(&updated); err != nil {
		t.Fatalf("failed to decode pet: %v", err)
	}
	if updated.Name != "rex ii" {
		t.Errorf("expected updated name, got %q", updated.Name)
	}
	if updated.ID != created.ID {
		t.Errorf("update changed the id: %s -> %s", created.ID, updated.ID)
	}
}

func TestDeleteRequiresBearer(t *testing.T) {
	srv, _ := newTestServer(t)
	created := createPet(t, srv, `{"name":"rex"}`)
	url := srv.URL + "/pets/" + created.ID.String()

	// No token.
	req, _ := http.NewRequest(http.MethodDelete, url, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}

	// Valid token.
	token, err := serve.IssueToken(testSecret, "tester", time.Hour)
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}
	req, _ = http.NewRequest(http.MethodDelete, url, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204 with token, got %d", resp.StatusCode)
	}

	// Gone afterwards.
	getResp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	getResp.Body.Close()
	if getResp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", getResp.StatusCode)
	}
}

func TestBindDriftDetection(t *testing.T) {
	reg := contract.NewRegistry()
	m, err := contract.BuildManifest(sourceControllers(), reg, contract.BuildOptions{})
	if err != nil {
		t.Fatalf("BuildManifest failed: %v", err)
	}

	// A controller whose base path moved since the manifest was built.
	store := NewStore()
	c := store.Controller()
	c.BasePath = "/animals"
	cr := contract.NewControllerRegistry()
	cr.Register(c)

	_, err = contract.BindRoutes(cr, m)
	if err == nil {
		t.Fatal("expected drift error, got nil")
	}
	var cfgErr *contract.RouteConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected RouteConfigError, got %T", err)
	}
	if !strings.Contains(cfgErr.Message, "drifted") {
		t.Errorf("expected a drift message, got %q", cfgErr.Message)
	}
}
