package server

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ndlib/quotedoc/links"
	"github.com/ndlib/quotedoc/quote"
	"github.com/ndlib/quotedoc/store"
)

func TestQuoteCRUD(t *testing.T) {
	checkStatus(t, "GET", "/quote/crud1", 404)

	body := uploadjson(t, "PUT", "/quote/crud1", `{
		"Owner": "acme",
		"Intro": "hello",
		"Items": [
			{"Type": "labor", "Description": "dig hole", "Quantity": 2, "UnitCents": 5000, "PriceCents": 10000}
		],
		"TotalCents": 10000
	}`, 200)
	var q quote.Quote
	if err := json.Unmarshal([]byte(body), &q); err != nil {
		t.Fatal(err)
	}
	if q.ID != "crud1" {
		t.Errorf("Received id %q, expected %q", q.ID, "crud1")
	}
	if len(q.Items) != 1 {
		t.Fatalf("Received %d items, expected 1", len(q.Items))
	}
	if q.Items[0].ID == "" {
		t.Errorf("new item was not assigned an id")
	}
	if q.Items[0].PhotoPrefix == "" {
		t.Errorf("new item was not assigned a photo prefix")
	}
	if q.Created.IsZero() {
		t.Errorf("Created was not set")
	}

	text := getbody(t, "GET", "/quote/crud1", 200)
	if !strings.Contains(text, "dig hole") {
		t.Errorf("Received %#v, expected it to contain %#v", text, "dig hole")
	}

	// an update must not let the body overwrite the server-owned fields
	itemid := q.Items[0].ID
	prefix := q.Items[0].PhotoPrefix
	body = uploadjson(t, "PUT", "/quote/crud1", `{
		"Owner": "evil",
		"Intro": "hello again",
		"Items": [
			{"ID": "`+itemid+`", "Type": "labor", "Description": "dig hole", "Quantity": 2, "UnitCents": 5000, "PriceCents": 10000, "PhotoPrefix": "somewhere/else/"}
		],
		"TotalCents": 10000
	}`, 200)
	if err := json.Unmarshal([]byte(body), &q); err != nil {
		t.Fatal(err)
	}
	if q.Owner != "acme" {
		t.Errorf("Received owner %q, expected %q", q.Owner, "acme")
	}
	if q.Items[0].PhotoPrefix != prefix {
		t.Errorf("Received prefix %q, expected %q", q.Items[0].PhotoPrefix, prefix)
	}

	checkStatus(t, "DELETE", "/quote/crud1", 200)
	checkStatus(t, "GET", "/quote/crud1", 404)
}

func TestUpdateDoesNotTrustItemIdentity(t *testing.T) {
	victim := saveTestQuote(t, "victim1", "acme")
	foreign := victim.Items[0].PhotoPrefix
	key := quote.PhotoKey(foreign, "keep.jpg")
	if err := testSrv.Objects.Put(key, []byte("jpeg"), "image/jpeg"); err != nil {
		t.Fatal(err)
	}

	// a create naming an unknown item id and another quote's prefix.
	// both must be replaced with server-assigned values
	body := uploadjson(t, "PUT", "/quote/intruder1", `{
		"Owner": "mallory",
		"Items": [
			{"ID": "deadbeefdeadbeef", "Description": "x", "PhotoPrefix": "`+foreign+`"}
		]
	}`, 200)
	var q quote.Quote
	if err := json.Unmarshal([]byte(body), &q); err != nil {
		t.Fatal(err)
	}
	if q.Items[0].ID == "deadbeefdeadbeef" {
		t.Errorf("body-supplied item id was adopted")
	}
	if q.Items[0].PhotoPrefix == foreign {
		t.Errorf("body-supplied photo prefix was adopted")
	}

	// same through an update of the now-existing quote
	body = uploadjson(t, "PUT", "/quote/intruder1", `{
		"Items": [
			{"ID": "ffffffffffffffff", "Description": "y", "PhotoPrefix": "`+foreign+`"}
		]
	}`, 200)
	if err := json.Unmarshal([]byte(body), &q); err != nil {
		t.Fatal(err)
	}
	if q.Items[0].ID == "ffffffffffffffff" || q.Items[0].PhotoPrefix == foreign {
		t.Errorf("unknown item id kept its body-supplied identity: %+v", q.Items[0])
	}

	// removing every item cleans up only this quote's prefixes
	uploadjson(t, "PUT", "/quote/intruder1", `{"Items": []}`, 200)
	if _, err := testSrv.Objects.Stat(key); err != nil {
		t.Errorf("another quote's photo was deleted: %v", err)
	}
}

func TestDocumentRoute(t *testing.T) {
	saveTestQuote(t, "doc1", "acme")

	checkStatus(t, "GET", "/quote/nosuchquote/document/print", 404)

	// first request renders, second is a cache hit
	r1 := getdocument(t, "/quote/doc1/document/print")
	if r1.URL == "" {
		t.Errorf("received empty url")
	}
	if r1.Cached {
		t.Errorf("first request was a cache hit")
	}
	if !strings.HasPrefix(r1.ShortURL, "/d/") {
		t.Errorf("Received short url %q, expected a /d/ path", r1.ShortURL)
	}
	r2 := getdocument(t, "/quote/doc1/document/print")
	if !r2.Cached {
		t.Errorf("second request was not a cache hit")
	}
	if r2.ShortURL != r1.ShortURL {
		t.Errorf("short url changed between requests: %q then %q", r1.ShortURL, r2.ShortURL)
	}

	// force always rerenders
	r3 := getdocument(t, "/quote/doc1/document/print?force=true")
	if r3.Cached {
		t.Errorf("forced request was a cache hit")
	}

	// variants are cached independently
	r4 := getdocument(t, "/quote/doc1/document/internal")
	if r4.Cached {
		t.Errorf("first request for a new variant was a cache hit")
	}
	if r4.ShortURL == r1.ShortURL {
		t.Errorf("variants share the short url %q", r4.ShortURL)
	}
}

func TestResolveRoute(t *testing.T) {
	saveTestQuote(t, "doc2", "acme")
	r := getdocument(t, "/quote/doc2/document/print")
	slugpath := r.ShortURL
	if !strings.HasPrefix(slugpath, "/d/") {
		t.Fatalf("Received short url %q, expected a /d/ path", slugpath)
	}

	resp := checkRoute(t, "GET", slugpath, 302)
	if resp != nil {
		location := resp.Header.Get("Location")
		resp.Body.Close()
		if location == "" {
			t.Errorf("redirect had no Location header")
		}
	}

	checkStatus(t, "GET", "/d/zzzzzzz", 404)
}

func TestPhotoRoutes(t *testing.T) {
	q := saveTestQuote(t, "photo1", "acme")
	itemid := q.Items[0].ID

	checkStatus(t, "POST", "/quote/photo1/item/nosuchitem/photo", 404)

	body := uploadjson(t, "POST", "/quote/photo1/item/"+itemid+"/photo?name=front.jpg", "jpeg bytes", 200)
	var uploaded map[string]string
	if err := json.Unmarshal([]byte(body), &uploaded); err != nil {
		t.Fatal(err)
	}
	key := uploaded["key"]
	if key == "" {
		t.Fatalf("upload returned no key")
	}
	if _, err := testSrv.Objects.Stat(key); err != nil {
		t.Errorf("uploaded photo %s is not in the store: %s", key, err)
	}

	text := getbody(t, "GET", "/quote/photo1/item/"+itemid+"/photo", 200)
	if !strings.Contains(text, key) {
		t.Errorf("Received %#v, expected it to contain %#v", text, key)
	}

	// removing the item through an update removes its photos
	uploadjson(t, "PUT", "/quote/photo1", `{"Intro": "intro", "Items": [], "TotalCents": 0}`, 200)
	if _, err := testSrv.Objects.Stat(key); err != store.ErrNotExist {
		t.Errorf("after item removal Stat returned %v, expected ErrNotExist", err)
	}
}

func TestDeleteCleansUp(t *testing.T) {
	q := saveTestQuote(t, "del1", "acme")
	itemid := q.Items[0].ID
	body := uploadjson(t, "POST", "/quote/del1/item/"+itemid+"/photo", "pixels", 200)
	var uploaded map[string]string
	if err := json.Unmarshal([]byte(body), &uploaded); err != nil {
		t.Fatal(err)
	}
	getdocument(t, "/quote/del1/document/print")

	text := getbody(t, "DELETE", "/quote/del1", 200)
	var counts map[string]int
	if err := json.Unmarshal([]byte(text), &counts); err != nil {
		t.Fatal(err)
	}
	if counts["photosDeleted"] != 1 {
		t.Errorf("Received %d photos deleted, expected 1", counts["photosDeleted"])
	}
	if counts["documentsDeleted"] != 1 {
		t.Errorf("Received %d documents deleted, expected 1", counts["documentsDeleted"])
	}
	if counts["linksDeleted"] != 1 {
		t.Errorf("Received %d links deleted, expected 1", counts["linksDeleted"])
	}
	if _, err := testSrv.Objects.Stat(uploaded["key"]); err != store.ErrNotExist {
		t.Errorf("after deletion Stat returned %v, expected ErrNotExist", err)
	}
}

func TestTokenAuthorization(t *testing.T) {
	validator, err := NewListDecoderString(`
# test users
reader  read   read-token
writer  write  write-token
`)
	if err != nil {
		t.Fatal(err)
	}
	s := &RESTServer{
		Records:   quote.NewMemoryStore(),
		Render:    stubRenderer{},
		Objects:   store.NewMemory(),
		Validator: validator,
	}
	s.initPieces(links.NewMemoryLinks())
	authServer := httptest.NewServer(s.addRoutes())
	defer authServer.Close()

	var table = []struct {
		verb   string
		route  string
		token  string
		status int
	}{
		{"GET", "/", "", 200}, // open route
		{"GET", "/quote/abc", "", 401},
		{"GET", "/quote/abc", "bad-token", 401},
		{"GET", "/quote/abc", "read-token", 404}, // past authz, quote missing
		{"PUT", "/quote/abc", "read-token", 401},
		{"PUT", "/quote/abc", "write-token", 400}, // past authz, empty body
	}

	for _, row := range table {
		req, err := http.NewRequest(row.verb, authServer.URL+row.route, nil)
		if err != nil {
			t.Fatal(err)
		}
		if row.token != "" {
			req.Header.Set("X-Api-Key", row.token)
		}
		resp, err := noredirect.Do(req)
		if err != nil {
			t.Fatal(row.route, err)
		}
		resp.Body.Close()
		if resp.StatusCode != row.status {
			t.Errorf("%s %s with token %q: Expected status %d and received %d",
				row.verb, row.route, row.token, row.status, resp.StatusCode)
		}
	}
}

// saveTestQuote puts a quote with one fully set up item directly into the
// record store, bypassing the API.
func saveTestQuote(t *testing.T, id, owner string) *quote.Quote {
	created := time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)
	itemid := quote.NewItemID()
	q := &quote.Quote{
		ID:      id,
		Owner:   owner,
		Created: created,
		Intro:   "An introduction",
		Items: []quote.Item{
			{
				ID:          itemid,
				Type:        "labor",
				Description: "install widget",
				Quantity:    1,
				UnitCents:   2500,
				PriceCents:  2500,
				PhotoPrefix: quote.PhotoPrefixFor(created, owner, id, itemid),
			},
		},
		TotalCents: 2500,
	}
	err := testSrv.Records.Save(q)
	if err != nil {
		t.Fatal(err)
	}
	return q
}

func getdocument(t *testing.T, route string) DocumentResponse {
	var result DocumentResponse
	text := getbody(t, "GET", route, 200)
	err := json.Unmarshal([]byte(text), &result)
	if err != nil {
		t.Fatal(route, err)
	}
	return result
}

func uploadjson(t *testing.T, verb, route string, body string, expstatus int) string {
	req, err := http.NewRequest(verb, testServer.URL+route, strings.NewReader(body))
	if err != nil {
		t.Fatal("Problem creating request", err)
	}
	resp, err := noredirect.Do(req)
	if err != nil {
		t.Fatal(route, err)
	}
	defer resp.Body.Close()
	text, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(route, err)
	}
	if resp.StatusCode != expstatus {
		t.Errorf("%s: Expected status %d and received %d (%s)",
			route,
			expstatus,
			resp.StatusCode,
			text)
		return ""
	}
	return string(text)
}

func getbody(t *testing.T, verb, route string, expstatus int) string {
	resp := checkRoute(t, verb, route, expstatus)
	if resp != nil {
		body, err := ioutil.ReadAll(resp.Body)
		if err != nil {
			t.Fatal(route, err)
		}
		resp.Body.Close()
		return string(body)
	}
	return ""
}

func checkStatus(t *testing.T, verb, route string, expstatus int) {
	resp := checkRoute(t, verb, route, expstatus)
	if resp != nil {
		resp.Body.Close()
	}
}

func checkRoute(t *testing.T, verb, route string, expstatus int) *http.Response {
	req, err := http.NewRequest(verb, testServer.URL+route, nil)
	if err != nil {
		t.Fatal("Problem creating request", err)
	}
	resp, err := noredirect.Do(req)
	if err != nil {
		t.Fatal(route, err)
		return nil
	}
	if resp.StatusCode != expstatus {
		t.Errorf("%s: Expected status %d and received %d",
			route,
			expstatus,
			resp.StatusCode)
		resp.Body.Close()
		return nil
	}
	return resp
}

// stubRenderer makes a deterministic fake document from the content fields.
type stubRenderer struct{}

func (_ stubRenderer) Render(q *quote.Quote, variant string) ([]byte, string, error) {
	doc := fmt.Sprintf("document %s %s %s", q.ID, variant, q.Intro)
	return []byte(doc), "application/pdf", nil
}

var (
	testSrv    *RESTServer
	testServer *httptest.Server

	// The resolve route redirects to presigned URLs with schemes a real
	// client cannot follow, so never follow redirects in tests.
	noredirect = &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
)

func init() {
	testSrv = &RESTServer{
		Records:   quote.NewMemoryStore(),
		Render:    stubRenderer{},
		Objects:   store.NewMemory(),
		Validator: NewNobodyDecoder(),
	}
	testSrv.initPieces(links.NewMemoryLinks())
	testServer = httptest.NewServer(testSrv.addRoutes())
}
