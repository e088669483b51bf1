package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/ndlib/quotedoc/links"
	"github.com/ndlib/quotedoc/quote"
)

// DocumentResponse is the JSON body returned by DocumentHandler.
type DocumentResponse struct {
	URL        string `json:"url"`
	ShortURL   string `json:"shortUrl,omitempty"`
	TTLSeconds int    `json:"ttlSeconds"`
	Cached     bool   `json:"cached"`
}

// DocumentHandler handles requests to GET /quote/:id/document/:variant.
// It returns a presigned URL for the rendered document, generating the
// document first unless the cached copy is still valid. Pass force=true to
// regenerate unconditionally.
func (s *RESTServer) DocumentHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")
	variant := ps.ByName("variant")
	force := r.FormValue("force") == "true"

	result, err := s.docs.Document(id, variant, force)
	if err == quote.ErrNoQuote {
		w.WriteHeader(404)
		fmt.Fprintln(w, err.Error())
		return
	}
	if err != nil {
		w.WriteHeader(500)
		fmt.Fprintln(w, err.Error())
		return
	}

	resp := DocumentResponse{
		URL:        result.URL,
		TTLSeconds: result.TTLSeconds,
		Cached:     result.Cached,
	}
	if result.Slug != "" {
		resp.ShortURL = s.BaseURL + "/d/" + result.Slug
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	json.NewEncoder(w).Encode(resp)
}

// ResolveHandler handles requests to GET /d/:slug by redirecting to a fresh
// presigned URL for the document the short link points at. The document is
// never regenerated on this path; an old link costs one signature, not a
// render.
func (s *RESTServer) ResolveHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	url, err := s.registry.Resolve(ps.ByName("slug"))
	if err == links.ErrNoLink {
		w.WriteHeader(404)
		fmt.Fprintln(w, err.Error())
		return
	}
	if err != nil {
		w.WriteHeader(500)
		fmt.Fprintln(w, err.Error())
		return
	}
	w.Header().Set("Location", url)
	w.WriteHeader(http.StatusFound)
}
