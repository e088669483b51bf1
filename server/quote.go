package server

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/ndlib/quotedoc/quote"
)

// QuoteHandler handles GET /quote/:id and returns the record as JSON.
func (s *RESTServer) QuoteHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	q, err := s.Records.Quote(ps.ByName("id"))
	if err != nil {
		w.WriteHeader(404)
		fmt.Fprintln(w, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	json.NewEncoder(w).Encode(q)
}

// UpdateQuoteHandler handles PUT /quote/:id. The body is the full quote as
// JSON. This endpoint does no field validation; its jobs are to keep the
// server-owned pieces of the record intact (item IDs, photo prefixes and
// photo lists, cache metadata) and to trigger photo cleanup for any items
// the update removed.
func (s *RESTServer) UpdateQuoteHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")

	var q quote.Quote
	err := json.NewDecoder(r.Body).Decode(&q)
	if err != nil {
		w.WriteHeader(400)
		fmt.Fprintln(w, err.Error())
		return
	}
	q.ID = id

	old, err := s.Records.Quote(id)
	if err != nil && err != quote.ErrNoQuote {
		w.WriteHeader(500)
		fmt.Fprintln(w, err.Error())
		return
	}

	now := time.Now()
	if old != nil {
		// these fields belong to the server, not the request body
		q.Owner = old.Owner
		q.Created = old.Created
		q.Documents = old.Documents
	} else {
		q.Created = now
	}
	q.Updated = now

	for i := range q.Items {
		item := &q.Items[i]
		var prev *quote.Item
		if old != nil && item.ID != "" {
			prev = old.Item(item.ID)
		}
		if prev == nil {
			// a new item. give it its identity and its photo home,
			// both fixed for the rest of its life. An ID the stored
			// quote does not know is replaced, never adopted: a
			// body-supplied ID or prefix could point into another
			// quote's photos, and item removal deletes by prefix
			item.ID = quote.NewItemID()
			item.PhotoPrefix = quote.PhotoPrefixFor(now, q.Owner, q.ID, item.ID)
			item.Photos = nil
			continue
		}
		item.PhotoPrefix = prev.PhotoPrefix
		item.Photos = prev.Photos
	}

	err = s.Records.Save(&q)
	if err != nil {
		w.WriteHeader(500)
		fmt.Fprintln(w, err.Error())
		return
	}

	// the record change is already durable; photo cleanup for removed
	// items is best effort and never fails the request
	if old != nil {
		s.lifecycle.ItemsChanged(id, old.Items, q.Items)
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	json.NewEncoder(w).Encode(&q)
}

// DeleteQuoteHandler handles DELETE /quote/:id. It removes every blob and
// link derived from the quote and then the record itself. Cleanup failures
// are reported in the response body but do not fail the deletion.
func (s *RESTServer) DeleteQuoteHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")
	q, err := s.Records.Quote(id)
	if err != nil {
		w.WriteHeader(404)
		fmt.Fprintln(w, err.Error())
		return
	}

	report := s.lifecycle.QuoteDeleted(q)

	err = s.Records.Delete(id)
	if err != nil {
		w.WriteHeader(500)
		fmt.Fprintln(w, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	json.NewEncoder(w).Encode(map[string]int{
		"photosDeleted":    report.PhotosDeleted,
		"documentsDeleted": report.DocumentsDeleted,
		"linksDeleted":     report.LinksDeleted,
	})
}

// UploadPhotoHandler handles POST /quote/:id/item/:itemid/photo. The request
// body is the photo bytes; the optional name query parameter names the file
// inside the item's prefix. The stored key is returned.
func (s *RESTServer) UploadPhotoHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")
	q, err := s.Records.Quote(id)
	if err != nil {
		w.WriteHeader(404)
		fmt.Fprintln(w, err.Error())
		return
	}
	item := q.Item(ps.ByName("itemid"))
	if item == nil {
		w.WriteHeader(404)
		fmt.Fprintln(w, "no item with that id")
		return
	}

	data, err := ioutil.ReadAll(r.Body)
	if err != nil {
		w.WriteHeader(400)
		fmt.Fprintln(w, err.Error())
		return
	}

	name := r.FormValue("name")
	if name == "" {
		name = fmt.Sprintf("photo-%03d", len(item.Photos)+1)
	}
	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	if item.PhotoPrefix == "" {
		// item predates the prefix scheme or was created out of band
		item.PhotoPrefix = quote.PhotoPrefixFor(time.Now(), q.Owner, q.ID, item.ID)
	}
	key := quote.PhotoKey(item.PhotoPrefix, name)
	err = s.Objects.Put(key, data, contentType)
	if err != nil {
		w.WriteHeader(500)
		fmt.Fprintln(w, err.Error())
		return
	}

	item.Photos = append(item.Photos, key)
	err = s.Records.Save(q)
	if err != nil {
		w.WriteHeader(500)
		fmt.Fprintln(w, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	json.NewEncoder(w).Encode(map[string]string{"key": key})
}

// ListPhotosHandler handles GET /quote/:id/item/:itemid/photo and lists the
// keys currently stored under the item's prefix.
func (s *RESTServer) ListPhotosHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	q, err := s.Records.Quote(ps.ByName("id"))
	if err != nil {
		w.WriteHeader(404)
		fmt.Fprintln(w, err.Error())
		return
	}
	item := q.Item(ps.ByName("itemid"))
	if item == nil {
		w.WriteHeader(404)
		fmt.Fprintln(w, "no item with that id")
		return
	}
	if item.PhotoPrefix == "" {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		json.NewEncoder(w).Encode([]string{})
		return
	}
	keys, err := s.Objects.ListPrefix(item.PhotoPrefix)
	if err != nil {
		w.WriteHeader(500)
		fmt.Fprintln(w, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	json.NewEncoder(w).Encode(keys)
}
