package server

import (
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof" // for pprof server
	"time"

	"github.com/facebookgo/httpdown"
	"github.com/julienschmidt/httprouter"

	"github.com/ndlib/quotedoc/doccache"
	"github.com/ndlib/quotedoc/links"
	"github.com/ndlib/quotedoc/quote"
	"github.com/ndlib/quotedoc/store"
)

// Version is the version of the server, set at build time.
var Version = "development"

// A QuoteStore is the persistence the REST layer needs: the read/metadata
// interface the cache uses, plus whole-record save and delete for the
// update and delete endpoints. Field validation and workflow rules belong to
// the application that embeds this server, not here.
type QuoteStore interface {
	quote.RecordStore
	Save(q *quote.Quote) error
	Delete(id string) error
}

// RESTServer holds the configuration for a quotedoc REST API server.
//
// Set all the public fields and then call Run. Run will listen on the given
// port and handle requests. Do not change any fields after calling Run.
type RESTServer struct {
	// Port number to listen on. Defaults to 14000.
	PortNumber string
	PProfPort  string

	// BaseURL is the externally visible prefix used when building short
	// link URLs, e.g. "https://quotes.example.com". May be empty, in which
	// case short URLs are returned as absolute paths.
	BaseURL string

	// Records is the quote persistence. Run will panic if it is nil.
	Records QuoteStore

	// Render turns quotes into documents. Run will panic if it is nil.
	Render quote.Renderer

	// Objects is the blob store for documents and photos. Run will panic
	// if it is nil.
	Objects store.Store

	// Pass in a dial command to use a MySQL server for the link registry.
	// Otherwise the embedded QL database at QlPath is used. The special
	// QlPath value "memory" (also the default) keeps the registry in the
	// server's memory, which is useful for testing.
	MySQL  string
	QlPath string

	// TTL is the lifetime of presigned URLs handed out by the API.
	// Defaults to links.DefaultTTL.
	TTL time.Duration

	// Validator does authentication by validating any user tokens
	// presented to the API. If this is nil then no authentication will be
	// done.
	Validator TokenDecoder

	docs      *doccache.Controller
	lifecycle *doccache.Lifecycle
	registry  *links.Registry
	server    httpdown.Server // used to close our listening socket
}

// Run initializes the link registry database and the cache controller, then
// blocks listening for and handling http requests.
func (s *RESTServer) Run() error {
	log.Println("==========")
	log.Printf("Starting quotedoc server version %s", Version)

	if s.Records == nil {
		panic("No quote store given. Records is nil.")
	}
	if s.Render == nil {
		panic("No renderer given. Render is nil.")
	}
	if s.Objects == nil {
		panic("No object store given. Objects is nil.")
	}
	if s.Validator == nil {
		log.Println("No Validator given")
		s.Validator = NewNobodyDecoder()
	}
	if s.PortNumber == "" {
		s.PortNumber = "14000"
	}

	// init link registry database
	var db links.LinkDB
	var err error
	if s.MySQL != "" {
		log.Printf("Using MySQL")
		db, err = links.NewMysqlLinks(s.MySQL)
	} else {
		path := s.QlPath
		if path == "" {
			path = "memory"
		}
		log.Printf("Using internal database at %s", path)
		db, err = links.NewQlLinks(path)
	}
	if db == nil || err != nil {
		panic("problem setting up database")
	}

	s.initPieces(db)

	// for pprof
	if s.PProfPort != "" {
		log.Println("Starting PProf on port", s.PProfPort)
		go func() {
			log.Println(http.ListenAndServe(":"+s.PProfPort, nil))
		}()
	}
	log.Println("Listening on", s.PortNumber)

	h := httpdown.HTTP{}
	s.server, err = h.ListenAndServe(&http.Server{
		Addr:    ":" + s.PortNumber,
		Handler: s.addRoutes(),
	})
	if err != nil {
		log.Println(err)
		return err
	}
	return s.server.Wait()
}

// initPieces wires the core components together. Split out of Run so tests
// can build a server without opening a socket.
func (s *RESTServer) initPieces(db links.LinkDB) {
	s.registry = &links.Registry{
		DB:    db,
		Store: s.Objects,
		TTL:   s.TTL,
	}
	s.docs = &doccache.Controller{
		Records: s.Records,
		Store:   s.Objects,
		Render:  s.Render,
		Links:   s.registry,
		TTL:     s.TTL,
	}
	s.lifecycle = &doccache.Lifecycle{
		Store: s.Objects,
		Links: s.registry,
	}
}

// Stop will stop the server and return when all the server goroutines have
// exited and the socket closed.
func (s *RESTServer) Stop() error {
	return s.server.Stop()
}

func (s *RESTServer) addRoutes() http.Handler {
	var routes = []struct {
		method  string
		route   string
		role    Role // RoleUnknown means no API key is needed to access
		handler httprouter.Handle
	}{
		{"GET", "/quote/:id", RoleRead, s.QuoteHandler},
		{"PUT", "/quote/:id", RoleWrite, s.UpdateQuoteHandler},
		{"DELETE", "/quote/:id", RoleWrite, s.DeleteQuoteHandler},

		// document generation and the stable short link
		{"GET", "/quote/:id/document/:variant", RoleRead, s.DocumentHandler},
		{"HEAD", "/quote/:id/document/:variant", RoleRead, s.DocumentHandler},
		{"GET", "/d/:slug", RoleUnknown, s.ResolveHandler},

		// item photos
		{"POST", "/quote/:id/item/:itemid/photo", RoleWrite, s.UploadPhotoHandler},
		{"GET", "/quote/:id/item/:itemid/photo", RoleRead, s.ListPhotosHandler},

		// other
		{"GET", "/", RoleUnknown, WelcomeHandler},
		{"GET", "/debug/vars", RoleUnknown, VarHandler}, // standard route for expvars data
	}

	r := httprouter.New()
	for _, route := range routes {
		r.Handle(route.method,
			route.route,
			logWrapper(s.authzWrapper(route.handler, route.role)))
	}
	return r
}

// General route handlers and convenience functions

// VarHandler adapts the expvar default handler to the httprouter three
// parameter handler.
func VarHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	// this code is taken from the stdlib expvar package.
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	fmt.Fprintf(w, "{\n")
	first := true
	expvar.Do(func(kv expvar.KeyValue) {
		if !first {
			fmt.Fprintf(w, ",\n")
		}
		first = false
		fmt.Fprintf(w, "%q: %s", kv.Key, kv.Value)
	})
	fmt.Fprintf(w, "\n}\n")
}

// WelcomeHandler identifies the server.
func WelcomeHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	fmt.Fprintf(w, "quotedoc %s\n", Version)
}

// authzWrapper returns a Handler which will first verify the user token as
// having at least the given Role. The user name is added as a parameter
// "username".
func (s *RESTServer) authzWrapper(handler httprouter.Handle, leastRole Role) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		token := r.Header.Get("X-Api-Key")
		user, role, err := s.Validator.TokenDecode(token)
		if err != nil {
			w.WriteHeader(500)
			fmt.Fprintln(w, err.Error())
			return
		}

		// is role valid?
		if role < leastRole {
			w.WriteHeader(401)
			fmt.Fprintln(w, "Forbidden")
			return
		}

		// remove any previous username
		for i := range ps {
			if ps[i].Key == "username" {
				ps[i].Value = user
				goto out
			}
		}
		// add a new username if none found
		ps = append(ps, httprouter.Param{Key: "username", Value: user})
	out:
		handler(w, r, ps)
	}
}

// logWrapper takes a handler and returns a handler which does the same thing,
// after first logging the request URL.
func logWrapper(handler httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		log.Println(r.Method, r.URL)
		handler(w, r, ps)
	}
}
