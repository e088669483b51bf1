package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/ndlib/quotedoc/quote"
	"github.com/ndlib/quotedoc/server"
)

// config mirrors the TOML configuration file. Flags override the file.
type config struct {
	Port        string
	PProfPort   string
	BaseURL     string
	Storage     string // object store location, see parselocation
	Mysql       string // DSN for the link registry, empty means use QL
	QlPath      string // QL file path, or "memory"
	Tokenfile   string
	URLLifetime string // e.g. "1h". Empty uses the default.
}

func main() {
	var (
		configFile = flag.String("config-file", "", "location of the configuration file")
		port       = flag.String("port", "", "port to listen on")
		pprofPort  = flag.String("pprof-port", "", "port for the pprof server, empty disables it")
		storage    = flag.String("storage", "", "location of the object store")
		tokenfile  = flag.String("tokenfile", "", "API key token file. No auth if empty")
	)
	flag.Parse()

	var c config
	if *configFile != "" {
		log.Println("Reading config file", *configFile)
		_, err := toml.DecodeFile(*configFile, &c)
		if err != nil {
			log.Fatalln(err)
		}
	}
	if *port != "" {
		c.Port = *port
	}
	if *pprofPort != "" {
		c.PProfPort = *pprofPort
	}
	if *storage != "" {
		c.Storage = *storage
	}
	if *tokenfile != "" {
		c.Tokenfile = *tokenfile
	}

	var validator server.TokenDecoder
	if c.Tokenfile != "" {
		var err error
		validator, err = server.NewListDecoderFile(c.Tokenfile)
		if err != nil {
			log.Fatalln("tokenfile:", err)
		}
	}

	var ttl time.Duration
	if c.URLLifetime != "" {
		var err error
		ttl, err = time.ParseDuration(c.URLLifetime)
		if err != nil {
			log.Fatalln("URLLifetime:", err)
		}
	}

	objects := parselocation(c.Storage)
	if objects == nil {
		os.Exit(1)
	}

	s := &server.RESTServer{
		PortNumber: c.Port,
		PProfPort:  c.PProfPort,
		BaseURL:    c.BaseURL,
		Records:    quote.NewMemoryStore(),
		Render:     textRenderer{},
		Objects:    objects,
		MySQL:      c.Mysql,
		QlPath:     c.QlPath,
		TTL:        ttl,
		Validator:  validator,
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		log.Println("Received interrupt. Stopping.")
		s.Stop()
	}()

	err := s.Run()
	if err != nil {
		log.Fatalln(err)
	}
}
