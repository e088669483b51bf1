// The qdclient tool is a small command line client for a quotedoc server.
// It is mostly useful for poking at a server while developing.
package main

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/antonholmquist/jason"
)

var (
	server = flag.String("server", "localhost:14000", "quotedoc server to use")
	token  = flag.String("token", "", "API key to send")
	force  = flag.Bool("force", false, "regenerate the document even if cached")

	usage = `
qdclient <command> <arguments>

Possible commands:

    get <quote id>
    document <quote id> <variant>
    resolve <slug>
    delete <quote id>
`
)

func main() {
	flag.Parse()
	args := flag.Args()

	if len(args) == 0 {
		fmt.Println(usage)
		return
	}

	var err error
	switch args[0] {
	case "get":
		if len(args) != 2 {
			fmt.Println("Usage: qdclient get <quote id>")
			return
		}
		err = doGet(args[1])
	case "document":
		if len(args) != 3 {
			fmt.Println("Usage: qdclient document <quote id> <variant>")
			return
		}
		err = doDocument(args[1], args[2])
	case "resolve":
		if len(args) != 2 {
			fmt.Println("Usage: qdclient resolve <slug>")
			return
		}
		err = doResolve(args[1])
	case "delete":
		if len(args) != 2 {
			fmt.Println("Usage: qdclient delete <quote id>")
			return
		}
		err = doDelete(args[1])
	default:
		fmt.Println(usage)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func doGet(id string) error {
	body, err := request("GET", "/quote/"+id)
	if err != nil {
		return err
	}
	defer body.Close()
	io.Copy(os.Stdout, body)
	return nil
}

func doDocument(id, variant string) error {
	route := "/quote/" + id + "/document/" + variant
	if *force {
		route += "?force=true"
	}
	body, err := request("GET", route)
	if err != nil {
		return err
	}
	defer body.Close()
	v, err := jason.NewObjectFromReader(body)
	if err != nil {
		return err
	}
	url, _ := v.GetString("url")
	shortURL, _ := v.GetString("shortUrl")
	ttl, _ := v.GetInt64("ttlSeconds")
	cached, _ := v.GetBoolean("cached")
	fmt.Println("url:", url)
	if shortURL != "" {
		fmt.Println("short:", shortURL)
	}
	fmt.Println("expires in:", time.Duration(ttl)*time.Second)
	fmt.Println("cached:", cached)
	return nil
}

func doResolve(slug string) error {
	req, err := http.NewRequest("GET", hosturl()+"/d/"+slug, nil)
	if err != nil {
		return err
	}
	if *token != "" {
		req.Header.Add("X-Api-Key", *token)
	}
	// we want the Location header, not whatever it points at
	client := &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusFound {
		return fmt.Errorf("received status %d", resp.StatusCode)
	}
	fmt.Println(resp.Header.Get("Location"))
	return nil
}

func doDelete(id string) error {
	body, err := request("DELETE", "/quote/"+id)
	if err != nil {
		return err
	}
	defer body.Close()
	v, err := jason.NewObjectFromReader(body)
	if err != nil {
		return err
	}
	photos, _ := v.GetInt64("photosDeleted")
	documents, _ := v.GetInt64("documentsDeleted")
	links, _ := v.GetInt64("linksDeleted")
	fmt.Printf("deleted %d photos, %d documents, %d links\n",
		photos, documents, links)
	return nil
}

func request(verb, route string) (io.ReadCloser, error) {
	req, err := http.NewRequest(verb, hosturl()+route, nil)
	if err != nil {
		return nil, err
	}
	if *token != "" {
		req.Header.Add("X-Api-Key", *token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != 200 {
		resp.Body.Close()
		return nil, fmt.Errorf("received status %d from server", resp.StatusCode)
	}
	return resp.Body, nil
}

func hosturl() string {
	if strings.HasPrefix(*server, "http") {
		return *server
	}
	return "http://" + *server
}
