package main

import (
	"flag"
	"log"
	"net/http"
	"strings"

	"github.com/PongKJ/zmc-controller-upper/bitmap"
	"github.com/PongKJ/zmc-controller-upper/driver"
	"github.com/PongKJ/zmc-controller-upper/driver/fake"
	"github.com/PongKJ/zmc-controller-upper/driver/zmc"
	"github.com/PongKJ/zmc-controller-upper/runner"
	"github.com/PongKJ/zmc-controller-upper/session"
)

const (
	bitmapSize  = 800
	bitmapScale = 4.0 // pixels per machine unit
)

func dial(descriptor string) (driver.Driver, error) {
	if descriptor == "fake" || strings.HasPrefix(descriptor, "fake://") {
		return fake.New(), nil
	}
	return zmc.Dial(descriptor)
}

func main() {
	log.SetFlags(log.Lshortfile)

	addr := flag.String("addr", ":9091", "Address to bind the server to.")
	dir := flag.String("dir", "./data", "Data directory for stored programs.")
	paramsFile := flag.String("params", "", "Machine parameter TOML file.")
	flag.Parse()

	bm := bitmap.New(bitmapSize, bitmapSize, bitmapScale)
	sess := session.NewManager(dial, bm)

	if *paramsFile != "" {
		p, err := session.LoadParams(*paramsFile)
		if err != nil {
			log.Fatalf("load params '%s': %+v", *paramsFile, err)
		}
		if err = sess.ApplyParams(p); err != nil {
			log.Fatalf("apply params: %+v", err)
		}
	}

	run := runner.New(sess)
	api := newAPI(sess, run, *dir)

	err := http.ListenAndServe(*addr, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "*")
		log.Printf("%s %s - %s", req.Method, req.URL.Path, req.RemoteAddr)
		api.ServeHTTP(w, req)
	}))
	if err != nil {
		log.Fatal(err)
	}
}
