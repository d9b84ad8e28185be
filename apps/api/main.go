package main

import (
	"flag"
	"log"
	_ "net/http/pprof"

	"github.com/pkg/errors"
)

func main() {
	useDig := flag.Bool("dig", false, "wire dependencies with the dig container")
	flag.Parse()

	if *useDig {
		startWithDig()
		return
	}
	startManual()
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to start").Error())
	}
}
