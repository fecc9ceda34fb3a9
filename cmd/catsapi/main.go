// Command catsapi serves the cats REST API.
package main

import (
	"log"

	"github.com/patric-chuzhbe/catsapi/internal/app"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	theApp, err := app.New()
	if err != nil {
		return err
	}
	defer theApp.Close()

	return theApp.Run()
}
