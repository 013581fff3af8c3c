package main

import (
	"flag"
	"log"
	"os"

	doctorcmd "github.com/figdock/figdock/internal/cmd/doctor"
)

func main() {
	cfg, err := doctorcmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	os.Exit(doctorcmd.Run(cfg, os.Stdout))
}
