// main is the entry point of the Students API application.
//
// COMMANDS:
//
//	students-api [serve]   load config, open storage, serve HTTP until SIGINT/SIGTERM
//	students-api migrate   apply the schema migrations and exit
//	students-api version   print the build revision
//
// RUNNING THE SERVER:
//
//	go run ./cmd/students-api --config=config/local.yaml
//
// or (with the environment variable, which wins over the flag):
//
//	CONFIG_PATH=config/local.yaml go run ./cmd/students-api
package main

import (
	"context"
	"os"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1) // cobra already printed the error
	}
}
