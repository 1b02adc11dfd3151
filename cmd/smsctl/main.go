// Command smsctl is an operator tool for the SMS router: it signs and sends
// test webhooks, classifies message bodies offline and mints admin tokens.
package main

import (
	"os"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
