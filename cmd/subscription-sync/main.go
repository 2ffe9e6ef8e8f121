package main

import (
	"os"

	"shopsync/config"
	"shopsync/internal/workers"
)

func main() {
	os.Exit(workers.Main(config.JobSubscription, workers.SubscriptionSync))
}
