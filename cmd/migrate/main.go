package main

import (
	"fmt"
	"os"

	"github.com/robertarktes/ticket-checkin/internal/adapters/crdb"
	"github.com/robertarktes/ticket-checkin/internal/config"
	"github.com/spf13/pflag"
)

func main() {
	flags := pflag.NewFlagSet("migrate", pflag.ExitOnError)
	direction := flags.StringP("direction", "d", "up", "migration direction: up or down")
	dsn := flags.String("dsn", "", "CockroachDB DSN (defaults to CRDB_DSN)")
	_ = flags.Parse(os.Args[1:])

	if *dsn == "" {
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "load config: %v\n", err)
			os.Exit(1)
		}
		*dsn = cfg.CRDBDSN
	}
	if *dsn == "" {
		fmt.Fprintln(os.Stderr, "CRDB_DSN is not set")
		os.Exit(2)
	}

	if err := crdb.Migrate(*dsn, *direction); err != nil {
		fmt.Fprintf(os.Stderr, "migrate %s: %+v\n", *direction, err)
		os.Exit(1)
	}
	fmt.Printf("migrate %s: done\n", *direction)
}
