// checkctl runs a one-shot synchronous check of the domains given on
// the command line and prints the verdicts. Handy for testing a domain
// before adding it to the bot.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/myatko/domainwatch/internal/domain"
	"github.com/myatko/domainwatch/internal/probe"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: checkctl <domain> [domain ...]")
		os.Exit(2)
	}

	prober := probe.NewSync()
	ctx := context.Background()
	exit := 0
	for _, name := range os.Args[1:] {
		res := prober.Probe(ctx, name)
		printResult(res)
		if res.Status != domain.StatusUp {
			exit = 1
		}
	}
	os.Exit(exit)
}

func printResult(res domain.ProbeResult) {
	switch res.Status {
	case domain.StatusUp:
		latency := time.Duration(0)
		if res.ResponseTime != nil {
			latency = time.Duration(*res.ResponseTime * float64(time.Second))
		}
		fmt.Printf("✅ %-40s UP   (HTTP %d, %s)\n", res.Domain, *res.StatusCode, latency.Round(time.Millisecond))
	default:
		reason := res.Error
		if reason == "" {
			reason = "unknown error"
		}
		fmt.Printf("❌ %-40s DOWN (%s)\n", res.Domain, reason)
	}
}
