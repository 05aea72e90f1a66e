package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"Vscan/internal/config"
	"Vscan/internal/crawler"
	"Vscan/internal/httpclient"
	"Vscan/internal/logger"
	"Vscan/internal/reporter"
	"Vscan/internal/scanner"
	"Vscan/internal/scanner/xss"
)

// main is the entry point of the Vscan application. The JSON report is the
// only thing written to stdout; logs go to stderr.
func main() {
	log := logger.NewLogger(logger.INFO)

	// Load configuration from config.yaml.
	cfg, err := config.LoadConfig("config.yaml")
	if err != nil {
		exitWithError(err)
	}

	// --- Custom Flag Definitions & Help Screen ---

	var jsonOutputFile string
	var verbose, trace bool

	flag.StringVar(&cfg.Target, "u", cfg.Target, "Target URL for scanning")
	flag.IntVar(&cfg.MaxDepth, "d", cfg.MaxDepth, "Maximum crawling depth")
	flag.IntVar(&cfg.MaxLinks, "max-links", cfg.MaxLinks, "Maximum number of URLs to visit (0 = unbounded)")
	flag.BoolVar(&cfg.ObeyRobots, "robots", cfg.ObeyRobots, "Obey robots.txt")
	flag.IntVar(&cfg.Concurrency, "c", cfg.Concurrency, "Number of concurrent workers")
	flag.IntVar(&cfg.Timeout, "timeout", cfg.Timeout, "Per-request timeout in seconds")
	flag.IntVar(&cfg.MaxRetries, "r", cfg.MaxRetries, "Maximum number of retries for failed requests")
	flag.Float64Var(&cfg.RateLimit, "rate", cfg.RateLimit, "Maximum requests per second (0 = unlimited)")
	flag.StringVar(&cfg.UserAgent, "ua", cfg.UserAgent, "User-Agent header")
	flag.BoolVar(&cfg.ProbeForms, "probe-forms", cfg.ProbeForms, "Inject payloads into forms")
	flag.BoolVar(&cfg.ProbeParams, "probe-params", cfg.ProbeParams, "Inject payloads into query parameters")
	flag.StringVar(&jsonOutputFile, "output-json", cfg.Output.OutputFile, "Also save the JSON report to this file")
	flag.BoolVar(&verbose, "v", cfg.Output.Verbose, "Enable verbose output (DEBUG level)")
	flag.BoolVar(&trace, "vv", false, "Enable trace-level output (highly verbose)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Vscan crawls a single web site and probes its forms and query parameters for reflected XSS.\n\n")
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] [target]\n\n", os.Args[0])

		fmt.Fprintf(os.Stderr, "TARGET:\n")
		fmt.Fprintf(os.Stderr, "  -u string\n    \tTarget URL for scanning (e.g., \"http://example.com\"). May also be given as the first argument.\n")

		fmt.Fprintf(os.Stderr, "\nCRAWLING & PERFORMANCE:\n")
		fmt.Fprintf(os.Stderr, "  -d int\n    \tMaximum crawling depth, never more than 3 (default: %d)\n", cfg.MaxDepth)
		fmt.Fprintf(os.Stderr, "  -max-links int\n    \tMaximum number of URLs to visit, 0 = unbounded (default: %d)\n", cfg.MaxLinks)
		fmt.Fprintf(os.Stderr, "  -robots\n    \tObey robots.txt; an unreachable robots.txt blocks the whole site\n")
		fmt.Fprintf(os.Stderr, "  -c int\n    \tNumber of concurrent workers (default: %d)\n", cfg.Concurrency)
		fmt.Fprintf(os.Stderr, "  -timeout int\n    \tPer-request timeout in seconds (default: %d)\n", cfg.Timeout)
		fmt.Fprintf(os.Stderr, "  -r int\n    \tMaximum number of retries for failed requests (default: %d)\n", cfg.MaxRetries)
		fmt.Fprintf(os.Stderr, "  -rate float\n    \tMaximum requests per second, 0 = unlimited (default: %g)\n", cfg.RateLimit)
		fmt.Fprintf(os.Stderr, "  -ua string\n    \tUser-Agent header (default: %q)\n", cfg.UserAgent)

		fmt.Fprintf(os.Stderr, "\nDETECTION:\n")
		fmt.Fprintf(os.Stderr, "  -probe-forms\n    \tInject payloads into forms (default: %v)\n", cfg.ProbeForms)
		fmt.Fprintf(os.Stderr, "  -probe-params\n    \tInject payloads into query parameters (default: %v)\n", cfg.ProbeParams)
		fmt.Fprintf(os.Stderr, "  A form that appears on several pages is submitted once, from the first page it was found on.\n")

		fmt.Fprintf(os.Stderr, "\nOUTPUT & REPORTING:\n")
		fmt.Fprintf(os.Stderr, "  -output-json string\n    \tAlso save the JSON report to this file (e.g., report.json)\n")
		fmt.Fprintf(os.Stderr, "  -v\n    \tEnable verbose output (DEBUG level)\n")
		fmt.Fprintf(os.Stderr, "  -vv\n    \tEnable trace-level output (highly verbose)\n")

		fmt.Fprintf(os.Stderr, "\nCONFIGURATION:\n")
		fmt.Fprintf(os.Stderr, "  Vscan automatically loads 'config.yaml' from the current directory.\n")
		fmt.Fprintf(os.Stderr, "  Command-line flags will override settings from the configuration file.\n")

		fmt.Fprintf(os.Stderr, "\nEXAMPLES:\n")
		fmt.Fprintf(os.Stderr, "  # Scan two levels deep and save the report\n")
		fmt.Fprintf(os.Stderr, "  vscan -d 2 -output-json report.json http://example.com\n\n")
		fmt.Fprintf(os.Stderr, "  # Polite scan honouring robots.txt\n")
		fmt.Fprintf(os.Stderr, "  vscan -robots -rate 2 -c 2 example.com\n\n")
	}

	flag.Parse()
	if flag.NArg() > 0 {
		cfg.Target = flag.Arg(0)
	}

	// Adjust log level based on verbosity flags.
	if trace {
		log.SetMinLevel(logger.TRACE)
		log.Info("Trace logging enabled (-vv).")
	} else if verbose {
		log.SetMinLevel(logger.DEBUG)
		log.Info("Debug logging enabled (-v).")
	}

	if err := cfg.Validate(); err != nil {
		log.Error("%v", err)
		exitWithError(err)
	}

	clientOpts := httpclient.ClientOptions{
		Timeout:         time.Duration(cfg.Timeout) * time.Second,
		FollowRedirects: true,
		UserAgent:       cfg.UserAgent,
		MaxRetries:      cfg.MaxRetries,
		RequestDelay:    500 * time.Millisecond,
		RateLimit:       cfg.RateLimit,
	}
	client := httpclient.NewClient(log, clientOpts)

	scannerManager := scanner.NewManager(client, log, scanner.ScannerOptions{
		ProbeForms:  cfg.ProbeForms,
		ProbeParams: cfg.ProbeParams,
	})
	scannerManager.RegisterScanner(xss.NewReflectedXSSScanner())

	target := crawler.Target{
		SeedURL:    cfg.Target,
		MaxDepth:   cfg.MaxDepth,
		MaxLinks:   cfg.MaxLinks,
		ObeyRobots: cfg.ObeyRobots,
	}
	c, err := crawler.NewCrawler(client, log, target, cfg.Concurrency, scannerManager)
	if err != nil {
		exitWithError(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("Starting Vscan scan...")
	log.Info("Target URL: %s", c.Seed())
	report := c.Run(ctx)

	if err := reporter.WriteJSON(os.Stdout, report); err != nil {
		log.Error("Failed to write report: %v", err)
	}
	if jsonOutputFile != "" {
		if err := reporter.WriteJSONReport(report, jsonOutputFile); err != nil {
			log.Error("Failed to save JSON report to %s: %v", jsonOutputFile, err)
		} else {
			log.Success("JSON report saved to %s", jsonOutputFile)
		}
	}
}

// exitWithError reports a configuration error as a JSON object and exits 1.
func exitWithError(err error) {
	_ = reporter.WriteJSON(os.Stdout, map[string]string{"error": err.Error()})
	os.Exit(1)
}
