package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"phishguard/pkg/classifier"
	"phishguard/pkg/cmd"
	"phishguard/pkg/config"
	"phishguard/pkg/detect"
	"phishguard/pkg/fetch"
	"phishguard/pkg/lexical"
	"phishguard/pkg/reputation"
	"phishguard/pkg/sink"
	"phishguard/pkg/textnorm"
)

const jobTimeout = 60 * time.Second

type jobResult struct {
	job      cmd.Job
	verdicts []config.Verdict
}

// It just processes jobs until the jobs channel is closed.
func worker(ctx context.Context, id int, runner *cmd.Runner, jobs <-chan cmd.Job, results chan<- jobResult, wg *sync.WaitGroup) {
	defer wg.Done()
	for job := range jobs {
		jobCtx, cancel := context.WithTimeout(ctx, jobTimeout)
		verdicts := runner.Process(jobCtx, job)
		cancel()
		log.Debug().Int("worker", id).Str("kind", job.Kind).Int("depth", job.Depth).Msg("job done")

		// always answer, the coordinator counts in-flight jobs
		results <- jobResult{job: job, verdicts: verdicts}
	}
}

func setupLogging(cfg config.LoggingConfig) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if cfg.Format == "json" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
		return
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
}

func main() {
	configPath := flag.String("config", "phishguard.yaml", "Path to the YAML configuration file")
	urlStr := flag.String("url", "", "A single URL to classify")
	urlsFile := flag.String("urls", "", "Path to file with one URL per line")
	phishtankURLsFile := flag.String("phtkdata", "", "Path to a PhishTank CSV export (verified and online rows)")
	msgStr := flag.String("msg", "", "A single message to classify")
	msgsFile := flag.String("msgs", "", "Path to file with one message per line")
	content := flag.Bool("content", false, "Also fetch each URL and classify the page content")
	withReputation := flag.Bool("reputation", false, "Run whitelist, blacklist, popularity and domain lookups for each URL")
	urldepth := flag.Int("depth", 1, "Follow outgoing page references up to this depth (needs -content)")
	workers := flag.Int("w", 20, "Number of concurrent workers")
	saveCSV := flag.Bool("savecsv", false, "Append results to verdicts.csv and edges.csv")
	outputJSON := flag.Bool("opjs", false, "Write results as JSON to stdout")
	toGraph := flag.Bool("graph", false, "Write URLs and their references to Neo4j")
	isPhishingFlag := flag.Bool("isphish", false, "Label -url/-urls input as known phishing in the output")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("could not read .env")
	}

	settings, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", *configPath).Msg("failed to load config")
	}
	setupLogging(settings.Logging)

	if *urldepth < 1 {
		log.Fatal().Msg("depth must be a positive integer (>= 1)")
	}
	if *workers < 1 {
		*workers = 1
	}
	if *urlsFile == "" && *phishtankURLsFile == "" && *urlStr == "" && *msgStr == "" && *msgsFile == "" {
		log.Info().Msg("Usage: phishguard -url <url> | -urls <file> | -phtkdata <csv> | -msg <text> | -msgs <file> ...")
		flag.PrintDefaults()
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Seed jobs ---
	var seeds []cmd.Job
	var phish *int
	if *isPhishingFlag {
		one := 1
		phish = &one
	}
	switch {
	case *phishtankURLsFile != "":
		log.Info().Str("file", *phishtankURLsFile).Msg("starting in phishtank data mode")
		entries, err := cmd.ReadphishtankURLsFromFile(*phishtankURLsFile)
		if err != nil {
			log.Fatal().Err(err).Msg("error reading phishtank URLs")
		}
		for _, e := range entries {
			expected := 0
			if e.Label {
				expected = 1
			}
			seeds = append(seeds, cmd.Job{Kind: cmd.KindURL, Input: e.URL, Depth: 1, Expected: &expected})
		}
	case *urlStr != "":
		seeds = append(seeds, cmd.Job{Kind: cmd.KindURL, Input: *urlStr, Depth: 1, Expected: phish})
	case *urlsFile != "":
		urls, err := cmd.ReadURLsFromFile(*urlsFile)
		if err != nil {
			log.Fatal().Err(err).Msg("error reading URLs from file")
		}
		for _, u := range urls {
			seeds = append(seeds, cmd.Job{Kind: cmd.KindURL, Input: u, Depth: 1, Expected: phish})
		}
	}
	if *msgStr != "" {
		seeds = append(seeds, cmd.Job{Kind: cmd.KindMessage, Input: *msgStr})
	}
	if *msgsFile != "" {
		msgs, err := cmd.ReadMessagesFromFile(*msgsFile)
		if err != nil {
			log.Fatal().Err(err).Msg("error reading messages from file")
		}
		for _, m := range msgs {
			seeds = append(seeds, cmd.Job{Kind: cmd.KindMessage, Input: m})
		}
	}

	hasURLs, hasMessages := false, false
	for _, s := range seeds {
		hasURLs = hasURLs || s.Kind == cmd.KindURL
		hasMessages = hasMessages || s.Kind == cmd.KindMessage
	}

	// --- Reference data and models ---
	if err := classifier.InitRuntime(settings.Models.SharedLibrary); err != nil {
		log.Fatal().Err(err).Msg("onnxruntime unavailable")
	}
	defer classifier.ShutdownRuntime()

	opts := detect.Options{}
	var closers []*classifier.ONNXModel
	loadModel := func(mc config.ModelConfig, width int) *classifier.ONNXModel {
		m, err := classifier.LoadONNXModel(mc, width)
		if err != nil {
			log.Fatal().Err(err).Str("model", mc.Path).Msg("failed to load model")
		}
		closers = append(closers, m)
		return m
	}
	if hasURLs {
		ngrams, err := lexical.LoadNGrams(settings.Assets.NGrams)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to load n-gram dictionary")
		}
		opts.Lexical = lexical.New(lexical.DefaultReference(ngrams))
		opts.URLModel = loadModel(settings.Models.URL, len(config.URLColumns))
		if *content {
			opts.Fetcher = fetch.New(settings.Fetch)
			opts.ContentModel = loadModel(settings.Models.Content, len(config.ContentColumns))
		}
	}
	if hasMessages {
		vec, err := textnorm.LoadVectorizer(settings.Assets.TFIDF)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to load tfidf artifact")
		}
		opts.Vectorizer = vec
		opts.MessageModel = loadModel(settings.Models.Message, len(vec.Columns()))
	}
	defer func() {
		for _, m := range closers {
			m.Close()
		}
	}()
	detector := detect.New(opts)

	var checker *reputation.Checker
	if *withReputation {
		wl, err := reputation.LoadWhitelist(settings.Assets.Whitelist)
		if err != nil {
			log.Warn().Err(err).Msg("whitelist not loaded, skipping whitelist lookups")
			wl = nil
		} else {
			log.Info().Int("domains", wl.Len()).Msg("whitelist loaded")
		}
		checker = reputation.NewChecker(settings.Reputation, wl)
	}

	runner := cmd.NewRunner(detector, checker, *content)

	// --- Outputs ---
	var sinks sink.Multi
	if *saveCSV {
		s, err := sink.NewCSVSink("verdicts.csv", "edges.csv")
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize CSV output")
		}
		sinks = append(sinks, s)
		log.Info().Msg("saving verdicts to verdicts.csv and edges to edges.csv")
	}
	if *outputJSON {
		sinks = append(sinks, sink.NewJSONSink(os.Stdout))
	}
	if *toGraph {
		g, err := sink.NewGraphWriter(ctx, settings.Graph, os.Getenv(settings.Graph.PasswordEnv))
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to the graph database")
		}
		sinks = append(sinks, g)
	}
	defer func() {
		if err := sinks.Close(); err != nil {
			log.Error().Err(err).Msg("closing outputs")
		}
	}()

	// --- Worker pool ---
	jobs := make(chan cmd.Job)
	results := make(chan jobResult)
	var workerWg sync.WaitGroup

	workerWg.Add(*workers)
	for w := 1; w <= *workers; w++ {
		go worker(ctx, w, runner, jobs, results, &workerWg)
	}

	go func() {
		var inFlightJobs int
		var jobQueue []cmd.Job
		var processed, phishing, failed int

		for _, s := range seeds {
			if s.Kind == cmd.KindMessage || runner.CheckAndAdd(s.Input) {
				jobQueue = append(jobQueue, s)
			}
		}

		processResult := func(res jobResult) {
			inFlightJobs--
			processed++
			for _, v := range res.verdicts {
				switch {
				case v.Error != "":
					failed++
					log.Warn().Str("kind", v.Kind).Str("input", v.Input).Str("error", v.Error).Msg("analysis failed")
				case v.Label != nil && *v.Label == int(classifier.Phishing):
					phishing++
				}
				if err := sinks.Write(ctx, v); err != nil {
					log.Error().Err(err).Str("input", v.Input).Msg("writing result")
				}
				if v.Kind != cmd.KindContent || res.job.Depth >= *urldepth {
					continue
				}
				for _, ref := range v.Refs {
					if runner.CheckAndAdd(ref.URL) {
						jobQueue = append(jobQueue, cmd.Job{Kind: cmd.KindURL, Input: ref.URL, Depth: res.job.Depth + 1})
					}
				}
			}
		}

		for len(jobQueue) > 0 || inFlightJobs > 0 {
			var activeJob cmd.Job
			var jobsChan chan cmd.Job

			if len(jobQueue) > 0 && ctx.Err() == nil {
				activeJob = jobQueue[0]
				jobsChan = jobs
			} else if inFlightJobs == 0 {
				break
			}

			select {
			case jobsChan <- activeJob:
				jobQueue = jobQueue[1:]
				inFlightJobs++
			case res := <-results:
				processResult(res)
			}
		}

		log.Info().Int("jobs", processed).Int("phishing", phishing).Int("failed", failed).Msg("phishguard finished")
		close(jobs)
	}()

	workerWg.Wait()
	log.Debug().Msg("all workers have finished")
}
