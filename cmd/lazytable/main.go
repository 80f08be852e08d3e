package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/lazytable/lazytable/colstore"
	"github.com/lazytable/lazytable/logutil"
	"github.com/lazytable/lazytable/output"
	"github.com/lazytable/lazytable/pipeline"
	"github.com/lazytable/lazytable/plan"
)

var (
	configFlag = flag.String("config", "", "TOML config file describing the pipeline")
	formatFlag = flag.String("f", "text", "Output format: text, csv, jsonl")
	chunkFlag  = flag.Int("chunk-size", 0, "Rows per batch (0 = default)")
	schemaFlag = flag.Bool("schema", false, "Show the source schema instead of running")
	ingestFlag = flag.String("ingest", "", "Convert the given CSV file to the parquet source, then run")
	logFlag    = flag.String("log-level", "info", "Log level: debug, info, warn, error")
)

// config mirrors the pipeline spec with toml tags, so a whole analysis can be
// described in one file. Flags override the file.
type config struct {
	Source    string         `toml:"source"`
	ChunkSize int            `toml:"chunk-size"`
	Field     string         `toml:"field"`
	KeepMin   float64        `toml:"keep-min"`
	KeepMax   float64        `toml:"keep-max"`
	Columns   []string       `toml:"columns"`
	Bucket    bucketConfig   `toml:"bucket"`
	GroupBy   string         `toml:"group-by"`
	Aggs      []aggConfig    `toml:"aggregations"`
	Log       logutil.Config `toml:"log"`
}

type bucketConfig struct {
	Column string    `toml:"column"`
	As     string    `toml:"as"`
	Bounds []float64 `toml:"bounds"`
	Labels []string  `toml:"labels"`
}

type aggConfig struct {
	Column  string `toml:"column"`
	Reducer string `toml:"reducer"`
	As      string `toml:"as"`
}

// defaultConfig reproduces the patient cohort analysis: reject BMI outliers,
// bucket BMI into ranges, report glucose/age averages and counts per range.
func defaultConfig() config {
	return config{
		Field:   "BMI",
		KeepMin: 10,
		KeepMax: 60,
		Columns: []string{"BMI", "Glucose", "Age"},
		Bucket: bucketConfig{
			Column: "BMI",
			As:     "bmi_range",
			Bounds: []float64{18.5, 25, 30},
			Labels: []string{"Underweight", "Normal", "Overweight", "Obese"},
		},
		GroupBy: "bmi_range",
		Aggs: []aggConfig{
			{Column: "Glucose", Reducer: "avg", As: "avg_glucose"},
			{Reducer: "count", As: "patient_count"},
			{Column: "Age", Reducer: "avg", As: "avg_age"},
		},
	}
}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] <file.parquet>\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Streaming cohort analytics over a columnar dataset.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s patients.parquet\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -ingest patients.csv patients.parquet\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -config cohort.toml -f csv patients.parquet\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --schema patients.parquet\n", os.Args[0])
	}
	flag.Parse()

	cfg := defaultConfig()
	if *configFlag != "" {
		if _, err := toml.DecodeFile(*configFlag, &cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Error reading config %s: %v\n", *configFlag, err)
			os.Exit(1)
		}
	}
	mergeLogLevel(&cfg, flag.CommandLine)
	if err := logutil.Setup(cfg.Log); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if flag.NArg() >= 1 {
		cfg.Source = flag.Arg(0)
	}
	if cfg.Source == "" {
		fmt.Fprintf(os.Stderr, "Error: missing parquet file argument\n\n")
		flag.Usage()
		os.Exit(1)
	}
	if *chunkFlag > 0 {
		cfg.ChunkSize = *chunkFlag
	}

	if *ingestFlag != "" {
		if _, err := pipeline.IngestCSV(*ingestFlag, cfg.Source, cfg.ChunkSize); err != nil {
			fmt.Fprintf(os.Stderr, "Error ingesting %s: %v\n", *ingestFlag, err)
			os.Exit(1)
		}
	}

	if *schemaFlag {
		if err := printSchema(cfg.Source); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	spec, err := cfg.spec()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error in pipeline config: %v\n", err)
		os.Exit(1)
	}

	result, err := pipeline.Run(spec)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	formatter, err := output.New(*formatFlag, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := formatter.Format(result); err != nil {
		fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
		os.Exit(1)
	}
}

// spec converts the file/flag configuration into a pipeline spec.
// mergeLogLevel applies the -log-level flag only when it was given on the
// command line, so a level configured in the TOML file survives the flag
// default.
func mergeLogLevel(cfg *config, fs *flag.FlagSet) {
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "log-level" {
			cfg.Log.Level = f.Value.String()
		}
	})
}

func (c config) spec() (pipeline.Spec, error) {
	aggs := make([]plan.AggSpec, len(c.Aggs))
	for i, a := range c.Aggs {
		r, err := plan.ParseReducer(a.Reducer)
		if err != nil {
			return pipeline.Spec{}, err
		}
		aggs[i] = plan.AggSpec{Column: a.Column, Reducer: r, As: a.As}
	}
	return pipeline.Spec{
		Source:  c.Source,
		Field:   c.Field,
		KeepMin: c.KeepMin,
		KeepMax: c.KeepMax,
		Columns: c.Columns,
		Bucket: pipeline.BucketSpec{
			Column: c.Bucket.Column,
			As:     c.Bucket.As,
			Bounds: c.Bucket.Bounds,
			Labels: c.Bucket.Labels,
		},
		GroupBy:   c.GroupBy,
		Aggs:      aggs,
		ChunkSize: c.ChunkSize,
	}, nil
}

func printSchema(path string) error {
	h, err := colstore.Open(path)
	if err != nil {
		return err
	}
	defer h.Close()

	for _, f := range h.Schema().Fields() {
		fmt.Printf("%s\t%s\n", f.Name, f.Type)
	}
	return nil
}
