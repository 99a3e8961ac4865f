// Copyright 2026 Conductor OSS
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	contentcore "github.com/nicholasgasior/contentcore-go"
)

var version = "dev"

func main() {
	var (
		output      string
		engines     string
		mimeType    string
		configPath  string
		timeout     time.Duration
		showVersion bool
		listEngines bool
		debug       bool
		quiet       bool
	)

	flag.StringVar(&output, "o", "", "Output file (default: stdout)")
	flag.StringVar(&output, "output", "", "Output file (default: stdout)")
	flag.StringVar(&engines, "engine", "", "Comma-separated engine chain, overrides configuration")
	flag.StringVar(&mimeType, "m", "", "MIME type hint")
	flag.StringVar(&mimeType, "mime-type", "", "MIME type hint")
	flag.StringVar(&configPath, "config", "", "Path to a YAML configuration file")
	flag.DurationVar(&timeout, "timeout", 0, "Per-engine timeout (default: from configuration)")
	flag.BoolVar(&showVersion, "v", false, "Show version")
	flag.BoolVar(&showVersion, "version", false, "Show version")
	flag.BoolVar(&listEngines, "list-engines", false, "List registered engines and exit")
	flag.BoolVar(&debug, "debug", false, "Enable debug logging")
	flag.BoolVar(&quiet, "quiet", false, "Suppress all logging")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: ccore [flags] [source]\n\n")
		fmt.Fprintf(os.Stderr, "Extract content from files and URLs.\n\n")
		fmt.Fprintf(os.Stderr, "Arguments:\n")
		fmt.Fprintf(os.Stderr, "  source    File path or URL to extract (reads stdin if omitted)\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	if showVersion {
		fmt.Printf("ccore %s\n", version)
		os.Exit(0)
	}

	zerolog.SetGlobalLevel(zerolog.WarnLevel)
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	if quiet {
		zerolog.SetGlobalLevel(zerolog.Disabled)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	var opts []contentcore.Option
	if configPath != "" {
		cfg, err := contentcore.LoadConfig(configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
		opts = append(opts, contentcore.WithConfig(cfg))
	}
	cc := contentcore.New(opts...)

	if listEngines {
		printEngines(cc)
		os.Exit(0)
	}

	req := contentcore.Request{Timeout: timeout}
	if engines != "" {
		for _, name := range strings.Split(engines, ",") {
			if name = strings.TrimSpace(name); name != "" {
				req.Engines = append(req.Engines, name)
			}
		}
	}

	args := flag.Args()
	if len(args) == 0 {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading stdin: %v\n", err)
			os.Exit(1)
		}
		req.Source = contentcore.ContentSource(data)
	} else {
		source := args[0]
		if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
			req.Source = contentcore.URLSource(source)
		} else {
			req.Source = contentcore.FileSource(source)
		}
	}
	req.Source.MIMEType = mimeType

	result, err := cc.Extract(context.Background(), req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	for _, w := range result.Warnings {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", w)
	}

	if output != "" {
		dir := filepath.Dir(output)
		if dir != "." {
			os.MkdirAll(dir, 0o755)
		}
		if writeErr := os.WriteFile(output, []byte(result.Content+"\n"), 0o644); writeErr != nil {
			fmt.Fprintf(os.Stderr, "Error writing output: %v\n", writeErr)
			os.Exit(1)
		}
	} else {
		fmt.Print(result.Content)
		fmt.Println()
	}
}

func printEngines(cc *contentcore.ContentCore) {
	engines := cc.AvailableEngines()
	names := make([]string, 0, len(engines))
	for name := range engines {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		info := engines[name]
		fmt.Printf("%-10s priority=%-3d category=%-10s %s\n",
			name, info.Priority, info.Category, strings.Join(info.MIMETypes, ", "))
	}
}
