// Command sonaq-decode transcribes a WAV file offline using the same feature
// pipeline and beam search as the streaming server. Useful for regression
// checks against known recordings without standing up a websocket session.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/sonaq/sonaq/internal/config"
	"github.com/sonaq/sonaq/pkg/audio"
	"github.com/sonaq/sonaq/pkg/decode"
	"github.com/sonaq/sonaq/pkg/feature"
	"github.com/sonaq/sonaq/pkg/scorer/mlp"
	"github.com/sonaq/sonaq/pkg/symbol"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	wavPath := flag.String("wav", "", "path to a 16-bit PCM mono WAV file")
	nbest := flag.Int("nbest", 1, "number of hypotheses to print")
	flag.Parse()

	if *wavPath == "" {
		fmt.Fprintln(os.Stderr, "sonaq-decode: -wav is required")
		flag.Usage()
		return 2
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sonaq-decode: %v\n", err)
		return 1
	}

	table, err := symbol.Load(cfg.Model.SymbolsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sonaq-decode: load symbol table: %v\n", err)
		return 1
	}
	sc, err := mlp.Load(cfg.Model.WeightsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sonaq-decode: load model: %v\n", err)
		return 1
	}

	f, err := os.Open(*wavPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sonaq-decode: %v\n", err)
		return 1
	}
	defer f.Close()

	samples, info, err := audio.ReadWAV(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sonaq-decode: read %s: %v\n", *wavPath, err)
		return 1
	}
	if info.Channels == 2 {
		samples = audio.StereoToMono(samples)
	}
	if info.SampleRate != cfg.Feature.SampleRate {
		fmt.Fprintf(os.Stderr, "sonaq-decode: resampling %d Hz -> %d Hz\n",
			info.SampleRate, cfg.Feature.SampleRate)
		samples = audio.Resample(samples, info.SampleRate, cfg.Feature.SampleRate)
	}

	pipe, err := feature.New(cfg.Feature.Pipeline())
	if err != nil {
		fmt.Fprintf(os.Stderr, "sonaq-decode: %v\n", err)
		return 1
	}
	pipe.Accept(samples)
	pipe.SetInputFinished()

	dec, err := decode.NewDecoder(pipe, sc, table, decode.Options{
		BeamWidth:  cfg.Decode.BeamWidth,
		ChunkSize:  cfg.Decode.ChunkSize,
		BlankID:    cfg.Decode.BlankID,
		ExcludeIDs: cfg.Decode.ExcludeIDs,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "sonaq-decode: %v\n", err)
		return 1
	}

	ctx := context.Background()
	for {
		finished, err := dec.Step(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "sonaq-decode: decode failed: %v\n", err)
			return 1
		}
		if finished {
			break
		}
	}

	if *nbest > 1 {
		for i, hyp := range dec.NBest(*nbest) {
			fmt.Printf("%d\t%s\n", i+1, hyp)
		}
	} else {
		fmt.Println(dec.Result())
	}
	return 0
}
