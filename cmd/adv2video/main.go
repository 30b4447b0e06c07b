package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/ivlev/adv2video/internal/config"
	"github.com/ivlev/adv2video/internal/dsl"
	"github.com/ivlev/adv2video/internal/export"
	"github.com/ivlev/adv2video/internal/layout"
	"github.com/ivlev/adv2video/internal/script"
	"github.com/ivlev/adv2video/internal/subtitle"
	"github.com/ivlev/adv2video/internal/system"
	"github.com/ivlev/adv2video/internal/timeline"
	"github.com/ivlev/adv2video/internal/voice"
)

func main() {
	system.InitResourceLimits()

	// .env can carry VOICEVOX_BASE_URL; missing file is fine
	godotenv.Load()

	scriptPtr := flag.String("script", "", "Path to a script JSON file")
	dslPtr := flag.String("dsl", "", "Path to a timeline DSL file (alternative to -script)")
	projectPtr := flag.String("project", ".", "Project directory assets resolve against")
	configPtr := flag.String("config", "", "Path to a YAML config overlay")
	srtPtr := flag.String("srt", "", "Write sequenced subtitles to this SRT file")
	dslSrtPtr := flag.String("dsl-srt", "", "With -dsl: write subtitles on the DSL's own timings to this SRT file")
	timelinePtr := flag.String("timeline-out", "timeline.yaml", "Write the rendered plan to this YAML file")
	advPtr := flag.String("adv-out", "", "With -dsl: also write the expanded script JSON here")
	vvurlPtr := flag.String("vvurl", "", "VOICEVOX engine URL (default from VOICEVOX_BASE_URL or config)")
	clockPtr := flag.String("clock", "local", "Keyframe clock: local or global")
	samplePtr := flag.Float64("sample", 0, "Keyframe sampling step in seconds (0 = one frame)")
	prefetchPtr := flag.Int("prefetch", 0, "Concurrent synthesis requests (0 = config value)")
	statsPtr := flag.Bool("stats", false, "Report build statistics")

	flag.Parse()

	cfg := config.Default()
	if *configPtr != "" {
		loaded, err := config.Load(*configPtr)
		if err != nil {
			log.Fatalf("[-] Config error: %v", err)
		}
		cfg = loaded
	}
	if env := os.Getenv("VOICEVOX_BASE_URL"); env != "" {
		cfg.VoicevoxURL = env
	}
	if *vvurlPtr != "" {
		cfg.VoicevoxURL = *vvurlPtr
	}
	if *prefetchPtr > 0 {
		cfg.Prefetch = *prefetchPtr
	}

	var clock export.Clock
	switch *clockPtr {
	case "local":
		clock = export.ClockLocal
	case "global":
		clock = export.ClockGlobal
	default:
		log.Fatalf("[-] Unknown clock %q, want local or global", *clockPtr)
	}

	var scenes []script.Scene
	switch {
	case *scriptPtr != "" && *dslPtr != "":
		log.Fatalf("[-] Pass either -script or -dsl, not both")
	case *scriptPtr != "":
		var err error
		scenes, err = script.LoadFile(*scriptPtr, cfg)
		if err != nil {
			log.Fatalf("[-] Script error: %v", err)
		}
	case *dslPtr != "":
		evs, err := dsl.ParseFile(*dslPtr, cfg)
		if err != nil {
			log.Fatalf("[-] DSL error: %v", err)
		}
		evs = dsl.HoldBackgrounds(evs)
		evs, layoutErr := dsl.AssignSeats(evs)
		// an unsupported layout window is a warning, not a build failure:
		// the best-effort seats are kept and unseated actors sit center
		var lerr *layout.UnsupportedLayoutError
		if errors.As(layoutErr, &lerr) {
			log.Printf("[!] More than two actors visible in %.2f-%.2f (%v); extra actors are centered",
				lerr.Start, lerr.End, lerr.Actors)
		} else if layoutErr != nil {
			log.Fatalf("[-] Layout error: %v", layoutErr)
		}
		scenes = dsl.Scenes(evs, cfg)
		if *dslSrtPtr != "" {
			// subtitles on the author's declared timings, before any
			// audio-driven re-timing
			if err := subtitle.WriteFile(*dslSrtPtr, dsl.Subtitles(evs)); err != nil {
				log.Fatalf("[-] Failed to write DSL subtitles: %v", err)
			}
			fmt.Printf("[*] DSL-timed subtitles written to %s\n", *dslSrtPtr)
		}
		if *advPtr != "" {
			if err := script.Write(*advPtr, scenes); err != nil {
				log.Fatalf("[-] Failed to write expanded script: %v", err)
			}
			fmt.Printf("[*] Expanded script written to %s\n", *advPtr)
		}
	default:
		log.Fatalf("[-] Pass -script or -dsl")
	}

	stats := system.NewBuildStats()
	ctx := context.Background()

	vv := voice.New(cfg.VoicevoxURL)
	if err := vv.Ready(ctx); err != nil {
		log.Fatalf("[-] VOICEVOX not reachable at %s. Check the engine, IP/port, and firewall: %v",
			cfg.VoicevoxURL, err)
	}
	fmt.Printf("[*] VOICEVOX engine ready at %s\n", cfg.VoicevoxURL)

	seq := timeline.New(cfg, vv, *projectPtr)
	tl, err := seq.Sequence(ctx, scenes)
	if err != nil {
		log.Fatalf("[-] Sequencing failed: %v", err)
	}
	fmt.Printf("[*] Timeline laid out: %d segments, %.2fs total\n", len(tl.Segments), tl.Duration)

	if *srtPtr != "" {
		if err := subtitle.WriteFile(*srtPtr, tl.Subtitles); err != nil {
			log.Fatalf("[-] Failed to write subtitles: %v", err)
		}
		fmt.Printf("[*] Subtitles written to %s\n", *srtPtr)
	}

	doc := export.Build(tl, cfg, export.Options{
		Clock:      clock,
		SampleStep: *samplePtr,
		Root:       *projectPtr,
	})
	if err := export.Write(doc, *timelinePtr); err != nil {
		log.Fatalf("[-] Failed to write plan: %v", err)
	}

	stats.Lines = len(tl.Subtitles)
	stats.Segments = len(tl.Segments)
	stats.Duration = tl.Duration
	if *statsPtr {
		stats.Report()
	}

	fmt.Printf("[+++] Done! Plan: %s\n", *timelinePtr)
}
