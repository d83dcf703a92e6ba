package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang/glog"
	"github.com/peterbourgon/ff/v3"
	"golang.org/x/sync/errgroup"

	"github.com/minthantsin/rtsp-hls-gateway/api"
	"github.com/minthantsin/rtsp-hls-gateway/config"
	"github.com/minthantsin/rtsp-hls-gateway/log"
	"github.com/minthantsin/rtsp-hls-gateway/stream"
	"github.com/minthantsin/rtsp-hls-gateway/video"
)

func main() {
	err := flag.Set("logtostderr", "true")
	if err != nil {
		glog.Fatal(err)
	}
	fs := flag.NewFlagSet("rtsp-hls-gateway", flag.ExitOnError)
	cli := config.Cli{}

	version := fs.Bool("version", false, "print application version")

	config.AddrFlag(fs, &cli.HTTPAddress, "http-addr", "0.0.0.0:8000", "Address to bind the gateway HTTP listener to. A bare port number is accepted.")
	fs.StringVar(&cli.TranscodeDir, "transcode-dir", "transcoding-tmp", "Working directory for manifests and MPEG-TS segments")
	fs.IntVar(&cli.SegmentDuration, "segment-duration", 5, "Target HLS segment length in seconds")
	fs.IntVar(&cli.SegmentMaxGap, "max-gap", 3, "Minimum gap between requested and produced segment index that forces a transcoder restart")
	fs.DurationVar(&cli.SelfDestructDuration, "self-destruct-duration", 60*time.Second, "Idle time before a stream is torn down and its files removed")
	fs.IntVar(&cli.MaxConcurrentStreams, "max-streams", 3, "Maximum number of concurrent upstream sessions")
	fs.StringVar(&cli.FFmpegPath, "ffmpeg-path", config.DefaultFFmpegPath, "Path to the ffmpeg binary")
	fs.StringVar(&cli.FFprobePath, "ffprobe-path", config.DefaultFFprobePath, "Path to the ffprobe binary")
	fs.BoolVar(&cli.Debug, "debug", false, "Enable verbose poller and transcoder logging")
	fs.BoolVar(&cli.StrictStatus, "strict-status", false, "Answer admission rejections with 503 and missing queries with 400 instead of the legacy 500")

	err = ff.Parse(
		fs, os.Args[1:],
		ff.WithEnvVarPrefix("GATEWAY"),
	)
	if err != nil {
		glog.Fatalf("error parsing cli: %s", err)
	}

	if *version {
		fmt.Printf("rtsp-hls-gateway version: %s\n", config.Version)
		return
	}

	log.Verbose = cli.Debug
	video.SetFFprobePath(cli.FFprobePath)

	if err := stream.SweepTranscodeDir(cli.TranscodeDir); err != nil {
		glog.Fatalf("error preparing transcode dir: %s", err)
	}

	registry := stream.NewRegistry(cli.MaxConcurrentStreams)
	driver := &stream.Driver{
		Prober:        video.Probe{},
		FFmpegPath:    cli.FFmpegPath,
		Dir:           cli.TranscodeDir,
		SegmentLength: cli.SegmentDuration,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return api.ListenAndServe(ctx, cli, registry, driver)
	})

	group.Go(func() error {
		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
		select {
		case s := <-c:
			log.LogNoStreamID("caught signal, attempting clean shutdown", "signal", s.String())
			cancel()
		case <-ctx.Done():
		}
		return nil
	})

	err = group.Wait()

	// tear down any transcoders still running and sweep their artifacts
	registry.KillAll(true)

	if err != nil {
		glog.Fatalf("gateway shut down with error: %s", err)
	}
}
